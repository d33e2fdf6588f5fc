package document

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PDFLoader extracts per-page text from PDF files using pdfcpu.
type PDFLoader struct {
	tempDir string
}

// NewPDFLoader creates a PDF loader with a scratch directory for extraction.
func NewPDFLoader() *PDFLoader {
	tempDir := filepath.Join(os.TempDir(), "docchat-pdf")
	os.MkdirAll(tempDir, 0o755)
	return &PDFLoader{tempDir: tempDir}
}

// Extensions returns the file extensions handled by this loader.
func (l *PDFLoader) Extensions() []string { return []string{".pdf"} }

// Load extracts text content page by page.
func (l *PDFLoader) Load(path string) (*Document, error) {
	conf := model.NewDefaultConfiguration()

	pdfCtx, err := api.ReadContextFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read pdf: %v", ErrUnreadable, err)
	}
	pageCount := pdfCtx.PageCount

	// pdfcpu extracts page content to files, one per page.
	outDir := filepath.Join(l.tempDir, uuid.New().String())
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: scratch dir: %v", ErrUnreadable, err)
	}
	defer os.RemoveAll(outDir)

	if err := api.ExtractContentFile(path, outDir, nil, conf); err != nil {
		return nil, fmt.Errorf("%w: extract content: %v", ErrUnreadable, err)
	}

	pageTexts := make(map[int]string)
	entries, err := os.ReadDir(outDir)
	if err != nil {
		return nil, fmt.Errorf("%w: read extraction: %v", ErrUnreadable, err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(outDir, entry.Name()))
		if err != nil {
			continue
		}
		var pageNum int
		if _, err := fmt.Sscanf(entry.Name(), "page_%d", &pageNum); err != nil {
			if _, err := fmt.Sscanf(entry.Name(), "Content_page_%d", &pageNum); err != nil {
				continue
			}
		}
		pageTexts[pageNum] = string(data)
	}

	pages := make([]Page, 0, pageCount)
	for num := 1; num <= pageCount; num++ {
		pages = append(pages, Page{Number: num, Text: pageTexts[num]})
	}

	return &Document{Path: path, Pages: pages}, nil
}
