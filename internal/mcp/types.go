// Package mcp exposes the document question-answering engine as MCP tools.
package mcp

// AskInput defines the input parameters for the ask_document tool.
type AskInput struct {
	// Question is the natural-language question about the ingested document.
	Question string `json:"question" jsonschema:"required,description=The question to ask about the ingested document"`
	// History is the flat conversation history alternating question and answer.
	History []string `json:"history,omitempty" jsonschema:"description=Prior conversation as a flat list alternating question and answer"`
}

// AskOutput contains the grounded answer.
type AskOutput struct {
	// Answer is the generated answer text.
	Answer string `json:"answer"`
	// Sources are excerpts of the retrieved chunks in rank order.
	Sources []string `json:"sources"`
	// UpdatedHistory is the history extended with this turn.
	UpdatedHistory []string `json:"updated_history"`
}

// IngestInput defines the input parameters for the ingest_document tool.
type IngestInput struct {
	// Path is the local file to ingest (.txt, .md, or .pdf).
	Path string `json:"path" jsonschema:"required,description=Local path of the document to ingest (.txt .md or .pdf)"`
}

// IngestOutput reports the ingestion result.
type IngestOutput struct {
	// Ready indicates the engine is ready to answer questions.
	Ready bool `json:"ready"`
	// Message is a human-readable ingestion summary.
	Message string `json:"message"`
	// Chunks is the number of indexed chunks.
	Chunks int `json:"chunks"`
}

// StatusInput defines the (empty) input for the get_status tool.
type StatusInput struct{}

// StatusOutput reports engine readiness and index statistics.
type StatusOutput struct {
	// State is not_ready, building, or ready.
	State string `json:"state"`
	// Ready indicates whether chat may proceed.
	Ready bool `json:"ready"`
	// Chunks is the size of the published index.
	Chunks int `json:"chunks"`
	// Pages is the page count of the last ingested document.
	Pages int `json:"pages,omitempty"`
	// DroppedPages is how many pages were below the minimum length.
	DroppedPages int `json:"dropped_pages,omitempty"`
}
