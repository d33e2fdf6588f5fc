package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/docchat/docchat/internal/history"
	"github.com/docchat/docchat/internal/llm"
)

// contextualizeInstruction tells the model to produce a standalone
// question and, critically, not to answer it.
const contextualizeInstruction = `Given a chat history and the latest user question ` +
	`which might reference context in the chat history, formulate a standalone question ` +
	`which can be understood without the chat history. Do NOT answer the question, ` +
	`just reformulate it if needed and otherwise return it as is.`

// Reformulator rewrites follow-up questions into self-contained queries
// using conversation history.
type Reformulator struct {
	gen    llm.Generator
	logger *slog.Logger
}

// NewReformulator creates a Reformulator over the given generative model.
func NewReformulator(gen llm.Generator, logger *slog.Logger) *Reformulator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reformulator{gen: gen, logger: logger}
}

// Reformulate returns a standalone form of question. With empty history
// the question is returned unchanged and no model call is made; a
// first-turn question must never be altered.
func (r *Reformulator) Reformulate(ctx context.Context, turns []history.Turn, question string) (string, error) {
	if len(turns) == 0 {
		return question, nil
	}

	rewritten, err := r.gen.Complete(ctx, contextualizeInstruction, turns, question)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrReformulation, err)
	}

	rewritten = strings.TrimSpace(rewritten)
	if rewritten == "" {
		r.logger.Warn("Reformulation returned empty output, keeping original question")
		return question, nil
	}

	// The model is instructed to reformulate, not answer. A long output
	// with no question mark is almost certainly an answer; it cannot be
	// trusted as a retrieval query.
	if looksLikeAnswer(question, rewritten) {
		r.logger.Warn("Reformulation violated don't-answer contract, keeping original question",
			"question", question, "output_len", len(rewritten))
		return question, nil
	}

	return rewritten, nil
}

// looksLikeAnswer flags output that reads as an answer rather than a
// rewritten question.
func looksLikeAnswer(question, rewritten string) bool {
	if strings.Contains(rewritten, "?") {
		return false
	}
	threshold := 2 * len(question)
	if threshold < 160 {
		threshold = 160
	}
	return len(rewritten) > threshold
}
