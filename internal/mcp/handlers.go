package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/docchat/docchat/internal/engine"
	"github.com/docchat/docchat/internal/pipeline"
)

// makeAskHandler creates the ask_document tool handler.
// Flow: reformulate the question with history, retrieve top-k chunks,
// synthesize a grounded answer, return it with source excerpts.
func makeAskHandler(coord *pipeline.Coordinator) func(
	context.Context, *mcp.CallToolRequest, AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input AskInput) (
		*mcp.CallToolResult, AskOutput, error,
	) {
		result, err := coord.Chat(ctx, input.Question, input.History)
		if err != nil {
			if errors.Is(err, engine.ErrNotInitialized) {
				return nil, AskOutput{}, fmt.Errorf("not_ready: %w", err)
			}
			return nil, AskOutput{}, fmt.Errorf("chat failed: %w", err)
		}

		sources := result.Sources
		if sources == nil {
			sources = []string{} // non-nil for JSON marshaling
		}
		return nil, AskOutput{
			Answer:         result.Answer,
			Sources:        sources,
			UpdatedHistory: result.History,
		}, nil
	}
}

// makeIngestHandler creates the ingest_document tool handler.
func makeIngestHandler(coord *pipeline.Coordinator) func(
	context.Context, *mcp.CallToolRequest, IngestInput,
) (*mcp.CallToolResult, IngestOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input IngestInput) (
		*mcp.CallToolResult, IngestOutput, error,
	) {
		result, err := coord.Ingest(ctx, input.Path)
		if err != nil {
			if errors.Is(err, engine.ErrBusy) {
				return nil, IngestOutput{}, fmt.Errorf("busy: %w", err)
			}
			return nil, IngestOutput{}, fmt.Errorf("ingestion failed: %w", err)
		}

		return nil, IngestOutput{
			Ready:   result.Ready,
			Message: result.Message,
			Chunks:  result.Chunks,
		}, nil
	}
}

// makeStatusHandler creates the get_status tool handler.
func makeStatusHandler(coord *pipeline.Coordinator) func(
	context.Context, *mcp.CallToolRequest, StatusInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input StatusInput) (
		*mcp.CallToolResult, StatusOutput, error,
	) {
		st := coord.Status()
		out := StatusOutput{
			State:  st.State,
			Ready:  st.Ready,
			Chunks: st.Chunks,
		}
		if st.Last != nil {
			out.Pages = st.Last.Pages
			out.DroppedPages = st.Last.DroppedPages
		}
		return nil, out, nil
	}
}
