// Package main runs the docchat HTTP and MCP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/docchat/docchat/internal/chunker"
	"github.com/docchat/docchat/internal/embedding"
	"github.com/docchat/docchat/internal/engine"
	"github.com/docchat/docchat/internal/httpapi"
	"github.com/docchat/docchat/internal/index"
	"github.com/docchat/docchat/internal/llm"
	mcpserver "github.com/docchat/docchat/internal/mcp"
	"github.com/docchat/docchat/internal/pipeline"
)

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Create context that cancels on SIGTERM/SIGINT
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	logger := slog.Default()

	// Configuration from environment
	port := getEnv("PORT", "8080")
	model := getEnv("OPENAI_MODEL", "")
	topK := getEnvInt("TOP_K", index.DefaultTopK)

	// Embedding and generative model share one OpenAI client
	embeddingClient, err := embedding.NewClient(getEnv("OPENAI_API_KEY", ""))
	if err != nil {
		log.Fatalf("Failed to create OpenAI client: %v", err)
	}
	embedder := embedding.NewEmbedder(embeddingClient, 0)
	generator := llm.NewOpenAIGenerator(embeddingClient.Client(), model)

	// Vector index backend: Qdrant when configured, in-memory otherwise
	var builder index.Builder
	if qdrantHost := os.Getenv("QDRANT_HOST"); qdrantHost != "" {
		qdrantPort := getEnvInt("QDRANT_PORT", 6334)
		qb, err := index.NewQdrantBuilder(qdrantHost, qdrantPort, embedder)
		if err != nil {
			log.Fatalf("Failed to connect to Qdrant: %v", err)
		}
		defer qb.Close()
		builder = qb
		logger.Info("Using Qdrant index backend", "host", qdrantHost, "port", qdrantPort)
	} else {
		builder = index.NewMemoryBuilder(embedder)
		logger.Info("Using in-memory index backend")
	}

	reform := engine.NewReformulator(generator, logger)
	eng := engine.New(reform, generator, topK, logger)
	coord := pipeline.NewCoordinator(nil, chunker.New(0, 0), builder, eng, logger)

	// REST routes plus the MCP streamable HTTP transport on /mcp
	api := httpapi.NewServer(coord, logger)
	mcpSrv := mcpserver.NewServer(coord)

	mux := http.NewServeMux()
	mux.Handle("/", api.Handler())
	mux.Handle("/mcp", mcpserver.NewHTTPHandler(mcpSrv, nil))

	server := &http.Server{
		Addr:    ":" + port,
		Handler: mux,
	}

	go func() {
		logger.Info("Server listening", "port", port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		var i int
		if _, err := fmt.Sscanf(v, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}
