// Package main provides the docchat CLI for one-shot and interactive
// document question answering.
package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/docchat/docchat/internal/chunker"
	"github.com/docchat/docchat/internal/embedding"
	"github.com/docchat/docchat/internal/engine"
	"github.com/docchat/docchat/internal/index"
	"github.com/docchat/docchat/internal/llm"
	"github.com/docchat/docchat/internal/pipeline"
)

var rootCmd = &cobra.Command{
	Use:   "docchat",
	Short: "Conversational question answering over a single document",
	Long:  "CLI for ingesting a document and asking grounded questions about it",
}

var (
	askFile  string
	showSrcs bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ingest a document and ask questions about it",
	Long: `Ingests the document given with --file and answers questions grounded in it.

With a question argument, answers once and exits. Without one, starts an
interactive loop that carries conversation history between turns.

Environment variables:
  OPENAI_API_KEY OpenAI API key for embeddings and generation (required)
  OPENAI_MODEL   Chat model override (default: gpt-4o-mini)`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askFile, "file", "f", "", "document to ingest (.txt, .md, .pdf)")
	askCmd.Flags().BoolVar(&showSrcs, "sources", false, "print source excerpts with each answer")
	askCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(askCmd)
}

func main() {
	// Load .env file if present (local development), ignore if missing
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	embeddingClient, err := embedding.NewClient(os.Getenv("OPENAI_API_KEY"))
	if err != nil {
		return fmt.Errorf("create OpenAI client: %w", err)
	}
	embedder := embedding.NewEmbedder(embeddingClient, 0)
	generator := llm.NewOpenAIGenerator(embeddingClient.Client(), os.Getenv("OPENAI_MODEL"))

	reform := engine.NewReformulator(generator, logger)
	eng := engine.New(reform, generator, 0, logger)
	coord := pipeline.NewCoordinator(
		nil,
		chunker.New(0, 0),
		index.NewMemoryBuilder(embedder),
		eng,
		logger,
	)

	fmt.Printf("Ingesting %s...\n", askFile)
	result, err := coord.Ingest(ctx, askFile)
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	fmt.Println(result.Message)
	fmt.Println()

	// One-shot question
	if len(args) == 1 {
		return answerOnce(cmd, coord, args[0], nil)
	}

	// Interactive loop with conversation history
	fmt.Println("Ask questions about the document (empty line to quit).")
	scanner := bufio.NewScanner(os.Stdin)
	var wire []string
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			break
		}

		chat, err := coord.Chat(ctx, question, wire)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		wire = chat.History

		fmt.Println(chat.Answer)
		if showSrcs {
			printSources(chat.Sources)
		}
		fmt.Println()
	}
	return scanner.Err()
}

func answerOnce(cmd *cobra.Command, coord *pipeline.Coordinator, question string, wire []string) error {
	chat, err := coord.Chat(cmd.Context(), question, wire)
	if err != nil {
		return err
	}
	fmt.Println(chat.Answer)
	if showSrcs {
		printSources(chat.Sources)
	}
	return nil
}

func printSources(sources []string) {
	for i, src := range sources {
		fmt.Printf("\n--- Source %d ---\n%s\n", i+1, src)
	}
}
