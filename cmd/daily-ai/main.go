package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"

	dailyai "github.com/annie444/daily-ai"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func getenv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func main() {
	dailyai.SetupLogging(os.Stderr, false)

	// Load .env file if there is one
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatal().Err(err).Msg("Error loading .env file")
	}

	// Set configuration for the dailyai package
	dailyai.Config.OpenAIAPIKey = getenv("OPENAI_API_KEY", dailyai.DefaultOpenAIAPIKey)
	dailyai.Config.OpenAIBaseURL = getenv("OPENAI_BASE_URL", dailyai.DefaultOpenAIBaseURL)
	dailyai.Config.EmbeddingModel = getenv("EMBEDDING_MODEL", dailyai.DefaultEmbeddingModel)
	dailyai.Config.LabelModel = getenv("LABEL_MODEL", dailyai.DefaultLabelModel)
	dailyai.Config.SafariHistoryDBPath = os.Getenv("SAFARI_HISTORY_DB_PATH")
	dailyai.Config.EmbeddingCachePath = getenv("DAILY_AI_CACHE_DB", dailyai.DefaultEmbeddingCachePath)

	var verbose bool
	rootCmd := &cobra.Command{
		Use:           "daily-ai",
		Short:         "Summarize what you browsed today by topic",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			dailyai.SetupLogging(os.Stderr, verbose)
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	// Add all commands from the dailyai package
	rootCmd.AddCommand(dailyai.SafariHistoryCmd)
	rootCmd.AddCommand(dailyai.ClassifyHistoryCmd)
	rootCmd.AddCommand(dailyai.GenerateReportCmd)
	rootCmd.AddCommand(dailyai.RunPipelineCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		log.Fatal().Err(err).Msg("daily-ai failed")
	}
}
