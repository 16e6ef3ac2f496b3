package dailyai

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// RunPipelineCmd runs classify and then report on the clusters it wrote
var RunPipelineCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: classify -> report",
	RunE: func(cmd *cobra.Command, args []string) error {
		log.Info().Msg("Running full pipeline...")
		if err := ClassifyHistoryCmd.RunE(cmd, args); err != nil {
			return err
		}

		reportOpts.Input = classifyOpts.Output
		if err := GenerateReportCmd.RunE(cmd, args); err != nil {
			return err
		}
		log.Info().Msg("Pipeline complete.")
		return nil
	},
}

func init() {
	classifyOpts.register(RunPipelineCmd)
	RunPipelineCmd.Flags().StringVar(&reportOpts.Markdown, "md", "report.md", "markdown report path")
	RunPipelineCmd.Flags().StringVar(&reportOpts.HTML, "html", "report.html", "HTML report path, empty to skip")
}
