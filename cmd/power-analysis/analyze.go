package main

import (
	"fmt"

	"github.com/spf13/cobra"

	appanalyze "github.com/antmicro/dram-power-analysis/internal/application/analyze"
	aiopenai "github.com/antmicro/dram-power-analysis/internal/infra/ai/openai"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <report.json>",
	Short: "Summarize one written power report with an AI reviewer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.AI.APIKey == "" {
			return fmt.Errorf("ai.apiKey (or DRAM_PA_AI_API_KEY) is required for analyze")
		}
		svc := appanalyze.NewService(aiopenai.NewClient(cfg.AI.APIKey, cfg.AI.Model))
		summary, err := svc.SummarizeFile(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Println(summary)
		return nil
	},
}
