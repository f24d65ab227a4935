package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var roundCmd = &cobra.Command{
	Use:   "round",
	Short: "Run one observation round and print the executive summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		mesh, err := buildMesh()
		if err != nil {
			return err
		}

		result, err := mesh.RunRound(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "round %s: %d findings (%d critical, %d escalated) across %d facilities\n",
			result.RoundID, result.Findings, result.Criticals, result.Escalations, result.Facilities)

		summary := mesh.ExecutiveSummary(24 * time.Hour)
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	},
}

func init() {
	rootCmd.AddCommand(roundCmd)
}
