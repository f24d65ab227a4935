package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hupe1980/assetmesh/agent"
	"github.com/hupe1980/assetmesh/tool"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the tool registry over MCP on stdio",
	Long: `Starts the Model Context Protocol server on stdin/stdout. All
enterprise tools plus the per-facility tools for every facility in the
inventory are exposed. Critical findings escalated during observation
rounds are logged to stderr.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		mesh, err := buildMesh()
		if err != nil {
			return err
		}

		mesh.Coordinator().OnEscalation(func(esc agent.Escalation) {
			fmt.Fprintf(os.Stderr, "ESCALATION [%s] %s: %s\n", esc.Facility, esc.Source, esc.Description)
		})

		srv := tool.NewServer(mesh.Registry())
		return srv.Run()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
