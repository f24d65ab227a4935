// Package main provides the AssetMesh command line interface: observation
// rounds against a local inventory and the MCP stdio server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "assetmesh",
	Short: "AssetMesh - agent-based asset assurance for OT facilities",
	Long: `AssetMesh runs a layer of observation agents over discovered asset
inventories. Each facility gets five domain analyzers (security, lifecycle,
gap, risk, dependency) coordinated through a shared message bus, with an
enterprise coordinator rolling everything up.

Inventories are plain JSON files; see the examples directory for the shape.`,
}

var (
	configPath    string
	inventoryPath string
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config (defaults apply when omitted)")
	rootCmd.PersistentFlags().StringVarP(&inventoryPath, "inventory", "i", "inventory.json", "path to the JSON asset inventory")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
