package main

import (
	"fmt"

	"toolbridge/internal/mcp"

	"github.com/spf13/cobra"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tools offered by the MCP tool server",
	Long:  `Load the tool catalog exactly as the server does at startup and print it.`,
	RunE:  runTools,
}

func runTools(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	catalog, err := loadCatalog(mcp.NewClient(cfg.MCPURL, cfg.MCPHeaders))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if catalog.Len() == 0 {
		fmt.Fprintln(out, "📋 The tool server lists no tools")
		return nil
	}

	fmt.Fprintf(out, "📋 Tools from %s:\n\n", cfg.MCPURL)
	for i, tool := range catalog.Tools() {
		fmt.Fprintf(out, "%d. %s\n", i+1, tool.Name)
		if tool.Description != "" {
			fmt.Fprintf(out, "   %s\n", tool.Description)
		}
	}
	fmt.Fprintf(out, "\nTotal: %d tools\n", catalog.Len())

	return nil
}
