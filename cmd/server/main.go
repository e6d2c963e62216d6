package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags "-X main.Version=X.Y.Z"
var Version = "0.0.0-dev"

var rootCmd = &cobra.Command{
	Use:   "toolbridge",
	Short: "Bridge chat prompts to an OpenAI-compatible model with MCP tools",
	Long: `toolbridge serves POST /chat and POST /run-tool.

/chat sends the prompt to the configured model backend with every tool from
the MCP tool server bound; /run-tool calls a tool directly.

The tool catalog is loaded once at startup. If the tool server cannot be
reached the server exits without binding its port.

Configuration comes from the environment (or .env), optionally layered over
the YAML file named by CONFIG_FILE.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return runServer(cfg)
	},
}

func init() {
	rootCmd.AddCommand(toolsCmd)
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}
