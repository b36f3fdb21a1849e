package main

import (
	"fmt"
	"os"

	"github.com/aretw0/tally/internal/cli"
	"github.com/aretw0/tally/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tally",
	Short: "Tally is a keystroke-driven arithmetic calculator",
	Long: `Tally edits an expression key by key, evaluates it on demand and keeps
the last results. Run it as a REPL, a keypad TUI, an HTTP API or an MCP server.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Config file (default ./"+config.DefaultPath+" if present)")
	rootCmd.PersistentFlags().Bool("debug", false, "Log every command and evaluation")
	rootCmd.PersistentFlags().String("redis", "", "Redis URL for shared sessions (overrides redis.url)")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: text or json (overrides log.format)")
}

// loadConfig reads the config file and environment, then applies flag overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("redis") {
		cfg.Redis.URL, _ = flags.GetString("redis")
	}
	if flags.Changed("log-format") {
		cfg.Log.Format, _ = flags.GetString("log-format")
	}
	if flags.Lookup("addr") != nil && flags.Changed("addr") {
		cfg.Server.Addr, _ = flags.GetString("addr")
	}
	if flags.Lookup("metrics") != nil && flags.Changed("metrics") {
		cfg.Server.Metrics, _ = flags.GetBool("metrics")
	}
	return cfg, cfg.Validate()
}

// newServices wires the services for cmd. Callers must Close them.
func newServices(cmd *cobra.Command, requireRedis bool) (*cli.Services, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	debug, _ := cmd.Flags().GetBool("debug")
	return cli.NewServices(cfg, cli.ServiceOptions{
		Debug:        debug,
		RequireRedis: requireRedis,
		LogWriter:    cmd.ErrOrStderr(),
	})
}
