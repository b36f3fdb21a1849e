package main

import (
	"github.com/aretw0/tally/internal/cli"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start an interactive calculator session",
	Long: `Reads lines from stdin. Each character is a key: digits, operators,
parentheses and '='. A line that does not end in '=' is evaluated too.
The words clear, back, history, clear-history and exit run that command.

With --tui the session opens as a full-screen keypad instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, _ := cmd.Flags().GetString("session")
		jsonMode, _ := cmd.Flags().GetBool("json")
		tuiMode, _ := cmd.Flags().GetBool("tui")

		svc, err := newServices(cmd, false)
		if err != nil {
			return err
		}
		defer svc.Close()

		_, err = cli.RunSession(cmd.Context(), svc, cli.RunOptions{
			SessionID: sessionID,
			JSON:      jsonMode,
			TUI:       tuiMode,
			In:        cmd.InOrStdin(),
			Out:       cmd.OutOrStdout(),
		})
		return err
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("session", "s", cli.DefaultSessionID, "Session ID (resumes it when a shared store is configured)")
	runCmd.Flags().Bool("json", false, "Run in JSON mode (NDJSON input/output)")
	runCmd.Flags().Bool("tui", false, "Run the full-screen keypad")
	runCmd.MarkFlagsMutuallyExclusive("json", "tui")

	rootCmd.RunE = runCmd.RunE
	rootCmd.Flags().AddFlagSet(runCmd.Flags())
}
