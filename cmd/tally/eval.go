package main

import (
	"bufio"

	"github.com/aretw0/tally/internal/cli"
	"github.com/aretw0/tally/pkg/runner"
	"github.com/spf13/cobra"
)

var evalCmd = &cobra.Command{
	Use:   "eval [expression...]",
	Short: "Evaluate expressions and print the results",
	Long: `Evaluates each argument on its own, or each line of stdin when no
argument is given. Exits non-zero if any expression fails.`,
	Example: `  tally eval "12+3" "(2+3)*4"
  echo "5/0" | tally eval --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOut, _ := cmd.Flags().GetBool("json")
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		runner.DefaultMaxInputSize = cfg.Input.MaxSize

		exprs := args
		if len(exprs) == 0 {
			scanner := bufio.NewScanner(cmd.InOrStdin())
			for scanner.Scan() {
				if line := scanner.Text(); line != "" {
					exprs = append(exprs, line)
				}
			}
			if err := scanner.Err(); err != nil {
				return err
			}
		}
		return cli.Eval(cmd.OutOrStdout(), exprs, jsonOut)
	},
}

func init() {
	rootCmd.AddCommand(evalCmd)
	evalCmd.Flags().Bool("json", false, "Print one JSON object per expression")
}
