package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/alexboumb/SuperSimpleStocks2/internal/selfcheck"
)

// selfcheckCmd represents the selfcheck command
var selfcheckCmd = &cobra.Command{
	Use:   "selfcheck",
	Short: "Run the built-in valuation checks",
	Long: `Runs every valuation operation and every failure condition against
known inputs on a fresh engine and prints the result.

Exits non-zero when any check fails.

Example:
  go run ./cmd/stocks selfcheck
  go run ./cmd/stocks selfcheck --all`,
	RunE: runSelfCheck,
}

var showAllChecks bool

func init() {
	rootCmd.AddCommand(selfcheckCmd)

	selfcheckCmd.Flags().BoolVar(&showAllChecks, "all", false, "print passed checks too")
}

func runSelfCheck(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}

	report := selfcheck.Run(a.log)
	out := cmd.OutOrStdout()

	if showAllChecks {
		for _, c := range report.Checks {
			printCheck(out, c)
		}
	}
	printReport(out, report)

	if !report.Passed() {
		return fmt.Errorf("%d of %d checks failed", len(report.Failed()), len(report.Checks))
	}
	return nil
}

// printReport prints failed checks and a summary line
func printReport(w io.Writer, report *selfcheck.Report) {
	failed := report.Failed()
	for _, c := range failed {
		printCheck(w, c)
	}

	summary := fmt.Sprintf("%d checks, %d failed in %s", len(report.Checks), len(failed), report.Duration)
	if len(failed) == 0 {
		PrintSuccess(w, "All checks passed: "+summary)
		return
	}
	PrintError(w, summary)
}

func printCheck(w io.Writer, c selfcheck.Check) {
	status := "PASS"
	if !c.Passed {
		status = "FAIL"
	}
	fmt.Fprintf(w, "[%s] %s", status, c.Name)
	if c.Detail != "" {
		fmt.Fprintf(w, " (%s)", c.Detail)
	}
	fmt.Fprintln(w)
}
