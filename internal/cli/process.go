package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/imrishuroy/go-order-saga/internal/app"
	"github.com/imrishuroy/go-order-saga/internal/saga"
)

// ProcessResult is the json output of process for one file.
type ProcessResult struct {
	File    string             `json:"file"`
	OrderID string             `json:"order_id"`
	Outcome saga.OutcomeStatus `json:"outcome"`
	Reason  string             `json:"reason,omitempty"`
}

// NewProcessCommand creates the process command.
func NewProcessCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "process <file>...",
		Short: "Run order payloads through the saga",
		Long: `Run each order payload (a bare order or an intake envelope) through
validate, store and fulfill. Use - to read a payload from stdin.

Example:
  orderctl process --store sqlite --dsn orders.db order.json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcess(cmd, opts, args)
		},
	}
}

func runProcess(cmd *cobra.Command, opts *RootOptions, files []string) error {
	cfg, st, closeFn, err := opts.session(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	driver := app.NewDriver(app.Deps{Config: cfg, Store: st})
	results := make([]ProcessResult, 0, len(files))
	for _, f := range files {
		body, err := readInput(f, cmd.InOrStdin())
		if err != nil {
			return err
		}
		out, err := driver.Run(cmd.Context(), body)
		if err != nil {
			return fmt.Errorf("process %s: %w", f, err)
		}
		results = append(results, ProcessResult{File: f, OrderID: out.OrderID, Outcome: out.Status, Reason: out.Reason})
	}

	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), results)
	}
	for _, r := range results {
		line := fmt.Sprintf("%s\t%s\t%s", r.File, r.OrderID, r.Outcome)
		if r.Reason != "" {
			line += "\t" + r.Reason
		}
		fmt.Fprintln(cmd.OutOrStdout(), line)
	}
	return nil
}
