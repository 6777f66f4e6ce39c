package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/imrishuroy/go-order-saga/internal/app"
)

// NewDeadLetterCommand creates the dead-letter command.
func NewDeadLetterCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dead-letter <file>...",
		Short: "Capture payloads in the failed-order table",
		Long: `Store each payload as a dead letter, exactly as the DLQ consumer would.
Payloads do not need to be valid orders or even valid JSON.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, st, closeFn, err := opts.session(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			bodies := make([][]byte, 0, len(args))
			for _, f := range args {
				b, err := readInput(f, cmd.InOrStdin())
				if err != nil {
					return err
				}
				bodies = append(bodies, b)
			}

			stored, err := app.NewDeadLetterHandler(cfg, st).HandleDeadLetter(cmd.Context(), bodies)
			if opts.Format == "json" {
				if werr := writeJSON(cmd.OutOrStdout(), stored); werr != nil {
					return werr
				}
			} else {
				for _, s := range stored {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", s.OrderID, s.Status)
				}
			}
			return err
		},
	}
}
