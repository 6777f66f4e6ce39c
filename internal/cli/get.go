package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/imrishuroy/go-order-saga/internal/orders"
)

// NewGetCommand creates the get command.
func NewGetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "get <order_id>",
		Short:         "Show a stored order",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, st, closeFn, err := opts.session(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			o, err := orders.NewGateway(st, cfg.OrdersTable).Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if opts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), o)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "order_id:       %s\n", o.OrderID)
			fmt.Fprintf(cmd.OutOrStdout(), "customer_id:    %s\n", o.CustomerID)
			fmt.Fprintf(cmd.OutOrStdout(), "status:         %s\n", o.Status)
			fmt.Fprintf(cmd.OutOrStdout(), "total_quantity: %d\n", o.TotalQuantity)
			fmt.Fprintf(cmd.OutOrStdout(), "retry_count:    %d\n", o.RetryCount)
			return nil
		},
	}
}
