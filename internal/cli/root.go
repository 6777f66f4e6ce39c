// Package cli implements orderctl, an operator tool that drives the order saga
// in-process against any configured store.
package cli

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/imrishuroy/go-order-saga/internal/config"
	"github.com/imrishuroy/go-order-saga/internal/store"
)

// Opener opens the store a command works against.
type Opener func(ctx context.Context, cfg config.Config) (store.Store, func() error, error)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Store       string
	DSN         string
	SuccessRate float64
	Format      string // "json" | "text"

	open Opener
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for orderctl.
func NewRootCommand() *cobra.Command {
	return newRootCommand(func(ctx context.Context, cfg config.Config) (store.Store, func() error, error) {
		return config.OpenStore(ctx, cfg, nil)
	})
}

func newRootCommand(open Opener) *cobra.Command {
	opts := &RootOptions{open: open}

	cmd := &cobra.Command{
		Use:   "orderctl",
		Short: "Operate the order-fulfillment saga",
		Long:  "Run orders through validate, store and fulfill, inspect stored orders and capture dead letters.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if cmd.Flags().Changed("success-rate") && (opts.SuccessRate < 0 || opts.SuccessRate > 1) {
				return fmt.Errorf("success rate %v out of range [0,1]", opts.SuccessRate)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&opts.Store, "store", "", "store backend (memory|sqlite|postgres|dynamodb), overrides $STORE_BACKEND")
	cmd.PersistentFlags().StringVar(&opts.DSN, "dsn", "", "sql store DSN, overrides $STORE_DSN")
	cmd.PersistentFlags().Float64Var(&opts.SuccessRate, "success-rate", 0, "fulfillment success probability in [0,1], overrides $SUCCESS_RATE")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	// Add subcommands
	cmd.AddCommand(NewProcessCommand(opts))
	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewDeadLetterCommand(opts))

	return cmd
}

// session resolves configuration and opens the store for one command run.
func (o *RootOptions) session(cmd *cobra.Command) (config.Config, store.Store, func() error, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, nil, err
	}
	if o.Store != "" {
		cfg.StoreBackend = o.Store
	}
	if o.DSN != "" {
		cfg.StoreDSN = o.DSN
	}
	if cmd.Flags().Changed("success-rate") {
		cfg.SuccessProbability = o.SuccessRate
	}

	st, closeFn, err := o.open(cmd.Context(), cfg)
	if err != nil {
		return config.Config{}, nil, nil, fmt.Errorf("open %s store: %w", cfg.StoreBackend, err)
	}
	return cfg, st, closeFn, nil
}
