package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mr1hm/pulsemap/internal/models"
)

func newSweepCmd() *cobra.Command {
	var maxAge time.Duration

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Apply the retention policy once",
		Long: `Apply the per-type retention policy once. With --max-age, remove events of
every type older than that age instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			if maxAge > 0 {
				n, err := a.sweeper.SweepAll(ctx, maxAge)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %d events older than %s\n", n, maxAge)
				return nil
			}

			result, err := a.sweeper.Sweep(ctx)
			if err != nil {
				return err
			}
			for _, t := range models.EventTypes {
				if n, ok := result[t]; ok {
					fmt.Fprintf(cmd.OutOrStdout(), "%-10s %d\n", t, n)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%-10s %d\n", "total", result.Total())
			return nil
		},
	}

	cmd.Flags().DurationVar(&maxAge, "max-age", 0, "Remove events of every type older than this (e.g. 24h)")
	return cmd
}
