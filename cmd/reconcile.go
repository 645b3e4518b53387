package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/davidbz/kiln/internal/domain"
)

func newReconcileCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Retry durable writes recorded as failed in the entry ledger",
		RunE: func(_ *cobra.Command, _ []string) error {
			container := buildContainer()
			return container.Invoke(func(orchestrator *domain.CacheOrchestrator, hooks *shutdownHooks) error {
				defer func() { _ = hooks.run() }()

				report, err := orchestrator.Reconcile(context.Background(), limit)
				if err != nil {
					return err
				}

				_, _ = titleColor.Printf("Checked %d pending entries\n", report.Checked)
				_, _ = successColor.Printf("  repaired:      %d\n", report.Repaired)
				if report.Unrecoverable > 0 {
					_, _ = errorColor.Printf("  unrecoverable: %d\n", report.Unrecoverable)
				} else {
					_, _ = dimColor.Printf("  unrecoverable: %d\n", report.Unrecoverable)
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 100, "maximum entries to check")
	return cmd
}
