package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/davidbz/kiln/internal/domain"
)

func newInvalidateCmd() *cobra.Command {
	names := make([]string, 0, len(domain.Namespaces()))
	for _, ns := range domain.Namespaces() {
		names = append(names, string(ns))
	}

	return &cobra.Command{
		Use:       "invalidate <namespace>",
		Short:     "Remove every cached artifact of a namespace from all tiers",
		Long:      "Remove every cached artifact of a namespace from all tiers.\nNamespaces: " + strings.Join(names, ", "),
		Args:      cobra.ExactArgs(1),
		ValidArgs: names,
		RunE: func(cmd *cobra.Command, args []string) error {
			ns, err := domain.ParseNamespace(args[0])
			if err != nil {
				return err
			}

			container := buildContainer()
			return container.Invoke(func(service *domain.GenerationService, hooks *shutdownHooks) error {
				defer func() { _ = hooks.run() }()

				report, err := service.InvalidateNamespace(context.Background(), ns)
				if report != nil {
					printInvalidation(report)
				}
				if err != nil {
					_, _ = errorColor.Println("invalidation incomplete")
					return err
				}
				return nil
			})
		},
	}
}

func printInvalidation(report *domain.InvalidationReport) {
	_, _ = titleColor.Printf("Invalidated %s\n", report.Namespace)
	fmt.Printf("  ephemeral entries: %s\n", humanize.Comma(int64(report.EphemeralRemoved)))
	fmt.Printf("  durable objects:   %s\n", humanize.Comma(int64(report.DurableRemoved)))
	fmt.Printf("  ledger entries:    %s\n", humanize.Comma(int64(report.LedgerRemoved)))

	if report.EphemeralRemoved+report.DurableRemoved+report.LedgerRemoved == 0 {
		_, _ = dimColor.Println("  nothing was cached")
		return
	}
	_, _ = successColor.Println("  done")
}
