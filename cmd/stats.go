package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/davidbz/kiln/internal/domain"
)

func newStatsCmd() *cobra.Command {
	var pending int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cached entries per namespace from the entry ledger",
		RunE: func(_ *cobra.Command, _ []string) error {
			container := buildContainer()
			return container.Invoke(func(entries domain.EntryLedger, hooks *shutdownHooks) error {
				defer func() { _ = hooks.run() }()

				ctx := context.Background()
				stats, err := entries.Stats(ctx)
				if err != nil {
					return err
				}
				if err := printStats(stats); err != nil {
					return err
				}

				if pending <= 0 {
					return nil
				}
				list, err := entries.Pending(ctx, pending)
				if err != nil {
					return err
				}
				return printPending(list)
			})
		},
	}

	cmd.Flags().IntVar(&pending, "pending", 0, "also list up to N entries missing a durable copy")
	return cmd
}

func printStats(stats []domain.LedgerStats) error {
	if len(stats) == 0 {
		fmt.Println("No cached entries.")
		return nil
	}

	_, _ = titleColor.Println("Cache entries")
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAMESPACE\tENTRIES\tSIZE\tPENDING")

	var total domain.LedgerStats
	for _, s := range stats {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			s.Namespace, humanize.Comma(s.Entries), humanize.Bytes(uint64(s.Bytes)), pendingCell(s.Pending))
		total.Entries += s.Entries
		total.Bytes += s.Bytes
		total.Pending += s.Pending
	}
	fmt.Fprintf(w, "total\t%s\t%s\t%s\n",
		humanize.Comma(total.Entries), humanize.Bytes(uint64(total.Bytes)), pendingCell(total.Pending))
	return w.Flush()
}

func printPending(entries []domain.LedgerEntry) error {
	if len(entries) == 0 {
		_, _ = successColor.Println("\nNo entries pending a durable write.")
		return nil
	}

	_, _ = warnColor.Println("\nPending durable writes")
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PATH\tSIZE\tCREATED\tLAST ERROR")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			e.Path, humanize.Bytes(uint64(e.Size)), humanize.Time(e.CreatedAt), e.LastError)
	}
	return w.Flush()
}

func pendingCell(n int64) string {
	if n == 0 {
		return "0"
	}
	return errorColor.Sprint(humanize.Comma(n))
}
