package domain

import "context"

// NopLedger discards every record. Used when the ledger is disabled.
type NopLedger struct{}

// Record does nothing.
func (NopLedger) Record(context.Context, LedgerEntry) error { return nil }

// Pending returns no entries.
func (NopLedger) Pending(context.Context, int) ([]LedgerEntry, error) { return nil, nil }

// Stats returns no stats.
func (NopLedger) Stats(context.Context) ([]LedgerStats, error) { return nil, nil }

// DeleteNamespace removes nothing.
func (NopLedger) DeleteNamespace(context.Context, Namespace) (int, error) { return 0, nil }
