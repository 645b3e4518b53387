package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/davidbz/kiln/internal/observability"
)

const defaultReconcileBatch = 100

// ReconcileReport summarizes one reconciliation pass.
type ReconcileReport struct {
	Checked       int `json:"checked"`
	Repaired      int `json:"repaired"`
	Unrecoverable int `json:"unrecoverable"`
}

// Reconcile retries the durable write of ledger entries whose write failed.
// The bytes come from the ephemeral tier; entries whose ephemeral copy has
// expired stay pending and are reported unrecoverable.
func (o *CacheOrchestrator) Reconcile(ctx context.Context, limit int) (*ReconcileReport, error) {
	if limit <= 0 {
		limit = defaultReconcileBatch
	}

	pending, err := o.ledger.Pending(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending entries: %w", err)
	}

	report := &ReconcileReport{}
	for _, entry := range pending {
		report.Checked++
		if o.repair(ctx, entry) {
			report.Repaired++
		} else {
			report.Unrecoverable++
		}
	}

	if report.Checked > 0 {
		observability.FromContext(ctx).Info("reconciliation pass finished",
			observability.Int("checked", report.Checked),
			observability.Int("repaired", report.Repaired),
			observability.Int("unrecoverable", report.Unrecoverable))
	}
	return report, nil
}

// RunReconcileLoop reconciles every interval until ctx is done.
func (o *CacheOrchestrator) RunReconcileLoop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := o.Reconcile(ctx, defaultReconcileBatch); err != nil {
				observability.FromContext(ctx).Warn("reconciliation pass failed", observability.Error(err))
			}
		}
	}
}

func (o *CacheOrchestrator) repair(ctx context.Context, entry LedgerEntry) bool {
	ns := entry.Namespace
	ctx = observability.WithNamespace(ctx, string(ns))
	ctx = observability.WithCacheKey(ctx, string(entry.Key))

	if artifact, ok := o.readEphemeral(ctx, ns, entry.Key); ok {
		if !artifact.Durable() {
			return o.repairDurable(ctx, ns, o.policy(ns), artifact)
		}
	} else {
		// Another writer may have stored the object since.
		existsCtx, cancel := withTimeout(ctx, o.cfg.DurableTimeout)
		exists, err := o.durable.Exists(existsCtx, entry.Path)
		cancel()
		if err != nil || !exists {
			return false
		}
	}

	entry.Durable = true
	entry.LastError = ""
	if err := o.ledger.Record(ctx, entry); err != nil {
		observability.FromContext(ctx).Warn("failed to record ledger entry", observability.Error(err))
	}
	return true
}
