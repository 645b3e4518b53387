package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/davidbz/kiln/internal/observability"
)

// flightStripes is the number of independent singleflight groups.
// Keys are spread by their leading byte so unrelated keys rarely share a group lock.
const flightStripes = 64

// repairFlightPrefix separates durable repairs from generations in a flight group.
const repairFlightPrefix = "repair:"

// GenerateFunc computes the artifact bytes for a key on a full cache miss.
type GenerateFunc func(ctx context.Context, key CacheKey) ([]byte, error)

// NamespacePolicy configures versioning and ephemeral expiry of a namespace.
type NamespacePolicy struct {
	Version string
	TTL     time.Duration
}

// OrchestratorConfig holds per-namespace policies and per-tier timeouts.
type OrchestratorConfig struct {
	Policies          map[Namespace]NamespacePolicy
	EphemeralTimeout  time.Duration
	DurableTimeout    time.Duration
	GenerationTimeout time.Duration
}

// CacheOrchestrator serves artifacts cache-aside over an ephemeral and a durable tier.
type CacheOrchestrator struct {
	ephemeral EphemeralCache
	durable   DurableStore
	ledger    EntryLedger
	cfg       OrchestratorConfig
	flights   [flightStripes]singleflight.Group
	now       func() time.Time
}

// NewCacheOrchestrator creates a new orchestrator (DI constructor).
func NewCacheOrchestrator(
	ephemeral EphemeralCache,
	durable DurableStore,
	ledger EntryLedger,
	cfg OrchestratorConfig,
) *CacheOrchestrator {
	if ledger == nil {
		ledger = NopLedger{}
	}
	return &CacheOrchestrator{
		ephemeral: ephemeral,
		durable:   durable,
		ledger:    ledger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Version returns the generator version tag of ns.
func (o *CacheOrchestrator) Version(ns Namespace) string {
	return o.policy(ns).Version
}

// Metrics returns the counters owned by the ephemeral tier.
func (o *CacheOrchestrator) Metrics() *CacheMetrics {
	return o.ephemeral.Metrics()
}

// EphemeralBackend names the active ephemeral implementation.
func (o *CacheOrchestrator) EphemeralBackend() string {
	return o.ephemeral.Name()
}

// GetOrGenerate returns the cached artifact for req, generating it at most once
// per key across concurrent callers. A caller whose ctx ends stops waiting but
// does not cancel the generation other callers may still need.
func (o *CacheOrchestrator) GetOrGenerate(
	ctx context.Context,
	req GenerationRequest,
	generate GenerateFunc,
) (*Artifact, error) {
	if req == nil {
		return nil, errors.New("request cannot be nil")
	}
	if generate == nil {
		return nil, errors.New("generate function cannot be nil")
	}

	ns := req.Namespace()
	policy := o.policy(ns)
	key := DeriveKey(ns, policy.Version, req)
	path := DurablePath(ns, req.Partition(policy.Version), key)

	ctx = observability.WithNamespace(ctx, string(ns))
	ctx = observability.WithCacheKey(ctx, string(key))
	logger := observability.FromContext(ctx)

	if artifact, ok := o.fromEphemeral(ctx, ns, policy, key); ok {
		o.Metrics().RecordHit(ns)
		logger.Debug("ephemeral cache hit")
		return artifact, nil
	}

	detached := context.WithoutCancel(ctx)
	results := o.group(key).DoChan(string(key), func() (interface{}, error) {
		return o.resolve(detached, ns, policy, key, path, generate)
	})

	select {
	case <-ctx.Done():
		logger.Info("caller stopped waiting for in-flight generation",
			observability.Error(ctx.Err()))
		return nil, ctx.Err()
	case res := <-results:
		if res.Err != nil {
			return nil, res.Err
		}
		artifact, ok := res.Val.(*Artifact)
		if !ok {
			return nil, errors.New("unexpected in-flight result type")
		}
		if res.Shared {
			logger.Debug("joined in-flight generation")
		}
		out := *artifact
		return &out, nil
	}
}

// Lookup returns an existing artifact without generating it, or ErrCacheMiss.
func (o *CacheOrchestrator) Lookup(ctx context.Context, ns Namespace, partition string, key CacheKey) (*Artifact, error) {
	policy := o.policy(ns)
	ctx = observability.WithNamespace(ctx, string(ns))
	ctx = observability.WithCacheKey(ctx, string(key))

	if artifact, ok := o.fromEphemeral(ctx, ns, policy, key); ok {
		return artifact, nil
	}

	artifact, ok := o.fromDurable(ctx, ns, policy, key, DurablePath(ns, partition, key))
	if !ok {
		return nil, ErrCacheMiss
	}
	o.writeEphemeral(ctx, ns, policy, artifact)
	return artifact, nil
}

// Invalidate removes every entry of ns from all tiers.
func (o *CacheOrchestrator) Invalidate(ctx context.Context, ns Namespace) (*InvalidationReport, error) {
	logger := observability.FromContext(observability.WithNamespace(ctx, string(ns)))

	report := &InvalidationReport{Namespace: ns}
	report.EphemeralRemoved = o.ephemeral.ClearNamespace(ctx, NamespacePrefix(ns))

	removed, err := o.durable.DeletePrefix(ctx, string(ns)+"/")
	if err != nil {
		return report, fmt.Errorf("failed to delete durable objects: %w", err)
	}
	report.DurableRemoved = removed

	ledgerRemoved, err := o.ledger.DeleteNamespace(ctx, ns)
	if err != nil {
		return report, fmt.Errorf("failed to delete ledger entries: %w", err)
	}
	report.LedgerRemoved = ledgerRemoved

	logger.Info("namespace invalidated",
		observability.Int("ephemeral_removed", report.EphemeralRemoved),
		observability.Int("durable_removed", report.DurableRemoved),
		observability.Int("ledger_removed", report.LedgerRemoved))
	return report, nil
}

// resolve runs inside the singleflight section of key.
func (o *CacheOrchestrator) resolve(
	ctx context.Context,
	ns Namespace,
	policy NamespacePolicy,
	key CacheKey,
	path string,
	generate GenerateFunc,
) (*Artifact, error) {
	logger := observability.FromContext(ctx)

	if artifact, ok := o.fromDurable(ctx, ns, policy, key, path); ok {
		o.Metrics().RecordHit(ns)
		o.writeEphemeral(ctx, ns, policy, artifact)
		logger.Debug("durable cache hit")
		return artifact, nil
	}

	o.Metrics().RecordMiss(ns)
	logger.Info("cache MISS - generating artifact")

	genCtx, cancel := withTimeout(ctx, o.cfg.GenerationTimeout)
	start := o.now()
	data, err := generate(genCtx, key)
	cancel()
	if err == nil && len(data) == 0 {
		err = errors.New("generation returned no data")
	}
	if err != nil {
		o.Metrics().RecordError(ns)
		logger.Warn("generation failed", observability.Error(err))
		return nil, asBackendError(string(ns), err)
	}

	artifact := &Artifact{
		Key:         key,
		Namespace:   ns,
		Path:        path,
		ContentType: ns.ContentType(),
		Version:     policy.Version,
		Data:        data,
		CreatedAt:   o.now().UTC(),
	}
	logger.Info("artifact generated",
		observability.Int("size", len(data)),
		observability.Duration("took", o.now().Sub(start)))

	o.persist(ctx, artifact)
	o.writeEphemeral(ctx, ns, policy, artifact)
	return artifact, nil
}

// fromEphemeral reads the ephemeral entry of key. An entry whose durable write
// failed earlier is returned at once and repaired in the background.
func (o *CacheOrchestrator) fromEphemeral(
	ctx context.Context,
	ns Namespace,
	policy NamespacePolicy,
	key CacheKey,
) (*Artifact, bool) {
	artifact, ok := o.readEphemeral(ctx, ns, key)
	if !ok {
		return nil, false
	}
	if !artifact.Durable() && artifact.Path != "" {
		o.repairInBackground(ctx, ns, policy, artifact)
	}
	return artifact, true
}

// readEphemeral reads and decodes the ephemeral entry of key.
func (o *CacheOrchestrator) readEphemeral(ctx context.Context, ns Namespace, key CacheKey) (*Artifact, bool) {
	getCtx, cancel := withTimeout(ctx, o.cfg.EphemeralTimeout)
	raw, ok := o.ephemeral.Get(getCtx, EphemeralKey(ns, key))
	cancel()
	if !ok {
		return nil, false
	}

	var entry CacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil || len(entry.Data) == 0 {
		observability.FromContext(ctx).Warn("discarding undecodable ephemeral entry",
			observability.Error(err))
		o.Metrics().RecordError(ns)
		delCtx, delCancel := withTimeout(ctx, o.cfg.EphemeralTimeout)
		o.ephemeral.Delete(delCtx, EphemeralKey(ns, key))
		delCancel()
		return nil, false
	}

	return &Artifact{
		Key:         key,
		Namespace:   ns,
		Path:        entry.Path,
		Location:    entry.Location,
		ContentType: entry.ContentType,
		Version:     entry.Version,
		Data:        entry.Data,
		CreatedAt:   entry.CreatedAt,
		Cached:      true,
	}, true
}

// repairInBackground retries the durable write of artifact off the caller's path.
// Overlapping repairs of one key share a single write.
func (o *CacheOrchestrator) repairInBackground(
	ctx context.Context,
	ns Namespace,
	policy NamespacePolicy,
	artifact *Artifact,
) {
	pending := *artifact
	detached := context.WithoutCancel(ctx)

	go func() {
		_, _, _ = o.group(pending.Key).Do(repairFlightPrefix+string(pending.Key), func() (interface{}, error) {
			o.repairDurable(detached, ns, policy, &pending)
			return nil, nil
		})
	}()
}

// repairDurable writes artifact to the durable tier and refreshes its ephemeral
// entry with the new location. It reports whether the write succeeded.
func (o *CacheOrchestrator) repairDurable(
	ctx context.Context,
	ns Namespace,
	policy NamespacePolicy,
	artifact *Artifact,
) bool {
	o.persist(ctx, artifact)
	if !artifact.Durable() {
		return false
	}
	o.writeEphemeral(ctx, ns, policy, artifact)
	return true
}

// fromDurable reads key from the durable tier. Store failures count as a miss.
func (o *CacheOrchestrator) fromDurable(
	ctx context.Context,
	ns Namespace,
	policy NamespacePolicy,
	key CacheKey,
	path string,
) (*Artifact, bool) {
	logger := observability.FromContext(ctx)

	readCtx, cancel := withTimeout(ctx, o.cfg.DurableTimeout)
	defer cancel()

	exists, err := o.durable.Exists(readCtx, path)
	if err != nil {
		o.Metrics().RecordError(ns)
		logger.Warn("durable existence check failed, treating as miss",
			observability.Error(&StoreError{Op: "exists", Path: path, Err: err}))
		return nil, false
	}
	if !exists {
		return nil, false
	}

	data, err := o.durable.Read(readCtx, path)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			o.Metrics().RecordError(ns)
			logger.Warn("durable read failed, treating as miss",
				observability.Error(&StoreError{Op: "read", Path: path, Err: err}))
		}
		return nil, false
	}

	return &Artifact{
		Key:         key,
		Namespace:   ns,
		Path:        path,
		Location:    o.durable.Location(path),
		ContentType: ns.ContentType(),
		Version:     policy.Version,
		Data:        data,
		CreatedAt:   o.now().UTC(),
		Cached:      true,
	}, true
}

// persist writes the artifact to the durable tier and records the outcome in the ledger.
// A failed write leaves the artifact without a location.
func (o *CacheOrchestrator) persist(ctx context.Context, artifact *Artifact) {
	logger := observability.FromContext(ctx)

	writeCtx, cancel := withTimeout(ctx, o.cfg.DurableTimeout)
	location, err := o.durable.WriteOnce(writeCtx, artifact.Path, artifact.Data, artifact.ContentType)
	cancel()

	entry := LedgerEntry{
		Namespace:   artifact.Namespace,
		Key:         artifact.Key,
		Path:        artifact.Path,
		ContentType: artifact.ContentType,
		Version:     artifact.Version,
		Size:        len(artifact.Data),
		CreatedAt:   artifact.CreatedAt,
		Durable:     err == nil,
	}

	if err != nil {
		o.Metrics().RecordError(artifact.Namespace)
		entry.LastError = err.Error()
		logger.Error("durable write failed, artifact served without durable copy",
			observability.Error(&StoreError{Op: "write", Path: artifact.Path, Err: err}))
	} else {
		artifact.Location = location
	}

	if ledgerErr := o.ledger.Record(ctx, entry); ledgerErr != nil {
		logger.Warn("failed to record ledger entry", observability.Error(ledgerErr))
	}
}

// writeEphemeral stores the artifact in the ephemeral tier, best effort.
func (o *CacheOrchestrator) writeEphemeral(ctx context.Context, ns Namespace, policy NamespacePolicy, artifact *Artifact) {
	raw, err := json.Marshal(CacheEntry{
		Data:        artifact.Data,
		ContentType: artifact.ContentType,
		Version:     artifact.Version,
		Path:        artifact.Path,
		Location:    artifact.Location,
		CreatedAt:   artifact.CreatedAt,
	})
	if err != nil {
		observability.FromContext(ctx).Warn("failed to encode ephemeral entry", observability.Error(err))
		return
	}

	setCtx, cancel := withTimeout(ctx, o.cfg.EphemeralTimeout)
	o.ephemeral.Set(setCtx, EphemeralKey(ns, artifact.Key), raw, policy.TTL)
	cancel()
}

func (o *CacheOrchestrator) policy(ns Namespace) NamespacePolicy {
	if p, ok := o.cfg.Policies[ns]; ok {
		return p
	}
	return NamespacePolicy{Version: "v1", TTL: 0}
}

func (o *CacheOrchestrator) group(key CacheKey) *singleflight.Group {
	if len(key) < 2 {
		return &o.flights[0]
	}
	b, err := strconv.ParseUint(string(key[:2]), 16, 8)
	if err != nil {
		return &o.flights[0]
	}
	return &o.flights[b%flightStripes]
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
