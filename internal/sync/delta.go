package sync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pubcat-labs/pubcat-go/internal/ldes"
)

// DeltaEntry is one accepted (snapshot, target) pair ready to merge.
type DeltaEntry struct {
	SnapshotID string
	TargetID   string
}

// OrderingPorts are the lookups the filter needs. The feed is at-least-once
// and may reorder; generatedAtTime is the authoritative total order per
// target and the recorded-source check guards against redelivery.
type OrderingPorts struct {
	// GeneratedAtTime resolves a snapshot's timestamp.
	GeneratedAtTime func(ctx context.Context, snapshotID string) (time.Time, error)
	// MaxGeneratedAtTimeFor returns the newest timestamp among known
	// snapshots of the target, zero when none are known.
	MaxGeneratedAtTimeFor func(ctx context.Context, targetID string) (time.Time, error)
	// RecordsSnapshot reports whether the target already carries the
	// snapshot as its current or previous versioned source.
	RecordsSnapshot func(ctx context.Context, targetID, snapshotID string) (bool, error)
}

// DeltaOrderingFilter consumes raw change-set quads and decides per entry
// whether it represents a genuinely newer version than what is recorded.
type DeltaOrderingFilter struct {
	logger *slog.Logger
	ports  OrderingPorts
}

func NewDeltaOrderingFilter(logger *slog.Logger, ports OrderingPorts) (*DeltaOrderingFilter, error) {
	if ports.GeneratedAtTime == nil || ports.MaxGeneratedAtTimeFor == nil || ports.RecordsSnapshot == nil {
		return nil, fmt.Errorf("all ordering ports are required")
	}
	return &DeltaOrderingFilter{logger: logger, ports: ports}, nil
}

// Filter returns the accepted entries in change-set order plus a result per
// rejected entry. Only isVersionOf quads are considered; duplicates within
// the batch collapse to one occurrence (snapshots are immutable, so
// last-write-wins within the batch is equivalent to any other choice).
func (f *DeltaOrderingFilter) Filter(ctx context.Context, quads []ldes.Quad) ([]DeltaEntry, []EntryResult) {
	if f == nil {
		return nil, nil
	}

	var order []string
	targets := make(map[string]string)
	for _, quad := range quads {
		if quad.Predicate != ldes.PredicateIsVersionOf {
			continue
		}
		if quad.Subject == "" || quad.Object.Value == "" {
			continue
		}
		if _, seen := targets[quad.Subject]; !seen {
			order = append(order, quad.Subject)
		}
		targets[quad.Subject] = quad.Object.Value
	}

	var accepted []DeltaEntry
	var rejected []EntryResult
	for _, snapshotID := range order {
		targetID := targets[snapshotID]
		result := f.check(ctx, snapshotID, targetID)
		if result != nil {
			f.log("delta entry rejected", "snapshot", snapshotID, "target", targetID, "reason", result.Reason, "error", result.Err)
			rejected = append(rejected, *result)
			continue
		}
		accepted = append(accepted, DeltaEntry{SnapshotID: snapshotID, TargetID: targetID})
	}
	return accepted, rejected
}

func (f *DeltaOrderingFilter) check(ctx context.Context, snapshotID, targetID string) *EntryResult {
	generatedAt, err := f.ports.GeneratedAtTime(ctx, snapshotID)
	if err != nil {
		return &EntryResult{Subject: snapshotID, Target: targetID, Outcome: OutcomeSkipped, Reason: "snapshot unresolved", Err: err}
	}

	newest, err := f.ports.MaxGeneratedAtTimeFor(ctx, targetID)
	if err != nil {
		return &EntryResult{Subject: snapshotID, Target: targetID, Outcome: OutcomeSkipped, Reason: "newest timestamp unresolved", Err: err}
	}
	if newest.After(generatedAt) {
		return &EntryResult{Subject: snapshotID, Target: targetID, Outcome: OutcomeSkipped, Reason: "stale snapshot"}
	}

	recorded, err := f.ports.RecordsSnapshot(ctx, targetID, snapshotID)
	if err != nil {
		return &EntryResult{Subject: snapshotID, Target: targetID, Outcome: OutcomeSkipped, Reason: "recorded source unresolved", Err: err}
	}
	if recorded {
		return &EntryResult{Subject: snapshotID, Target: targetID, Outcome: OutcomeSkipped, Reason: "already processed"}
	}
	return nil
}

func (f *DeltaOrderingFilter) log(msg string, attrs ...any) {
	if f.logger == nil {
		return
	}
	fields := []any{"component", "delta_filter"}
	fields = append(fields, attrs...)
	f.logger.Info(msg, fields...)
}
