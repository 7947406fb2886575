package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pubcat-labs/pubcat-go/internal/ldes"
	"github.com/pubcat-labs/pubcat-go/internal/repo"
)

// FeedKind distinguishes the registry's concept feed from a municipality's
// instance authoring feed.
type FeedKind string

const (
	FeedConcept  FeedKind = "concept"
	FeedInstance FeedKind = "instance"
)

// Archiver persists raw change-set pages as immutable audit history.
type Archiver interface {
	Put(ctx context.Context, key string, payload []byte) error
}

// AuditAppender records processing outcomes in the audit trail.
type AuditAppender interface {
	Append(ctx context.Context, action, resourceType, resourceID string, payload map[string]any) error
}

// Driver orchestrates one change set end to end: archive the raw page, run
// the ordering filter, merge each accepted entry in isolation, audit every
// outcome and return the batch report. Failures never abort the batch or the
// queue consumer.
type Driver struct {
	logger         *slog.Logger
	conceptFilter  *DeltaOrderingFilter
	instanceFilter *DeltaOrderingFilter
	conceptMerge   *ConceptMergeService
	instanceMerge  *InstanceMergeService
	archive        Archiver
	audit          AuditAppender
	now            func() time.Time
}

type DriverConfig struct {
	ConceptSnapshots  repo.ConceptSnapshotRepository
	InstanceSnapshots repo.InstanceSnapshotRepository
	Concepts          repo.ConceptRepository
	ConceptMerge      *ConceptMergeService
	InstanceMerge     *InstanceMergeService
	Archive           Archiver      // optional
	Audit             AuditAppender // optional
}

func NewDriver(logger *slog.Logger, cfg DriverConfig) (*Driver, error) {
	if cfg.ConceptSnapshots == nil || cfg.InstanceSnapshots == nil || cfg.Concepts == nil {
		return nil, fmt.Errorf("snapshot and concept repositories are required")
	}
	if cfg.ConceptMerge == nil || cfg.InstanceMerge == nil {
		return nil, fmt.Errorf("merge services are required")
	}

	conceptFilter, err := NewDeltaOrderingFilter(logger, OrderingPorts{
		GeneratedAtTime: func(ctx context.Context, snapshotID string) (time.Time, error) {
			snapshot, err := cfg.ConceptSnapshots.FindByID(ctx, snapshotID)
			if err != nil {
				return time.Time{}, err
			}
			return snapshot.GeneratedAtTime, nil
		},
		MaxGeneratedAtTimeFor: cfg.ConceptSnapshots.MaxGeneratedAtTimeFor,
		RecordsSnapshot: func(ctx context.Context, targetID, snapshotID string) (bool, error) {
			concept, err := cfg.Concepts.FindByID(ctx, targetID)
			if err != nil {
				if errors.Is(err, repo.ErrNotFound) {
					return false, nil
				}
				return false, err
			}
			return concept.RecordsSnapshot(snapshotID), nil
		},
	})
	if err != nil {
		return nil, err
	}

	// The instance feed's per-target ordering is enforced inside the merge
	// (newer-processed-snapshot guard); the filter contributes subject
	// dedup and the exactly-once replay guard.
	instanceFilter, err := NewDeltaOrderingFilter(logger, OrderingPorts{
		GeneratedAtTime: func(ctx context.Context, snapshotID string) (time.Time, error) {
			snapshot, err := cfg.InstanceSnapshots.FindByID(ctx, snapshotID)
			if err != nil {
				return time.Time{}, err
			}
			return snapshot.GeneratedAtTime, nil
		},
		MaxGeneratedAtTimeFor: func(ctx context.Context, targetID string) (time.Time, error) {
			return time.Time{}, nil
		},
		RecordsSnapshot: func(ctx context.Context, targetID, snapshotID string) (bool, error) {
			return cfg.InstanceSnapshots.IsProcessed(ctx, snapshotID)
		},
	})
	if err != nil {
		return nil, err
	}

	return &Driver{
		logger:         logger,
		conceptFilter:  conceptFilter,
		instanceFilter: instanceFilter,
		conceptMerge:   cfg.ConceptMerge,
		instanceMerge:  cfg.InstanceMerge,
		archive:        cfg.Archive,
		audit:          cfg.Audit,
		now:            time.Now,
	}, nil
}

// ProcessChangeSet handles one change set from the given feed. Each delta is
// fully merged, side effects included, before the next is considered.
func (d *Driver) ProcessChangeSet(ctx context.Context, feed FeedKind, quads []ldes.Quad, raw []byte) BatchReport {
	if d == nil {
		return BatchReport{}
	}
	d.archiveRaw(ctx, feed, raw)

	filter := d.conceptFilter
	if feed == FeedInstance {
		filter = d.instanceFilter
	}
	accepted, rejected := filter.Filter(ctx, quads)

	report := BatchReport{Entries: rejected}
	for _, entry := range rejected {
		d.auditOutcome(ctx, feed, entry)
	}

	for _, entry := range accepted {
		result := d.mergeOne(ctx, feed, entry)
		report.Entries = append(report.Entries, result)
		d.auditOutcome(ctx, feed, result)
	}

	d.log(slog.LevelInfo, "change set processed",
		"feed", string(feed),
		"applied", report.Applied(),
		"skipped", report.Skipped(),
		"failed", report.Failed(),
	)
	return report
}

func (d *Driver) mergeOne(ctx context.Context, feed FeedKind, entry DeltaEntry) EntryResult {
	var outcome MergeOutcome
	var err error
	if feed == FeedInstance {
		outcome, err = d.instanceMerge.Merge(ctx, entry)
	} else {
		outcome, err = d.conceptMerge.Merge(ctx, entry)
	}

	result := EntryResult{Subject: entry.SnapshotID, Target: entry.TargetID}
	switch {
	case err != nil:
		result.Outcome = OutcomeFailed
		result.Err = err
		d.log(slog.LevelError, "merge failed", "feed", string(feed), "snapshot", entry.SnapshotID, "target", entry.TargetID, "error", err)
	case outcome.Skipped:
		result.Outcome = OutcomeSkipped
		result.Reason = outcome.Reason
	default:
		result.Outcome = OutcomeApplied
		result.Reason = outcome.Action
	}
	return result
}

func (d *Driver) archiveRaw(ctx context.Context, feed FeedKind, raw []byte) {
	if d.archive == nil || len(raw) == 0 {
		return
	}
	key := fmt.Sprintf("changesets/%s/%s.json", feed, d.now().UTC().Format("20060102T150405.000000000Z"))
	if err := d.archive.Put(ctx, key, raw); err != nil {
		d.log(slog.LevelWarn, "change set archive failed", "feed", string(feed), "key", key, "error", err)
	}
}

func (d *Driver) auditOutcome(ctx context.Context, feed FeedKind, result EntryResult) {
	if d.audit == nil {
		return
	}
	action := "delta.skip"
	if result.Outcome == OutcomeApplied {
		action = result.Reason
	} else if result.Outcome == OutcomeFailed {
		action = "delta.fail"
	}
	payload := map[string]any{
		"feed":     string(feed),
		"snapshot": result.Subject,
		"outcome":  string(result.Outcome),
	}
	if result.Reason != "" {
		payload["reason"] = result.Reason
	}
	if result.Err != nil {
		payload["error"] = result.Err.Error()
	}
	resourceType := "concept"
	if feed == FeedInstance {
		resourceType = "instance"
	}
	if err := d.audit.Append(ctx, action, resourceType, result.Target, payload); err != nil {
		d.log(slog.LevelWarn, "audit append failed", "action", action, "resource", result.Target, "error", err)
	}
}

func (d *Driver) log(level slog.Level, msg string, attrs ...any) {
	if d.logger == nil {
		return
	}
	fields := []any{"component", "sync_driver"}
	fields = append(fields, attrs...)
	d.logger.Log(context.Background(), level, msg, fields...)
}
