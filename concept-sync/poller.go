package main

import (
	"context"
	"crypto/sha256"
	"errors"
	"log/slog"
	"time"

	"github.com/pubcat-labs/pubcat-go/internal/ldes"
	"github.com/pubcat-labs/pubcat-go/internal/repo"
	"github.com/pubcat-labs/pubcat-go/internal/sync"
)

type feedPollerConfig struct {
	Logger            *slog.Logger
	Feed              sync.FeedKind
	Client            *ldes.Client
	Queue             *sync.JobQueue
	Driver            *sync.Driver
	ConceptSnapshots  repo.ConceptSnapshotRepository
	InstanceSnapshots repo.InstanceSnapshotRepository
	Interval          time.Duration
}

// feedPoller follows one LDES feed. Every tick it fetches new pages from its
// cursor and enqueues one job per change set; the job resolves and persists
// the referenced snapshot documents, then hands the change set to the driver.
// Only the queue consumer touches the projections, so polling both feeds
// concurrently stays safe.
type feedPoller struct {
	logger            *slog.Logger
	feed              sync.FeedKind
	client            *ldes.Client
	queue             *sync.JobQueue
	driver            *sync.Driver
	conceptSnapshots  repo.ConceptSnapshotRepository
	instanceSnapshots repo.InstanceSnapshotRepository
	interval          time.Duration

	// cursor advances past completed pages and rests on the URL of the
	// feed's mutable tail page, which is re-fetched every poll.
	cursor string

	// Fingerprint of the tail page body from the previous poll. A tail
	// whose bytes did not change is not re-enqueued, so an idle feed adds
	// no archive objects and no audit rows.
	tailPage string
	tailHash [sha256.Size]byte
}

func startFeedPoller(ctx context.Context, cfg feedPollerConfig) {
	if cfg.Client == nil || cfg.Queue == nil || cfg.Driver == nil {
		return
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	p := &feedPoller{
		logger:            cfg.Logger,
		feed:              cfg.Feed,
		client:            cfg.Client,
		queue:             cfg.Queue,
		driver:            cfg.Driver,
		conceptSnapshots:  cfg.ConceptSnapshots,
		instanceSnapshots: cfg.InstanceSnapshots,
		interval:          interval,
	}
	go p.run(ctx)
}

func (p *feedPoller) run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.pollOnce(ctx)
		}
	}
}

func (p *feedPoller) pollOnce(ctx context.Context) {
	pages, err := p.client.FetchPages(ctx, p.cursor)
	if err != nil && !errors.Is(err, context.Canceled) {
		p.log("feed fetch failed", "error", err)
	}
	for _, page := range pages {
		if p.pageChanged(page) {
			for _, changeSet := range page.ChangeSets {
				p.enqueue(changeSet, page.Raw)
			}
		}
		if page.Next != "" {
			p.cursor = page.Next
		} else {
			p.cursor = page.URL
		}
	}
}

// pageChanged reports whether the page carries content not yet enqueued.
// Completed pages are immutable and the cursor moves past them, so they are
// fetched once; the mutable tail only counts as changed when its body
// differs from the previous poll.
func (p *feedPoller) pageChanged(page ldes.Page) bool {
	if page.Next != "" {
		return true
	}
	sum := sha256.Sum256(page.Raw)
	if page.URL == p.tailPage && sum == p.tailHash {
		return false
	}
	p.tailPage = page.URL
	p.tailHash = sum
	return true
}

func (p *feedPoller) enqueue(changeSet []ldes.Quad, raw []byte) {
	quads := make([]ldes.Quad, len(changeSet))
	copy(quads, changeSet)
	p.queue.AddJob(func(ctx context.Context) error {
		p.resolveSnapshots(ctx, quads)
		p.driver.ProcessChangeSet(ctx, p.feed, quads, raw)
		return nil
	})
}

// resolveSnapshots dereferences and persists every snapshot document named in
// the change set. A snapshot that cannot be resolved now is not fatal: the
// ordering filter reports it as skipped and a later delivery retries it.
func (p *feedPoller) resolveSnapshots(ctx context.Context, quads []ldes.Quad) {
	for _, quad := range quads {
		if quad.Predicate != ldes.PredicateIsVersionOf {
			continue
		}
		if err := p.resolveSnapshot(ctx, quad.Subject); err != nil && !errors.Is(err, context.Canceled) {
			p.log("snapshot resolve failed", "snapshot", quad.Subject, "error", err)
		}
	}
}

func (p *feedPoller) resolveSnapshot(ctx context.Context, snapshotID string) error {
	if p.feed == sync.FeedInstance {
		snapshot, err := p.client.FetchInstanceSnapshot(ctx, snapshotID)
		if err != nil {
			return err
		}
		return p.instanceSnapshots.Save(ctx, snapshot)
	}
	snapshot, err := p.client.FetchConceptSnapshot(ctx, snapshotID)
	if err != nil {
		return err
	}
	return p.conceptSnapshots.Save(ctx, snapshot)
}

func (p *feedPoller) log(msg string, attrs ...any) {
	if p.logger == nil {
		return
	}
	fields := []any{"component", "feed_poller", "feed", string(p.feed)}
	fields = append(fields, attrs...)
	p.logger.Warn(msg, fields...)
}
