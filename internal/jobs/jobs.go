// Package jobs runs the periodic maintenance tasks: store snapshots and
// the daily agenda digest.
package jobs

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"lessoncal/internal/config"
	appLog "lessoncal/internal/log"
	"lessoncal/internal/model"
	"lessoncal/internal/schedule"
	"lessoncal/internal/store"
	"lessoncal/internal/timemath"
)

const (
	snapshotPrefix = "snapshots/"
	snapshotStamp  = "20060102T150405"
)

// Runner owns the cron scheduler and the jobs registered on it.
type Runner struct {
	cron  *cron.Cron
	store store.Store
	book  *schedule.Book
	keep  int
	now   func() time.Time
}

// New registers the jobs whose spec is non-empty. Invalid specs are
// returned as errors.
func New(st store.Store, book *schedule.Book, cfg config.JobsConfig) (*Runner, error) {
	r := &Runner{
		cron:  cron.New(cron.WithLogger(cronLogger{})),
		store: st,
		book:  book,
		keep:  cfg.KeepSnapshots,
		now:   time.Now,
	}

	if cfg.Snapshot != "" {
		if _, err := r.cron.AddFunc(cfg.Snapshot, r.runSnapshot); err != nil {
			return nil, fmt.Errorf("jobs: snapshot spec %q: %w", cfg.Snapshot, err)
		}
		appLog.Info("snapshot job scheduled", "spec", cfg.Snapshot, "keep", cfg.KeepSnapshots)
	}
	if cfg.Digest != "" {
		if _, err := r.cron.AddFunc(cfg.Digest, func() { r.Digest() }); err != nil {
			return nil, fmt.Errorf("jobs: digest spec %q: %w", cfg.Digest, err)
		}
		appLog.Info("digest job scheduled", "spec", cfg.Digest)
	}
	return r, nil
}

func (r *Runner) Start() {
	r.cron.Start()
}

// Stop stops scheduling and waits for running jobs or ctx.
func (r *Runner) Stop(ctx context.Context) {
	done := r.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		appLog.Warn("jobs stop timed out")
	}
}

func (r *Runner) runSnapshot() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if _, err := r.Snapshot(ctx); err != nil {
		appLog.Error("snapshot failed", err)
	}
}

// Snapshot copies the current collections to snapshots/<timestamp>/<key>
// and prunes old snapshots. Both collections are taken from the book in
// one consistent read. It returns the snapshot prefix written.
func (r *Runner) Snapshot(ctx context.Context) (string, error) {
	prefix := snapshotPrefix + r.now().UTC().Format(snapshotStamp) + "/"

	entries, err := r.book.SnapshotEntries()
	if err != nil {
		return "", fmt.Errorf("jobs: snapshot: %w", err)
	}
	if len(entries) == 0 {
		appLog.Info("snapshot skipped; book is empty")
		return "", nil
	}
	for i := range entries {
		entries[i].Key = prefix + entries[i].Key
	}
	if err := r.store.Save(ctx, entries...); err != nil {
		return "", fmt.Errorf("jobs: snapshot save: %w", err)
	}
	appLog.Info("snapshot written", "prefix", prefix, "keys", len(entries))

	if err := r.prune(ctx); err != nil {
		appLog.Error("snapshot prune failed", err)
	}
	return prefix, nil
}

func (r *Runner) prune(ctx context.Context) error {
	if r.keep <= 0 {
		return nil
	}
	keys, err := r.store.List(ctx, snapshotPrefix)
	if err != nil {
		return err
	}

	byStamp := make(map[string][]string)
	for _, k := range keys {
		stamp, _, ok := strings.Cut(strings.TrimPrefix(k, snapshotPrefix), "/")
		if !ok {
			continue
		}
		byStamp[stamp] = append(byStamp[stamp], k)
	}
	if len(byStamp) <= r.keep {
		return nil
	}

	stamps := make([]string, 0, len(byStamp))
	for s := range byStamp {
		stamps = append(stamps, s)
	}
	// Timestamps sort lexically in time order; newest last.
	sort.Strings(stamps)

	for _, s := range stamps[:len(stamps)-r.keep] {
		if err := r.store.Delete(ctx, byStamp[s]...); err != nil {
			return err
		}
		appLog.Debug("snapshot pruned", "stamp", s)
	}
	return nil
}

// Digest logs today's agenda and returns it.
func (r *Runner) Digest() []model.AgendaEntry {
	today := timemath.FormatDate(r.now())
	agenda := r.book.Query().AgendaFor(today)

	appLog.Info("today's lessons", "date", today, "count", len(agenda))
	for _, e := range agenda {
		appLog.Info("lesson", "date", today, "start", e.StartTime, "end", e.EndTime, "student", e.StudentName)
	}
	return agenda
}

// cronLogger routes cron's own logging into the application log.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	appLog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	appLog.Error("cron: "+msg, err, keysAndValues...)
}
