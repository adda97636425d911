// Package watch polls the designscore database for writes made by other
// connections and runs a reload action once the changes settle. The serve
// command uses it so that "designscore maintenance on" or an edited
// rate_limits row takes effect without waiting for the periodic reload.
package watch

import (
	"context"
	"database/sql"
	"log/slog"
	"sync/atomic"
	"time"
)

// Detector returns a version token. Two different tokens mean the database
// changed between the calls.
type Detector func(ctx context.Context, db *sql.DB) (int64, error)

// Options configures a Watcher.
type Options struct {
	// Interval between polls. Default: 1s.
	Interval time.Duration
	// Debounce is the quiet period required after the last observed change
	// before the action runs. Zero runs it on the poll that saw the change.
	Debounce time.Duration
	// Detector defaults to DataVersion.
	Detector Detector
	Logger   *slog.Logger
}

func (o *Options) defaults() {
	if o.Interval <= 0 {
		o.Interval = time.Second
	}
	if o.Detector == nil {
		o.Detector = DataVersion
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Watcher runs an action whenever its detector reports a new version.
type Watcher struct {
	db   *sql.DB
	opts Options

	version atomic.Int64

	polls   atomic.Int64
	changes atomic.Int64
	failed  atomic.Int64
	reloads atomic.Int64
}

// Stats are point-in-time counters.
type Stats struct {
	Polls   int64 `json:"polls"`
	Changes int64 `json:"changes"`
	Failed  int64 `json:"failed"`
	Reloads int64 `json:"reloads"`
}

// New returns a Watcher. Call Run to start polling.
func New(db *sql.DB, opts Options) *Watcher {
	opts.defaults()
	w := &Watcher{db: db, opts: opts}
	w.version.Store(-1)
	return w
}

// Stats returns the current counters.
func (w *Watcher) Stats() Stats {
	return Stats{
		Polls:   w.polls.Load(),
		Changes: w.changes.Load(),
		Failed:  w.failed.Load(),
		Reloads: w.reloads.Load(),
	}
}

// Version returns the last version for which the action succeeded, or -1.
func (w *Watcher) Version() int64 { return w.version.Load() }

// Run blocks until ctx is done. A failed action leaves the version
// unchanged so the next poll retries it.
func (w *Watcher) Run(ctx context.Context, action func(context.Context) error) {
	log := w.opts.Logger.With("component", "watch")

	if v, err := w.opts.Detector(ctx, w.db); err != nil {
		log.Warn("initial version check failed", "error", err)
	} else {
		w.version.Store(v)
	}

	ticker := time.NewTicker(w.opts.Interval)
	defer ticker.Stop()

	var settle *time.Timer
	var settleC <-chan time.Time
	pending := int64(-1)
	defer func() {
		if settle != nil {
			settle.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			w.polls.Add(1)
			cur, err := w.opts.Detector(ctx, w.db)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				w.failed.Add(1)
				log.Warn("version check failed", "error", err)
				continue
			}
			if cur == w.version.Load() || cur == pending {
				continue
			}
			w.changes.Add(1)
			pending = cur
			if w.opts.Debounce <= 0 {
				w.fire(ctx, log, action, pending)
				pending = -1
				continue
			}
			if settle != nil {
				settle.Stop()
			}
			settle = time.NewTimer(w.opts.Debounce)
			settleC = settle.C

		case <-settleC:
			settleC = nil
			if pending >= 0 {
				w.fire(ctx, log, action, pending)
				pending = -1
			}
		}
	}
}

func (w *Watcher) fire(ctx context.Context, log *slog.Logger, action func(context.Context) error, v int64) {
	start := time.Now()
	if err := action(ctx); err != nil {
		w.failed.Add(1)
		log.Error("reload failed", "error", err, "version", v)
		return
	}
	w.reloads.Add(1)
	w.version.Store(v)
	log.Debug("reloaded", "version", v, "duration", time.Since(start))
}

// DataVersion reads PRAGMA data_version, which SQLite bumps when another
// connection commits to the same database file.
func DataVersion(ctx context.Context, db *sql.DB) (int64, error) {
	var v int64
	err := db.QueryRowContext(ctx, "PRAGMA data_version").Scan(&v)
	return v, err
}
