package history

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/infusion-core/internal/infrastructure/database"
	"github.com/nerrad567/infusion-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/infusion-core/internal/infusion"
)

const (
	// queueSize bounds the pending-write queue. The dispatch worker
	// never blocks on storage: a full queue drops the oldest pending
	// entry.
	queueSize = 256

	// defaultRecentLimit caps Recent queries that pass zero.
	defaultRecentLimit = 100

	writeTimeout = 5 * time.Second
)

// Logger is the minimal logging interface the recorder depends on.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Entry is one recorded state change.
type Entry struct {
	VID       int
	Name      string
	Kind      string
	Level     float64
	CreatedAt time.Time
}

// Recorder persists load and shade level changes.
//
// Writes are queued from the update callback and flushed by a single
// background worker, so recording never stalls dispatch.
//
// Thread Safety: safe for concurrent use.
type Recorder struct {
	db     *database.DB
	influx *influxdb.Client
	logger Logger

	mu   sync.Mutex
	last map[int]float64

	queue     chan Entry
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewRecorder creates a recorder and starts its write worker. The
// influx client is optional; nil disables time-series output.
func NewRecorder(db *database.DB, influx *influxdb.Client, logger Logger) *Recorder {
	if logger == nil {
		logger = noopLogger{}
	}
	r := &Recorder{
		db:     db,
		influx: influx,
		logger: logger,
		last:   make(map[int]float64),
		queue:  make(chan Entry, queueSize),
		done:   make(chan struct{}),
	}
	r.wg.Add(1)
	go r.worker()
	return r
}

// Attach subscribes the recorder to the client's update stream.
func (r *Recorder) Attach(c *infusion.Client) {
	c.SetOnUpdate(r.Record)
}

// Record inspects an updated entity and queues a history entry for
// loads and shades whose level changed since the last recording.
// Other entity kinds are ignored.
func (r *Recorder) Record(e infusion.Entity) {
	var entry Entry
	switch v := e.(type) {
	case *infusion.LoadGroup:
		// Group levels are derived from members, which are recorded
		// individually.
		return
	case *infusion.Output:
		entry = Entry{VID: v.VID(), Name: v.Name(), Kind: "load", Level: v.LastLevel()}
	case *infusion.Shade:
		level, known := v.LastLevel()
		if !known {
			return
		}
		entry = Entry{VID: v.VID(), Name: v.Name(), Kind: "shade", Level: level}
	case *infusion.Shade3:
		entry = Entry{VID: v.VID(), Name: v.Name(), Kind: "shade"}
		if v.IsOpen() {
			entry.Level = 100
		}
	default:
		return
	}

	r.mu.Lock()
	prev, seen := r.last[entry.VID]
	if seen && prev == entry.Level {
		r.mu.Unlock()
		return
	}
	r.last[entry.VID] = entry.Level
	r.mu.Unlock()

	select {
	case r.queue <- entry:
	default:
		// Queue full: drop the oldest to keep the newest state.
		select {
		case <-r.queue:
		default:
		}
		select {
		case r.queue <- entry:
		default:
		}
		r.logger.Warn("history queue full, dropped oldest entry")
	}
}

// Recent returns the newest entries for a vid, most recent first.
// A zero limit selects the default.
func (r *Recorder) Recent(ctx context.Context, vid, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT vid, name, kind, level, created_at
		   FROM state_history
		  WHERE vid = ?
		  ORDER BY created_at DESC, id DESC
		  LIMIT ?`, vid, limit)
	if err != nil {
		return nil, fmt.Errorf("querying state history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var created string
		if err := rows.Scan(&e.VID, &e.Name, &e.Kind, &e.Level, &created); err != nil {
			return nil, fmt.Errorf("scanning state history row: %w", err)
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close stops the worker after draining queued entries. Idempotent.
func (r *Recorder) Close() {
	r.closeOnce.Do(func() { close(r.done) })
	r.wg.Wait()
}

func (r *Recorder) worker() {
	defer r.wg.Done()
	for {
		select {
		case entry := <-r.queue:
			r.persist(entry)
		case <-r.done:
			for {
				select {
				case entry := <-r.queue:
					r.persist(entry)
				default:
					return
				}
			}
		}
	}
}

// persist writes one entry to every configured sink. Failures are
// logged and dropped.
func (r *Recorder) persist(entry Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO state_history (vid, name, kind, level) VALUES (?, ?, ?, ?)`,
		entry.VID, entry.Name, entry.Kind, entry.Level)
	if err != nil {
		r.logger.Warn("state history write failed",
			"vid", entry.VID, "error", err)
	}

	if r.influx == nil {
		return
	}
	switch entry.Kind {
	case "shade":
		err = r.influx.WriteShadePosition(entry.VID, entry.Name, entry.Level)
	default:
		err = r.influx.WriteLoadLevel(entry.VID, entry.Name, entry.Level)
	}
	if err != nil {
		r.logger.Warn("time-series write failed",
			"vid", entry.VID, "error", err)
	}
}
