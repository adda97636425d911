package observability

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/designscore/idgen"
)

// AuditEntry records one externally triggered operation (HTTP or MCP call).
type AuditEntry struct {
	EntryID       string
	Timestamp     time.Time
	ComponentName string // "api", "mcp"
	OperationType string // "analyze", "get", "recommend"
	RequestID     string
	Parameters    string // JSON
	Result        string // JSON
	ErrorMessage  string
	DurationMs    int64
	Status        string // "success", "error"
}

// AuditFilter narrows Query results. Zero values match everything.
type AuditFilter struct {
	ComponentName string
	OperationType string
	Status        string
	Limit         int // default 100
}

// AuditLogger persists audit entries asynchronously.
type AuditLogger struct {
	db        *sql.DB
	newID     idgen.Generator
	ch        chan *AuditEntry
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// AuditOption configures an AuditLogger.
type AuditOption func(*AuditLogger)

// WithAuditIDGenerator sets the generator for entry IDs.
func WithAuditIDGenerator(gen idgen.Generator) AuditOption {
	return func(a *AuditLogger) { a.newID = gen }
}

// NewAuditLogger starts an async logger. Typical bufferSize: 1000.
func NewAuditLogger(db *sql.DB, bufferSize int, opts ...AuditOption) *AuditLogger {
	a := &AuditLogger{
		db:    db,
		newID: idgen.Prefixed("audit_", idgen.Default),
		ch:    make(chan *AuditEntry, bufferSize),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	for _, o := range opts {
		o(a)
	}
	go a.flushLoop()
	return a
}

// NewEntry builds an entry from an operation's params, result and error.
func (a *AuditLogger) NewEntry(component, operation string, params, result any, err error, d time.Duration) *AuditEntry {
	e := &AuditEntry{
		EntryID:       a.newID(),
		Timestamp:     time.Now(),
		ComponentName: component,
		OperationType: operation,
		DurationMs:    d.Milliseconds(),
	}
	if params != nil {
		if b, merr := json.Marshal(params); merr == nil {
			e.Parameters = string(b)
		}
	}
	if err != nil {
		e.Status = "error"
		e.ErrorMessage = err.Error()
		return e
	}
	e.Status = "success"
	if result != nil {
		if b, merr := json.Marshal(result); merr == nil {
			e.Result = string(b)
		}
	}
	return e
}

// Log inserts e synchronously.
func (a *AuditLogger) Log(ctx context.Context, e *AuditEntry) error {
	a.fillDefaults(e)
	return a.insert(ctx, e)
}

// LogAsync queues e, falling back to a synchronous insert when the buffer
// is full.
func (a *AuditLogger) LogAsync(e *AuditEntry) {
	a.fillDefaults(e)
	select {
	case a.ch <- e:
	default:
		slog.Warn("observability audit buffer full, sync fallback", "component", e.ComponentName)
		if err := a.insert(context.Background(), e); err != nil {
			slog.Error("observability audit: sync fallback failed", "error", err)
		}
	}
}

// Query returns entries matching f, newest first.
func (a *AuditLogger) Query(ctx context.Context, f AuditFilter) ([]*AuditEntry, error) {
	q := `SELECT entry_id, timestamp, component_name, operation_type, request_id,
		parameters, result, error_message, duration_ms, status
		FROM audit_log WHERE 1=1`
	var args []any
	if f.ComponentName != "" {
		q += " AND component_name = ?"
		args = append(args, f.ComponentName)
	}
	if f.OperationType != "" {
		q += " AND operation_type = ?"
		args = append(args, f.OperationType)
	}
	if f.Status != "" {
		q += " AND status = ?"
		args = append(args, f.Status)
	}
	limit := 100
	if f.Limit > 0 {
		limit = f.Limit
	}
	q += " ORDER BY timestamp DESC LIMIT ?"
	args = append(args, limit)

	rows, err := a.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("observability: query audit log: %w", err)
	}
	defer rows.Close()

	var out []*AuditEntry
	for rows.Next() {
		var e AuditEntry
		var ts int64
		var requestID, result, errMsg sql.NullString
		var dur sql.NullInt64
		if err := rows.Scan(&e.EntryID, &ts, &e.ComponentName, &e.OperationType, &requestID,
			&e.Parameters, &result, &errMsg, &dur, &e.Status); err != nil {
			return nil, fmt.Errorf("observability: scan audit entry: %w", err)
		}
		e.Timestamp = time.Unix(ts, 0)
		e.RequestID, e.Result, e.ErrorMessage = requestID.String, result.String, errMsg.String
		e.DurationMs = dur.Int64
		out = append(out, &e)
	}
	return out, rows.Err()
}

// Close drains the buffer and stops the flush goroutine.
func (a *AuditLogger) Close() error {
	a.closeOnce.Do(func() {
		close(a.stop)
		<-a.done
	})
	return nil
}

func (a *AuditLogger) fillDefaults(e *AuditEntry) {
	if e.EntryID == "" {
		e.EntryID = a.newID()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	if e.Parameters == "" {
		e.Parameters = "{}"
	}
	if e.Status == "" {
		if e.ErrorMessage != "" {
			e.Status = "error"
		} else {
			e.Status = "success"
		}
	}
}

func (a *AuditLogger) flushLoop() {
	defer close(a.done)
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	batch := make([]*AuditEntry, 0, 100)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		for _, e := range batch {
			if err := a.insert(ctx, e); err != nil {
				slog.Error("observability audit: insert", "error", err, "entry_id", e.EntryID)
			}
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-a.stop:
			for {
				select {
				case e := <-a.ch:
					batch = append(batch, e)
				default:
					flush()
					return
				}
			}
		case e := <-a.ch:
			batch = append(batch, e)
			if len(batch) >= 100 {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

func (a *AuditLogger) insert(ctx context.Context, e *AuditEntry) error {
	_, err := a.db.ExecContext(ctx, `INSERT INTO audit_log
		(entry_id, timestamp, component_name, operation_type, request_id,
		 parameters, result, error_message, duration_ms, status)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		e.EntryID, e.Timestamp.Unix(), e.ComponentName, e.OperationType, e.RequestID,
		e.Parameters, e.Result, e.ErrorMessage, e.DurationMs, e.Status)
	if err != nil {
		return fmt.Errorf("observability: insert audit entry: %w", err)
	}
	return nil
}
