package shield

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"
)

const defaultMaintenanceMessage = "Service under maintenance, please retry later."

// MaintenanceMode answers 503 to every request while the maintenance flag
// is set. The flag lives in the single-row maintenance table and is cached
// in memory. A missing table or row means maintenance is off.
type MaintenanceMode struct {
	db      *sql.DB
	active  atomic.Bool
	message atomic.Value // string
	exclude []string     // path prefixes that bypass maintenance (e.g. /health)
}

// NewMaintenanceMode creates a maintenance mode checker. Paths matching any
// of excludePrefixes are never blocked.
func NewMaintenanceMode(db *sql.DB, excludePrefixes ...string) *MaintenanceMode {
	m := &MaintenanceMode{
		db:      db,
		exclude: excludePrefixes,
	}
	m.message.Store(defaultMaintenanceMessage)
	m.Reload(context.Background())
	return m
}

// Active reports whether maintenance mode is currently on.
func (m *MaintenanceMode) Active() bool {
	return m.active.Load()
}

// Message returns the current maintenance message.
func (m *MaintenanceMode) Message() string {
	s, _ := m.message.Load().(string)
	return s
}

// StartReloader reloads the flag every 5 seconds until ctx is done.
func (m *MaintenanceMode) StartReloader(ctx context.Context) {
	tick := time.NewTicker(5 * time.Second)
	go func() {
		defer tick.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tick.C:
				m.Reload(ctx)
			}
		}
	}()
}

// Reload reads the flag from the database.
func (m *MaintenanceMode) Reload(ctx context.Context) {
	var active int
	var message string
	err := m.db.QueryRowContext(ctx, `SELECT active, message FROM maintenance WHERE id = 1`).Scan(&active, &message)
	if err != nil {
		if m.active.Load() {
			slog.Info("maintenance: flag cleared (table missing or empty)")
		}
		m.active.Store(false)
		return
	}

	was := m.active.Load()
	m.active.Store(active == 1)
	if message != "" {
		m.message.Store(message)
	}

	if active == 1 && !was {
		slog.Warn("maintenance: mode enabled", "message", message)
	} else if active != 1 && was {
		slog.Info("maintenance: mode disabled")
	}
}

// SetMaintenance writes the flag. An empty message keeps the stored one.
func SetMaintenance(ctx context.Context, db *sql.DB, active bool, message string) error {
	flag := 0
	if active {
		flag = 1
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO maintenance (id, active, message) VALUES (1, ?, COALESCE(NULLIF(?, ''), ?))
		ON CONFLICT(id) DO UPDATE SET
			active = excluded.active,
			message = COALESCE(NULLIF(?, ''), maintenance.message)`,
		flag, message, defaultMaintenanceMessage, message)
	if err != nil {
		return fmt.Errorf("maintenance: set: %w", err)
	}
	return nil
}

// Middleware blocks requests with 503 while maintenance is active. API
// paths get a JSON error, other paths a small HTML page.
func (m *MaintenanceMode) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.active.Load() {
			next.ServeHTTP(w, r)
			return
		}
		for _, prefix := range m.exclude {
			if strings.HasPrefix(r.URL.Path, prefix) {
				next.ServeHTTP(w, r)
				return
			}
		}

		w.Header().Set("Retry-After", "300")
		if strings.HasPrefix(r.URL.Path, "/api/") {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"error": m.Message()})
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(maintenancePage(m.Message())))
	})
}

func maintenancePage(message string) string {
	return `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Maintenance</title>
<style>
  body { font-family: system-ui, sans-serif; display: flex; align-items: center;
         justify-content: center; min-height: 100vh; margin: 0; background: #f8f9fa; color: #333; }
  .box { text-align: center; max-width: 480px; padding: 2rem; }
</style>
</head>
<body>
<div class="box">
  <h1>Maintenance</h1>
  <p>` + html.EscapeString(message) + `</p>
</div>
</body>
</html>`
}
