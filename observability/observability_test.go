package observability

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/designscore/dbopen"
)

func setupObsDB(t *testing.T) *sql.DB {
	t.Helper()
	db := dbopen.OpenMemory(t)
	if err := Init(db); err != nil {
		t.Fatal(err)
	}
	return db
}

func TestInit_CreatesAllTables(t *testing.T) {
	db := setupObsDB(t)
	for _, table := range []string{"metrics_timeseries", "business_event_logs", "audit_log", "worker_heartbeats"} {
		var count int
		db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		if count != 1 {
			t.Fatalf("table %s not found", table)
		}
	}
	if err := Init(db); err != nil {
		t.Fatalf("Init not idempotent: %v", err)
	}
}

// --- MetricsManager ---

func TestMetricsManager_RecordAndQuery(t *testing.T) {
	db := setupObsDB(t)
	mm := NewMetricsManager(db, 100, time.Hour)
	defer mm.Close()

	mm.Record(DurationMetric(MetricAnalysisDurationMs, 1500*time.Millisecond, map[string]string{"provider": "static"}))
	mm.Record(&Metric{Name: MetricAnalysisTotalScore, Value: 78, Unit: "score"})
	mm.Flush()

	ctx := context.Background()
	got, err := mm.Query(ctx, MetricAnalysisDurationMs, nil, nil, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("duration count: got %d", len(got))
	}
	if got[0].Value != 1500 || got[0].Unit != "ms" {
		t.Fatalf("duration metric: %+v", got[0])
	}
	if got[0].Labels["provider"] != "static" {
		t.Fatalf("labels: got %v", got[0].Labels)
	}

	all, err := mm.Query(ctx, "", nil, nil, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("all metrics count: got %d", len(all))
	}
}

func TestMetricsManager_FlushOnFullBuffer(t *testing.T) {
	db := setupObsDB(t)
	mm := NewMetricsManager(db, 2, time.Hour)
	defer mm.Close()

	mm.Record(&Metric{Name: "a", Value: 1, Unit: "count"})
	mm.Record(&Metric{Name: "b", Value: 2, Unit: "count"})

	var n int
	db.QueryRow("SELECT COUNT(*) FROM metrics_timeseries").Scan(&n)
	if n != 2 {
		t.Fatalf("rows after full buffer: got %d", n)
	}
}

func TestMetricsManager_CloseFlushes(t *testing.T) {
	db := setupObsDB(t)
	mm := NewMetricsManager(db, 100, time.Hour)
	mm.Record(&Metric{Name: MetricReportDurationMs, Value: 42, Unit: "ms"})
	mm.Close()
	mm.Close()

	var n int
	db.QueryRow("SELECT COUNT(*) FROM metrics_timeseries").Scan(&n)
	if n != 1 {
		t.Fatalf("rows after close: got %d", n)
	}
}

func TestMetricsManager_QueryWithTimeRange(t *testing.T) {
	db := setupObsDB(t)
	mm := NewMetricsManager(db, 100, time.Hour)
	defer mm.Close()

	old := time.Now().Add(-48 * time.Hour)
	mm.Record(&Metric{Name: "m", Timestamp: old, Value: 1})
	mm.Record(&Metric{Name: "m", Value: 2})
	mm.Flush()

	since := time.Now().Add(-time.Hour)
	got, err := mm.Query(context.Background(), "m", &since, nil, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Value != 2 {
		t.Fatalf("range query: %+v", got)
	}
}

// --- EventLogger ---

func TestEventLogger_LogAndList(t *testing.T) {
	db := setupObsDB(t)
	el := NewEventLogger(db)
	ctx := context.Background()

	el.LogEvent(ctx, BusinessEvent{
		EventType:   EventAnalysisCompleted,
		ServiceName: "designscore",
		EntityType:  "analysis",
		EntityID:    "run_1",
		Action:      "analyze",
		Success:     true,
	})
	el.LogEvent(ctx, BusinessEvent{
		EventType:   EventReportFailed,
		ServiceName: "designscore",
		EntityType:  "analysis",
		EntityID:    "run_2",
		Action:      "render",
		Details:     `{"error":"boom"}`,
	})

	events, err := el.Events(ctx, "run_2", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 {
		t.Fatalf("events for run_2: got %d", len(events))
	}
	if events[0].EventType != EventReportFailed || events[0].Success || events[0].Details == "" {
		t.Fatalf("event: %+v", events[0])
	}

	all, err := el.Events(ctx, "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("all events: got %d", len(all))
	}
}

func TestEventLogger_WithIDGenerator(t *testing.T) {
	db := setupObsDB(t)
	el := NewEventLogger(db, WithEventIDGenerator(func() string { return "evt_custom" }))
	el.LogEvent(context.Background(), BusinessEvent{EventType: "x", ServiceName: "s", Action: "a"})

	var id string
	db.QueryRow("SELECT event_id FROM business_event_logs").Scan(&id)
	if id != "evt_custom" {
		t.Fatalf("event_id: got %q", id)
	}
}

// --- AuditLogger ---

func TestAuditLogger_NewEntry(t *testing.T) {
	db := setupObsDB(t)
	al := NewAuditLogger(db, 10)
	defer al.Close()

	ok := al.NewEntry("api", "analyze", map[string]string{"url": "https://a.test"}, map[string]int{"total": 78}, nil, time.Second)
	if ok.Status != "success" || ok.Result != `{"total":78}` || ok.DurationMs != 1000 {
		t.Fatalf("success entry: %+v", ok)
	}
	bad := al.NewEntry("mcp", "analyze", nil, nil, errors.New("boom"), 0)
	if bad.Status != "error" || bad.ErrorMessage != "boom" || bad.Result != "" {
		t.Fatalf("error entry: %+v", bad)
	}
}

func TestAuditLogger_LogAndQuery(t *testing.T) {
	db := setupObsDB(t)
	al := NewAuditLogger(db, 10)
	ctx := context.Background()

	if err := al.Log(ctx, &AuditEntry{ComponentName: "api", OperationType: "analyze"}); err != nil {
		t.Fatal(err)
	}
	al.LogAsync(&AuditEntry{ComponentName: "mcp", OperationType: "get", ErrorMessage: "not found"})
	al.Close()

	entries, err := al.Query(ctx, AuditFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries: got %d", len(entries))
	}

	failed, err := al.Query(ctx, AuditFilter{Status: "error"})
	if err != nil {
		t.Fatal(err)
	}
	if len(failed) != 1 || failed[0].ComponentName != "mcp" {
		t.Fatalf("failed entries: %+v", failed)
	}
}

// --- Heartbeats ---

func TestHeartbeat_WriteAndLatest(t *testing.T) {
	db := setupObsDB(t)
	ctx := context.Background()

	hs, err := LatestHeartbeat(ctx, db, "serve", time.Minute)
	if err != nil || hs != nil {
		t.Fatalf("empty: hs=%v err=%v", hs, err)
	}

	hw := NewHeartbeatWriter(db, "serve", time.Hour)
	if err := hw.WriteHeartbeat(ctx); err != nil {
		t.Fatal(err)
	}
	hs, err = LatestHeartbeat(ctx, db, "serve", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if hs == nil || !hs.Alive || hs.GoroutinesCount == 0 {
		t.Fatalf("latest: %+v", hs)
	}
}

func TestHeartbeatWriter_StartStop(t *testing.T) {
	db := setupObsDB(t)
	hw := NewHeartbeatWriter(db, "serve", time.Hour)
	hw.Start(context.Background())
	hw.Stop()
	hw.Stop()

	var n int
	db.QueryRow("SELECT COUNT(*) FROM worker_heartbeats").Scan(&n)
	if n != 1 {
		t.Fatalf("heartbeats after start/stop: got %d", n)
	}
}

func TestCleanup_Retention(t *testing.T) {
	db := setupObsDB(t)
	old := time.Now().AddDate(0, 0, -10).Unix()
	db.Exec(`INSERT INTO business_event_logs (event_id, event_type, service_name, action, created_at) VALUES ('e1','t','s','a',?)`, old)
	db.Exec(`INSERT INTO business_event_logs (event_id, event_type, service_name, action, created_at) VALUES ('e2','t','s','a',?)`, time.Now().Unix())
	db.Exec(`INSERT INTO metrics_timeseries (metric_name, timestamp, value) VALUES ('m', ?, 1)`, old)

	if err := Cleanup(context.Background(), db, RetentionConfig{EventsDays: 7}); err != nil {
		t.Fatal(err)
	}
	var events, metrics int
	db.QueryRow("SELECT COUNT(*) FROM business_event_logs").Scan(&events)
	db.QueryRow("SELECT COUNT(*) FROM metrics_timeseries").Scan(&metrics)
	if events != 1 {
		t.Fatalf("events after cleanup: got %d", events)
	}
	if metrics != 1 {
		t.Fatalf("metrics with zero retention should be kept: got %d", metrics)
	}
}
