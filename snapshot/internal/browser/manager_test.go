package browser

import (
	"context"
	"testing"
	"time"
)

func startMonitor(m *Manager, ctx context.Context) <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startMonitor(ctx)
	return m.monitorDone
}

func TestMonitor_OutlivesStartContext(t *testing.T) {
	m := NewManager(Config{})
	ctx, cancel := context.WithCancel(context.Background())
	done := startMonitor(m, ctx)

	// The caller that launched Chrome finishes, as an HTTP request does.
	cancel()
	select {
	case <-done:
		t.Fatal("monitor stopped with the start context")
	case <-time.After(100 * time.Millisecond):
	}

	if err := m.Close(); err != nil {
		t.Fatal(err)
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor still running after Close")
	}
}

func TestMonitor_SingleInstance(t *testing.T) {
	m := NewManager(Config{})
	defer m.Close()
	first := startMonitor(m, context.Background())
	second := startMonitor(m, context.Background())
	if first != second {
		t.Fatal("second start launched another monitor")
	}
}

func TestMonitor_RestartsAfterExit(t *testing.T) {
	m := NewManager(Config{})
	defer m.Close()
	m.monitorEvery = 10 * time.Millisecond

	// Without a browser the loop exits on its first tick.
	first := startMonitor(m, context.Background())
	select {
	case <-first:
	case <-time.After(time.Second):
		t.Fatal("monitor did not exit without a browser")
	}

	second := startMonitor(m, context.Background())
	if second == first {
		t.Fatal("monitor was not restarted")
	}
}
