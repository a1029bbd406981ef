package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTestCatalog(t *testing.T) *ResourceCatalogService {
	t.Helper()
	dir := t.TempDir()
	catalogPath := filepath.Join(dir, "resources.yaml")
	content := `resources:
  - name: warehouse
    engine: duckdb
    path: warehouse.db
`
	if err := os.WriteFile(catalogPath, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write catalog: %v", err)
	}
	catalog := NewResourceCatalogService(catalogPath)
	if err := catalog.LoadResources(); err != nil {
		t.Fatalf("failed to load catalog: %v", err)
	}
	return catalog
}

func waitForConnection(t *testing.T, sessions *ResourceSessionService, name string) *ResourceHandle {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if handle, ok := sessions.GetConnection(name); ok {
			return handle
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("connection for %s never opened", name)
	return nil
}

func TestConnectOpensInBackgroundThenReportsSuccess(t *testing.T) {
	adapter := &fakeAdapter{}
	sessions := NewResourceSessionService(writeTestCatalog(t), nil)
	sessions.RegisterAdapter("duckdb", func(params AdapterFactoryParams) (ConnectionAdapter, error) {
		if params.ResourceName != "warehouse" {
			t.Errorf("expected resource name warehouse, got %s", params.ResourceName)
		}
		if params.BaseDir == "" {
			t.Errorf("expected a base dir for relative paths")
		}
		return adapter, nil
	})
	defer sessions.CloseAll()

	outcome := sessions.Connect(context.Background(), "warehouse")
	if outcome.Result != ResourceConnectResultConnecting {
		t.Fatalf("expected connecting, got %s", outcome.Result)
	}

	waitForConnection(t, sessions, "warehouse")

	outcome = sessions.Connect(context.Background(), "warehouse")
	if outcome.Result != ResourceConnectResultSuccess {
		t.Fatalf("expected success once open, got %s", outcome.Result)
	}
}

func TestConnectReopensWhenPingFails(t *testing.T) {
	first := &fakeAdapter{}
	second := &fakeAdapter{}
	adapters := []*fakeAdapter{first, second}
	built := 0

	sessions := NewResourceSessionService(writeTestCatalog(t), nil)
	sessions.RegisterAdapter("duckdb", func(params AdapterFactoryParams) (ConnectionAdapter, error) {
		adapter := adapters[built]
		built++
		return adapter, nil
	})
	defer sessions.CloseAll()

	sessions.Connect(context.Background(), "warehouse")
	waitForConnection(t, sessions, "warehouse")

	// A dead connection is dropped and reopened instead of being handed out.
	first.setPingErr(errors.New("database handle lost"))
	outcome := sessions.Connect(context.Background(), "warehouse")
	if outcome.Result != ResourceConnectResultConnecting {
		t.Fatalf("expected connecting while reopening, got %s", outcome.Result)
	}
	if !first.wasClosed() {
		t.Fatalf("expected the stale adapter to be closed")
	}

	handle := waitForConnection(t, sessions, "warehouse")
	if handle.Adapter != second {
		t.Fatalf("expected the replacement adapter to be live")
	}
}

func TestConnectUnknownEngineNeverOpens(t *testing.T) {
	sessions := NewResourceSessionService(writeTestCatalog(t), nil)
	// No factory registered for duckdb.

	outcome := sessions.Connect(context.Background(), "warehouse")
	if outcome.Result != ResourceConnectResultConnecting {
		t.Fatalf("expected connecting, got %s", outcome.Result)
	}

	time.Sleep(300 * time.Millisecond)
	if _, ok := sessions.GetConnection("warehouse"); ok {
		t.Fatalf("expected no connection without a factory")
	}
}

func TestConnectFailedOpenClosesAdapter(t *testing.T) {
	adapter := &fakeAdapter{pingErr: errors.New("file is locked")}
	sessions := NewResourceSessionService(writeTestCatalog(t), nil)
	sessions.RegisterAdapter("duckdb", func(params AdapterFactoryParams) (ConnectionAdapter, error) {
		return adapter, nil
	})

	sessions.Connect(context.Background(), "warehouse")

	deadline := time.Now().Add(2 * time.Second)
	for !adapter.wasClosed() {
		if time.Now().After(deadline) {
			t.Fatalf("expected the failed adapter to be closed")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if _, ok := sessions.GetConnection("warehouse"); ok {
		t.Fatalf("expected no connection after a failed open")
	}
}

func TestCloseAllReleasesEveryHandle(t *testing.T) {
	adapter := &fakeAdapter{}
	sessions := sessionsWithHandle("warehouse", nil, adapter)

	sessions.CloseAll()

	if !adapter.wasClosed() {
		t.Fatalf("expected adapter to be closed")
	}
	if _, ok := sessions.GetConnection("warehouse"); ok {
		t.Fatalf("expected connection map to be emptied")
	}
}

func TestRegisterAdapterNormalizesEngineName(t *testing.T) {
	sessions := NewResourceSessionService(nil, nil)
	sessions.RegisterAdapter("  DuckDB ", func(params AdapterFactoryParams) (ConnectionAdapter, error) {
		return &fakeAdapter{}, nil
	})

	if _, ok := sessions.adapterFactory("duckdb"); !ok {
		t.Fatalf("expected factory lookup to be case and space insensitive")
	}
}
