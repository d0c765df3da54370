package socketrpc_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/tinytelemetry/portal/internal/model"
	"github.com/tinytelemetry/portal/internal/socketrpc"
)

// memCatalog is a minimal in-memory PortalAPI for roundtrip testing.
type memCatalog struct {
	widgets    []model.WidgetDescriptor
	dashboards map[string]model.DashboardDescriptor
	block      chan struct{}
}

func newMemCatalog() *memCatalog {
	return &memCatalog{
		widgets: []model.WidgetDescriptor{
			{Name: "Gauge", Title: "Gauge", Category: "kpi"},
			{Name: "Table", Title: "Data Table", Category: "data"},
		},
		dashboards: map[string]model.DashboardDescriptor{
			"ops": {URL: "ops", Name: "Operations", Panels: []string{"Gauge"}},
		},
	}
}

func (m *memCatalog) GetWidgetsInfo(ctx context.Context) ([]model.WidgetDescriptor, error) {
	if m.block != nil {
		select {
		case <-m.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return m.widgets, nil
}

func (m *memCatalog) GetWidgetDefinition(ctx context.Context, name string) (model.WidgetDefinition, error) {
	for _, w := range m.widgets {
		if w.Name == name {
			return model.WidgetDefinition{Name: w.Name, Title: w.Title, Config: map[string]any{"max": 100.0}}, nil
		}
	}
	return model.WidgetDefinition{}, fmt.Errorf("widget %q: %w", name, model.ErrNotFound)
}

func (m *memCatalog) GetDashboardList(ctx context.Context) ([]model.DashboardDescriptor, error) {
	out := make([]model.DashboardDescriptor, 0, len(m.dashboards))
	for _, d := range m.dashboards {
		out = append(out, d)
	}
	return out, nil
}

func (m *memCatalog) GetDashboard(ctx context.Context, url string) (model.DashboardDescriptor, error) {
	d, ok := m.dashboards[url]
	if !ok {
		return model.DashboardDescriptor{}, fmt.Errorf("dashboard %q: %w", url, model.ErrNotFound)
	}
	return d, nil
}

func (m *memCatalog) CreateDashboard(ctx context.Context, d model.DashboardDescriptor) (model.DashboardDescriptor, error) {
	if err := model.ValidateDashboard(d); err != nil {
		return model.DashboardDescriptor{}, err
	}
	if _, ok := m.dashboards[d.URL]; ok {
		return model.DashboardDescriptor{}, fmt.Errorf("dashboard %q: %w", d.URL, model.ErrConflict)
	}
	m.dashboards[d.URL] = d
	return d, nil
}

func startTestServer(t *testing.T, store model.PortalAPI) (string, *socketrpc.Server) {
	t.Helper()
	sockPath := filepath.Join(t.TempDir(), "test.sock")
	srv := socketrpc.NewServer(sockPath, store)
	if err := srv.Start(); err != nil {
		t.Fatalf("start server: %v", err)
	}
	return sockPath, srv
}

func TestRoundtrip(t *testing.T) {
	sockPath, srv := startTestServer(t, newMemCatalog())
	defer srv.Stop()

	client, err := socketrpc.Dial(sockPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	ctx := context.Background()

	t.Run("GetWidgetsInfo", func(t *testing.T) {
		widgets, err := client.GetWidgetsInfo(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(widgets) != 2 || widgets[0].Name != "Gauge" {
			t.Fatalf("unexpected widgets: %v", widgets)
		}
	})

	t.Run("GetWidgetDefinition", func(t *testing.T) {
		def, err := client.GetWidgetDefinition(ctx, "Gauge")
		if err != nil {
			t.Fatal(err)
		}
		if def.Name != "Gauge" || def.Config["max"] != 100.0 {
			t.Fatalf("unexpected definition: %+v", def)
		}
	})

	t.Run("GetDashboardList", func(t *testing.T) {
		list, err := client.GetDashboardList(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(list) != 1 || list[0].URL != "ops" {
			t.Fatalf("unexpected dashboards: %v", list)
		}
	})

	t.Run("CreateAndGetDashboard", func(t *testing.T) {
		created, err := client.CreateDashboard(ctx, model.DashboardDescriptor{URL: "finance", Name: "Finance"})
		if err != nil {
			t.Fatal(err)
		}
		if created.URL != "finance" {
			t.Fatalf("unexpected created: %+v", created)
		}
		got, err := client.GetDashboard(ctx, "finance")
		if err != nil {
			t.Fatal(err)
		}
		if got.Name != "Finance" {
			t.Fatalf("unexpected dashboard: %+v", got)
		}
	})
}

func TestSentinelErrorsCrossTheSocket(t *testing.T) {
	sockPath, srv := startTestServer(t, newMemCatalog())
	defer srv.Stop()

	client, err := socketrpc.Dial(sockPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()
	ctx := context.Background()

	if _, err := client.GetDashboard(ctx, "missing"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("GetDashboard(missing) err = %v, want ErrNotFound", err)
	}
	if _, err := client.CreateDashboard(ctx, model.DashboardDescriptor{URL: "ops", Name: "Ops"}); !errors.Is(err, model.ErrConflict) {
		t.Errorf("CreateDashboard(dup) err = %v, want ErrConflict", err)
	}
	if _, err := client.CreateDashboard(ctx, model.DashboardDescriptor{URL: "ok"}); !errors.Is(err, model.ErrInvalid) {
		t.Errorf("CreateDashboard(no name) err = %v, want ErrInvalid", err)
	}
}

func TestContextDeadline(t *testing.T) {
	store := newMemCatalog()
	store.block = make(chan struct{})
	sockPath, srv := startTestServer(t, store)
	defer srv.Stop()

	client, err := socketrpc.Dial(sockPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = client.GetWidgetsInfo(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want context.DeadlineExceeded", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("call took %v after deadline", elapsed)
	}

	// Release the stuck call; its late response must not confuse the next one.
	close(store.block)
	list, err := client.GetDashboardList(context.Background())
	if err != nil {
		t.Fatalf("follow-up call: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("follow-up result = %v", list)
	}
}

func TestCanceledContextSkipsCall(t *testing.T) {
	sockPath, srv := startTestServer(t, newMemCatalog())
	defer srv.Stop()

	client, err := socketrpc.Dial(sockPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := client.GetWidgetsInfo(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestDialFailure(t *testing.T) {
	_, err := socketrpc.Dial(filepath.Join(t.TempDir(), "nonexistent.sock"))
	if err == nil {
		t.Fatal("expected error dialing nonexistent socket")
	}
}

func TestServerStopCleansSocket(t *testing.T) {
	sockPath := filepath.Join(t.TempDir(), "cleanup.sock")
	srv := socketrpc.NewServer(sockPath, newMemCatalog())
	if err := srv.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	srv.Stop()

	if _, err := socketrpc.Dial(sockPath); err == nil {
		t.Fatal("expected dial to fail after server stop")
	}
}

func TestSecondServerRefused(t *testing.T) {
	sockPath, srv := startTestServer(t, newMemCatalog())
	defer srv.Stop()

	other := socketrpc.NewServer(sockPath, newMemCatalog())
	if err := other.Start(); err == nil {
		other.Stop()
		t.Fatal("expected second server on the same socket to fail")
	}
}

func TestStopIdempotent(t *testing.T) {
	sockPath := filepath.Join(t.TempDir(), "idempotent.sock")
	srv := socketrpc.NewServer(sockPath, newMemCatalog())
	if err := srv.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	srv.Stop()
	srv.Stop()
}

func TestStopClosesConns(t *testing.T) {
	sockPath, srv := startTestServer(t, newMemCatalog())
	client, err := socketrpc.Dial(sockPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	srv.Stop()

	done := make(chan error, 1)
	go func() {
		_, callErr := client.GetDashboardList(context.Background())
		done <- callErr
	}()

	select {
	case callErr := <-done:
		if callErr == nil {
			t.Fatal("expected client call to fail after server stop")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("client call hung after server stop")
	}
}
