package duckdb

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tinytelemetry/portal/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore("")
	if err != nil {
		t.Fatalf("NewStore(\"\") failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestWidgets_UpsertAndList(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, w := range []model.WidgetDescriptor{
		{Name: "Table", Category: "data"},
		{Name: "LineChart", Title: "Line chart", Category: "charts"},
	} {
		if err := store.UpsertWidget(ctx, w, map[string]any{"refresh": 5}); err != nil {
			t.Fatalf("UpsertWidget(%s): %v", w.Name, err)
		}
	}

	widgets, err := store.GetWidgetsInfo(ctx)
	if err != nil {
		t.Fatalf("GetWidgetsInfo: %v", err)
	}
	if len(widgets) != 2 {
		t.Fatalf("len(widgets) = %d, want 2", len(widgets))
	}
	if widgets[0].Name != "LineChart" || widgets[1].Name != "Table" {
		t.Errorf("widgets = %v, want ordered by name", widgets)
	}

	// Replacing keeps a single row.
	if err := store.UpsertWidget(ctx, model.WidgetDescriptor{Name: "Table", Title: "Grid"}, nil); err != nil {
		t.Fatalf("UpsertWidget replace: %v", err)
	}
	widgets, _ = store.GetWidgetsInfo(ctx)
	if len(widgets) != 2 || widgets[1].Title != "Grid" {
		t.Errorf("after replace widgets = %v", widgets)
	}
}

func TestWidgets_Definition(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.UpsertWidget(ctx, model.WidgetDescriptor{Name: "Gauge"}, map[string]any{"max": 100.0})
	if err != nil {
		t.Fatalf("UpsertWidget: %v", err)
	}

	def, err := store.GetWidgetDefinition(ctx, "Gauge")
	if err != nil {
		t.Fatalf("GetWidgetDefinition: %v", err)
	}
	if def.Config["max"] != 100.0 {
		t.Errorf("config = %v, want max=100", def.Config)
	}

	_, err = store.GetWidgetDefinition(ctx, "missing")
	if !errors.Is(err, model.ErrNotFound) {
		t.Errorf("missing widget err = %v, want ErrNotFound", err)
	}
}

func TestWidgets_RejectsEmptyName(t *testing.T) {
	store := newTestStore(t)

	err := store.UpsertWidget(context.Background(), model.WidgetDescriptor{}, nil)
	if !errors.Is(err, model.ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
}

func TestDashboards_CreateGetList(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.CreateDashboard(ctx, model.DashboardDescriptor{
		URL:    "ops",
		Name:   "Operations",
		Owner:  "admin",
		Panels: []string{"LineChart", "Table"},
	})
	if err != nil {
		t.Fatalf("CreateDashboard: %v", err)
	}
	if created.UpdatedAt.IsZero() {
		t.Error("CreateDashboard did not stamp UpdatedAt")
	}

	got, err := store.GetDashboard(ctx, "ops")
	if err != nil {
		t.Fatalf("GetDashboard: %v", err)
	}
	if got.Name != "Operations" || len(got.Panels) != 2 || got.Panels[1] != "Table" {
		t.Errorf("GetDashboard = %+v", got)
	}
	if !got.UpdatedAt.Equal(created.UpdatedAt) {
		t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, created.UpdatedAt)
	}

	if _, err := store.CreateDashboard(ctx, model.DashboardDescriptor{URL: "sales", Name: "Sales"}); err != nil {
		t.Fatalf("CreateDashboard sales: %v", err)
	}

	list, err := store.GetDashboardList(ctx)
	if err != nil {
		t.Fatalf("GetDashboardList: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len(list) = %d, want 2", len(list))
	}

	widgets, dashboards, err := store.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if widgets != 0 || dashboards != 2 {
		t.Errorf("Counts = (%d, %d), want (0, 2)", widgets, dashboards)
	}
}

func TestDashboards_CreateConflict(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	d := model.DashboardDescriptor{URL: "ops", Name: "Operations"}
	if _, err := store.CreateDashboard(ctx, d); err != nil {
		t.Fatalf("first CreateDashboard: %v", err)
	}
	_, err := store.CreateDashboard(ctx, d)
	if !errors.Is(err, model.ErrConflict) {
		t.Fatalf("duplicate CreateDashboard err = %v, want ErrConflict", err)
	}

	// Upsert replaces without a conflict.
	d.Name = "Ops v2"
	if err := store.UpsertDashboard(ctx, d); err != nil {
		t.Fatalf("UpsertDashboard: %v", err)
	}
	got, _ := store.GetDashboard(ctx, "ops")
	if got.Name != "Ops v2" {
		t.Errorf("name after upsert = %q", got.Name)
	}
}

func TestDashboards_Validation(t *testing.T) {
	store := newTestStore(t)

	_, err := store.CreateDashboard(context.Background(), model.DashboardDescriptor{URL: "Bad URL", Name: "x"})
	if !errors.Is(err, model.ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
}

func TestDashboards_GetMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetDashboard(context.Background(), "nope")
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestQueryTimeoutDefault(t *testing.T) {
	store := newTestStore(t)
	if store.QueryTimeout != DefaultQueryTimeout {
		t.Errorf("QueryTimeout = %v, want %v", store.QueryTimeout, DefaultQueryTimeout)
	}

	custom, err := NewStore("", 5*time.Second)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer custom.Close()
	if custom.QueryTimeout != 5*time.Second {
		t.Errorf("QueryTimeout = %v, want 5s", custom.QueryTimeout)
	}
}

func TestExportTo_CreatesFile(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "portal.duckdb")
	store, err := NewStore(dbPath)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	if err := store.UpsertDashboard(context.Background(), model.DashboardDescriptor{URL: "ops", Name: "Ops"}); err != nil {
		t.Fatalf("UpsertDashboard: %v", err)
	}

	exportPath := filepath.Join(t.TempDir(), "exports", "portal.duckdb")
	if err := store.ExportTo(exportPath); err != nil {
		t.Fatalf("ExportTo: %v", err)
	}

	info, err := os.Stat(exportPath)
	if err != nil {
		t.Fatalf("stat export: %v", err)
	}
	if info.Size() == 0 {
		t.Fatal("export file is empty")
	}
}

func TestExportTo_InMemoryStore(t *testing.T) {
	t.Parallel()

	store, err := NewStore("")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	err = store.ExportTo(filepath.Join(t.TempDir(), "portal.duckdb"))
	if !errors.Is(err, ErrInMemoryStore) {
		t.Fatalf("err = %v, want %v", err, ErrInMemoryStore)
	}
}
