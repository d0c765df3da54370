package duckdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tinytelemetry/portal/internal/model"
)

var _ model.PortalAPI = (*Store)(nil)

// UpsertWidget inserts or replaces a widget and its definition config.
func (s *Store) UpsertWidget(ctx context.Context, w model.WidgetDescriptor, config map[string]any) error {
	if w.Name == "" {
		return fmt.Errorf("%w: widget name is required", model.ErrInvalid)
	}
	if config == nil {
		config = map[string]any{}
	}
	cfg, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("encode widget config: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO widgets (name, title, category, description, config)
		VALUES (?, ?, ?, ?, ?)`,
		w.Name, w.Title, w.Category, w.Description, string(cfg))
	return err
}

// GetWidgetsInfo returns every widget ordered by name.
func (s *Store) GetWidgetsInfo(ctx context.Context) ([]model.WidgetDescriptor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT name, title, category, description
		FROM widgets
		ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	widgets := make([]model.WidgetDescriptor, 0)
	for rows.Next() {
		var w model.WidgetDescriptor
		if err := rows.Scan(&w.Name, &w.Title, &w.Category, &w.Description); err != nil {
			return nil, err
		}
		widgets = append(widgets, w)
	}
	return widgets, rows.Err()
}

// GetWidgetDefinition returns the preloadable definition of one widget.
func (s *Store) GetWidgetDefinition(ctx context.Context, name string) (model.WidgetDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	var def model.WidgetDefinition
	var cfg string
	err := s.db.QueryRowContext(ctx,
		`SELECT name, title, config FROM widgets WHERE name = ?`, name,
	).Scan(&def.Name, &def.Title, &cfg)
	if errors.Is(err, sql.ErrNoRows) {
		return def, fmt.Errorf("widget %q: %w", name, model.ErrNotFound)
	}
	if err != nil {
		return def, err
	}
	if err := json.Unmarshal([]byte(cfg), &def.Config); err != nil {
		return def, fmt.Errorf("decode widget config: %w", err)
	}
	return def, nil
}

// CreateDashboard stores a new dashboard. It fails with model.ErrConflict when
// the URL is already taken.
func (s *Store) CreateDashboard(ctx context.Context, d model.DashboardDescriptor) (model.DashboardDescriptor, error) {
	if err := model.ValidateDashboard(d); err != nil {
		return d, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	var exists int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM dashboards WHERE url = ?`, d.URL).Scan(&exists); err != nil {
		return d, err
	}
	if exists > 0 {
		return d, fmt.Errorf("dashboard %q: %w", d.URL, model.ErrConflict)
	}

	if d.UpdatedAt.IsZero() {
		d.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)
	}
	if err := s.writeDashboard(ctx, d); err != nil {
		return d, err
	}
	return d, nil
}

// UpsertDashboard inserts or replaces a dashboard without a conflict check.
func (s *Store) UpsertDashboard(ctx context.Context, d model.DashboardDescriptor) error {
	if err := model.ValidateDashboard(d); err != nil {
		return err
	}
	if d.UpdatedAt.IsZero() {
		d.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	return s.writeDashboard(ctx, d)
}

// writeDashboard must be called with s.mu held for writing.
func (s *Store) writeDashboard(ctx context.Context, d model.DashboardDescriptor) error {
	panels := d.Panels
	if panels == nil {
		panels = []string{}
	}
	encoded, err := json.Marshal(panels)
	if err != nil {
		return fmt.Errorf("encode panels: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO dashboards (url, name, description, owner, panels, landing_page, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		d.URL, d.Name, d.Description, d.Owner, string(encoded), d.LandingPage, d.UpdatedAt)
	return err
}

// GetDashboardList returns every dashboard. Callers own the ordering; the
// listing page sorts by URL itself.
func (s *Store) GetDashboardList(ctx context.Context) ([]model.DashboardDescriptor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT url, name, description, owner, panels, landing_page, updated_at
		FROM dashboards`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	dashboards := make([]model.DashboardDescriptor, 0)
	for rows.Next() {
		d, err := scanDashboard(rows)
		if err != nil {
			return nil, err
		}
		dashboards = append(dashboards, d)
	}
	return dashboards, rows.Err()
}

// GetDashboard returns one dashboard by URL.
func (s *Store) GetDashboard(ctx context.Context, url string) (model.DashboardDescriptor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	row := s.db.QueryRowContext(ctx, `
		SELECT url, name, description, owner, panels, landing_page, updated_at
		FROM dashboards WHERE url = ?`, url)
	d, err := scanDashboard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return d, fmt.Errorf("dashboard %q: %w", url, model.ErrNotFound)
	}
	return d, err
}

// Counts returns the number of stored widgets and dashboards.
func (s *Store) Counts(ctx context.Context) (widgets, dashboards int64, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	err = s.db.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM widgets), (SELECT COUNT(*) FROM dashboards)`,
	).Scan(&widgets, &dashboards)
	return widgets, dashboards, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDashboard(r rowScanner) (model.DashboardDescriptor, error) {
	var d model.DashboardDescriptor
	var panels string
	if err := r.Scan(&d.URL, &d.Name, &d.Description, &d.Owner, &panels, &d.LandingPage, &d.UpdatedAt); err != nil {
		return d, err
	}
	if err := json.Unmarshal([]byte(panels), &d.Panels); err != nil {
		return d, fmt.Errorf("decode panels for %q: %w", d.URL, err)
	}
	return d, nil
}
