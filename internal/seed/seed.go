// Package seed loads a widget and dashboard catalog from YAML and writes it
// into a catalog store.
package seed

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/tinytelemetry/portal/internal/model"
	"gopkg.in/yaml.v3"
)

// Widget is one catalog widget together with the definition config the
// layout engine preloads.
type Widget struct {
	Name        string         `yaml:"name"`
	Title       string         `yaml:"title"`
	Category    string         `yaml:"category"`
	Description string         `yaml:"description"`
	Config      map[string]any `yaml:"config"`
}

// Dashboard is one catalog dashboard.
type Dashboard struct {
	URL         string   `yaml:"url"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Owner       string   `yaml:"owner"`
	Panels      []string `yaml:"panels"`
	LandingPage string   `yaml:"landing_page"`
}

// Catalog is the top-level seed document.
type Catalog struct {
	Widgets    []Widget    `yaml:"widgets"`
	Dashboards []Dashboard `yaml:"dashboards"`
}

// Writer is the store contract Apply needs.
type Writer interface {
	UpsertWidget(ctx context.Context, w model.WidgetDescriptor, config map[string]any) error
	UpsertDashboard(ctx context.Context, d model.DashboardDescriptor) error
}

// Load reads a catalog file.
func Load(path string) (Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("seed: open %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes a catalog and checks that every dashboard is valid and only
// references widgets the catalog declares.
func Parse(r io.Reader) (Catalog, error) {
	var c Catalog
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && err != io.EOF {
		return Catalog{}, fmt.Errorf("seed: decode: %w", err)
	}
	if err := c.validate(); err != nil {
		return Catalog{}, err
	}
	return c, nil
}

func (c Catalog) validate() error {
	known := make(map[string]bool, len(c.Widgets))
	for i, w := range c.Widgets {
		if w.Name == "" {
			return fmt.Errorf("seed: widget #%d has no name", i+1)
		}
		if known[w.Name] {
			return fmt.Errorf("seed: duplicate widget %q", w.Name)
		}
		known[w.Name] = true
	}
	for _, d := range c.Dashboards {
		if err := model.ValidateDashboard(d.descriptor()); err != nil {
			return fmt.Errorf("seed: dashboard %q: %w", d.URL, err)
		}
		for _, p := range d.Panels {
			if !known[p] {
				return fmt.Errorf("seed: dashboard %q references unknown widget %q", d.URL, p)
			}
		}
	}
	return nil
}

func (d Dashboard) descriptor() model.DashboardDescriptor {
	return model.DashboardDescriptor{
		URL:         d.URL,
		Name:        d.Name,
		Description: d.Description,
		Owner:       d.Owner,
		Panels:      d.Panels,
		LandingPage: d.LandingPage,
	}
}

// Apply upserts every widget and dashboard in the catalog.
func Apply(ctx context.Context, w Writer, c Catalog) error {
	for _, wd := range c.Widgets {
		desc := model.WidgetDescriptor{
			Name:        wd.Name,
			Title:       wd.Title,
			Category:    wd.Category,
			Description: wd.Description,
		}
		if err := w.UpsertWidget(ctx, desc, wd.Config); err != nil {
			return fmt.Errorf("seed: widget %q: %w", wd.Name, err)
		}
	}
	for _, d := range c.Dashboards {
		if err := w.UpsertDashboard(ctx, d.descriptor()); err != nil {
			return fmt.Errorf("seed: dashboard %q: %w", d.URL, err)
		}
	}
	return nil
}
