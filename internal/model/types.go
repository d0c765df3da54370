package model

import "time"

// WidgetDescriptor identifies a draggable widget type.
// Name is the identity and the only field the widget panel searches on.
type WidgetDescriptor struct {
	Name        string `json:"name"`
	Title       string `json:"title,omitempty"`
	Category    string `json:"category,omitempty"`
	Description string `json:"description,omitempty"`
}

// WidgetDefinition is the implementation a layout engine preloads for a widget.
type WidgetDefinition struct {
	Name   string         `json:"name"`
	Title  string         `json:"title,omitempty"`
	Config map[string]any `json:"config,omitempty"`
}

// DashboardDescriptor identifies a saved dashboard, keyed by URL.
type DashboardDescriptor struct {
	URL         string    `json:"url"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Owner       string    `json:"owner,omitempty"`
	Panels      []string  `json:"panels,omitempty"` // widget names placed on the dashboard
	LandingPage string    `json:"landingPage,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt,omitempty"`
}

// ListEnvelope is the `{ "data": [...] }` wrapper every list endpoint returns.
type ListEnvelope[T any] struct {
	Data []T `json:"data"`
}

// ItemEnvelope wraps a single resource the same way.
type ItemEnvelope[T any] struct {
	Data T `json:"data"`
}
