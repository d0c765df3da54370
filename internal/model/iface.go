package model

import "context"

// WidgetInfoAPI serves the widget catalog.
type WidgetInfoAPI interface {
	GetWidgetsInfo(ctx context.Context) ([]WidgetDescriptor, error)
	GetWidgetDefinition(ctx context.Context, name string) (WidgetDefinition, error)
}

// DashboardAPI serves saved dashboards.
type DashboardAPI interface {
	GetDashboardList(ctx context.Context) ([]DashboardDescriptor, error)
	GetDashboard(ctx context.Context, url string) (DashboardDescriptor, error)
	CreateDashboard(ctx context.Context, d DashboardDescriptor) (DashboardDescriptor, error)
}

// PortalAPI is the unified read/write contract for read surfaces (HTTP and socket RPC)
// and for the clients that consume them.
type PortalAPI interface {
	WidgetInfoAPI
	DashboardAPI
}
