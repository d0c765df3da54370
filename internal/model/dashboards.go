package model

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

var dashboardURLPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// SortDashboardsByURL orders dashboards ascending by URL using a byte-wise,
// case-sensitive three-way comparison. Equal URLs keep their relative order.
func SortDashboardsByURL(dashboards []DashboardDescriptor) {
	slices.SortStableFunc(dashboards, func(a, b DashboardDescriptor) int {
		return strings.Compare(a.URL, b.URL)
	})
}

// ValidateDashboard checks the fields required to create a dashboard.
func ValidateDashboard(d DashboardDescriptor) error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if d.URL == "" {
		return fmt.Errorf("%w: url is required", ErrInvalid)
	}
	if !dashboardURLPattern.MatchString(d.URL) {
		return fmt.Errorf("%w: url %q must be lowercase letters, digits and dashes", ErrInvalid, d.URL)
	}
	return nil
}
