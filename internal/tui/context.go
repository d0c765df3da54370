package tui

import (
	"time"

	"github.com/tinytelemetry/portal/internal/model"
)

// Deps carries the collaborators and settings shared by every page.
type Deps struct {
	API                model.PortalAPI
	DataSource         string // shown in the status line, e.g. "HTTP" or "Socket"
	NoticeDuration     time.Duration
	RequestTimeout     time.Duration
	ReverseScrollWheel bool
}

func (d Deps) noticeDuration() time.Duration {
	if d.NoticeDuration <= 0 {
		return model.DefaultNoticeDuration
	}
	return d.NoticeDuration
}

// ModalContext provides read-only context to modals.
type ModalContext struct {
	ReverseScrollWheel bool
}

func (d Deps) modalContext() ModalContext {
	return ModalContext{ReverseScrollWheel: d.ReverseScrollWheel}
}
