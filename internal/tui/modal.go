package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Modal is a self-contained modal that owns its own Update/View lifecycle.
// The topmost modal of a page's stack receives all input and renders
// full-screen.
type Modal interface {
	// ID returns a unique identifier used to deduplicate pushes.
	ID() string
	// Update processes a message. Return pop=true to close the modal.
	Update(msg tea.Msg) (pop bool, cmd tea.Cmd)
	// View renders the modal content for the given terminal dimensions.
	View(width, height int) string
}

// modalStack is embedded by pages that open modals.
type modalStack struct {
	modals []Modal
}

// push opens m unless a modal with the same ID is already on top.
func (s *modalStack) push(m Modal) {
	if top := s.top(); top != nil && top.ID() == m.ID() {
		return
	}
	s.modals = append(s.modals, m)
}

func (s *modalStack) top() Modal {
	if len(s.modals) == 0 {
		return nil
	}
	return s.modals[len(s.modals)-1]
}

func (s *modalStack) HasModal() bool { return len(s.modals) > 0 }

func (s *modalStack) clearModals() { s.modals = nil }

// updateModal forwards msg to the top modal and pops it when asked.
func (s *modalStack) updateModal(msg tea.Msg) tea.Cmd {
	top := s.top()
	if top == nil {
		return nil
	}
	pop, cmd := top.Update(msg)
	if pop {
		s.modals = s.modals[:len(s.modals)-1]
	}
	return cmd
}

// scrollView is the scrolling behaviour shared by the viewport modals.
type scrollView struct {
	ctx      ModalContext
	viewport viewport.Model
}

func newScrollView(ctx ModalContext) scrollView {
	return scrollView{ctx: ctx, viewport: viewport.New(80, 20)}
}

// update handles scrolling; closeKeys pop the modal.
func (s *scrollView) update(msg tea.Msg, closeKeys ...string) (bool, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			s.viewport.ScrollUp(1)
			return false, nil
		case "down", "j":
			s.viewport.ScrollDown(1)
			return false, nil
		case "pgup":
			s.viewport.HalfPageUp()
			return false, nil
		case "pgdown":
			s.viewport.HalfPageDown()
			return false, nil
		case "escape", "esc":
			return true, nil
		}
		for _, k := range closeKeys {
			if msg.String() == k {
				return true, nil
			}
		}
		var cmd tea.Cmd
		s.viewport, cmd = s.viewport.Update(msg)
		return false, cmd

	case tea.MouseMsg:
		if msg.Action != tea.MouseActionPress {
			return false, nil
		}
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			if s.ctx.ReverseScrollWheel {
				s.viewport.ScrollDown(1)
			} else {
				s.viewport.ScrollUp(1)
			}
		case tea.MouseButtonWheelDown:
			if s.ctx.ReverseScrollWheel {
				s.viewport.ScrollUp(1)
			} else {
				s.viewport.ScrollDown(1)
			}
		}
		return false, nil
	}
	return false, nil
}

// modalContentSize returns the inner content size for a modal frame.
func modalContentSize(width, height int) (int, int) {
	return max(10, width-12), max(3, height-8)
}

// renderModalFrame renders a titled, bordered, centred modal around the viewport.
// content is produced for the inner width.
func renderModalFrame(vp *viewport.Model, title string, status []string, content func(width int) string, width, height int) string {
	modalWidth := width - 8   // 4 chars margin on each side
	modalHeight := height - 4 // 2 lines margin top and bottom

	contentWidth, contentHeight := modalContentSize(width, height)

	vp.Width = contentWidth
	vp.Height = contentHeight
	vp.SetContent(content(contentWidth))

	contentPane := lipgloss.NewStyle().
		Width(contentWidth).
		Height(contentHeight).
		Border(lipgloss.NormalBorder()).
		BorderForeground(ColorGray).
		Render(vp.View())

	header := lipgloss.NewStyle().
		Width(contentWidth).
		Foreground(ColorBlue).
		Bold(true).
		Render(title)

	statusBar := lipgloss.NewStyle().
		Foreground(ColorGray).
		Render(strings.Join(status, " | "))

	modal := lipgloss.JoinVertical(lipgloss.Left, header, contentPane, statusBar)

	finalModal := lipgloss.NewStyle().
		Width(max(modalWidth, contentWidth+2)).
		Height(max(modalHeight, contentHeight+4)).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBlue).
		Render(modal)

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, finalModal)
}

var scrollStatus = []string{"up/down/Wheel: Scroll", "PgUp/PgDn: Page"}
