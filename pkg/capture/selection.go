package capture

import "github.com/sirupsen/logrus"

// Capability is what an element is enabled for.
type Capability string

const (
	CapabilityDrag   Capability = "drag"
	CapabilityResize Capability = "resize"
	CapabilityStyle  Capability = "style"
	CapabilityCSS    Capability = "css"
)

// Capabilities lists every capability in panel order.
var Capabilities = []Capability{CapabilityDrag, CapabilityResize, CapabilityStyle, CapabilityCSS}

const (
	// HighlightClass marks the element under the pointer in selection mode.
	HighlightClass = "ds-highlight"
	// OverlayClass marks the selection surface.
	OverlayClass = "ds-select-overlay"
)

// SelectionMode picks the next clicked element for a capability through a
// full-viewport surface.
type SelectionMode struct {
	doc         Document
	logger      *logrus.Entry
	commit      func(Element, Capability)
	overlay     Overlay
	capability  Capability
	highlighted Element
}

// NewSelectionMode returns an inactive selection mode. commit is called with
// the clicked element.
func NewSelectionMode(doc Document, logger *logrus.Entry, commit func(Element, Capability)) *SelectionMode {
	return &SelectionMode{doc: doc, logger: loggerOr(logger), commit: commit}
}

// Active reports whether the surface is up.
func (m *SelectionMode) Active() bool { return m.overlay != nil }

// Capability returns the capability being selected for.
func (m *SelectionMode) Capability() Capability { return m.capability }

// Start raises the surface. It is a no-op returning false while active.
func (m *SelectionMode) Start(c Capability) bool {
	if m.overlay != nil {
		return false
	}
	m.overlay = m.doc.NewOverlay()
	m.overlay.Element().AddClass(OverlayClass)
	m.capability = c
	m.logger.WithField("capability", c).Debug("Selection mode started")
	return true
}

// Hover highlights the element beneath the surface at (x, y).
func (m *SelectionMode) Hover(x, y float64) Element {
	if m.overlay == nil {
		return nil
	}
	el := m.beneath(x, y)
	if el == m.highlighted {
		return el
	}
	m.clearHighlight()
	if el != nil {
		el.AddClass(HighlightClass)
		m.highlighted = el
	}
	return el
}

// Click commits the element beneath (x, y) and exits. Clicking on nothing
// selectable keeps the mode active.
func (m *SelectionMode) Click(x, y float64) Element {
	if m.overlay == nil {
		return nil
	}
	el := m.beneath(x, y)
	if el == nil {
		return nil
	}
	c := m.capability
	m.Cancel()
	if m.commit != nil {
		m.commit(el, c)
	}
	return el
}

// Cancel removes the surface and any highlight.
func (m *SelectionMode) Cancel() {
	m.clearHighlight()
	if m.overlay != nil {
		m.overlay.Remove()
		m.overlay = nil
	}
	m.capability = ""
}

func (m *SelectionMode) clearHighlight() {
	if m.highlighted != nil {
		m.highlighted.RemoveClass(HighlightClass)
		m.highlighted = nil
	}
}

// beneath hit-tests with the surface excluded. The body, the root and the
// panel are never selectable.
func (m *SelectionMode) beneath(x, y float64) Element {
	m.overlay.SetPassThrough(true)
	el := m.doc.ElementFromPoint(x, y)
	m.overlay.SetPassThrough(false)

	if el == nil || el == m.doc.Body() || el == m.doc.Root() || el == m.overlay.Element() {
		return nil
	}
	if el.Closest("#"+PanelID) != nil {
		return nil
	}
	return el
}
