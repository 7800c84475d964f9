package capture

import (
	"github.com/sirupsen/logrus"

	"github.com/grovetools/devsync/pkg/models"
)

// Options configures a Session.
type Options struct {
	// Namespace defaults to DefaultNamespace.
	Namespace Namespace
	// MinSize defaults to DefaultMinSize.
	MinSize float64
	Sink    Sink
	Logger  *logrus.Entry
}

// Session owns the capture side for one document: the controllers, the
// style observer, the rule watcher, selection mode and the panel.
type Session struct {
	doc    Document
	ns     Namespace
	logger *logrus.Entry

	drag      *DragController
	resize    *ResizeController
	observer  *StyleObserver
	rules     *RuleWatcher
	selection *SelectionMode
	panel     *Panel
}

// NewSession wires a session over doc. Nothing is mounted or tracked yet.
func NewSession(doc Document, opts Options) *Session {
	ns := opts.Namespace
	if len(ns.Prefixes) == 0 {
		ns = DefaultNamespace
	}
	logger := loggerOr(opts.Logger)
	s := &Session{doc: doc, ns: ns, logger: logger}
	s.drag = NewDragController(doc, ns, opts.Sink, logger)
	s.resize = NewResizeController(doc, ns, opts.MinSize, opts.Sink, logger)
	s.observer = NewStyleObserver(doc, ns, opts.Sink, logger)
	s.rules = NewRuleWatcher(doc, opts.Sink, logger)
	s.selection = NewSelectionMode(doc, logger, func(el Element, c Capability) { s.enable(el, c) })
	s.panel = NewPanel(doc, PanelHandlers{
		OnAction: func(c Capability) { s.StartSelection(c) },
		OnRemove: s.disableEntry,
		OnDone:   func() { s.Done() },
	})
	return s
}

func (s *Session) Drag() *DragController     { return s.drag }
func (s *Session) Resize() *ResizeController { return s.resize }
func (s *Session) Observer() *StyleObserver  { return s.observer }
func (s *Session) Rules() *RuleWatcher       { return s.rules }
func (s *Session) Selection() *SelectionMode { return s.selection }
func (s *Session) Panel() *Panel             { return s.panel }

// Mount shows the panel.
func (s *Session) Mount() { s.panel.Mount() }

// EnableDrag tracks el for dragging.
func (s *Session) EnableDrag(el Element) bool { return s.enable(el, CapabilityDrag) }

// EnableResize tracks el for resizing.
func (s *Session) EnableResize(el Element) bool { return s.enable(el, CapabilityResize) }

// EnableStyleSync opts el into inline style mutation capture.
func (s *Session) EnableStyleSync(el Element) bool { return s.enable(el, CapabilityStyle) }

// WatchCSS registers a rule selector for snapshot diffing.
func (s *Session) WatchCSS(selector string) bool {
	if !s.rules.Watch(selector) {
		return false
	}
	s.panel.Add(Entry{Selector: selector, Capability: CapabilityCSS})
	return true
}

// StartSelection enters selection mode for c.
func (s *Session) StartSelection(c Capability) bool { return s.selection.Start(c) }

// Done runs rule change detection.
func (s *Session) Done() []models.ChangeEvent { return s.rules.Detect() }

func (s *Session) enable(el Element, c Capability) bool {
	if el == nil || isControl(el) {
		return false
	}
	var ok bool
	switch c {
	case CapabilityDrag:
		ok = s.drag.Enable(el)
	case CapabilityResize:
		ok = s.resize.Enable(el)
	case CapabilityStyle:
		ok = s.observer.Track(el)
	case CapabilityCSS:
		return s.WatchCSS(SelectorFor(el, s.ns))
	default:
		s.logger.WithField("capability", c).Warn("Unknown capability")
		return false
	}
	if ok {
		sel := SelectorFor(el, s.ns)
		s.panel.Add(Entry{Selector: sel, Capability: c, Element: el})
		s.logger.WithFields(logrus.Fields{"selector": sel, "capability": c}).Info("Element enabled")
	}
	return ok
}

// disableEntry stops tracking the element behind a removed panel entry.
// Entries added by the session carry their element; the selector is only
// resolved for entries added without one.
func (s *Session) disableEntry(e Entry) {
	if e.Capability == CapabilityCSS {
		s.rules.Unwatch(e.Selector)
		return
	}
	el := e.Element
	if el == nil {
		el = s.doc.QuerySelector(e.Selector)
	}
	if el == nil {
		return
	}
	switch e.Capability {
	case CapabilityDrag:
		s.drag.Disable(el)
	case CapabilityResize:
		s.resize.Disable(el)
	case CapabilityStyle:
		s.observer.Untrack(el)
	}
}

// PointerDown routes a pointer-down. Selection mode and the panel take
// precedence over gestures.
func (s *Session) PointerDown(ev PointerEvent) bool {
	if s.selection.Active() {
		return false
	}
	if s.resize.PointerDown(ev) {
		return true
	}
	return s.drag.PointerDown(ev)
}

// PointerMove routes a pointer-move to the active gesture, or to selection
// hover.
func (s *Session) PointerMove(ev PointerEvent) bool {
	if s.selection.Active() {
		return s.selection.Hover(ev.X, ev.Y) != nil
	}
	if s.resize.PointerMove(ev) {
		return true
	}
	return s.drag.PointerMove(ev)
}

// PointerUp completes the active gesture and returns its event.
func (s *Session) PointerUp(ev PointerEvent) (models.ChangeEvent, bool) {
	if change, ok := s.resize.PointerUp(ev); ok {
		return change, true
	}
	return s.drag.PointerUp(ev)
}

// Click routes a click to selection mode or the panel.
func (s *Session) Click(ev PointerEvent) bool {
	if s.selection.Active() {
		return s.selection.Click(ev.X, ev.Y) != nil
	}
	return s.panel.Click(ev.Target)
}

// Disable tears the session down and removes everything it added to the
// document.
func (s *Session) Disable() {
	s.selection.Cancel()
	// Stop observing first so undoing tracking styles emits nothing.
	s.observer.Stop()
	s.drag.DisableAll()
	s.resize.DisableAll()
	s.rules.Reset()
	s.panel.Clear()
	s.panel.Unmount()
	s.logger.Debug("Capture session disabled")
}
