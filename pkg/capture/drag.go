package capture

import (
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/grovetools/devsync/pkg/models"
)

const (
	// PanelID is the id of the control panel element.
	PanelID = "dev-sync-panel"
	// HandleClass marks the resize handle appended to resizable elements.
	HandleClass = "dev-sync-resize-handle"

	attrDraggable = "data-draggable"
	attrResizable = "data-resizable"
)

// isControl reports whether el belongs to devsync's own UI.
func isControl(el Element) bool {
	if el == nil {
		return false
	}
	if el.HasClass(HandleClass) {
		return true
	}
	return el.Closest("#"+PanelID) != nil
}

// trackedAncestor finds el or its nearest ancestor in set.
func trackedAncestor[T any](el Element, set map[Element]T) Element {
	for cur := el; cur != nil; cur = cur.Parent() {
		if _, ok := set[cur]; ok {
			return cur
		}
	}
	return nil
}

type dragTrack struct {
	setPosRel  bool
	prevCursor string
}

type dragGesture struct {
	el             Element
	startX, startY float64
	startL, startT int
	saved          savedStyle
}

// DragController moves tracked elements with the pointer and emits one Drag
// event per completed gesture.
type DragController struct {
	doc     Document
	ns      Namespace
	out     emitter
	tracked map[Element]*dragTrack
	order   []Element
	active  *dragGesture
}

// NewDragController returns an idle controller.
func NewDragController(doc Document, ns Namespace, sink Sink, logger *logrus.Entry) *DragController {
	return &DragController{
		doc:     doc,
		ns:      ns,
		out:     emitter{sink: sink, logger: loggerOr(logger)},
		tracked: make(map[Element]*dragTrack),
	}
}

// Enable makes el draggable. It returns false if el already is.
func (c *DragController) Enable(el Element) bool {
	if el == nil {
		return false
	}
	if _, ok := c.tracked[el]; ok {
		return false
	}
	t := &dragTrack{prevCursor: el.Style("cursor")}
	el.SetStyle("cursor", "move")
	if pos := el.ComputedStyle("position"); pos == "" || pos == "static" {
		el.SetStyle("position", "relative")
		t.setPosRel = true
	}
	el.SetAttr(attrDraggable, "true")
	c.tracked[el] = t
	c.order = append(c.order, el)
	return true
}

// Disable reverses Enable. An active gesture on el is abandoned.
func (c *DragController) Disable(el Element) bool {
	t, ok := c.tracked[el]
	if !ok {
		return false
	}
	if c.active != nil && c.active.el == el {
		c.active.saved.restore(el)
		c.active = nil
	}
	el.SetStyle("cursor", t.prevCursor)
	if t.setPosRel {
		el.SetStyle("position", "")
	}
	el.RemoveAttr(attrDraggable)
	delete(c.tracked, el)
	for i, e := range c.order {
		if e == el {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true
}

// DisableAll disables every tracked element.
func (c *DragController) DisableAll() {
	for _, el := range append([]Element(nil), c.order...) {
		c.Disable(el)
	}
}

// Tracked reports whether el is draggable.
func (c *DragController) Tracked(el Element) bool {
	_, ok := c.tracked[el]
	return ok
}

// Active reports whether a gesture is in progress.
func (c *DragController) Active() bool { return c.active != nil }

// PointerDown starts a gesture when ev lands on a tracked element outside
// the control surfaces.
func (c *DragController) PointerDown(ev PointerEvent) bool {
	if c.active != nil || isControl(ev.Target) {
		return false
	}
	el := trackedAncestor(ev.Target, c.tracked)
	if el == nil {
		return false
	}
	c.active = &dragGesture{
		el:     el,
		startX: ev.X,
		startY: ev.Y,
		startL: parseLength(el.ComputedStyle("left")),
		startT: parseLength(el.ComputedStyle("top")),
		saved:  save(el, "opacity", "z-index"),
	}
	el.SetStyle("opacity", "0.8")
	el.SetStyle("z-index", "10000")
	return true
}

// PointerMove applies the offset of the pointer since PointerDown.
func (c *DragController) PointerMove(ev PointerEvent) bool {
	g := c.active
	if g == nil {
		return false
	}
	g.el.SetStyle("left", px(float64(g.startL)+ev.X-g.startX))
	g.el.SetStyle("top", px(float64(g.startT)+ev.Y-g.startY))
	return true
}

// PointerUp ends the gesture and emits the final position. It returns the
// event and whether a gesture was active.
func (c *DragController) PointerUp(ev PointerEvent) (models.ChangeEvent, bool) {
	g := c.active
	if g == nil {
		return models.ChangeEvent{}, false
	}
	c.active = nil
	g.saved.restore(g.el)

	left, top := g.el.Style("left"), g.el.Style("top")
	if left == "" {
		left = strconv.Itoa(g.startL) + "px"
	}
	if top == "" {
		top = strconv.Itoa(g.startT) + "px"
	}
	change := models.NewDrag(SelectorFor(g.el, c.ns), left, top, c.doc.Location())
	c.out.emit(change)
	return change, true
}
