package capture

import (
	"math"

	"github.com/sirupsen/logrus"

	"github.com/grovetools/devsync/pkg/models"
)

const handleCSS = "position:absolute;right:-6px;bottom:-6px;width:12px;height:12px;" +
	"background:#3182ce;border-radius:50%;cursor:se-resize;z-index:10001;" +
	"border:2px solid #fff;box-shadow:0 2px 4px rgba(0,0,0,0.3);"

type resizeTrack struct {
	handle Element
	saved  savedStyle
}

type resizeGesture struct {
	el             Element
	startX, startY float64
	startW, startH int
	saved          savedStyle
}

// ResizeController resizes tracked elements from their handle and emits one
// Resize event per completed gesture.
type ResizeController struct {
	doc     Document
	ns      Namespace
	out     emitter
	minSize float64
	tracked map[Element]*resizeTrack
	order   []Element
	active  *resizeGesture
}

// NewResizeController returns an idle controller. A minSize of zero or less
// uses DefaultMinSize.
func NewResizeController(doc Document, ns Namespace, minSize float64, sink Sink, logger *logrus.Entry) *ResizeController {
	if minSize <= 0 {
		minSize = DefaultMinSize
	}
	return &ResizeController{
		doc:     doc,
		ns:      ns,
		out:     emitter{sink: sink, logger: loggerOr(logger)},
		minSize: minSize,
		tracked: make(map[Element]*resizeTrack),
	}
}

// Enable makes el resizable and appends its handle. It returns false if el
// already is.
func (c *ResizeController) Enable(el Element) bool {
	if el == nil {
		return false
	}
	if _, ok := c.tracked[el]; ok {
		return false
	}
	w, h := sizeOf(el, "width"), sizeOf(el, "height")
	t := &resizeTrack{saved: save(el, "position", "outline", "outline-offset", "width", "height")}

	el.SetStyle("position", "relative")
	el.SetStyle("outline", "2px solid #3182ce")
	el.SetStyle("outline-offset", "2px")
	el.SetStyle("width", px(float64(w)))
	el.SetStyle("height", px(float64(h)))
	el.SetAttr(attrResizable, "true")

	handle := c.doc.CreateElement("div")
	handle.AddClass(HandleClass)
	handle.SetAttr("style", handleCSS)
	el.AppendChild(handle)
	t.handle = handle

	c.tracked[el] = t
	c.order = append(c.order, el)
	return true
}

// Disable removes the handle and outline. The element keeps its current
// size; only the properties Enable added for tracking are reverted.
func (c *ResizeController) Disable(el Element) bool {
	t, ok := c.tracked[el]
	if !ok {
		return false
	}
	if c.active != nil && c.active.el == el {
		c.active.saved.restore(el)
		c.active = nil
	}
	t.handle.Remove()
	el.SetStyle("outline", t.saved["outline"])
	el.SetStyle("outline-offset", t.saved["outline-offset"])
	el.SetStyle("position", t.saved["position"])
	el.RemoveAttr(attrResizable)
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
func (c *ResizeController) DisableAll() {
	for _, el := range append([]Element(nil), c.order...) {
		c.Disable(el)
	}
}

// Tracked reports whether el is resizable.
func (c *ResizeController) Tracked(el Element) bool {
	_, ok := c.tracked[el]
	return ok
}

// Handle returns the resize handle of a tracked element.
func (c *ResizeController) Handle(el Element) Element {
	if t, ok := c.tracked[el]; ok {
		return t.handle
	}
	return nil
}

// Active reports whether a gesture is in progress.
func (c *ResizeController) Active() bool { return c.active != nil }

// PointerDown starts a gesture when ev lands on the handle of a tracked
// element.
func (c *ResizeController) PointerDown(ev PointerEvent) bool {
	if c.active != nil || ev.Target == nil || !ev.Target.HasClass(HandleClass) {
		return false
	}
	el := ev.Target.Parent()
	if el == nil {
		return false
	}
	if _, ok := c.tracked[el]; !ok {
		return false
	}
	c.active = &resizeGesture{
		el:     el,
		startX: ev.X,
		startY: ev.Y,
		startW: sizeOf(el, "width"),
		startH: sizeOf(el, "height"),
		saved:  save(el, "opacity"),
	}
	el.SetStyle("opacity", "0.8")
	return true
}

// PointerMove applies the new size, never below the floor.
func (c *ResizeController) PointerMove(ev PointerEvent) bool {
	g := c.active
	if g == nil {
		return false
	}
	w := math.Max(c.minSize, float64(g.startW)+ev.X-g.startX)
	h := math.Max(c.minSize, float64(g.startH)+ev.Y-g.startY)
	g.el.SetStyle("width", px(w))
	g.el.SetStyle("height", px(h))
	return true
}

// PointerUp ends the gesture and emits the final size.
func (c *ResizeController) PointerUp(ev PointerEvent) (models.ChangeEvent, bool) {
	g := c.active
	if g == nil {
		return models.ChangeEvent{}, false
	}
	c.active = nil
	g.saved.restore(g.el)

	change := models.NewResize(SelectorFor(g.el, c.ns), g.el.Style("width"), g.el.Style("height"), c.doc.Location())
	c.out.emit(change)
	return change, true
}
