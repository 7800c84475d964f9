package capture

import (
	"github.com/sirupsen/logrus"

	"github.com/grovetools/devsync/pkg/models"
)

const attrStyleSync = "data-dev-sync"

// StyleObserver emits an InlineStyle event for every style attribute
// mutation on an opted-in element.
type StyleObserver struct {
	doc     Document
	ns      Namespace
	out     emitter
	tracked map[Element]struct{}
	order   []Element
	stop    func()
}

// NewStyleObserver returns an observer with nothing opted in.
func NewStyleObserver(doc Document, ns Namespace, sink Sink, logger *logrus.Entry) *StyleObserver {
	return &StyleObserver{
		doc:     doc,
		ns:      ns,
		out:     emitter{sink: sink, logger: loggerOr(logger)},
		tracked: make(map[Element]struct{}),
	}
}

// Track opts el in. Observation of the document starts with the first one.
func (o *StyleObserver) Track(el Element) bool {
	if el == nil {
		return false
	}
	if _, ok := o.tracked[el]; ok {
		return false
	}
	el.SetAttr(attrStyleSync, "true")
	o.tracked[el] = struct{}{}
	o.order = append(o.order, el)
	if o.stop == nil {
		o.stop = o.doc.Observe(o.doc.Root(), o.handle)
	}
	return true
}

// Untrack opts el out.
func (o *StyleObserver) Untrack(el Element) bool {
	if _, ok := o.tracked[el]; !ok {
		return false
	}
	el.RemoveAttr(attrStyleSync)
	delete(o.tracked, el)
	for i, e := range o.order {
		if e == el {
			o.order = append(o.order[:i], o.order[i+1:]...)
			break
		}
	}
	return true
}

// Tracked reports whether el is opted in.
func (o *StyleObserver) Tracked(el Element) bool {
	_, ok := o.tracked[el]
	return ok
}

// Stop opts every element out and ends observation.
func (o *StyleObserver) Stop() {
	for _, el := range append([]Element(nil), o.order...) {
		o.Untrack(el)
	}
	if o.stop != nil {
		o.stop()
		o.stop = nil
	}
}

func (o *StyleObserver) handle(muts []Mutation) {
	for _, m := range muts {
		if m.Attribute != "style" || m.Target == nil {
			continue
		}
		if _, ok := o.tracked[m.Target]; !ok {
			continue
		}
		style, _ := m.Target.Attr("style")
		if style == "" {
			continue
		}
		o.out.emit(models.NewInlineStyle(SelectorFor(m.Target, o.ns), style, o.doc.Location()))
	}
}
