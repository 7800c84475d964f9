package capture

import "fmt"

const (
	listID         = "ds-enabled-list"
	classListItem  = "ds-list-item"
	classEmpty     = "ds-empty"
	classButton    = "ds-btn"
	classRemove    = "ds-remove"
	classDone      = "ds-done"
	attrAction     = "data-action"
	attrSelector   = "data-selector"
	attrCapability = "data-capability"
)

// Entry is one enabled element in the panel list.
type Entry struct {
	Selector   string
	Capability Capability
	// Element is the tracked element, nil for watched CSS rules.
	Element Element
}

// same reports whether two entries list the same tracked thing. Entries
// with elements compare by element so equal selectors stay distinct.
func (e Entry) same(o Entry) bool {
	if e.Capability != o.Capability {
		return false
	}
	if e.Element != nil && o.Element != nil {
		return e.Element == o.Element
	}
	return e.Selector == o.Selector
}

func (e Entry) String() string { return fmt.Sprintf("%s (%s)", e.Selector, e.Capability) }

// PanelHandlers are the callbacks behind the panel's controls.
type PanelHandlers struct {
	// OnAction runs when a capability button is pressed.
	OnAction func(Capability)
	// OnRemove runs when an entry's remove button is pressed, after the
	// entry has left the list.
	OnRemove func(Entry)
	// OnDone runs when the done button is pressed.
	OnDone func()
}

// Panel is the control panel listing enabled elements.
type Panel struct {
	doc      Document
	handlers PanelHandlers
	root     Element
	list     Element
	items    []Element
	entries  []Entry
}

// NewPanel returns an unmounted panel.
func NewPanel(doc Document, handlers PanelHandlers) *Panel {
	return &Panel{doc: doc, handlers: handlers}
}

// Mounted reports whether the panel is in the document.
func (p *Panel) Mounted() bool { return p.root != nil }

// Root returns the panel element, nil when unmounted.
func (p *Panel) Root() Element { return p.root }

// Mount adds the panel to the document body.
func (p *Panel) Mount() bool {
	if p.root != nil {
		return false
	}
	root := p.doc.CreateElement("div")
	root.SetAttr("id", PanelID)

	title := p.doc.CreateElement("h3")
	title.SetText("Dev Sync")
	root.AppendChild(title)

	for _, c := range Capabilities {
		btn := p.doc.CreateElement("button")
		btn.AddClass(classButton)
		btn.SetAttr(attrAction, string(c))
		btn.SetText(buttonLabel(c))
		root.AppendChild(btn)
	}

	p.list = p.doc.CreateElement("div")
	p.list.SetAttr("id", listID)
	root.AppendChild(p.list)

	done := p.doc.CreateElement("button")
	done.AddClass(classDone)
	done.SetText("Done")
	root.AppendChild(done)

	p.doc.Body().AppendChild(root)
	p.root = root
	p.render()
	return true
}

// Unmount removes the panel. Entries are kept.
func (p *Panel) Unmount() bool {
	if p.root == nil {
		return false
	}
	p.root.Remove()
	p.root, p.list, p.items = nil, nil, nil
	return true
}

// Add lists an entry. Duplicates are ignored.
func (p *Panel) Add(e Entry) bool {
	for _, have := range p.entries {
		if have.same(e) {
			return false
		}
	}
	p.entries = append(p.entries, e)
	p.render()
	return true
}

// Remove drops an entry from the list.
func (p *Panel) Remove(e Entry) bool {
	for i, have := range p.entries {
		if have.same(e) {
			p.removeAt(i)
			return true
		}
	}
	return false
}

func (p *Panel) removeAt(i int) Entry {
	e := p.entries[i]
	p.entries = append(p.entries[:i], p.entries[i+1:]...)
	p.render()
	return e
}

// Clear drops every entry.
func (p *Panel) Clear() {
	p.entries = nil
	p.render()
}

// Entries returns the listed entries in insertion order.
func (p *Panel) Entries() []Entry {
	return append([]Entry(nil), p.entries...)
}

// Click dispatches a click inside the panel. It reports whether the target
// was one of the panel's controls.
func (p *Panel) Click(target Element) bool {
	if p.root == nil || target == nil || target.Closest("#"+PanelID) == nil {
		return false
	}
	if btn := target.Closest("." + classRemove); btn != nil {
		if i := p.itemIndex(btn.Closest("." + classListItem)); i >= 0 {
			e := p.removeAt(i)
			if p.handlers.OnRemove != nil {
				p.handlers.OnRemove(e)
			}
		}
		return true
	}
	if target.Closest("."+classDone) != nil {
		if p.handlers.OnDone != nil {
			p.handlers.OnDone()
		}
		return true
	}
	if btn := target.Closest("." + classButton); btn != nil {
		action, _ := btn.Attr(attrAction)
		if p.handlers.OnAction != nil {
			p.handlers.OnAction(Capability(action))
		}
		return true
	}
	return false
}

// itemIndex maps a rendered list item back to its entry index, -1 when it
// is not one.
func (p *Panel) itemIndex(item Element) int {
	if item == nil || len(p.entries) == 0 {
		return -1
	}
	for i, it := range p.items {
		if it == item && i < len(p.entries) {
			return i
		}
	}
	return -1
}

func (p *Panel) render() {
	if p.list == nil {
		return
	}
	for _, it := range p.items {
		it.Remove()
	}
	p.items = p.items[:0]

	if len(p.entries) == 0 {
		empty := p.doc.CreateElement("div")
		empty.AddClass(classEmpty)
		empty.SetText("No elements enabled")
		p.list.AppendChild(empty)
		p.items = append(p.items, empty)
		return
	}
	for _, e := range p.entries {
		item := p.doc.CreateElement("div")
		item.AddClass(classListItem)

		label := p.doc.CreateElement("span")
		label.SetText(e.String())
		item.AppendChild(label)

		rm := p.doc.CreateElement("button")
		rm.AddClass(classRemove)
		rm.SetAttr(attrSelector, e.Selector)
		rm.SetAttr(attrCapability, string(e.Capability))
		rm.SetText("x")
		item.AppendChild(rm)

		p.list.AppendChild(item)
		p.items = append(p.items, item)
	}
}

func buttonLabel(c Capability) string {
	switch c {
	case CapabilityDrag:
		return "Enable Drag"
	case CapabilityResize:
		return "Enable Resize"
	case CapabilityStyle:
		return "Sync Styles"
	case CapabilityCSS:
		return "Watch CSS"
	}
	return string(c)
}
