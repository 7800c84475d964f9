package capture

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/grovetools/devsync/pkg/models"
)

// Snapshot maps a watched selector to its rule body text.
type Snapshot map[string]string

// RuleWatcher detects rule body changes by diffing snapshots. Style sheets
// have no mutation notification, so detection runs on demand.
type RuleWatcher struct {
	doc      Document
	out      emitter
	logger   *logrus.Entry
	watched  []string
	baseline Snapshot
}

// NewRuleWatcher returns a watcher with no selectors.
func NewRuleWatcher(doc Document, sink Sink, logger *logrus.Entry) *RuleWatcher {
	logger = loggerOr(logger)
	return &RuleWatcher{
		doc:      doc,
		out:      emitter{sink: sink, logger: logger},
		logger:   logger,
		baseline: Snapshot{},
	}
}

// Watch registers selector and retakes the baseline.
func (w *RuleWatcher) Watch(selector string) bool {
	selector = strings.TrimSpace(selector)
	if selector == "" || w.Watching(selector) {
		return false
	}
	w.watched = append(w.watched, selector)
	w.baseline = w.Snapshot()
	return true
}

// Unwatch drops selector.
func (w *RuleWatcher) Unwatch(selector string) bool {
	for i, s := range w.watched {
		if s == selector {
			w.watched = append(w.watched[:i], w.watched[i+1:]...)
			delete(w.baseline, selector)
			return true
		}
	}
	return false
}

// Watching reports whether selector is registered.
func (w *RuleWatcher) Watching(selector string) bool {
	for _, s := range w.watched {
		if s == selector {
			return true
		}
	}
	return false
}

// Selectors returns the watched selectors in registration order.
func (w *RuleWatcher) Selectors() []string {
	return append([]string(nil), w.watched...)
}

// Reset drops every selector and the baseline.
func (w *RuleWatcher) Reset() {
	w.watched = nil
	w.baseline = Snapshot{}
}

// Snapshot reads the current body of every watched selector from the
// document's inline sheets. Unreadable sheets are skipped.
func (w *RuleWatcher) Snapshot() Snapshot {
	snap := Snapshot{}
	if len(w.watched) == 0 {
		return snap
	}
	for _, sheet := range w.doc.StyleSheets() {
		if sheet.Href() != "" {
			continue
		}
		rules, err := sheet.Rules()
		if err != nil {
			w.logger.WithError(err).Debug("Skipping unreadable style sheet")
			continue
		}
		for _, r := range rules {
			if w.Watching(r.Selector) {
				snap[r.Selector] = r.Body
			}
		}
	}
	return snap
}

// Detect diffs a new snapshot against the baseline, emits a CssRule event
// for each changed non-empty body, and makes the new snapshot the baseline.
func (w *RuleWatcher) Detect() []models.ChangeEvent {
	next := w.Snapshot()
	var changes []models.ChangeEvent
	for _, sel := range w.watched {
		body := next[sel]
		if body == "" || body == w.baseline[sel] {
			continue
		}
		ev := models.NewCSSRule(sel, body, w.doc.Location())
		w.out.emit(ev)
		changes = append(changes, ev)
	}
	w.baseline = next
	return changes
}
