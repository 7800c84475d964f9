// Package patcher applies change events to HTML source files on disk.
package patcher

import (
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/moby/patternmatcher"
	"github.com/sirupsen/logrus"

	"github.com/grovetools/devsync/errors"
	"github.com/grovetools/devsync/pkg/locator"
	"github.com/grovetools/devsync/pkg/models"
)

// DefaultAllow is the allow-list used when Options.Allow is empty.
var DefaultAllow = []string{"**/*.html", "**/*.htm"}

// Options controls where and what the patcher may write.
type Options struct {
	// Root is the directory relative file paths and page URLs resolve against.
	Root string
	// DefaultFile is patched when a message carries no file path.
	DefaultFile string
	// Allow lists the patterns a target must match, relative to Root.
	Allow []string
	// MirrorCSS, when set, receives every style change as a CSS rule.
	MirrorCSS string
}

// Patcher resolves, edits and writes target files. Options may be swapped
// while Apply runs on other goroutines.
type Patcher struct {
	mu      sync.RWMutex
	opts    Options
	matcher *patternmatcher.PatternMatcher
	mirror  *Mirror

	editor Editor
	logger *logrus.Entry
	now    func() time.Time
}

// New creates a patcher. A nil logger discards output.
func New(opts Options, logger *logrus.Entry) (*Patcher, error) {
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = logrus.NewEntry(l)
	}
	p := &Patcher{
		editor: NewEditor(locator.Default),
		logger: logger,
		now:    time.Now,
	}
	if err := p.SetOptions(opts); err != nil {
		return nil, err
	}
	return p, nil
}

// SetOptions replaces the options. The allow-list is compiled up front so a
// bad pattern is reported here and the previous options stay in effect.
func (p *Patcher) SetOptions(opts Options) error {
	allow := opts.Allow
	if len(allow) == 0 {
		allow = DefaultAllow
	}
	pm, err := patternmatcher.New(allow)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigInvalid, "invalid patch.allow pattern").
			WithDetail("patterns", allow)
	}
	opts.Allow = allow

	p.mu.Lock()
	defer p.mu.Unlock()
	p.opts = opts
	p.matcher = pm
	switch {
	case opts.MirrorCSS == "":
		p.mirror = nil
	case p.mirror == nil || p.mirror.Path() != opts.MirrorCSS:
		p.mirror = NewMirror(opts.MirrorCSS)
	}
	return nil
}

// Options returns the options in effect.
func (p *Patcher) Options() Options {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.opts
}

// Apply patches the file an event targets. The returned result is filled in
// on failure as well; the error is the same one recorded in it.
func (p *Patcher) Apply(ev models.ChangeEvent) (models.PatchResult, error) {
	p.mu.RLock()
	opts, matcher, mirror := p.opts, p.matcher, p.mirror
	p.mu.RUnlock()

	result := models.PatchResult{Event: ev, At: p.now()}
	fail := func(err error) (models.PatchResult, error) {
		result.Status = models.StatusFailed
		result.Code = string(errors.GetCode(err))
		result.Error = err.Error()
		p.logger.WithFields(logrus.Fields{
			"kind":     ev.Kind,
			"selector": ev.Selector,
			"file":     result.File,
			"code":     result.Code,
		}).Warn("Patch not applied: ", err)
		return result, err
	}

	if err := ev.Validate(); err != nil {
		return fail(err)
	}

	target, err := resolvePath(ev.TargetFile, opts, goos)
	if err != nil {
		return fail(err)
	}
	result.File = target

	if err := checkAllowed(matcher, opts, target); err != nil {
		return fail(err)
	}

	info, err := os.Stat(target)
	if err != nil || info.IsDir() {
		return fail(errors.TargetFileMissing(target))
	}

	data, err := os.ReadFile(target)
	if err != nil {
		return fail(errors.Wrap(err, errors.ErrCodeInternal, "failed to read target file").WithDetail("path", target))
	}
	text := string(data)

	updated, err := p.editor.Apply(text, ev)
	if err != nil {
		return fail(err)
	}

	if updated == text {
		result.Status = models.StatusUnchanged
		p.logger.WithFields(logrus.Fields{"kind": ev.Kind, "selector": ev.Selector, "file": target}).
			Debug("Patch left file unchanged")
	} else {
		if err := os.WriteFile(target, []byte(updated), info.Mode().Perm()); err != nil {
			return fail(errors.Wrap(err, errors.ErrCodeInternal, "failed to write target file").WithDetail("path", target))
		}
		result.Status = models.StatusApplied
		p.logger.WithFields(logrus.Fields{"kind": ev.Kind, "selector": ev.Selector, "file": target}).
			Info("Patched ", ev.Summary())
	}

	if mirror != nil {
		if err := mirror.Record(ev); err != nil {
			p.logger.WithError(err).WithField("path", mirror.Path()).Warn("Failed to update mirrored CSS")
		}
	}
	return result, nil
}

// goos is a variable so tests can exercise the Windows path rules.
var goos = runtime.GOOS

func checkAllowed(pm *patternmatcher.PatternMatcher, opts Options, target string) error {
	candidate := target
	if absRoot, err := filepath.Abs(defaultRoot(opts.Root)); err == nil && within(absRoot, target) {
		if rel, err := filepath.Rel(absRoot, target); err == nil {
			candidate = rel
		}
	}
	ok, err := pm.MatchesOrParentMatches(candidate)
	if err != nil || !ok {
		return errors.PathNotAllowed(target, opts.Allow)
	}
	return nil
}

func defaultRoot(root string) string {
	if root == "" {
		return "."
	}
	return root
}
