package wcedit

import (
	"log/slog"

	"github.com/wcupdate/wcupdate/internal/adm"
	"github.com/wcupdate/wcupdate/internal/entries"
	"github.com/wcupdate/wcupdate/internal/logjournal"
	"github.com/wcupdate/wcupdate/internal/notify"
	"github.com/wcupdate/wcupdate/internal/pristine"
	"github.com/wcupdate/wcupdate/internal/traversal"
)

// EditContext is the immutable-after-construction state shared by every
// callback of one edit (spec.md §3's EditContext). The few fields that do
// change during the edit — RootOpened, TargetDeleted — are called out in
// the spec as the sole latches on an otherwise read-only record.
type EditContext struct {
	// Anchor is the directory the edit is rooted at; Target, if non-empty,
	// restricts the edit to a single basename within Anchor (spec.md §4.10).
	Anchor string
	Target string

	TargetRevision int64
	UseCommitTimes bool

	// SwitchURL is set only for a switch edit: every entry touched gets
	// this URL's subtree instead of inheriting its old one.
	SwitchURL string
	Diff3Cmd  string

	Notify notify.Sink
	Cancel func() error

	Traversal *traversal.Collector

	// RootOpened latches true on the first OpenRoot call; SetTargetRevision
	// after that point is a caller error.
	RootOpened bool
	// TargetDeleted latches true when delete_entry's path equals Target
	// (spec.md §4.1 tie-break: "sets target_deleted on the EditContext").
	TargetDeleted bool

	root *DirState
}

// NewEditContext builds the context for one edit rooted at anchor,
// optionally restricted to target (empty string means "whole anchor").
func NewEditContext(anchor, target string) *EditContext {
	return &EditContext{
		Anchor: anchor,
		Target: target,
		Notify: notify.NopSink{},
		Cancel: func() error { return nil },
	}
}

func (c *EditContext) checkCancelled(path string) error {
	if c.Cancel == nil {
		return nil
	}
	if err := c.Cancel(); err != nil {
		return errCancelled(path)
	}
	return nil
}

func (c *EditContext) notify(n notify.Notification) {
	if c.Notify != nil {
		c.Notify.Notify(n)
	}
}

// Editor drives one edit against the real collaborators: the entries
// store, the pristine text-base store, and the log runner. It implements
// every callback spec.md §4.1 lists.
type Editor struct {
	Ctx      *EditContext
	Entries  entries.Store
	Pristine pristine.Store
	Runner   *logjournal.Runner

	// Logger receives cleanup-path failures that are deliberately
	// discarded rather than returned over a real error (spec.md §7). Nil
	// falls back to slog.Default().
	Logger *slog.Logger
}

// NewEditor wires an Editor over its collaborators. admAccess is asserted
// held (never acquired or released here, per spec.md §5: "the editor
// asserts possession; it never acquires or releases the lock itself").
func NewEditor(ctx *EditContext, entriesStore entries.Store, pristineStore pristine.Store, runner *logjournal.Runner, admAccess *adm.Lock) *Editor {
	_ = admAccess // held by the caller for the edit's duration; referenced here only to document the assertion point
	return &Editor{Ctx: ctx, Entries: entriesStore, Pristine: pristineStore, Runner: runner}
}

// warnf logs a cleanup-path failure and discards it, never propagating it
// over whatever real error or result the caller already has in hand.
func (e *Editor) warnf(msg string, args ...any) {
	logger := e.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn(msg, args...)
}
