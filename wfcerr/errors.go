// Package wfcerr defines the error kinds the core can raise. CollapseFailed
// is the only "expected" exceptional flow — it is always caught one level
// up, inside Collapser.collapse. Every other kind propagates to the host.
package wfcerr

import (
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"

	"github.com/lixenwraith/wfc3d/lattice"
)

// CollapseFailedErr reports that propagation or selection emptied a slot's
// candidate set. Carries the slot's position so that, when backtracking
// runs out of History, the Collapser's GenerationFailed error can name where
// generation stalled.
type CollapseFailedErr struct {
	Position lattice.Position
}

func (e *CollapseFailedErr) Error() string {
	return fmt.Sprintf("collapse failed at %+v: candidate set is empty", e.Position)
}

// Collapsed builds a CollapseFailedErr for the given position.
func Collapsed(pos lattice.Position) error {
	return &CollapseFailedErr{Position: pos}
}

// IsCollapseFailed reports whether err is (or wraps) a CollapseFailedErr.
func IsCollapseFailed(err error) bool {
	var cf *CollapseFailedErr
	return errors.As(err, &cf)
}

// IllegalCollapseErr marks a violated contract: collapse(m) with m not a
// candidate, collapsing an already-collapsed slot, a health counter driven
// negative, or a collapsed neighbor contradicting the chosen module. These
// are assertion failures, never reachable under the documented contract —
// the engine fails loudly rather than recovering.
type IllegalCollapseErr struct {
	Reason string
}

func (e *IllegalCollapseErr) Error() string {
	return "illegal collapse: " + e.Reason
}

// IllegalCollapse builds an IllegalCollapseErr with the given reason.
func IllegalCollapse(reason string) error {
	return &IllegalCollapseErr{Reason: reason}
}

// CatalogInvalid reports an unreachable module at load time: direction d
// admits zero supporters for module i, so i could never be placed legally
// on that face. Fatal to the run — carries a stack trace via pkg/errors so
// the host can log where the rejected catalog was loaded from.
func CatalogInvalid(moduleIndex int, moduleName string, d lattice.Direction) error {
	name := moduleName
	if name == "" {
		name = fmt.Sprintf("#%d", moduleIndex)
	}
	return pkgerrors.WithStack(fmt.Errorf("catalog invalid: module %s has zero supporters on direction %s (unreachable)", name, d))
}

// GenerationFailed reports that undo exhausted History without escaping a
// contradiction. Surfaced to the host with a stack trace; the run cannot
// continue.
func GenerationFailed(pos lattice.Position) error {
	return pkgerrors.WithStack(fmt.Errorf("generation failed: history exhausted while recovering from contradiction at %+v", pos))
}

// CancelledErr marks observer-requested cancellation, surfaced to the host
// after the Collapser releases its RemovalQueue and progress state.
type CancelledErr struct{}

func (e *CancelledErr) Error() string { return "generation cancelled by observer" }

// Cancelled builds a CancelledErr.
func Cancelled() error { return &CancelledErr{} }

// IsCancelled reports whether err is (or wraps) a CancelledErr.
func IsCancelled(err error) bool {
	var c *CancelledErr
	return errors.As(err, &c)
}
