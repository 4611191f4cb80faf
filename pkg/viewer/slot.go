package viewer

import (
	"context"
	"errors"
	"fmt"

	"niiviewer/internal/models"
	"niiviewer/pkg/fetch"
)

// SlotKind names one of the two volume slots
type SlotKind int

const (
	BackgroundSlot SlotKind = iota
	OverlaySlot
)

func (k SlotKind) String() string {
	if k == OverlaySlot {
		return "Map"
	}
	return "Background"
}

// slot tracks one volume and its in-flight load. gen is bumped whenever a
// load starts or the slot is cleared; only a completion carrying the current
// gen may commit.
type slot struct {
	vol      *models.Volume
	ref      string
	gen      uint64
	loading  bool
	excluded bool
	err      error
	cancel   context.CancelFunc
}

// begin starts a new generation, cancelling any in-flight load
func (s *slot) begin(ref string, cancel context.CancelFunc) uint64 {
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	s.ref = ref
	s.loading = true
	s.err = nil
	s.cancel = cancel
	return s.gen
}

// clear empties the slot and invalidates any in-flight load
func (s *slot) clear() {
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	s.vol = nil
	s.ref = ""
	s.loading = false
	s.excluded = false
	s.err = nil
	s.cancel = nil
}

// completion is the result of one load, posted back to the owner goroutine
type completion struct {
	kind SlotKind
	gen  uint64
	vol  *models.Volume
	err  error
}

// message renders a slot error for display, distinguishing retrieval
// failures from bad volume contents
func message(err error) string {
	if err == nil {
		return ""
	}
	var fe *fetch.Error
	if errors.As(err, &fe) {
		return fmt.Sprintf("failed to retrieve volume: %v", fe)
	}
	return fmt.Sprintf("invalid volume: %v", err)
}
