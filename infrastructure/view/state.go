// Package view keeps what the browser should draw: the latest filter
// partition and the set of nodes to frame.
package view

import (
	"sync"
	"time"

	"orgmap/domain/core/valueobjects"
	"orgmap/domain/filter"
)

// Frame is a point-in-time copy of the view
type Frame struct {
	Version   uint64                `json:"version"`
	Partition filter.Partition      `json:"partition"`
	Fit       []valueobjects.NodeID `json:"fit,omitempty"`
	UpdatedAt time.Time             `json:"updated_at"`
}

// State implements ports.Renderer for clients that poll
type State struct {
	mu      sync.RWMutex
	frame   Frame
	now     func() time.Time
	// next is shared by every caller waiting for the next update
	next chan struct{}
}

var closed = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// NewState creates an empty view with no filter applied
func NewState() *State {
	return &State{now: time.Now}
}

// ApplyPartition records p and clears any previous fit target
func (s *State) ApplyPartition(p filter.Partition) {
	s.mu.Lock()
	s.frame.Version++
	s.frame.Partition = filter.Partition{
		Visible: append([]valueobjects.NodeID(nil), p.Visible...),
		Ghosted: append([]valueobjects.NodeID(nil), p.Ghosted...),
		Active:  p.Active,
	}
	s.frame.Fit = nil
	s.frame.UpdatedAt = s.now()
	s.broadcastLocked()
	s.mu.Unlock()
}

// Fit records the nodes the viewport should frame
func (s *State) Fit(ids []valueobjects.NodeID) {
	s.mu.Lock()
	s.frame.Version++
	s.frame.Fit = append([]valueobjects.NodeID(nil), ids...)
	s.frame.UpdatedAt = s.now()
	s.broadcastLocked()
	s.mu.Unlock()
}

// Current returns a copy of the latest frame
func (s *State) Current() Frame {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f := s.frame
	f.Partition.Visible = append([]valueobjects.NodeID(nil), f.Partition.Visible...)
	f.Partition.Ghosted = append([]valueobjects.NodeID(nil), f.Partition.Ghosted...)
	f.Fit = append([]valueobjects.NodeID(nil), f.Fit...)
	return f
}

// Changed returns a channel closed on the next update after version. It is
// already closed when the view has moved past version. Callers waiting on the
// same update share one channel.
func (s *State) Changed(version uint64) <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frame.Version > version {
		return closed
	}
	if s.next == nil {
		s.next = make(chan struct{})
	}
	return s.next
}

func (s *State) broadcastLocked() {
	if s.next != nil {
		close(s.next)
		s.next = nil
	}
}
