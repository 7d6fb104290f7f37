package service

import (
	"sort"
	"sync"
	"time"
)

// SelectionTracker holds the numbers each visitor has highlighted but not
// yet submitted. Selections are never persisted; a session that goes quiet
// longer than idleTTL is dropped on the next access.
type SelectionTracker struct {
	mu       sync.Mutex
	sessions map[string]*selection
	idleTTL  time.Duration

	now func() time.Time
}

type selection struct {
	numbers map[string]bool
	touched time.Time
}

func NewSelectionTracker(idleTTL time.Duration) *SelectionTracker {
	return &SelectionTracker{
		sessions: make(map[string]*selection),
		idleTTL:  idleTTL,
		now:      time.Now,
	}
}

// Toggle flips number in the session's selection and returns the resulting
// selection. Toggling is its own inverse.
func (t *SelectionTracker) Toggle(sessionID, number string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.prune()

	sel, ok := t.sessions[sessionID]
	if !ok {
		sel = &selection{numbers: make(map[string]bool)}
		t.sessions[sessionID] = sel
	}
	sel.touched = t.now()

	if sel.numbers[number] {
		delete(sel.numbers, number)
	} else {
		sel.numbers[number] = true
	}

	return sortedNumbers(sel)
}

// Numbers returns the session's current selection, sorted.
func (t *SelectionTracker) Numbers(sessionID string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.prune()

	sel, ok := t.sessions[sessionID]
	if !ok {
		return nil
	}
	sel.touched = t.now()

	return sortedNumbers(sel)
}

func (t *SelectionTracker) Clear(sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.sessions, sessionID)
}

func (t *SelectionTracker) prune() {
	cutoff := t.now().Add(-t.idleTTL)
	for id, sel := range t.sessions {
		if sel.touched.Before(cutoff) {
			delete(t.sessions, id)
		}
	}
}

func sortedNumbers(sel *selection) []string {
	numbers := make([]string, 0, len(sel.numbers))
	for n := range sel.numbers {
		numbers = append(numbers, n)
	}
	// Numbers are zero-padded, so lexical order is numeric order.
	sort.Strings(numbers)

	return numbers
}
