package memory

import (
	"strings"
	"sync"

	"github.com/hupe1980/tourmesh/core"
)

// DefaultWindowSize is the number of exchanges kept when no size is given.
const DefaultWindowSize = 20

// Window is a sliding window over the last k user/assistant exchanges.
//
// It never holds more than 2k turns; older turns are evicted oldest first
// after each append. Concurrency: protected by a Mutex.
type Window struct {
	mu    sync.Mutex
	k     int
	turns []core.Turn
}

// NewWindow creates a window keeping k exchanges. k <= 0 selects DefaultWindowSize.
func NewWindow(k int) *Window {
	if k <= 0 {
		k = DefaultWindowSize
	}

	return &Window{k: k}
}

// Size returns the number of exchanges the window keeps.
func (w *Window) Size() int { return w.k }

// Append adds one turn and evicts what no longer fits.
func (w *Window) Append(turn core.Turn) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.turns = append(w.turns, turn)
	w.evictLocked()
}

// AppendExchange records a completed user/assistant exchange.
func (w *Window) AppendExchange(user, assistant string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.turns = append(w.turns, core.UserTurn(user), core.AssistantTurn(assistant))
	w.evictLocked()
}

func (w *Window) evictLocked() {
	if limit := 2 * w.k; len(w.turns) > limit {
		kept := make([]core.Turn, limit)
		copy(kept, w.turns[len(w.turns)-limit:])
		w.turns = kept
	}
}

// Turns returns a copy of the retained turns, oldest first.
func (w *Window) Turns() []core.Turn {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]core.Turn, len(w.turns))
	copy(out, w.turns)

	return out
}

// Len returns the number of retained turns.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	return len(w.turns)
}

// Context renders the retained turns as "Human: ..." / "AI: ..." lines.
func (w *Window) Context() string {
	w.mu.Lock()
	defer w.mu.Unlock()

	var b strings.Builder
	for i, t := range w.turns {
		if i > 0 {
			b.WriteByte('\n')
		}
		switch t.Role {
		case core.RoleUser:
			b.WriteString("Human: ")
		default:
			b.WriteString("AI: ")
		}
		b.WriteString(t.Content)
	}

	return b.String()
}

// Clear drops all turns.
func (w *Window) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.turns = nil
}
