// Package correlation matches inbound events to the activities waiting on them.
package correlation

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yinan-symphony/symphony-wdk/event"
)

var ErrWaitAlreadyRegistered = errors.New("wait already registered")

// Key is what an event is matched on. Matching is exact on both fields.
type Key struct {
	Kind  event.Kind
	Value string
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s", k.Kind, k.Value)
}

// PendingWait is an activity of a running instance waiting for an event.
type PendingWait struct {
	ID string

	InstanceID string
	WorkflowID string

	ActivityID string
	Activity   int

	Key Key

	// Deadline is zero when the wait never expires.
	Deadline time.Time

	// Exclusive waits are consumed by the first matching event. Other waits stay open and
	// resume once per matching event.
	Exclusive bool

	matches atomic.Int32
}

// Matches returns how many events were accepted by the wait.
func (w *PendingWait) Matches() int {
	return int(w.matches.Load())
}

// Table is safe for concurrent use. Removal is the only way to take ownership of a wait: whoever
// removes it, an event or a timer, is the one allowed to resume the instance.
type Table struct {
	mu sync.Mutex

	byKey      map[Key][]*PendingWait
	byID       map[string]*PendingWait
	byInstance map[string]map[string]*PendingWait
}

func New() *Table {
	return &Table{
		byKey:      make(map[Key][]*PendingWait),
		byID:       make(map[string]*PendingWait),
		byInstance: make(map[string]map[string]*PendingWait),
	}
}

func (t *Table) Register(w *PendingWait) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.byID[w.ID]; ok {
		return fmt.Errorf("registering wait %s: %w", w.ID, ErrWaitAlreadyRegistered)
	}

	t.byID[w.ID] = w
	t.byKey[w.Key] = append(t.byKey[w.Key], w)

	iw, ok := t.byInstance[w.InstanceID]
	if !ok {
		iw = make(map[string]*PendingWait)
		t.byInstance[w.InstanceID] = iw
	}
	iw[w.ID] = w

	return nil
}

// Match returns the open waits for key in registration order. Matching does not claim a wait,
// callers use Remove or Touch for that.
func (t *Table) Match(key Key) []*PendingWait {
	t.mu.Lock()
	defer t.mu.Unlock()

	ws := t.byKey[key]
	if len(ws) == 0 {
		return nil
	}

	r := make([]*PendingWait, len(ws))
	copy(r, ws)

	return r
}

// Remove removes w if it is still registered and reports whether this call removed it. Of any
// number of concurrent calls for the same wait exactly one returns true.
func (t *Table) Remove(w *PendingWait) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.remove(w)
}

// Touch counts a match of a still open wait without removing it.
func (t *Table) Touch(w *PendingWait) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.byID[w.ID] != w {
		return false
	}

	w.matches.Add(1)

	return true
}

// RemoveInstance removes every wait of the given instance and returns them.
func (t *Table) RemoveInstance(instanceID string) []*PendingWait {
	t.mu.Lock()
	defer t.mu.Unlock()

	iw := t.byInstance[instanceID]

	r := make([]*PendingWait, 0, len(iw))
	for _, w := range iw {
		r = append(r, w)
	}

	for _, w := range r {
		t.remove(w)
	}

	return r
}

func (t *Table) Get(id string) (*PendingWait, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	w, ok := t.byID[id]
	return w, ok
}

// Len returns the number of open waits.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.byID)
}

func (t *Table) remove(w *PendingWait) bool {
	if t.byID[w.ID] != w {
		return false
	}

	delete(t.byID, w.ID)

	ws := t.byKey[w.Key]
	for i, c := range ws {
		if c == w {
			ws = append(ws[:i], ws[i+1:]...)
			break
		}
	}
	if len(ws) == 0 {
		delete(t.byKey, w.Key)
	} else {
		t.byKey[w.Key] = ws
	}

	if iw, ok := t.byInstance[w.InstanceID]; ok {
		delete(iw, w.ID)
		if len(iw) == 0 {
			delete(t.byInstance, w.InstanceID)
		}
	}

	return true
}
