// Package correlation tracks outstanding calls for a single gate.
package correlation

import "sync"

// Continuation receives the terminal outcome of one outstanding call.
// Exactly one of result or err is meaningful; err is non-nil on rejection.
type Continuation func(result any, err error)

// Table maps outstanding call ids to their pending continuations.
//
// Call ids increase monotonically and are never reused while a reply is
// outstanding. The zero value is ready to use. Methods may be called from
// any goroutine; continuations are invoked outside the table lock, on the
// goroutine that settled them.
type Table struct {
	pending map[uint64]Continuation
	next    uint64
	mu      sync.Mutex
}

// Register allocates a fresh call id for fn, which will be invoked exactly
// once, via [Table.Resolve], [Table.Reject], or [Table.FailAll].
func (t *Table) Register(fn Continuation) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pending == nil {
		t.pending = make(map[uint64]Continuation)
	}
	t.next++
	t.pending[t.next] = fn
	return t.next
}

// Resolve completes the call with a result, reporting whether the id was
// outstanding. A false return means the reply was stale: the call already
// settled or was never registered on this table.
func (t *Table) Resolve(id uint64, result any) bool {
	fn := t.take(id)
	if fn == nil {
		return false
	}
	fn(result, nil)
	return true
}

// Reject completes the call with an error, reporting whether the id was
// outstanding.
func (t *Table) Reject(id uint64, err error) bool {
	fn := t.take(id)
	if fn == nil {
		return false
	}
	fn(nil, err)
	return true
}

// FailAll rejects every outstanding call with err. Each continuation fires
// exactly once even if FailAll races with Resolve or Reject.
func (t *Table) FailAll(err error) {
	t.mu.Lock()
	pending := t.pending
	t.pending = nil
	t.mu.Unlock()
	for _, fn := range pending {
		if fn != nil {
			fn(nil, err)
		}
	}
}

// Len reports the number of outstanding calls.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

func (t *Table) take(id uint64) Continuation {
	t.mu.Lock()
	defer t.mu.Unlock()
	fn := t.pending[id]
	if fn != nil {
		delete(t.pending, id)
	}
	return fn
}
