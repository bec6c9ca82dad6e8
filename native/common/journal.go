package common

import "fmt"

// Journal is an undo log shared by every component touched by an operation.
// Components append an undo closure before each mutation; an operation either
// commits all of them or reverts them in reverse order.
type Journal struct {
	entries []func()
	depth   int

	hooks     []func()
	hookMarks []int
}

// NewJournal constructs an empty journal.
func NewJournal() *Journal { return &Journal{} }

// Append records the closure that undoes the mutation about to happen. Calls
// outside an open unit are applied immediately and cannot be reverted.
func (j *Journal) Append(undo func()) {
	if j == nil || undo == nil || j.depth == 0 {
		return
	}
	j.entries = append(j.entries, undo)
}

// OnCommit defers fn until the outermost open unit commits. Hooks of a
// reverted unit are dropped. Outside a unit fn runs immediately.
func (j *Journal) OnCommit(fn func()) {
	if fn == nil {
		return
	}
	if j == nil || j.depth == 0 {
		fn()
		return
	}
	j.hooks = append(j.hooks, fn)
}

// Begin opens a (possibly nested) unit and returns its snapshot identifier.
func (j *Journal) Begin() int {
	j.depth++
	j.hookMarks = append(j.hookMarks, len(j.hooks))
	return len(j.entries)
}

// Commit closes the unit opened by Begin. Entries are only discarded once the
// outermost unit commits, so an enclosing unit can still revert them.
func (j *Journal) Commit(id int) {
	if j.depth == 0 {
		panic("journal: commit without begin")
	}
	if id < 0 || id > len(j.entries) {
		panic(fmt.Sprintf("journal: invalid snapshot %d (have %d entries)", id, len(j.entries)))
	}
	j.depth--
	j.hookMarks = j.hookMarks[:len(j.hookMarks)-1]
	if j.depth > 0 {
		return
	}
	j.entries = j.entries[:0]
	hooks := j.hooks
	j.hooks = nil
	for _, fn := range hooks {
		fn()
	}
}

// Revert undoes every mutation recorded since the snapshot and closes the unit.
func (j *Journal) Revert(id int) {
	if j.depth == 0 {
		panic("journal: revert without begin")
	}
	if id < 0 || id > len(j.entries) {
		panic(fmt.Sprintf("journal: invalid snapshot %d (have %d entries)", id, len(j.entries)))
	}
	for i := len(j.entries) - 1; i >= id; i-- {
		j.entries[i]()
	}
	j.entries = j.entries[:id]
	j.depth--
	mark := j.hookMarks[len(j.hookMarks)-1]
	j.hookMarks = j.hookMarks[:len(j.hookMarks)-1]
	j.hooks = j.hooks[:mark]
}

// Depth reports how many units are currently open.
func (j *Journal) Depth() int {
	if j == nil {
		return 0
	}
	return j.depth
}

// Atomic runs fn inside a unit, reverting every recorded mutation when fn
// returns an error or panics.
func (j *Journal) Atomic(fn func() error) (err error) {
	if j == nil {
		return fn()
	}
	id := j.Begin()
	defer func() {
		if r := recover(); r != nil {
			j.Revert(id)
			panic(r)
		}
		if err != nil {
			j.Revert(id)
			return
		}
		j.Commit(id)
	}()
	return fn()
}
