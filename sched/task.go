package sched

// LookupFunc fetches an already memoized value.
type LookupFunc func(key uint64) (uint64, bool)

// CombineFunc builds a task's value from its prerequisites' values, given in
// the order the prerequisite keys were declared.
type CombineFunc func(values []uint64) uint64

// TaskFunc describes one task of a memoized recursion. It must be pure: any
// two evaluations of the same key have to produce the same Eval, because
// concurrent runs may evaluate a key more than once.
type TaskFunc func(key uint64, lookup LookupFunc) Eval

// Eval is either a terminal value or a list of prerequisite keys plus the
// function combining their values.
type Eval struct {
	value    uint64
	subtasks []uint64
	combine  CombineFunc
	terminal bool
}

func Terminal(value uint64) Eval {
	return Eval{value: value, terminal: true}
}

// NeedsSubtasks declares the task's fan-out. A task without prerequisites
// gets combine(nil).
func NeedsSubtasks(keys []uint64, combine CombineFunc) Eval {
	return Eval{subtasks: keys, combine: combine}
}

func (e Eval) IsTerminal() bool {
	return e.terminal
}

// Value is the terminal value. Zero for non-terminal evals.
func (e Eval) Value() uint64 {
	return e.value
}

func (e Eval) Subtasks() []uint64 {
	return e.subtasks
}
