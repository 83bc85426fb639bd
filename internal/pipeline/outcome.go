package pipeline

// Outcome is the result of one contained unit of work: a value, or the reason
// no value was produced. Per-item failures travel as Outcomes rather than
// errors so that the sequential stages can keep going.
type Outcome[T any] struct {
	Value T
	Err   error
}

// OK reports whether a value was produced.
func (o Outcome[T]) OK() bool {
	return o.Err == nil
}

func produced[T any](v T) Outcome[T] {
	return Outcome[T]{Value: v}
}

func absent[T any](err error) Outcome[T] {
	return Outcome[T]{Err: err}
}
