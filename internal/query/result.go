package query

// State is the observable state of one query.
type State int

const (
	// StateDisabled means the enabling condition did not hold; nothing was fetched.
	StateDisabled State = iota
	StateLoading
	StateSuccess
	StateError
	// StateInvalidated is only reported to watchers.
	StateInvalidated
)

func (s State) String() string {
	switch s {
	case StateDisabled:
		return "disabled"
	case StateLoading:
		return "loading"
	case StateSuccess:
		return "success"
	case StateError:
		return "error"
	case StateInvalidated:
		return "invalidated"
	default:
		return "unknown"
	}
}

type Result[T any] struct {
	State State
	Data  T
	Err   error
	// Cached is true when Data came from the query cache.
	Cached bool
}

func (r Result[T]) Enabled() bool {
	return r.State != StateDisabled
}

func Disabled[T any]() Result[T] {
	return Result[T]{State: StateDisabled}
}

// Event is delivered to watchers on every state change of a key.
type Event struct {
	Key   Key
	State State
	Err   error
}
