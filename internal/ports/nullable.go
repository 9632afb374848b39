package ports

// Nullable distinguishes "leave unchanged" (Set=false) from "set" and "clear"
// (Set=true with a nil Value) in partial updates.
type Nullable[T any] struct {
	Set   bool
	Value *T
}

func SetTo[T any](v T) Nullable[T] {
	return Nullable[T]{Set: true, Value: &v}
}

func Clear[T any]() Nullable[T] {
	return Nullable[T]{Set: true}
}
