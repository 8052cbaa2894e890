package registry

import "github.com/alphadose/haxmap"

// Registry is a concurrency-safe lookup of named values. Reads vastly
// outnumber writes: entries are registered at process startup and resolved
// on every request afterwards.
type Registry[T any] interface {
	Get(name string) (T, bool)
	Add(name string, value T)
	Del(name string)
	Keys() []string
	Len() int
}

type registry[T any] struct {
	values *haxmap.Map[string, T]
}

func New[T any]() Registry[T] {
	return &registry[T]{
		values: haxmap.New[string, T](),
	}
}

func (r *registry[T]) Get(name string) (T, bool) {
	return r.values.Get(name)
}

func (r *registry[T]) Add(name string, value T) {
	r.values.Set(name, value)
}

func (r *registry[T]) Del(name string) {
	r.values.Del(name)
}

func (r *registry[T]) Keys() []string {
	keys := make([]string, 0, r.values.Len())
	r.values.ForEach(func(name string, _ T) bool {
		keys = append(keys, name)
		return true
	})
	return keys
}

func (r *registry[T]) Len() int {
	return int(r.values.Len())
}
