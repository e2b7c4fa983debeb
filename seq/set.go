package seq

import (
	"iter"
)

// Set is an insertion-ordered collection of values keyed by an
// identity function. Not safe for concurrent use, callers guard it
// with their own lock.
type Set[K comparable, V any] struct {
	id    func(V) K
	kv    map[K]V
	order []K
}

func (st *Set[K, V]) Add(vs ...V) {
	for _, v := range vs {
		k := st.id(v)
		if _, exists := st.kv[k]; !exists {
			st.order = append(st.order, k)
		}
		st.kv[k] = v
	}
}

func (st *Set[K, V]) Del(k K) bool {
	if _, exists := st.kv[k]; !exists {
		return false
	}
	delete(st.kv, k)
	for n, ok := range st.order {
		if ok == k {
			st.order = append(st.order[:n], st.order[n+1:]...)
			break
		}
	}
	return true
}

func (st *Set[K, V]) Has(k K) bool {
	_, ok := st.kv[k]
	return ok
}

func (st *Set[K, V]) Get(k K) V {
	return st.kv[k]
}

func (st *Set[K, V]) Len() int {
	return len(st.order)
}

// Values returns the values in insertion order.
func (st *Set[K, V]) Values() []V {
	vs := make([]V, 0, len(st.order))
	for _, k := range st.order {
		vs = append(vs, st.kv[k])
	}
	return vs
}

func (st *Set[K, V]) Iter() iter.Seq[V] {
	return func(yield func(V) bool) {
		for _, k := range st.order {
			if !yield(st.kv[k]) {
				break
			}
		}
	}
}

func NewSet[K comparable, V any](vs []V, id func(V) K) *Set[K, V] {
	st := &Set[K, V]{
		id: id,
		kv: make(map[K]V, len(vs)),
	}
	st.Add(vs...)
	return st
}
