package event

import (
	"sync"
)

type (
	// Token identifies a signal connection.
	Token uint64

	// Signal is the multicast companion of Event: every Fire delivers
	// the value to all connected listeners, in connect order.
	Signal[T any] struct {
		mu    sync.Mutex
		next  Token
		conns map[Token]*conn[T]
		order []Token
	}

	conn[T any] struct {
		fn   func(T)
		once bool
	}
)

func NewSignal[T any]() *Signal[T] {
	return &Signal[T]{conns: map[Token]*conn[T]{}}
}

func (s *Signal[T]) connect(fn func(T), once bool) Token {
	s.mu.Lock()
	defer s.mu.Unlock()

	tok := s.next
	s.next++
	s.conns[tok] = &conn[T]{fn: fn, once: once}
	s.order = append(s.order, tok)
	return tok
}

// Connect registers fn for every subsequent Fire.
func (s *Signal[T]) Connect(fn func(T)) Token {
	return s.connect(fn, false)
}

// Once registers fn for the next Fire only.
func (s *Signal[T]) Once(fn func(T)) Token {
	return s.connect(fn, true)
}

func (s *Signal[T]) Disconnect(tok Token) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disconnect(tok)
}

func (s *Signal[T]) disconnect(tok Token) bool {
	if _, ok := s.conns[tok]; !ok {
		return false
	}
	delete(s.conns, tok)
	for n, t := range s.order {
		if t == tok {
			s.order = append(s.order[:n], s.order[n+1:]...)
			break
		}
	}
	return true
}

// Fire delivers value to all current listeners. Listeners run outside
// the lock, so they may connect and disconnect freely.
func (s *Signal[T]) Fire(value T) {
	s.mu.Lock()
	fns := make([]func(T), 0, len(s.order))
	for _, tok := range s.order {
		c := s.conns[tok]
		fns = append(fns, c.fn)
	}
	for _, tok := range append([]Token(nil), s.order...) {
		if s.conns[tok].once {
			s.disconnect(tok)
		}
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(value)
	}
}

func (s *Signal[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}
