package event

import (
	"testing"
)

func TestSignal(t *testing.T) {
	t.Run("fire delivers in connect order", func(t *testing.T) {
		sig := NewSignal[int]()
		got := []string{}

		sig.Connect(func(v int) { got = append(got, "a") })
		sig.Connect(func(v int) { got = append(got, "b") })
		sig.Fire(0)

		if len(got) != 2 || got[0] != "a" || got[1] != "b" {
			t.Errorf("unexpected delivery order: %v", got)
		}
	})

	t.Run("disconnect stops delivery", func(t *testing.T) {
		sig := NewSignal[int]()
		calls := 0

		tok := sig.Connect(func(v int) { calls++ })
		sig.Fire(0)
		if !sig.Disconnect(tok) {
			t.Error("expected Disconnect to report removal")
		}
		if sig.Disconnect(tok) {
			t.Error("expected second Disconnect to be a no-op")
		}
		sig.Fire(0)

		if calls != 1 {
			t.Errorf("expected 1 call, got %d", calls)
		}
	})

	t.Run("once fires a single time", func(t *testing.T) {
		sig := NewSignal[string]()
		values := []string{}

		sig.Once(func(v string) { values = append(values, v) })
		sig.Fire("first")
		sig.Fire("second")

		if len(values) != 1 || values[0] != "first" {
			t.Errorf("unexpected values: %v", values)
		}
		if sig.Len() != 0 {
			t.Errorf("expected no listeners left, got %d", sig.Len())
		}
	})
}
