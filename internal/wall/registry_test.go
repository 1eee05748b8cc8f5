package wall

import "testing"

func TestRegistry_set_get_take(t *testing.T) {
	r := newRegistry(3)
	if r.get(0) != nil {
		t.Fatal("expected empty slot")
	}
	if r.get(5) != nil || r.get(-1) != nil {
		t.Fatal("out of range get should be nil")
	}

	e := &entry{session: &fakeSession{id: "s1"}, address: "a"}
	r.set(1, e)
	if got := r.get(1); got != e {
		t.Errorf("get(1) = %p, want %p", got, e)
	}
	if r.active() != 1 {
		t.Errorf("active() = %d, want 1", r.active())
	}

	if got := r.take(1); got != e {
		t.Errorf("take(1) = %p, want %p", got, e)
	}
	if r.get(1) != nil || r.active() != 0 {
		t.Error("slot should be empty after take")
	}
	if r.take(1) != nil {
		t.Error("second take should return nil")
	}
}

func TestRegistry_reset(t *testing.T) {
	r := newRegistry(2)
	r.set(0, &entry{session: &fakeSession{id: "s1"}})
	r.reset(6)
	if len(r.slots) != 6 || r.active() != 0 {
		t.Errorf("reset: len=%d active=%d", len(r.slots), r.active())
	}
}
