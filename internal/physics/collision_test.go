package physics

import "testing"

func TestCollisionPoolReusesSlots(t *testing.T) {
	a := &Ball{Index: 0}
	b := &Ball{Index: 1}
	pool := NewCollisionPool(4)

	h1 := pool.Create(KindBallBall, a, b, 1.5, true)
	h2 := pool.Create(KindBallBorder, a, nil, 2.0, true)
	if pool.Live() != 2 || pool.Slots() != 2 {
		t.Fatalf("expected 2 live records in 2 slots, got live=%d slots=%d", pool.Live(), pool.Slots())
	}

	pool.Dispose(h1)
	h3 := pool.Create(KindBallBall, a, b, 0, false)
	if h3 != h1 {
		t.Errorf("expected disposed slot %d to be reused, got %d", h1, h3)
	}
	if pool.Slots() != 2 {
		t.Errorf("expected no new slot, got %d slots", pool.Slots())
	}
	if pool.Created() != 3 || pool.Disposed() != 1 || pool.Live() != 2 {
		t.Errorf("counters: created=%d disposed=%d live=%d", pool.Created(), pool.Disposed(), pool.Live())
	}

	if _, ok := pool.Get(h3).Time(); ok {
		t.Errorf("reused record kept the old time")
	}
	if pool.Get(h2).Kind() != KindBallBorder {
		t.Errorf("expected border record, got %s", pool.Get(h2).Kind())
	}
}

func TestCollisionPoolDoubleDisposePanics(t *testing.T) {
	a := &Ball{Index: 0}
	pool := NewCollisionPool(1)
	h := pool.Create(KindBallBorder, a, nil, 1, true)
	pool.Dispose(h)

	defer func() {
		if recover() == nil {
			t.Errorf("expected panic on double dispose")
		}
	}()
	pool.Dispose(h)
}

func TestCollisionPoolRejectsMismatchedParticipants(t *testing.T) {
	a := &Ball{Index: 0}
	pool := NewCollisionPool(1)

	defer func() {
		if recover() == nil {
			t.Errorf("expected panic for ball-ball collision without a second ball")
		}
	}()
	pool.Create(KindBallBall, a, nil, 1, true)
}

func TestCollisionInvolves(t *testing.T) {
	a := &Ball{Index: 0}
	b := &Ball{Index: 1}
	c := &Ball{Index: 2}
	pool := NewCollisionPool(2)

	pair := pool.Get(pool.Create(KindBallBall, a, b, 1, true))
	if !pair.Involves(a) || !pair.Involves(b) || pair.Involves(c) {
		t.Errorf("Involves gave wrong answers for ball pair")
	}
	if !pair.InvolvesBoth(b, a) || pair.InvolvesBoth(a, c) {
		t.Errorf("InvolvesBoth gave wrong answers for ball pair")
	}

	border := pool.Get(pool.Create(KindBallBorder, c, nil, 1, true))
	if !border.Involves(c) || border.Involves(a) {
		t.Errorf("Involves gave wrong answers for border collision")
	}
	if !border.InvolvesBoth(c, nil) {
		t.Errorf("border collision should match (ball, nil)")
	}
}

func TestCollisionIsWithin(t *testing.T) {
	a := &Ball{Index: 0}
	pool := NewCollisionPool(2)

	c := pool.Get(pool.Create(KindBallBorder, a, nil, 2, true))
	if !c.IsWithin(1, 3) || !c.IsWithin(3, 1) || !c.IsWithin(2, 2) {
		t.Errorf("time 2 should be within [1,3] in either order")
	}
	if c.IsWithin(2.5, 3) {
		t.Errorf("time 2 should not be within [2.5,3]")
	}

	never := pool.Get(pool.Create(KindBallBorder, a, nil, 0, false))
	if never.IsWithin(-1, 1) {
		t.Errorf("a collision without a time is never within a range")
	}
}
