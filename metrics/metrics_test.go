package metrics

import "testing"

func withEnabled(t *testing.T) {
	t.Helper()
	old := Enabled
	Enabled = true
	t.Cleanup(func() { Enabled = old })
}

func TestCounter(t *testing.T) {
	withEnabled(t)
	c := NewCounter()
	if count := c.Snapshot().Count(); count != 0 {
		t.Errorf("wrong count: %v", count)
	}
	c.Dec(1)
	if count := c.Snapshot().Count(); count != -1 {
		t.Errorf("wrong count: %v", count)
	}
	c.Inc(2)
	if count := c.Snapshot().Count(); count != 1 {
		t.Errorf("wrong count: %v", count)
	}
}

func TestCounterClear(t *testing.T) {
	withEnabled(t)
	c := NewCounter()
	c.Inc(1)
	c.Clear()
	if count := c.Snapshot().Count(); count != 0 {
		t.Errorf("c.Count(): 0 != %v\n", count)
	}
}

func TestCounterSnapshotIsFrozen(t *testing.T) {
	withEnabled(t)
	c := NewCounter()
	c.Inc(1)
	snap := c.Snapshot()
	c.Inc(1)
	if count := snap.Count(); count != 1 {
		t.Errorf("snapshot mutated: %v", count)
	}
}

func TestGauge(t *testing.T) {
	withEnabled(t)
	g := NewGauge()
	g.Update(47)
	if v := g.Value(); v != 47 {
		t.Errorf("g.Value(): 47 != %v\n", v)
	}
}

func TestFunctionalGauge(t *testing.T) {
	withEnabled(t)
	var calls int64
	fg := NewFunctionalGauge(func() int64 {
		calls++
		return calls
	})
	fg.Value()
	fg.Value()
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
}

func TestMeter(t *testing.T) {
	withEnabled(t)
	m := NewMeter()
	m.Mark(3)
	m.Mark(4)
	if count := m.Count(); count != 7 {
		t.Errorf("wrong count: %v", count)
	}
}

func TestDisabledMetricsAreNoops(t *testing.T) {
	Enabled = false
	c := NewCounter()
	c.Inc(100)
	if count := c.Count(); count != 0 {
		t.Errorf("disabled counter should be a no-op, got %v", count)
	}
}
