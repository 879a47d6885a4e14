package timeutil

import (
	"testing"
	"time"
)

var start = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func received(tm Timer) bool {
	select {
	case <-tm.C():
		return true
	default:
		return false
	}
}

func TestRealClock_Now(t *testing.T) {
	before := time.Now()
	now := RealClock{}.Now()
	after := time.Now()

	if now.Before(before) || now.After(after) {
		t.Errorf("Now() = %v, expected between %v and %v", now, before, after)
	}
}

func TestRealClock_Timer(t *testing.T) {
	tm := RealClock{}.NewTimer(5 * time.Millisecond)
	select {
	case <-tm.C():
	case <-time.After(time.Second):
		t.Fatal("real timer did not fire")
	}
	if tm.Stop() {
		t.Error("Stop() after firing should report false")
	}
}

func TestMockClock_AdvanceAndSet(t *testing.T) {
	clock := NewMockClock(start)
	if got := clock.Now(); !got.Equal(start) {
		t.Fatalf("Now() = %v, want %v", got, start)
	}

	clock.Advance(45 * time.Second)
	if got := clock.Now().Sub(start); got != 45*time.Second {
		t.Errorf("after Advance, elapsed = %v, want 45s", got)
	}

	clock.Set(start.Add(-time.Hour))
	if got := clock.Now(); !got.Equal(start.Add(-time.Hour)) {
		t.Errorf("after Set, Now() = %v", got)
	}
}

func TestMockClock_TimerFiresAtDeadline(t *testing.T) {
	clock := NewMockClock(start)
	tm := clock.NewTimer(4 * time.Second)

	if clock.Pending() != 1 {
		t.Fatalf("Pending() = %d, want 1", clock.Pending())
	}

	clock.Advance(3 * time.Second)
	if received(tm) {
		t.Fatal("timer fired before its deadline")
	}

	clock.Advance(time.Second)
	select {
	case at := <-tm.C():
		if !at.Equal(start.Add(4 * time.Second)) {
			t.Errorf("fired at %v, want deadline", at)
		}
	default:
		t.Fatal("timer did not fire at its deadline")
	}
	if clock.Pending() != 0 {
		t.Errorf("Pending() = %d after firing, want 0", clock.Pending())
	}

	clock.Advance(time.Hour)
	if received(tm) {
		t.Error("timer fired twice")
	}
}

func TestMockClock_StoppedTimerNeverFires(t *testing.T) {
	clock := NewMockClock(start)
	tm := clock.NewTimer(2 * time.Second)

	if !tm.Stop() {
		t.Error("Stop() on an armed timer should report true")
	}
	if tm.Stop() {
		t.Error("second Stop() should report false")
	}
	if clock.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", clock.Pending())
	}

	clock.Advance(time.Minute)
	if received(tm) {
		t.Error("stopped timer fired")
	}
}

func TestMockClock_ZeroWaitIsImmediate(t *testing.T) {
	clock := NewMockClock(start)
	if !received(clock.NewTimer(0)) {
		t.Error("zero-duration timer should fire on creation")
	}
}

func TestMockClock_SetFiresDueTimers(t *testing.T) {
	clock := NewMockClock(start)
	early := clock.NewTimer(time.Second)
	late := clock.NewTimer(time.Hour)

	clock.Set(start.Add(time.Minute))
	if !received(early) {
		t.Error("timer due before the new time should fire")
	}
	if received(late) {
		t.Error("timer due after the new time fired early")
	}
	if clock.Pending() != 1 {
		t.Errorf("Pending() = %d, want 1", clock.Pending())
	}
}
