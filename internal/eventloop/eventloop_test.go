package eventloop

import (
	"testing"
	"time"
)

func TestAddTimeoutPersistentFiresUntilDeregistered(t *testing.T) {
	b := New()

	var fires int
	ev := b.AddTimeout(5*time.Millisecond, true, func(e *Event) {
		fires++
		if fires >= 3 {
			e.Del()
		}
	})
	ev.SetPrivate("marker")

	b.Run()

	if fires != 3 {
		t.Fatalf("fires = %d, want 3", fires)
	}
}

func TestAddTimeoutOneShotDeregistersAfterOneFire(t *testing.T) {
	b := New()

	var fires int
	b.AddTimeout(5*time.Millisecond, false, func(e *Event) {
		fires++
	})

	b.Run()

	if fires != 1 {
		t.Fatalf("fires = %d, want 1", fires)
	}
}

func TestGetPrivateRoundTrips(t *testing.T) {
	b := New()
	ev := b.AddTimeout(time.Hour, false, func(e *Event) {})
	ev.SetPrivate(42)

	if got := ev.GetPrivate(); got != 42 {
		t.Fatalf("GetPrivate() = %v, want 42", got)
	}

	ev.Del()
	b.Close()
}

func TestRunOnceRunsExactlyOneCallback(t *testing.T) {
	b := New()

	var fires int
	ev := b.AddTimeout(2*time.Millisecond, true, func(e *Event) {
		fires++
	})
	defer ev.Del()
	defer b.Close()

	b.RunOnce()

	if fires != 1 {
		t.Fatalf("fires after one RunOnce = %d, want 1", fires)
	}
}
