// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"sync"
	"testing"
	"time"
)

func TestFakeClock_Now(t *testing.T) {
	t.Parallel()

	initial := time.Date(2023, 6, 15, 12, 0, 0, 0, time.UTC)
	clock := NewFakeClock(initial)

	if got := clock.Now(); !got.Equal(initial) {
		t.Errorf("FakeClock.Now() = %v, want %v", got, initial)
	}
}

func TestFakeClock_Now_DefaultTime(t *testing.T) {
	t.Parallel()

	clock := NewFakeClock(time.Time{})
	if got := clock.Now(); !got.Equal(ReferenceTime) {
		t.Errorf("FakeClock.Now() = %v, want %v", got, ReferenceTime)
	}
}

func TestFakeClock_AdvanceAndSet(t *testing.T) {
	t.Parallel()

	clock := NewFakeClock(time.Time{})
	clock.Advance(90 * time.Minute)
	if got, want := clock.Now(), ReferenceTime.Add(90*time.Minute); !got.Equal(want) {
		t.Errorf("after Advance, Now() = %v, want %v", got, want)
	}

	target := time.Date(2030, 2, 3, 4, 5, 6, 0, time.UTC)
	clock.Set(target)
	if got := clock.Now(); !got.Equal(target) {
		t.Errorf("after Set, Now() = %v, want %v", got, target)
	}
}

func TestFakeClock_Concurrent(t *testing.T) {
	t.Parallel()

	clock := NewFakeClock(time.Time{})
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			clock.Advance(time.Second)
			_ = clock.Now()
		}()
	}
	wg.Wait()

	if got, want := clock.Now(), ReferenceTime.Add(10*time.Second); !got.Equal(want) {
		t.Errorf("Now() = %v, want %v", got, want)
	}
}
