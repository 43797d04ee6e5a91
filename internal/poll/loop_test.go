package poll

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestArmStartsFreshGeneration(t *testing.T) {
	l := NewLoop(3*time.Second, nil)
	first := l.Arm(1)
	if l.OnTick(first) != Fetch {
		t.Fatal("tick of the armed group should fetch")
	}

	second := l.Arm(2)
	if l.OnTick(first) != Drop {
		t.Fatal("tick from the previous group should be dropped")
	}
	if l.OnTick(second) != Fetch {
		t.Fatal("tick of the new group should fetch")
	}

	again := l.Arm(2)
	if l.OnTick(second) != Drop {
		t.Fatal("re-arming the same group should also invalidate old ticks")
	}
	if l.OnTick(again) != Fetch {
		t.Fatal("fresh tick should fetch")
	}
}

func TestSuspendedTickIsSkipped(t *testing.T) {
	composing := true
	l := NewLoop(time.Second, func() bool { return composing })
	tag := l.Arm(1)

	if l.OnTick(tag) != Skip {
		t.Fatal("tick should be skipped while composing")
	}
	composing = false
	if l.OnTick(l.NextTick(tag)) != Fetch {
		t.Fatal("next tick after composing ends should fetch")
	}
}

func TestAcceptDiscardsStaleResponses(t *testing.T) {
	l := NewLoop(time.Second, nil)
	l.Arm(1)
	older := l.Issue()
	newer := l.Issue()

	if !l.Accept(newer) {
		t.Fatal("newest response should apply")
	}
	if l.Accept(older) {
		t.Fatal("response older than the applied one should be discarded")
	}
	if l.Accept(newer) {
		t.Fatal("a response should apply once")
	}

	inFlight := l.Issue()
	l.Arm(2)
	if l.Accept(inFlight) {
		t.Fatal("response for the previous group should be discarded")
	}
	if !l.Accept(l.Issue()) {
		t.Fatal("response for the new group should apply")
	}
}

func TestStopDropsEverything(t *testing.T) {
	l := NewLoop(time.Second, nil)
	tag := l.Arm(1)
	fetch := l.Issue()
	l.Stop()
	if l.Armed() {
		t.Fatal("loop should be disarmed")
	}
	if l.OnTick(tag) != Drop || l.Accept(fetch) {
		t.Fatal("stopped loop should drop ticks and responses")
	}
}

func TestRunnerRetriesAfterFailure(t *testing.T) {
	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := &Runner{
		Interval: 10 * time.Millisecond,
		Logger:   zerolog.Nop(),
		Fetch: func(ctx context.Context) error {
			if calls.Add(1) >= 3 {
				cancel()
			}
			return errors.New("offline")
		},
	}
	err := r.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls.Load() < 3 {
		t.Fatalf("expected retries after failures, got %d calls", calls.Load())
	}
}

func TestRunnerSkipsWhileSuspended(t *testing.T) {
	var calls, ticks atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := &Runner{
		Interval: 5 * time.Millisecond,
		Logger:   zerolog.Nop(),
		Suspended: func() bool {
			if ticks.Add(1) >= 4 {
				cancel()
			}
			return true
		},
		Fetch: func(ctx context.Context) error {
			calls.Add(1)
			return nil
		},
	}
	_ = r.Run(ctx)
	if calls.Load() != 0 {
		t.Fatalf("suspended runner should not fetch, got %d", calls.Load())
	}
}
