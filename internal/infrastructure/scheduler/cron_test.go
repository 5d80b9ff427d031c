package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"
)

func registered(h *Handle) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cron == nil {
		return 0
	}
	return len(h.cron.Entries())
}

func testJobs(runs *int) []Job {
	return []Job{
		{Name: "fetch-articles", Schedule: "0 */6 * * *", Enabled: true, Run: func(context.Context) error {
			*runs++
			return nil
		}},
		{Name: "broken", Schedule: "every now and then", Enabled: true, Run: func(context.Context) error { return nil }},
		{Name: "disabled", Schedule: "*/5 * * * *", Enabled: false, Run: func(context.Context) error { return nil }},
		{Name: "failing", Schedule: "@daily", Enabled: true, Run: func(context.Context) error {
			return errors.New("listing unavailable")
		}},
	}
}

func TestStartSkipsInvalidAndDisabled(t *testing.T) {
	t.Parallel()

	var runs int
	h := New(testJobs(&runs), time.UTC, nil)
	h.Start(context.Background())
	t.Cleanup(func() { h.Stop() })

	want := map[string]bool{"fetch-articles": true, "broken": false, "disabled": false, "failing": true}
	for _, st := range h.Status() {
		if st.Running != want[st.Name] {
			t.Fatalf("%s: running=%v, want %v", st.Name, st.Running, want[st.Name])
		}
	}
	if n := registered(h); n != 2 {
		t.Fatalf("expected 2 cron entries, got %d", n)
	}
}

func TestStartTwiceDoubleRegisters(t *testing.T) {
	t.Parallel()

	var runs int
	h := New(testJobs(&runs), time.UTC, nil)
	h.Start(context.Background())
	h.Start(context.Background())
	t.Cleanup(func() { h.Stop() })

	if n := registered(h); n != 4 {
		t.Fatalf("expected duplicated registrations, got %d entries", n)
	}
}

func TestStopClearsRegistry(t *testing.T) {
	t.Parallel()

	var runs int
	h := New(testJobs(&runs), time.UTC, nil)
	h.Start(context.Background())

	select {
	case <-h.Stop().Done():
	case <-time.After(time.Second):
		t.Fatal("stop did not settle")
	}

	for _, st := range h.Status() {
		if st.Running {
			t.Fatalf("%s still registered after Stop", st.Name)
		}
	}
	if registered(h) != 0 {
		t.Fatal("cron entries left after Stop")
	}
	// Stop on a stopped handle is a no-op.
	<-h.Stop().Done()
}

func TestRunNow(t *testing.T) {
	t.Parallel()

	var runs int
	h := New(testJobs(&runs), time.UTC, nil)

	t.Run("success", func(t *testing.T) {
		res, err := h.RunNow(context.Background(), "fetch-articles")
		if err != nil || !res.Success || runs != 1 {
			t.Fatalf("res=%+v err=%v runs=%d", res, err, runs)
		}
		if res.Duration < 0 {
			t.Fatalf("negative duration %v", res.Duration)
		}
	})

	t.Run("disabled jobs still run manually", func(t *testing.T) {
		if _, err := h.RunNow(context.Background(), "disabled"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := h.RunNow(context.Background(), "nope")
		if !errors.Is(err, ErrJobNotFound) {
			t.Fatalf("expected ErrJobNotFound, got %v", err)
		}
		if err.Error() != "job not found: nope" {
			t.Fatalf("unexpected message %q", err.Error())
		}
	})

	t.Run("job error propagates", func(t *testing.T) {
		res, err := h.RunNow(context.Background(), "failing")
		if err == nil || res.Success {
			t.Fatalf("expected failure, got res=%+v err=%v", res, err)
		}
	})
}
