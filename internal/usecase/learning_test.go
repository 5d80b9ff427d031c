package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"ShadowNews/internal/infrastructure/kv"
)

func TestRecordSessionAggregates(t *testing.T) {
	t.Parallel()

	l := NewLearningRecords(kv.NewMemoryStore(), nil)
	ctx := context.Background()
	t0 := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	clock := t0
	l.now = func() time.Time { return clock }

	sessions := []struct {
		score, minutes float64
	}{
		{72, 5},
		{88, 7.5},
		{80, 2.5},
	}
	for i, s := range sessions {
		clock = t0.Add(time.Duration(i) * time.Hour)
		if _, err := l.RecordSession(ctx, "u1", "bbc-1-abc", s.score, s.minutes); err != nil {
			t.Fatalf("session %d: %v", i, err)
		}
	}

	rec, err := l.Get(ctx, "u1", "bbc-1-abc")
	if err != nil || rec == nil {
		t.Fatalf("get: %v %v", rec, err)
	}
	if rec.PracticeCount != 3 || rec.TotalMinutes != 15 || rec.BestScore != 88 {
		t.Fatalf("unexpected aggregate %+v", rec)
	}
	if !rec.FirstPracticedAt.Equal(t0) || !rec.LastPracticedAt.Equal(t0.Add(2*time.Hour)) {
		t.Fatalf("unexpected timestamps %+v", rec)
	}

	if _, err := l.RecordSession(ctx, "", "a", 1, 1); err == nil {
		t.Fatal("expected error for empty user id")
	}
}

func TestResetRemovesOnlyThatUser(t *testing.T) {
	t.Parallel()

	l := NewLearningRecords(kv.NewMemoryStore(), nil)
	ctx := context.Background()

	for _, id := range []string{"a1", "a2", "a1"} {
		if _, err := l.RecordSession(ctx, "u1", id, 50, 1); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	if _, err := l.RecordSession(ctx, "u2", "a1", 60, 1); err != nil {
		t.Fatalf("record: %v", err)
	}

	if err := l.Reset(ctx, "u1"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	for _, id := range []string{"a1", "a2"} {
		if rec, _ := l.Get(ctx, "u1", id); rec != nil {
			t.Fatalf("record %s survived reset", id)
		}
	}
	if rec, _ := l.Get(ctx, "u2", "a1"); rec == nil {
		t.Fatal("other user's record removed")
	}

	rec, err := l.RecordSession(ctx, "u1", "a1", 40, 2)
	if err != nil || rec.PracticeCount != 1 {
		t.Fatalf("record after reset should start fresh: %+v %v", rec, err)
	}
}

func TestRecordSessionConcurrentSameUser(t *testing.T) {
	t.Parallel()

	l := NewLearningRecords(kv.NewMemoryStore(), nil)
	ctx := context.Background()
	articles := []string{"bbc-1-aaaaaa", "voa-2-bbbbbb", "engoo-3-cccccc"}
	const perArticle = 40

	var wg sync.WaitGroup
	for _, id := range articles {
		for i := 0; i < perArticle; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := l.RecordSession(ctx, "u1", id, float64(i), 1); err != nil {
					t.Errorf("record %s: %v", id, err)
				}
			}()
		}
	}
	wg.Wait()

	for _, id := range articles {
		rec, err := l.Get(ctx, "u1", id)
		if err != nil || rec == nil {
			t.Fatalf("get %s: %v %v", id, rec, err)
		}
		if rec.PracticeCount != perArticle || rec.TotalMinutes != perArticle || rec.BestScore != perArticle-1 {
			t.Fatalf("%s lost sessions: %+v", id, rec)
		}
	}

	ids, err := l.indexed(ctx, "u1")
	if err != nil || len(ids) != len(articles) {
		t.Fatalf("index = %v, %v", ids, err)
	}
	if err := l.Reset(ctx, "u1"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	for _, id := range articles {
		if rec, _ := l.Get(ctx, "u1", id); rec != nil {
			t.Fatalf("%s survived reset", id)
		}
	}
}
