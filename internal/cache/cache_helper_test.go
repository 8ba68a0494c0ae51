package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type cachedQuiz struct {
	ID    uint   `json:"id"`
	Title string `json:"title"`
}

func newTestManager(t *testing.T) (*CacheManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewCacheManager(client), mr
}

func waitForKey(t *testing.T, mr *miniredis.Miniredis, key string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if mr.Exists(key) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("key %q was never written", key)
}

func TestCacheOrExecute(t *testing.T) {
	cm, mr := newTestManager(t)
	ctx := context.Background()

	calls := 0
	fetch := func() (interface{}, error) {
		calls++
		return &cachedQuiz{ID: 7, Title: "Fractions"}, nil
	}

	var first cachedQuiz
	if err := cm.Quiz.CacheOrExecute(ctx, QuizKey(7), &first, time.Minute, fetch); err != nil {
		t.Fatalf("CacheOrExecute() error = %v", err)
	}
	if first.Title != "Fractions" {
		t.Errorf("Title = %q, want Fractions", first.Title)
	}

	waitForKey(t, mr, "quiz:id:7")

	var second cachedQuiz
	if err := cm.Quiz.CacheOrExecute(ctx, QuizKey(7), &second, time.Minute, fetch); err != nil {
		t.Fatalf("CacheOrExecute() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("fetch called %d times, want 1", calls)
	}
	if second.ID != 7 {
		t.Errorf("ID = %d, want 7", second.ID)
	}
}

func TestCacheOrExecute_FetchErrorIsWrapped(t *testing.T) {
	cm, _ := newTestManager(t)
	sentinel := errors.New("boom")

	var dest cachedQuiz
	err := cm.Quiz.CacheOrExecute(context.Background(), "missing", &dest, time.Minute, func() (interface{}, error) {
		return nil, sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected wrapped sentinel, got %v", err)
	}
}

func TestInvalidation(t *testing.T) {
	cm, mr := newTestManager(t)
	ctx := context.Background()

	if err := cm.Quiz.Set(ctx, QuizDetailsKey(3), cachedQuiz{ID: 3}, time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := cm.Enrollment.Set(ctx, EnrollmentKey(9, "s1"), true, time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	InvalidateQuizCache(ctx, cm, 3)
	SafeDelete(ctx, cm.Enrollment, EnrollmentKey(9, "s1"))

	if mr.Exists("quiz:details:3") {
		t.Error("quiz details should be invalidated")
	}
	if mr.Exists("enrollment:subject:9:student:s1") {
		t.Error("enrollment should be invalidated")
	}
}

func TestNilClientDegradesGracefully(t *testing.T) {
	cm := NewCacheManager(nil)
	ctx := context.Background()

	if cm.Enabled() {
		t.Fatal("manager without client should report disabled")
	}
	if err := cm.Quiz.Set(ctx, "k", 1, time.Minute); err != nil {
		t.Errorf("Set() on nil client = %v, want nil", err)
	}
	var v int
	if err := cm.Quiz.Get(ctx, "k", &v); !errors.Is(err, ErrCacheNotAvailable) {
		t.Errorf("Get() on nil client = %v, want ErrCacheNotAvailable", err)
	}
	if err := cm.Quiz.CacheOrExecute(ctx, "k", &v, time.Minute, func() (interface{}, error) { return 42, nil }); err != nil || v != 42 {
		t.Errorf("CacheOrExecute() = %v, %d", err, v)
	}
}
