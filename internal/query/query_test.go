package query

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

type mapStore struct {
	mu      sync.Mutex
	entries map[string][]byte
	gets    int
}

func newMapStore() *mapStore {
	return &mapStore{entries: make(map[string][]byte)}
}

func (s *mapStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	value, ok := s.entries[key]
	return value, ok, nil
}

func (s *mapStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = value
	return nil
}

func (s *mapStore) DeletePrefix(_ context.Context, prefix string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key := range s.entries {
		if key == prefix || strings.HasPrefix(key, prefix+"/") {
			delete(s.entries, key)
			removed++
		}
	}
	return removed, nil
}

func TestKeyStringAndPrefix(t *testing.T) {
	type testCase struct {
		name   string
		key    Key
		prefix Key
		want   bool
	}
	testCases := []testCase{
		{name: "self", key: Key{"issues", "all"}, prefix: Key{"issues", "all"}, want: true},
		{name: "parent", key: UserIssues("u1"), prefix: IssuesPrefix, want: true},
		{name: "partial segment", key: Key{"issues-archive"}, prefix: IssuesPrefix, want: false},
		{name: "longer prefix", key: IssuesPrefix, prefix: AllIssuesKey, want: false},
		{name: "other family", key: WorkerRatingsKey, prefix: IssuesPrefix, want: false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.key.HasPrefix(tc.prefix); got != tc.want {
				t.Fatalf("HasPrefix() = %v, want %v", got, tc.want)
			}
		})
	}

	if got := WithSubmittersKey.String(); got != "issues/all/with-submitters" {
		t.Fatalf("String() = %q", got)
	}
	if got := (Key{"issues", "a/b"}).String(); got != "issues/a%2Fb" {
		t.Fatalf("String() escaped = %q", got)
	}
}

func TestFetchDisabledNeverTouchesStore(t *testing.T) {
	store := newMapStore()
	client := NewClient(store, 0)
	called := false

	result, err := Fetch(context.Background(), client, AllIssuesKey, false, func(context.Context) ([]string, error) {
		called = true
		return nil, nil
	})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if result.State != StateDisabled || result.Enabled() {
		t.Fatalf("Fetch() state = %s, want disabled", result.State)
	}
	if called || store.gets != 0 {
		t.Fatalf("disabled query touched fetcher=%v store gets=%d", called, store.gets)
	}
}

func TestFetchCachesSuccessAndInvalidates(t *testing.T) {
	client := NewClient(newMapStore(), 0)
	ctx := context.Background()
	calls := 0
	fetch := func(context.Context) ([]string, error) {
		calls++
		return []string{"a", "b"}, nil
	}

	first, err := Fetch(ctx, client, UserIssues("u1"), true, fetch)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if first.State != StateSuccess || first.Cached || len(first.Data) != 2 {
		t.Fatalf("first Fetch() = %+v", first)
	}

	second, err := Fetch(ctx, client, UserIssues("u1"), true, fetch)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if !second.Cached || calls != 1 {
		t.Fatalf("second Fetch() cached=%v calls=%d", second.Cached, calls)
	}

	removed, err := client.Invalidate(ctx, IssuesPrefix)
	if err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}
	if removed != 1 {
		t.Fatalf("Invalidate() removed = %d, want 1", removed)
	}

	third, err := Fetch(ctx, client, UserIssues("u1"), true, fetch)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if third.Cached || calls != 2 {
		t.Fatalf("third Fetch() cached=%v calls=%d", third.Cached, calls)
	}
}

func TestInvalidateIssuesKeepsOtherFamilies(t *testing.T) {
	client := NewClient(newMapStore(), 0)
	ctx := context.Background()
	calls := 0
	fetch := func(context.Context) (int, error) {
		calls++
		return calls, nil
	}

	if _, err := Fetch(ctx, client, WorkerRatingsKey, true, fetch); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if _, err := client.Invalidate(ctx, IssuesPrefix); err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}
	result, err := Fetch(ctx, client, WorkerRatingsKey, true, fetch)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if !result.Cached || calls != 1 {
		t.Fatalf("worker-ratings refetched: cached=%v calls=%d", result.Cached, calls)
	}
}

func TestFetchErrorIsNotCached(t *testing.T) {
	client := NewClient(newMapStore(), 0)
	ctx := context.Background()
	boom := errors.New("permission denied")
	calls := 0

	var events []State
	unsubscribe := client.Watch(func(event Event) {
		events = append(events, event.State)
	})
	defer unsubscribe()

	result, err := Fetch(ctx, client, AllIssuesKey, true, func(context.Context) (int, error) {
		calls++
		return 0, boom
	})
	if !errors.Is(err, boom) || !errors.Is(result.Err, boom) || result.State != StateError {
		t.Fatalf("Fetch() = %+v, %v", result, err)
	}

	if _, err := Fetch(ctx, client, AllIssuesKey, true, func(context.Context) (int, error) {
		calls++
		return 7, nil
	}); err != nil {
		t.Fatalf("Fetch() retry error = %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}

	want := []State{StateLoading, StateError, StateLoading, StateSuccess}
	if len(events) != len(want) {
		t.Fatalf("events = %v, want %v", events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("events[%d] = %s, want %s", i, events[i], want[i])
		}
	}
}

func TestFetchDuringInvalidationIsNotStored(t *testing.T) {
	store := newMapStore()
	client := NewClient(store, 0)
	ctx := context.Background()

	if _, err := Fetch(ctx, client, AllIssuesKey, true, func(ctx context.Context) (int, error) {
		if _, err := client.Invalidate(ctx, IssuesPrefix); err != nil {
			t.Fatalf("Invalidate() error = %v", err)
		}
		return 1, nil
	}); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if _, found, _ := store.Get(ctx, AllIssuesKey.String()); found {
		t.Fatalf("result fetched across an invalidation was cached")
	}
}

func TestWatchUnsubscribe(t *testing.T) {
	client := NewClient(newMapStore(), 0)
	count := 0
	unsubscribe := client.Watch(func(Event) { count++ })
	unsubscribe()
	unsubscribe()

	if _, err := client.Invalidate(context.Background(), IssuesPrefix); err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}
	if count != 0 {
		t.Fatalf("watcher called %d times after unsubscribe", count)
	}
}
