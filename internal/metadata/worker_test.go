package metadata_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"anitrack/internal/metadata"
)

type blockingFetcher struct {
	mu      sync.Mutex
	started chan string
	release map[string]chan struct{}
	calls   []string
}

func newBlockingFetcher() *blockingFetcher {
	return &blockingFetcher{
		started: make(chan string, 16),
		release: make(map[string]chan struct{}),
	}
}

func (f *blockingFetcher) gate(showID string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.release[showID]
	if !ok {
		ch = make(chan struct{})
		f.release[showID] = ch
	}
	return ch
}

func (f *blockingFetcher) EpisodeList(ctx context.Context, showID string, _ int) ([]string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, showID)
	f.mu.Unlock()
	gate := f.gate(showID)
	f.started <- showID
	select {
	case <-gate:
		return []string{"1", "2", showID}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func waitStarted(t *testing.T, f *blockingFetcher, want string) {
	t.Helper()
	select {
	case got := <-f.started:
		if got != want {
			t.Fatalf("fetch started for %q, want %q", got, want)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("fetch for %q never started", want)
	}
}

func TestWorkerLatestRequestWins(t *testing.T) {
	fetcher := newBlockingFetcher()
	worker := metadata.NewWorker(fetcher, nil)
	defer worker.Close()

	worker.Submit(metadata.Request{ShowID: "a"})
	waitStarted(t, fetcher, "a")
	worker.Submit(metadata.Request{ShowID: "b"})
	worker.Submit(metadata.Request{ShowID: "c"})

	// b may or may not start before c replaces it; either way it is cancelled.
	for started := ""; started != "c"; {
		select {
		case started = <-fetcher.started:
			if started != "b" && started != "c" {
				t.Fatalf("unexpected fetch for %q", started)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("fetch for c never started")
		}
	}
	close(fetcher.gate("c"))

	res, ok := worker.Await(context.Background(), "c", 5*time.Second)
	if !ok || res.Err != nil || res.Episodes[2] != "c" {
		t.Fatalf("unexpected result %#v ok=%v", res, ok)
	}
	polled, ok := worker.Poll()
	if !ok || polled.ShowID != "c" {
		t.Fatalf("expected polled result for c, got %#v ok=%v", polled, ok)
	}
	if _, ok := worker.Poll(); ok {
		t.Fatal("superseded fetches must not publish results")
	}
	if _, ok := worker.Latest("a"); ok {
		t.Fatal("cancelled fetch for a must not be recorded")
	}
	if _, ok := worker.Latest("b"); ok {
		t.Fatal("replaced request for b must not be recorded")
	}
}

func TestWorkerDuplicateSubmitDoesNotRestart(t *testing.T) {
	fetcher := newBlockingFetcher()
	worker := metadata.NewWorker(fetcher, nil)
	defer worker.Close()

	worker.Submit(metadata.Request{ShowID: "a"})
	waitStarted(t, fetcher, "a")
	worker.Submit(metadata.Request{ShowID: "a"})
	close(fetcher.gate("a"))

	if _, ok := worker.Await(context.Background(), "a", 5*time.Second); !ok {
		t.Fatal("expected result for a")
	}
	fetcher.mu.Lock()
	calls := len(fetcher.calls)
	fetcher.mu.Unlock()
	if calls != 1 {
		t.Fatalf("expected a single fetch, got %d", calls)
	}
}

func TestWorkerAwaitTimesOut(t *testing.T) {
	fetcher := newBlockingFetcher()
	worker := metadata.NewWorker(fetcher, nil)
	defer worker.Close()

	worker.Submit(metadata.Request{ShowID: "slow"})
	if _, ok := worker.Await(context.Background(), "slow", 20*time.Millisecond); ok {
		t.Fatal("expected timeout")
	}
	if _, ok := worker.Poll(); ok {
		t.Fatal("nothing should be published yet")
	}
}

type failingFetcher struct{ err error }

func (f failingFetcher) EpisodeList(context.Context, string, int) ([]string, error) {
	return nil, f.err
}

func TestWorkerPublishesErrors(t *testing.T) {
	boom := errors.New("boom")
	worker := metadata.NewWorker(failingFetcher{err: boom}, nil)
	defer worker.Close()

	worker.Submit(metadata.Request{ShowID: "x"})
	res, ok := worker.Await(context.Background(), "x", 5*time.Second)
	if !ok || !errors.Is(res.Err, boom) {
		t.Fatalf("expected failure result, got %#v ok=%v", res, ok)
	}
}

func TestWorkerCloseStopsInflightAndIgnoresSubmit(t *testing.T) {
	fetcher := newBlockingFetcher()
	worker := metadata.NewWorker(fetcher, nil)

	worker.Submit(metadata.Request{ShowID: "a"})
	waitStarted(t, fetcher, "a")

	done := make(chan struct{})
	go func() {
		worker.Close()
		worker.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not return")
	}

	worker.Submit(metadata.Request{ShowID: "b"})
	if _, ok := worker.Await(context.Background(), "b", 10*time.Millisecond); ok {
		t.Fatal("closed worker must not produce results")
	}
}
