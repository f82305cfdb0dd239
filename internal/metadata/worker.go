package metadata

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"anitrack/internal/logging"
)

// Fetcher loads a show's episode labels.
type Fetcher interface {
	EpisodeList(ctx context.Context, showID string, totalHint int) ([]string, error)
}

// Request asks the worker for a show's episode list.
type Request struct {
	ShowID    string
	TotalHint int
}

// Result is a finished lookup.
type Result struct {
	ShowID   string
	Episodes []string
	Err      error
}

const resultBuffer = 8

// Worker fetches episode lists in the background. Only the most recent
// request matters: a new request replaces any queued one and cancels an
// in-flight fetch for a different show.
type Worker struct {
	fetcher Fetcher
	logger  *slog.Logger

	base   context.Context
	stop   context.CancelFunc
	wake   chan struct{}
	out    chan Result
	doneWG sync.WaitGroup
	once   sync.Once

	mu             sync.Mutex
	pending        *Request
	inflight       string
	cancelInflight context.CancelFunc
	superseded     bool
	latest         map[string]Result
	updated        chan struct{}
}

// NewWorker starts a worker backed by fetcher.
func NewWorker(fetcher Fetcher, logger *slog.Logger) *Worker {
	base, stop := context.WithCancel(context.Background())
	w := &Worker{
		fetcher: fetcher,
		logger:  logging.NewComponentLogger(logger, "metadata-worker"),
		base:    base,
		stop:    stop,
		wake:    make(chan struct{}, 1),
		out:     make(chan Result, resultBuffer),
		latest:  make(map[string]Result),
		updated: make(chan struct{}),
	}
	w.doneWG.Add(1)
	go w.loop()
	return w
}

// Submit queues req without blocking.
func (w *Worker) Submit(req Request) {
	req.ShowID = strings.TrimSpace(req.ShowID)
	if req.ShowID == "" {
		return
	}
	w.mu.Lock()
	if w.base.Err() != nil {
		w.mu.Unlock()
		return
	}
	if w.inflight == req.ShowID && !w.superseded {
		w.pending = nil
	} else {
		if w.cancelInflight != nil && w.inflight != req.ShowID {
			w.cancelInflight()
			w.superseded = true
		}
		w.pending = &req
	}
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Poll returns a finished result without blocking.
func (w *Worker) Poll() (Result, bool) {
	select {
	case res := <-w.out:
		return res, true
	default:
		return Result{}, false
	}
}

// Latest returns the most recent finished result for showID.
func (w *Worker) Latest(showID string) (Result, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	res, ok := w.latest[showID]
	return res, ok
}

// Await waits up to timeout for a result for showID. It returns false when
// none arrived in time or ctx ended first.
func (w *Worker) Await(ctx context.Context, showID string, timeout time.Duration) (Result, bool) {
	if ctx == nil {
		ctx = context.Background()
	}
	timer := time.NewTimer(max(timeout, 0))
	defer timer.Stop()
	for {
		w.mu.Lock()
		res, ok := w.latest[showID]
		updated := w.updated
		w.mu.Unlock()
		if ok {
			return res, true
		}
		select {
		case <-updated:
		case <-ctx.Done():
			return Result{}, false
		case <-timer.C:
			return Result{}, false
		case <-w.base.Done():
			return Result{}, false
		}
	}
}

// Close stops the worker and waits for it to exit.
func (w *Worker) Close() {
	w.once.Do(func() {
		w.mu.Lock()
		w.stop()
		w.mu.Unlock()
		w.doneWG.Wait()
	})
}

func (w *Worker) loop() {
	defer w.doneWG.Done()
	for {
		select {
		case <-w.base.Done():
			return
		case <-w.wake:
		}
		for w.runNext() {
		}
	}
}

// runNext performs the queued request, if any, and reports whether one ran.
func (w *Worker) runNext() bool {
	w.mu.Lock()
	req := w.pending
	w.pending = nil
	if req == nil || w.base.Err() != nil {
		w.mu.Unlock()
		return false
	}
	ctx, cancel := context.WithCancel(w.base)
	w.inflight = req.ShowID
	w.cancelInflight = cancel
	w.superseded = false
	w.mu.Unlock()

	episodes, err := w.fetcher.EpisodeList(ctx, req.ShowID, req.TotalHint)
	superseded := ctx.Err() != nil && w.base.Err() == nil
	cancel()

	w.mu.Lock()
	w.inflight = ""
	w.cancelInflight = nil
	w.superseded = false
	if superseded || w.base.Err() != nil {
		w.mu.Unlock()
		w.logger.Debug("episode lookup superseded", logging.String(logging.FieldShowID, req.ShowID))
		return true
	}
	res := Result{ShowID: req.ShowID, Episodes: episodes, Err: err}
	w.latest[req.ShowID] = res
	close(w.updated)
	w.updated = make(chan struct{})
	w.mu.Unlock()

	if err != nil && !errors.Is(err, context.Canceled) {
		w.logger.Debug("episode lookup failed", logging.String(logging.FieldShowID, req.ShowID), logging.Error(err))
	}
	w.publish(res)
	return true
}

// publish delivers res to Poll, dropping the oldest result when full.
func (w *Worker) publish(res Result) {
	for {
		select {
		case w.out <- res:
			return
		default:
		}
		select {
		case <-w.out:
		default:
		}
	}
}
