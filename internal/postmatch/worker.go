package postmatch

import (
	"context"
	"sync"
	"time"

	"github.com/koyak/kombat_backend/internal/logging"
)

// VideoJob is one background video-generation request
type VideoJob struct {
	MatchID string
	Prompt  string
}

// VideoWorker is an in-process job queue for slow video generation. Jobs are
// processed one at a time by a single goroutine; a full queue rejects new
// jobs instead of blocking the battle loop.
type VideoWorker struct {
	jobs        chan VideoJob
	renderDelay time.Duration
	onComplete  func(matchID, videoURL string)

	startOnce sync.Once
	wg        sync.WaitGroup
}

// NewVideoWorker creates a worker with the given queue capacity. onComplete
// is invoked from the worker goroutine for every rendered job; it may be nil.
func NewVideoWorker(capacity int, onComplete func(matchID, videoURL string)) *VideoWorker {
	if capacity <= 0 {
		capacity = 16
	}
	return &VideoWorker{
		jobs:        make(chan VideoJob, capacity),
		renderDelay: 5 * time.Second,
		onComplete:  onComplete,
	}
}

// Start launches the worker goroutine. It runs until the context is
// cancelled; calling Start more than once is a no-op.
func (w *VideoWorker) Start(ctx context.Context) {
	w.startOnce.Do(func() {
		w.wg.Add(1)
		go w.run(ctx)
	})
}

// Wait blocks until the worker goroutine has exited
func (w *VideoWorker) Wait() {
	w.wg.Wait()
}

// Enqueue submits a job without blocking. It returns false when the queue is
// full and the job was dropped.
func (w *VideoWorker) Enqueue(job VideoJob) bool {
	select {
	case w.jobs <- job:
		logging.LogMatchEvent("video_job_queued", job.MatchID, map[string]interface{}{
			"queue_depth": len(w.jobs),
		})
		return true
	default:
		logging.Warn("Video job queue full, dropping job", map[string]interface{}{
			"match_id": job.MatchID,
		})
		return false
	}
}

func (w *VideoWorker) run(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-w.jobs:
			url, err := w.render(ctx, job)
			if err != nil {
				logging.Warn("Video render cancelled", map[string]interface{}{
					"match_id": job.MatchID,
				})
				return
			}
			logging.LogMatchEvent("video_job_completed", job.MatchID, map[string]interface{}{
				"video_url": url,
			})
			if w.onComplete != nil {
				w.onComplete(job.MatchID, url)
			}
		}
	}
}

// render simulates the slow external video generation call. A real renderer
// would call out to an image/video model here.
func (w *VideoWorker) render(ctx context.Context, job VideoJob) (string, error) {
	if w.renderDelay > 0 {
		timer := time.NewTimer(w.renderDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}
	}
	return MockVideoURL, nil
}
