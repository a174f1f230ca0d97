package postmatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizeSketchEmptyUsesFallbackPrompt(t *testing.T) {
	got := SummarizeSketch(Sketch{}, "Alice", "Bob")
	assert.Equal(t, FallbackSketchPrompt, got)

	// strokes with no points count as empty too
	got = SummarizeSketch(Sketch{Strokes: []Stroke{{}, {}}}, "Alice", "Bob")
	assert.Equal(t, FallbackSketchPrompt, got)
}

func TestSummarizeSketchDescribesDrawing(t *testing.T) {
	sketch := Sketch{Strokes: []Stroke{
		{Points: []Point{{0, 0}, {1, 1}}, Color: "red"},
		{Points: []Point{{2, 2}}, Color: "blue"},
	}}

	got := SummarizeSketch(sketch, "Alice", "Bob")
	assert.Contains(t, got, "Alice defeats Bob")
	assert.Contains(t, got, "2 strokes")
	assert.Contains(t, got, "blue, red", "colors listed in stable order")
}

func TestSummarizeSketchComplexityTiers(t *testing.T) {
	one := Sketch{Strokes: []Stroke{{Points: []Point{{0, 0}}}}}
	assert.Contains(t, SummarizeSketch(one, "a", "b"), "simple doodle")

	five := Sketch{}
	for i := 0; i < 5; i++ {
		five.Strokes = append(five.Strokes, Stroke{Points: []Point{{0, 0}}})
	}
	assert.Contains(t, SummarizeSketch(five, "a", "b"), "rough sketch")

	twenty := Sketch{}
	for i := 0; i < 20; i++ {
		twenty.Strokes = append(twenty.Strokes, Stroke{Points: []Point{{0, 0}}})
	}
	assert.Contains(t, SummarizeSketch(twenty, "a", "b"), "elaborate detailed drawing")
}

func TestGenerateFatalityReturnsMockVideo(t *testing.T) {
	pipeline := NewPipeline(nil)

	result := pipeline.GenerateFatality(FatalityRequest{
		MatchID:    "m-1",
		WinnerName: "Alice",
		LoserName:  "Bob",
	})

	assert.Equal(t, "m-1", result.MatchID)
	assert.Equal(t, MockVideoURL, result.VideoURL)
	assert.Equal(t, FallbackSketchPrompt, result.Prompt)
}

func TestQueueArenaVideoWithoutWorker(t *testing.T) {
	pipeline := NewPipeline(nil)
	assert.False(t, pipeline.QueueArenaVideo("m-1", "prompt"))
}

func TestVideoWorkerProcessesJobs(t *testing.T) {
	var mu sync.Mutex
	var completed []string
	worker := NewVideoWorker(4, func(matchID, videoURL string) {
		mu.Lock()
		defer mu.Unlock()
		completed = append(completed, matchID+"|"+videoURL)
	})
	worker.renderDelay = 0

	ctx, cancel := context.WithCancel(context.Background())
	worker.Start(ctx)

	require.True(t, worker.Enqueue(VideoJob{MatchID: "m-1", Prompt: "p"}))
	require.True(t, worker.Enqueue(VideoJob{MatchID: "m-2", Prompt: "p"}))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(completed) == 2
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	assert.Equal(t, "m-1|"+MockVideoURL, completed[0])
	assert.Equal(t, "m-2|"+MockVideoURL, completed[1])
	mu.Unlock()

	cancel()
	worker.Wait()
}

func TestVideoWorkerRejectsWhenFull(t *testing.T) {
	worker := NewVideoWorker(1, nil)
	// not started, so the queue never drains

	assert.True(t, worker.Enqueue(VideoJob{MatchID: "m-1"}))
	assert.False(t, worker.Enqueue(VideoJob{MatchID: "m-2"}), "full queue must drop, not block")
}
