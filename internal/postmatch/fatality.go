package postmatch

import (
	"fmt"
	"sort"
	"strings"

	"github.com/koyak/kombat_backend/internal/logging"
	"github.com/koyak/kombat_backend/internal/scoring"
)

// MockVideoURL is the placeholder clip returned until a real renderer is
// plugged in.
const MockVideoURL = "https://www.w3schools.com/html/mov_bbb.mp4"

// FallbackSketchPrompt is used when the finishing sketch has no strokes at
// all. An empty sketch is a valid input, not an error.
const FallbackSketchPrompt = "A dramatic cinematic finishing move: the winner delivers a devastating final blow in a neon-lit arena."

// Point is one sampled coordinate of a sketch stroke
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Stroke is a single continuous line drawn by the player
type Stroke struct {
	Points []Point `json:"points"`
	Color  string  `json:"color,omitempty"`
}

// Sketch is the finishing-move drawing submitted after a knockout
type Sketch struct {
	Strokes []Stroke `json:"strokes"`
}

// FatalityRequest carries the match context for finishing-move generation
type FatalityRequest struct {
	MatchID        string                 `json:"match_id"`
	WinnerName     string                 `json:"winner_name"`
	LoserName      string                 `json:"loser_name"`
	WinnerPersona  string                 `json:"winner_persona"`
	LoserPersona   string                 `json:"loser_persona"`
	History        []scoring.HistoryEntry `json:"history"`
	Sketch         Sketch                 `json:"sketch"`
}

// FatalityResult is the outcome of the finishing-move pipeline
type FatalityResult struct {
	MatchID  string `json:"match_id"`
	Prompt   string `json:"prompt"`
	VideoURL string `json:"video_url"`
}

// SummarizeSketch reduces a stroke list to a short video prompt describing
// what was drawn. A sketch with zero strokes yields the explicit fallback
// prompt rather than an error.
func SummarizeSketch(sketch Sketch, winner, loser string) string {
	strokeCount := 0
	pointCount := 0
	colors := make(map[string]struct{})
	for _, stroke := range sketch.Strokes {
		if len(stroke.Points) == 0 {
			continue
		}
		strokeCount++
		pointCount += len(stroke.Points)
		if stroke.Color != "" {
			colors[stroke.Color] = struct{}{}
		}
	}

	if strokeCount == 0 {
		return FallbackSketchPrompt
	}

	complexity := "a simple doodle"
	switch {
	case strokeCount >= 20 || pointCount >= 500:
		complexity = "an elaborate detailed drawing"
	case strokeCount >= 5:
		complexity = "a rough sketch"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "A cinematic finishing move where %s defeats %s, styled after %s the player drew (%d strokes)",
		winner, loser, complexity, strokeCount)
	if len(colors) > 0 {
		b.WriteString(", dominated by ")
		b.WriteString(joinColors(colors))
		b.WriteString(" tones")
	}
	b.WriteString(". Over-the-top arcade fatality, dramatic lighting.")
	return b.String()
}

func joinColors(colors map[string]struct{}) string {
	names := make([]string, 0, len(colors))
	for c := range colors {
		names = append(names, c)
	}
	sort.Strings(names) // keep prompt output stable
	return strings.Join(names, ", ")
}

// Pipeline runs the post-match finishing-move flow: summarize the sketch,
// render the clip (stubbed) and hand back the URL.
type Pipeline struct {
	worker *VideoWorker
}

// NewPipeline creates the pipeline. The worker may be nil when background
// arena videos are disabled.
func NewPipeline(worker *VideoWorker) *Pipeline {
	return &Pipeline{worker: worker}
}

// GenerateFatality produces the finishing-move video for a completed match.
// Rendering is synchronous from the caller's point of view but currently a
// stub returning the mock clip.
func (p *Pipeline) GenerateFatality(req FatalityRequest) FatalityResult {
	prompt := SummarizeSketch(req.Sketch, req.WinnerName, req.LoserName)

	logging.LogMatchEvent("fatality_generated", req.MatchID, map[string]interface{}{
		"winner":  req.WinnerName,
		"strokes": len(req.Sketch.Strokes),
	})

	return FatalityResult{
		MatchID:  req.MatchID,
		Prompt:   prompt,
		VideoURL: MockVideoURL,
	}
}

// QueueArenaVideo enqueues a background arena-video job for a critical hit.
// It reports whether the job was accepted.
func (p *Pipeline) QueueArenaVideo(matchID, prompt string) bool {
	if p.worker == nil {
		return false
	}
	return p.worker.Enqueue(VideoJob{MatchID: matchID, Prompt: prompt})
}
