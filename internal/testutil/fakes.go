package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/dom/faceoff/internal/domain"
	"github.com/dom/faceoff/internal/facescore"
)

// FakeScorer returns scores keyed by image content. Images it has no entry
// for fail with Err, or ErrNoFaceDetected if Err is nil.
type FakeScorer struct {
	mu     sync.Mutex
	Scores map[string]float64
	Err    error
	calls  []string
	times  []time.Time
}

func NewFakeScorer(scores map[string]float64) *FakeScorer {
	return &FakeScorer{Scores: scores}
}

func (f *FakeScorer) Analyze(_ context.Context, image []byte) (*facescore.Analysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, string(image))
	f.times = append(f.times, time.Now())

	score, ok := f.Scores[string(image)]
	if !ok {
		if f.Err != nil {
			return nil, f.Err
		}
		return nil, facescore.ErrNoFaceDetected
	}
	return &facescore.Analysis{Score: score, MaleScore: score, FemaleScore: score}, nil
}

// SetScore is safe to call while a server is using the scorer.
func (f *FakeScorer) SetScore(image string, score float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Scores[image] = score
}

// Calls returns the images analysed so far, in order.
func (f *FakeScorer) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallTimes returns when each Analyze call started, in order.
func (f *FakeScorer) CallTimes() []time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]time.Time, len(f.times))
	copy(out, f.times)
	return out
}

type PublishedEvent struct {
	Event domain.MatchEvent
	Match domain.Match
}

// RecordingNotifier keeps every published event.
type RecordingNotifier struct {
	mu     sync.Mutex
	events []PublishedEvent
}

func (n *RecordingNotifier) Publish(_ context.Context, event domain.MatchEvent, match *domain.Match) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, PublishedEvent{Event: event, Match: *match})
}

func (n *RecordingNotifier) Events() []PublishedEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]PublishedEvent, len(n.events))
	copy(out, n.events)
	return out
}
