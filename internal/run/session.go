package run

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"log"
	"sync"
	"time"
)

// Session owns at most one in-flight run. Starting a new run cancels the
// previous one at its next suspension boundary, and a superseded run's
// results are discarded on arrival so they can never overwrite the
// active run's state.
type Session struct {
	base   Orchestrator
	broker *EventBroker
	cache  *ResultCache
	store  *ArtifactStore
	model  string
	effort string

	mu           sync.Mutex
	activeID     string
	activeCancel context.CancelFunc
	results      map[string]*Result
}

// SessionConfig wires a session. Cache and Store are optional.
type SessionConfig struct {
	Orchestrator Orchestrator
	Cache        *ResultCache
	Store        *ArtifactStore
	Model        string
	Effort       string
}

func NewSession(cfg SessionConfig) *Session {
	return &Session{
		base:    cfg.Orchestrator,
		broker:  NewEventBroker(),
		cache:   cfg.Cache,
		store:   cfg.Store,
		model:   cfg.Model,
		effort:  cfg.Effort,
		results: make(map[string]*Result),
	}
}

// Watch returns the event channel for a run.
func (s *Session) Watch(runID string) (<-chan Event, bool) {
	ch, ok := s.broker.Get(runID)
	return ch, ok
}

// Result returns the terminal result of a run, if it has one.
func (s *Session) Result(runID string) (*Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.results[runID]
	return r, ok
}

func (s *Session) isActive(runID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID == runID
}

// StartRun begins a new run over rawImage and returns its id. Any run
// already in flight is canceled first.
func (s *Session) StartRun(rawImage []byte) string {
	s.mu.Lock()
	if s.activeCancel != nil {
		log.Printf("session: superseding run %s", s.activeID)
		s.activeCancel()
	}
	runID := fmt.Sprintf("run-%d", time.Now().UnixNano())
	ctx, cancel := context.WithCancel(context.Background())
	s.activeID = runID
	s.activeCancel = cancel
	s.mu.Unlock()

	eventCh := s.broker.Allocate(runID, 128)
	go s.execute(ctx, cancel, runID, rawImage, eventCh)
	return runID
}

func (s *Session) execute(ctx context.Context, cancel context.CancelFunc, runID string, rawImage []byte, eventCh chan Event) {
	defer func() {
		cancel()
		s.mu.Lock()
		if s.activeID == runID {
			s.activeID = ""
			s.activeCancel = nil
		}
		s.mu.Unlock()
		close(eventCh)
		s.broker.ScheduleCleanup(runID)
	}()

	publish := func(ev Event) {
		if !s.isActive(runID) {
			return
		}
		select {
		case eventCh <- ev:
		default:
			// Slow watcher; drop rather than stall the run.
		}
	}
	publish(Event{State: StateReady})

	var cacheKey string
	if s.cache != nil {
		cacheKey = s.cache.Key(rawImage, s.model, s.effort)
		if artifact, ok := s.cache.Get(cacheKey); ok {
			log.Printf("session: cache hit for run %s", runID)
			publish(Event{State: StateDone})
			s.finish(runID, &Result{State: StateDone, Artifact: artifact})
			return
		}
	}

	orch := s.base
	orch.Progress = publish
	result, err := orch.Run(ctx, rawImage)
	if ctx.Err() != nil && !s.isActive(runID) {
		// Superseded mid-flight; discard whatever arrived.
		log.Printf("session: discarding result of superseded run %s", runID)
		return
	}
	if err != nil && result.State != StateErrored {
		// Canceled without supersession (e.g. shutdown).
		result = Result{State: StateErrored, FailureCause: err.Error()}
		publish(Event{State: StateErrored, Detail: result.FailureCause})
	}

	if result.State == StateDone && s.cache != nil {
		s.cache.Add(cacheKey, result.Artifact)
	}
	s.finish(runID, &result)
}

func (s *Session) finish(runID string, result *Result) {
	s.mu.Lock()
	s.results[runID] = result
	s.mu.Unlock()

	if result.State == StateDone {
		s.upload(runID, result)
	}
}

// upload is best effort; storage failures never fail a run.
func (s *Session) upload(runID string, result *Result) {
	if s.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.store.Put(ctx, runID, "figure.tex", "application/x-tex", []byte(result.Artifact.SourceCode)); err != nil {
		log.Printf("session: artifact upload failed for %s: %v", runID, err)
	}
	if result.Preview != nil {
		var buf bytes.Buffer
		if err := png.Encode(&buf, result.Preview); err == nil {
			if err := s.store.Put(ctx, runID, "preview.png", "image/png", buf.Bytes()); err != nil {
				log.Printf("session: preview upload failed for %s: %v", runID, err)
			}
		}
	}
}
