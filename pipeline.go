package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
)

type snapshotter interface {
	Snapshot(ctx context.Context) (HostSnapshot, error)
}

type addressProber interface {
	Addresses(ctx context.Context) Addresses
}

type reportSender interface {
	Send(ctx context.Context, doc *ReportDocument) error
}

// Run phases reported to observers.
const (
	PhaseStarted  = "started"
	PhaseRendered = "rendered"
	PhaseSent     = "sent"
	PhaseFailed   = "failed"
)

// RunEvent describes progress of one pipeline run.
type RunEvent struct {
	RunID   string    `json:"run_id"`
	Phase   string    `json:"phase"`
	Time    time.Time `json:"time"`
	Subject string    `json:"subject,omitempty"`
	Error   string    `json:"error,omitempty"`
}

// Pipeline runs Collector -> Renderer -> Dispatcher once per call. Runs are
// serialized so a manual send never overlaps a scheduled one.
type Pipeline struct {
	log       logr.Logger
	variant   HostVariant
	pi        PiConfig
	collector snapshotter
	prober    addressProber
	renderer  *Renderer
	sender    reportSender

	runMu     sync.Mutex
	mu        sync.Mutex
	observers []func(RunEvent)
	last      *RunEvent
}

func newPipeline(log logr.Logger, variant HostVariant, pi PiConfig, collector snapshotter, prober addressProber, renderer *Renderer, sender reportSender) *Pipeline {
	return &Pipeline{
		log:       log,
		variant:   variant,
		pi:        pi,
		collector: collector,
		prober:    prober,
		renderer:  renderer,
		sender:    sender,
	}
}

// Observe registers fn for every run event. Observers must not block.
func (p *Pipeline) Observe(fn func(RunEvent)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, fn)
}

// LastEvent returns the final event of the most recent run, or nil.
func (p *Pipeline) LastEvent() *RunEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil {
		return nil
	}
	ev := *p.last
	return &ev
}

// Render collects a fresh snapshot and renders it without sending.
func (p *Pipeline) Render(ctx context.Context) (*ReportDocument, error) {
	snap, err := p.collector.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("collect: %w", err)
	}
	addrs := p.prober.Addresses(ctx)
	return p.renderer.Render(snap, p.variant, addrs, p.pi)
}

// Run produces and sends exactly one report. Nothing is sent if collection
// or rendering fails.
func (p *Pipeline) Run(ctx context.Context) error {
	p.runMu.Lock()
	defer p.runMu.Unlock()

	runID := uuid.NewString()
	log := p.log.WithValues("run", runID)
	p.emit(RunEvent{RunID: runID, Phase: PhaseStarted})

	doc, err := p.Render(ctx)
	if err != nil {
		p.emit(RunEvent{RunID: runID, Phase: PhaseFailed, Error: err.Error()})
		return err
	}
	log.V(1).Info("report rendered", "subject", doc.Subject, "bytes", len(doc.HTML))
	p.emit(RunEvent{RunID: runID, Phase: PhaseRendered, Subject: doc.Subject})

	if err := p.sender.Send(ctx, doc); err != nil {
		p.emit(RunEvent{RunID: runID, Phase: PhaseFailed, Subject: doc.Subject, Error: err.Error()})
		return err
	}
	p.emit(RunEvent{RunID: runID, Phase: PhaseSent, Subject: doc.Subject})
	return nil
}

func (p *Pipeline) emit(ev RunEvent) {
	ev.Time = time.Now()

	p.mu.Lock()
	if ev.Phase == PhaseSent || ev.Phase == PhaseFailed {
		last := ev
		p.last = &last
	}
	observers := append([]func(RunEvent){}, p.observers...)
	p.mu.Unlock()

	for _, fn := range observers {
		fn(ev)
	}
}
