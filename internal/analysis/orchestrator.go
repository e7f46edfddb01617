package analysis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jmerrifield20/synthscan/internal/media"
	"github.com/jmerrifield20/synthscan/internal/risk"
	"github.com/jmerrifield20/synthscan/pkg/client"
)

// Phase is the lifecycle position of the live analysis.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseRunning   Phase = "running"
	PhaseSucceeded Phase = "succeeded"
	PhaseFailed    Phase = "failed"
)

// Terminal reports whether the phase ends a submission.
func (p Phase) Terminal() bool {
	return p == PhaseSucceeded || p == PhaseFailed
}

// ErrorKind is the failure surfaced to presentation. The raw cause is only
// logged.
type ErrorKind string

const (
	ErrorNone              ErrorKind = ""
	ErrorNetwork           ErrorKind = "network_error"
	ErrorMalformedResponse ErrorKind = "malformed_response"
)

// Message is the static user-facing text for the kind.
func (k ErrorKind) Message() string {
	switch k {
	case ErrorNetwork:
		return "failed to reach the analysis engine"
	case ErrorMalformedResponse:
		return "the analysis engine returned an unreadable result"
	default:
		return ""
	}
}

// ErrSuperseded is returned by Wait when a newer submission or a reset
// replaced the one being waited on.
var ErrSuperseded = errors.New("submission superseded")

// State is a snapshot of the orchestrator. File is set for every phase but
// idle, Result and Risk only when succeeded, Err only when failed.
type State struct {
	Phase      Phase
	Submission uint64
	File       *media.File
	Result     *Result
	Risk       risk.Tier
	Err        ErrorKind
}

// Backend submits one file for analysis. *client.Client implements it.
type Backend interface {
	Analyze(ctx context.Context, name, contentType string, body io.Reader) (*client.RawResponse, error)
}

// MetricsRecordFunc is an optional callback for recording analysis
// outcomes: "succeeded", "failed" or "discarded".
type MetricsRecordFunc func(outcome string, elapsed time.Duration)

// Orchestrator runs at most one live analysis. A new submission supersedes
// the running one; the superseded backend call is left to finish and its
// reply is dropped.
type Orchestrator struct {
	backend   Backend
	logger    *zap.Logger
	onMetrics MetricsRecordFunc

	mu      sync.Mutex
	state   State
	lastID  uint64
	subs    map[int]chan State
	nextSub int
}

// New creates an idle Orchestrator.
func New(backend Backend, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		backend: backend,
		logger:  logger,
		state:   State{Phase: PhaseIdle},
		subs:    make(map[int]chan State),
	}
}

// SetMetricsRecord configures the metrics recording callback.
func (o *Orchestrator) SetMetricsRecord(fn MetricsRecordFunc) {
	o.mu.Lock()
	o.onMetrics = fn
	o.mu.Unlock()
}

// State returns the current snapshot.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Submit starts analysing f and returns its submission id. f must already
// have passed media.Validate; it is not checked again here.
//
// The backend call does not inherit ctx's cancellation, only its values.
func (o *Orchestrator) Submit(ctx context.Context, f media.File) uint64 {
	o.mu.Lock()
	o.lastID++
	id := o.lastID
	file := f
	o.state = State{Phase: PhaseRunning, Submission: id, File: &file}
	o.publishLocked()
	o.mu.Unlock()

	o.logger.Info("analysis submitted",
		zap.Uint64("submission", id),
		zap.String("file", f.Name),
		zap.String("type", f.Type),
		zap.Int64("size", f.Size),
	)

	go o.run(context.WithoutCancel(ctx), id, file)
	return id
}

// Reset abandons any result or running submission and returns to idle.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	prev := o.state
	o.state = State{Phase: PhaseIdle}
	o.publishLocked()
	o.mu.Unlock()

	if prev.Phase != PhaseIdle {
		o.logger.Info("analysis reset",
			zap.Uint64("submission", prev.Submission),
			zap.String("phase", string(prev.Phase)),
		)
	}
}

// Subscribe returns a channel that receives the newest state after every
// transition, and a func that ends the subscription. Slow readers only miss
// intermediate states, never the latest one.
func (o *Orchestrator) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)

	o.mu.Lock()
	id := o.nextSub
	o.nextSub++
	o.subs[id] = ch
	ch <- o.state
	o.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			o.mu.Lock()
			delete(o.subs, id)
			o.mu.Unlock()
		})
	}
}

// Wait blocks until submission id reaches a terminal phase and returns that
// state. It returns ErrSuperseded if another submission or a reset takes
// over first, and ctx.Err() if ctx ends.
func (o *Orchestrator) Wait(ctx context.Context, id uint64) (State, error) {
	ch, cancel := o.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return State{}, ctx.Err()
		case s := <-ch:
			if s.Submission != id {
				return s, ErrSuperseded
			}
			if s.Phase.Terminal() {
				return s, nil
			}
		}
	}
}

func (o *Orchestrator) run(ctx context.Context, id uint64, f media.File) {
	start := time.Now()
	requestID := uuid.NewString()
	log := o.logger.With(
		zap.Uint64("submission", id),
		zap.String("request_id", requestID),
	)

	next := o.analyze(client.ContextWithRequestID(ctx, requestID), log, f)
	next.Submission = id
	next.File = &f

	outcome := string(next.Phase)
	if !o.commit(id, next) {
		outcome = "discarded"
		log.Debug("discarding stale analysis response", zap.String("phase", string(next.Phase)))
	} else if next.Phase == PhaseSucceeded {
		log.Info("analysis succeeded",
			zap.String("verdict", string(next.Result.Verdict)),
			zap.Float64("confidence", next.Result.Confidence),
			zap.String("risk", string(next.Risk)),
			zap.Duration("elapsed", time.Since(start)),
		)
	}

	o.mu.Lock()
	onMetrics := o.onMetrics
	o.mu.Unlock()
	if onMetrics != nil {
		onMetrics(outcome, time.Since(start))
	}
}

// analyze performs the backend call and builds the terminal state.
func (o *Orchestrator) analyze(ctx context.Context, log *zap.Logger, f media.File) State {
	body, err := f.Open()
	if err != nil {
		// Surfaced as a network error: the file never reached the engine.
		log.Error("open upload", zap.Error(err))
		return State{Phase: PhaseFailed, Err: ErrorNetwork}
	}
	defer body.Close()

	raw, err := o.backend.Analyze(ctx, f.Name, f.Type, body)
	if err != nil {
		kind := classifyError(err)
		log.Warn("analysis failed", zap.String("kind", string(kind)), zap.Error(err))
		return State{Phase: PhaseFailed, Err: kind}
	}

	result, err := Normalize(raw, f.Name, f.Type)
	if err != nil {
		log.Warn("analysis response rejected", zap.Error(err))
		return State{Phase: PhaseFailed, Err: ErrorMalformedResponse}
	}

	return State{
		Phase:  PhaseSucceeded,
		Result: result,
		Risk:   risk.Classify(result.Confidence),
	}
}

func classifyError(err error) ErrorKind {
	if errors.Is(err, client.ErrMalformedResponse) {
		return ErrorMalformedResponse
	}
	return ErrorNetwork
}

// commit applies next only if submission id is still the running one.
func (o *Orchestrator) commit(id uint64, next State) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state.Phase != PhaseRunning || o.state.Submission != id {
		return false
	}
	o.state = next
	o.publishLocked()
	return true
}

// publishLocked hands the current state to every subscriber, replacing any
// state they have not read yet. o.mu must be held.
func (o *Orchestrator) publishLocked() {
	for _, ch := range o.subs {
		select {
		case <-ch:
		default:
		}
		ch <- o.state
	}
}

// String implements fmt.Stringer for logs and CLI output.
func (s State) String() string {
	switch s.Phase {
	case PhaseRunning:
		return fmt.Sprintf("running #%d (%s)", s.Submission, s.File.Name)
	case PhaseSucceeded:
		return fmt.Sprintf("succeeded #%d: %s %.1f%% (%s)", s.Submission, s.Result.Verdict, s.Result.Confidence*100, s.Risk)
	case PhaseFailed:
		return fmt.Sprintf("failed #%d: %s", s.Submission, s.Err.Message())
	default:
		return string(PhaseIdle)
	}
}
