package speech

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrNoAudio is returned when the synthesis engine produced zero audio
// fragments for an utterance.
var ErrNoAudio = errors.New("speech: engine produced no audio")

// ErrSynthesisTimeout is returned when a synthesis call did not complete
// within the bridge deadline.
var ErrSynthesisTimeout = errors.New("speech: synthesis timed out")

// Synthesizer produces one complete audio clip for one utterance.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voiceID, rate string) ([]byte, error)
}

type synthResult struct {
	data []byte
	err  error
}

type synthJob struct {
	ctx     context.Context
	text    string
	voiceID string
	rate    string
	result  chan synthResult
}

// Bridge funnels synthesis requests from concurrent callers through a single
// long-lived worker goroutine, so the engine sees one call at a time. The
// worker is started lazily under a creation lock; steady-state submissions
// only touch channels. Each call is bounded by the configured deadline, and
// if the worker has died the call falls back to invoking the engine directly.
type Bridge struct {
	synth   Synthesizer
	timeout time.Duration
	log     zerolog.Logger

	mu      sync.Mutex
	jobs    chan synthJob
	dead    chan struct{}
	started bool
}

// NewBridge wraps synth with per-call deadline enforcement.
func NewBridge(synth Synthesizer, timeout time.Duration, log zerolog.Logger) *Bridge {
	return &Bridge{synth: synth, timeout: timeout, log: log}
}

// Synthesize submits one utterance and blocks until audio is ready, the
// deadline passes, or ctx is cancelled.
func (b *Bridge) Synthesize(ctx context.Context, text, voiceID, rate string) ([]byte, error) {
	jctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	jobs, dead := b.runner()
	job := synthJob{ctx: jctx, text: text, voiceID: voiceID, rate: rate, result: make(chan synthResult, 1)}

	select {
	case jobs <- job:
	case <-dead:
		b.log.Warn().Msg("synthesis worker unavailable, running one-shot synthesis")
		return b.synthesizeOnce(jctx, text, voiceID, rate)
	case <-jctx.Done():
		return nil, b.deadlineError(ctx, jctx)
	}

	select {
	case res := <-job.result:
		return res.data, res.err
	case <-dead:
		b.log.Warn().Msg("synthesis worker died mid-call, running one-shot synthesis")
		return b.synthesizeOnce(jctx, text, voiceID, rate)
	case <-jctx.Done():
		return nil, b.deadlineError(ctx, jctx)
	}
}

func (b *Bridge) deadlineError(ctx, jctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(jctx.Err(), context.DeadlineExceeded) {
		return ErrSynthesisTimeout
	}
	return jctx.Err()
}

// runner returns the worker's job channel, starting the worker on first use.
func (b *Bridge) runner() (chan synthJob, chan struct{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.started {
		b.jobs = make(chan synthJob)
		b.dead = make(chan struct{})
		b.started = true
		go b.run(b.jobs, b.dead)
	}
	return b.jobs, b.dead
}

func (b *Bridge) run(jobs chan synthJob, dead chan struct{}) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().Interface("panic", r).Msg("synthesis worker panicked")
			b.mu.Lock()
			b.started = false
			b.mu.Unlock()
			close(dead)
		}
	}()

	for job := range jobs {
		if job.ctx.Err() != nil {
			job.result <- synthResult{err: job.ctx.Err()}
			continue
		}
		data, err := b.synth.Synthesize(job.ctx, job.text, job.voiceID, job.rate)
		job.result <- synthResult{data: data, err: err}
	}
}

func (b *Bridge) synthesizeOnce(ctx context.Context, text, voiceID, rate string) (data []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			data, err = nil, fmt.Errorf("speech: one-shot synthesis panicked: %v", r)
		}
	}()
	return b.synth.Synthesize(ctx, text, voiceID, rate)
}
