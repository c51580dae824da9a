// Package queue drives extraction sequentially over a list of conversation
// keys. The shared page context cannot safely host two open-conversation
// operations at once, and sequential pacing keeps interaction with the
// target site at a human-plausible rate.
package queue

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pevans/chatexport"
)

const (
	// DefaultPacingMin/Max bound the randomized inter-item delay.
	DefaultPacingMin = 1500 * time.Millisecond
	DefaultPacingMax = 2500 * time.Millisecond
)

// RunState is the mutable state of one run. The orchestrator is its sole
// writer; Processed and Failures only grow within a run.
type RunState struct {
	RunID     uuid.UUID
	Selected  []string
	Excluded  []string
	Processed []string
	Failures  []chatexport.Failure
}

// RunResult is the orchestrator's exclusive output: accumulated messages
// plus the terminal run state.
type RunResult struct {
	State    RunState
	Status   chatexport.RunStatus
	Messages []chatexport.ExtractedMessage
}

// ProgressFunc receives fire-and-forget progress snapshots. A nil consumer
// is not an error.
type ProgressFunc func(chatexport.Progress)

// Store persists run artifacts between items so an export can resume after
// a restart without re-scanning. May be nil.
type Store interface {
	AppendMessages(messages []chatexport.ExtractedMessage) error
	SaveRun(runID string, status chatexport.RunStatus, processed, total int) error
}

// Orchestrator runs the queue strictly sequentially: one extraction in
// flight at any time.
type Orchestrator struct {
	channel  Channel
	store    Store
	progress ProgressFunc
	log      zerolog.Logger

	PacingMin time.Duration
	PacingMax time.Duration

	mu      sync.Mutex
	running bool
}

// New creates an orchestrator. store and progress may be nil.
func New(channel Channel, store Store, progress ProgressFunc, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		channel:   channel,
		store:     store,
		progress:  progress,
		log:       log,
		PacingMin: DefaultPacingMin,
		PacingMax: DefaultPacingMax,
	}
}

// Start processes the selected keys minus the excluded ones. It rejects a
// second start while a run is active. Conversation-scoped errors are
// recorded and the run continues; an error wrapping ErrChannelLost aborts
// the run immediately. Cancellation is cooperative: the context is checked
// between items only, never during an in-flight extraction.
func (o *Orchestrator) Start(ctx context.Context, selected, excluded []string, settings chatexport.Settings) (*RunResult, error) {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return nil, fmt.Errorf("a run is already in progress")
	}
	o.running = true
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		o.running = false
		o.mu.Unlock()
	}()

	settings = settings.Normalize()

	skip := make(map[string]bool, len(excluded))
	for _, key := range excluded {
		skip[key] = true
	}
	queue := make([]string, 0, len(selected))
	for _, key := range selected {
		if !skip[key] {
			queue = append(queue, key)
		}
	}

	result := &RunResult{
		State: RunState{
			RunID:    uuid.New(),
			Selected: selected,
			Excluded: excluded,
		},
		Status: chatexport.StatusProcessing,
	}
	total := len(queue)

	o.log.Info().
		Str("run_id", result.State.RunID.String()).
		Int("queue_length", total).
		Msg("run started")

	for i, key := range queue {
		// Cooperative cancellation, checked at item boundaries only.
		if ctx.Err() != nil {
			result.Status = chatexport.StatusCancelled
			break
		}
		if i > 0 {
			if err := o.pace(ctx); err != nil {
				result.Status = chatexport.StatusCancelled
				break
			}
		}

		res, err := o.channel.ExtractChat(ctx, key, settings)
		switch {
		case err == nil:
			result.State.Processed = append(result.State.Processed, key)
			result.Messages = append(result.Messages, res.Messages...)
			o.persist(result, res.Messages, total)
			o.log.Info().
				Str("chat", key).
				Int("collected", res.Collected).
				Bool("partial", res.Partial).
				Msg("conversation extracted")

		case errors.Is(err, chatexport.ErrChannelLost):
			// Every subsequent item would fail identically.
			result.State.Failures = append(result.State.Failures, chatexport.Failure{
				ChatKey: key,
				Reason:  err.Error(),
			})
			o.log.Error().Str("chat", key).Err(err).Msg("extraction channel lost, aborting run")
			result.Status = chatexport.StatusDone
			o.emit(result, key, total)
			return o.finish(result, key, total), nil

		default:
			result.State.Failures = append(result.State.Failures, chatexport.Failure{
				ChatKey: key,
				Reason:  err.Error(),
			})
			o.log.Warn().Str("chat", key).Err(err).Msg("conversation failed, continuing")
		}

		o.emit(result, key, total)
	}

	if result.Status == chatexport.StatusProcessing {
		result.Status = chatexport.StatusDone
	}
	return o.finish(result, "", total), nil
}

// finish emits the terminal snapshot and persists the final run record.
func (o *Orchestrator) finish(result *RunResult, current string, total int) *RunResult {
	if result.Status == chatexport.StatusProcessing {
		result.Status = chatexport.StatusDone
	}
	o.emitFinal(result, current, total)
	if o.store != nil {
		if err := o.store.SaveRun(result.State.RunID.String(), result.Status,
			len(result.State.Processed), total); err != nil {
			o.log.Warn().Err(err).Msg("failed to persist run record")
		}
	}
	o.log.Info().
		Str("run_id", result.State.RunID.String()).
		Str("status", string(result.Status)).
		Int("processed", len(result.State.Processed)).
		Int("failures", len(result.State.Failures)).
		Int("messages", len(result.Messages)).
		Msg("run finished")
	return result
}

// emit sends an in-run progress snapshot.
func (o *Orchestrator) emit(result *RunResult, current string, total int) {
	if o.progress == nil {
		return
	}
	o.progress(chatexport.Progress{
		Status:       chatexport.StatusProcessing,
		Current:      current,
		Processed:    len(result.State.Processed),
		Total:        total,
		Failures:     result.State.Failures,
		MessageCount: len(result.Messages),
	})
}

// emitFinal sends the terminal snapshot with the run's final status.
func (o *Orchestrator) emitFinal(result *RunResult, current string, total int) {
	if o.progress == nil {
		return
	}
	o.progress(chatexport.Progress{
		Status:       result.Status,
		Current:      current,
		Processed:    len(result.State.Processed),
		Total:        total,
		Failures:     result.State.Failures,
		MessageCount: len(result.Messages),
	})
}

// persist saves newly accumulated messages so export survives a restart.
func (o *Orchestrator) persist(result *RunResult, fresh []chatexport.ExtractedMessage, total int) {
	if o.store == nil {
		return
	}
	if err := o.store.AppendMessages(fresh); err != nil {
		o.log.Warn().Err(err).Msg("failed to persist messages")
	}
	if err := o.store.SaveRun(result.State.RunID.String(), chatexport.StatusProcessing,
		len(result.State.Processed), total); err != nil {
		o.log.Warn().Err(err).Msg("failed to persist run record")
	}
}

// pace waits the randomized inter-item delay, or returns early on
// cancellation.
func (o *Orchestrator) pace(ctx context.Context) error {
	min, max := o.PacingMin, o.PacingMax
	if max <= min {
		return sleepCtx(ctx, min)
	}
	delay := min + time.Duration(rand.Int63n(int64(max-min)))
	return sleepCtx(ctx, delay)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
