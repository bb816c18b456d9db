// Package dispatch drives the per-chunk transcription lifecycle: extract,
// submit, classify, retry with backoff, and report lifecycle hooks. It is
// the one outer-loop-over-chunks / inner-loop-over-attempts task loop the
// source's promise-chain callbacks become, with a single cancellation
// predicate polled at every suspension point instead of a scattered flag.
package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/chunkcast/chunkcast/internal/chunkplan"
	"github.com/chunkcast/chunkcast/internal/config"
	"github.com/chunkcast/chunkcast/internal/metrics"
	"github.com/chunkcast/chunkcast/internal/transcript"
)

// ErrCancelled is returned by TranscribeAll when the session's
// cancellation predicate fires before the plan completes.
var ErrCancelled = errors.New("dispatch: cancelled")

// ErrAuthAborted is returned when an Auth failure halts the remaining
// plan. The caller still receives the partial results accumulated so far.
var ErrAuthAborted = errors.New("dispatch: aborted after auth failure")

// ServiceResponse is the subset of the transcription service's response
// the Dispatcher consumes on success.
type ServiceResponse struct {
	Text             string
	Words            []transcript.Word
	DetectedLanguage string
	ReportedDuration time.Duration
}

// ServiceError carries everything Classify needs plus a human-readable
// message for a Failure result.
type ServiceError struct {
	StatusCode int // 0 when no HTTP response was received (network/timeout)
	Body       string
	Err        error
}

func (e *ServiceError) Error() string { return e.Err.Error() }
func (e *ServiceError) Unwrap() error { return e.Err }

// ServiceClient is the seam to the external transcription service.
type ServiceClient interface {
	Submit(ctx context.Context, payload []byte, requestID string, model, language string) (*ServiceResponse, *ServiceError)
}

// Extractor produces a chunk's audio payload on demand.
type Extractor interface {
	Extract(chunk chunkplan.Chunk) ([]byte, error)
}

// ExtractorFunc adapts a plain function to Extractor.
type ExtractorFunc func(chunk chunkplan.Chunk) ([]byte, error)

func (f ExtractorFunc) Extract(chunk chunkplan.Chunk) ([]byte, error) { return f(chunk) }

// Hooks receives lifecycle events as the Dispatcher drives the state
// machine. Implementations must not block for long, since they are
// called synchronously from the Dispatcher loop.
type Hooks interface {
	OnChunkStart(chunk chunkplan.Chunk, index int)
	OnChunkComplete(chunk chunkplan.Chunk, index int, result transcript.TranscriptionResult)
	OnChunkError(chunk chunkplan.Chunk, index int, err error)
	OnRetry(chunk chunkplan.Chunk, index int, attempt, max int, delayMs int64, kind transcript.ErrorKind)
}

// NoopHooks implements Hooks with no-op methods, for callers that only
// want the returned results slice.
type NoopHooks struct{}

func (NoopHooks) OnChunkStart(chunkplan.Chunk, int)                                   {}
func (NoopHooks) OnChunkComplete(chunkplan.Chunk, int, transcript.TranscriptionResult) {}
func (NoopHooks) OnChunkError(chunkplan.Chunk, int, error)                            {}
func (NoopHooks) OnRetry(chunkplan.Chunk, int, int, int, int64, transcript.ErrorKind) {}

const cancelPollInterval = 500 * time.Millisecond

// Dispatcher drives transcribe_all for a plan.
type Dispatcher struct {
	Client  ServiceClient
	Metrics *metrics.Dispatch

	// Model/Language are forwarded to every Submit call.
	Model    string
	Language string

	PerRequestTimeout time.Duration
	InterChunkDelay   time.Duration

	// NewRequestID returns a fresh per-attempt identifier, overridable in
	// tests. Defaults to google/uuid in the constructor.
	NewRequestID func() string
}

// New returns a Dispatcher with sane defaults for everything the caller
// doesn't set explicitly.
func New(client ServiceClient, m *metrics.Dispatch) *Dispatcher {
	return &Dispatcher{
		Client:            client,
		Metrics:           m,
		PerRequestTimeout: 120 * time.Second,
		InterChunkDelay:   500 * time.Millisecond,
		NewRequestID:      defaultRequestID,
	}
}

// TranscribeAll drives the retry state machine sequentially over chunks,
// in index order, with an inter-chunk quiescent delay. It returns the
// results accumulated so far alongside ErrCancelled or ErrAuthAborted
// when the plan does not run to completion. ctx is the caller's
// cancellation source (typically tied to SIGINT/SIGTERM): it is both
// polled between chunks and threaded into every in-flight Submit call,
// so cancelling it actively aborts a request in progress rather than
// merely stopping the plan from starting its next chunk.
func (d *Dispatcher) TranscribeAll(ctx context.Context, sess *config.Context, chunks []chunkplan.Chunk, extractor Extractor, hooks Hooks, policy transcript.RetryPolicy) ([]transcript.TranscriptionResult, error) {
	if hooks == nil {
		hooks = NoopHooks{}
	}

	results := make([]transcript.TranscriptionResult, 0, len(chunks))

	for i, chunk := range chunks {
		if sess.Cancelled() || ctx.Err() != nil {
			return results, ErrCancelled
		}

		hooks.OnChunkStart(chunk, i)
		d.Metrics.SetInFlightChunk(i)

		payload, err := extractor.Extract(chunk)
		if err != nil {
			result := transcript.TranscriptionResult{
				Kind:      transcript.Failure,
				ChunkRef:  i,
				ErrorKind: transcript.ErrorUnknown,
				Message:   err.Error(),
			}
			results = append(results, result)
			hooks.OnChunkError(chunk, i, err)
			if !d.sleepBetweenChunks(ctx, sess, i, len(chunks)) {
				return results, ErrCancelled
			}
			continue
		}

		result, aborted, cancelled := d.transcribeOne(ctx, sess, chunk, i, payload, hooks, policy)
		results = append(results, result)
		if cancelled {
			return results, ErrCancelled
		}
		if result.Kind == transcript.Success {
			hooks.OnChunkComplete(chunk, i, result)
		}
		if aborted {
			return results, ErrAuthAborted
		}

		if !d.sleepBetweenChunks(ctx, sess, i, len(chunks)) {
			return results, ErrCancelled
		}
	}

	return results, nil
}

func (d *Dispatcher) sleepBetweenChunks(ctx context.Context, sess *config.Context, i, total int) bool {
	if i >= total-1 {
		return true
	}
	return !d.sleepCancellable(ctx, sess, d.InterChunkDelay)
}

// transcribeOne runs the per-chunk retry loop. aborted reports an Auth
// failure that must halt the remaining plan; cancelled reports that the
// session's cancellation predicate fired mid-retry, or that ctx was
// cancelled out from under an in-flight request.
func (d *Dispatcher) transcribeOne(ctx context.Context, sess *config.Context, chunk chunkplan.Chunk, index int, payload []byte, hooks Hooks, policy transcript.RetryPolicy) (result transcript.TranscriptionResult, aborted, cancelled bool) {
	for attempt := 0; attempt <= policy.MaxAttempts; attempt++ {
		if sess.Cancelled() || ctx.Err() != nil {
			return result, false, true
		}

		attemptCtx, cancel := context.WithTimeout(ctx, d.PerRequestTimeout)
		start := time.Now()
		resp, svcErr := d.Client.Submit(attemptCtx, payload, d.NewRequestID(), d.Model, d.Language)
		elapsed := time.Since(start)
		cancel()

		if svcErr == nil {
			d.Metrics.RecordAttempt("")
			d.Metrics.ObserveLatency("success", elapsed)
			return transcript.TranscriptionResult{
				Kind:             transcript.Success,
				ChunkRef:         index,
				Text:             resp.Text,
				Words:            resp.Words,
				DetectedLanguage: resp.DetectedLanguage,
				ReportedDuration: resp.ReportedDuration,
			}, false, false
		}

		kind := Classify(svcErr.Err, svcErr.StatusCode, svcErr.Body)
		d.Metrics.RecordAttempt(kind)
		d.Metrics.ObserveLatency("failure", elapsed)

		failure := transcript.TranscriptionResult{
			Kind:      transcript.Failure,
			ChunkRef:  index,
			ErrorKind: kind,
			Message:   svcErr.Error(),
		}

		if !kind.Retryable() {
			hooks.OnChunkError(chunk, index, svcErr)
			return failure, kind == transcript.ErrorAuth, false
		}

		if attempt == policy.MaxAttempts {
			hooks.OnChunkError(chunk, index, svcErr)
			return failure, false, false
		}

		delay := policy.Delay(attempt)
		hooks.OnRetry(chunk, index, attempt+1, policy.MaxAttempts, delay.Milliseconds(), kind)

		if !d.sleepCancellable(ctx, sess, delay) {
			return result, false, true
		}
	}

	return result, false, false
}

// sleepCancellable waits for delay, waking immediately if ctx is
// cancelled (SIGINT/SIGTERM) and otherwise polling the session's
// cancellation predicate at least every 500ms (the mechanism tests use
// to simulate cancellation without a real context). It returns false if
// either source fired before the wait elapsed.
func (d *Dispatcher) sleepCancellable(ctx context.Context, sess *config.Context, delay time.Duration) bool {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	poll := time.NewTicker(cancelPollInterval)
	defer poll.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case <-timer.C:
			return true
		case <-poll.C:
			if sess.Cancelled() {
				return false
			}
		}
	}
}
