// Package apperrors provides a categorized error type used by the
// ambient parts of chunkcast (extraction, archive upload, notification
// delivery). Categories for config, audio I/O, decode, planning and merge
// are defined, but those packages return their own error values.
//
// It deliberately stays out of the Dispatcher's retry classification,
// which is a pure function returning its own ErrorKind taxonomy
// (see internal/dispatch.Classify) — this package is for exceptional,
// non-retryable conditions that want a component/category label and,
// optionally, a Sentry breadcrumb.
package apperrors

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
)

// Category groups errors for logging and telemetry.
type Category string

const (
	CategoryConfig    Category = "configuration"
	CategoryAudioIO   Category = "audio-io"
	CategoryDecode    Category = "decode"
	CategoryPlanning  Category = "planning"
	CategoryExtract   Category = "extraction"
	CategoryMerge     Category = "merge"
	CategoryArchive   Category = "archive"
	CategoryNotify    Category = "notify"
	CategoryGeneric   Category = "generic"
)

// Error wraps an underlying error with a component/category label and
// optional structured context, mirroring the builder shape used
// throughout the teacher codebase's internal/errors package.
type Error struct {
	err       error
	Component string
	Category  Category
	Context   map[string]any
	Timestamp time.Time

	mu       sync.Mutex
	reported bool
}

func (e *Error) Error() string {
	return e.err.Error()
}

func (e *Error) Unwrap() error {
	return e.err
}

// Report sends the error to Sentry exactly once. Safe to call from
// multiple goroutines; only the first call reports.
func (e *Error) Report() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.reported {
		return
	}
	e.reported = true

	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("component", e.Component)
		scope.SetTag("category", string(e.Category))
		for k, v := range e.Context {
			scope.SetExtra(k, v)
		}
		sentry.CaptureException(e.err)
	})
}

// Builder accumulates context before producing an *Error.
type Builder struct {
	e *Error
}

// New starts a builder around an existing error.
func New(err error) *Builder {
	return &Builder{e: &Error{err: err, Timestamp: time.Now(), Context: map[string]any{}}}
}

// Newf starts a builder around a formatted message.
func Newf(format string, args ...any) *Builder {
	return New(fmt.Errorf(format, args...))
}

func (b *Builder) Component(component string) *Builder {
	b.e.Component = component
	return b
}

func (b *Builder) WithCategory(category Category) *Builder {
	b.e.Category = category
	return b
}

func (b *Builder) Ctx(key string, value any) *Builder {
	b.e.Context[key] = value
	return b
}

// Build returns the finished *Error.
func (b *Builder) Build() *Error {
	return b.e
}

// Is supports errors.Is against category for sentinel-style checks.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Category == other.Category
	}
	return errors.Is(e.err, target)
}

// IsCategory reports whether err (or any error it wraps) carries category.
func IsCategory(err error, category Category) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Category == category
	}
	return false
}
