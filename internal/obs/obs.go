// Package obs owns the process-wide structured logger and request correlation.
//
// The server logs JSON at debug level. The CLI switches to text on stderr at
// warn level (debug with --verbose). Every record written through From
// carries the request's correlation fields, and the collection it touched
// when one is known.
package obs

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// Format selects the log encoding.
type Format int

const (
	FormatJSON Format = iota
	FormatText
)

type correlationContextKey struct{}

// Correlation carries per-request correlation identifiers.
type Correlation struct {
	RequestID   string
	TraceID     string
	Traceparent string
	Tracestate  string
	// Collection is the slot key a request reads or writes.
	Collection string
}

var (
	loggerMu sync.RWMutex
	logger   *slog.Logger
	level    = new(slog.LevelVar) // zero value is info; init lowers it to debug
)

func init() {
	level.Set(slog.LevelDebug)
}

// Init installs the JSON logger on stderr unless one is already configured.
func Init() {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	if logger == nil {
		install(newLogger(os.Stderr, FormatJSON))
	}
}

// Configure replaces the global logger's sink and encoding.
func Configure(w io.Writer, format Format) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	install(newLogger(w, format))
}

// SetLevel changes the minimum level of the global logger.
func SetLevel(l slog.Level) {
	level.Set(l)
}

// SetOutputForTests sends JSON logs to w and returns a func restoring the
// previous logger.
func SetOutputForTests(w io.Writer) func() {
	loggerMu.Lock()
	prev := logger
	install(newLogger(w, FormatJSON))
	loggerMu.Unlock()

	return func() {
		loggerMu.Lock()
		defer loggerMu.Unlock()
		if prev == nil {
			prev = newLogger(os.Stderr, FormatJSON)
		}
		install(prev)
	}
}

// install must be called with loggerMu held.
func install(l *slog.Logger) {
	logger = l
	slog.SetDefault(l)
}

func newLogger(w io.Writer, format Format) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, attr slog.Attr) slog.Attr {
			if attr.Key == slog.TimeKey {
				if t, ok := attr.Value.Any().(time.Time); ok {
					return slog.String(slog.TimeKey, t.UTC().Format(time.RFC3339Nano))
				}
			}
			return attr
		},
	}
	if format == FormatText {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func globalLogger() *slog.Logger {
	loggerMu.RLock()
	l := logger
	loggerMu.RUnlock()
	if l != nil {
		return l
	}
	Init()
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return logger
}

// Pkg returns a logger tagged with package name.
func Pkg(pkg string) *slog.Logger {
	return globalLogger().With("pkg", pkg)
}

// From returns a logger with correlation fields from context.
func From(ctx context.Context) *slog.Logger {
	l := globalLogger()
	if attrs := CorrelationFromContext(ctx).attrs(); len(attrs) > 0 {
		return l.With(attrs...)
	}
	return l
}

// WithCollection tags the context with the collection a request works on.
func WithCollection(ctx context.Context, collection string) context.Context {
	return WithCorrelation(ctx, Correlation{Collection: strings.TrimSpace(collection)})
}

// WithCorrelation merges corr into the context's correlation; empty fields
// keep their current values.
func WithCorrelation(ctx context.Context, corr Correlation) context.Context {
	merged := CorrelationFromContext(ctx)
	for _, f := range []struct {
		dst *string
		src string
	}{
		{&merged.RequestID, corr.RequestID},
		{&merged.TraceID, corr.TraceID},
		{&merged.Traceparent, corr.Traceparent},
		{&merged.Tracestate, corr.Tracestate},
		{&merged.Collection, corr.Collection},
	} {
		if f.src != "" {
			*f.dst = f.src
		}
	}
	return context.WithValue(ctx, correlationContextKey{}, merged)
}

// EnsureRequestID returns ctx carrying a request id, generating one if absent.
// The remote client sends it as X-Request-Id so server access logs line up
// with client logs.
func EnsureRequestID(ctx context.Context) (context.Context, string) {
	if id := CorrelationFromContext(ctx).RequestID; id != "" {
		return ctx, id
	}
	id := newRequestID()
	return WithCorrelation(ctx, Correlation{RequestID: id}), id
}

// CorrelationFromContext returns request correlation fields from context.
func CorrelationFromContext(ctx context.Context) Correlation {
	if ctx == nil {
		return Correlation{}
	}
	corr, _ := ctx.Value(correlationContextKey{}).(Correlation)
	return corr
}

func (c Correlation) attrs() []any {
	attrs := make([]any, 0, 10)
	for _, kv := range [][2]string{
		{"request_id", c.RequestID},
		{"trace_id", c.TraceID},
		{"traceparent", c.Traceparent},
		{"tracestate", c.Tracestate},
		{"collection", c.Collection},
	} {
		if kv[1] != "" {
			attrs = append(attrs, kv[0], kv[1])
		}
	}
	return attrs
}

func newRequestID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "req-fallback"
	}
	return "req-" + hex.EncodeToString(buf)
}
