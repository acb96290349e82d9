package obs

import (
	"encoding/hex"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// maxClientRequestIDLen bounds X-Request-Id values accepted from clients.
const maxClientRequestIDLen = 64

// ResponseRecorder tracks the status and size of a response. Flush and
// hijack reach the underlying writer through Unwrap (http.ResponseController).
type ResponseRecorder struct {
	http.ResponseWriter
	statusCode  int
	respBytes   int64
	wroteHeader bool
}

// NewResponseRecorder wraps w. The status defaults to 200 until the handler
// writes a header.
func NewResponseRecorder(w http.ResponseWriter) *ResponseRecorder {
	return &ResponseRecorder{ResponseWriter: w, statusCode: http.StatusOK}
}

func (r *ResponseRecorder) WriteHeader(code int) {
	if r.wroteHeader {
		return
	}
	r.statusCode = code
	r.wroteHeader = true
	r.ResponseWriter.WriteHeader(code)
}

func (r *ResponseRecorder) Write(p []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	n, err := r.ResponseWriter.Write(p)
	r.respBytes += int64(n)
	return n, err
}

func (r *ResponseRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func (r *ResponseRecorder) StatusCode() int {
	return r.statusCode
}

func (r *ResponseRecorder) RespBytes() int64 {
	return r.respBytes
}

// RequestContextMiddleware puts request correlation into the context and
// echoes the request ID back in X-Request-Id.
//
// The ID comes from the client's X-Request-Id when it is well formed (the
// notebook CLI sends one per call), else from a W3C traceparent, else it is
// generated.
func RequestContextMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceparent := strings.TrimSpace(r.Header.Get("traceparent"))
		traceID := extractTraceID(traceparent)

		requestID := clientRequestID(r.Header.Get("X-Request-Id"))
		switch {
		case requestID != "":
		case traceID != "":
			requestID = traceID
		default:
			requestID = newRequestID()
		}
		w.Header().Set("X-Request-Id", requestID)

		ctx := WithCorrelation(r.Context(), Correlation{
			RequestID:   requestID,
			TraceID:     traceID,
			Traceparent: traceparent,
			Tracestate:  strings.TrimSpace(r.Header.Get("tracestate")),
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AccessLogMiddleware emits one http_access event per request: debug for
// normal traffic, warn for server errors.
func AccessLogMiddleware(pkg string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := NewResponseRecorder(w)
		next.ServeHTTP(recorder, r)

		lvl := slog.LevelDebug
		if recorder.StatusCode() >= http.StatusInternalServerError {
			lvl = slog.LevelWarn
		}
		From(r.Context()).With("pkg", pkg).Log(r.Context(), lvl, "http_access",
			"method", r.Method,
			"path", r.URL.Path,
			"status", recorder.StatusCode(),
			"dur_ms", float64(time.Since(start).Microseconds())/1000.0,
			"req_bytes", max(r.ContentLength, 0),
			"resp_bytes", recorder.RespBytes(),
		)
	})
}

func clientRequestID(raw string) string {
	id := strings.TrimSpace(raw)
	if id == "" || len(id) > maxClientRequestIDLen {
		return ""
	}
	for _, ch := range id {
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9':
		case ch == '-', ch == '_', ch == '.':
		default:
			return ""
		}
	}
	return id
}

// extractTraceID returns the trace-id field of a version-00 style
// traceparent ("00-<32 hex>-<16 hex>-<2 hex>"), or "" when absent or invalid.
func extractTraceID(traceparent string) string {
	parts := strings.Split(traceparent, "-")
	if len(parts) != 4 || len(parts[1]) != 32 {
		return ""
	}
	traceID := strings.ToLower(parts[1])
	raw, err := hex.DecodeString(traceID)
	if err != nil {
		return ""
	}
	for _, b := range raw {
		if b != 0 {
			return traceID
		}
	}
	return ""
}
