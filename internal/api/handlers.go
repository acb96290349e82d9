// Package api serves the remote key-value slots the notes clients mirror to.
// Each collection is one JSON array under a fixed key; GET returns it and POST
// replaces it wholesale.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kuitang/notebook/internal/errs"
	"github.com/kuitang/notebook/internal/kv"
	"github.com/kuitang/notebook/internal/notes"
	"github.com/kuitang/notebook/internal/obs"
)

// DefaultMaxBodyBytes bounds a POSTed collection.
const DefaultMaxBodyBytes int64 = 8 << 20

// Slot binds a URL path to a store key.
type Slot struct {
	Path string
	Key  string
}

// Slots are the collections the server exposes.
var Slots = []Slot{
	{Path: "/api/notes", Key: notes.NotesKey},
	{Path: "/api/categories", Key: notes.CategoriesKey},
}

// Observer receives API-level events for metrics. All methods must be safe
// for concurrent use.
type Observer interface {
	IncNotModified()
	AddRejectedBytes(n int64)
	SetSlotBytes(key string, n int)
}

// Handler serves the collection slots from a kv.Store.
type Handler struct {
	store        kv.Store
	maxBodyBytes int64
	observer     Observer
}

// NewHandler creates a handler. maxBodyBytes <= 0 selects DefaultMaxBodyBytes.
// observer may be nil.
func NewHandler(store kv.Store, maxBodyBytes int64, observer Observer) *Handler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	if observer == nil {
		observer = nopObserver{}
	}
	return &Handler{store: store, maxBodyBytes: maxBodyBytes, observer: observer}
}

// RegisterRoutes registers the slot endpoints and /healthz on mux. wrap, if
// non-nil, decorates each slot handler with the pattern it is registered
// under (used for per-route metrics).
func (h *Handler) RegisterRoutes(mux *http.ServeMux, wrap func(pattern string, next http.Handler) http.Handler) {
	if wrap == nil {
		wrap = func(_ string, next http.Handler) http.Handler { return next }
	}
	for _, slot := range Slots {
		get := "GET " + slot.Path
		post := "POST " + slot.Path
		mux.Handle(get, wrap(get, h.GetSlot(slot.Key)))
		mux.Handle(post, wrap(post, h.PutSlot(slot.Key)))
	}
	mux.HandleFunc("GET /healthz", h.Health)
}

// GetSlot handles GET on a slot: the stored array, or [] when unset.
func (h *Handler) GetSlot(key string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r = r.WithContext(obs.WithCollection(r.Context(), key))
		entry, err := h.store.Get(r.Context(), key)
		if errors.Is(err, kv.ErrNotFound) {
			entry = kv.Entry{Value: []byte("[]"), Digest: kv.Digest([]byte("[]"))}
		} else if err != nil {
			writeCodedError(w, r, errs.Wrap(errs.Unavailable, "store unavailable", err))
			return
		}

		etag := `"` + entry.Digest + `"`
		w.Header().Set("ETag", etag)
		w.Header().Set("Cache-Control", "no-cache")
		if etagMatches(r.Header.Get("If-None-Match"), etag) {
			h.observer.IncNotModified()
			w.WriteHeader(http.StatusNotModified)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(entry.Value)
	})
}

// PutSlot handles POST on a slot. The body must be a JSON array; it is stored
// compacted, element order unchanged.
func (h *Handler) PutSlot(key string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r = r.WithContext(obs.WithCollection(r.Context(), key))
		if r.ContentLength > h.maxBodyBytes {
			h.observer.AddRejectedBytes(r.ContentLength)
			writeCodedError(w, r, errs.Newf(errs.TooLarge, "payload exceeds %d bytes", h.maxBodyBytes))
			return
		}
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				h.observer.AddRejectedBytes(tooLarge.Limit)
				writeCodedError(w, r, errs.Newf(errs.TooLarge, "payload exceeds %d bytes", h.maxBodyBytes))
				return
			}
			writeCodedError(w, r, errs.Wrap(errs.InvalidArgument, "failed to read body", err))
			return
		}

		value, err := normalizeArray(body)
		if err != nil {
			writeCodedError(w, r, err)
			return
		}

		entry, err := h.store.Put(r.Context(), key, value)
		if err != nil {
			writeCodedError(w, r, errs.Wrap(errs.Unavailable, "store unavailable", err))
			return
		}
		h.observer.SetSlotBytes(key, len(value))

		w.Header().Set("ETag", `"`+entry.Digest+`"`)
		writeJSON(w, http.StatusOK, OKResponse{OK: true})
	})
}

// Health handles GET /healthz. It pings the store with a short deadline.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		obs.From(r.Context()).With("pkg", "api").Warn("health check failed", "backend", h.store.Backend(), "error", err)
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Backend: h.store.Backend()})
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Backend: h.store.Backend()})
}

// normalizeArray checks that body is one JSON array and returns it compacted.
// A JSON null is stored as an empty array.
func normalizeArray(body []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, errs.New(errs.InvalidArgument, "body must be a JSON array")
	}
	if bytes.Equal(trimmed, []byte("null")) {
		return []byte("[]"), nil
	}
	if trimmed[0] != '[' {
		return nil, errs.New(errs.InvalidArgument, "body must be a JSON array")
	}
	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, errs.Wrap(errs.InvalidArgument, "body must be a JSON array", err)
	}
	var out bytes.Buffer
	if err := json.Compact(&out, trimmed); err != nil {
		return nil, errs.Wrap(errs.InvalidArgument, "body must be a JSON array", err)
	}
	return out.Bytes(), nil
}

// etagMatches implements the weak comparison If-None-Match uses.
func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}

type nopObserver struct{}

func (nopObserver) IncNotModified() {}

func (nopObserver) AddRejectedBytes(int64) {}

func (nopObserver) SetSlotBytes(string, int) {}

// OKResponse acknowledges a write.
type OKResponse struct {
	OK bool `json:"ok"`
}

// HealthResponse reports store reachability.
type HealthResponse struct {
	Status  string `json:"status"`
	Backend string `json:"backend"`
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response with the given status code
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeCodedError maps err through errs and logs server-side failures.
func writeCodedError(w http.ResponseWriter, r *http.Request, err error) {
	status := errs.HTTPStatus(errs.CodeOf(err))
	if status >= http.StatusInternalServerError {
		obs.From(r.Context()).With("pkg", "api").Error("request failed", "path", r.URL.Path, "status", status, "error", err)
	}
	writeError(w, status, errs.MessageOf(err))
}
