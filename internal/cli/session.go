package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/kuitang/notebook/internal/collection"
	"github.com/kuitang/notebook/internal/config"
	"github.com/kuitang/notebook/internal/localcache"
	"github.com/kuitang/notebook/internal/notes"
	"github.com/kuitang/notebook/internal/remote"
)

// Session holds both loaded collections for the lifetime of one command.
type Session struct {
	Categories *notes.CategoryService
	Notes      *notes.Service

	cache   *localcache.Store
	server  string
	timeout time.Duration
}

// NewSession wires the collections to the cache and server. Nothing is
// fetched until Load.
func NewSession(cfg *config.ClientConfig) (*Session, error) {
	dir := cfg.CacheDir
	if dir == "" {
		var err error
		if dir, err = localcache.DefaultDir(); err != nil {
			return nil, err
		}
	}
	cache, err := localcache.Open(dir)
	if err != nil {
		return nil, err
	}
	client := remote.NewClient(cfg.Server, &http.Client{Timeout: cfg.Timeout})

	return &Session{
		Categories: notes.NewCategoryService(
			collection.NewBlobCache[notes.Category](cache, notes.CategoriesKey),
			remote.NewCollection[notes.Category](client, remote.CategoriesPath),
		),
		Notes: notes.NewService(
			collection.NewBlobCache[notes.Note](cache, notes.NotesKey),
			remote.NewCollection[notes.Note](client, remote.NotesPath),
		),
		cache:   cache,
		server:  client.BaseURL(),
		timeout: cfg.Timeout,
	}, nil
}

// Load reconciles categories, then notes, each under its own timeout. An
// unreachable or slow server is not an error; the collections fall back to
// the cached copies.
func (s *Session) Load(ctx context.Context) error {
	if err := s.loadOne(ctx, s.Categories.Load); err != nil {
		return fmt.Errorf("load categories: %w", err)
	}
	if err := s.loadOne(ctx, s.Notes.Load); err != nil {
		return fmt.Errorf("load notes: %w", err)
	}
	return nil
}

func (s *Session) loadOne(ctx context.Context, load func(context.Context) error) error {
	loadCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return load(loadCtx)
}

// ResetCache drops both cached collections. It must run before Load; the
// next Load then adopts the server copy or, offline, the defaults.
func (s *Session) ResetCache() error {
	return errors.Join(
		s.cache.Delete(notes.CategoriesKey),
		s.cache.Delete(notes.NotesKey),
	)
}

// CacheDir is where the local copies live.
func (s *Session) CacheDir() string {
	return s.cache.Dir()
}

// Server is the normalized server base URL.
func (s *Session) Server() string {
	return s.server
}

// Offline reports whether either collection fell back to the local cache.
func (s *Session) Offline() bool {
	return s.Categories.Origin() == collection.LocalFallback || s.Notes.Origin() == collection.LocalFallback
}

// Close waits for pending remote writes (bounded by ctx) and shuts both
// collections down.
func (s *Session) Close(ctx context.Context) error {
	return errors.Join(s.Notes.Close(ctx), s.Categories.Close(ctx))
}
