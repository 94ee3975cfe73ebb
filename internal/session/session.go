// Package session manages the login lifecycle: restoring a saved session,
// running the background pollers that keep chats and presence fresh, and
// tearing everything down on logout.
package session

import (
	"context"
	"log"
	"sync"
	"time"

	"chat-client/internal/models"
	"chat-client/internal/observability"
	"chat-client/internal/store"
)

// ChatActions is the slice of the actions layer the pollers need.
type ChatActions interface {
	LoadChats(ctx context.Context) error
}

// UserActions is the slice of the actions layer session management needs.
type UserActions interface {
	Restore(ctx context.Context, user models.User) error
	UpdateStatus(ctx context.Context, status string) error
	LoadStatuses(ctx context.Context) error
}

// Cache reads and clears the persisted session.
type Cache interface {
	LoadSession() (models.User, bool, error)
	ClearSession() error
}

// Closer tears down realtime subscriptions on logout.
type Closer interface {
	Close()
}

// Session owns the polling loops and the logout sequence.
type Session struct {
	store    *store.Store
	chats    ChatActions
	users    UserActions
	cache    Cache
	sync     Closer
	interval time.Duration

	mu   sync.Mutex
	stop chan struct{}
	done sync.WaitGroup
}

// New constructs a Session. interval is the polling period for both the
// chat-list and presence pollers.
func New(st *store.Store, chats ChatActions, users UserActions, cache Cache, syncer Closer, interval time.Duration) *Session {
	return &Session{
		store:    st,
		chats:    chats,
		users:    users,
		cache:    cache,
		sync:     syncer,
		interval: interval,
	}
}

// TryRestore resumes a session persisted by a previous run. It reports
// whether a session is now active.
func (s *Session) TryRestore(ctx context.Context) bool {
	user, ok, err := s.cache.LoadSession()
	if err != nil {
		log.Printf("session: load saved session: %v", err)
		return false
	}
	if !ok {
		return false
	}
	if err := s.users.Restore(ctx, user); err != nil {
		log.Printf("session: restore %s: %v", user.Username, err)
		return false
	}
	log.Printf("session: restored %s", user.Username)
	return true
}

// StartPolling launches the chat-list and presence pollers. Starting an
// already-polling session is a no-op.
func (s *Session) StartPolling(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return
	}
	s.stop = make(chan struct{})

	s.done.Add(2)
	go s.poll(ctx, s.stop, "chats", s.chats.LoadChats)
	go s.poll(ctx, s.stop, "statuses", s.users.LoadStatuses)
}

func (s *Session) poll(ctx context.Context, stop chan struct{}, name string, fn func(context.Context) error) {
	defer s.done.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			started := time.Now()
			if err := fn(ctx); err != nil {
				log.Printf("session: %s poll: %v", name, err)
			}
			observability.ObservePoll(name, time.Since(started))
		case <-stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// StopPolling halts both pollers and waits for in-flight ticks to finish.
// Idempotent: a second stop is a no-op.
func (s *Session) StopPolling() {
	s.mu.Lock()
	stop := s.stop
	s.stop = nil
	s.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	s.done.Wait()
}

// Logout marks the user offline, stops the pollers, drops realtime
// subscriptions, clears the persisted session and resets the store. The
// offline write is best effort; logout always completes locally.
func (s *Session) Logout(ctx context.Context) {
	if err := s.users.UpdateStatus(ctx, models.StatusOffline); err != nil {
		log.Printf("session: set offline status: %v", err)
	}
	s.StopPolling()
	if s.sync != nil {
		s.sync.Close()
	}
	if err := s.cache.ClearSession(); err != nil {
		log.Printf("session: clear saved session: %v", err)
	}
	s.store.Reset()
}
