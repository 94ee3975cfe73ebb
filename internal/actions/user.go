package actions

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"chat-client/internal/models"
	"chat-client/internal/realtime"
	"chat-client/internal/repositories"
	"chat-client/internal/store"
	"chat-client/internal/telemetry"
)

// SessionCache persists the logged-in user across process restarts.
type SessionCache interface {
	SaveSession(models.User) error
	ClearSession() error
}

// Users bundles account, profile and presence operations.
type Users struct {
	users repositories.UserRepository
	store *store.Store
	rt    realtime.Publisher
	cache SessionCache
	audit *telemetry.AuditEmitter
}

// NewUsers constructs the user actions.
func NewUsers(users repositories.UserRepository, st *store.Store, rt realtime.Publisher,
	cache SessionCache, audit *telemetry.AuditEmitter) *Users {
	return &Users{users: users, store: st, rt: rt, cache: cache, audit: audit}
}

func passwordDigest(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// Register creates an account, logs the user in and marks them online.
func (a *Users) Register(ctx context.Context, username, password, avatar string) (models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return models.User{}, errors.New("username and password are required")
	}

	user := models.User{Username: username, Avatar: avatar, CreatedAt: time.Now().UTC()}
	if err := a.users.CreateUser(ctx, user, passwordDigest(password)); err != nil {
		return models.User{}, err
	}

	a.beginSession(ctx, user)
	a.audit.Emit(ctx, "user_registered", username, "", "")
	return user, nil
}

// Login verifies credentials and starts a session. Unknown users and wrong
// passwords are both reported as ErrInvalidCredentials.
func (a *Users) Login(ctx context.Context, username, password string) (models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return models.User{}, errors.New("username and password are required")
	}

	user, digest, err := a.users.Credentials(ctx, username)
	if errors.Is(err, repositories.ErrUserNotFound) {
		return models.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return models.User{}, fmt.Errorf("fetch credentials: %w", err)
	}
	if subtle.ConstantTimeCompare([]byte(digest), []byte(passwordDigest(password))) != 1 {
		return models.User{}, ErrInvalidCredentials
	}

	a.beginSession(ctx, user)
	a.audit.Emit(ctx, "user_logged_in", username, "", "")
	return user, nil
}

// Restore resumes a session saved by a previous process. The remote profile
// is re-fetched so a stale cached avatar does not stick.
func (a *Users) Restore(ctx context.Context, user models.User) error {
	profile, err := a.users.GetProfile(ctx, user.Username)
	if errors.Is(err, repositories.ErrUserNotFound) {
		if cerr := a.cache.ClearSession(); cerr != nil {
			log.Printf("clear stale session: %v", cerr)
		}
		return ErrInvalidCredentials
	}
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	user.Avatar = profile.Avatar
	user.Bio = profile.Bio

	a.beginSession(ctx, user)
	return nil
}

func (a *Users) beginSession(ctx context.Context, user models.User) {
	a.store.SetCurrentUser(user)
	a.store.LoadCachedProfiles()
	if err := a.cache.SaveSession(user); err != nil {
		log.Printf("save session: %v", err)
	}
	if err := a.users.UpsertStatus(ctx, user.Username, models.StatusOnline); err != nil {
		log.Printf("set online status: %v", err)
	}
}

// UpdateProfileField writes a single profile field remotely, patches the
// current user locally, and broadcasts the change to peers.
func (a *Users) UpdateProfileField(ctx context.Context, field, value string) error {
	user, ok := a.store.CurrentUser()
	if !ok {
		return ErrNotLoggedIn
	}
	if err := a.users.UpdateProfileField(ctx, user.Username, field, value); err != nil {
		return err
	}

	switch field {
	case models.ProfileFieldAvatar:
		user.Avatar = value
	case models.ProfileFieldBio:
		user.Bio = value
	}
	a.store.SetCurrentUser(user)
	a.store.PutProfile(models.Profile{Username: user.Username, Avatar: user.Avatar, Bio: user.Bio})

	if err := a.rt.Publish(ctx, realtime.ChannelProfiles, realtime.EventProfileUpdate,
		models.ProfileUpdateEvent{Username: user.Username, Field: field, Value: value}); err != nil {
		log.Printf("broadcast profile update: %v", err)
	}
	return nil
}

// GetProfile returns a user's profile, cache first.
func (a *Users) GetProfile(ctx context.Context, username string) (models.Profile, error) {
	if p, ok := a.store.Profile(username); ok {
		return p, nil
	}
	p, err := a.users.GetProfile(ctx, username)
	if err != nil {
		return models.Profile{}, err
	}
	a.store.PutProfile(p)
	return p, nil
}

// UpdateStatus records the current user's presence.
func (a *Users) UpdateStatus(ctx context.Context, status string) error {
	user, ok := a.store.CurrentUser()
	if !ok {
		return ErrNotLoggedIn
	}
	return a.users.UpsertStatus(ctx, user.Username, status)
}

// LoadStatuses refreshes the cached presence table.
func (a *Users) LoadStatuses(ctx context.Context) error {
	statuses, err := a.users.ListStatuses(ctx)
	if err != nil {
		return err
	}
	a.store.SetStatuses(statuses)
	return nil
}
