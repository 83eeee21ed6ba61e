package user

import (
	"context"
	"errors"
	"regexp"
	"sync"

	"github.com/feelmint/feelmint-go/feelmint/api"
)

// API is the identity slice of the backend.
type API interface {
	Profile(ctx context.Context) (*api.Profile, error)
	UpdateProfile(ctx context.Context, nickname string) (*api.Profile, error)
	NicknameAvailable(ctx context.Context, nickname string) (bool, error)
}

// ErrInvalidNickname is a local validation failure; the bind endpoint is
// never contacted for it.
var ErrInvalidNickname = errors.New("user: nickname must be 3-20 word characters")

var nicknameRe = regexp.MustCompile(`^\w{3,20}$`)

// State is the session-wide identity container. It caches the profile and is
// reset when the session credential expires.
type State struct {
	api API

	mu      sync.RWMutex
	profile *api.Profile
}

func NewState(apiClient API) *State {
	return &State{api: apiClient}
}

// Fetch loads the profile from the server and caches it.
func (s *State) Fetch(ctx context.Context) (*api.Profile, error) {
	profile, err := s.api.Profile(ctx)
	if err != nil {
		return nil, err
	}
	s.SetProfile(profile)
	return profile, nil
}

// Profile returns a copy of the cached profile, nil before the first fetch.
func (s *State) Profile() *api.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.profile == nil {
		return nil
	}
	snapshot := *s.profile
	return &snapshot
}

// SetProfile replaces the cached profile, e.g. after a bind returned a fresh one.
func (s *State) SetProfile(profile *api.Profile) {
	s.mu.Lock()
	s.profile = profile
	s.mu.Unlock()
}

// UpdateNickname validates locally, then persists the new nickname.
func (s *State) UpdateNickname(ctx context.Context, nickname string) error {
	if !nicknameRe.MatchString(nickname) {
		return ErrInvalidNickname
	}
	profile, err := s.api.UpdateProfile(ctx, nickname)
	if err != nil {
		return err
	}
	s.SetProfile(profile)
	return nil
}

// CheckNickname asks the server whether a nickname is free.
func (s *State) CheckNickname(ctx context.Context, nickname string) (bool, error) {
	if !nicknameRe.MatchString(nickname) {
		return false, ErrInvalidNickname
	}
	return s.api.NicknameAvailable(ctx, nickname)
}

// Reset drops the cached profile; used when the session expires.
func (s *State) Reset() {
	s.SetProfile(nil)
}
