package pro

import (
	"errors"
	"testing"
	"time"

	"github.com/feelmint/feelmint-go/feelmint/api"
)

func Test_State_ActiveExpiry(t *testing.T) {
	s := NewState(nil, nil)

	if s.Active() != nil {
		t.Error("State.Active() != nil with no subscription")
	}
	if got := s.DailyFreeTasks(); got != BaseDailyFreeTasks {
		t.Errorf("State.DailyFreeTasks() = %d, want %d", got, BaseDailyFreeTasks)
	}
	if got := s.Multiplier(); got != BaseMultiplier {
		t.Errorf("State.Multiplier() = %v, want %v", got, BaseMultiplier)
	}

	s.SetActive(&api.Subscription{Tier: 2, ExpiresAt: time.Now().Add(time.Hour)})
	if sub := s.Active(); sub == nil || sub.Tier != 2 {
		t.Fatalf("State.Active() = %+v, want tier 2", sub)
	}
	if got := s.DailyFreeTasks(); got != 10 {
		t.Errorf("State.DailyFreeTasks() = %d, want 10 on Pro", got)
	}
	if got := s.Multiplier(); got != 1.5 {
		t.Errorf("State.Multiplier() = %v, want 1.5 on Pro", got)
	}

	// An expired subscription falls back to the free plan.
	s.SetActive(&api.Subscription{Tier: 2, ExpiresAt: time.Now().Add(-time.Hour)})
	if s.Active() != nil {
		t.Error("State.Active() != nil with an expired subscription")
	}
	if got := s.DailyFreeTasks(); got != BaseDailyFreeTasks {
		t.Errorf("State.DailyFreeTasks() = %d, want %d after expiry", got, BaseDailyFreeTasks)
	}
}

func Test_State_NewUpgradeFlow_UnknownTier(t *testing.T) {
	s := NewState(nil, nil)
	if _, err := s.NewUpgradeFlow(9, "0xspender", 6); !errors.Is(err, ErrUnknownTier) {
		t.Errorf("State.NewUpgradeFlow() error = %v, want %v", err, ErrUnknownTier)
	}
}
