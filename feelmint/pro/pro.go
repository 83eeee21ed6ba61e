package pro

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/feelmint/feelmint-go/feelmint/api"
	"github.com/feelmint/feelmint-go/feelmint/chain"
	"github.com/feelmint/feelmint-go/feelmint/rewards"
)

// Tier is one purchasable subscription level. Prices are stablecoin display
// amounts; the purchase flow scales them to base units.
type Tier struct {
	Index            uint8
	Name             string
	DailyFreeTasks   int
	RewardMultiplier float64
	Price            float64
	DurationDays     int
}

// Free-account defaults.
const (
	BaseDailyFreeTasks = 3
	BaseMultiplier     = 1.0
)

// Tiers is the purchasable catalog, ordered by index.
var Tiers = []Tier{
	{Index: 1, Name: "Plus", DailyFreeTasks: 5, RewardMultiplier: 1.2, Price: 9.9, DurationDays: 30},
	{Index: 2, Name: "Pro", DailyFreeTasks: 10, RewardMultiplier: 1.5, Price: 19.9, DurationDays: 30},
	{Index: 3, Name: "Max", DailyFreeTasks: 20, RewardMultiplier: 2.0, Price: 49.9, DurationDays: 30},
}

var ErrUnknownTier = errors.New("pro: unknown tier")

func TierByIndex(index uint8) (Tier, bool) {
	for _, t := range Tiers {
		if t.Index == index {
			return t, true
		}
	}
	return Tier{}, false
}

// State is the session-wide subscription container. The active subscription
// arrives with the profile; upgrades go through the purchase flow and replace
// it once the server confirms activation.
type State struct {
	ledger *rewards.Ledger
	chain  chain.Backend

	mu     sync.RWMutex
	active *api.Subscription
}

func NewState(ledger *rewards.Ledger, backend chain.Backend) *State {
	return &State{ledger: ledger, chain: backend}
}

// SetActive installs the subscription from a fetched profile.
func (s *State) SetActive(sub *api.Subscription) {
	s.mu.Lock()
	s.active = sub
	s.mu.Unlock()
}

// Active returns the current subscription if it has not expired.
func (s *State) Active() *api.Subscription {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.active == nil || time.Now().After(s.active.ExpiresAt) {
		return nil
	}
	snapshot := *s.active
	return &snapshot
}

// DailyFreeTasks is today's free task allowance, tier-boosted when active.
func (s *State) DailyFreeTasks() int {
	if sub := s.Active(); sub != nil {
		if tier, ok := TierByIndex(sub.Tier); ok {
			return tier.DailyFreeTasks
		}
	}
	return BaseDailyFreeTasks
}

// Multiplier is the reward-per-task multiplier, 1.0 without a tier.
func (s *State) Multiplier() float64 {
	if sub := s.Active(); sub != nil {
		if tier, ok := TierByIndex(sub.Tier); ok {
			return tier.RewardMultiplier
		}
	}
	return BaseMultiplier
}

// NewUpgradeFlow opens the purchase flow for a tier. spender is the
// subscription contract granted the stablecoin allowance.
func (s *State) NewUpgradeFlow(tier uint8, spender string, stableDecimals int) (*rewards.PurchaseFlow, error) {
	t, ok := TierByIndex(tier)
	if !ok {
		return nil, ErrUnknownTier
	}
	return s.ledger.NewPurchaseFlow(s.chain, t.Index, t.Price, stableDecimals, spender), nil
}

// Upgrade runs the full purchase flow and installs the activated subscription.
func (s *State) Upgrade(ctx context.Context, tier uint8, spender string, stableDecimals int) (*api.Subscription, error) {
	flow, err := s.NewUpgradeFlow(tier, spender, stableDecimals)
	if err != nil {
		return nil, err
	}
	sub, err := flow.Confirm(ctx, nil)
	if err != nil {
		return nil, err
	}
	s.SetActive(sub)
	return sub, nil
}
