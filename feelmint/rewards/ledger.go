package rewards

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/feelmint/feelmint-go/feelmint/api"
)

// API is the slice of the backend the reward ledger and claim flow consume.
type API interface {
	ClaimableAmount(ctx context.Context, category api.RewardCategory) (float64, error)
	RewardRecords(ctx context.Context, category api.RewardCategory) ([]api.RewardRecord, error)
	MintVoucher(ctx context.Context, category api.RewardCategory) (*api.Voucher, error)
	ReportMintTx(ctx context.Context, nonce uint64, txHash string, chainID uint64) error
	ActivateTier(ctx context.Context, tier uint8, txHash string, chainID uint64) (*api.Subscription, error)
}

var categories = []api.RewardCategory{api.RewardDaily, api.RewardInvite, api.RewardPro}

// Ledger is the client's read view of issued vs claimed rewards: a claimable
// aggregate per category plus the record lists behind them. The server owns
// the numbers; the ledger only polls and caches.
type Ledger struct {
	api   API
	guard *sessionGuard

	mu        sync.RWMutex
	claimable map[api.RewardCategory]float64
	records   map[api.RewardCategory][]api.RewardRecord
}

func NewLedger(apiClient API) *Ledger {
	return &Ledger{
		api:       apiClient,
		guard:     newSessionGuard(),
		claimable: make(map[api.RewardCategory]float64),
		records:   make(map[api.RewardCategory][]api.RewardRecord),
	}
}

// RefreshAll revalidates the claimable aggregate of every category in
// parallel. Each category fails independently; the first error is returned
// but the other categories' results still land.
func (l *Ledger) RefreshAll(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, category := range categories {
		g.Go(func() error {
			return l.refreshClaimable(gctx, category)
		})
	}
	return g.Wait()
}

// Refresh revalidates one category's claimable amount and record list.
func (l *Ledger) Refresh(ctx context.Context, category api.RewardCategory) error {
	if err := l.refreshClaimable(ctx, category); err != nil {
		return err
	}
	records, err := l.api.RewardRecords(ctx, category)
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.records[category] = records
	l.mu.Unlock()
	return nil
}

func (l *Ledger) refreshClaimable(ctx context.Context, category api.RewardCategory) error {
	amount, err := l.api.ClaimableAmount(ctx, category)
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.claimable[category] = amount
	l.mu.Unlock()
	return nil
}

// Claimable returns the cached claimable amount for a category.
func (l *Ledger) Claimable(category api.RewardCategory) float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.claimable[category]
}

// Records returns the cached record list for a category.
func (l *Ledger) Records(category api.RewardCategory) []api.RewardRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]api.RewardRecord, len(l.records[category]))
	copy(out, l.records[category])
	return out
}
