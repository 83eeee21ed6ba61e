package rewards

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/feelmint/feelmint-go/feelmint/api"
	"github.com/feelmint/feelmint-go/feelmint/chain"
)

// FlowState is the position of a money-moving flow. Every flow starts in
// review and either reaches success or falls back to review with an error;
// nothing commits until a transaction hash has been reported to the server.
type FlowState string

const (
	StateReview    FlowState = "review"
	StateApprove   FlowState = "approve"
	StateSign      FlowState = "sign"
	StateBroadcast FlowState = "broadcast"
	StateSuccess   FlowState = "success"
)

var (
	ErrFlowBusy       = errors.New("rewards: another flow is active for this target")
	ErrNotInReview    = errors.New("rewards: flow is not awaiting review")
	ErrVoucherExpired = errors.New("rewards: voucher expired before broadcast")
)

// RewardTokenDecimals is the mint token's base-unit scale.
const RewardTokenDecimals = 18

const defaultCloseDelay = 2 * time.Second

type fsm struct {
	mu      sync.Mutex
	state   FlowState
	lastErr error
	onState func(FlowState)
}

// State returns the current flow state.
func (f *fsm) State() FlowState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// LastErr is the error that last reverted the flow to review, nil otherwise.
func (f *fsm) LastErr() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastErr
}

// OnState registers an observer invoked on every transition.
func (f *fsm) OnState(fn func(FlowState)) {
	f.mu.Lock()
	f.onState = fn
	f.mu.Unlock()
}

func (f *fsm) setState(s FlowState) {
	f.mu.Lock()
	f.state = s
	fn := f.onState
	f.mu.Unlock()
	if fn != nil {
		fn(s)
	}
}

func (f *fsm) fail(err error) error {
	f.mu.Lock()
	f.lastErr = err
	f.mu.Unlock()
	f.setState(StateReview)
	return err
}

func (f *fsm) clearErr() {
	f.mu.Lock()
	f.lastErr = nil
	f.mu.Unlock()
}

// ClaimFlow mints one category's accrued rewards on-chain. Each attempt
// requests a fresh voucher; a stale voucher from a previous failure is never
// replayed.
type ClaimFlow struct {
	fsm
	ledger     *Ledger
	chain      chain.Backend
	category   api.RewardCategory
	closeDelay time.Duration
}

// NewClaimFlow opens a claim flow in the review state.
func (l *Ledger) NewClaimFlow(backend chain.Backend, category api.RewardCategory) *ClaimFlow {
	return &ClaimFlow{
		fsm:        fsm{state: StateReview},
		ledger:     l,
		chain:      backend,
		category:   category,
		closeDelay: defaultCloseDelay,
	}
}

// SetCloseDelay overrides how long success is shown before the flow
// auto-closes.
func (f *ClaimFlow) SetCloseDelay(d time.Duration) {
	f.closeDelay = d
}

// Amount is what the user would receive, per the ledger's cached view.
func (f *ClaimFlow) Amount() float64 {
	return f.ledger.Claimable(f.category)
}

// Confirm runs the flow from review: fetch a fresh voucher, relay it to the
// reward contract, report the transaction hash back. Any failure reverts to
// review with the flow's LastErr set. On success the flow auto-closes after
// the close delay and then invokes onClosed.
func (f *ClaimFlow) Confirm(ctx context.Context, onClosed func(txHash string)) (string, error) {
	if f.State() != StateReview {
		return "", ErrNotInReview
	}
	key := "claim:" + string(f.category)
	if !f.ledger.guard.acquire(key) {
		return "", ErrFlowBusy
	}
	f.clearErr()

	txHash, err := f.claim(ctx)
	if err != nil {
		f.ledger.guard.release(key)
		return "", f.fail(err)
	}

	f.setState(StateSuccess)
	time.AfterFunc(f.closeDelay, func() {
		f.ledger.guard.release(key)
		f.setState(StateReview)
		if onClosed != nil {
			onClosed(txHash)
		}
	})
	return txHash, nil
}

func (f *ClaimFlow) claim(ctx context.Context) (string, error) {
	f.setState(StateSign)

	voucher, err := f.ledger.api.MintVoucher(ctx, f.category)
	if err != nil {
		return "", fmt.Errorf("fetch voucher: %w", err)
	}
	if voucher.MintExpireAt > 0 && time.Now().Unix() >= voucher.MintExpireAt {
		return "", ErrVoucherExpired
	}
	signature, err := chain.DecodeSignature(voucher.Signature)
	if err != nil {
		return "", err
	}

	f.setState(StateBroadcast)
	txHash, err := f.chain.MintWithVoucher(ctx, chain.MintVoucher{
		Recipient: voucher.Recipient,
		UUID:      voucher.UUID,
		Nonce:     voucher.Nonce,
		Timestamp: voucher.Timestamp,
		Amount:    chain.TokenUnits(voucher.Amount, RewardTokenDecimals),
		Tasks:     opaqueBytes(voucher.Tasks),
		Signature: signature,
	})
	if err != nil {
		return "", fmt.Errorf("mint: %w", err)
	}

	if err := f.ledger.api.ReportMintTx(ctx, voucher.Nonce, txHash, f.chain.ChainID()); err != nil {
		// The reward records stay unclaimed server-side; a retry fetches a
		// fresh voucher rather than replaying this one.
		return "", fmt.Errorf("report mint tx: %w", err)
	}

	if err := f.ledger.refreshClaimable(ctx, f.category); err != nil {
		slog.Warn("Claimable refresh after claim failed",
			slog.String("type", "flow"),
			slog.String("category", string(f.category)),
			slog.Any("error", err))
	}
	return txHash, nil
}

// PurchaseFlow pays a subscription tier in the stablecoin. When the current
// allowance is not comfortably above the cost, an approval transaction runs
// first and must be mined before the purchase is sent.
type PurchaseFlow struct {
	fsm
	ledger         *Ledger
	chain          chain.Backend
	tier           uint8
	price          float64
	stableDecimals int
	spender        string
	closeDelay     time.Duration
}

func (l *Ledger) NewPurchaseFlow(backend chain.Backend, tier uint8, price float64, stableDecimals int, spender string) *PurchaseFlow {
	return &PurchaseFlow{
		fsm:            fsm{state: StateReview},
		ledger:         l,
		chain:          backend,
		tier:           tier,
		price:          price,
		stableDecimals: stableDecimals,
		spender:        spender,
		closeDelay:     defaultCloseDelay,
	}
}

func (f *PurchaseFlow) SetCloseDelay(d time.Duration) {
	f.closeDelay = d
}

// Cost is the stablecoin price in base units.
func (f *PurchaseFlow) Cost() *big.Int {
	return chain.TokenUnits(f.price, f.stableDecimals)
}

func (f *PurchaseFlow) Confirm(ctx context.Context, onClosed func(sub *api.Subscription)) (*api.Subscription, error) {
	if f.State() != StateReview {
		return nil, ErrNotInReview
	}
	const key = "purchase:pro"
	if !f.ledger.guard.acquire(key) {
		return nil, ErrFlowBusy
	}
	f.clearErr()

	sub, err := f.purchase(ctx)
	if err != nil {
		f.ledger.guard.release(key)
		return nil, f.fail(err)
	}

	f.setState(StateSuccess)
	time.AfterFunc(f.closeDelay, func() {
		f.ledger.guard.release(key)
		f.setState(StateReview)
		if onClosed != nil {
			onClosed(sub)
		}
	})
	return sub, nil
}

func (f *PurchaseFlow) purchase(ctx context.Context) (*api.Subscription, error) {
	cost := f.Cost()

	allowance, err := f.chain.StableAllowance(ctx, f.spender)
	if err != nil {
		return nil, fmt.Errorf("read allowance: %w", err)
	}

	// Safety margin: anything at or below twice the cost triggers a fresh
	// approval before the dependent purchase call.
	margin := new(big.Int).Mul(cost, big.NewInt(2))
	if allowance.Cmp(margin) <= 0 {
		f.setState(StateApprove)
		if _, err := f.chain.ApproveStable(ctx, f.spender, margin); err != nil {
			return nil, fmt.Errorf("approve: %w", err)
		}
	}

	f.setState(StateSign)
	f.setState(StateBroadcast)
	txHash, err := f.chain.PurchaseTier(ctx, f.tier)
	if err != nil {
		return nil, fmt.Errorf("purchase: %w", err)
	}

	sub, err := f.ledger.api.ActivateTier(ctx, f.tier, txHash, f.chain.ChainID())
	if err != nil {
		return nil, fmt.Errorf("activate tier: %w", err)
	}
	return sub, nil
}

// opaqueBytes decodes the voucher's encoded task list. The server emits hex;
// anything else is passed through untouched.
func opaqueBytes(s string) []byte {
	if strings.HasPrefix(s, "0x") {
		if raw, err := hex.DecodeString(s[2:]); err == nil {
			return raw
		}
	}
	return []byte(s)
}
