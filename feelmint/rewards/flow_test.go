package rewards

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/feelmint/feelmint-go/feelmint/api"
	"github.com/feelmint/feelmint-go/feelmint/chain"
)

type fakeRewardsAPI struct {
	mu            sync.Mutex
	claimable     map[api.RewardCategory]float64
	voucherCalls  int
	voucherErr    error
	mintExpireAt  int64
	reportedNonce uint64
	reportedTx    string
	activated     *api.Subscription
}

func (f *fakeRewardsAPI) ClaimableAmount(_ context.Context, category api.RewardCategory) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.claimable[category], nil
}

func (f *fakeRewardsAPI) RewardRecords(_ context.Context, _ api.RewardCategory) ([]api.RewardRecord, error) {
	return nil, nil
}

func (f *fakeRewardsAPI) MintVoucher(_ context.Context, _ api.RewardCategory) (*api.Voucher, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.voucherCalls++
	if f.voucherErr != nil {
		return nil, f.voucherErr
	}
	return &api.Voucher{
		Recipient:    "0x00000000000000000000000000000000000000aa",
		UUID:         "2f1e4c1a-9b3d-4f5e-8a70-1c2d3e4f5a6b",
		Nonce:        uint64(f.voucherCalls),
		Timestamp:    time.Now().Unix(),
		Amount:       1.5,
		Tasks:        "0xdeadbeef",
		Signature:    "0x1f2e3d4c",
		MintExpireAt: f.mintExpireAt,
	}, nil
}

func (f *fakeRewardsAPI) ReportMintTx(_ context.Context, nonce uint64, txHash string, _ uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reportedNonce = nonce
	f.reportedTx = txHash
	return nil
}

func (f *fakeRewardsAPI) ActivateTier(_ context.Context, tier uint8, _ string, _ uint64) (*api.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activated = &api.Subscription{Tier: tier, ExpiresAt: time.Now().Add(30 * 24 * time.Hour)}
	return f.activated, nil
}

type fakeBackend struct {
	mu             sync.Mutex
	mintErr        error
	mintCalls      int
	allowance      *big.Int
	approveCalls   int
	purchaseCalls  int
	lastApproved   *big.Int
	lastMintAmount *big.Int
}

func (f *fakeBackend) ChainID() uint64 { return 31337 }
func (f *fakeBackend) Address() string { return "0x00000000000000000000000000000000000000aa" }

func (f *fakeBackend) MintWithVoucher(_ context.Context, v chain.MintVoucher) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mintCalls++
	f.lastMintAmount = v.Amount
	if f.mintErr != nil {
		return "", f.mintErr
	}
	return "0xmined", nil
}

func (f *fakeBackend) StableAllowance(_ context.Context, _ string) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return new(big.Int).Set(f.allowance), nil
}

func (f *fakeBackend) ApproveStable(_ context.Context, _ string, amount *big.Int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.approveCalls++
	f.lastApproved = new(big.Int).Set(amount)
	f.allowance = new(big.Int).Set(amount)
	return "0xapproved", nil
}

func (f *fakeBackend) PurchaseTier(_ context.Context, _ uint8) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.purchaseCalls++
	return "0xpurchased", nil
}

func (f *fakeBackend) StableBalance(_ context.Context) (*big.Int, error) {
	return big.NewInt(0), nil
}

func Test_ClaimFlow_Confirm(t *testing.T) {
	f := &fakeRewardsAPI{claimable: map[api.RewardCategory]float64{api.RewardDaily: 1.5}}
	backend := &fakeBackend{}
	ledger := NewLedger(f)
	if err := ledger.Refresh(context.Background(), api.RewardDaily); err != nil {
		t.Fatalf("Ledger.Refresh() error = %v", err)
	}

	flow := ledger.NewClaimFlow(backend, api.RewardDaily)
	flow.SetCloseDelay(10 * time.Millisecond)

	var states []FlowState
	var mu sync.Mutex
	flow.OnState(func(s FlowState) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
	})

	closed := make(chan string, 1)
	txHash, err := flow.Confirm(context.Background(), func(tx string) { closed <- tx })
	if err != nil {
		t.Fatalf("ClaimFlow.Confirm() error = %v", err)
	}
	if txHash != "0xmined" {
		t.Errorf("ClaimFlow.Confirm() = %q, want %q", txHash, "0xmined")
	}

	select {
	case tx := <-closed:
		if tx != "0xmined" {
			t.Errorf("onClosed tx = %q, want %q", tx, "0xmined")
		}
	case <-time.After(time.Second):
		t.Fatal("flow did not auto-close")
	}

	mu.Lock()
	want := []FlowState{StateSign, StateBroadcast, StateSuccess, StateReview}
	if len(states) != len(want) {
		t.Fatalf("observed states = %v, want %v", states, want)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Fatalf("observed states = %v, want %v", states, want)
		}
	}
	mu.Unlock()

	if f.reportedTx != "0xmined" || f.reportedNonce != 1 {
		t.Errorf("reported tx/nonce = %q/%d, want 0xmined/1", f.reportedTx, f.reportedNonce)
	}
	if wantAmount := chain.TokenUnits(1.5, RewardTokenDecimals); backend.lastMintAmount.Cmp(wantAmount) != 0 {
		t.Errorf("mint amount = %v, want %v", backend.lastMintAmount, wantAmount)
	}
}

func Test_ClaimFlow_FailureRevertsAndRefetchesVoucher(t *testing.T) {
	f := &fakeRewardsAPI{claimable: map[api.RewardCategory]float64{api.RewardDaily: 1.5}}
	mintErr := errors.New("gas estimation failed")
	backend := &fakeBackend{mintErr: mintErr}
	ledger := NewLedger(f)

	flow := ledger.NewClaimFlow(backend, api.RewardDaily)
	flow.SetCloseDelay(10 * time.Millisecond)

	if _, err := flow.Confirm(context.Background(), nil); !errors.Is(err, mintErr) {
		t.Fatalf("ClaimFlow.Confirm() error = %v, want %v", err, mintErr)
	}
	if got := flow.State(); got != StateReview {
		t.Errorf("ClaimFlow.State() after failure = %v, want %v", got, StateReview)
	}
	if !errors.Is(flow.LastErr(), mintErr) {
		t.Errorf("ClaimFlow.LastErr() = %v, want %v", flow.LastErr(), mintErr)
	}

	// The retry must fetch a fresh voucher rather than replay the stale one.
	backend.mintErr = nil
	if _, err := flow.Confirm(context.Background(), nil); err != nil {
		t.Fatalf("ClaimFlow.Confirm() retry error = %v", err)
	}
	if f.voucherCalls != 2 {
		t.Errorf("voucher fetches = %d, want 2", f.voucherCalls)
	}
	if f.reportedNonce != 2 {
		t.Errorf("reported nonce = %d, want the fresh voucher's 2", f.reportedNonce)
	}
}

func Test_ClaimFlow_ExpiredVoucher(t *testing.T) {
	f := &fakeRewardsAPI{
		claimable:    map[api.RewardCategory]float64{api.RewardDaily: 1.5},
		mintExpireAt: time.Now().Add(-time.Minute).Unix(),
	}
	backend := &fakeBackend{}
	ledger := NewLedger(f)

	flow := ledger.NewClaimFlow(backend, api.RewardDaily)
	if _, err := flow.Confirm(context.Background(), nil); !errors.Is(err, ErrVoucherExpired) {
		t.Fatalf("ClaimFlow.Confirm() error = %v, want %v", err, ErrVoucherExpired)
	}
	if backend.mintCalls != 0 {
		t.Errorf("mint calls = %d, want 0 for an expired voucher", backend.mintCalls)
	}
}

func Test_ClaimFlow_GuardBlocksParallelClaim(t *testing.T) {
	f := &fakeRewardsAPI{claimable: map[api.RewardCategory]float64{api.RewardDaily: 1.5}}
	backend := &fakeBackend{}
	ledger := NewLedger(f)

	first := ledger.NewClaimFlow(backend, api.RewardDaily)
	first.SetCloseDelay(100 * time.Millisecond)
	if _, err := first.Confirm(context.Background(), nil); err != nil {
		t.Fatalf("ClaimFlow.Confirm() error = %v", err)
	}

	// The guard stays held until the success screen auto-closes.
	if !ledger.guard.held("claim:daily") {
		t.Fatal("guard not held while the success screen is up")
	}
	second := ledger.NewClaimFlow(backend, api.RewardDaily)
	if _, err := second.Confirm(context.Background(), nil); !errors.Is(err, ErrFlowBusy) {
		t.Fatalf("parallel ClaimFlow.Confirm() error = %v, want %v", err, ErrFlowBusy)
	}
}

func Test_PurchaseFlow_Confirm(t *testing.T) {
	cost := chain.TokenUnits(19.9, 6)

	tests := []struct {
		name        string
		allowance   *big.Int
		wantApprove bool
	}{
		{name: "zero allowance", allowance: big.NewInt(0), wantApprove: true},
		{name: "allowance at the margin", allowance: new(big.Int).Mul(cost, big.NewInt(2)), wantApprove: true},
		{name: "allowance above the margin", allowance: new(big.Int).Add(new(big.Int).Mul(cost, big.NewInt(2)), big.NewInt(1)), wantApprove: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeRewardsAPI{claimable: map[api.RewardCategory]float64{}}
			backend := &fakeBackend{allowance: tt.allowance}
			ledger := NewLedger(f)

			flow := ledger.NewPurchaseFlow(backend, 2, 19.9, 6, "0xspender")
			flow.SetCloseDelay(10 * time.Millisecond)

			closed := make(chan *api.Subscription, 1)
			sub, err := flow.Confirm(context.Background(), func(s *api.Subscription) { closed <- s })
			if err != nil {
				t.Fatalf("PurchaseFlow.Confirm() error = %v", err)
			}
			if sub.Tier != 2 {
				t.Errorf("subscription tier = %d, want 2", sub.Tier)
			}

			gotApprove := backend.approveCalls > 0
			if gotApprove != tt.wantApprove {
				t.Errorf("approve issued = %v, want %v", gotApprove, tt.wantApprove)
			}
			if tt.wantApprove {
				wantMargin := new(big.Int).Mul(cost, big.NewInt(2))
				if backend.lastApproved.Cmp(wantMargin) != 0 {
					t.Errorf("approved amount = %v, want %v", backend.lastApproved, wantMargin)
				}
			}
			if backend.purchaseCalls != 1 {
				t.Errorf("purchase calls = %d, want 1", backend.purchaseCalls)
			}

			select {
			case <-closed:
			case <-time.After(time.Second):
				t.Fatal("purchase flow did not auto-close")
			}
		})
	}
}
