package feelmint

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/uptrace/bun"

	"github.com/feelmint/feelmint-go/feelmint/api"
	"github.com/feelmint/feelmint-go/feelmint/chain"
	"github.com/feelmint/feelmint-go/feelmint/drafts"
	"github.com/feelmint/feelmint-go/feelmint/media"
	"github.com/feelmint/feelmint-go/feelmint/pro"
	"github.com/feelmint/feelmint-go/feelmint/referral"
	"github.com/feelmint/feelmint-go/feelmint/rewards"
	"github.com/feelmint/feelmint-go/feelmint/tasks"
	"github.com/feelmint/feelmint-go/feelmint/user"
)

// App wires the state containers, the backend client and the chain layer into
// one engine. Each container owns exactly one concern and is handed in by
// reference; nothing here is an ambient singleton.
type App struct {
	Cfg     Config
	Version string
	Commit  string

	API         *api.Client
	ChainConfig *api.ChainConfigCache
	Chain       chain.Backend

	Registry *tasks.Registry
	Flow     *tasks.Manager
	Drafts   drafts.Repository
	Ledger   *rewards.Ledger
	User     *user.State
	Referral *referral.State
	Pro      *pro.State

	db *bun.DB
}

func New(ctx context.Context, cfg Config, version, commit string) (*App, error) {
	apiClient := api.NewClient(cfg.API.BaseURL, cfg.API.Token,
		time.Duration(cfg.API.TimeoutSeconds)*time.Second)

	draftPath := cfg.Drafts.Path
	if draftPath == "" {
		draftPath = "feelmint-drafts.db"
	}
	db, err := drafts.Open(ctx, draftPath)
	if err != nil {
		return nil, err
	}
	draftRepo := drafts.NewRepository(db)

	var backend chain.Backend
	if cfg.Chain.RPCURL != "" {
		evm, err := chain.NewEVM(ctx, chain.EVMConfig{
			RPCURL:               cfg.Chain.RPCURL,
			ChainID:              cfg.Chain.ChainID,
			PrivateKeyHex:        cfg.Chain.PrivateKey,
			RewardContract:       cfg.Chain.RewardContract,
			SubscriptionContract: cfg.Chain.SubscriptionContract,
			Stablecoin:           cfg.Chain.Stablecoin,
		})
		if err != nil {
			db.Close()
			return nil, err
		}
		backend = evm
	}

	var uploader media.Uploader
	switch cfg.Upload.Backend {
	case "", "presigned":
		uploader = media.NewHTTPUploader(0)
	case "spaces":
		uploader, err = media.NewSpacesUploader(
			cfg.Spaces.Key, cfg.Spaces.Secret, cfg.Spaces.Region,
			cfg.Spaces.Bucket, cfg.Spaces.Root)
		if err != nil {
			db.Close()
			return nil, err
		}
	default:
		db.Close()
		return nil, fmt.Errorf("unknown upload backend %q", cfg.Upload.Backend)
	}

	chainConfig := api.NewChainConfigCache(apiClient, 5*time.Minute)
	if cfg.Chain.ChainID != 0 {
		chainConfig.Seed(api.ChainParams{
			ChainID:              cfg.Chain.ChainID,
			RewardContract:       cfg.Chain.RewardContract,
			SubscriptionContract: cfg.Chain.SubscriptionContract,
			Stablecoin:           cfg.Chain.Stablecoin,
			StablecoinDecimals:   cfg.Chain.StablecoinDecimals,
		})
	}

	registry := tasks.NewRegistry(apiClient)
	flow := tasks.NewManager(apiClient, registry, draftRepo, uploader)
	ledger := rewards.NewLedger(apiClient)
	userState := user.NewState(apiClient)
	referralState := referral.NewState(apiClient, userState)
	proState := pro.NewState(ledger, backend)

	apiClient.OnAuthExpired(func() {
		slog.Warn("Session expired, credential cleared", slog.String("type", "api"))
		userState.Reset()
	})

	return &App{
		Cfg:         cfg,
		Version:     version,
		Commit:      commit,
		API:         apiClient,
		ChainConfig: chainConfig,
		Chain:       backend,
		Registry:    registry,
		Flow:        flow,
		Drafts:      draftRepo,
		Ledger:      ledger,
		User:        userState,
		Referral:    referralState,
		Pro:         proState,
		db:          db,
	}, nil
}

// Start launches the background refreshers. Stops when ctx is cancelled.
func (a *App) Start(ctx context.Context) {
	a.ChainConfig.Start(ctx)
}

// ChainParams resolves the contract addresses for the configured chain.
func (a *App) ChainParams(ctx context.Context) (*api.ChainParams, error) {
	return a.ChainConfig.Get(ctx, a.Cfg.Chain.ChainID)
}

// Bootstrap loads the session state: profile, daily tasks, reward balances.
func (a *App) Bootstrap(ctx context.Context) error {
	profile, err := a.User.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("fetch profile: %w", err)
	}
	a.Pro.SetActive(profile.Pro)

	if err := a.Registry.FetchDailyTasks(ctx); err != nil {
		return fmt.Errorf("fetch daily tasks: %w", err)
	}
	if err := a.Ledger.RefreshAll(ctx); err != nil {
		return fmt.Errorf("refresh rewards: %w", err)
	}
	return nil
}

func (a *App) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}
