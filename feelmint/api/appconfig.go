package api

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

// ChainParamsList fetches contract addresses and metadata for every supported
// chain.
func (c *Client) ChainParamsList(ctx context.Context) ([]ChainParams, error) {
	var out struct {
		Chains []ChainParams `json:"chains"`
	}
	if err := c.get(ctx, "/api/v1/config/chains", &out); err != nil {
		return nil, err
	}
	return out.Chains, nil
}

// ChainConfigCache keeps per-chain contract parameters fresh. Reads serve the
// cached value immediately; a background refresher revalidates on an interval
// and on explicit triggers, and a failed refresh keeps the stale entry.
type ChainConfigCache struct {
	client   *Client
	cache    *lru.Cache
	interval time.Duration

	mu      sync.Mutex
	trigger chan struct{}
	started bool
}

const chainCacheSize = 16

func NewChainConfigCache(client *Client, interval time.Duration) *ChainConfigCache {
	cache, _ := lru.New(chainCacheSize)
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &ChainConfigCache{
		client:   client,
		cache:    cache,
		interval: interval,
		trigger:  make(chan struct{}, 1),
	}
}

// Get returns the cached params for a chain, fetching on a cold cache.
func (cc *ChainConfigCache) Get(ctx context.Context, chainID uint64) (*ChainParams, error) {
	if v, ok := cc.cache.Get(chainID); ok {
		params := v.(ChainParams)
		return &params, nil
	}
	if err := cc.refresh(ctx); err != nil {
		return nil, err
	}
	if v, ok := cc.cache.Get(chainID); ok {
		params := v.(ChainParams)
		return &params, nil
	}
	return nil, fmt.Errorf("api: no config for chain %d", chainID)
}

// Seed installs fallback params, typically from the local config file, so the
// chain layer can operate before the config API has answered.
func (cc *ChainConfigCache) Seed(params ChainParams) {
	cc.cache.Add(params.ChainID, params)
}

// Revalidate asks the background refresher for an immediate refresh. Non-blocking.
func (cc *ChainConfigCache) Revalidate() {
	select {
	case cc.trigger <- struct{}{}:
	default:
	}
}

// Start launches the periodic refresher. Stops when ctx is cancelled.
func (cc *ChainConfigCache) Start(ctx context.Context) {
	cc.mu.Lock()
	if cc.started {
		cc.mu.Unlock()
		return
	}
	cc.started = true
	cc.mu.Unlock()

	go func() {
		ticker := time.NewTicker(cc.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			case <-cc.trigger:
			}
			if err := cc.refresh(ctx); err != nil {
				// Stale entries stay usable until the next successful refresh.
				slog.Warn("Chain config refresh failed",
					slog.String("type", "api"),
					slog.Any("error", err))
			}
		}
	}()
}

func (cc *ChainConfigCache) refresh(ctx context.Context) error {
	chains, err := cc.client.ChainParamsList(ctx)
	if err != nil {
		return err
	}
	for _, params := range chains {
		cc.cache.Add(params.ChainID, params)
	}
	return nil
}
