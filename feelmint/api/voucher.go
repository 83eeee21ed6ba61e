package api

import (
	"context"
)

// MintVoucher requests a fresh signed voucher for one reward category. Each
// claim attempt must go through here; vouchers are single-attempt and carry
// their own nonce, timestamp and expiry.
func (c *Client) MintVoucher(ctx context.Context, category RewardCategory) (*Voucher, error) {
	var out Voucher
	req := struct {
		Category RewardCategory `json:"category"`
	}{Category: category}
	if err := c.post(ctx, "/api/v1/rewards/voucher", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ReportMintTx tells the backend a voucher was minted on-chain so it can mark
// the underlying reward records claimed. Scoped by the voucher nonce.
func (c *Client) ReportMintTx(ctx context.Context, nonce uint64, txHash string, chainID uint64) error {
	req := struct {
		Nonce   uint64 `json:"nonce"`
		TxHash  string `json:"tx_hash"`
		ChainID uint64 `json:"chain_id"`
	}{Nonce: nonce, TxHash: txHash, ChainID: chainID}
	return c.post(ctx, "/api/v1/rewards/claimed", req, nil)
}

// ActivateTier reports a confirmed subscription purchase transaction.
func (c *Client) ActivateTier(ctx context.Context, tier uint8, txHash string, chainID uint64) (*Subscription, error) {
	var out Subscription
	req := struct {
		Tier    uint8  `json:"tier"`
		TxHash  string `json:"tx_hash"`
		ChainID uint64 `json:"chain_id"`
	}{Tier: tier, TxHash: txHash, ChainID: chainID}
	if err := c.post(ctx, "/api/v1/pro/activate", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
