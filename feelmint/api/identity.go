package api

import (
	"context"
	"net/url"
)

// Referral API error codes the client branches on.
const (
	ErrCodeReferralLimit = "REFERRAL_LIMIT_REACHED"
	ErrCodeReferralBound = "REFERRAL_ALREADY_BOUND"
	ErrCodeUnknownCode   = "REFERRAL_CODE_UNKNOWN"
)

// Profile fetches the caller's identity record.
func (c *Client) Profile(ctx context.Context) (*Profile, error) {
	var out Profile
	if err := c.get(ctx, "/api/v1/profile", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProfile patches mutable profile fields (currently the nickname).
func (c *Client) UpdateProfile(ctx context.Context, nickname string) (*Profile, error) {
	var out Profile
	req := struct {
		Nickname string `json:"nickname"`
	}{Nickname: nickname}
	if err := c.patch(ctx, "/api/v1/profile", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// NicknameAvailable reports whether a nickname is free to take.
func (c *Client) NicknameAvailable(ctx context.Context, nickname string) (bool, error) {
	var out struct {
		Available bool `json:"available"`
	}
	path := "/api/v1/profile/nickname-available?nickname=" + url.QueryEscape(nickname)
	if err := c.get(ctx, path, &out); err != nil {
		return false, err
	}
	return out.Available, nil
}

// VerifyReferralCode asks whether a code is currently usable without binding it.
func (c *Client) VerifyReferralCode(ctx context.Context, code string) (bool, error) {
	var out struct {
		Valid bool `json:"valid"`
	}
	req := struct {
		Code string `json:"code"`
	}{Code: code}
	if err := c.post(ctx, "/api/v1/referral/verify", req, &out); err != nil {
		return false, err
	}
	return out.Valid, nil
}

// BindReferral persists the nickname and referral code together. The backend
// rejects a second binding and codes past their usage ceiling.
func (c *Client) BindReferral(ctx context.Context, nickname, code string) (*Profile, error) {
	var out Profile
	req := struct {
		Nickname string `json:"nickname"`
		Code     string `json:"code"`
	}{Nickname: nickname, Code: code}
	if err := c.post(ctx, "/api/v1/referral/bind", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Invitees lists referred accounts with pending and claimed commission.
func (c *Client) Invitees(ctx context.Context) ([]Invitee, error) {
	var out struct {
		Invitees []Invitee `json:"invitees"`
	}
	if err := c.get(ctx, "/api/v1/referral/invitees", &out); err != nil {
		return nil, err
	}
	return out.Invitees, nil
}
