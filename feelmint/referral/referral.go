package referral

import (
	"context"
	"errors"
	"regexp"
	"strings"

	lru "github.com/hashicorp/golang-lru"

	"github.com/feelmint/feelmint-go/feelmint/api"
	"github.com/feelmint/feelmint-go/feelmint/user"
)

// API is the referral slice of the backend.
type API interface {
	VerifyReferralCode(ctx context.Context, code string) (bool, error)
	BindReferral(ctx context.Context, nickname, code string) (*api.Profile, error)
	Invitees(ctx context.Context) ([]api.Invitee, error)
}

var (
	// ErrAlreadyBound: one binding per account, ever. Guarded locally before
	// any request is issued.
	ErrAlreadyBound = errors.New("referral: an invite code is already bound")
	// ErrCodeLimitReached: the code hit its usage ceiling.
	ErrCodeLimitReached = errors.New("referral: invite code usage limit reached")
	// ErrCodeInvalid: the server does not recognize the code.
	ErrCodeInvalid = errors.New("referral: unknown invite code")
	// ErrCodeFormat is a local validation failure.
	ErrCodeFormat = errors.New("referral: malformed invite code")
	// ErrNoProfile means the profile has not been fetched yet.
	ErrNoProfile = errors.New("referral: profile not loaded")
)

// UsageCeiling is how many accounts one invite code may bind.
const UsageCeiling = 10

const localCodePrefix = "FEEL"

var codeRe = regexp.MustCompile(`^[A-Z0-9]{6,16}$`)

const verifyCacheSize = 64

// State owns the invite-binding lifecycle. Binding is irreversible from the
// client's side; the UI locks the input once ReferUser is set.
type State struct {
	api      API
	user     *user.State
	verified *lru.Cache
}

func NewState(apiClient API, userState *user.State) *State {
	cache, _ := lru.New(verifyCacheSize)
	return &State{api: apiClient, user: userState, verified: cache}
}

// Normalize maps user input onto the canonical code shape.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// VerifyCode asks whether a code is currently usable without binding it.
// Results are cached per code for the session.
func (s *State) VerifyCode(ctx context.Context, code string) (bool, error) {
	code = Normalize(code)
	if !codeRe.MatchString(code) {
		return false, ErrCodeFormat
	}
	if v, ok := s.verified.Get(code); ok {
		return v.(bool), nil
	}
	valid, err := s.api.VerifyReferralCode(ctx, code)
	if err != nil {
		return false, err
	}
	s.verified.Add(code, valid)
	return valid, nil
}

// BindCode binds an invite code to the account. Fails locally when a binding
// already exists; the bind endpoint is not contacted in that case.
func (s *State) BindCode(ctx context.Context, code string) error {
	profile := s.user.Profile()
	if profile == nil {
		return ErrNoProfile
	}
	if profile.ReferUser != "" {
		return ErrAlreadyBound
	}

	code = Normalize(code)
	if !codeRe.MatchString(code) {
		return ErrCodeFormat
	}

	// Nickname and referral are persisted together.
	updated, err := s.api.BindReferral(ctx, profile.Nickname, code)
	if err != nil {
		var apiErr *api.Error
		if errors.As(err, &apiErr) {
			switch apiErr.Code {
			case api.ErrCodeReferralLimit:
				return ErrCodeLimitReached
			case api.ErrCodeReferralBound:
				return ErrAlreadyBound
			case api.ErrCodeUnknownCode:
				return ErrCodeInvalid
			}
		}
		return err
	}
	s.user.SetProfile(updated)
	return nil
}

// InviteCode is the code this account offers to others: the server-issued one
// when present, otherwise a deterministic local code derived from the wallet
// address.
func (s *State) InviteCode() (string, error) {
	profile := s.user.Profile()
	if profile == nil {
		return "", ErrNoProfile
	}
	if profile.ReferralCode != "" {
		return profile.ReferralCode, nil
	}
	return LocalCode(profile.Address), nil
}

// LocalCode derives an invite code from a wallet address: fixed prefix plus
// the address's last six characters, uppercased.
func LocalCode(address string) string {
	addr := strings.TrimPrefix(strings.TrimSpace(address), "0x")
	if len(addr) > 6 {
		addr = addr[len(addr)-6:]
	}
	return localCodePrefix + strings.ToUpper(addr)
}

// Invitees lists referred accounts with their pending and claimed commission.
// Accrual is server-computed; the client only displays it and hands claiming
// to the reward claim flow under the invite category.
func (s *State) Invitees(ctx context.Context) ([]api.Invitee, error) {
	return s.api.Invitees(ctx)
}
