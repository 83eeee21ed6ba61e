package referral

import (
	"context"
	"errors"
	"testing"

	"github.com/feelmint/feelmint-go/feelmint/api"
	"github.com/feelmint/feelmint-go/feelmint/user"
)

type fakeReferralAPI struct {
	verifyCalls int
	verify      func(code string) (bool, error)
	bindCalls   int
	bind        func(nickname, code string) (*api.Profile, error)
}

func (f *fakeReferralAPI) VerifyReferralCode(_ context.Context, code string) (bool, error) {
	f.verifyCalls++
	return f.verify(code)
}

func (f *fakeReferralAPI) BindReferral(_ context.Context, nickname, code string) (*api.Profile, error) {
	f.bindCalls++
	return f.bind(nickname, code)
}

func (f *fakeReferralAPI) Invitees(_ context.Context) ([]api.Invitee, error) {
	return nil, nil
}

type fakeUserAPI struct {
	profile *api.Profile
}

func (f *fakeUserAPI) Profile(_ context.Context) (*api.Profile, error) { return f.profile, nil }
func (f *fakeUserAPI) UpdateProfile(_ context.Context, _ string) (*api.Profile, error) {
	return f.profile, nil
}
func (f *fakeUserAPI) NicknameAvailable(_ context.Context, _ string) (bool, error) {
	return true, nil
}

func userWithProfile(p *api.Profile) *user.State {
	s := user.NewState(&fakeUserAPI{})
	s.SetProfile(p)
	return s
}

func Test_State_VerifyCode(t *testing.T) {
	f := &fakeReferralAPI{
		verify: func(code string) (bool, error) { return code == "FEELAB12CD", nil },
	}
	s := NewState(f, userWithProfile(&api.Profile{Address: "0xaa", Nickname: "n"}))

	if _, err := s.VerifyCode(context.Background(), "ab"); !errors.Is(err, ErrCodeFormat) {
		t.Errorf("State.VerifyCode() error = %v, want %v", err, ErrCodeFormat)
	}

	// Input is normalized before hitting the server.
	ok, err := s.VerifyCode(context.Background(), "  feelab12cd ")
	if err != nil {
		t.Fatalf("State.VerifyCode() error = %v", err)
	}
	if !ok {
		t.Error("State.VerifyCode() = false, want true")
	}

	// Repeat lookups are served from the session cache.
	if _, err := s.VerifyCode(context.Background(), "FEELAB12CD"); err != nil {
		t.Fatalf("State.VerifyCode() error = %v", err)
	}
	if f.verifyCalls != 1 {
		t.Errorf("verify requests = %d, want 1", f.verifyCalls)
	}
}

func Test_State_BindCode(t *testing.T) {
	apiErr := func(code string) error {
		return &api.Error{Status: 409, Code: code, Message: code}
	}

	tests := []struct {
		name      string
		profile   *api.Profile
		code      string
		bindErr   error
		wantErr   error
		wantCalls int
	}{
		{
			name:    "no profile loaded",
			profile: nil,
			code:    "FEELAB12CD",
			wantErr: ErrNoProfile,
		},
		{
			name:    "already bound locally",
			profile: &api.Profile{Address: "0xaa", Nickname: "n", ReferUser: "earlier"},
			code:    "FEELAB12CD",
			wantErr: ErrAlreadyBound,
		},
		{
			name:    "malformed code",
			profile: &api.Profile{Address: "0xaa", Nickname: "n"},
			code:    "no!",
			wantErr: ErrCodeFormat,
		},
		{
			name:      "usage ceiling reached",
			profile:   &api.Profile{Address: "0xaa", Nickname: "n"},
			code:      "FEELAB12CD",
			bindErr:   apiErr(api.ErrCodeReferralLimit),
			wantErr:   ErrCodeLimitReached,
			wantCalls: 1,
		},
		{
			name:      "bound server-side",
			profile:   &api.Profile{Address: "0xaa", Nickname: "n"},
			code:      "FEELAB12CD",
			bindErr:   apiErr(api.ErrCodeReferralBound),
			wantErr:   ErrAlreadyBound,
			wantCalls: 1,
		},
		{
			name:      "unknown code",
			profile:   &api.Profile{Address: "0xaa", Nickname: "n"},
			code:      "FEELAB12CD",
			bindErr:   apiErr(api.ErrCodeUnknownCode),
			wantErr:   ErrCodeInvalid,
			wantCalls: 1,
		},
		{
			name:      "success",
			profile:   &api.Profile{Address: "0xaa", Nickname: "n"},
			code:      "feelab12cd",
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeReferralAPI{
				bind: func(nickname, code string) (*api.Profile, error) {
					if tt.bindErr != nil {
						return nil, tt.bindErr
					}
					return &api.Profile{Address: "0xaa", Nickname: nickname, ReferUser: "inviter", ReferCode: code}, nil
				},
			}
			u := user.NewState(&fakeUserAPI{})
			if tt.profile != nil {
				u.SetProfile(tt.profile)
			}
			s := NewState(f, u)

			err := s.BindCode(context.Background(), tt.code)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("State.BindCode() error = %v, wantErr %v", err, tt.wantErr)
			}
			if f.bindCalls != tt.wantCalls {
				t.Errorf("bind requests = %d, want %d", f.bindCalls, tt.wantCalls)
			}
			if tt.wantErr == nil {
				if got := u.Profile().ReferUser; got != "inviter" {
					t.Errorf("profile.ReferUser after bind = %q, want %q", got, "inviter")
				}
				// Binding is one-shot: the next attempt fails locally.
				if err := s.BindCode(context.Background(), tt.code); !errors.Is(err, ErrAlreadyBound) {
					t.Errorf("second State.BindCode() error = %v, want %v", err, ErrAlreadyBound)
				}
				if f.bindCalls != tt.wantCalls {
					t.Errorf("bind requests after rebind attempt = %d, want %d", f.bindCalls, tt.wantCalls)
				}
			}
		})
	}
}

func Test_State_InviteCode(t *testing.T) {
	tests := []struct {
		name    string
		profile *api.Profile
		want    string
		wantErr error
	}{
		{
			name:    "no profile",
			wantErr: ErrNoProfile,
		},
		{
			name:    "server-issued code wins",
			profile: &api.Profile{Address: "0x0123456789abcdef0123456789abcdef01abcdef", ReferralCode: "SRV123"},
			want:    "SRV123",
		},
		{
			name:    "local fallback from address",
			profile: &api.Profile{Address: "0x0123456789abcdef0123456789abcdef01abcdef"},
			want:    "FEELABCDEF",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := user.NewState(&fakeUserAPI{})
			if tt.profile != nil {
				u.SetProfile(tt.profile)
			}
			s := NewState(&fakeReferralAPI{}, u)

			got, err := s.InviteCode()
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("State.InviteCode() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("State.InviteCode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func Test_LocalCode(t *testing.T) {
	tests := []struct {
		name    string
		address string
		want    string
	}{
		{name: "full address", address: "0x0123456789abcdef0123456789abcdef01abcdef", want: "FEELABCDEF"},
		{name: "no prefix", address: "0123456789abcdef", want: "FEELABCDEF"},
		{name: "short address", address: "0xab12", want: "FEELAB12"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LocalCode(tt.address); got != tt.want {
				t.Errorf("LocalCode(%q) = %q, want %q", tt.address, got, tt.want)
			}
		})
	}
}
