package devserver

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"

	"github.com/feelmint/feelmint-go/feelmint/api"
)

const (
	codeUsageCeiling = 10
	voucherTTL       = 10 * time.Minute
	devChainID       = 31337
)

type codeInfo struct {
	Owner string
	Used  int
}

type account struct {
	Profile   api.Profile
	Claimable map[api.RewardCategory]float64
	Records   map[api.RewardCategory][]api.RewardRecord
	Invitees  []api.Invitee
}

type issuedVoucher struct {
	Voucher  api.Voucher
	Category api.RewardCategory
	Token    string
}

// Store is the dev server's whole world: one day's task batch plus per-token
// accounts, all in memory. Accounts are auto-provisioned on first sight so
// the CLI needs no signup step.
type Store struct {
	mu sync.Mutex

	signKey   *ecdsa.PrivateKey
	tasks     []api.Task
	claimedAt time.Time
	accounts  map[string]*account
	codes     map[string]*codeInfo
	uploads   map[string][]byte
	vouchers  map[uint64]*issuedVoucher
	nonce     uint64
	nicknames map[string]string
}

func NewStore(signKeyHex string) (*Store, error) {
	key, err := crypto.HexToECDSA(signKeyHex)
	if err != nil {
		return nil, fmt.Errorf("devserver: parse signing key: %w", err)
	}
	s := &Store{
		signKey:   key,
		claimedAt: time.Now().Truncate(24 * time.Hour),
		accounts:  make(map[string]*account),
		codes:     make(map[string]*codeInfo),
		uploads:   make(map[string][]byte),
		vouchers:  make(map[uint64]*issuedVoucher),
		nicknames: make(map[string]string),
	}
	s.tasks = dailyBatch()
	return s, nil
}

// dailyBatch issues one task per emotion with the standard two questions.
func dailyBatch() []api.Task {
	tasks := make([]api.Task, 0, len(api.Emotions))
	for i, emotion := range api.Emotions {
		taskID := fmt.Sprintf("task-%d", i+1)
		options := make([]string, len(api.Emotions))
		for j, e := range api.Emotions {
			options[j] = string(e)
		}
		tasks = append(tasks, api.Task{
			ID:        taskID,
			TaskType:  api.TaskTypeEmotion,
			MediaNums: 1,
			Emotion:   emotion,
			Reward:    3,
			Medias:    make(map[string]api.MediaInfo),
			Questions: []api.Question{
				{
					ID:       taskID + "-q1",
					Type:     api.QuestionSingleChoice,
					Title:    api.EmotionQuestionTitle,
					Sort:     1,
					Required: true,
					Options:  options,
				},
				{
					ID:          taskID + "-q2",
					Type:        api.QuestionRating,
					Title:       "Intensity",
					Description: "How strongly is the emotion expressed?",
					Sort:        2,
					Required:    true,
				},
			},
		})
	}
	return tasks
}

// account must be called with the lock held.
func (s *Store) account(token string) *account {
	if acct, ok := s.accounts[token]; ok {
		return acct
	}
	address := "0x" + hex.EncodeToString(crypto.Keccak256([]byte(token))[:20])
	acct := &account{
		Profile: api.Profile{
			Address:      address,
			Nickname:     "dev_" + token[:min(6, len(token))],
			ReferralCode: "FEEL" + hex.EncodeToString(crypto.Keccak256([]byte(token))[:3]),
		},
		Claimable: make(map[api.RewardCategory]float64),
		Records:   make(map[api.RewardCategory][]api.RewardRecord),
	}
	s.accounts[token] = acct
	s.codes[acct.Profile.ReferralCode] = &codeInfo{Owner: token}
	return acct
}

func (s *Store) dailyTasks() api.DailyTasks {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]api.Task, len(s.tasks))
	copy(out, s.tasks)
	claimedAt := s.claimedAt
	return api.DailyTasks{Tasks: out, ClaimedAt: &claimedAt}
}

func (s *Store) uploadTicket(baseURL string) api.UploadTicket {
	key := uuid.NewString()
	return api.UploadTicket{
		UploadURL: baseURL + "/uploads/" + key,
		FileURL:   baseURL + "/files/" + key,
	}
}

func (s *Store) saveUpload(key string, data []byte) {
	s.mu.Lock()
	s.uploads[key] = data
	s.mu.Unlock()
}

func (s *Store) upload(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.uploads[key]
	return data, ok
}

var (
	errUnknownTask  = fmt.Errorf("unknown task")
	errTaskComplete = fmt.Errorf("task media quota reached")
	errBadAnswers   = fmt.Errorf("required answers missing")
)

func (s *Store) registerSubmission(token, taskID, fileURL string, answers []api.AnswerPayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var task *api.Task
	for i := range s.tasks {
		if s.tasks[i].ID == taskID {
			task = &s.tasks[i]
			break
		}
	}
	if task == nil {
		return errUnknownTask
	}
	if len(task.Medias) >= task.MediaNums {
		return errTaskComplete
	}

	answered := make(map[string]bool, len(answers))
	for _, a := range answers {
		if a.Choice != "" || a.Rating != nil {
			answered[a.QuestionID] = true
		}
	}
	for _, q := range task.Questions {
		if q.Required && !answered[q.ID] {
			return errBadAnswers
		}
	}

	task.Medias[fileURL] = api.MediaInfo{
		SubmittedAt: time.Now(),
		Validation:  api.ValidationPending,
		Claim:       api.MediaUnclaimed,
	}

	acct := s.account(token)
	acct.Claimable[api.RewardDaily] += task.Reward
	return nil
}

func (s *Store) claimable(token string, category api.RewardCategory) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.account(token).Claimable[category]
}

func (s *Store) records(token string, category api.RewardCategory) []api.RewardRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct := s.account(token)
	out := make([]api.RewardRecord, len(acct.Records[category]))
	copy(out, acct.Records[category])
	return out
}

var errNothingToClaim = fmt.Errorf("nothing to claim")

// issueVoucher signs a fresh voucher over the account's current claimable
// amount. Every request gets a new nonce; old vouchers are never re-issued.
func (s *Store) issueVoucher(token string, category api.RewardCategory) (*api.Voucher, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct := s.account(token)
	amount := acct.Claimable[category]
	if amount <= 0 {
		return nil, errNothingToClaim
	}

	s.nonce++
	now := time.Now()
	voucher := api.Voucher{
		Recipient:    acct.Profile.Address,
		UUID:         uuid.NewString(),
		Nonce:        s.nonce,
		Timestamp:    now.Unix(),
		Amount:       amount,
		Tasks:        "0x" + hex.EncodeToString([]byte(category)),
		MintExpireAt: now.Add(voucherTTL).Unix(),
	}

	digest := crypto.Keccak256(
		[]byte(voucher.Recipient),
		[]byte(voucher.UUID),
		[]byte(fmt.Sprintf("%d:%d:%f", voucher.Nonce, voucher.Timestamp, amount)),
	)
	sig, err := crypto.Sign(digest, s.signKey)
	if err != nil {
		return nil, err
	}
	voucher.Signature = "0x" + hex.EncodeToString(sig)

	s.vouchers[voucher.Nonce] = &issuedVoucher{Voucher: voucher, Category: category, Token: token}
	return &voucher, nil
}

var errUnknownNonce = fmt.Errorf("unknown voucher nonce")

func (s *Store) markClaimed(token string, nonce uint64, txHash string, chainID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	issued, ok := s.vouchers[nonce]
	if !ok || issued.Token != token {
		return errUnknownNonce
	}
	delete(s.vouchers, nonce)

	acct := s.account(token)
	acct.Records[issued.Category] = append(acct.Records[issued.Category], api.RewardRecord{
		Nonce:        nonce,
		TotalAmount:  issued.Voucher.Amount,
		Status:       api.RewardClaimedOK,
		RecordCount:  1,
		MintExpireAt: time.Unix(issued.Voucher.MintExpireAt, 0),
		TaskType:     api.TaskTypeEmotion,
		CreatedAt:    time.Unix(issued.Voucher.Timestamp, 0),
		TxHash:       txHash,
		ChainID:      chainID,
	})
	acct.Claimable[issued.Category] = 0
	return nil
}

var (
	errUnknownCode = fmt.Errorf("unknown code")
	errCodeLimit   = fmt.Errorf("code usage limit reached")
	errCodeBound   = fmt.Errorf("already bound")
)

func (s *Store) verifyCode(code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.codes[code]
	return ok && info.Used < codeUsageCeiling
}

func (s *Store) bindCode(token, nickname, code string) (*api.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct := s.account(token)
	if acct.Profile.ReferUser != "" {
		return nil, errCodeBound
	}
	info, ok := s.codes[code]
	if !ok {
		return nil, errUnknownCode
	}
	if info.Used >= codeUsageCeiling {
		return nil, errCodeLimit
	}

	info.Used++
	owner := s.account(info.Owner)
	acct.Profile.Nickname = nickname
	acct.Profile.ReferUser = owner.Profile.Address
	acct.Profile.ReferCode = code
	owner.Invitees = append(owner.Invitees, api.Invitee{
		Nickname: nickname,
		Address:  acct.Profile.Address,
	})

	profile := acct.Profile
	return &profile, nil
}

func (s *Store) profile(token string) api.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.account(token).Profile
}

func (s *Store) updateNickname(token, nickname string) (api.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if owner, taken := s.nicknames[nickname]; taken && owner != token {
		return api.Profile{}, fmt.Errorf("nickname taken")
	}
	acct := s.account(token)
	delete(s.nicknames, acct.Profile.Nickname)
	s.nicknames[nickname] = token
	acct.Profile.Nickname = nickname
	return acct.Profile, nil
}

func (s *Store) nicknameAvailable(nickname string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, taken := s.nicknames[nickname]
	return !taken
}

func (s *Store) invitees(token string) []api.Invitee {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct := s.account(token)
	out := make([]api.Invitee, len(acct.Invitees))
	copy(out, acct.Invitees)
	return out
}

func (s *Store) activateTier(token string, tier uint8, durationDays int) api.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub := api.Subscription{
		Tier:      tier,
		ExpiresAt: time.Now().AddDate(0, 0, durationDays),
	}
	acct := s.account(token)
	acct.Profile.Pro = &sub
	return sub
}
