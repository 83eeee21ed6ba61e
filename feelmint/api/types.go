package api

import (
	"time"
)

// Emotion is one of the seven labeling categories the backend issues tasks for.
type Emotion string

const (
	EmotionHappy    Emotion = "HAPPY"
	EmotionSad      Emotion = "SAD"
	EmotionAngry    Emotion = "ANGRY"
	EmotionFear     Emotion = "FEAR"
	EmotionSurprise Emotion = "SURPRISE"
	EmotionDisgust  Emotion = "DISGUST"
	EmotionNeutral  Emotion = "NEUTRAL"
)

var Emotions = []Emotion{
	EmotionHappy,
	EmotionSad,
	EmotionAngry,
	EmotionFear,
	EmotionSurprise,
	EmotionDisgust,
	EmotionNeutral,
}

func (e Emotion) Valid() bool {
	for _, known := range Emotions {
		if e == known {
			return true
		}
	}
	return false
}

type QuestionType string

const (
	QuestionSingleChoice QuestionType = "single_choice"
	QuestionRating       QuestionType = "rating"
)

// EmotionQuestionTitle marks the single-choice question whose value is pinned
// to the task's emotion and never user-editable.
const EmotionQuestionTitle = "Type of emotion"

type Question struct {
	ID          string       `json:"id"`
	Type        QuestionType `json:"type"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Sort        int          `json:"sort"`
	Required    bool         `json:"required"`
	// Options is the closed set of allowed values for single-choice questions.
	Options []string `json:"options,omitempty"`
}

type ValidationStatus string

const (
	ValidationPending ValidationStatus = "pending"
	ValidationInvalid ValidationStatus = "invalid"
	ValidationValid   ValidationStatus = "valid"
)

type MediaClaimStatus string

const (
	MediaUnclaimed MediaClaimStatus = "unclaimed"
	MediaClaimed   MediaClaimStatus = "claimed"
)

// MediaInfo is the server-owned record of one uploaded media. The client only
// reads it; the backend's asynchronous validator mutates it.
type MediaInfo struct {
	SubmittedAt time.Time        `json:"submitted_at"`
	ValidatedAt *time.Time       `json:"validated_at,omitempty"`
	Validation  ValidationStatus `json:"validation"`
	Claim       MediaClaimStatus `json:"claim"`
}

// TaskTypeEmotion is the only task kind the client currently recognizes.
const TaskTypeEmotion = "emotion_photo"

// Task is a server-issued unit of labeling work for today. Read-only on the
// client; local in-progress state is kept in a separate Draft overlay joined
// by task id.
type Task struct {
	ID        string               `json:"id"`
	TaskType  string               `json:"task_type"`
	MediaNums int                  `json:"media_nums"`
	Emotion   Emotion              `json:"emotion"`
	Questions []Question           `json:"questions"`
	Reward    float64              `json:"reward"`
	Medias    map[string]MediaInfo `json:"medias"`
}

// Completed reports whether the task already carries its full media quota.
func (t Task) Completed() bool {
	return len(t.Medias) >= t.MediaNums
}

type DailyTasks struct {
	Tasks     []Task     `json:"tasks"`
	ClaimedAt *time.Time `json:"claimed_at,omitempty"`
}

// UploadTicket is the server-issued destination for one media payload.
type UploadTicket struct {
	UploadURL string `json:"upload_url"`
	FileURL   string `json:"file_url"`
}

// AnswerPayload carries one answered question at submission time. Choice is
// set for single-choice questions, Rating for rating questions.
type AnswerPayload struct {
	QuestionID string `json:"question_id"`
	Choice     string `json:"choice,omitempty"`
	Rating     *int   `json:"rating,omitempty"`
}

type SubmitTaskRequest struct {
	TaskID  string          `json:"task_id"`
	FileURL string          `json:"file_url"`
	Answers []AnswerPayload `json:"answers"`
}

// RewardCategory names an independently claimable reward source.
type RewardCategory string

const (
	RewardDaily  RewardCategory = "daily"
	RewardInvite RewardCategory = "invite"
	RewardPro    RewardCategory = "pro"
)

type RewardStatus string

const (
	RewardUnclaimed RewardStatus = "unclaimed"
	RewardClaimedOK RewardStatus = "claimed"
	RewardFailed    RewardStatus = "failed"
)

// RewardRecord aggregates eligible unclaimed work under one mint nonce.
type RewardRecord struct {
	Nonce        uint64       `json:"nonce"`
	TotalAmount  float64      `json:"total_amount"`
	Status       RewardStatus `json:"status"`
	RecordCount  int          `json:"record_count"`
	MintExpireAt time.Time    `json:"mint_expire_at"`
	TaskType     string       `json:"task_type"`
	CreatedAt    time.Time    `json:"created_at"`
	TxHash       string       `json:"tx_hash,omitempty"`
	ChainID      uint64       `json:"chain_id,omitempty"`
}

// Voucher is a server-signed authorization for one on-chain mint. Tasks is an
// opaque encoded task list the contract verifies against the signature.
type Voucher struct {
	Recipient    string  `json:"recipient"`
	UUID         string  `json:"uuid"`
	Nonce        uint64  `json:"nonce"`
	Timestamp    int64   `json:"timestamp"`
	Amount       float64 `json:"amount"`
	Tasks        string  `json:"tasks"`
	Signature    string  `json:"signature"`
	MintExpireAt int64   `json:"mint_expire_at"`
}

// Profile is the identity record. ReferUser is non-empty once an invite code
// has been bound; binding is irreversible from the client's side.
type Profile struct {
	Address      string        `json:"address"`
	Nickname     string        `json:"nickname"`
	ReferralCode string        `json:"referral_code,omitempty"`
	ReferUser    string        `json:"refer_user,omitempty"`
	ReferCode    string        `json:"refer_code,omitempty"`
	Pro          *Subscription `json:"pro,omitempty"`
}

// Subscription is the active paid tier, if any.
type Subscription struct {
	Tier      uint8     `json:"tier"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Invitee is one referred account with its commission split.
type Invitee struct {
	Nickname string  `json:"nickname"`
	Address  string  `json:"address"`
	Pending  float64 `json:"pending"`
	Claimed  float64 `json:"claimed"`
}

// ChainParams are the per-chain contract addresses served by the config API.
type ChainParams struct {
	ChainID              uint64 `json:"chain_id"`
	Name                 string `json:"name"`
	RewardContract       string `json:"reward_contract"`
	SubscriptionContract string `json:"subscription_contract"`
	Stablecoin           string `json:"stablecoin"`
	StablecoinDecimals   int    `json:"stablecoin_decimals"`
	TokenAddress         string `json:"token_address"`
}
