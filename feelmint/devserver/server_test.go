package devserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/feelmint/feelmint-go/feelmint/api"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	srv, err := New("http://dev.local", "")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return srv
}

func request(t *testing.T, srv *Server, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := srv.App().Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test(%s %s) error = %v", method, path, err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read response: %v", err)
	}
	resp.Body.Close()
	return resp, buf.Bytes()
}

func decodeData(t *testing.T, raw []byte, out any) {
	t.Helper()
	var env struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("decode envelope: %v (%s)", err, raw)
	}
	if env.Status != "success" {
		t.Fatalf("envelope status = %q, body %s", env.Status, raw)
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			t.Fatalf("decode data: %v", err)
		}
	}
}

func errorCode(t *testing.T, raw []byte) string {
	t.Helper()
	var env struct {
		Status string `json:"status"`
		Error  struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("decode error envelope: %v (%s)", err, raw)
	}
	return env.Error.Code
}

func Test_Server_AuthRequired(t *testing.T) {
	srv := testServer(t)

	resp, _ := request(t, srv, http.MethodGet, "/api/v1/tasks/daily", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
}

func Test_Server_SubmissionLifecycle(t *testing.T) {
	srv := testServer(t)
	const token = "alice-token"

	var daily api.DailyTasks
	_, raw := request(t, srv, http.MethodGet, "/api/v1/tasks/daily", token, nil)
	decodeData(t, raw, &daily)
	if len(daily.Tasks) != len(api.Emotions) {
		t.Fatalf("len(daily.Tasks) = %d, want %d", len(daily.Tasks), len(api.Emotions))
	}
	task := daily.Tasks[0]

	var ticket api.UploadTicket
	_, raw = request(t, srv, http.MethodPost, "/api/v1/tasks/upload-url", token,
		map[string]string{"task_type": task.TaskType})
	decodeData(t, raw, &ticket)

	// Missing required answers are rejected before anything is recorded.
	resp, raw := request(t, srv, http.MethodPost, "/api/v1/tasks/"+task.ID+"/submit", token,
		api.SubmitTaskRequest{FileURL: ticket.FileURL})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("submit without answers status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
	if got := errorCode(t, raw); got != "ANSWERS_MISSING" {
		t.Errorf("error code = %q, want ANSWERS_MISSING", got)
	}

	rating := 70
	answers := []api.AnswerPayload{
		{QuestionID: task.Questions[0].ID, Choice: string(task.Emotion)},
		{QuestionID: task.Questions[1].ID, Rating: &rating},
	}
	resp, _ = request(t, srv, http.MethodPost, "/api/v1/tasks/"+task.ID+"/submit", token,
		api.SubmitTaskRequest{FileURL: ticket.FileURL, Answers: answers})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("submit status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	// A second submission for the same single-media task conflicts.
	resp, raw = request(t, srv, http.MethodPost, "/api/v1/tasks/"+task.ID+"/submit", token,
		api.SubmitTaskRequest{FileURL: ticket.FileURL + "-2", Answers: answers})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("resubmit status = %d, want %d", resp.StatusCode, http.StatusConflict)
	}
	if got := errorCode(t, raw); got != "TASK_COMPLETE" {
		t.Errorf("error code = %q, want TASK_COMPLETE", got)
	}

	// The reward accrued into the daily category.
	var claimable struct {
		Amount float64 `json:"amount"`
	}
	_, raw = request(t, srv, http.MethodGet, "/api/v1/rewards/claimable?category=daily", token, nil)
	decodeData(t, raw, &claimable)
	if claimable.Amount != task.Reward {
		t.Fatalf("claimable = %v, want %v", claimable.Amount, task.Reward)
	}

	// Voucher, then report of the mined transaction.
	var voucher api.Voucher
	_, raw = request(t, srv, http.MethodPost, "/api/v1/rewards/voucher", token,
		map[string]string{"category": "daily"})
	decodeData(t, raw, &voucher)
	if voucher.Amount != task.Reward || voucher.Signature == "" {
		t.Fatalf("voucher = %+v, want signed voucher over %v", voucher, task.Reward)
	}

	resp, _ = request(t, srv, http.MethodPost, "/api/v1/rewards/claimed", token,
		map[string]any{"nonce": voucher.Nonce, "tx_hash": "0xmined", "chain_id": devChainID})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("claimed status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	_, raw = request(t, srv, http.MethodGet, "/api/v1/rewards/claimable?category=daily", token, nil)
	decodeData(t, raw, &claimable)
	if claimable.Amount != 0 {
		t.Errorf("claimable after claim = %v, want 0", claimable.Amount)
	}

	var records struct {
		Records []api.RewardRecord `json:"records"`
	}
	_, raw = request(t, srv, http.MethodGet, "/api/v1/rewards/records?category=daily", token, nil)
	decodeData(t, raw, &records)
	if len(records.Records) != 1 || records.Records[0].Status != api.RewardClaimedOK {
		t.Errorf("records = %+v, want one claimed record", records.Records)
	}
}

func Test_Server_ReferralCeiling(t *testing.T) {
	srv := testServer(t)

	var owner api.Profile
	_, raw := request(t, srv, http.MethodGet, "/api/v1/profile", "owner-token", nil)
	decodeData(t, raw, &owner)
	if owner.ReferralCode == "" {
		t.Fatal("owner profile has no referral code")
	}

	// The code binds up to the ceiling, then rejects.
	for i := 0; i < codeUsageCeiling; i++ {
		token := fmt.Sprintf("invitee-%d", i)
		resp, raw := request(t, srv, http.MethodPost, "/api/v1/referral/bind", token,
			map[string]string{"nickname": token, "code": owner.ReferralCode})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("bind %d status = %d, body %s", i, resp.StatusCode, raw)
		}
	}

	resp, raw := request(t, srv, http.MethodPost, "/api/v1/referral/bind", "invitee-over",
		map[string]string{"nickname": "over", "code": owner.ReferralCode})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("bind over ceiling status = %d, want %d", resp.StatusCode, http.StatusConflict)
	}
	if got := errorCode(t, raw); got != api.ErrCodeReferralLimit {
		t.Errorf("error code = %q, want %q", got, api.ErrCodeReferralLimit)
	}

	// Rebinding the same account fails with the bound code.
	resp, raw = request(t, srv, http.MethodPost, "/api/v1/referral/bind", "invitee-0",
		map[string]string{"nickname": "again", "code": owner.ReferralCode})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("rebind status = %d, want %d", resp.StatusCode, http.StatusConflict)
	}
	if got := errorCode(t, raw); got != api.ErrCodeReferralBound {
		t.Errorf("error code = %q, want %q", got, api.ErrCodeReferralBound)
	}

	var invitees struct {
		Invitees []api.Invitee `json:"invitees"`
	}
	_, raw = request(t, srv, http.MethodGet, "/api/v1/referral/invitees", "owner-token", nil)
	decodeData(t, raw, &invitees)
	if len(invitees.Invitees) != codeUsageCeiling {
		t.Errorf("len(invitees) = %d, want %d", len(invitees.Invitees), codeUsageCeiling)
	}
}
