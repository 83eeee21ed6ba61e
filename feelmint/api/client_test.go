package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func Test_Client_DailyTasks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/tasks/daily" {
			t.Errorf("request path = %q, want /api/v1/tasks/daily", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
			t.Errorf("Authorization = %q, want %q", got, "Bearer tok-1")
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"status": "success",
			"data": map[string]any{
				"tasks": []map[string]any{
					{"id": "t1", "task_type": TaskTypeEmotion, "media_nums": 1, "emotion": "HAPPY", "reward": 3},
				},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok-1", time.Second)
	daily, err := c.DailyTasks(context.Background())
	if err != nil {
		t.Fatalf("Client.DailyTasks() error = %v", err)
	}
	if len(daily.Tasks) != 1 || daily.Tasks[0].ID != "t1" {
		t.Errorf("Client.DailyTasks() = %+v, want one task t1", daily.Tasks)
	}
	if daily.Tasks[0].Emotion != EmotionHappy {
		t.Errorf("task emotion = %q, want %q", daily.Tasks[0].Emotion, EmotionHappy)
	}
}

func Test_Client_ErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]any{
			"status": "error",
			"error":  map[string]string{"code": ErrCodeReferralBound, "message": "already bound"},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok-1", time.Second)
	_, err := c.BindReferral(context.Background(), "nick", "FEELAB12CD")
	if err == nil {
		t.Fatal("Client.BindReferral() error = nil, want *Error")
	}

	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("Client.BindReferral() error type = %T, want *Error", err)
	}
	if apiErr.Code != ErrCodeReferralBound {
		t.Errorf("apiErr.Code = %q, want %q", apiErr.Code, ErrCodeReferralBound)
	}
	if apiErr.Status != http.StatusConflict {
		t.Errorf("apiErr.Status = %d, want %d", apiErr.Status, http.StatusConflict)
	}
}

func Test_Client_SessionExpiry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok-1", time.Second)
	expired := false
	c.OnAuthExpired(func() { expired = true })

	if _, err := c.Profile(context.Background()); !errors.Is(err, ErrAuthExpired) {
		t.Fatalf("Client.Profile() error = %v, want %v", err, ErrAuthExpired)
	}
	if c.Token() != "" {
		t.Errorf("Client.Token() = %q after 401, want empty", c.Token())
	}
	if !expired {
		t.Error("OnAuthExpired hook was not invoked")
	}
}

func Test_Client_MalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second)
	_, err := c.Profile(context.Background())

	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("Client.Profile() error type = %T, want *Error", err)
	}
	if apiErr.Message != "malformed response" {
		t.Errorf("apiErr.Message = %q, want %q", apiErr.Message, "malformed response")
	}
}
