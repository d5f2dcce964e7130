package fcm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/chadley78/located-dispatch/module/core/domain"
)

func testNotification() *domain.Notification {
	return &domain.Notification{
		Title: "Alfie entered School",
		Body:  "Location: 1 Main St",
		Data:  map[string]string{"type": "geofence_event"},
	}
}

func TestSendMulticast_Success(t *testing.T) {
	var gotReq multicastRequest
	var gotAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != multicastPath {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(multicastResponse{
			SuccessCount: 1,
			FailureCount: 1,
			Responses: []sendResponse{
				{Success: true},
				{Success: false, Error: &sendError{Code: "registration-token-not-registered", Message: "token gone"}},
			},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "secret", 5*time.Second)
	result, err := client.SendMulticast(context.Background(), testNotification(), []string{"tA", "tB"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotAuth != "Bearer secret" {
		t.Errorf("unexpected auth header: %s", gotAuth)
	}
	if gotReq.Notification.Title != "Alfie entered School" {
		t.Errorf("unexpected title: %s", gotReq.Notification.Title)
	}
	if len(gotReq.Tokens) != 2 {
		t.Fatalf("expected 2 tokens in request, got %d", len(gotReq.Tokens))
	}

	if result.SuccessCount != 1 || result.FailureCount != 1 {
		t.Errorf("unexpected counts: %+v", result)
	}
	if len(result.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(result.Results))
	}
	if result.Results[0].Token != "tA" || !result.Results[0].Success {
		t.Errorf("unexpected first result: %+v", result.Results[0])
	}
	if result.Results[1].Token != "tB" || result.Results[1].Success {
		t.Errorf("unexpected second result: %+v", result.Results[1])
	}
	if result.Results[1].ErrorCode != "registration-token-not-registered" {
		t.Errorf("unexpected error code: %s", result.Results[1].ErrorCode)
	}
	if !result.Results[1].PermanentFailure() {
		t.Error("expected permanent failure classification")
	}
}

func TestSendMulticast_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "secret", 5*time.Second)
	_, err := client.SendMulticast(context.Background(), testNotification(), []string{"tA"})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestSendMulticast_MisalignedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(multicastResponse{
			SuccessCount: 1,
			Responses:    []sendResponse{{Success: true}},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "secret", 5*time.Second)
	_, err := client.SendMulticast(context.Background(), testNotification(), []string{"tA", "tB"})
	if err == nil {
		t.Fatal("expected error for misaligned response")
	}
}

func TestSendMulticast_Unreachable(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", "secret", time.Second)
	_, err := client.SendMulticast(context.Background(), testNotification(), []string{"tA"})
	if err == nil {
		t.Fatal("expected error")
	}
}
