package ipc

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/illgrenoble/webx-session-manager/internal/session"
)

func TestEncoder_RoundTripsLoginRequest(t *testing.T) {
	enc := NewEncoder()
	req := Request{Kind: RequestLogin, Login: &LoginContent{
		Username: "alice", Password: "hunter2", Width: 1920, Height: 1080,
	}}

	raw, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	got, err := enc.Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Kind != RequestLogin || got.Login == nil {
		t.Fatalf("got = %+v, want login request", got)
	}
	if *got.Login != *req.Login {
		t.Fatalf("got.Login = %+v, want %+v", *got.Login, *req.Login)
	}
}

func TestEncoder_RoundTripsWhoRequest(t *testing.T) {
	req := Request{Kind: RequestWho}
	raw, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(raw), `"request":"who"`) {
		t.Fatalf("wire form = %s, missing discriminator", raw)
	}

	var got Request
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.Kind != RequestWho {
		t.Fatalf("got.Kind = %q, want who", got.Kind)
	}
}

func TestEncoder_RoundTripsLogoutRequest(t *testing.T) {
	req := Request{Kind: RequestLogout, Logout: &LogoutContent{ID: "abc123"}}
	raw, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got Request
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.Kind != RequestLogout || got.Logout == nil || got.Logout.ID != "abc123" {
		t.Fatalf("got = %+v, want logout id=abc123", got)
	}
}

// TestResponse_LoginViewIDIsThirtyTwoHexChars pins spec property B3: the
// wire-level session id never carries hyphens.
func TestResponse_LoginViewIDIsThirtyTwoHexChars(t *testing.T) {
	s := session.Session{
		ID:       uuid.New(),
		Username: "alice",
		UID:      1001,
		Xorg:     &session.ProcessHandle{},
		WM:       &session.ProcessHandle{},
	}
	view := s.ToView()

	if len(view.ID) != 32 {
		t.Fatalf("id length = %d, want 32: %q", len(view.ID), view.ID)
	}
	if strings.Contains(view.ID, "-") {
		t.Fatalf("id %q contains a hyphen, want simple form", view.ID)
	}
	for _, r := range view.ID {
		if !strings.ContainsRune("0123456789abcdef", r) {
			t.Fatalf("id %q contains non-hex character %q", view.ID, r)
		}
	}

	resp := Response{Kind: ResponseLogin, Login: view}
	raw, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got Response
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.Kind != ResponseLogin || got.Login.ID != view.ID {
		t.Fatalf("got = %+v, want login view id %q", got, view.ID)
	}
}

func TestEncoder_RoundTripsWhoResponse(t *testing.T) {
	resp := Response{Kind: ResponseWho, Who: []session.View{
		{ID: "aaaa", Username: "alice"},
		{ID: "bbbb", Username: "bob"},
	}}
	raw, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got Response
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(got.Who) != 2 || got.Who[0].Username != "alice" || got.Who[1].Username != "bob" {
		t.Fatalf("got.Who = %+v", got.Who)
	}
}

func TestEncoder_RoundTripsEmptyWhoResponse(t *testing.T) {
	resp := Response{Kind: ResponseWho, Who: nil}
	raw, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(raw), `"content":[]`) {
		t.Fatalf("empty who response = %s, want content:[]", raw)
	}
	var got Response
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.Kind != ResponseWho || len(got.Who) != 0 {
		t.Fatalf("got = %+v, want empty who response", got)
	}
}

func TestEncoder_RoundTripsErrorResponse(t *testing.T) {
	resp := NewErrorResponse(session.AuthenticationError("invalid credentials"))
	raw, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got Response
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.Kind != ResponseError || got.Error == nil || got.Error.Message == "" {
		t.Fatalf("got = %+v, want populated error", got)
	}
}

func TestEncoder_RoundTripsLogoutResponse(t *testing.T) {
	resp := Response{Kind: ResponseLogout}
	raw, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(raw), `"response":"logout"`) {
		t.Fatalf("wire form = %s, missing discriminator", raw)
	}
	var got Response
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.Kind != ResponseLogout {
		t.Fatalf("got.Kind = %q, want logout", got.Kind)
	}
}

func TestEncoder_DecodeUnknownRequestKindFails(t *testing.T) {
	enc := NewEncoder()
	_, err := enc.Decode([]byte(`{"request":"bogus"}`))
	if err == nil {
		t.Fatal("Decode of unknown request kind should fail")
	}
}
