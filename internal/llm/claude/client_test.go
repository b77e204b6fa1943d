package claude

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

func TestTextOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		msg  *anthropic.Message
		want string
	}{
		{"nil", nil, ""},
		{"single", &anthropic.Message{Content: []anthropic.ContentBlockUnion{{Type: "text", Text: " analysis "}}}, "analysis"},
		{
			"mixed",
			&anthropic.Message{Content: []anthropic.ContentBlockUnion{
				{Type: "text", Text: `{"severity":`},
				{Type: "tool_use", ID: "tu-1", Name: "ignored", Input: json.RawMessage(`{}`)},
				{Type: "text", Text: `90}`},
			}},
			`{"severity":90}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := textOf(tt.msg); got != tt.want {
				t.Errorf("textOf = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestComplete(t *testing.T) {
	t.Parallel()

	var got map[string]any
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("path = %s, want /v1/messages", r.URL.Path)
		}
		gotKey = r.Header.Get("X-Api-Key")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id":"msg_1","type":"message","role":"assistant","model":"claude-test",
			"content":[{"type":"text","text":"{\"severity\":70,\"confidence\":0.8}"}],
			"stop_reason":"end_turn","usage":{"input_tokens":10,"output_tokens":5}
		}`)
	}))
	defer srv.Close()

	c := New("sk-test", "claude-test", option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0))
	out, err := c.Complete(context.Background(), "You are a SOC response planner.", "plan this")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != `{"severity":70,"confidence":0.8}` {
		t.Errorf("reply = %q", out)
	}
	if gotKey != "sk-test" {
		t.Errorf("api key = %q", gotKey)
	}
	if got["model"] != "claude-test" {
		t.Errorf("model = %v", got["model"])
	}
	sys, _ := got["system"].([]any)
	if len(sys) != 1 {
		t.Fatalf("system = %v, want one text block", got["system"])
	}
	msgs, _ := got["messages"].([]any)
	if len(msgs) != 1 {
		t.Fatalf("messages = %v, want one user turn", got["messages"])
	}
}

func TestComplete_APIError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`)
	}))
	defer srv.Close()

	c := New("bad", "claude-test", option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0))
	if _, err := c.Complete(context.Background(), "s", "p"); err == nil {
		t.Fatal("expected error for 401")
	}
}

func TestComplete_EmptyReply(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"msg_2","type":"message","role":"assistant","model":"m","content":[],"stop_reason":"end_turn","usage":{"input_tokens":1,"output_tokens":0}}`)
	}))
	defer srv.Close()

	c := New("k", "m", option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0))
	if _, err := c.Complete(context.Background(), "", "p"); err == nil {
		t.Fatal("expected error for empty reply")
	}
}
