package mockserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"
	"time"

	"github.com/matheus3301/chatstore/internal/api"
	"github.com/matheus3301/chatstore/internal/chat"
	"github.com/matheus3301/chatstore/internal/push"
)

var testUsers = []chat.Contact{
	{ID: "me", DisplayName: "Me"},
	{ID: "u1", DisplayName: "Ana"},
	{ID: "u2", DisplayName: "Bruno"},
}

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	s := New(testUsers, nil)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		s.Close()
		ts.Close()
	})
	return s, ts
}

func TestListUsersExcludesCaller(t *testing.T) {
	_, ts := newTestServer(t)
	c := api.NewClient(ts.URL, api.WithToken("me"))

	got, err := c.ListContacts(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != "u1" || got[1].ID != "u2" {
		t.Errorf("ListContacts() = %+v, want u1,u2", got)
	}
}

func TestUnauthenticated(t *testing.T) {
	_, ts := newTestServer(t)
	c := api.NewClient(ts.URL)

	_, err := c.ListContacts(context.Background())
	var apiErr *api.Error
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("error = %v, want 401 api.Error", err)
	}
	if apiErr.UserMessage() == "" {
		t.Error("401 should carry a message")
	}
}

func TestSendAndHistory(t *testing.T) {
	_, ts := newTestServer(t)
	me := api.NewClient(ts.URL, api.WithToken("me"))
	ana := api.NewClient(ts.URL, api.WithToken("u1"))
	ctx := context.Background()

	sent, err := me.SendMessage(ctx, "u1", chat.OutgoingMessage{Body: "hi"})
	if err != nil {
		t.Fatal(err)
	}
	if sent.ID == "" || sent.SenderID != "me" || sent.RecipientID != "u1" || sent.CreatedAt.IsZero() {
		t.Errorf("sent = %+v", sent)
	}
	if _, err := ana.SendMessage(ctx, "me", chat.OutgoingMessage{Body: "hey"}); err != nil {
		t.Fatal(err)
	}

	for _, c := range []*api.Client{me, ana} {
		peer := "u1"
		if c == ana {
			peer = "me"
		}
		hist, err := c.ListMessages(ctx, peer)
		if err != nil {
			t.Fatal(err)
		}
		if len(hist) != 2 || hist[0].Body != "hi" || hist[1].Body != "hey" {
			t.Errorf("history with %s = %+v", peer, hist)
		}
	}

	other, err := me.ListMessages(ctx, "u2")
	if err != nil || len(other) != 0 {
		t.Errorf("history with u2 = %+v, %v, want empty", other, err)
	}
}

func TestSendValidation(t *testing.T) {
	_, ts := newTestServer(t)
	me := api.NewClient(ts.URL, api.WithToken("me"))
	ctx := context.Background()

	tests := []struct {
		name string
		to   string
		msg  chat.OutgoingMessage
		code int
	}{
		{"empty", "u1", chat.OutgoingMessage{}, http.StatusBadRequest},
		{"unknown recipient", "ghost", chat.OutgoingMessage{Body: "x"}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := me.SendMessage(ctx, tt.to, tt.msg)
			var apiErr *api.Error
			if !errors.As(err, &apiErr) || apiErr.StatusCode != tt.code {
				t.Errorf("error = %v, want status %d", err, tt.code)
			}
		})
	}
}

func waitFor(t *testing.T, ch <-chan json.RawMessage) json.RawMessage {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for push")
		return nil
	}
}

func TestPushOnSend(t *testing.T) {
	_, ts := newTestServer(t)

	pc := push.NewClient(push.Config{URL: ts.URL + "/ws", UserID: "u1", Token: "u1"}, nil, nil)
	defer pc.Close()
	got := make(chan json.RawMessage, 4)
	online := make(chan json.RawMessage, 4)
	pc.On("newMessage", func(data json.RawMessage) { got <- data })
	pc.On("getOnlineUsers", func(data json.RawMessage) { online <- data })
	if err := pc.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	// The online broadcast follows socket registration.
	waitFor(t, online)

	me := api.NewClient(ts.URL, api.WithToken("me"))
	if _, err := me.SendMessage(context.Background(), "u1", chat.OutgoingMessage{Body: "ping"}); err != nil {
		t.Fatal(err)
	}

	var in chat.Inbound
	if err := json.Unmarshal(waitFor(t, got), &in); err != nil {
		t.Fatal(err)
	}
	if in.SenderID != "me" || in.Body != "ping" || in.SenderName != "Me" {
		t.Errorf("pushed %+v", in)
	}
}

func TestOnlineUsersBroadcast(t *testing.T) {
	s, ts := newTestServer(t)

	pc := push.NewClient(push.Config{URL: ts.URL + "/ws", UserID: "me"}, nil, nil)
	defer pc.Close()
	got := make(chan json.RawMessage, 8)
	pc.On("getOnlineUsers", func(data json.RawMessage) { got <- data })
	if err := pc.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}

	var ids []string
	if err := json.Unmarshal(waitFor(t, got), &ids); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(ids, []string{"me"}) {
		t.Errorf("first online list = %v, want [me]", ids)
	}

	s.SetOnline("u2")
	if err := json.Unmarshal(waitFor(t, got), &ids); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(ids, []string{"me", "u2"}) {
		t.Errorf("online list = %v, want [me u2]", ids)
	}
}

func TestAPIPrefix(t *testing.T) {
	_, ts := newTestServer(t)
	c := api.NewClient(ts.URL+"/api", api.WithToken("me"))
	got, err := c.ListContacts(context.Background())
	if err != nil || len(got) != 2 {
		t.Errorf("ListContacts() under /api = %+v, %v", got, err)
	}
}
