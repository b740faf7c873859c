package realtime

import (
	"encoding/json"
	"testing"

	"github.com/matheus3301/chatstore/internal/chat"
	"github.com/matheus3301/chatstore/internal/push"
	"go.uber.org/zap"
)

type recordingInbox struct {
	got []chat.Inbound
}

func (r *recordingInbox) RecordInbound(in chat.Inbound) chat.Route {
	r.got = append(r.got, in)
	return chat.RouteUnread
}

func TestSubscribeIsIdempotent(t *testing.T) {
	em := push.NewEmitter()
	r := New(em, &recordingInbox{}, zap.NewNop())

	first := r.Subscribe()
	second := r.Subscribe()

	if first != second {
		t.Errorf("second Subscribe() = %q, want live token %q", second, first)
	}
	if n := em.Handlers(EventNewMessage); n != 1 {
		t.Errorf("registered handlers = %d, want 1", n)
	}
	if r.State() != Subscribed {
		t.Errorf("State() = %s, want SUBSCRIBED", r.State())
	}
}

func TestUnsubscribe(t *testing.T) {
	tests := []struct {
		name      string
		subscribe bool
		token     func(live push.Token) push.Token
		wantState State
		wantRegs  int
	}{
		{"live token", true, func(live push.Token) push.Token { return live }, Unsubscribed, 0},
		{"foreign token", true, func(push.Token) push.Token { return "someone-else" }, Subscribed, 1},
		{"while unsubscribed", false, func(push.Token) push.Token { return "anything" }, Unsubscribed, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			em := push.NewEmitter()
			r := New(em, &recordingInbox{}, nil)
			var live push.Token
			if tt.subscribe {
				live = r.Subscribe()
			}

			r.Unsubscribe(tt.token(live))

			if r.State() != tt.wantState {
				t.Errorf("State() = %s, want %s", r.State(), tt.wantState)
			}
			if n := em.Handlers(EventNewMessage); n != tt.wantRegs {
				t.Errorf("registered handlers = %d, want %d", n, tt.wantRegs)
			}
		})
	}
}

// TestUnsubscribeLeavesOtherListeners verifies that only the reconciler's
// own registration is removed.
func TestUnsubscribeLeavesOtherListeners(t *testing.T) {
	em := push.NewEmitter()
	other := 0
	em.On(EventNewMessage, func(json.RawMessage) { other++ })

	r := New(em, &recordingInbox{}, nil)
	r.Unsubscribe(r.Subscribe())

	em.Emit(EventNewMessage, json.RawMessage(`{"senderId":"u1"}`))
	if other != 1 {
		t.Errorf("other listener ran %d times, want 1", other)
	}
}

func TestResubscribeAfterUnsubscribe(t *testing.T) {
	em := push.NewEmitter()
	inbox := &recordingInbox{}
	r := New(em, inbox, nil)

	old := r.Subscribe()
	r.Unsubscribe(old)
	fresh := r.Subscribe()
	if fresh == old {
		t.Error("resubscribe reused the old token")
	}
	r.Unsubscribe(old)
	if r.State() != Subscribed {
		t.Error("stale token unsubscribed the fresh registration")
	}

	em.Emit(EventNewMessage, json.RawMessage(`{"_id":"m1","senderId":"u1"}`))
	if len(inbox.got) != 1 {
		t.Errorf("inbox got %d messages, want 1", len(inbox.got))
	}
}

func TestHandleDecodesPayload(t *testing.T) {
	em := push.NewEmitter()
	inbox := &recordingInbox{}
	New(em, inbox, nil).Subscribe()

	em.Emit(EventNewMessage, json.RawMessage(`{
		"_id": "m1",
		"senderId": "u2",
		"receiverId": "me",
		"text": "hello",
		"senderName": "Bruno",
		"createdAt": "2024-05-01T10:00:00Z"
	}`))
	em.Emit(EventNewMessage, json.RawMessage(`"not an object"`))

	if len(inbox.got) != 1 {
		t.Fatalf("inbox got %d messages, want 1", len(inbox.got))
	}
	in := inbox.got[0]
	if in.ID != "m1" || in.SenderID != "u2" || in.Body != "hello" || in.SenderName != "Bruno" {
		t.Errorf("decoded %+v", in)
	}
	if in.CreatedAt.IsZero() {
		t.Error("createdAt not decoded")
	}
}

// TestPushIntoStore runs a pushed message through to the store's unread
// ledger.
func TestPushIntoStore(t *testing.T) {
	em := push.NewEmitter()
	store := chat.NewStore(nil, nil, nil, zap.NewNop())
	store.SelectContact(chat.Contact{ID: "u1", DisplayName: "Ana"})
	New(em, store, nil).Subscribe()

	em.Emit(EventNewMessage, json.RawMessage(`{"_id":"m1","senderId":"u1","receiverId":"me","text":"a"}`))
	em.Emit(EventNewMessage, json.RawMessage(`{"_id":"m2","senderId":"u2","receiverId":"me","text":"b"}`))

	if msgs := store.Messages(); len(msgs) != 1 || msgs[0].ID != "m1" {
		t.Errorf("Messages() = %+v, want [m1]", msgs)
	}
	if e := store.Unread("u2"); e.Count != 1 || e.Buffered[0].ID != "m2" {
		t.Errorf("Unread(u2) = %+v, want [m2]", e)
	}
}

func TestDoubleSubscribeCountsOnce(t *testing.T) {
	em := push.NewEmitter()
	store := chat.NewStore(nil, nil, nil, zap.NewNop())
	r := New(em, store, nil)
	r.Subscribe()
	r.Subscribe()

	em.Emit(EventNewMessage, json.RawMessage(`{"_id":"m1","senderId":"u2","receiverId":"me","text":"hi"}`))

	e := store.Unread("u2")
	if e.Count != 1 || len(e.Buffered) != 1 {
		t.Errorf("Unread(u2) = %+v, want one buffered message", e)
	}
	if store.UnreadTotal() != 1 {
		t.Errorf("UnreadTotal() = %d, want 1", store.UnreadTotal())
	}
}
