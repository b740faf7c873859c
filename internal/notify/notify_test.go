package notify

import (
	"testing"
	"time"

	"github.com/matheus3301/chatstore/internal/bus"
)

func TestBusSinkPublishes(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("notify.", 10)
	defer unsub()

	s := NewBusSink(b)
	s.Notify(Info, "New message from Ana")
	s.Notify(Error, "Unauthorized")

	want := []struct {
		kind string
		text string
	}{
		{bus.KindNotifyInfo, "New message from Ana"},
		{bus.KindNotifyError, "Unauthorized"},
	}
	for _, w := range want {
		select {
		case evt := <-ch:
			if evt.Kind != w.kind {
				t.Errorf("kind = %q, want %q", evt.Kind, w.kind)
			}
			toast, ok := evt.Payload.(Toast)
			if !ok {
				t.Fatalf("payload type = %T, want Toast", evt.Payload)
			}
			if toast.Text != w.text {
				t.Errorf("text = %q, want %q", toast.Text, w.text)
			}
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for notification")
		}
	}
}

func TestFlashExpires(t *testing.T) {
	f := NewFlash(50 * time.Millisecond)
	f.Notify(Error, "boom")

	kind, msg := f.Get()
	if kind != Error || msg != "boom" {
		t.Errorf("Get() = %q %q, want error boom", kind, msg)
	}

	time.Sleep(80 * time.Millisecond)
	if _, msg := f.Get(); msg != "" {
		t.Errorf("Get() after ttl = %q, want empty", msg)
	}
}

func TestTee(t *testing.T) {
	a := NewFlash(time.Minute)
	b := NewFlash(time.Minute)
	Tee{a, Discard, b}.Notify(Info, "hi")

	for _, f := range []*Flash{a, b} {
		if _, msg := f.Get(); msg != "hi" {
			t.Errorf("Get() = %q, want hi", msg)
		}
	}
}

func TestFlashTakeClears(t *testing.T) {
	f := NewFlash(time.Minute)
	f.Notify(Info, "New message from Ana")

	kind, msg := f.Take()
	if kind != Info || msg != "New message from Ana" {
		t.Errorf("Take() = %q %q, want info toast", kind, msg)
	}
	if _, msg := f.Take(); msg != "" {
		t.Errorf("second Take() = %q, want empty", msg)
	}
	if _, msg := f.Get(); msg != "" {
		t.Errorf("Get() after Take = %q, want empty", msg)
	}
}
