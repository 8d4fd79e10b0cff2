package bus

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"relaybot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func TestPublishSubscribe(t *testing.T) {
	b := New(10, testLogger())
	defer b.Close()

	b.Publish(domain.InboundMessage{Channel: "discord", SenderID: "u1", Content: "hello"})

	select {
	case msg := <-b.Subscribe():
		if msg.Content != "hello" {
			t.Errorf("expected hello, got %q", msg.Content)
		}
		if msg.Channel != "discord" {
			t.Errorf("expected discord, got %q", msg.Channel)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestPublishAfterClose(t *testing.T) {
	b := New(10, testLogger())
	b.Close()

	// Must not panic on a closed bus.
	b.Publish(domain.InboundMessage{Channel: "discord", Content: "late"})
}

func TestCloseTwice(t *testing.T) {
	b := New(10, testLogger())
	b.Close()
	b.Close()
}

func TestSubscribeClosedChannel(t *testing.T) {
	b := New(10, testLogger())
	b.Close()

	_, ok := <-b.Subscribe()
	if ok {
		t.Error("expected closed channel")
	}
}
