package notify

import (
	"testing"

	"github.com/chunkcast/chunkcast/internal/config"
)

func TestNotify_NoURLsIsNoop(t *testing.T) {
	n := New(nil)
	if err := n.Notify(&config.Context{}, "subject", "message"); err != nil {
		t.Fatalf("expected no-op notifier to return nil, got %v", err)
	}
}

func TestNotify_NilNotifierIsNoop(t *testing.T) {
	var n *ShoutrrrNotifier
	if err := n.Notify(&config.Context{}, "subject", "message"); err != nil {
		t.Fatalf("expected nil notifier to return nil, got %v", err)
	}
}

func TestNotify_InvalidURLReturnsWrappedError(t *testing.T) {
	n := New([]string{"not-a-valid-service-url"})
	if err := n.Notify(&config.Context{}, "subject", "message"); err == nil {
		t.Fatal("expected an error for an invalid service URL")
	}
}

func TestFromSettings_DisabledReturnsNil(t *testing.T) {
	s := &config.Settings{}
	s.Notify.Enabled = false
	if n := FromSettings(s); n != nil {
		t.Fatal("expected nil notifier when Notify.Enabled is false")
	}
}

func TestFromSettings_EnabledWithURLs(t *testing.T) {
	s := &config.Settings{}
	s.Notify.Enabled = true
	s.Notify.URLs = []string{"generic+https://example.com/webhook"}
	if n := FromSettings(s); n == nil {
		t.Fatal("expected a non-nil notifier")
	}
}
