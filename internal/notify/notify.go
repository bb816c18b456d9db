// Package notify delivers a notification (the subject line followed by
// the caller's message body) to the channels configured in
// config.Settings.Notify.URLs, reusing the
// teacher's shoutrrr-backed, fan-out-to-many-services push strategy.
package notify

import (
	"fmt"

	"github.com/nicholas-fedor/shoutrrr"
	"github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/chunkcast/chunkcast/internal/apperrors"
	"github.com/chunkcast/chunkcast/internal/config"
	"github.com/chunkcast/chunkcast/internal/logging"
)

// ShoutrrrNotifier sends notifications through one or more shoutrrr
// service URLs (Telegram, Discord, Slack, generic webhook, ...).
type ShoutrrrNotifier struct {
	urls []string
}

// New returns a notifier bound to the given service URLs. An empty list
// is valid: Notify becomes a no-op.
func New(urls []string) *ShoutrrrNotifier {
	return &ShoutrrrNotifier{urls: urls}
}

// FromSettings builds a notifier from the Notify config block, returning
// nil when notifications are disabled.
func FromSettings(s *config.Settings) *ShoutrrrNotifier {
	if !s.Notify.Enabled || len(s.Notify.URLs) == 0 {
		return nil
	}
	return New(s.Notify.URLs)
}

// Notify sends subject and message to every configured service. It
// reports the first delivery error encountered but still attempts every
// URL (a transient failure on one channel shouldn't silence the rest).
func (n *ShoutrrrNotifier) Notify(_ *config.Context, subject, message string) error {
	if n == nil || len(n.urls) == 0 {
		return nil
	}

	sender, err := shoutrrr.CreateSender(n.urls...)
	if err != nil {
		return apperrors.New(fmt.Errorf("notify: create sender: %w", err)).
			Component("notify").
			WithCategory(apperrors.CategoryNotify).
			Build()
	}

	body := fmt.Sprintf("%s\n%s", subject, message)
	errs := sender.Send(body, &types.Params{"title": subject})

	var firstErr error
	for i, sendErr := range errs {
		if sendErr == nil {
			continue
		}
		logging.Error("notification delivery failed", "url_index", i, "error", sendErr)
		if firstErr == nil {
			firstErr = sendErr
		}
	}
	if firstErr != nil {
		return apperrors.New(fmt.Errorf("notify: delivery failed: %w", firstErr)).
			Component("notify").
			WithCategory(apperrors.CategoryNotify).
			Build()
	}
	return nil
}
