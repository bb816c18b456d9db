// Package notify implements a "notify" subcommand that sends a test
// message through the configured notification channels, adapted from
// the teacher's ad hoc notification-testing command.
package notify

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chunkcast/chunkcast/internal/config"
	"github.com/chunkcast/chunkcast/internal/notify"
)

// Command returns a cobra command that sends a test notification
// through every configured shoutrrr service URL.
func Command(settings *config.Settings) *cobra.Command {
	var subject, message string

	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Send a test notification through the configured channels",
		Long: `Send a test notification through the channels configured under notify.urls.

Examples:
  chunkcast notify --subject="Test" --message="Hello from chunkcast"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			notifier := notify.FromSettings(settings)
			if notifier == nil {
				return fmt.Errorf("notifications are disabled (set notify.enabled and notify.urls)")
			}

			sess := config.NewContext(settings)
			if err := notifier.Notify(sess, subject, message); err != nil {
				return fmt.Errorf("send test notification: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "test notification sent")
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "chunkcast test notification", "Notification subject")
	cmd.Flags().StringVar(&message, "message", "This is a test notification from chunkcast", "Notification message")

	return cmd
}
