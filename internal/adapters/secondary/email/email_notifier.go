package email

import (
	"context"
	"log/slog"
	"sync"

	"github.com/lorrc/support-agents-backend/internal/core/ports"
)

// MockSMTPNotifier is a secondary adapter that mocks sending customer
// emails. It implements the ports.Notifier interface.
type MockSMTPNotifier struct {
	logger *slog.Logger
	wg     sync.WaitGroup
}

var _ ports.Notifier = (*MockSMTPNotifier)(nil)

// NewMockSMTPNotifier creates a new mock notifier.
func NewMockSMTPNotifier(logger *slog.Logger) *MockSMTPNotifier {
	return &MockSMTPNotifier{
		logger: logger.With("component", "email_notifier"),
	}
}

// Notify logs the notification instead of sending an email. Delivery runs in
// its own goroutine so the caller is never blocked on the mail path.
func (n *MockSMTPNotifier) Notify(ctx context.Context, params ports.NotificationParams) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.logger.Info("mock email sent",
			"to_email", params.RecipientEmail,
			"subject", params.Subject,
			"ticket_number", params.TicketNumber,
			"body_chars", len(params.Message),
		)
	}()
}

// Shutdown waits for in-flight notifications to finish.
func (n *MockSMTPNotifier) Shutdown() {
	n.wg.Wait()
}
