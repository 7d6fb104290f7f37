// Package notifier is the post-checkout notification sink. A sink receives
// the buyer and the freshly reserved numbers after the reservation has
// already been persisted; a sink failure is its own failure domain and must
// never roll back or block the committed reservation.
package notifier

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/rifahub/raffle-api/internal/domain"
)

type Notifier interface {
	NotifyReservation(ctx context.Context, buyer domain.BuyerInfo, numbers []string) error
}

// LogNotifier is the swap-in default when no external channel is configured.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) NotifyReservation(_ context.Context, buyer domain.BuyerInfo, numbers []string) error {
	zap.L().Info("reservation notification",
		zap.String("buyer", buyer.Name),
		zap.String("numbers", strings.Join(numbers, ", ")),
	)

	return nil
}
