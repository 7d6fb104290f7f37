package notifier

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/rifahub/raffle-api/internal/domain"
)

// WhatsAppNotifier builds the pre-filled wa.me message the buyer uses to
// send their payment receipt. The server cannot open the chat itself, so
// dispatch means logging the link; the checkout response carries the same
// link for the client to follow.
type WhatsAppNotifier struct {
	destination string // destination phone in international format, digits only
}

func NewWhatsAppNotifier(destination string) *WhatsAppNotifier {
	return &WhatsAppNotifier{
		destination: destination,
	}
}

// Link returns the wa.me deep link with the receipt message pre-filled.
func (n *WhatsAppNotifier) Link(buyer domain.BuyerInfo, numbers []string) string {
	msg := fmt.Sprintf(
		"Olá, reservei o(s) número(s) %v para o sorteio. Segue o comprovante do pagamento.\n\nNome: %v",
		strings.Join(numbers, ", "),
		buyer.Name,
	)

	return fmt.Sprintf("https://wa.me/%v?text=%v", n.destination, url.QueryEscape(msg))
}

func (n *WhatsAppNotifier) NotifyReservation(_ context.Context, buyer domain.BuyerInfo, numbers []string) error {
	zap.L().Info("whatsapp reservation link built",
		zap.String("buyer", buyer.Name),
		zap.String("numbers", strings.Join(numbers, ", ")),
		zap.String("link", n.Link(buyer, numbers)),
	)

	return nil
}
