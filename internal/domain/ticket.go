package domain

import (
	"errors"
	"fmt"
	"time"
)

// TicketCount is fixed for the raffle: numbers "000" through "299".
const TicketCount = 300

type TicketStatus string

const (
	StatusAvailable TicketStatus = "AVAILABLE"
	StatusReserved  TicketStatus = "RESERVED"
	StatusPaid      TicketStatus = "PAID"
	// StatusUnavailable is only ever set by a manual operator action,
	// never by checkout or the expiry sweep.
	StatusUnavailable TicketStatus = "UNAVAILABLE"
)

func (s TicketStatus) Valid() bool {
	switch s {
	case StatusAvailable, StatusReserved, StatusPaid, StatusUnavailable:
		return true
	}
	return false
}

var (
	ErrTicketNotAvailable = errors.New("ticket is not available")
	ErrTicketNotReserved  = errors.New("ticket is not reserved")
)

type BuyerInfo struct {
	Name       string `json:"name"`
	WhatsApp   string `json:"whatsapp"`
	CPF        string `json:"cpf,omitempty"`
	ReceiptURL string `json:"receipt_url,omitempty"`
}

type Ticket struct {
	Number     string       `json:"number"`
	Status     TicketStatus `json:"status"`
	ReservedAt *time.Time   `json:"reserved_at,omitempty"`
	Buyer      *BuyerInfo   `json:"buyer,omitempty"`
}

// Reserve moves an available ticket into the reserved state. Any other
// starting state is rejected so checkout can never steal a ticket that
// another buyer already holds.
func (t *Ticket) Reserve(buyer BuyerInfo, at time.Time) error {
	if t.Status != StatusAvailable {
		return fmt.Errorf("ticket %v -> %w", t.Number, ErrTicketNotAvailable)
	}

	t.Status = StatusReserved
	t.ReservedAt = &at
	t.Buyer = &buyer

	return nil
}

// MarkPaid confirms payment for a reserved ticket. The buyer is retained
// and the reservation timestamp is cleared so the ticket can never be
// demoted again by the expiry sweep.
func (t *Ticket) MarkPaid() error {
	if t.Status != StatusReserved {
		return fmt.Errorf("ticket %v -> %w", t.Number, ErrTicketNotReserved)
	}

	t.Status = StatusPaid
	t.ReservedAt = nil

	return nil
}

// Release returns a reserved ticket to the pool, dropping buyer and
// reservation timestamp. Used by the expiry sweep and by manual admin
// release.
func (t *Ticket) Release() error {
	if t.Status != StatusReserved {
		return fmt.Errorf("ticket %v -> %w", t.Number, ErrTicketNotReserved)
	}

	t.Status = StatusAvailable
	t.ReservedAt = nil
	t.Buyer = nil

	return nil
}

// MarkUnavailable pulls an available ticket out of sale. Operator action only.
func (t *Ticket) MarkUnavailable() error {
	if t.Status != StatusAvailable {
		return fmt.Errorf("ticket %v -> %w", t.Number, ErrTicketNotAvailable)
	}

	t.Status = StatusUnavailable

	return nil
}

// NewTicketSet builds the initial pool: TicketCount tickets, numbers
// zero-padded to three digits, all available.
func NewTicketSet() []Ticket {
	tickets := make([]Ticket, TicketCount)
	for i := range tickets {
		tickets[i] = Ticket{
			Number: fmt.Sprintf("%03d", i),
			Status: StatusAvailable,
		}
	}

	return tickets
}

// SweepExpired demotes every reservation older than ttl back to available,
// clearing buyer and timestamp. It returns the number of tickets demoted.
// Running it twice over the same collection is a no-op the second time.
func SweepExpired(tickets []Ticket, now time.Time, ttl time.Duration) int {
	expired := 0
	for i := range tickets {
		t := &tickets[i]
		if t.Status != StatusReserved || t.ReservedAt == nil {
			continue
		}
		if now.Sub(*t.ReservedAt) > ttl {
			t.Status = StatusAvailable
			t.ReservedAt = nil
			t.Buyer = nil
			expired++
		}
	}

	return expired
}

type TicketStats struct {
	Available   int `json:"available"`
	Reserved    int `json:"reserved"`
	Paid        int `json:"paid"`
	Unavailable int `json:"unavailable"`
}

func CountByStatus(tickets []Ticket) TicketStats {
	var stats TicketStats
	for i := range tickets {
		switch tickets[i].Status {
		case StatusAvailable:
			stats.Available++
		case StatusReserved:
			stats.Reserved++
		case StatusPaid:
			stats.Paid++
		case StatusUnavailable:
			stats.Unavailable++
		}
	}

	return stats
}
