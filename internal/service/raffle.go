package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rifahub/raffle-api/internal/domain"
	"github.com/rifahub/raffle-api/internal/notifier"
	"github.com/rifahub/raffle-api/internal/repository"
)

var (
	ErrEmptySelection    = errors.New("no numbers selected")
	ErrNoNumbers         = errors.New("no ticket numbers given")
	ErrTicketNotFound    = errors.New("ticket not found")
	ErrTicketUnavailable = domain.ErrTicketNotAvailable
	ErrTicketNotReserved = domain.ErrTicketNotReserved
	ErrStoreConflict     = repository.ErrSnapshotConflict
)

type TicketRepository interface {
	Load(ctx context.Context) ([]domain.Ticket, int64, error)
	Save(ctx context.Context, tickets []domain.Ticket, expectedVersion int64) (int64, error)
}

// ReservationLinker is implemented by sinks that can hand the client a
// deep link to follow after checkout.
type ReservationLinker interface {
	Link(buyer domain.BuyerInfo, numbers []string) string
}

// RaffleService owns the ticket lifecycle. Every operation is a serialized
// read-modify-write over the full collection: load, sweep expired
// reservations, mutate, save wholesale.
type RaffleService struct {
	repo       TicketRepository
	selections *SelectionTracker
	notifier   notifier.Notifier
	info       domain.RaffleInfo
	ttl        time.Duration

	mu  sync.Mutex
	now func() time.Time
}

func NewRaffleService(repo TicketRepository, selections *SelectionTracker, ntf notifier.Notifier, info domain.RaffleInfo, ttl time.Duration) *RaffleService {
	return &RaffleService{
		repo:       repo,
		selections: selections,
		notifier:   ntf,
		info:       info,
		ttl:        ttl,
		now:        time.Now,
	}
}

func (s *RaffleService) Raffle() domain.RaffleInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.info
}

// SetRaffle swaps the static raffle info, used by config hot-reload.
func (s *RaffleService) SetRaffle(info domain.RaffleInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.info = info
}

func (s *RaffleService) ListTickets(ctx context.Context) ([]domain.Ticket, domain.TicketStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tickets, _, err := s.loadSwept(ctx)
	if err != nil {
		return nil, domain.TicketStats{}, err
	}

	return tickets, domain.CountByStatus(tickets), nil
}

// ToggleSelection flips number in the session's selection, provided the
// ticket is currently available. Toggling a non-available number is silently
// ignored; it never mutates ticket state.
func (s *RaffleService) ToggleSelection(ctx context.Context, sessionID, number string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tickets, _, err := s.loadSwept(ctx)
	if err != nil {
		return nil, err
	}

	ticket := findTicket(tickets, number)
	if ticket == nil {
		return nil, fmt.Errorf("number %v -> %w", number, ErrTicketNotFound)
	}
	if ticket.Status != domain.StatusAvailable {
		return s.selections.Numbers(sessionID), nil
	}

	return s.selections.Toggle(sessionID, number), nil
}

func (s *RaffleService) Selection(sessionID string) []string {
	return s.selections.Numbers(sessionID)
}

func (s *RaffleService) ClearSelection(sessionID string) {
	s.selections.Clear(sessionID)
}

// Checkout reserves every number the session has selected. All reserved
// tickets share one timestamp, the collection is persisted wholesale and the
// selection is cleared. The notification sink is invoked after the save has
// committed; its failure is logged and never undoes the reservation.
func (s *RaffleService) Checkout(ctx context.Context, sessionID string, buyer domain.BuyerInfo) (domain.ReservationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	numbers := s.selections.Numbers(sessionID)
	if len(numbers) == 0 {
		return domain.ReservationResult{}, ErrEmptySelection
	}

	tickets, version, err := s.loadSwept(ctx)
	if err != nil {
		return domain.ReservationResult{}, err
	}

	// The tracker only admits available tickets, but the selection may have
	// gone stale since (another session reserving around the same time), so
	// every number is re-checked at submission time.
	now := s.now()
	for _, number := range numbers {
		ticket := findTicket(tickets, number)
		if ticket == nil {
			return domain.ReservationResult{}, fmt.Errorf("number %v -> %w", number, ErrTicketNotFound)
		}
		if err = ticket.Reserve(buyer, now); err != nil {
			return domain.ReservationResult{}, fmt.Errorf("ticket.Reserve -> %w", err)
		}
	}

	if _, err = s.repo.Save(ctx, tickets, version); err != nil {
		if errors.Is(err, repository.ErrSnapshotConflict) {
			return domain.ReservationResult{}, ErrStoreConflict
		}

		return domain.ReservationResult{}, fmt.Errorf("s.repo.Save -> %w", err)
	}

	s.selections.Clear(sessionID)

	result := domain.ReservationResult{
		Numbers:    numbers,
		ReservedAt: now,
		ExpiresAt:  now.Add(s.ttl),
		TotalPrice: s.info.Price * float64(len(numbers)),
		Notice: fmt.Sprintf(
			"Seu número foi RESERVADO por %v horas. Realize o pagamento via PIX para garantir participação.",
			int(s.ttl.Hours()),
		),
	}
	if linker, ok := s.notifier.(ReservationLinker); ok {
		result.WhatsAppURL = linker.Link(buyer, numbers)
	}

	s.dispatchNotification(buyer, numbers)

	return result, nil
}

// ConfirmPayment marks every named reserved ticket as paid, keeping the
// buyer. Numbers that are not currently reserved are rejected outright so an
// admin typo can never overwrite a paid or free ticket.
func (s *RaffleService) ConfirmPayment(ctx context.Context, numbers []string) error {
	return s.mutateReserved(ctx, numbers, func(t *domain.Ticket) error {
		return t.MarkPaid()
	})
}

// ReleaseTickets is the manual admin path returning reserved tickets to the
// pool without waiting for the expiry sweep.
func (s *RaffleService) ReleaseTickets(ctx context.Context, numbers []string) error {
	return s.mutateReserved(ctx, numbers, func(t *domain.Ticket) error {
		return t.Release()
	})
}

// MarkUnavailable pulls available tickets out of sale. This is the only
// path that produces the UNAVAILABLE status.
func (s *RaffleService) MarkUnavailable(ctx context.Context, numbers []string) error {
	return s.mutateReserved(ctx, numbers, func(t *domain.Ticket) error {
		return t.MarkUnavailable()
	})
}

func (s *RaffleService) mutateReserved(ctx context.Context, numbers []string, mutate func(*domain.Ticket) error) error {
	if len(numbers) == 0 {
		return ErrNoNumbers
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tickets, version, err := s.loadSwept(ctx)
	if err != nil {
		return err
	}

	for _, number := range numbers {
		ticket := findTicket(tickets, number)
		if ticket == nil {
			return fmt.Errorf("number %v -> %w", number, ErrTicketNotFound)
		}
		if err = mutate(ticket); err != nil {
			return err
		}
	}

	if _, err = s.repo.Save(ctx, tickets, version); err != nil {
		if errors.Is(err, repository.ErrSnapshotConflict) {
			return ErrStoreConflict
		}

		return fmt.Errorf("s.repo.Save -> %w", err)
	}

	return nil
}

// loadSwept loads the collection and runs the expiry sweep before anything
// else observes it. Demotions are persisted immediately; when a concurrent
// writer wins that save, the swept view is still served and the demotions
// are left for the next successful mutation.
func (s *RaffleService) loadSwept(ctx context.Context) ([]domain.Ticket, int64, error) {
	tickets, version, err := s.repo.Load(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("s.repo.Load -> %w", err)
	}

	if expired := domain.SweepExpired(tickets, s.now(), s.ttl); expired > 0 {
		saved, err := s.repo.Save(ctx, tickets, version)
		if err != nil {
			if errors.Is(err, repository.ErrSnapshotConflict) {
				zap.L().Warn("expiry sweep lost the save race", zap.Int("expired", expired))
				return tickets, version, nil
			}

			return nil, 0, fmt.Errorf("s.repo.Save -> %w", err)
		}

		version = saved
		zap.L().Info("expired reservations released", zap.Int("count", expired))
	}

	return tickets, version, nil
}

func (s *RaffleService) dispatchNotification(buyer domain.BuyerInfo, numbers []string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.notifier.NotifyReservation(ctx, buyer, numbers); err != nil {
			zap.L().Error("reservation notification failed",
				zap.String("buyer", buyer.Name),
				zap.Error(err),
			)
		}
	}()
}

func findTicket(tickets []domain.Ticket, number string) *domain.Ticket {
	for i := range tickets {
		if tickets[i].Number == number {
			return &tickets[i]
		}
	}

	return nil
}
