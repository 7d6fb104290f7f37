package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rifahub/raffle-api/internal/domain"
	"github.com/rifahub/raffle-api/internal/repository/dao"
)

// snapshotKey is the fixed storage key the whole ticket collection lives
// under, carried over from the original persisted layout.
const snapshotKey = "raffle_tickets"

// schemaVersion guards the persisted payload shape. The original layout had
// no version field; loads reject snapshots written by a future schema.
const schemaVersion = 1

var (
	ErrSnapshotConflict = dao.ErrSnapshotConflict
	ErrCorruptSnapshot  = errors.New("persisted ticket snapshot is corrupt")
	ErrSchemaUnknown    = errors.New("persisted snapshot has an unknown schema version")
)

type SnapshotDAO interface {
	Get(ctx context.Context, key string) (dao.Snapshot, error)
	Insert(ctx context.Context, snap dao.Snapshot) (dao.Snapshot, error)
	CompareAndSwap(ctx context.Context, snap dao.Snapshot, expectedVersion int64) (dao.Snapshot, error)
}

// TicketRepository is the authoritative ticket store. Load always yields the
// full collection; Save always overwrites it wholesale.
type TicketRepository struct {
	dao SnapshotDAO
}

func NewTicketRepository(dao SnapshotDAO) *TicketRepository {
	return &TicketRepository{
		dao: dao,
	}
}

// ticketRecord is the persisted wire shape: timestamps as epoch milliseconds,
// optional fields omitted entirely.
type ticketRecord struct {
	Number     string       `json:"number"`
	Status     string       `json:"status"`
	ReservedAt *int64       `json:"reservedAt,omitempty"`
	Buyer      *buyerRecord `json:"buyer,omitempty"`
}

type buyerRecord struct {
	Name       string `json:"name"`
	WhatsApp   string `json:"whatsapp"`
	CPF        string `json:"cpf,omitempty"`
	ReceiptURL string `json:"receiptUrl,omitempty"`
}

// Load reads the persisted collection. When nothing has ever been saved it
// synthesizes the initial all-available pool and persists it, so every caller
// observes the same first state. The returned version is the token Save
// expects back.
func (r *TicketRepository) Load(ctx context.Context) ([]domain.Ticket, int64, error) {
	snap, err := r.dao.Get(ctx, snapshotKey)
	if err != nil {
		if errors.Is(err, dao.ErrSnapshotNotFound) {
			return r.seed(ctx)
		}

		return nil, 0, fmt.Errorf("r.dao.Get -> %w", err)
	}

	if snap.SchemaVersion != schemaVersion {
		return nil, 0, fmt.Errorf("schema version %v -> %w", snap.SchemaVersion, ErrSchemaUnknown)
	}

	var records []ticketRecord
	if err = json.Unmarshal(snap.Payload, &records); err != nil {
		return nil, 0, fmt.Errorf("json.Unmarshal -> %w", err)
	}

	tickets, err := recordsToDomain(records)
	if err != nil {
		return nil, 0, err
	}

	return tickets, snap.Version, nil
}

// Save overwrites the whole collection, all-or-nothing. Saving an empty
// collection is skipped so a caller racing the first load can never clobber
// persisted state with nothing. expectedVersion must be the version returned
// by the Load this mutation was derived from; a stale one yields
// ErrSnapshotConflict.
func (r *TicketRepository) Save(ctx context.Context, tickets []domain.Ticket, expectedVersion int64) (int64, error) {
	if len(tickets) == 0 {
		return expectedVersion, nil
	}

	payload, err := json.Marshal(domainToRecords(tickets))
	if err != nil {
		return 0, fmt.Errorf("json.Marshal -> %w", err)
	}

	saved, err := r.dao.CompareAndSwap(ctx, dao.Snapshot{
		Key:           snapshotKey,
		SchemaVersion: schemaVersion,
		Payload:       payload,
	}, expectedVersion)
	if err != nil {
		if errors.Is(err, dao.ErrSnapshotConflict) {
			return 0, ErrSnapshotConflict
		}

		return 0, fmt.Errorf("r.dao.CompareAndSwap -> %w", err)
	}

	return saved.Version, nil
}

func (r *TicketRepository) seed(ctx context.Context) ([]domain.Ticket, int64, error) {
	tickets := domain.NewTicketSet()

	payload, err := json.Marshal(domainToRecords(tickets))
	if err != nil {
		return nil, 0, fmt.Errorf("json.Marshal -> %w", err)
	}

	snap, err := r.dao.Insert(ctx, dao.Snapshot{
		Key:           snapshotKey,
		SchemaVersion: schemaVersion,
		Payload:       payload,
	})
	if err != nil {
		if errors.Is(err, dao.ErrSnapshotConflict) {
			// Another session seeded first; their pool is as good as ours.
			return r.Load(ctx)
		}

		return nil, 0, fmt.Errorf("r.dao.Insert -> %w", err)
	}

	return tickets, snap.Version, nil
}

func domainToRecords(tickets []domain.Ticket) []ticketRecord {
	records := make([]ticketRecord, len(tickets))
	for i, t := range tickets {
		rec := ticketRecord{
			Number: t.Number,
			Status: string(t.Status),
		}
		if t.ReservedAt != nil {
			ms := t.ReservedAt.UnixMilli()
			rec.ReservedAt = &ms
		}
		if t.Buyer != nil {
			rec.Buyer = &buyerRecord{
				Name:       t.Buyer.Name,
				WhatsApp:   t.Buyer.WhatsApp,
				CPF:        t.Buyer.CPF,
				ReceiptURL: t.Buyer.ReceiptURL,
			}
		}
		records[i] = rec
	}

	return records
}

// recordsToDomain validates and repairs the persisted records instead of
// trusting them blindly. Field-level damage (a reservation missing its buyer
// or timestamp, a paid ticket missing its buyer, stray fields on a free
// ticket) is repaired by demoting or stripping. Set-level damage (wrong
// count, duplicate, malformed or out-of-range numbers, unknown statuses)
// cannot be
// repaired and fails the load.
func recordsToDomain(records []ticketRecord) ([]domain.Ticket, error) {
	if len(records) != domain.TicketCount {
		return nil, fmt.Errorf("expected %v tickets, found %v -> %w", domain.TicketCount, len(records), ErrCorruptSnapshot)
	}

	seen := make(map[string]bool, len(records))
	tickets := make([]domain.Ticket, len(records))

	for i, rec := range records {
		n, err := strconv.Atoi(rec.Number)
		if err != nil || n < 0 || n >= domain.TicketCount || fmt.Sprintf("%03d", n) != rec.Number || seen[rec.Number] {
			return nil, fmt.Errorf("ticket number %q -> %w", rec.Number, ErrCorruptSnapshot)
		}
		seen[rec.Number] = true

		status := domain.TicketStatus(rec.Status)
		if !status.Valid() {
			return nil, fmt.Errorf("ticket %v status %q -> %w", rec.Number, rec.Status, ErrCorruptSnapshot)
		}

		t := domain.Ticket{
			Number: rec.Number,
			Status: status,
		}
		if rec.ReservedAt != nil {
			at := time.UnixMilli(*rec.ReservedAt)
			t.ReservedAt = &at
		}
		if rec.Buyer != nil {
			t.Buyer = &domain.BuyerInfo{
				Name:       rec.Buyer.Name,
				WhatsApp:   rec.Buyer.WhatsApp,
				CPF:        rec.Buyer.CPF,
				ReceiptURL: rec.Buyer.ReceiptURL,
			}
		}

		tickets[i] = repair(t)
	}

	return tickets, nil
}

func repair(t domain.Ticket) domain.Ticket {
	switch t.Status {
	case domain.StatusReserved:
		if t.ReservedAt == nil || t.Buyer == nil {
			t.Status = domain.StatusAvailable
			t.ReservedAt = nil
			t.Buyer = nil
		}
	case domain.StatusPaid:
		if t.Buyer == nil {
			t.Status = domain.StatusAvailable
			t.ReservedAt = nil
		}
	default:
		t.ReservedAt = nil
		t.Buyer = nil
	}

	return t
}
