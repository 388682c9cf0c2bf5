package points

import (
	"context"
	"fmt"
	"time"

	"github.com/spec-kit/ticket-rewards/internal/domain"
)

// Accounts is the user storage the ledger needs. GetForUpdate must lock the row
// for the rest of the surrounding transaction.
type Accounts interface {
	GetForUpdate(ctx context.Context, id string) (*domain.User, error)
	UpdatePoints(ctx context.Context, id string, points, level int) error
}

// Journal appends point history entries.
type Journal interface {
	Create(ctx context.Context, entry *domain.PointHistory) error
}

// Ledger records point movements. It must run inside the transaction that
// performs the triggering status write.
type Ledger struct {
	now func() time.Time
}

// NewLedger builds a ledger using now as its clock.
func NewLedger(now func() time.Time) *Ledger {
	if now == nil {
		now = time.Now
	}
	return &Ledger{now: now}
}

// Credit adds points to a user, recomputes the level and appends a history entry.
// Non-positive amounts are ignored and return a nil entry.
func (l *Ledger) Credit(ctx context.Context, accounts Accounts, journal Journal, userID string, ticketID *string, amount int, description string) (*domain.PointHistory, *domain.User, error) {
	if amount <= 0 {
		return nil, nil, nil
	}
	user, err := accounts.GetForUpdate(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("lock user %s: %w", userID, err)
	}

	total := user.Points + amount
	level := LevelFor(total)
	if err := accounts.UpdatePoints(ctx, user.ID, total, level); err != nil {
		return nil, nil, fmt.Errorf("update points: %w", err)
	}
	user.Points = total
	user.Level = level

	entry := &domain.PointHistory{
		UserID:      user.ID,
		TicketID:    ticketID,
		Points:      amount,
		Description: description,
		CreatedAt:   l.now(),
	}
	if err := journal.Create(ctx, entry); err != nil {
		return nil, nil, fmt.Errorf("append point history: %w", err)
	}
	return entry, user, nil
}
