package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"rewmo/metrics"
	"rewmo/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var payoutMethods = map[string]bool{
	models.PayoutPaypal:       true,
	models.PayoutBankTransfer: true,
	models.PayoutGiftCard:     true,
	models.PayoutCheck:        true,
	models.PayoutOther:        true,
}

type PayoutInput struct {
	MemberID  string
	Amount    int64
	Method    string
	Reference string
	Notes     string
}

type PayoutProcessor struct {
	db      *gorm.DB
	metrics *metrics.Ledger
	now     func() time.Time
}

func NewPayoutProcessor(db *gorm.DB, m *metrics.Ledger) *PayoutProcessor {
	return &PayoutProcessor{db: db, metrics: m, now: func() time.Time { return time.Now().UTC() }}
}

// Payout turns approved commissions into a payout. Commissions are consumed
// whole, oldest first, skipping any whose share no longer fits the remaining
// amount. The member row lock serializes payouts per member; everything
// happens in one transaction.
func (p *PayoutProcessor) Payout(ctx context.Context, in PayoutInput) (*models.Payout, error) {
	memberID := strings.TrimSpace(in.MemberID)
	method := strings.ToLower(strings.TrimSpace(in.Method))
	if in.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if !payoutMethods[method] {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPayoutMethod, in.Method)
	}

	var payout *models.Payout
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var member models.Member
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", memberID).First(&member).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s", ErrMemberNotFound, memberID)
			}
			return err
		}

		var approved []models.Commission
		if err := tx.Where("member_id = ? AND status = ?", memberID, models.CommissionApproved).
			Order("created_at ASC").Order("id ASC").
			Find(&approved).Error; err != nil {
			return err
		}

		var available int64
		for _, c := range approved {
			available += c.MemberShare
		}
		if in.Amount > available {
			return fmt.Errorf("%w: requested %d, approved %d", ErrInsufficientApprovedBalance, in.Amount, available)
		}

		remaining := in.Amount
		var consumed []*models.Commission
		for i := range approved {
			if approved[i].MemberShare <= remaining {
				consumed = append(consumed, &approved[i])
				remaining -= approved[i].MemberShare
			}
		}
		if len(consumed) == 0 {
			return fmt.Errorf("%w: requested %d", ErrNoCommissionFits, in.Amount)
		}

		now := p.now()
		payout = &models.Payout{
			ID:         uuid.New(),
			MemberID:   memberID,
			Amount:     in.Amount,
			PaidAmount: in.Amount - remaining,
			Method:     method,
			Reference:  optional(in.Reference),
			Notes:      optional(in.Notes),
			CreatedAt:  now,
		}
		if err := tx.Create(payout).Error; err != nil {
			return err
		}

		for _, c := range consumed {
			if err := markPaidTx(tx, c, &payout.ID, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		p.metrics.Payouts.WithLabelValues(payoutResult(err)).Inc()
		return nil, err
	}

	p.metrics.Payouts.WithLabelValues("ok").Inc()
	p.metrics.PayoutAmount.Add(float64(payout.PaidAmount))
	return payout, nil
}

func (p *PayoutProcessor) History(ctx context.Context, memberID string) ([]models.Payout, error) {
	var out []models.Payout
	if err := p.db.WithContext(ctx).
		Where("member_id = ?", strings.TrimSpace(memberID)).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func payoutResult(err error) string {
	switch {
	case errors.Is(err, ErrInsufficientApprovedBalance):
		return "insufficient"
	case errors.Is(err, ErrNoCommissionFits):
		return "no_fit"
	case errors.Is(err, ErrMemberNotFound):
		return "member_not_found"
	default:
		return "error"
	}
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
