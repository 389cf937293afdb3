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

const recentCommissionLimit = 10

type RecordInput struct {
	MemberID    *string
	Network     string
	OrderID     string
	SubID       string
	GrossAmount int64
	OrderDate   *time.Time
	Source      string
	BatchID     *uuid.UUID
}

type TransitionResult struct {
	ID     uuid.UUID               `json:"id"`
	OK     bool                    `json:"ok"`
	Status models.CommissionStatus `json:"status,omitempty"`
	Error  string                  `json:"error,omitempty"`
}

type MemberBalance struct {
	MemberID          string              `json:"member_id"`
	PendingBalance    int64               `json:"pending_balance"`
	ApprovedBalance   int64               `json:"approved_balance"`
	PaidBalance       int64               `json:"paid_balance"`
	TotalEarnings     int64               `json:"total_earnings"`
	CacheInSync       bool                `json:"cache_in_sync"`
	RecentCommissions []models.Commission `json:"recent_commissions"`
}

type CommissionFilter struct {
	MemberID      string
	Status        models.CommissionStatus
	Network       string
	UnmatchedOnly bool
	Limit         int
	Offset        int
}

// Ledger is the single writer of commissions and of the member balance cache.
type Ledger struct {
	db      *gorm.DB
	metrics *metrics.Ledger
	now     func() time.Time
}

func NewLedger(db *gorm.DB, m *metrics.Ledger) *Ledger {
	return &Ledger{db: db, metrics: m, now: func() time.Time { return time.Now().UTC() }}
}

// SplitShares gives the member the floor of half the gross and the house the
// remainder, so the two always add back up to gross.
func SplitShares(gross int64) (memberShare, rewmoShare int64) {
	memberShare = gross / 2
	if gross < 0 && gross%2 != 0 {
		memberShare--
	}
	return memberShare, gross - memberShare
}

// Record inserts a pending commission and credits the member in the same
// transaction. The insert is conditional on (network, order id) so
// concurrent imports of the same order cannot both succeed.
func (l *Ledger) Record(ctx context.Context, in RecordInput) (*models.Commission, error) {
	network := normalizeNetwork(in.Network)
	orderID := strings.TrimSpace(in.OrderID)
	if network == "" || orderID == "" {
		return nil, ErrInvalidCommission
	}
	if in.GrossAmount <= 0 {
		return nil, ErrInvalidAmount
	}

	memberShare, rewmoShare := SplitShares(in.GrossAmount)
	source := in.Source
	if source == "" {
		source = models.SourceManual
	}

	commission := models.Commission{
		ID:            uuid.New(),
		MemberID:      in.MemberID,
		Network:       network,
		OrderID:       orderID,
		SubID:         strings.TrimSpace(in.SubID),
		GrossAmount:   in.GrossAmount,
		MemberShare:   memberShare,
		RewmoShare:    rewmoShare,
		Status:        models.CommissionPending,
		Source:        source,
		OrderDate:     in.OrderDate,
		CreatedAt:     l.now(),
		ImportBatchID: in.BatchID,
	}

	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if commission.MemberID != nil {
			if err := ensureMember(tx, *commission.MemberID); err != nil {
				return err
			}
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&commission)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrDuplicateOrder
		}
		if commission.MemberID == nil {
			return nil
		}
		return creditPending(tx, *commission.MemberID, memberShare)
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateOrder) {
			l.metrics.Commissions.WithLabelValues(network, "duplicate").Inc()
			return nil, fmt.Errorf("%w: %s/%s", ErrDuplicateOrder, network, orderID)
		}
		l.metrics.Commissions.WithLabelValues(network, "error").Inc()
		return nil, fmt.Errorf("record commission %s/%s: %w", network, orderID, err)
	}

	outcome := "matched"
	if commission.MemberID == nil {
		outcome = "unmatched"
	}
	l.metrics.Commissions.WithLabelValues(network, outcome).Inc()
	return &commission, nil
}

// ensureMember creates the member row on first earning, since members are
// owned by the external auth system. It must run before a commission
// referencing the member is written.
func ensureMember(tx *gorm.DB, memberID string) error {
	return tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Member{ID: memberID, IsActive: true}).Error
}

func creditPending(tx *gorm.DB, memberID string, share int64) error {
	return tx.Model(&models.Member{}).Where("id = ?", memberID).Updates(map[string]any{
		"pending_balance": gorm.Expr("pending_balance + ?", share),
		"total_earnings":  gorm.Expr("total_earnings + ?", share),
	}).Error
}

func loadCommission(tx *gorm.DB, id uuid.UUID) (*models.Commission, error) {
	var c models.Commission
	err := tx.Where("id = ?", id).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrCommissionNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func invalidTransition(c *models.Commission, to models.CommissionStatus) error {
	return fmt.Errorf("%w: %s is %s, cannot move to %s", ErrInvalidTransition, c.ID, c.Status, to)
}

// Approve moves a pending commission to approved. Balances are unchanged:
// both states count as owed, approval only gates payout eligibility.
func (l *Ledger) Approve(ctx context.Context, id uuid.UUID) (*models.Commission, error) {
	var out *models.Commission
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := loadCommission(tx, id)
		if err != nil {
			return err
		}
		if c.Status != models.CommissionPending {
			return invalidTransition(c, models.CommissionApproved)
		}

		now := l.now()
		res := tx.Model(&models.Commission{}).
			Where("id = ? AND status = ?", id, models.CommissionPending).
			Updates(map[string]any{"status": models.CommissionApproved, "approved_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return invalidTransition(c, models.CommissionApproved)
		}

		c.Status = models.CommissionApproved
		c.ApprovedAt = &now
		out = c
		return nil
	})
	l.countTransition(models.CommissionApproved, err)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ApproveMany approves each id independently; one failure does not undo the rest.
func (l *Ledger) ApproveMany(ctx context.Context, ids []uuid.UUID) []TransitionResult {
	results := make([]TransitionResult, 0, len(ids))
	for _, id := range ids {
		c, err := l.Approve(ctx, id)
		if err != nil {
			results = append(results, TransitionResult{ID: id, Error: err.Error()})
			continue
		}
		results = append(results, TransitionResult{ID: id, OK: true, Status: c.Status})
	}
	return results
}

// MarkPaid moves an approved commission to paid outside of a payout.
func (l *Ledger) MarkPaid(ctx context.Context, id uuid.UUID) (*models.Commission, error) {
	var out *models.Commission
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := loadCommission(tx, id)
		if err != nil {
			return err
		}
		if err := markPaidTx(tx, c, nil, l.now()); err != nil {
			return err
		}
		out = c
		return nil
	})
	l.countTransition(models.CommissionPaid, err)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func markPaidTx(tx *gorm.DB, c *models.Commission, payoutID *uuid.UUID, now time.Time) error {
	if c.Status != models.CommissionApproved {
		return invalidTransition(c, models.CommissionPaid)
	}

	updates := map[string]any{"status": models.CommissionPaid, "paid_at": now}
	if payoutID != nil {
		updates["payout_id"] = *payoutID
	}
	res := tx.Model(&models.Commission{}).
		Where("id = ? AND status = ?", c.ID, models.CommissionApproved).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return invalidTransition(c, models.CommissionPaid)
	}

	if c.MemberID != nil {
		if err := tx.Model(&models.Member{}).Where("id = ?", *c.MemberID).Updates(map[string]any{
			"pending_balance": gorm.Expr("pending_balance - ?", c.MemberShare),
			"paid_balance":    gorm.Expr("paid_balance + ?", c.MemberShare),
		}).Error; err != nil {
			return err
		}
	}

	c.Status = models.CommissionPaid
	c.PaidAt = &now
	c.PayoutID = payoutID
	return nil
}

// Assign attributes a pending house-revenue commission to a member.
func (l *Ledger) Assign(ctx context.Context, id uuid.UUID, memberID string) (*models.Commission, error) {
	memberID = strings.TrimSpace(memberID)
	if memberID == "" {
		return nil, ErrMemberNotFound
	}

	var out *models.Commission
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := loadCommission(tx, id)
		if err != nil {
			return err
		}
		if c.MemberID != nil || c.Status != models.CommissionPending {
			return fmt.Errorf("%w: %s is %s and already attributed or not pending", ErrInvalidTransition, c.ID, c.Status)
		}

		if err := ensureMember(tx, memberID); err != nil {
			return err
		}
		res := tx.Model(&models.Commission{}).
			Where("id = ? AND member_id IS NULL AND status = ?", id, models.CommissionPending).
			Update("member_id", memberID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: %s changed concurrently", ErrInvalidTransition, c.ID)
		}
		if err := creditPending(tx, memberID, c.MemberShare); err != nil {
			return err
		}

		c.MemberID = &memberID
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (l *Ledger) countTransition(to models.CommissionStatus, err error) {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrInvalidTransition):
		result = "invalid"
	case errors.Is(err, ErrCommissionNotFound):
		result = "not_found"
	default:
		result = "error"
	}
	l.metrics.Transitions.WithLabelValues(string(to), result).Inc()
}

type statusTotal struct {
	Status models.CommissionStatus
	Total  int64
}

func sumByStatus(tx *gorm.DB, memberID string) (map[models.CommissionStatus]int64, error) {
	var rows []statusTotal
	if err := tx.Model(&models.Commission{}).
		Select("status, COALESCE(SUM(member_share), 0) AS total").
		Where("member_id = ?", memberID).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("sum commissions: %w", err)
	}
	out := make(map[models.CommissionStatus]int64, len(rows))
	for _, r := range rows {
		out[r.Status] = r.Total
	}
	return out, nil
}

// Balance derives every figure from the commission rows. The cached
// counters on the member are only compared, never trusted.
func (l *Ledger) Balance(ctx context.Context, memberID string) (*MemberBalance, error) {
	db := l.db.WithContext(ctx)

	sums, err := sumByStatus(db, memberID)
	if err != nil {
		return nil, err
	}

	bal := &MemberBalance{
		MemberID:        memberID,
		PendingBalance:  sums[models.CommissionPending],
		ApprovedBalance: sums[models.CommissionApproved],
		PaidBalance:     sums[models.CommissionPaid],
	}
	bal.TotalEarnings = bal.PendingBalance + bal.ApprovedBalance + bal.PaidBalance

	var members []models.Member
	if err := db.Where("id = ?", memberID).Limit(1).Find(&members).Error; err != nil {
		return nil, fmt.Errorf("load member: %w", err)
	}
	var cached models.Member
	if len(members) == 1 {
		cached = members[0]
	}
	bal.CacheInSync = cached.PendingBalance == bal.PendingBalance+bal.ApprovedBalance &&
		cached.PaidBalance == bal.PaidBalance &&
		cached.TotalEarnings == bal.TotalEarnings

	if err := db.Where("member_id = ?", memberID).
		Order("created_at DESC").
		Limit(recentCommissionLimit).
		Find(&bal.RecentCommissions).Error; err != nil {
		return nil, fmt.Errorf("recent commissions: %w", err)
	}
	return bal, nil
}

// RebuildBalance rewrites the member's cached counters from the commission log.
func (l *Ledger) RebuildBalance(ctx context.Context, memberID string) (*MemberBalance, error) {
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var member models.Member
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", memberID).First(&member).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s", ErrMemberNotFound, memberID)
			}
			return err
		}

		sums, err := sumByStatus(tx, memberID)
		if err != nil {
			return err
		}
		pending := sums[models.CommissionPending] + sums[models.CommissionApproved]
		paid := sums[models.CommissionPaid]

		return tx.Model(&models.Member{}).Where("id = ?", memberID).Updates(map[string]any{
			"pending_balance": pending,
			"paid_balance":    paid,
			"total_earnings":  pending + paid,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return l.Balance(ctx, memberID)
}

func (l *Ledger) Get(ctx context.Context, id uuid.UUID) (*models.Commission, error) {
	return loadCommission(l.db.WithContext(ctx), id)
}

func (l *Ledger) List(ctx context.Context, f CommissionFilter) ([]models.Commission, int64, error) {
	filter := func(q *gorm.DB) *gorm.DB {
		if f.MemberID != "" {
			q = q.Where("member_id = ?", f.MemberID)
		}
		if f.UnmatchedOnly {
			q = q.Where("member_id IS NULL")
		}
		if f.Status != "" {
			q = q.Where("status = ?", f.Status)
		}
		if f.Network != "" {
			q = q.Where("network = ?", normalizeNetwork(f.Network))
		}
		return q
	}
	db := l.db.WithContext(ctx)

	var total int64
	if err := db.Model(&models.Commission{}).Scopes(filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	var out []models.Commission
	if err := db.Scopes(filter).Order("created_at DESC").Limit(limit).Offset(f.Offset).Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
