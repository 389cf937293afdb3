package models

import "time"

// Member mirrors the account owned by the external auth system. The balance
// columns are a cache over the commissions table and can be rebuilt from it.
type Member struct {
	ID        string `gorm:"primaryKey;size:128" json:"id"`
	Email     string `gorm:"size:255" json:"email"`
	IsActive  bool   `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time
	UpdatedAt time.Time

	// PendingBalance holds shares that are owed but not yet paid, so it
	// covers both pending and approved commissions.
	PendingBalance int64 `json:"pending_balance"`
	PaidBalance    int64 `json:"paid_balance"`
	TotalEarnings  int64 `json:"total_earnings"`

	Commissions []Commission `gorm:"foreignKey:MemberID"`
	Payouts     []Payout     `gorm:"foreignKey:MemberID"`
}
