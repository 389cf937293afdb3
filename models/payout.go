package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	PayoutPaypal       = "paypal"
	PayoutBankTransfer = "bank_transfer"
	PayoutGiftCard     = "gift_card"
	PayoutCheck        = "check"
	PayoutOther        = "other"
)

// Payout records one operator payout. Amount is what was requested, PaidAmount
// is the sum of the commission shares it consumed.
type Payout struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	MemberID   string    `gorm:"size:128;index;not null" json:"member_id"`
	Amount     int64     `gorm:"not null" json:"amount"`
	PaidAmount int64     `gorm:"not null" json:"paid_amount"`
	Method     string    `gorm:"size:32;not null" json:"method"`
	Reference  *string   `gorm:"size:128" json:"reference,omitempty"`
	Notes      *string   `gorm:"size:255" json:"notes,omitempty"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}
