package models

import (
	"time"

	"github.com/google/uuid"
)

type CommissionStatus string

const (
	CommissionPending  CommissionStatus = "pending"
	CommissionApproved CommissionStatus = "approved"
	CommissionPaid     CommissionStatus = "paid"
)

const (
	SourceImport   = "import"
	SourcePostback = "postback"
	SourceManual   = "manual"
)

// Commission is one attributed (or house) purchase reported by a network.
// Amounts are minor currency units. MemberID is nil for house revenue.
type Commission struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	MemberID *string   `gorm:"size:128;index" json:"member_id"`
	Network  string    `gorm:"size:32;not null;uniqueIndex:idx_commission_network_order" json:"network"`
	OrderID  string    `gorm:"size:128;not null;uniqueIndex:idx_commission_network_order" json:"order_id"`
	SubID    string    `gorm:"size:64;index" json:"sub_id"`

	GrossAmount int64 `gorm:"not null" json:"gross_amount"`
	MemberShare int64 `gorm:"not null" json:"member_share"`
	RewmoShare  int64 `gorm:"not null" json:"rewmo_share"`

	Status CommissionStatus `gorm:"size:16;index;not null" json:"status"`
	Source string           `gorm:"size:16" json:"source"`

	OrderDate     *time.Time `json:"order_date,omitempty"`
	CreatedAt     time.Time  `gorm:"index" json:"created_at"`
	ApprovedAt    *time.Time `json:"approved_at,omitempty"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
	PayoutID      *uuid.UUID `gorm:"type:uuid;index" json:"payout_id,omitempty"`
	ImportBatchID *uuid.UUID `gorm:"type:uuid;index" json:"import_batch_id,omitempty"`
}
