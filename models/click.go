package models

import "time"

// Click is written once per outbound shopping redirect and never updated.
type Click struct {
	ID         uint      `gorm:"primaryKey" json:"-"`
	SubID      string    `gorm:"size:64;uniqueIndex;not null" json:"sub_id"`
	MemberID   string    `gorm:"size:128;index;not null" json:"member_id"`
	RetailerID string    `gorm:"size:64;index" json:"retailer_id"`
	Network    string    `gorm:"size:32;index" json:"network"`
	ClickedAt  time.Time `gorm:"index;not null" json:"clicked_at"`
	UserAgent  *string   `gorm:"size:512" json:"user_agent,omitempty"`
	IPHash     *string   `gorm:"size:64" json:"ip_hash,omitempty"`
}
