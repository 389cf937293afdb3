package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	BatchPreviewed = "previewed"
	BatchCommitted = "committed"
	BatchDiscarded = "discarded"
)

// ImportBatch holds a staged earnings feed between preview and commit.
type ImportBatch struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Network     string         `gorm:"size:32;index" json:"network"`
	Filename    string         `gorm:"size:255" json:"filename"`
	Status      string         `gorm:"size:16;index" json:"status"`
	RowCount    int            `json:"row_count"`
	Rows        datatypes.JSON `json:"rows"`
	Summary     datatypes.JSON `json:"summary"`
	CreatedAt   time.Time      `json:"created_at"`
	CommittedAt *time.Time     `json:"committed_at,omitempty"`
}
