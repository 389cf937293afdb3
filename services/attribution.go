package services

import (
	"context"
	"fmt"
	"strings"

	"rewmo/helpers"
	"rewmo/models"

	"gorm.io/gorm"
)

type AttributionMethod string

const (
	AttributedExact  AttributionMethod = "exact"
	AttributedPrefix AttributionMethod = "prefix"
	// Unresolved is a valid outcome: the commission becomes house revenue.
	Unresolved AttributionMethod = "unresolved"
)

type Attribution struct {
	SubID    string            `json:"sub_id"`
	MemberID string            `json:"member_id,omitempty"`
	Method   AttributionMethod `json:"method"`
}

func (a Attribution) Matched() bool {
	return a.Method != Unresolved && a.MemberID != ""
}

// MemberRef returns the member pointer stored on a Commission, nil for house revenue.
func (a Attribution) MemberRef() *string {
	if !a.Matched() {
		return nil
	}
	id := a.MemberID
	return &id
}

type Resolver struct {
	db *gorm.DB
}

func NewResolver(db *gorm.DB) *Resolver {
	return &Resolver{db: db}
}

// Resolve maps a SubID to its member. An exact click match always wins; the
// prefix fallback only succeeds when exactly one known member carries the
// prefix. Only store failures are returned as errors.
func (r *Resolver) Resolve(ctx context.Context, subID string) (Attribution, error) {
	subID = strings.TrimSpace(subID)
	out := Attribution{SubID: subID, Method: Unresolved}
	if subID == "" {
		return out, nil
	}

	db := r.db.WithContext(ctx)

	var clicks []models.Click
	if err := db.Where("sub_id = ?", subID).Limit(1).Find(&clicks).Error; err != nil {
		return out, fmt.Errorf("lookup click: %w", err)
	}
	if len(clicks) == 1 && clicks[0].MemberID != "" {
		out.MemberID = clicks[0].MemberID
		out.Method = AttributedExact
		return out, nil
	}

	prefix, ok := helpers.DecodeSubIDPrefix(subID)
	if !ok {
		return out, nil
	}

	candidates, err := r.membersWithPrefix(db, prefix)
	if err != nil {
		return out, err
	}
	if len(candidates) == 1 {
		out.MemberID = candidates[0]
		out.Method = AttributedPrefix
	}
	return out, nil
}

// membersWithPrefix returns at most two member ids starting with prefix.
// Only the member table is consulted, so recording clicks never changes how
// an earlier SubID resolves.
func (r *Resolver) membersWithPrefix(db *gorm.DB, prefix string) ([]string, error) {
	var ids []string
	if err := db.Model(&models.Member{}).
		Where("substr(id, 1, ?) = ?", len(prefix), prefix).
		Order("id").Limit(2).
		Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("match member prefix: %w", err)
	}
	return ids, nil
}
