package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"rewmo/helpers"
	"rewmo/metrics"
	"rewmo/models"

	"gorm.io/gorm"
)

const clickWriteTimeout = 5 * time.Second

type ClickInput struct {
	MemberID   string
	RetailerID string
	Network    string
	UserAgent  string
	IP         string
}

// ClickLedger records outbound clicks. Writes happen off the request path so
// a slow or failing store never delays the redirect.
type ClickLedger struct {
	db      *gorm.DB
	metrics *metrics.Ledger
	now     func() time.Time
	wg      sync.WaitGroup
}

func NewClickLedger(db *gorm.DB, m *metrics.Ledger) *ClickLedger {
	return &ClickLedger{db: db, metrics: m, now: func() time.Time { return time.Now().UTC() }}
}

// Record returns the SubID to embed in the outbound link and persists the
// click in the background.
func (l *ClickLedger) Record(in ClickInput) string {
	clickedAt := l.now()
	subID := helpers.EncodeSubID(in.MemberID, clickedAt)

	click := models.Click{
		SubID:      subID,
		MemberID:   strings.TrimSpace(in.MemberID),
		RetailerID: strings.TrimSpace(in.RetailerID),
		Network:    normalizeNetwork(in.Network),
		ClickedAt:  clickedAt,
	}
	if ua := strings.TrimSpace(in.UserAgent); ua != "" {
		if len(ua) > 512 {
			ua = ua[:512]
		}
		click.UserAgent = &ua
	}
	if ip := strings.TrimSpace(in.IP); ip != "" {
		sum := sha256.Sum256([]byte(ip))
		h := hex.EncodeToString(sum[:])
		click.IPHash = &h
	}

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), clickWriteTimeout)
		defer cancel()

		if err := l.db.WithContext(ctx).Create(&click).Error; err != nil {
			log.Printf("❌ failed to record click %s for member %s: %v", subID, click.MemberID, err)
			l.metrics.ClicksDropped.Inc()
			return
		}
		l.metrics.ClicksRecorded.Inc()
	}()

	return subID
}

// Wait blocks until every in-flight click write has finished.
func (l *ClickLedger) Wait() {
	l.wg.Wait()
}

func (l *ClickLedger) Find(ctx context.Context, subID string) (*models.Click, error) {
	var click models.Click
	err := l.db.WithContext(ctx).Where("sub_id = ?", subID).First(&click).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrClickNotFound
	}
	if err != nil {
		return nil, err
	}
	return &click, nil
}

func normalizeNetwork(network string) string {
	return strings.ToLower(strings.TrimSpace(network))
}
