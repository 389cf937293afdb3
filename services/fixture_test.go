package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"rewmo/database"
	"rewmo/metrics"
	"rewmo/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type fixture struct {
	db       *gorm.DB
	clock    *testClock
	clicks   *ClickLedger
	resolver *Resolver
	ledger   *Ledger
	importer *Importer
	payouts  *PayoutProcessor
}

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := setupDB(t)
	m := metrics.New()
	clock := &testClock{t: time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)}

	f := &fixture{
		db:       db,
		clock:    clock,
		clicks:   NewClickLedger(db, m),
		resolver: NewResolver(db),
		ledger:   NewLedger(db, m),
		payouts:  NewPayoutProcessor(db, m),
	}
	f.importer = NewImporter(db, f.resolver, f.ledger, m)
	f.clicks.now = clock.now
	f.ledger.now = clock.now
	f.importer.now = clock.now
	f.payouts.now = clock.now
	return f
}

func (f *fixture) addClick(t *testing.T, subID, memberID string) {
	t.Helper()
	require.NoError(t, f.db.Create(&models.Click{
		SubID:      subID,
		MemberID:   memberID,
		RetailerID: "acme",
		Network:    "impact",
		ClickedAt:  f.clock.now(),
	}).Error)
}

func (f *fixture) record(t *testing.T, memberID, orderID string, gross int64) *models.Commission {
	t.Helper()
	var ref *string
	if memberID != "" {
		ref = &memberID
	}
	c, err := f.ledger.Record(context.Background(), RecordInput{
		MemberID:    ref,
		Network:     "impact",
		OrderID:     orderID,
		SubID:       memberID + "_test",
		GrossAmount: gross,
	})
	require.NoError(t, err)
	return c
}

func (f *fixture) member(t *testing.T, id string) models.Member {
	t.Helper()
	var m models.Member
	require.NoError(t, f.db.Where("id = ?", id).First(&m).Error)
	return m
}

// requireBalanceInvariants checks the cached counters against the commission
// log and the split of every commission.
func (f *fixture) requireBalanceInvariants(t *testing.T, memberID string) {
	t.Helper()
	var commissions []models.Commission
	require.NoError(t, f.db.Where("member_id = ?", memberID).Find(&commissions).Error)

	var total, paid, owed int64
	for _, c := range commissions {
		require.Equal(t, c.GrossAmount, c.MemberShare+c.RewmoShare, "split leak on %s", c.ID)
		total += c.MemberShare
		switch c.Status {
		case models.CommissionPaid:
			paid += c.MemberShare
		default:
			owed += c.MemberShare
		}
	}

	m := f.member(t, memberID)
	require.Equal(t, total, m.TotalEarnings, "total earnings")
	require.Equal(t, paid, m.PaidBalance, "paid balance")
	require.Equal(t, owed, m.PendingBalance, "pending balance")

	bal, err := f.ledger.Balance(context.Background(), memberID)
	require.NoError(t, err)
	require.True(t, bal.CacheInSync)
	require.Equal(t, total, bal.TotalEarnings)
}
