package services

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"rewmo/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func feedRow(tracking, order, earnings string) FeedRow {
	return FeedRow{
		TrackingID: models.FlexibleString(tracking),
		OrderID:    models.FlexibleString(order),
		Earnings:   models.FlexibleString(earnings),
		Date:       "2025-02-01",
	}
}

func TestImportMatchedRowCreatesPendingCommission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addClick(t, "m1_abc123", "m1")

	rows := []FeedRow{feedRow("sid=m1_abc123&src=app", "ORD-1", "10.00")}

	preview, err := f.importer.Preview(ctx, "impact", rows)
	require.NoError(t, err)
	require.Equal(t, 1, preview.Matched)
	require.Equal(t, int64(1000), preview.TotalEarnings)
	require.Equal(t, int64(500), preview.TotalMemberShare)

	var count int64
	require.NoError(t, f.db.Model(&models.Commission{}).Count(&count).Error)
	require.Zero(t, count, "preview must not write")

	summary := f.importer.CommitRows(ctx, "impact", nil, models.SourceImport, rows)
	require.Equal(t, 1, summary.Matched)
	require.NotNil(t, summary.Rows[0].CommissionID)

	var c models.Commission
	require.NoError(t, f.db.Where("order_id = ?", "ORD-1").First(&c).Error)
	require.Equal(t, "m1", *c.MemberID)
	require.Equal(t, "m1_abc123", c.SubID)
	require.Equal(t, int64(1000), c.GrossAmount)
	require.Equal(t, int64(500), c.MemberShare)
	require.Equal(t, int64(500), c.RewmoShare)
	require.Equal(t, models.CommissionPending, c.Status)
	require.Equal(t, models.SourceImport, c.Source)
	require.NotNil(t, c.OrderDate)
	f.requireBalanceInvariants(t, "m1")
}

func TestImportSameOrderTwiceIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addClick(t, "m1_abc123", "m1")
	rows := []FeedRow{feedRow("m1_abc123", "ORD-1", "10.00")}

	first := f.importer.CommitRows(ctx, "impact", nil, models.SourceImport, rows)
	require.Equal(t, 1, first.Matched)

	preview, err := f.importer.Preview(ctx, "impact", rows)
	require.NoError(t, err)
	require.Equal(t, 1, preview.Duplicate)
	require.Zero(t, preview.TotalEarnings)

	second := f.importer.CommitRows(ctx, "impact", nil, models.SourceImport, rows)
	require.Equal(t, 1, second.Duplicate)
	require.Equal(t, RowDuplicate, second.Rows[0].Outcome)

	var count int64
	require.NoError(t, f.db.Model(&models.Commission{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
	require.Equal(t, int64(500), f.member(t, "m1").TotalEarnings)
	f.requireBalanceInvariants(t, "m1")
}

func TestPreviewClassifiesEveryRow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addClick(t, "m1_abc123", "m1")
	f.record(t, "m1", "OLD-1", 400)

	rows := []FeedRow{
		feedRow("m1_abc123", "ORD-1", "$1,234.57"),
		feedRow("nobody_here", "ORD-2", "3.01"),
		feedRow("m1_abc123", "ORD-1", "5.00"),
		feedRow("m1_abc123", "OLD-1", "4.00"),
		feedRow("m1_abc123", "ORD-3", "0"),
		feedRow("m1_abc123", "ORD-4", "-2.50"),
		feedRow("m1_abc123", "", "2.00"),
		feedRow("m1_abc123", "ORD-5", "ten"),
	}

	s, err := f.importer.Preview(ctx, "impact", rows)
	require.NoError(t, err)
	require.Len(t, s.Rows, len(rows))
	require.Equal(t, 1, s.Matched)
	require.Equal(t, 1, s.Unmatched)
	require.Equal(t, 2, s.Duplicate)
	require.Equal(t, 2, s.Skipped)
	require.Equal(t, 2, s.Errors)
	require.Equal(t, int64(123457+301), s.TotalEarnings)
	require.Equal(t, int64(61728), s.TotalMemberShare)

	require.Equal(t, RowMatched, s.Rows[0].Outcome)
	require.Equal(t, AttributedExact, s.Rows[0].Attribution)
	require.Equal(t, RowUnmatched, s.Rows[1].Outcome)
	require.Contains(t, s.Rows[2].Message, "line 1")
	require.Equal(t, "order already recorded", s.Rows[3].Message)
	require.Equal(t, "missing order id", s.Rows[6].Message)
}

func TestCommitRowsContinuesPastBadRows(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rows := []FeedRow{
		feedRow("zz_unknown", "ORD-1", "2.00"),
		feedRow("zz_unknown", "", "2.00"),
		feedRow("zz_unknown", "ORD-2", "bad"),
		feedRow("zz_unknown", "ORD-3", "1.99"),
	}
	s := f.importer.CommitRows(ctx, "cj", nil, models.SourceImport, rows)
	require.Equal(t, 2, s.Unmatched)
	require.Equal(t, 2, s.Errors)

	var house []models.Commission
	require.NoError(t, f.db.Where("member_id IS NULL").Order("order_id").Find(&house).Error)
	require.Len(t, house, 2)
	require.Equal(t, int64(99), house[1].MemberShare)
	require.Equal(t, int64(100), house[1].RewmoShare)
}

func TestCommitRowsRejectsOutOfRangeEarnings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addClick(t, "m1_abc123", "m1")

	rows := []FeedRow{
		feedRow("m1_abc123", "ORD-1", "99999999999999999999"),
		feedRow("m1_abc123", "ORD-2", "1e30"),
		feedRow("m1_abc123", "ORD-3", "-$5.00"),
	}
	s := f.importer.CommitRows(ctx, "impact", nil, models.SourceImport, rows)
	require.Equal(t, 2, s.Errors)
	require.Equal(t, 1, s.Skipped)
	require.Equal(t, RowSkipped, s.Rows[2].Outcome)
	for _, r := range s.Rows {
		require.False(t, r.Retryable, r.OrderID)
	}

	var count int64
	require.NoError(t, f.db.Model(&models.Commission{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestStageCommitDiscardBatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addClick(t, "m1_abc123", "m1")

	batch, preview, err := f.importer.Stage(ctx, "Impact", "feb.csv", []FeedRow{
		feedRow("m1_abc123", "ORD-1", "10.00"),
		feedRow("m1_abc123", "ORD-2", "6.00"),
	})
	require.NoError(t, err)
	require.Equal(t, models.BatchPreviewed, batch.Status)
	require.Equal(t, "impact", batch.Network)
	require.Equal(t, 2, preview.Matched)
	require.Equal(t, batch.ID, *preview.BatchID)

	var count int64
	require.NoError(t, f.db.Model(&models.Commission{}).Count(&count).Error)
	require.Zero(t, count)

	summary, err := f.importer.Commit(ctx, batch.ID)
	require.NoError(t, err)
	require.True(t, summary.Committed)
	require.Equal(t, 2, summary.Matched)
	require.Equal(t, int64(800), summary.TotalMemberShare)

	stored, err := f.importer.Batch(ctx, batch.ID)
	require.NoError(t, err)
	require.Equal(t, models.BatchCommitted, stored.Status)
	require.NotNil(t, stored.CommittedAt)
	var storedSummary Summary
	require.NoError(t, json.Unmarshal(stored.Summary, &storedSummary))
	require.True(t, storedSummary.Committed)

	var batched int64
	require.NoError(t, f.db.Model(&models.Commission{}).Where("import_batch_id = ?", batch.ID).Count(&batched).Error)
	require.Equal(t, int64(2), batched)

	_, err = f.importer.Commit(ctx, batch.ID)
	require.ErrorIs(t, err, ErrBatchNotCommittable)
	require.ErrorIs(t, f.importer.Discard(ctx, batch.ID), ErrBatchNotCommittable)

	other, _, err := f.importer.Stage(ctx, "impact", "again.csv", []FeedRow{feedRow("m1_abc123", "ORD-9", "1.00")})
	require.NoError(t, err)
	require.NoError(t, f.importer.Discard(ctx, other.ID))
	_, err = f.importer.Commit(ctx, other.ID)
	require.ErrorIs(t, err, ErrBatchNotCommittable)

	_, err = f.importer.Commit(ctx, uuid.New())
	require.ErrorIs(t, err, ErrBatchNotFound)
	require.ErrorIs(t, f.importer.Discard(ctx, uuid.New()), ErrBatchNotFound)
	f.requireBalanceInvariants(t, "m1")
}

func TestParseEarnings(t *testing.T) {
	cases := map[string]int64{
		"10.00":     1000,
		"$7":        700,
		"1,234.56":  123456,
		"0.005":     1,
		"0.004":     0,
		" 3.1 ":     310,
		"-2.50":     -250,
		"-$5.00":    -500,
		"$-5.00":    -500,
		"+$1.25":    125,
		"100.999":   10100,
		"123456.78": 12345678,
	}
	for in, want := range cases {
		got, err := ParseEarnings(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}
	for _, in := range []string{"", "abc", "$", "-$", "--5", "99999999999999999999", "1e30", "-1e30"} {
		_, err := ParseEarnings(in)
		require.Error(t, err, in)
	}
}

func TestParseFeedDate(t *testing.T) {
	require.Nil(t, ParseFeedDate(""))
	require.Nil(t, ParseFeedDate("yesterday"))
	for _, in := range []string{"2025-02-01", "2025-02-01 10:30:00", "2025-02-01T10:30:00Z", "02/01/2025"} {
		d := ParseFeedDate(in)
		require.NotNil(t, d, in)
		require.Equal(t, 2025, d.Year(), in)
		require.Equal(t, 1, d.Day(), in)
	}
}

func TestParseCSVHeaderAliases(t *testing.T) {
	csv := "\ufeffSub ID,Order Number,Commission,Event Date,Extra\n" +
		"m1_abc123,ORD-1,10.00,2025-02-01,x\n" +
		"\n" +
		"m2_def456,ORD-2,\"1,250.00\",2025-02-02,y\n" +
		"short,ORD-3\n"

	rows, err := ParseCSV(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, "m1_abc123", rows[0].TrackingID.String())
	require.Equal(t, "ORD-1", rows[0].OrderID.String())
	require.Equal(t, "10.00", rows[0].Earnings.String())
	require.Equal(t, "2025-02-01", rows[0].Date.String())
	require.Equal(t, "1,250.00", rows[1].Earnings.String())
	require.Equal(t, "", rows[2].Earnings.String())

	_, err = ParseCSV(strings.NewReader("subid,date\nx,2025-01-01\n"))
	require.Error(t, err)
}
