package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClickLedgerRecordPersistsInBackground(t *testing.T) {
	f := newFixture(t)

	subID := f.clicks.Record(ClickInput{
		MemberID:   "Xk9fP2mQa7LrT",
		RetailerID: "acme",
		Network:    " Impact ",
		UserAgent:  "Mozilla/5.0",
		IP:         "203.0.113.7",
	})
	require.True(t, strings.HasPrefix(subID, "Xk9fP2mQ_"), subID)

	f.clicks.Wait()

	click, err := f.clicks.Find(context.Background(), subID)
	require.NoError(t, err)
	require.Equal(t, "Xk9fP2mQa7LrT", click.MemberID)
	require.Equal(t, "impact", click.Network)
	require.NotNil(t, click.UserAgent)
	require.NotNil(t, click.IPHash)
	require.NotContains(t, *click.IPHash, "203.0.113.7")
	require.Len(t, *click.IPHash, 64)
}

func TestClickLedgerFailureDoesNotBlockRedirect(t *testing.T) {
	f := newFixture(t)

	sqlDB, err := f.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	subID := f.clicks.Record(ClickInput{MemberID: "m1", RetailerID: "acme", Network: "cj"})
	require.NotEmpty(t, subID)
	f.clicks.Wait()
}

func TestClickLedgerFindMissing(t *testing.T) {
	f := newFixture(t)

	_, err := f.clicks.Find(context.Background(), "nope_123")
	require.ErrorIs(t, err, ErrClickNotFound)
}
