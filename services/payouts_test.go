package services

import (
	"context"
	"sync"
	"testing"

	"rewmo/models"

	"github.com/stretchr/testify/require"
)

// approvedCommission records and approves a commission whose member share is share.
func (f *fixture) approvedCommission(t *testing.T, memberID, orderID string, share int64) *models.Commission {
	t.Helper()
	c := f.record(t, memberID, orderID, share*2)
	approved, err := f.ledger.Approve(context.Background(), c.ID)
	require.NoError(t, err)
	return approved
}

func TestPayoutConsumesWholeCommissionsInOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seven := f.approvedCommission(t, "m1", "ORD-7", 700)
	four := f.approvedCommission(t, "m1", "ORD-4", 400)

	before, err := f.ledger.Balance(ctx, "m1")
	require.NoError(t, err)
	require.Equal(t, int64(1100), before.ApprovedBalance)

	payout, err := f.payouts.Payout(ctx, PayoutInput{
		MemberID:  "m1",
		Amount:    1000,
		Method:    "PayPal",
		Reference: "PP-123",
	})
	require.NoError(t, err)
	require.Equal(t, int64(1000), payout.Amount)
	require.Equal(t, int64(700), payout.PaidAmount)
	require.Equal(t, models.PayoutPaypal, payout.Method)
	require.Equal(t, "PP-123", *payout.Reference)
	require.Nil(t, payout.Notes)

	got, err := f.ledger.Get(ctx, seven.ID)
	require.NoError(t, err)
	require.Equal(t, models.CommissionPaid, got.Status)
	require.Equal(t, payout.ID, *got.PayoutID)

	got, err = f.ledger.Get(ctx, four.ID)
	require.NoError(t, err)
	require.Equal(t, models.CommissionApproved, got.Status)

	after, err := f.ledger.Balance(ctx, "m1")
	require.NoError(t, err)
	require.Equal(t, before.ApprovedBalance-700, after.ApprovedBalance)
	require.Equal(t, before.PaidBalance+700, after.PaidBalance)
	require.Equal(t, before.TotalEarnings, after.TotalEarnings)
	f.requireBalanceInvariants(t, "m1")

	history, err := f.payouts.History(ctx, "m1")
	require.NoError(t, err)
	require.Len(t, history, 1)
}

func TestPayoutSkipsCommissionsThatDoNotFit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.approvedCommission(t, "m1", "ORD-A", 700)
	f.approvedCommission(t, "m1", "ORD-B", 400)
	f.approvedCommission(t, "m1", "ORD-C", 200)

	payout, err := f.payouts.Payout(ctx, PayoutInput{MemberID: "m1", Amount: 1000, Method: "check"})
	require.NoError(t, err)
	require.Equal(t, int64(900), payout.PaidAmount)

	bal, err := f.ledger.Balance(ctx, "m1")
	require.NoError(t, err)
	require.Equal(t, int64(400), bal.ApprovedBalance)
	require.Equal(t, int64(900), bal.PaidBalance)
	f.requireBalanceInvariants(t, "m1")
}

func TestPayoutRejectsOverdraw(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.approvedCommission(t, "m1", "ORD-7", 700)
	f.approvedCommission(t, "m1", "ORD-4", 400)
	f.record(t, "m1", "ORD-P", 5000)

	_, err := f.payouts.Payout(ctx, PayoutInput{MemberID: "m1", Amount: 1101, Method: "paypal"})
	require.ErrorIs(t, err, ErrInsufficientApprovedBalance)

	var payouts int64
	require.NoError(t, f.db.Model(&models.Payout{}).Count(&payouts).Error)
	require.Zero(t, payouts)

	bal, err := f.ledger.Balance(ctx, "m1")
	require.NoError(t, err)
	require.Equal(t, int64(1100), bal.ApprovedBalance)
	require.Zero(t, bal.PaidBalance)
	f.requireBalanceInvariants(t, "m1")
}

func TestPayoutWithNothingThatFitsLeavesNoRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.approvedCommission(t, "m1", "ORD-7", 700)

	_, err := f.payouts.Payout(ctx, PayoutInput{MemberID: "m1", Amount: 500, Method: "paypal"})
	require.ErrorIs(t, err, ErrNoCommissionFits)

	var payouts int64
	require.NoError(t, f.db.Model(&models.Payout{}).Count(&payouts).Error)
	require.Zero(t, payouts)
	f.requireBalanceInvariants(t, "m1")
}

func TestPayoutValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.approvedCommission(t, "m1", "ORD-7", 700)

	_, err := f.payouts.Payout(ctx, PayoutInput{MemberID: "m1", Amount: 0, Method: "paypal"})
	require.ErrorIs(t, err, ErrInvalidAmount)
	_, err = f.payouts.Payout(ctx, PayoutInput{MemberID: "m1", Amount: 100, Method: "crypto"})
	require.ErrorIs(t, err, ErrInvalidPayoutMethod)
	_, err = f.payouts.Payout(ctx, PayoutInput{MemberID: "ghost", Amount: 100, Method: "paypal"})
	require.ErrorIs(t, err, ErrMemberNotFound)
}

func TestConcurrentPayoutsCannotOverdraw(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.approvedCommission(t, "m1", "ORD-A", 500)
	f.approvedCommission(t, "m1", "ORD-B", 500)

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.payouts.Payout(ctx, PayoutInput{MemberID: "m1", Amount: 1000, Method: "paypal"})
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		require.ErrorIs(t, err, ErrInsufficientApprovedBalance)
	}
	require.Equal(t, 1, ok)

	bal, err := f.ledger.Balance(ctx, "m1")
	require.NoError(t, err)
	require.Equal(t, int64(1000), bal.PaidBalance)
	require.Zero(t, bal.ApprovedBalance)
	f.requireBalanceInvariants(t, "m1")
}
