package services

import "errors"

var (
	// ErrDuplicateOrder means the (network, order id) pair is already in the
	// ledger. Retrying the surrounding import is always safe.
	ErrDuplicateOrder = errors.New("duplicate order")

	ErrInvalidTransition           = errors.New("invalid commission transition")
	ErrInsufficientApprovedBalance = errors.New("insufficient approved balance")

	// ErrNoCommissionFits means the approved balance covers the amount but
	// every approved commission is larger than it. Nothing is written;
	// request at least the smallest approved share.
	ErrNoCommissionFits = errors.New("no approved commission fits the requested amount")

	ErrCommissionNotFound          = errors.New("commission not found")
	ErrMemberNotFound              = errors.New("member not found")
	ErrClickNotFound               = errors.New("click not found")
	ErrInvalidAmount               = errors.New("amount must be positive")
	ErrInvalidCommission           = errors.New("network and order id are required")
	ErrInvalidPayoutMethod         = errors.New("unsupported payout method")
	ErrBatchNotFound               = errors.New("import batch not found")
	ErrBatchNotCommittable         = errors.New("import batch is not awaiting commit")
	ErrUnknownFeed                 = errors.New("no feed configured for network")
)
