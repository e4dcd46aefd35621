package model

import (
	"errors"

	"liquidityAdapter/internal/mathx"
)

var (
	// ErrResourceMismatch is returned when supplied resources are not the pool's pair in either order.
	ErrResourceMismatch = errors.New("resource does not belong to pool")
	ErrNoActiveBin      = errors.New("pool has no active bin")
	ErrNoPrice          = errors.New("pool has no price")
	ErrNoActiveAmounts  = errors.New("pool has no active amounts")
	// ErrArithmeticOverflow is shared with mathx so checked operations match directly.
	ErrArithmeticOverflow = mathx.ErrOverflow
	ErrInvalidBucketCount = errors.New("invalid number of buckets")
	// ErrBinRangeExhausted marks a selection with no bins on either side; callers decide whether to reject.
	ErrBinRangeExhausted = errors.New("no bins selectable around active bin")

	ErrNoAdapter            = errors.New("no adapter found for pool family")
	ErrPoolHasNoBinConfig   = errors.New("pool has no contribution bin configuration")
	ErrActiveTickOutOfRange = errors.New("active tick is outside of allowed range")
	ErrNoPairConfig         = errors.New("pool has no pair configuration")
	ErrUnknownAdapterData   = errors.New("unknown adapter data tag")
	ErrPositionNotFound     = errors.New("position not found")
	ErrPriceNotComparable   = errors.New("prices are not of the same pair")
	ErrPriceNotApplicable   = errors.New("resource is neither base nor quote of price")
)
