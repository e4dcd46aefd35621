package model

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Bucket is an owned amount of one resource handed between caller, adapter and pool.
type Bucket struct {
	Resource common.Address  `json:"resource"`
	Amount   decimal.Decimal `json:"amount"`
	// LocalID names a single non-fungible unit of Resource, such as a position receipt.
	LocalID string `json:"local_id,omitempty"`
}

func NewBucket(resource common.Address, amount decimal.Decimal) Bucket {
	return Bucket{Resource: resource, Amount: amount}
}

// EmptyBucket returns a zero-amount bucket of resource.
func EmptyBucket(resource common.Address) Bucket {
	return Bucket{Resource: resource, Amount: decimal.Zero}
}

// IndexBuckets groups buckets by resource, summing amounts of the same resource.
func IndexBuckets(buckets ...Bucket) map[common.Address]Bucket {
	out := make(map[common.Address]Bucket, len(buckets))
	for _, b := range buckets {
		existing, ok := out[b.Resource]
		if !ok {
			out[b.Resource] = b
			continue
		}
		existing.Amount = existing.Amount.Add(b.Amount)
		if existing.LocalID == "" {
			existing.LocalID = b.LocalID
		}
		out[b.Resource] = existing
	}
	return out
}

// OrderPair returns (x, y) so that x holds resourceX and y holds resourceY,
// accepting the buckets in either order.
func OrderPair(a, b Bucket, resourceX, resourceY common.Address) (Bucket, Bucket, error) {
	switch {
	case a.Resource == resourceX && b.Resource == resourceY:
		return a, b, nil
	case b.Resource == resourceX && a.Resource == resourceY:
		return b, a, nil
	default:
		return Bucket{}, Bucket{}, ErrResourceMismatch
	}
}
