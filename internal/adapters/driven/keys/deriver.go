// Package keys provides partition key derivation for the storage adapters.
package keys

import (
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/custodia-labs/revstore/internal/core/ports/driven"
)

var (
	_ driven.KeyDeriver = TypeIDDeriver{}
	_ driven.KeyDeriver = (*BucketDeriver)(nil)
)

// TypeIDDeriver gives every logical resource its own partition, "Type_id".
type TypeIDDeriver struct{}

// PartitionKey returns "<resourceType>_<resourceID>".
func (TypeIDDeriver) PartitionKey(resourceType, resourceID string) string {
	return resourceType + "_" + resourceID
}

// BucketDeriver spreads resources of a type over a fixed number of
// partitions by hashing the resource id.
type BucketDeriver struct {
	buckets uint64
}

// NewBucketDeriver creates a deriver with n buckets per resource type.
// n below 1 is treated as 1.
func NewBucketDeriver(n int) *BucketDeriver {
	if n < 1 {
		n = 1
	}
	return &BucketDeriver{buckets: uint64(n)}
}

// PartitionKey returns "<resourceType>_<bucket>".
func (d *BucketDeriver) PartitionKey(resourceType, resourceID string) string {
	bucket := xxhash.Sum64String(resourceID) % d.buckets
	return resourceType + "_" + strconv.FormatUint(bucket, 10)
}

// New returns the deriver for a configured bucket count: 0 keeps one
// partition per resource.
func New(buckets int) driven.KeyDeriver {
	if buckets <= 0 {
		return TypeIDDeriver{}
	}
	return NewBucketDeriver(buckets)
}
