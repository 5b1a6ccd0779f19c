package driven

// KeyDeriver derives the partition key of a resource. The result must depend
// only on its arguments so every revision of a resource lands in the same
// partition.
type KeyDeriver interface {
	PartitionKey(resourceType, resourceID string) string
}
