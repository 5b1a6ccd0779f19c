// Package mongo provides a MongoDB implementation of driven.ResourceStore.
//
// Current and history revisions are stored in one collection. A record's _id
// joins its partition key and document id, so a current revision and each of
// its archived versions are distinct records in the same partition.
//
// Conditional writes rely on two single-document guarantees: inserting a
// record whose _id exists fails with a duplicate key error, and a replace
// filtered on the stored _etag matches nothing once another writer has
// moved the revision on. Both surface as domain.ErrPreconditionFailed.
package mongo
