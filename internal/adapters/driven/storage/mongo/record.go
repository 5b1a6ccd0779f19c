package mongo

import (
	"time"

	"github.com/custodia-labs/revstore/internal/core/domain"
)

// record is the stored form of a document.
type record struct {
	ID                  string                    `bson:"_id"`
	PartitionKey        string                    `bson:"partitionKey"`
	DocID               string                    `bson:"id"`
	ResourceID          string                    `bson:"resourceId"`
	ResourceType        string                    `bson:"resourceTypeName"`
	Version             string                    `bson:"version,omitempty"`
	ETag                string                    `bson:"_etag"`
	RawData             []byte                    `bson:"rawData"`
	RawFormat           string                    `bson:"rawFormat"`
	RawEncoding         string                    `bson:"rawEncoding,omitempty"`
	RequestMethod       string                    `bson:"requestMethod,omitempty"`
	RequestURI          string                    `bson:"requestUri,omitempty"`
	LastModified        time.Time                 `bson:"lastModified"`
	IsDeleted           bool                      `bson:"isDeleted"`
	IsHistory           bool                      `bson:"isHistory"`
	SearchIndices       []domain.SearchIndexEntry `bson:"searchIndices"`
	SortIndex           domain.SortIndex          `bson:"sort"`
	CompartmentIndices  domain.CompartmentIndices `bson:"compartmentIndices,omitempty"`
	LastModifiedClaims  []domain.Claim            `bson:"lastModifiedClaims,omitempty"`
	SearchParameterHash string                    `bson:"searchParameterHash,omitempty"`
}

// recordID is the _id of the document id within partition pk.
func recordID(pk, id string) string {
	return pk + "/" + id
}

// toRecord maps a document into its stored form. data is the already
// encoded payload.
func toRecord(pk string, doc *domain.VersionedDocument, data []byte, encoding string) record {
	indices := doc.SearchIndices()
	if indices == nil {
		indices = []domain.SearchIndexEntry{}
	}
	return record{
		ID:                  recordID(pk, doc.ID()),
		PartitionKey:        pk,
		DocID:               doc.ID(),
		ResourceID:          doc.ResourceID,
		ResourceType:        doc.ResourceType,
		Version:             doc.Version,
		ETag:                doc.ETag,
		RawData:             data,
		RawFormat:           doc.Raw.Format,
		RawEncoding:         encoding,
		RequestMethod:       doc.Request.Method,
		RequestURI:          doc.Request.URI,
		LastModified:        doc.LastModified,
		IsDeleted:           doc.IsDeleted,
		IsHistory:           doc.IsHistory,
		SearchIndices:       indices,
		SortIndex:           doc.SortIndex(),
		CompartmentIndices:  doc.CompartmentIndices,
		LastModifiedClaims:  doc.LastModifiedClaims,
		SearchParameterHash: doc.SearchParameterHash,
	}
}

// toDocument maps a stored record back to a document. data is the decoded
// payload.
func (r *record) toDocument(data []byte) *domain.VersionedDocument {
	return domain.NewVersionedDocument(domain.DocumentParams{
		ResourceID:   r.ResourceID,
		Version:      r.Version,
		ETag:         r.ETag,
		ResourceType: r.ResourceType,
		Raw: domain.RawResource{
			Data:   string(data),
			Format: r.RawFormat,
		},
		Request:             domain.ResourceRequest{Method: r.RequestMethod, URI: r.RequestURI},
		LastModified:        r.LastModified.UTC(),
		IsDeleted:           r.IsDeleted,
		IsHistory:           r.IsHistory,
		SearchIndices:       r.SearchIndices,
		CompartmentIndices:  r.CompartmentIndices,
		LastModifiedClaims:  r.LastModifiedClaims,
		SearchParameterHash: r.SearchParameterHash,
	})
}
