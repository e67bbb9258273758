package model

import "time"

// EntityType identifies a category in the entity catalogue.
type EntityType string

const (
	EntityPerson       EntityType = "PERSON"
	EntityOrganization EntityType = "ORGANIZATION"
	EntityLocation     EntityType = "LOCATION"
	EntityEvent        EntityType = "EVENT"
	EntityTitle        EntityType = "TITLE"
)

// ChunkMetadata is the bag of metadata carried by a document chunk.
// Entities maps an EntityType to the surface forms found in the chunk body.
type ChunkMetadata struct {
	SourcePlatform string
	SourceURL      string
	CreatedDate    time.Time
	Author         string
	Hashtags       []string
	Mentions       []string
	Entities       map[EntityType][]string
}

// DocumentChunk is a unit of retrieval. It is read-only to the query engine;
// its embedding is precomputed by an external indexer. (source_id, chunk_position)
// is unique across the collection.
type DocumentChunk struct {
	SourceID      string
	ChunkPosition int
	Content       string
	Metadata      ChunkMetadata
}

// BodyHash is a stable fingerprint of the chunk's content, used for
// deduplication and for keying the document-entity extraction memo.
func (c DocumentChunk) BodyHash() string {
	return bodyHash(c.Content)
}
