package vectorstore

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/qdrant/go-client/qdrant"
)

// QdrantStore implements VectorStore using Qdrant.
type QdrantStore struct {
	client *qdrant.Client
}

// NewQdrantStore creates a new Qdrant vector store client.
// url should be in format "host:port" (e.g., "localhost:6334").
func NewQdrantStore(ctx context.Context, url string) (*QdrantStore, error) {
	host, portStr, err := net.SplitHostPort(url)
	if err != nil {
		host = url
		portStr = "6334"
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid port in qdrant url: %w", err)
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &QdrantStore{client: client}, nil
}

// Close closes the Qdrant client connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

// collectionName maps a logical collection name onto the physical Qdrant
// collection name. The reserved query cache collection passes through
// unchanged; ordinary collections are namespaced to avoid clashing with it.
func (s *QdrantStore) collectionName(collection string) string {
	if collection == QueryCacheCollection {
		return collection
	}
	return fmt.Sprintf("col_%s", collection)
}

// CreateCollection creates a new collection for the given embedding dimension.
func (s *QdrantStore) CreateCollection(ctx context.Context, collection string, dimension int) error {
	name := s.collectionName(collection)

	err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	return nil
}

// DeleteCollection deletes a collection.
func (s *QdrantStore) DeleteCollection(ctx context.Context, collection string) error {
	name := s.collectionName(collection)

	if err := s.client.DeleteCollection(ctx, name); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}

	return nil
}

// CollectionExists checks if a collection exists.
func (s *QdrantStore) CollectionExists(ctx context.Context, collection string) (bool, error) {
	name := s.collectionName(collection)

	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return false, fmt.Errorf("failed to check collection existence: %w", err)
	}

	return exists, nil
}

// ListCollections returns all collection names, excluding the reserved
// query cache collection.
func (s *QdrantStore) ListCollections(ctx context.Context) ([]string, error) {
	names, err := s.client.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}

	result := make([]string, 0, len(names))
	for _, n := range names {
		if n == QueryCacheCollection {
			continue
		}
		result = append(result, trimCollectionPrefix(n))
	}
	return result, nil
}

func trimCollectionPrefix(name string) string {
	const prefix = "col_"
	if len(name) > len(prefix) && name[:len(prefix)] == prefix {
		return name[len(prefix):]
	}
	return name
}

// Upsert inserts or updates chunks in the vector store.
func (s *QdrantStore) Upsert(ctx context.Context, collection string, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	name := s.collectionName(collection)

	points := make([]*qdrant.PointStruct, len(chunks))
	for i, chunk := range chunks {
		payload := map[string]*qdrant.Value{
			"document_id": qdrant.NewValueString(chunk.DocumentID),
			"content":     qdrant.NewValueString(chunk.Content),
		}
		for k, v := range chunk.Metadata {
			payload[k] = qdrant.NewValueString(v)
		}

		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(chunk.ID),
			Payload: payload,
			Vectors: qdrant.NewVectors(chunk.Vector...),
		}
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: name,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}

	return nil
}

// Search performs dense similarity search.
func (s *QdrantStore) Search(ctx context.Context, collection string, vector []float32, topK int, minScore float32) ([]SearchResult, error) {
	name := s.collectionName(collection)

	response, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: name,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
		ScoreThreshold: qdrant.PtrOf(minScore),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	results := make([]SearchResult, 0, len(response))
	for _, point := range response {
		result := SearchResult{
			ID:       point.Id.GetUuid(),
			Score:    point.Score,
			Metadata: make(map[string]string),
		}

		if payload := point.Payload; payload != nil {
			if docID, ok := payload["document_id"]; ok {
				result.DocumentID = docID.GetStringValue()
			}
			if content, ok := payload["content"]; ok {
				result.Content = content.GetStringValue()
			}
			for k, v := range payload {
				if k != "document_id" && k != "content" {
					result.Metadata[k] = v.GetStringValue()
				}
			}
		}

		results = append(results, result)
	}

	return results, nil
}

// Delete removes chunks by document ID.
func (s *QdrantStore) Delete(ctx context.Context, collection string, documentID string) error {
	name := s.collectionName(collection)

	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: name,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
				Filter: &qdrant.Filter{
					Must: []*qdrant.Condition{
						qdrant.NewMatch("document_id", documentID),
					},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete by document ID: %w", err)
	}

	return nil
}

// DeleteByIDs removes specific chunks by their IDs.
func (s *QdrantStore) DeleteByIDs(ctx context.Context, collection string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	name := s.collectionName(collection)

	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = qdrant.NewIDUUID(id)
	}

	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: name,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Points{
				Points: &qdrant.PointsIdsList{
					Ids: pointIDs,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete by IDs: %w", err)
	}

	return nil
}

// Ensure QdrantStore implements VectorStore.
var _ VectorStore = (*QdrantStore)(nil)
