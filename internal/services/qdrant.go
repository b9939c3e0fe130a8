package services

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// IndexDocument is one retrievable text document.
type IndexDocument struct {
	ID   string
	Text string
}

// RetrievalIndex is the nearest-neighbor lookup consumed by the context
// retriever. Implementations are read-mostly and safe for concurrent queries.
type RetrievalIndex interface {
	Query(ctx context.Context, text string, topK int) ([]string, error)
	IsEmpty(ctx context.Context) (bool, error)
	Seed(ctx context.Context, docs []IndexDocument) error
}

// QdrantService owns one Qdrant collection holding all document types.
// Index scopes the collection down to a single doc type, so job requirements
// and scoring rubrics behave as two independent logical indexes.
type QdrantService interface {
	EnsureCollection(ctx context.Context) error
	Index(docType string) RetrievalIndex
}

type qdrantService struct {
	client         *qdrant.Client
	embedder       Embedder
	collectionName string
	vectorSize     uint64
}

func NewQdrantService(urlStr, apiKey, collectionName string, embedder Embedder) (QdrantService, error) {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := parsed.Hostname()
	useTLS := parsed.Scheme == "https"

	// gRPC port, not the REST one
	port := 6334
	if p := parsed.Port(); p != "" {
		if v, err := strconv.Atoi(p); err == nil {
			port = v
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: apiKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &qdrantService{
		client:         client,
		embedder:       embedder,
		collectionName: collectionName,
		vectorSize:     768, // text-embedding-004 size
	}, nil
}

func (q *qdrantService) EnsureCollection(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if exists {
		return nil
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     q.vectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

func (q *qdrantService) Index(docType string) RetrievalIndex {
	return &qdrantIndex{svc: q, docType: docType}
}

type qdrantIndex struct {
	svc     *qdrantService
	docType string
}

func (idx *qdrantIndex) docTypeFilter() *qdrant.Filter {
	return &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatch("doc_type", idx.docType),
		},
	}
}

// Query embeds the query text and returns the topK nearest document texts,
// best match first.
func (idx *qdrantIndex) Query(ctx context.Context, text string, topK int) ([]string, error) {
	embedding, err := idx.svc.embedder.GenerateEmbedding(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	points, err := idx.svc.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: idx.svc.collectionName,
		Query:          qdrant.NewQuery(embedding...),
		Filter:         idx.docTypeFilter(),
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	var texts []string
	for _, point := range points {
		if value, ok := point.Payload["text"]; ok {
			if val, ok := value.GetKind().(*qdrant.Value_StringValue); ok {
				texts = append(texts, val.StringValue)
			}
		}
	}
	return texts, nil
}

func (idx *qdrantIndex) IsEmpty(ctx context.Context) (bool, error) {
	count, err := idx.svc.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: idx.svc.collectionName,
		Filter:         idx.docTypeFilter(),
	})
	if err != nil {
		return false, fmt.Errorf("failed to count points: %w", err)
	}
	return count == 0, nil
}

func (idx *qdrantIndex) Seed(ctx context.Context, docs []IndexDocument) error {
	var points []*qdrant.PointStruct
	for _, doc := range docs {
		embedding, err := idx.svc.embedder.GenerateEmbedding(ctx, doc.Text)
		if err != nil {
			return fmt.Errorf("failed to embed document %s: %w", doc.ID, err)
		}

		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDNum(uint64(uuid.New().ID())),
			Vectors: qdrant.NewVectors(embedding...),
			Payload: qdrant.NewValueMap(map[string]interface{}{
				"doc_id":   doc.ID,
				"doc_type": idx.docType,
				"text":     doc.Text,
			}),
		})
	}

	if len(points) == 0 {
		return nil
	}

	_, err := idx.svc.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: idx.svc.collectionName,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}
	return nil
}
