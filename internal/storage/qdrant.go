package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/bull/docsim/internal/document"
)

// DefaultCollection is the Qdrant collection backing the index.
const DefaultCollection = "documents"

// payloadContent is the payload key holding the chunk text. Every other payload
// key is chunk metadata.
const payloadContent = "content"

const upsertBatchSize = 100

// QdrantFactory wraps the Qdrant client with connection management and health checks.
type QdrantFactory struct {
	client     *qdrant.Client
	host       string
	port       int
	collection string
}

// NewQdrantFactory connects to Qdrant over gRPC.
// It performs a health check with retry on startup and fails fast if Qdrant is unreachable.
func NewQdrantFactory(host string, port int, collection string) (*QdrantFactory, error) {
	if collection == "" {
		collection = DefaultCollection
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	f := &QdrantFactory{
		client:     client,
		host:       host,
		port:       port,
		collection: collection,
	}

	if err := retry(context.Background(), func() error { return f.Health(context.Background()) }); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrQdrantUnreachable, err)
	}

	return f, nil
}

// newRetryPolicy returns the exponential backoff used for Qdrant calls:
// initial interval 500ms, max interval 10s, max elapsed 30s.
func newRetryPolicy() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return b
}

func retry(ctx context.Context, op func() error) error {
	return backoff.Retry(op, backoff.WithContext(newRetryPolicy(), ctx))
}

// Health performs a single health check against Qdrant.
func (f *QdrantFactory) Health(ctx context.Context) error {
	result, err := f.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}
	return nil
}

// Create drops any existing collection, recreates it sized for the embedder and
// writes the initial chunks. The index lives for the lifetime of the process, so
// leftovers from an earlier run are discarded rather than appended to.
func (f *QdrantFactory) Create(ctx context.Context, chunks []document.Chunk, embedder Embedder) (Index, error) {
	if err := f.recreateCollection(ctx, embedder.Dimension()); err != nil {
		return nil, err
	}

	idx := &QdrantIndex{
		client:     f.client,
		collection: f.collection,
		dimension:  embedder.Dimension(),
		embedder:   embedder,
	}
	if err := idx.Add(ctx, chunks, embedder); err != nil {
		return nil, err
	}
	return idx, nil
}

func (f *QdrantFactory) recreateCollection(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: invalid dimension %d", ErrDimensionMismatch, dimension)
	}

	exists, err := f.client.CollectionExists(ctx, f.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if exists {
		if err := f.client.DeleteCollection(ctx, f.collection); err != nil {
			return fmt.Errorf("failed to delete collection: %w", err)
		}
	}

	err = f.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: f.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	// Keyword index on source so results can be filtered by originating file.
	_, err = f.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: f.collection,
		FieldName:      document.MetadataSource,
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
	})
	if err != nil {
		return fmt.Errorf("failed to create index for field %s: %w", document.MetadataSource, err)
	}

	return nil
}

// Close closes the Qdrant client connection.
func (f *QdrantFactory) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

// QdrantIndex stores one point per chunk in a single collection.
type QdrantIndex struct {
	client     *qdrant.Client
	collection string
	dimension  int
	embedder   Embedder
}

// Add embeds chunks and upserts them in batches of 100.
// Qdrant writes are not transactional across batches; if a batch fails, the points
// already written by this call are deleted on a best-effort basis.
func (q *QdrantIndex) Add(ctx context.Context, chunks []document.Chunk, embedder Embedder) error {
	if len(chunks) == 0 {
		return nil
	}
	if embedder.Dimension() != q.dimension {
		return fmt.Errorf("%w: embedder has %d dimensions, index has %d",
			ErrDimensionMismatch, embedder.Dimension(), q.dimension)
	}

	vectors, err := embedChunks(ctx, embedder, chunks)
	if err != nil {
		return err
	}

	var written []*qdrant.PointId
	for i := 0; i < len(chunks); i += upsertBatchSize {
		end := min(i+upsertBatchSize, len(chunks))

		points := make([]*qdrant.PointStruct, 0, end-i)
		for j := i; j < end; j++ {
			points = append(points, &qdrant.PointStruct{
				Id:      qdrant.NewIDUUID(uuid.New().String()),
				Vectors: qdrant.NewVectors(vectors[j]...),
				Payload: qdrant.NewValueMap(chunkPayload(chunks[j])),
			})
		}

		if err := q.upsertWithRetry(ctx, points); err != nil {
			q.rollback(ctx, written)
			return fmt.Errorf("failed to upsert batch %d-%d: %w", i, end, err)
		}
		for _, p := range points {
			written = append(written, p.Id)
		}
	}

	return nil
}

// upsertWithRetry performs upsert operation with exponential backoff retry.
func (q *QdrantIndex) upsertWithRetry(ctx context.Context, points []*qdrant.PointStruct) error {
	return retry(ctx, func() error {
		_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: q.collection,
			Wait:           qdrant.PtrOf(true),
			Points:         points,
		})
		return err
	})
}

func (q *QdrantIndex) rollback(ctx context.Context, ids []*qdrant.PointId) {
	if len(ids) == 0 {
		return
	}
	// Best effort; the caller already reports the original failure.
	_, _ = q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         qdrant.NewPointsSelector(ids...),
	})
}

// Search performs vector similarity search.
// Returns up to k results ordered by score descending, as reported by Qdrant.
func (q *QdrantIndex) Search(ctx context.Context, query string, k int) ([]SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("invalid result limit %d", k)
	}

	probe, err := embedQuery(ctx, q.embedder, query, q.dimension)
	if err != nil {
		return nil, err
	}

	points, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQuery(probe...),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}

	results := make([]SearchResult, 0, len(points))
	for _, p := range points {
		content, metadata := splitPayload(p.Payload)
		results = append(results, SearchResult{
			Content:  content,
			Metadata: metadata,
			Score:    float64(p.Score), // Qdrant returns float32
		})
	}
	return results, nil
}

// Count returns the exact number of points in the collection.
func (q *QdrantIndex) Count(ctx context.Context) (int, error) {
	n, err := q.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: q.collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count points: %w", err)
	}
	return int(n), nil
}

func chunkPayload(c document.Chunk) map[string]any {
	payload := make(map[string]any, len(c.Metadata)+1)
	for k, v := range c.Metadata {
		payload[k] = v
	}
	payload[payloadContent] = c.Content
	return payload
}

func splitPayload(payload map[string]*qdrant.Value) (string, map[string]string) {
	metadata := make(map[string]string, len(payload))
	var content string
	for k, v := range payload {
		if k == payloadContent {
			content = v.GetStringValue()
			continue
		}
		metadata[k] = v.GetStringValue()
	}
	return content, metadata
}
