package embedding

import (
	"context"
	"math"
	"testing"
)

func cosine(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func TestHashEmbedder_Deterministic(t *testing.T) {
	h := NewHashEmbedder(64)
	ctx := context.Background()

	first, err := h.GenerateEmbeddings(ctx, []string{"The cat sat on the mat"})
	if err != nil {
		t.Fatalf("GenerateEmbeddings failed: %v", err)
	}
	second, _ := h.GenerateEmbeddings(ctx, []string{"the CAT sat on the mat!"})

	if got := cosine(first[0], second[0]); math.Abs(got-1) > 1e-6 {
		t.Errorf("Expected identical vectors for case/punctuation variants, cosine=%f", got)
	}
}

func TestHashEmbedder_UnitLength(t *testing.T) {
	h := NewHashEmbedder(0)
	if h.Dimension() != DefaultHashDimension {
		t.Fatalf("Expected default dimension %d, got %d", DefaultHashDimension, h.Dimension())
	}

	vecs, _ := h.GenerateEmbeddings(context.Background(), []string{"vector databases store embeddings"})
	if len(vecs[0]) != DefaultHashDimension {
		t.Fatalf("Expected %d dimensions, got %d", DefaultHashDimension, len(vecs[0]))
	}
	if norm := cosine(vecs[0], vecs[0]); math.Abs(norm-1) > 1e-5 {
		t.Errorf("Expected unit vector, squared norm=%f", norm)
	}
}

func TestHashEmbedder_SimilarTextScoresHigher(t *testing.T) {
	h := NewHashEmbedder(256)
	vecs, _ := h.GenerateEmbeddings(context.Background(), []string{
		"rivers flow into the ocean",
		"the ocean receives water from rivers",
		"compilers translate source code",
	})

	related := cosine(vecs[0], vecs[1])
	unrelated := cosine(vecs[0], vecs[2])
	if related <= unrelated {
		t.Errorf("Expected related texts to score higher: related=%f unrelated=%f", related, unrelated)
	}
}

func TestHashEmbedder_BlankTextIsZero(t *testing.T) {
	vecs, _ := NewHashEmbedder(8).GenerateEmbeddings(context.Background(), []string{"  ...  "})
	for i, v := range vecs[0] {
		if v != 0 {
			t.Fatalf("Expected zero vector, index %d = %f", i, v)
		}
	}
}

func TestHashEmbedder_HonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewHashEmbedder(8).GenerateEmbeddings(ctx, []string{"x"}); err == nil {
		t.Error("Expected error for cancelled context")
	}
}
