package ai

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"prayogai-rag/internal/model"
	"prayogai-rag/internal/pkg/retry"
)

const defaultEmbeddingBatchSize = 10

// Embedder maps texts to vectors, one vector per text in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

type OpenAIEmbedder struct {
	client *openai.Client
	model  string
	policy retry.Policy
}

func NewOpenAIEmbedder(client *openai.Client, model string, policy retry.Policy) *OpenAIEmbedder {
	return &OpenAIEmbedder{
		client: client,
		model:  model,
		policy: policy.WithRetryable(IsTransient),
	}
}

// Embed sends texts in one request. Failures are reported as ErrEmbeddingProvider
// once retries are exhausted or the error is not transient.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors, err := retry.DoWithData(ctx, e.policy, func() ([][]float32, error) {
		resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
			Input:          texts,
			Model:          openai.EmbeddingModel(e.model),
			EncodingFormat: openai.EmbeddingEncodingFormatFloat,
		})
		if err != nil {
			return nil, err
		}
		return orderByIndex(resp.Data, len(texts))
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrEmbeddingProvider, err)
	}
	return vectors, nil
}

// orderByIndex places each embedding at the position of the input it belongs to.
func orderByIndex(data []openai.Embedding, want int) ([][]float32, error) {
	if len(data) != want {
		return nil, fmt.Errorf("embedding count mismatch: sent %d, got %d", want, len(data))
	}
	out := make([][]float32, want)
	for _, d := range data {
		if d.Index < 0 || d.Index >= want || out[d.Index] != nil {
			return nil, fmt.Errorf("embedding index %d out of range or duplicated", d.Index)
		}
		if len(d.Embedding) == 0 {
			return nil, fmt.Errorf("empty embedding at index %d", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}

// BatchEmbedder splits large inputs into sequential provider-sized batches.
type BatchEmbedder struct {
	next      Embedder
	batchSize int
}

func NewBatchEmbedder(next Embedder, batchSize int) *BatchEmbedder {
	if batchSize <= 0 {
		batchSize = defaultEmbeddingBatchSize
	}
	return &BatchEmbedder{next: next, batchSize: batchSize}
}

func (b *BatchEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vectors := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += b.batchSize {
		end := i + b.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := b.next.Embed(ctx, texts[i:end])
		if err != nil {
			return nil, err
		}
		if len(batch) != end-i {
			return nil, fmt.Errorf("%w: embedding count mismatch: sent %d, got %d", model.ErrEmbeddingProvider, end-i, len(batch))
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}
