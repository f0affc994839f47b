package retrieval

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"math"

	"agentegen/internal/notice"
)

// Embedding is the vector for a query plus whether it came from the fallback
type Embedding struct {
	Vector   []float32
	Fallback bool
	Err      error // why the fallback was used; nil otherwise
}

// Embed returns the embedding of text. When the embedding service is missing
// or fails, it returns PseudoEmbedding(text) flagged as a fallback so the
// pipeline keeps going, at the cost of meaningful similarity.
func (c *Client) Embed(ctx context.Context, text string) Embedding {
	if c.embedder == nil {
		return c.fallbackEmbedding(ctx, text, &Error{Kind: KindEmbedding, Err: errors.New("embedding service not configured")})
	}

	vector, err := c.embedder.Embed(ctx, text)
	if err != nil {
		return c.fallbackEmbedding(ctx, text, &Error{Kind: KindEmbedding, Err: err})
	}

	return Embedding{Vector: fitDimensions(vector, c.dimensions)}
}

func (c *Client) fallbackEmbedding(ctx context.Context, text string, err *Error) Embedding {
	notice.Warn(ctx, "Embedding service unavailable, using a hash-based vector (%v)", err)
	return Embedding{
		Vector:   PseudoEmbedding(text, c.dimensions),
		Fallback: true,
		Err:      err,
	}
}

// PseudoEmbedding derives a deterministic vector of length dims from the
// SHA-256 of text. The digest is stretched in counter mode and each 4-byte
// word is mapped to [-1, 1]. It carries no semantic meaning.
func PseudoEmbedding(text string, dims int) []float32 {
	if dims <= 0 {
		return []float32{}
	}

	seed := sha256.Sum256([]byte(text))
	vector := make([]float32, 0, dims)

	var counter uint32
	for len(vector) < dims {
		var block [sha256.Size + 4]byte
		copy(block[:], seed[:])
		binary.BigEndian.PutUint32(block[sha256.Size:], counter)
		digest := sha256.Sum256(block[:])

		for i := 0; i+4 <= len(digest) && len(vector) < dims; i += 4 {
			word := binary.BigEndian.Uint32(digest[i : i+4])
			vector = append(vector, float32(float64(word)/math.MaxUint32*2-1))
		}
		counter++
	}

	return vector
}

// fitDimensions pads with zeros or truncates so every vector sent to the
// store has the same length
func fitDimensions(vector []float32, dims int) []float32 {
	if dims <= 0 || len(vector) == dims {
		return vector
	}
	if len(vector) > dims {
		return vector[:dims]
	}
	padded := make([]float32, dims)
	copy(padded, vector)
	return padded
}
