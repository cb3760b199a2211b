package ctxcache

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/tiktoken-go/tokenizer"
)

// Cost units reported in selection results.
const (
	UnitBytes  = "bytes"
	UnitTokens = "tokens"
)

// CostModel measures how much of a budget a document consumes.
// Implementations must be deterministic.
type CostModel interface {
	Cost(doc ScoredDocument) (int64, error)
	Unit() string
}

// ByteCost charges a document its content length in bytes. It is the default.
type ByteCost struct{}

// Cost implements CostModel.
func (ByteCost) Cost(doc ScoredDocument) (int64, error) {
	return int64(len(doc.Content)), nil
}

// Unit implements CostModel.
func (ByteCost) Unit() string {
	return UnitBytes
}

// DefaultTokenMemoSize is the number of token counts a TokenCost remembers.
const DefaultTokenMemoSize = 4096

// TokenCost charges a document the number of o200k_base tokens in its
// content. Counts are memoised per instance, keyed by a content digest.
// A TokenCost is safe for concurrent use.
type TokenCost struct {
	codec tokenizer.Codec
	memo  *lru.Cache[contentKey, int64]
}

type contentKey struct {
	digest uint64
	size   int
}

// NewTokenCost creates a TokenCost remembering up to memoSize counts.
// A non-positive memoSize selects DefaultTokenMemoSize.
func NewTokenCost(memoSize int) (*TokenCost, error) {
	if memoSize <= 0 {
		memoSize = DefaultTokenMemoSize
	}
	codec, err := tokenizer.Get(tokenizer.O200kBase)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer: %w", err)
	}
	memo, err := lru.New[contentKey, int64](memoSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create token memo: %w", err)
	}
	return &TokenCost{codec: codec, memo: memo}, nil
}

// Cost implements CostModel.
func (t *TokenCost) Cost(doc ScoredDocument) (int64, error) {
	key := contentKey{digest: xxhash.Sum64(doc.Content), size: len(doc.Content)}
	if n, ok := t.memo.Get(key); ok {
		return n, nil
	}

	n, err := t.codec.Count(string(doc.Content))
	if err != nil {
		return 0, fmt.Errorf("failed to count tokens: %w", err)
	}
	t.memo.Add(key, int64(n))
	return int64(n), nil
}

// Unit implements CostModel.
func (t *TokenCost) Unit() string {
	return UnitTokens
}
