package ctxcache

import (
	"bytes"
	"strings"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
)

// TitleKey is the metadata key scorers read a document title from.
const TitleKey = "title"

// Query is a caller-supplied selection query. The empty query is valid.
type Query string

// NewQuery wraps s as a Query.
func NewQuery(s string) Query {
	return Query(s)
}

// String returns the raw query text.
func (q Query) String() string {
	return string(q)
}

// Terms returns the distinct lower-cased terms of the query in first-seen order.
func (q Query) Terms() []string {
	seen := make(map[string]struct{})
	var terms []string
	for _, t := range Tokenize([]byte(q)) {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		terms = append(terms, t)
	}
	return terms
}

// ScoredDocument is the view of a cached document handed to a Scorer.
type ScoredDocument struct {
	Entry   DocumentEntry
	Content []byte
}

// Scorer ranks a document against a query. Implementations must be pure:
// the same query and document always give the same score. Higher is better.
type Scorer interface {
	Score(q Query, doc ScoredDocument) int64
}

// ScorerFunc adapts a plain function to the Scorer interface.
type ScorerFunc func(q Query, doc ScoredDocument) int64

// Score implements Scorer.
func (f ScorerFunc) Score(q Query, doc ScoredDocument) int64 {
	return f(q, doc)
}

var (
	wordTokenizer = unicode.NewUnicodeTokenizer()
	lowerFilter   = lowercase.NewLowerCaseFilter()
)

// Tokenize splits text into lower-cased terms on Unicode word boundaries.
// text is not modified.
func Tokenize(text []byte) []string {
	if len(text) == 0 {
		return nil
	}
	// Tokens alias their input and the lowercase filter rewrites them in place
	var stream analysis.TokenStream = wordTokenizer.Tokenize(bytes.Clone(text))
	stream = lowerFilter.Filter(stream)

	terms := make([]string, 0, len(stream))
	for _, tok := range stream {
		if len(tok.Term) > 0 {
			terms = append(terms, string(tok.Term))
		}
	}
	return terms
}

// TermScorer counts query term occurrences. A hit in the document's source
// path or title counts PathWeight times; a hit in the content counts once.
// Scores are exact integers, so ranking never depends on float rounding.
type TermScorer struct {
	PathWeight int64
}

// NewTermScorer returns the default scorer.
func NewTermScorer() TermScorer {
	return TermScorer{PathWeight: 3}
}

// Name identifies the scorer in selection results.
func (s TermScorer) Name() string {
	return "terms"
}

// Score implements Scorer. An empty query scores zero for every document.
func (s TermScorer) Score(q Query, doc ScoredDocument) int64 {
	terms := q.Terms()
	if len(terms) == 0 {
		return 0
	}

	content := termCounts(doc.Content)
	path := termCounts([]byte(splitPath(doc.Entry.Source)))
	title := termCounts([]byte(doc.Entry.Metadata[TitleKey]))

	var score int64
	for _, t := range terms {
		score += content[t] + s.PathWeight*(path[t]+title[t])
	}
	return score
}

// splitPath turns path punctuation into spaces so "docs/deployment.md"
// yields "docs", "deployment" and "md" rather than a single word.
func splitPath(p string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', '.', '_', '-':
			return ' '
		}
		return r
	}, p)
}

func termCounts(text []byte) map[string]int64 {
	counts := make(map[string]int64)
	for _, t := range Tokenize(text) {
		counts[t]++
	}
	return counts
}

// scorerName returns the name a scorer reports, if it reports one.
func scorerName(s Scorer) string {
	if n, ok := s.(interface{ Name() string }); ok {
		return n.Name()
	}
	return "custom"
}
