package search

import (
	"context"
	"errors"
)

// ErrNotFound reports that no document exists under the requested id. It is
// distinct from transport or availability failures.
var ErrNotFound = errors.New("search: document not found")

// Document is the denormalized JSON projection stored in the index. The index
// is a derived replica: it is never the source of truth and can be rebuilt
// from the authoritative store at any time.
type Document map[string]interface{}

// Hit is a single search result. Hits are returned in the index service's own
// relevance order; callers that re-score locally must keep that order as the
// tie-break.
type Hit struct {
	ID        string
	Relevance float64
	Source    Document
}

// Query is one of the three abstract query shapes the matching core builds:
// ExactQuery, FuzzyQuery or SuggestQuery.
type Query interface {
	Window() (size, from int)
}

// ExactQuery is a conjunction over the supplied fields; every field present
// must match the stored value.
type ExactQuery struct {
	Fields map[string]string
	Size   int
	From   int
}

func (q ExactQuery) Window() (int, int) { return q.Size, q.From }

// FuzzyQuery spreads one free-text input across several fields with per-field
// boosts. Cross-field semantics: a fragment matching any field contributes to
// the score, it is not required to match one specific field.
type FuzzyQuery struct {
	Text   string
	Boosts map[string]float64
	Size   int
	From   int
}

func (q FuzzyQuery) Window() (int, int) { return q.Size, q.From }

// SuggestQuery is a fuzzy match restricted to one designated field, with a
// minimum-term-match requirement and a bounded edit distance.
type SuggestQuery struct {
	Field              string
	Text               string
	MinimumShouldMatch int
	Fuzziness          int
	Size               int
	From               int
}

func (q SuggestQuery) Window() (int, int) { return q.Size, q.From }

// Index is the search index service consumed by the matching core. Upsert and
// Delete are keyed by the authoritative record id.
type Index interface {
	Search(ctx context.Context, query Query) ([]Hit, error)
	Upsert(ctx context.Context, id string, doc Document) (created bool, err error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (Document, error)
}
