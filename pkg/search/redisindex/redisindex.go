// Package redisindex is the Redis-backed search index replica. Documents are
// stored as JSON values keyed by record id; blocking keys are materialized as
// sets so suggest queries can shrink the candidate space without a sweep.
// Fuzzy evaluation happens client-side over the gathered candidates, which is
// adequate at replica scale; everything here can be rebuilt from the
// authoritative store.
package redisindex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/andes-k8s/api/pkg/match"
	"github.com/andes-k8s/api/pkg/search"
	"github.com/redis/go-redis/v9"
)

const blockingField = "claveBlocking"

type Index struct {
	client *redis.Client
	prefix string
}

func New(client *redis.Client, prefix string) *Index {
	if prefix == "" {
		prefix = "mpi"
	}
	return &Index{client: client, prefix: prefix}
}

func (i *Index) docKey(id string) string  { return i.prefix + ":doc:" + id }
func (i *Index) blockKey(k string) string { return i.prefix + ":block:" + k }
func (i *Index) idsKey() string           { return i.prefix + ":ids" }

// Upsert overwrites the document under id, maintaining the blocking-key sets.
// The returned flag reports whether a new document was created.
func (i *Index) Upsert(ctx context.Context, id string, doc search.Document) (bool, error) {
	previous, err := i.Get(ctx, id)
	created := false
	switch {
	case errors.Is(err, search.ErrNotFound):
		created = true
	case err != nil:
		return false, err
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return false, err
	}

	pipe := i.client.TxPipeline()
	for _, key := range blockingKeys(previous) {
		pipe.SRem(ctx, i.blockKey(key), id)
	}
	pipe.Set(ctx, i.docKey(id), raw, 0)
	pipe.SAdd(ctx, i.idsKey(), id)
	for _, key := range blockingKeys(doc) {
		pipe.SAdd(ctx, i.blockKey(key), id)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return created, nil
}

// Delete removes the document and its blocking-set memberships. Deleting an
// absent id is a no-op.
func (i *Index) Delete(ctx context.Context, id string) error {
	doc, err := i.Get(ctx, id)
	if errors.Is(err, search.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	pipe := i.client.TxPipeline()
	for _, key := range blockingKeys(doc) {
		pipe.SRem(ctx, i.blockKey(key), id)
	}
	pipe.Del(ctx, i.docKey(id))
	pipe.SRem(ctx, i.idsKey(), id)
	_, err = pipe.Exec(ctx)
	return err
}

func (i *Index) Get(ctx context.Context, id string) (search.Document, error) {
	raw, err := i.client.Get(ctx, i.docKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, search.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var doc search.Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (i *Index) Search(ctx context.Context, query search.Query) ([]search.Hit, error) {
	switch q := query.(type) {
	case search.ExactQuery:
		return i.searchExact(ctx, q)
	case search.FuzzyQuery:
		return i.searchFuzzy(ctx, q)
	case search.SuggestQuery:
		return i.searchSuggest(ctx, q)
	default:
		return nil, fmt.Errorf("unsupported query shape %T", query)
	}
}

func (i *Index) searchExact(ctx context.Context, q search.ExactQuery) ([]search.Hit, error) {
	docs, err := i.allDocuments(ctx)
	if err != nil {
		return nil, err
	}

	var hits []search.Hit
	for _, entry := range docs {
		matched := true
		for field, want := range q.Fields {
			if match.Normalize(stringField(entry.doc, field)) != match.Normalize(want) {
				matched = false
				break
			}
		}
		if matched {
			hits = append(hits, search.Hit{ID: entry.id, Relevance: 1, Source: entry.doc})
		}
	}
	return window(hits, q.Size, q.From), nil
}

func (i *Index) searchFuzzy(ctx context.Context, q search.FuzzyQuery) ([]search.Hit, error) {
	docs, err := i.allDocuments(ctx)
	if err != nil {
		return nil, err
	}

	terms := strings.Fields(match.Normalize(q.Text))
	if len(terms) == 0 {
		return nil, nil
	}

	var hits []search.Hit
	for _, entry := range docs {
		// Cross-field semantics: each query term is scored against its best
		// field and boosts reward which field it landed on.
		var relevance float64
		matchedTerms := 0
		for _, term := range terms {
			var best float64
			for field, boost := range q.Boosts {
				sim := termSimilarity(term, stringField(entry.doc, field))
				if weighted := sim * boost; weighted > best {
					best = weighted
				}
			}
			if best > 0 {
				matchedTerms++
				relevance += best
			}
		}
		if matchedTerms > 0 {
			hits = append(hits, search.Hit{ID: entry.id, Relevance: relevance, Source: entry.doc})
		}
	}

	sort.SliceStable(hits, func(a, b int) bool { return hits[a].Relevance > hits[b].Relevance })
	return window(hits, q.Size, q.From), nil
}

func (i *Index) searchSuggest(ctx context.Context, q search.SuggestQuery) ([]search.Hit, error) {
	terms := strings.Fields(match.Normalize(q.Text))
	if len(terms) == 0 {
		return nil, nil
	}

	var docs []indexedDocument
	var err error
	if q.Field == blockingField {
		docs, err = i.blockedDocuments(ctx, terms)
	} else {
		docs, err = i.allDocuments(ctx)
	}
	if err != nil {
		return nil, err
	}

	var hits []search.Hit
	for _, entry := range docs {
		fieldTerms := fieldTokens(entry.doc, q.Field)
		matched := 0
		for _, term := range terms {
			for _, ft := range fieldTerms {
				if withinDistance(term, ft, q.Fuzziness) {
					matched++
					break
				}
			}
		}
		if matched >= q.MinimumShouldMatch && matched > 0 {
			relevance := float64(matched) / float64(len(terms))
			hits = append(hits, search.Hit{ID: entry.id, Relevance: relevance, Source: entry.doc})
		}
	}

	sort.SliceStable(hits, func(a, b int) bool { return hits[a].Relevance > hits[b].Relevance })
	return window(hits, q.Size, q.From), nil
}

type indexedDocument struct {
	id  string
	doc search.Document
}

func (i *Index) allDocuments(ctx context.Context) ([]indexedDocument, error) {
	ids, err := i.client.SMembers(ctx, i.idsKey()).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)
	return i.fetch(ctx, ids)
}

func (i *Index) blockedDocuments(ctx context.Context, keys []string) ([]indexedDocument, error) {
	setKeys := make([]string, 0, len(keys))
	for _, k := range keys {
		setKeys = append(setKeys, i.blockKey(k))
	}
	ids, err := i.client.SUnion(ctx, setKeys...).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)
	return i.fetch(ctx, ids)
}

func (i *Index) fetch(ctx context.Context, ids []string) ([]indexedDocument, error) {
	docs := make([]indexedDocument, 0, len(ids))
	for _, id := range ids {
		doc, err := i.Get(ctx, id)
		if errors.Is(err, search.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		docs = append(docs, indexedDocument{id: id, doc: doc})
	}
	return docs, nil
}

func blockingKeys(doc search.Document) []string {
	if doc == nil {
		return nil
	}
	raw, ok := doc[blockingField].([]interface{})
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok && s != "" {
			keys = append(keys, s)
		}
	}
	return keys
}

func stringField(doc search.Document, field string) string {
	if v, ok := doc[field].(string); ok {
		return v
	}
	return ""
}

func fieldTokens(doc search.Document, field string) []string {
	if field == blockingField {
		keys := blockingKeys(doc)
		normalized := make([]string, 0, len(keys))
		for _, k := range keys {
			normalized = append(normalized, match.Normalize(k))
		}
		return normalized
	}
	return strings.Fields(match.Normalize(stringField(doc, field)))
}

// termSimilarity maps an edit distance of up to 2 into (0,1], zero beyond.
func termSimilarity(term, value string) float64 {
	for _, token := range strings.Fields(match.Normalize(value)) {
		if token == term {
			return 1
		}
		if dist := levenshtein.ComputeDistance(term, token); dist <= 2 {
			return 1 - float64(dist)*0.25
		}
	}
	return 0
}

func withinDistance(a, b string, fuzziness int) bool {
	if a == b {
		return true
	}
	if fuzziness <= 0 {
		return false
	}
	return levenshtein.ComputeDistance(a, b) <= fuzziness
}

func window(hits []search.Hit, size, from int) []search.Hit {
	if from >= len(hits) {
		return nil
	}
	hits = hits[from:]
	if size > 0 && len(hits) > size {
		hits = hits[:size]
	}
	return hits
}
