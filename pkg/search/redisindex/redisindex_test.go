package redisindex

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/andes-k8s/api/pkg/search"
	"github.com/redis/go-redis/v9"
)

func setupIndex(t *testing.T) (*miniredis.Miniredis, *Index) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, New(client, "mpi")
}

func patientDoc(id, documento, nombre, apellido string, keys ...string) search.Document {
	clave := make([]interface{}, 0, len(keys))
	for _, k := range keys {
		clave = append(clave, k)
	}
	return search.Document{
		"id":            id,
		"documento":     documento,
		"nombre":        nombre,
		"apellido":      apellido,
		"claveBlocking": clave,
	}
}

func mustUpsert(t *testing.T, idx *Index, id string, doc search.Document) {
	t.Helper()
	if _, err := idx.Upsert(context.Background(), id, doc); err != nil {
		t.Fatalf("upsert %s: %v", id, err)
	}
}

func TestUpsertReportsCreation(t *testing.T) {
	_, idx := setupIndex(t)
	ctx := context.Background()

	doc := patientDoc("p-1", "30111222", "Maria", "Lopez", "doc:30111222")
	created, err := idx.Upsert(ctx, "p-1", doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created {
		t.Fatal("first upsert should report creation")
	}

	doc["nombre"] = "Maria Jose"
	created, err = idx.Upsert(ctx, "p-1", doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created {
		t.Fatal("second upsert should report an update")
	}

	stored, err := idx.Get(ctx, "p-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored["nombre"] != "Maria Jose" {
		t.Fatalf("stored document should carry the overwrite, got %v", stored["nombre"])
	}
}

func TestUpsertMovesBlockingMembership(t *testing.T) {
	mr, idx := setupIndex(t)
	ctx := context.Background()

	mustUpsert(t, idx, "p-1", patientDoc("p-1", "30111222", "Maria", "Lopez", "doc:30111222", "ape:lpz"))
	mustUpsert(t, idx, "p-1", patientDoc("p-1", "30111222", "Maria", "Lopes", "doc:30111222", "ape:lps"))

	if members, _ := mr.SMembers("mpi:block:ape:lpz"); len(members) != 0 {
		t.Fatalf("stale blocking set should be emptied, got %v", members)
	}
	members, err := mr.SMembers("mpi:block:ape:lps")
	if err != nil || len(members) != 1 || members[0] != "p-1" {
		t.Fatalf("new blocking set should hold the id, got %v (%v)", members, err)
	}

	hits, err := idx.Search(ctx, search.SuggestQuery{
		Field: "claveBlocking", Text: "ape:lps", MinimumShouldMatch: 1, Size: 10,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "p-1" {
		t.Fatalf("suggest over the new key should find the document, got %v", hits)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	mr, idx := setupIndex(t)
	ctx := context.Background()

	mustUpsert(t, idx, "p-1", patientDoc("p-1", "30111222", "Maria", "Lopez", "doc:30111222"))

	if err := idx.Delete(ctx, "p-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := idx.Get(ctx, "p-1"); !errors.Is(err, search.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if members, _ := mr.SMembers("mpi:block:doc:30111222"); len(members) != 0 {
		t.Fatalf("blocking membership should be gone, got %v", members)
	}

	// Absent id is a no-op, not an error.
	if err := idx.Delete(ctx, "p-1"); err != nil {
		t.Fatalf("repeated delete should be silent, got %v", err)
	}
}

func TestSearchExactMatchesNormalizedFields(t *testing.T) {
	_, idx := setupIndex(t)
	ctx := context.Background()

	mustUpsert(t, idx, "p-1", patientDoc("p-1", "30111222", "María", "López"))
	mustUpsert(t, idx, "p-2", patientDoc("p-2", "30111222", "Mario", "Lopez"))
	mustUpsert(t, idx, "p-3", patientDoc("p-3", "99887766", "Maria", "Lopez"))

	hits, err := idx.Search(ctx, search.ExactQuery{
		Fields: map[string]string{"documento": "30111222", "nombre": "maria"},
		Size:   10,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "p-1" {
		t.Fatalf("accents and case must not break an exact match, got %v", hits)
	}
}

func TestSearchFuzzyOrdersByBoostedRelevance(t *testing.T) {
	_, idx := setupIndex(t)
	ctx := context.Background()

	mustUpsert(t, idx, "p-doc", patientDoc("p-doc", "30111222", "Pedro", "Suarez"))
	mustUpsert(t, idx, "p-ape", patientDoc("p-ape", "99887766", "Carla", "30111222"))
	mustUpsert(t, idx, "p-nom", patientDoc("p-nom", "55443322", "30111222", "Gimenez"))

	hits, err := idx.Search(ctx, search.FuzzyQuery{
		Text:   "30111222",
		Boosts: map[string]float64{"documento": 5, "apellido": 3, "nombre": 1},
		Size:   10,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 3 {
		t.Fatalf("the term appears in one field of each document, got %d hits", len(hits))
	}
	if hits[0].ID != "p-doc" || hits[1].ID != "p-ape" || hits[2].ID != "p-nom" {
		t.Fatalf("documento outranks apellido outranks nombre, got %v, %v, %v", hits[0].ID, hits[1].ID, hits[2].ID)
	}
	if hits[0].Relevance <= hits[1].Relevance || hits[1].Relevance <= hits[2].Relevance {
		t.Fatal("relevance must decrease with the boost of the matched field")
	}
}

func TestSearchFuzzyToleratesTypos(t *testing.T) {
	_, idx := setupIndex(t)
	ctx := context.Background()

	mustUpsert(t, idx, "p-1", patientDoc("p-1", "30111222", "Maria", "Gonzalez"))

	hits, err := idx.Search(ctx, search.FuzzyQuery{
		Text:   "gonsales",
		Boosts: map[string]float64{"apellido": 3, "nombre": 1},
		Size:   10,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("two edits away should still hit, got %v", hits)
	}
}

func TestSearchSuggestHonorsMinimumShouldMatch(t *testing.T) {
	_, idx := setupIndex(t)
	ctx := context.Background()

	mustUpsert(t, idx, "p-full", patientDoc("p-full", "1", "Maria Jose Del Carmen", "Lopez"))
	mustUpsert(t, idx, "p-partial", patientDoc("p-partial", "2", "Maria", "Lopez"))

	hits, err := idx.Search(ctx, search.SuggestQuery{
		Field: "nombre", Text: "maria jose carmen",
		MinimumShouldMatch: 3, Fuzziness: 2, Size: 10,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "p-full" {
		t.Fatalf("only the document matching all three terms qualifies, got %v", hits)
	}
}

func TestSearchSuggestOverBlockingKeysUsesSets(t *testing.T) {
	_, idx := setupIndex(t)
	ctx := context.Background()

	mustUpsert(t, idx, "p-1", patientDoc("p-1", "30111222", "Maria", "Lopez", "doc:30111222", "ape:lpz"))
	mustUpsert(t, idx, "p-2", patientDoc("p-2", "99887766", "Laura", "Lopez", "doc:99887766", "ape:lpz"))
	mustUpsert(t, idx, "p-3", patientDoc("p-3", "55443322", "Pedro", "Suarez", "doc:55443322", "ape:srz"))

	hits, err := idx.Search(ctx, search.SuggestQuery{
		Field: "claveBlocking", Text: "ape:lpz",
		MinimumShouldMatch: 1, Size: 10,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("both Lopez buckets should come back, got %v", hits)
	}
	for _, h := range hits {
		if h.ID == "p-3" {
			t.Fatal("a document outside the blocking bucket must not appear")
		}
	}
}

func TestWindowPaginates(t *testing.T) {
	_, idx := setupIndex(t)
	ctx := context.Background()

	for _, id := range []string{"p-1", "p-2", "p-3"} {
		mustUpsert(t, idx, id, patientDoc(id, "30111222", "Maria", "Lopez"))
	}

	hits, err := idx.Search(ctx, search.ExactQuery{
		Fields: map[string]string{"documento": "30111222"},
		Size:   2, From: 2,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "p-3" {
		t.Fatalf("pagination should clip to the remaining tail, got %v", hits)
	}
}
