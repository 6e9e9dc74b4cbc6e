package mpi

import (
	"errors"
	"testing"
	"time"
)

func TestBuildExactQueryUsesNonEmptyFields(t *testing.T) {
	builder := NewQueryBuilder(50)
	fecha := time.Date(1987, 6, 3, 0, 0, 0, 0, time.UTC)

	query, err := builder.BuildExactQuery(PatientIdentity{
		Documento:       "30111222",
		Apellido:        "Lopez",
		Sexo:            SexoFemenino,
		FechaNacimiento: &fecha,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]string{
		"documento":       "30111222",
		"apellido":        "Lopez",
		"sexo":            "femenino",
		"fechaNacimiento": "1987-06-03",
	}
	if len(query.Fields) != len(want) {
		t.Fatalf("expected %d fields, got %v", len(want), query.Fields)
	}
	for field, value := range want {
		if query.Fields[field] != value {
			t.Fatalf("field %s: expected %q, got %q", field, value, query.Fields[field])
		}
	}
	if size, _ := query.Window(); size != 50 {
		t.Fatalf("expected window 50, got %d", size)
	}
}

func TestBuildExactQueryRejectsEmptyIdentity(t *testing.T) {
	_, err := NewQueryBuilder(0).BuildExactQuery(PatientIdentity{})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestBuildFuzzyQueryBoosts(t *testing.T) {
	query, err := NewQueryBuilder(0).BuildFuzzyQuery("30111222 lopez maria")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if query.Boosts["documento"] <= query.Boosts["apellido"] || query.Boosts["apellido"] <= query.Boosts["nombre"] {
		t.Fatalf("expected documento > apellido > nombre boosts, got %v", query.Boosts)
	}
	if size, _ := query.Window(); size != defaultWindowSize {
		t.Fatalf("expected default window, got %d", size)
	}

	if _, err := NewQueryBuilder(0).BuildFuzzyQuery("   "); err == nil {
		t.Fatal("expected error for blank text")
	}
}

func TestBuildSuggestQueryTermCap(t *testing.T) {
	builder := NewQueryBuilder(40)

	query, err := builder.BuildSuggestQuery(PatientIdentity{Documento: "30111222"}, "documento")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if query.MinimumShouldMatch != 1 {
		t.Fatalf("single-term query should cap minimum-should-match at 1, got %d", query.MinimumShouldMatch)
	}
	if query.Fuzziness != 2 {
		t.Fatalf("expected fuzziness 2, got %d", query.Fuzziness)
	}

	blocked, err := builder.BuildSuggestQuery(PatientIdentity{Documento: "30111222", Nombre: "Maria", Apellido: "Lopez"}, "claveBlocking")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if blocked.MinimumShouldMatch != 3 {
		t.Fatalf("expected minimum-should-match 3, got %d", blocked.MinimumShouldMatch)
	}

	if _, err := builder.BuildSuggestQuery(PatientIdentity{}, "documento"); err == nil {
		t.Fatal("expected error when the blocking field is empty")
	}
}
