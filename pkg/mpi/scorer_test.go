package mpi

import (
	"testing"

	"github.com/andes-k8s/api/pkg/match"
)

func equalWeightProfile() WeightProfile {
	return WeightProfile{
		Name: "equal",
		Weights: map[string]float64{
			"documento":       1,
			"nombre":          1,
			"apellido":        1,
			"fechaNacimiento": 1,
			"sexo":            1,
		},
		ConfidentThreshold: 95,
		PossibleThreshold:  80,
	}
}

func TestClassifyTierPartition(t *testing.T) {
	scorer := NewScorer(match.NewComparator())
	profile := equalWeightProfile()
	query := PatientIdentity{Documento: "30111222", Nombre: "Maria", Apellido: "Lopez"}

	candidates := []PatientIndexDocument{
		{ID: "exact", Documento: "30111222", Nombre: "Maria", Apellido: "Lopez"},
		{ID: "close", Documento: "30111223", Nombre: "Maria", Apellido: "Lopez"},
		{ID: "far", Documento: "99999999", Nombre: "Zoe", Apellido: "Quintana"},
	}

	result := scorer.Classify(candidates, query, profile)

	for _, c := range result.Confident {
		if c.Score < profile.ConfidentThreshold {
			t.Fatalf("candidate %s in Confident with score %.1f", c.Document.ID, c.Score)
		}
	}
	for _, c := range result.Possible {
		if c.Score >= profile.ConfidentThreshold || c.Score < profile.PossibleThreshold {
			t.Fatalf("candidate %s in Possible with score %.1f", c.Document.ID, c.Score)
		}
	}
	for _, c := range append(result.Confident, result.Possible...) {
		if c.Document.ID == "far" {
			t.Fatal("rejected candidate should be dropped, not returned")
		}
	}
	if len(result.Confident) == 0 {
		t.Fatal("expected the exact candidate in the Confident tier")
	}
}

func TestScoreUnsetQueryFieldMatchesTrivially(t *testing.T) {
	scorer := NewScorer(match.NewComparator())
	profile := equalWeightProfile()

	// fechaNacimiento is unset on the query side; the two candidates differ
	// only there, so the field must not move the score.
	query := PatientIdentity{Documento: "30111222", Nombre: "Maria", Apellido: "Lopez", Sexo: SexoFemenino}

	a := PatientIndexDocument{Documento: "30111222", Nombre: "Maria", Apellido: "Lopez", Sexo: "femenino", FechaNacimiento: "1987-06-03"}
	b := PatientIndexDocument{Documento: "30111222", Nombre: "Maria", Apellido: "Lopez", Sexo: "femenino", FechaNacimiento: "1990-12-24"}

	scoreA := scorer.Score(a, query, profile)
	scoreB := scorer.Score(b, query, profile)
	if scoreA != scoreB {
		t.Fatalf("unset query field changed the score: %.2f vs %.2f", scoreA, scoreB)
	}
	if scoreA != 100 {
		t.Fatalf("expected a full match, got %.2f", scoreA)
	}
}

func TestClassifyAccentedVariantScenario(t *testing.T) {
	scorer := NewScorer(match.NewComparator())
	profile, err := DefaultRegistry().Get(ProfileDefault)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	query := PatientIdentity{Documento: "30111222", Nombre: "Maria", Apellido: "Lopez"}
	candidates := []PatientIndexDocument{
		{ID: "A", Documento: "30111222", Nombre: "Maria", Apellido: "Lopez"},
		{ID: "B", Documento: "30111222", Nombre: "María", Apellido: "Lopez"},
	}

	result := scorer.Classify(candidates, query, profile)
	if len(result.Confident) != 2 {
		t.Fatalf("expected both variants in the Confident tier, got %d", len(result.Confident))
	}
	if result.Confident[0].Score < result.Confident[1].Score {
		t.Fatal("confident tier must be sorted descending by score")
	}
	// Diacritics are stripped before comparison, so the scores tie and the
	// index relevance order decides.
	if result.Confident[0].Document.ID != "A" {
		t.Fatalf("tie should preserve index order, got %s first", result.Confident[0].Document.ID)
	}
}

func TestBestPrefersConfident(t *testing.T) {
	confident := MatchCandidate{Score: 97, Tier: TierConfident}
	possible := MatchCandidate{Score: 85, Tier: TierPossible}

	c := Classification{Confident: []MatchCandidate{confident}, Possible: []MatchCandidate{possible}}
	if best := c.Best(); len(best) != 1 || best[0].Tier != TierConfident {
		t.Fatalf("expected the Confident list, got %v", best)
	}

	c = Classification{Possible: []MatchCandidate{possible}}
	if best := c.Best(); len(best) != 1 || best[0].Tier != TierPossible {
		t.Fatalf("expected the Possible fallback, got %v", best)
	}
}
