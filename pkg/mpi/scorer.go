package mpi

import (
	"sort"
	"strings"

	"github.com/andes-k8s/api/pkg/match"
)

// Scorer computes normalized similarity scores and partitions candidates into
// tiers. It is a pure function over its inputs: no network or persistence
// side effects beyond the index query that supplied the candidates.
type Scorer struct {
	comparator match.Comparator
}

func NewScorer(comparator match.Comparator) *Scorer {
	return &Scorer{comparator: comparator}
}

// Classification holds the two returned tiers. Rejected candidates are
// dropped, not returned.
type Classification struct {
	Confident []MatchCandidate
	Possible  []MatchCandidate
}

// Best returns the Confident list when non-empty, else Possible. Callers that
// want "the" match list use this; both tiers stay available separately.
func (c Classification) Best() []MatchCandidate {
	if len(c.Confident) > 0 {
		return c.Confident
	}
	return c.Possible
}

// Classify scores every candidate against the query identity under the given
// profile. Candidates arrive in the index service's relevance order; both
// output lists are sorted descending by score with that order as the stable
// tie-break.
func (s *Scorer) Classify(candidates []PatientIndexDocument, query PatientIdentity, profile WeightProfile) Classification {
	var out Classification

	for _, candidate := range candidates {
		score := s.Score(candidate, query, profile)
		switch {
		case score >= profile.ConfidentThreshold:
			out.Confident = append(out.Confident, MatchCandidate{Document: candidate, Score: score, Tier: TierConfident})
		case score >= profile.PossibleThreshold:
			out.Possible = append(out.Possible, MatchCandidate{Document: candidate, Score: score, Tier: TierPossible})
		}
	}

	sortByScore(out.Confident)
	sortByScore(out.Possible)
	return out
}

// Score returns the weighted similarity of one candidate in [0,100]. A field
// that is unset on the query side falls back to the candidate's own value and
// so matches trivially; this reproduces the long-standing suggest behavior
// and is deliberately not corrected here.
func (s *Scorer) Score(candidate PatientIndexDocument, query PatientIdentity, profile WeightProfile) float64 {
	pairs := fieldPairs(candidate, query)

	var weightSum, scoreSum float64
	for field, pair := range pairs {
		weight := profile.Weights[field]
		if weight == 0 {
			continue
		}
		weightSum += weight
		scoreSum += weight * s.comparator.Compare(pair.query, pair.candidate)
	}

	if weightSum == 0 {
		return 0
	}
	return scoreSum / weightSum * 100
}

type fieldPair struct {
	candidate string
	query     string
}

func fieldPairs(candidate PatientIndexDocument, query PatientIdentity) map[string]fieldPair {
	pairs := map[string]fieldPair{
		"documento":       {candidate: candidate.Documento, query: query.Documento},
		"nombre":          {candidate: candidate.Nombre, query: query.Nombre},
		"apellido":        {candidate: candidate.Apellido, query: query.Apellido},
		"fechaNacimiento": {candidate: candidate.FechaNacimiento, query: match.FormatDate(query.FechaNacimiento)},
		"sexo":            {candidate: candidate.Sexo, query: string(query.Sexo)},
	}

	for field, pair := range pairs {
		pair.candidate = strings.TrimSpace(pair.candidate)
		pair.query = strings.TrimSpace(pair.query)
		if pair.query == "" {
			pair.query = pair.candidate
		}
		pairs[field] = pair
	}
	return pairs
}

func sortByScore(candidates []MatchCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
}
