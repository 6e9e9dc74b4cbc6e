package mpi

import (
	"strings"

	"github.com/andes-k8s/api/pkg/match"
	"github.com/andes-k8s/api/pkg/search"
)

const defaultWindowSize = 100

// Boosts applied to the cross-field fuzzy query. The document number is the
// strongest discriminator, the surname next, the given name baseline.
var fuzzyBoosts = map[string]float64{
	"documento": 5,
	"apellido":  3,
	"nombre":    1,
}

// QueryBuilder shapes the three abstract query kinds the index understands.
type QueryBuilder struct {
	windowSize int
}

func NewQueryBuilder(windowSize int) *QueryBuilder {
	if windowSize <= 0 {
		windowSize = defaultWindowSize
	}
	return &QueryBuilder{windowSize: windowSize}
}

// BuildExactQuery is the deterministic duplicate check: a conjunction over
// every non-empty identity field. All supplied fields must match.
func (b *QueryBuilder) BuildExactQuery(identity PatientIdentity) (search.ExactQuery, error) {
	fields := map[string]string{}
	if identity.Documento != "" {
		fields["documento"] = identity.Documento
	}
	if identity.Apellido != "" {
		fields["apellido"] = identity.Apellido
	}
	if identity.Nombre != "" {
		fields["nombre"] = identity.Nombre
	}
	if identity.Sexo != "" {
		fields["sexo"] = string(identity.Sexo)
	}
	if fecha := match.FormatDate(identity.FechaNacimiento); fecha != "" {
		fields["fechaNacimiento"] = fecha
	}

	if len(fields) == 0 {
		return search.ExactQuery{}, &ValidationError{Reason: "exact query needs at least one field"}
	}

	return search.ExactQuery{Fields: fields, Size: b.windowSize}, nil
}

// BuildFuzzyQuery spreads free text across documento, apellido and nombre
// with cross-field semantics.
func (b *QueryBuilder) BuildFuzzyQuery(freeText string) (search.FuzzyQuery, error) {
	freeText = strings.TrimSpace(freeText)
	if freeText == "" {
		return search.FuzzyQuery{}, &ValidationError{Reason: "fuzzy query needs free text"}
	}

	return search.FuzzyQuery{
		Text:   freeText,
		Boosts: fuzzyBoosts,
		Size:   b.windowSize,
	}, nil
}

// BuildSuggestQuery restricts a fuzzy match to one designated field, usually
// the blocking key field or documento. The minimum-term-match requirement is
// 3 terms, or fewer when the query itself has fewer.
func (b *QueryBuilder) BuildSuggestQuery(identity PatientIdentity, blockingField string) (search.SuggestQuery, error) {
	text := suggestText(identity, blockingField)
	if text == "" {
		return search.SuggestQuery{}, &ValidationError{Reason: "suggest query needs a value for field " + blockingField}
	}

	minimumShouldMatch := 3
	if terms := len(strings.Fields(text)); terms < minimumShouldMatch {
		minimumShouldMatch = terms
	}

	return search.SuggestQuery{
		Field:              blockingField,
		Text:               text,
		MinimumShouldMatch: minimumShouldMatch,
		Fuzziness:          2,
		Size:               b.windowSize,
	}, nil
}

func suggestText(identity PatientIdentity, field string) string {
	switch field {
	case "claveBlocking":
		return strings.Join(DeriveKeys(identity), " ")
	case "documento":
		return identity.Documento
	case "apellido":
		return identity.Apellido
	case "nombre":
		return identity.Nombre
	default:
		return ""
	}
}
