package mpi

import (
	"time"

	"gorm.io/datatypes"
)

// Estado is the lifecycle state of a patient record.
type Estado string

const (
	EstadoTemporal     Estado = "temporal"
	EstadoIdentificado Estado = "identificado"
	EstadoValidado     Estado = "validado"
	EstadoRecienNacido Estado = "recienNacido"
	EstadoExtranjero   Estado = "extranjero"
)

// Sexo values follow the civil registry enumeration.
type Sexo string

const (
	SexoFemenino  Sexo = "femenino"
	SexoMasculino Sexo = "masculino"
	SexoOtro      Sexo = "otro"
)

// PatientIdentity is the matchable field set of a person. It doubles as the
// query fragment a caller supplies and as the projection extracted from a
// stored record. Any field may be empty.
type PatientIdentity struct {
	Documento       string     `json:"documento"`
	Nombre          string     `json:"nombre"`
	Apellido        string     `json:"apellido"`
	FechaNacimiento *time.Time `json:"fechaNacimiento,omitempty"`
	Sexo            Sexo       `json:"sexo,omitempty"`
}

// Relacion links a record to another person (tutor, parent, child).
type Relacion struct {
	Relacion   string `json:"relacion"`
	Referencia string `json:"referencia"`
}

// Contacto is a ranked contact point.
type Contacto struct {
	Tipo    string `json:"tipo"`
	Valor   string `json:"valor"`
	Ranking int    `json:"ranking"`
	Activo  bool   `json:"activo"`
}

// Direccion is a ranked address entry.
type Direccion struct {
	Valor        string `json:"valor"`
	CodigoPostal string `json:"codigoPostal"`
	Ranking      int    `json:"ranking"`
	Activo       bool   `json:"activo"`
}

// PatientRecord is the authoritative patient entity. The search index holds a
// derived projection of it and is never consulted for field values.
type PatientRecord struct {
	ID              string     `gorm:"primaryKey;column:id" json:"id"`
	Documento       string     `gorm:"column:documento;index" json:"documento"`
	Nombre          string     `gorm:"column:nombre" json:"nombre"`
	Apellido        string     `gorm:"column:apellido;index" json:"apellido"`
	FechaNacimiento *time.Time `gorm:"column:fecha_nacimiento" json:"fechaNacimiento,omitempty"`
	Sexo            Sexo       `gorm:"column:sexo" json:"sexo,omitempty"`
	Estado          Estado     `gorm:"column:estado" json:"estado"`
	Activo          bool       `gorm:"column:activo" json:"activo"`

	ReportarError bool   `gorm:"column:reportar_error;index" json:"reportarError"`
	NotaError     string `gorm:"column:nota_error" json:"notaError,omitempty"`

	EntidadesValidadoras datatypes.JSONSlice[string]    `gorm:"column:entidades_validadoras" json:"entidadesValidadoras,omitempty"`
	Relaciones           datatypes.JSONSlice[Relacion]  `gorm:"column:relaciones" json:"relaciones,omitempty"`
	Contacto             datatypes.JSONSlice[Contacto]  `gorm:"column:contacto" json:"contacto,omitempty"`
	Direccion            datatypes.JSONSlice[Direccion] `gorm:"column:direccion" json:"direccion,omitempty"`

	CreatedBy      string    `gorm:"column:created_by" json:"createdBy,omitempty"`
	UpdatedBy      string    `gorm:"column:updated_by" json:"updatedBy,omitempty"`
	OrganizationID string    `gorm:"column:organization_id" json:"organizationId,omitempty"`
	CreatedAt      time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt      time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

func (PatientRecord) TableName() string {
	return "pacientes"
}

// Identity extracts the matchable field set of the record.
func (r *PatientRecord) Identity() PatientIdentity {
	return PatientIdentity{
		Documento:       r.Documento,
		Nombre:          r.Nombre,
		Apellido:        r.Apellido,
		FechaNacimiento: r.FechaNacimiento,
		Sexo:            r.Sexo,
	}
}

// HasValidator reports whether the named verification source was already
// applied to this record.
func (r *PatientRecord) HasValidator(name string) bool {
	for _, v := range r.EntidadesValidadoras {
		if v == name {
			return true
		}
	}
	return false
}

// AddValidator appends the source with set semantics.
func (r *PatientRecord) AddValidator(name string) {
	if !r.HasValidator(name) {
		r.EntidadesValidadoras = append(r.EntidadesValidadoras, name)
	}
}

// PatientIndexDocument is the denormalized projection mirrored into the
// search index under the record's id.
type PatientIndexDocument struct {
	ID              string   `json:"id"`
	Documento       string   `json:"documento"`
	Nombre          string   `json:"nombre"`
	Apellido        string   `json:"apellido"`
	FechaNacimiento string   `json:"fechaNacimiento,omitempty"`
	Sexo            string   `json:"sexo,omitempty"`
	Estado          string   `json:"estado"`
	ClaveBlocking   []string `json:"claveBlocking"`
}

// Tier is the classification bucket assigned to a scored candidate.
type Tier string

const (
	TierConfident Tier = "confident"
	TierPossible  Tier = "possible"
	TierRejected  Tier = "rejected"
)

// MatchCandidate pairs an index document with its computed score. Produced
// transiently by a match query, never persisted.
type MatchCandidate struct {
	Document PatientIndexDocument `json:"paciente"`
	Score    float64              `json:"match"`
	Tier     Tier                 `json:"tier"`
}
