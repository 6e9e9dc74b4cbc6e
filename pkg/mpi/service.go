package mpi

import (
	"context"
	"time"

	"github.com/andes-k8s/api/pkg/common/logger"
	"github.com/andes-k8s/api/pkg/search"
)

const auditDomain = "mpi"

// Service orchestrates the authoritative store, the search index and the
// audit collaborator for patient registration, lookup and matching. Every
// dependency is injected; the service holds no ambient state.
type Service struct {
	store    RecordStore
	index    search.Index
	sync     *Synchronizer
	builder  *QueryBuilder
	scorer   *Scorer
	profiles *Registry
	auditor  Auditor
}

func NewService(store RecordStore, index search.Index, sync *Synchronizer, builder *QueryBuilder, scorer *Scorer, profiles *Registry, auditor Auditor) *Service {
	return &Service{
		store:    store,
		index:    index,
		sync:     sync,
		builder:  builder,
		scorer:   scorer,
		profiles: profiles,
		auditor:  auditor,
	}
}

// Create persists a new patient record and mirrors it into the index. The
// authoritative write comes first; a failed index propagation is returned as
// a SyncFailure alongside the persisted record and never rolls it back.
func (s *Service) Create(ctx context.Context, actor Actor, record *PatientRecord) (*PatientRecord, error) {
	if record.Documento == "" && record.Nombre == "" && record.Apellido == "" {
		return nil, &ValidationError{Reason: "a new patient needs documento or a name"}
	}
	if record.Estado == "" {
		record.Estado = EstadoTemporal
	}
	record.Activo = true

	s.auditor.Stamp(record, actor)
	if err := s.store.Save(ctx, record); err != nil {
		return nil, err
	}

	s.auditor.Log(ctx, actor, auditDomain, "insert", map[string]interface{}{"paciente": record})

	if err := s.sync.OnCreate(ctx, record); err != nil {
		logger.Log.WithError(err).WithField("patient_id", record.ID).Warn("index propagation failed on create")
		return record, err
	}
	return record, nil
}

// PatientChanges carries the updatable fields. Empty fields keep the stored
// value; slices replace wholesale when non-nil.
type PatientChanges struct {
	Documento            string
	Nombre               string
	Apellido             string
	FechaNacimiento      *time.Time
	Sexo                 Sexo
	Estado               Estado
	ReportarError        *bool
	NotaError            *string
	EntidadesValidadoras []string
	Relaciones           []Relacion
	Contacto             []Contacto
	Direccion            []Direccion
}

// Update merges the changes into the stored record, saves it and syncs the
// index document. The audit wording follows the sync outcome: an index
// insert is logged as "insert" even though the authoritative operation was a
// single save.
func (s *Service) Update(ctx context.Context, actor Actor, id string, changes PatientChanges) (*PatientRecord, error) {
	record, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	original := *record

	applyChanges(record, changes)

	s.auditor.Stamp(record, actor)
	if err := s.store.Save(ctx, record); err != nil {
		return nil, err
	}

	inserted, syncErr := s.sync.Sync(ctx, record)
	action := "update"
	if inserted {
		action = "insert"
	}
	s.auditor.Log(ctx, actor, auditDomain, action, map[string]interface{}{
		"original": original,
		"nuevo":    record,
	})

	if syncErr != nil {
		logger.Log.WithError(syncErr).WithField("patient_id", record.ID).Warn("index propagation failed on update")
		return record, syncErr
	}
	return record, nil
}

// Delete removes a patient from the authoritative store and then from the
// index. Records with linked relations cannot be hard-deleted; a failed index
// deletion does not fail the operation.
func (s *Service) Delete(ctx context.Context, actor Actor, id string) error {
	record, err := s.store.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if len(record.Relaciones) > 0 {
		return ErrHasRelations
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.sync.OnDelete(ctx, record)
	s.auditor.Log(ctx, actor, auditDomain, "delete", map[string]interface{}{"paciente": record})
	return nil
}

// Find returns the authoritative record, ErrNotFound when the id is unknown.
func (s *Service) Find(ctx context.Context, id string) (*PatientRecord, error) {
	return s.store.FindByID(ctx, id)
}

// MatchMode selects how candidates are gathered before scoring.
type MatchMode string

const (
	// MatchExact is the deterministic duplicate check over all supplied fields.
	MatchExact MatchMode = "exactMatch"
	// MatchSuggest shrinks the candidate set through one blocking field and
	// relies on scoring to rank the bucket.
	MatchSuggest MatchMode = "suggest"
)

// MatchOptions tunes a match call. Profile wins over Escaneado when set.
type MatchOptions struct {
	Mode          MatchMode
	BlockingField string
	Escaneado     bool
	Profile       string
}

// Match gathers candidates for the identity fragment and partitions them into
// tiers under the selected weight profile.
func (s *Service) Match(ctx context.Context, identity PatientIdentity, opts MatchOptions) (Classification, error) {
	profile, err := s.profiles.Get(s.profileName(opts))
	if err != nil {
		return Classification{}, err
	}

	var query search.Query
	switch opts.Mode {
	case MatchExact:
		query, err = s.builder.BuildExactQuery(identity)
	default:
		field := opts.BlockingField
		if field == "" {
			field = "claveBlocking"
		}
		query, err = s.builder.BuildSuggestQuery(identity, field)
	}
	if err != nil {
		return Classification{}, err
	}

	hits, err := s.index.Search(ctx, query)
	if err != nil {
		return Classification{}, err
	}

	candidates := make([]PatientIndexDocument, 0, len(hits))
	for _, hit := range hits {
		doc, err := DocumentFromHit(hit)
		if err != nil {
			logger.Log.WithError(err).WithField("hit_id", hit.ID).Warn("skipping malformed index document")
			continue
		}
		candidates = append(candidates, doc)
	}

	return s.scorer.Classify(candidates, identity, profile), nil
}

func (s *Service) profileName(opts MatchOptions) string {
	switch {
	case opts.Profile != "":
		return opts.Profile
	case opts.Escaneado:
		return ProfileScanned
	case opts.Mode == MatchSuggest:
		return ProfileMinimal
	default:
		return ProfileDefault
	}
}

// Search runs the cross-field fuzzy query and returns candidates in the
// index service's relevance order, without local re-scoring.
func (s *Service) Search(ctx context.Context, freeText string) ([]PatientIndexDocument, error) {
	query, err := s.builder.BuildFuzzyQuery(freeText)
	if err != nil {
		return nil, err
	}

	hits, err := s.index.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	docs := make([]PatientIndexDocument, 0, len(hits))
	for _, hit := range hits {
		doc, err := DocumentFromHit(hit)
		if err != nil {
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func applyChanges(record *PatientRecord, changes PatientChanges) {
	if changes.Documento != "" {
		record.Documento = changes.Documento
	}
	if changes.Nombre != "" {
		record.Nombre = changes.Nombre
	}
	if changes.Apellido != "" {
		record.Apellido = changes.Apellido
	}
	if changes.FechaNacimiento != nil {
		record.FechaNacimiento = changes.FechaNacimiento
	}
	if changes.Sexo != "" {
		record.Sexo = changes.Sexo
	}
	if changes.Estado != "" {
		record.Estado = changes.Estado
	}
	if changes.ReportarError != nil {
		record.ReportarError = *changes.ReportarError
	}
	if changes.NotaError != nil {
		record.NotaError = *changes.NotaError
	}
	if changes.EntidadesValidadoras != nil {
		record.EntidadesValidadoras = changes.EntidadesValidadoras
	}
	if changes.Relaciones != nil {
		record.Relaciones = changes.Relaciones
	}
	if changes.Contacto != nil {
		record.Contacto = changes.Contacto
	}
	if changes.Direccion != nil {
		record.Direccion = changes.Direccion
	}
}
