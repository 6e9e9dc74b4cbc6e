package mpi

import (
	"context"
	"encoding/json"

	"github.com/andes-k8s/api/pkg/common/logger"
	"github.com/andes-k8s/api/pkg/match"
	"github.com/andes-k8s/api/pkg/observability/metrics"
	"github.com/andes-k8s/api/pkg/search"
)

// Synchronizer mirrors authoritative mutations into the search index. The
// index is advisory: propagation failures are surfaced so callers can alert,
// but the authoritative write is never rolled back and never blocked.
type Synchronizer struct {
	index search.Index
}

func NewSynchronizer(index search.Index) *Synchronizer {
	return &Synchronizer{index: index}
}

// ProjectRecord builds the index document for a record, including the derived
// blocking key set. The projection is rebuildable at any time, which is what
// an out-of-band full index rebuild relies on.
func ProjectRecord(record *PatientRecord) PatientIndexDocument {
	return PatientIndexDocument{
		ID:              record.ID,
		Documento:       record.Documento,
		Nombre:          record.Nombre,
		Apellido:        record.Apellido,
		FechaNacimiento: match.FormatDate(record.FechaNacimiento),
		Sexo:            string(record.Sexo),
		Estado:          string(record.Estado),
		ClaveBlocking:   DeriveKeys(record.Identity()),
	}
}

// OnCreate propagates a freshly created record. The caller has already
// persisted the record; a SyncFailure here informs it without undoing that.
func (s *Synchronizer) OnCreate(ctx context.Context, record *PatientRecord) error {
	if _, err := s.upsert(ctx, record); err != nil {
		metrics.ObserveIndexSyncFailure()
		return &SyncFailure{Op: "create", ID: record.ID, Err: err}
	}
	return nil
}

// Sync overwrites the index document with the current projection. Idempotent:
// a second call for the same state leaves the document identical. The
// returned flag reports whether the document was inserted or updated, which
// drives the audit wording even though the authoritative operation was a
// single save.
func (s *Synchronizer) Sync(ctx context.Context, record *PatientRecord) (inserted bool, err error) {
	created, err := s.upsert(ctx, record)
	if err != nil {
		metrics.ObserveIndexSyncFailure()
		return false, &SyncFailure{Op: "sync", ID: record.ID, Err: err}
	}
	return created, nil
}

// OnDelete removes the mirrored document. A failed index deletion is logged
// and swallowed: the authoritative deletion already happened and the next
// full rebuild reconciles the leftover.
func (s *Synchronizer) OnDelete(ctx context.Context, record *PatientRecord) {
	if err := s.index.Delete(ctx, record.ID); err != nil {
		logger.Log.WithError(err).WithField("patient_id", record.ID).
			Warn("index document deletion failed, will be dropped on next rebuild")
	}
}

func (s *Synchronizer) upsert(ctx context.Context, record *PatientRecord) (bool, error) {
	doc, err := toSearchDocument(ProjectRecord(record))
	if err != nil {
		return false, err
	}
	return s.index.Upsert(ctx, record.ID, doc)
}

func toSearchDocument(doc PatientIndexDocument) (search.Document, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var out search.Document
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DocumentFromHit decodes a search hit back into the typed projection.
func DocumentFromHit(hit search.Hit) (PatientIndexDocument, error) {
	raw, err := json.Marshal(hit.Source)
	if err != nil {
		return PatientIndexDocument{}, err
	}
	var doc PatientIndexDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return PatientIndexDocument{}, err
	}
	if doc.ID == "" {
		doc.ID = hit.ID
	}
	return doc, nil
}
