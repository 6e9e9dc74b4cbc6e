package mpi

import (
	"context"

	"github.com/andes-k8s/api/pkg/common/logger"
	"github.com/andes-k8s/api/pkg/observability/metrics"
)

// Reconciler is the scheduled batch job that re-validates flagged records
// against the external identity verifier and applies corrections. Records
// are processed sequentially within a run: audit ordering stays deterministic
// and the verifier sees bounded load. Run-exclusion between overlapping runs
// belongs to the scheduler, not to this job.
type Reconciler struct {
	store         RecordStore
	verifier      Verifier
	sync          *Synchronizer
	auditor       Auditor
	actor         Actor
	minConfidence float64
}

func NewReconciler(store RecordStore, verifier Verifier, sync *Synchronizer, auditor Auditor, minConfidence float64) *Reconciler {
	if minConfidence <= 0 {
		minConfidence = 95
	}
	return &Reconciler{
		store:         store,
		verifier:      verifier,
		sync:          sync,
		auditor:       auditor,
		actor:         Actor{Usuario: "MPICorrectorJob"},
		minConfidence: minConfidence,
	}
}

// Run scans for flagged records and reconciles each one. Per-record failures
// are logged and skipped; a failure escaping the per-record handler is
// swallowed here so the scheduler's done signal always fires.
func (j *Reconciler) Run(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			logger.Log.WithField("panic", r).Error("reconciliation run aborted")
		}
	}()
	defer metrics.ObserveReconcilerRun()

	flagged, err := j.store.FindFlagged(ctx)
	if err != nil {
		logger.Log.WithError(err).Error("failed to scan flagged patients")
		return
	}

	for i := range flagged {
		if ctx.Err() != nil {
			return
		}
		record := &flagged[i]
		if err := j.reconcile(ctx, record); err != nil {
			// Flag stays set, the record is retried on the next run.
			logger.Log.WithError(err).WithField("patient_id", record.ID).Error("reconciliation failed for patient")
		}
	}
}

// State machine per record: Flagged -> (Verifying) -> {Corrected, Unverified}.
// Both terminal states clear the flag; Verifying is only an in-flight step.
func (j *Reconciler) reconcile(ctx context.Context, record *PatientRecord) error {
	result, err := j.verifier.Verify(ctx, record.Identity())
	if err != nil {
		metrics.ObserveVerifierError()
		return err
	}

	previous := map[string]interface{}{"nombre": record.Nombre, "apellido": record.Apellido}

	if result != nil && result.Confidence >= j.minConfidence {
		record.Nombre = result.Matched.Nombre
		record.Apellido = result.Matched.Apellido
		record.AddValidator(result.Source)
		if record.Estado == EstadoTemporal {
			record.Estado = EstadoValidado
		}
		record.ReportarError = false
		record.NotaError = ""

		if err := j.persist(ctx, record); err != nil {
			return err
		}

		j.auditor.Log(ctx, j.actor, auditDomain, "update", map[string]interface{}{
			"anterior": previous,
			"nuevo":    map[string]interface{}{"nombre": record.Nombre, "apellido": record.Apellido},
			"fuente":   result.Source,
		})
		metrics.ObserveCorrection()
		return nil
	}

	// Low confidence or no candidate: stop retrying automatically. The
	// attempt is still recorded so the decision can be revisited by hand.
	record.ReportarError = false
	if err := j.persist(ctx, record); err != nil {
		return err
	}

	payload := map[string]interface{}{"anterior": previous}
	if result != nil {
		payload["matcheo"] = result.Confidence
	}
	j.auditor.Log(ctx, j.actor, auditDomain, "bajoMatching", payload)
	metrics.ObserveLowMatch()
	return nil
}

func (j *Reconciler) persist(ctx context.Context, record *PatientRecord) error {
	j.auditor.Stamp(record, j.actor)
	if err := j.store.Save(ctx, record); err != nil {
		return err
	}
	if _, err := j.sync.Sync(ctx, record); err != nil {
		// The authoritative write stands; the index catches up later.
		logger.Log.WithError(err).WithField("patient_id", record.ID).Warn("index propagation failed during reconciliation")
	}
	return nil
}
