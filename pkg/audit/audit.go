package audit

import (
	"context"

	"github.com/andes-k8s/api/pkg/common/kafka"
	"github.com/andes-k8s/api/pkg/common/logger"
	"github.com/andes-k8s/api/pkg/mpi"
)

// KafkaAuditor implements mpi.Auditor over the audit topic. Publishing is
// best-effort: a broker outage must not fail the clinical write it annotates.
type KafkaAuditor struct {
	producer *kafka.Producer
}

func NewKafkaAuditor(producer *kafka.Producer) *KafkaAuditor {
	return &KafkaAuditor{producer: producer}
}

func (a *KafkaAuditor) Stamp(record *mpi.PatientRecord, actor mpi.Actor) {
	if record.CreatedBy == "" {
		record.CreatedBy = actor.Usuario
	}
	record.UpdatedBy = actor.Usuario
	if actor.OrganizationID != "" {
		record.OrganizationID = actor.OrganizationID
	}
}

func (a *KafkaAuditor) Log(ctx context.Context, actor mpi.Actor, domain, action string, payload map[string]interface{}) {
	data := map[string]interface{}{
		"actor":   actor,
		"domain":  domain,
		"action":  action,
		"payload": payload,
	}
	if err := a.producer.PublishEvent(ctx, action, domain, data); err != nil {
		logger.Log.WithError(err).WithFields(map[string]interface{}{
			"domain": domain,
			"action": action,
		}).Error("failed to publish audit entry")
	}
}

// Nop discards everything except the stamp. Used in tests and tooling.
type Nop struct{}

func (Nop) Stamp(record *mpi.PatientRecord, actor mpi.Actor) {
	if record.CreatedBy == "" {
		record.CreatedBy = actor.Usuario
	}
	record.UpdatedBy = actor.Usuario
}

func (Nop) Log(context.Context, mpi.Actor, string, string, map[string]interface{}) {}
