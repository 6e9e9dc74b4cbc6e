package mpi

import (
	"context"
	"errors"
)

// Actor identifies who performs a mutation.
type Actor struct {
	Usuario        string `json:"usuario"`
	OrganizationID string `json:"organizacion,omitempty"`
	IP             string `json:"ip,omitempty"`
}

// Auditor is the audit/permission collaborator the matching core calls. It
// attaches actor metadata before a save and records domain actions; the
// permission system itself lives elsewhere.
type Auditor interface {
	Stamp(record *PatientRecord, actor Actor)
	Log(ctx context.Context, actor Actor, domain, action string, payload map[string]interface{})
}

// VerifyResult is what the external identity verifier answers for a record.
type VerifyResult struct {
	Confidence float64
	Matched    PatientIdentity
	Source     string
}

// Verifier consults an external identity-verification service. A nil result
// with a nil error means the service found no candidate at all.
type Verifier interface {
	Verify(ctx context.Context, identity PatientIdentity) (*VerifyResult, error)
}

// ErrVerifierUnavailable marks a transient verifier failure. The record keeps
// its flag and is retried on the next scheduled run, not within the same run.
var ErrVerifierUnavailable = errors.New("identity verifier unavailable")
