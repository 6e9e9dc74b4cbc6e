// Package metrics exposes the service counters in the Prometheus text
// exposition format without pulling in a client library.
package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

var (
	matchRequests          atomic.Int64
	searchRequests         atomic.Int64
	indexSyncFailures      atomic.Int64
	reconcilerRuns         atomic.Int64
	reconcilerCorrections  atomic.Int64
	reconcilerLowMatches   atomic.Int64
	reconcilerVerifyErrors atomic.Int64
)

func ObserveMatchRequest()     { matchRequests.Add(1) }
func ObserveSearchRequest()    { searchRequests.Add(1) }
func ObserveIndexSyncFailure() { indexSyncFailures.Add(1) }
func ObserveReconcilerRun()    { reconcilerRuns.Add(1) }
func ObserveCorrection()       { reconcilerCorrections.Add(1) }
func ObserveLowMatch()         { reconcilerLowMatches.Add(1) }
func ObserveVerifierError()    { reconcilerVerifyErrors.Add(1) }

func WritePrometheus(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	fmt.Fprintf(w, "# HELP mpi_match_requests_total Number of identity match queries served.\n")
	fmt.Fprintf(w, "# TYPE mpi_match_requests_total counter\n")
	fmt.Fprintf(w, "mpi_match_requests_total %d\n", matchRequests.Load())

	fmt.Fprintf(w, "# HELP mpi_search_requests_total Number of free-text searches served.\n")
	fmt.Fprintf(w, "# TYPE mpi_search_requests_total counter\n")
	fmt.Fprintf(w, "mpi_search_requests_total %d\n", searchRequests.Load())

	fmt.Fprintf(w, "# HELP mpi_index_sync_failures_total Number of index writes that failed after an authoritative write succeeded.\n")
	fmt.Fprintf(w, "# TYPE mpi_index_sync_failures_total counter\n")
	fmt.Fprintf(w, "mpi_index_sync_failures_total %d\n", indexSyncFailures.Load())

	fmt.Fprintf(w, "# HELP mpi_reconciler_runs_total Number of completed reconciliation runs.\n")
	fmt.Fprintf(w, "# TYPE mpi_reconciler_runs_total counter\n")
	fmt.Fprintf(w, "mpi_reconciler_runs_total %d\n", reconcilerRuns.Load())

	fmt.Fprintf(w, "# HELP mpi_reconciler_corrections_total Number of flagged records corrected from the registry.\n")
	fmt.Fprintf(w, "# TYPE mpi_reconciler_corrections_total counter\n")
	fmt.Fprintf(w, "mpi_reconciler_corrections_total %d\n", reconcilerCorrections.Load())

	fmt.Fprintf(w, "# HELP mpi_reconciler_low_matches_total Number of flagged records closed without a confident registry answer.\n")
	fmt.Fprintf(w, "# TYPE mpi_reconciler_low_matches_total counter\n")
	fmt.Fprintf(w, "mpi_reconciler_low_matches_total %d\n", reconcilerLowMatches.Load())

	fmt.Fprintf(w, "# HELP mpi_reconciler_verifier_errors_total Number of registry calls that failed during reconciliation.\n")
	fmt.Fprintf(w, "# TYPE mpi_reconciler_verifier_errors_total counter\n")
	fmt.Fprintf(w, "mpi_reconciler_verifier_errors_total %d\n", reconcilerVerifyErrors.Load())
}
