package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	journalAppends = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aegisfs_journal_appends_total",
		Help: "Journal records appended, by op (BEGIN/APPLY/COMMIT/ABORT).",
	}, []string{"op"})

	journalCommits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aegisfs_journal_commits_total",
		Help: "Transactions that reached COMMIT.",
	})

	journalAborts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aegisfs_journal_aborts_total",
		Help: "Transactions that reached ABORT.",
	})

	rpcRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aegisfs_rpc_requests_total",
		Help: "RPC requests handled, by server, op, and outcome.",
	}, []string{"server", "op", "ok"})

	blockBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aegisfs_block_bytes_total",
		Help: "Bytes moved through the block store, by direction (store/read).",
	}, []string{"op"})

	recoveryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "aegisfs_recovery_duration_seconds",
		Help:    "Time spent replaying the journal on MDS startup.",
		Buckets: prometheus.DefBuckets,
	})
)

// JournalAppend records one journal record of the given op having been
// written.
func JournalAppend(op string) {
	journalAppends.WithLabelValues(op).Inc()
}

// JournalCommit records a transaction reaching COMMIT.
func JournalCommit() {
	journalCommits.Inc()
}

// JournalAbort records a transaction reaching ABORT.
func JournalAbort() {
	journalAborts.Inc()
}

// RPCRequest records one handled RPC request.
func RPCRequest(server, op string, ok bool) {
	rpcRequests.WithLabelValues(server, op, boolLabel(ok)).Inc()
}

// BlockBytes records n bytes moved in the given direction ("store" or
// "read").
func BlockBytes(op string, n int) {
	blockBytes.WithLabelValues(op).Add(float64(n))
}

// RecoveryDuration records how long a single MDS recovery pass took.
func RecoveryDuration(seconds float64) {
	recoveryDuration.Observe(seconds)
}

// Handler returns the HTTP handler that serves the Prometheus exposition
// format for the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

func boolLabel(ok bool) string {
	if ok {
		return "true"
	}
	return "false"
}
