/*
Package metrics provides Prometheus metrics collection and exposition for
kvault.

Metrics are recorded at the point of operation, not polled from
continuous background state: a backup or restore records its own
duration and outcome when it finishes, and the per-kind error and entity
counts are recorded by pkg/snapshotmgr from the exporter's artifacts and
the importer's report.

# Architecture

	┌────────────────────────────────────────────┐
	│              pkg/snapshotmgr                │
	│   BackupDuration / RestoreDuration           │
	│   BackupsTotal{outcome} / RestoresTotal       │
	│   KindErrorsTotal{kind,direction}             │
	│   EntitiesProcessedTotal{kind,direction}      │
	└────────────────────────────────────────────┘

# Core metrics

  - BackupDuration / RestoreDuration: histograms of end-to-end operation
    time, bucketed from 1s to 10m.
  - BackupsTotal: counter by outcome (ok, degraded, failed).
    RestoresTotal: counter by outcome (ok, failed).
  - KindErrorsTotal: on export, one per kind whose artifact carries an
    error; on import, the number of entities that failed. Labeled by
    kind and direction.
  - EntitiesProcessedTotal: counter of entities exported or created on
    import, labeled by kind and direction.
  - StorageOpDuration: histogram of storage backend call latency,
    labeled by backend and operation. It is registered, but no storage
    backend in this module observes it.

# Usage

	timer := metrics.NewTimer()
	result, err := mgr.Backup(ctx, req)
	timer.ObserveDuration(metrics.BackupDuration)
	if err != nil {
		metrics.BackupsTotal.WithLabelValues("failed").Inc()
	}

# Health

See health.go for the separate component-health registry exposed
alongside these metrics; it tracks readiness rather than counters.
*/
package metrics
