/*
Package log provides structured logging for kvault built on zerolog.

# Architecture

	┌─────────────────────────────────────────────┐
	│                 cmd/kvault                   │
	│         log.Init(cfg) at startup             │
	└───────────────────┬───────────────────────────┘
	                    │
	┌───────────────────▼───────────────────────────┐
	│            log.Logger (global)                │
	│  zerolog.Logger, console or JSON output        │
	└───────────────────┬───────────────────────────┘
	                    │
	       ┌────────────┼───────────────┐
	       ▼            ▼               ▼
	pkg/snapshotmgr  pkg/exporter   pkg/importer
	       │            │               │
	       ▼            ▼               ▼
	WithSnapshotID  WithComponent  WithComponent
	                + realm field  + realm field

# Core components

Config selects the minimum level and output format. Init installs the
global Logger used by every package; it is called once from cmd/kvault
before any other component starts.

The With* helpers return a child zerolog.Logger with one additional
field attached, so call sites can narrow a log line to the component,
snapshot, realm, or entity kind it concerns without repeating
structured-field boilerplate:

	logger := log.WithComponent("snapshotmgr")
	logger = logger.With().Str("snapshot_id", id).Logger()

or, using the dedicated helper:

	logger := log.WithSnapshotID(id)
	logger.Info().Str("realm", realm).Msg("backup started")

# Log levels

  - Debug: per-entity decode/encode detail, HTTP request bodies
  - Info: lifecycle events (snapshot started/completed, entity imported)
  - Warn: isolated per-entity failures that do not abort the operation
  - Error: operation-level failures (storage unreachable, planner cycle)

# Output

JSONOutput selects newline-delimited JSON, suitable for log aggregation
(e.g. shipping to a log pipeline via stdout capture). The console writer
is used for local/interactive runs and colorizes level and field names.

# Usage

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})

	logger := log.WithComponent("exporter")
	logger.Info().Str("kind", "clients").Int("count", 12).Msg("exported entities")

# Design notes

Logger is a package-level var rather than threaded through every call
site: components capture a child logger once at construction and reuse
it, rather than calling the package-level helpers from deep in business
logic. The package-level Info/Debug/Warn/Error/Fatal functions exist for
cmd/kvault and small scripts where a dedicated child logger would be
overkill.
*/
package log
