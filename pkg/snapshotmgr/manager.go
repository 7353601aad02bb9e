// Package snapshotmgr orchestrates backup and restore of one or more
// configured services: it drives the exporter across services, writes
// per-kind artifacts and the manifest, and uploads/downloads via a
// storage.Backend. Restore symmetrically downloads, then either builds a
// diff plan or invokes the importer.
package snapshotmgr

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/cuemby/kvault/pkg/apiclient"
	"github.com/cuemby/kvault/pkg/differ"
	"github.com/cuemby/kvault/pkg/errs"
	"github.com/cuemby/kvault/pkg/exporter"
	"github.com/cuemby/kvault/pkg/importer"
	"github.com/cuemby/kvault/pkg/log"
	"github.com/cuemby/kvault/pkg/metrics"
	"github.com/cuemby/kvault/pkg/planner"
	"github.com/cuemby/kvault/pkg/schema"
	"github.com/cuemby/kvault/pkg/storage"
	"github.com/cuemby/kvault/pkg/types"
)

// ServiceConfig describes one backed-up service: its identity provider
// client, realm, and the kind registry it exports/imports against.
type ServiceConfig struct {
	Name     string
	Type     string // "Serial"; reserved for future parallel-within-service strategies
	Version  string
	Priority int
	Realm    string
	Client   *apiclient.Client
	Registry *schema.Registry
}

// Manager composes the exporter/importer across configured services
// against a single storage backend.
type Manager struct {
	backend  storage.Backend
	services map[string]ServiceConfig
	order    []string
}

// NewManager validates services (no duplicate names, each with a
// non-nil client and registry) and returns a Manager bound to backend.
func NewManager(backend storage.Backend, services []ServiceConfig) (*Manager, error) {
	if backend == nil {
		return nil, fmt.Errorf("%w: snapshotmgr requires a storage backend", errs.ErrConfig)
	}
	m := &Manager{backend: backend, services: make(map[string]ServiceConfig, len(services))}
	for _, svc := range services {
		if svc.Name == "" {
			return nil, fmt.Errorf("%w: service missing name", errs.ErrConfig)
		}
		if _, exists := m.services[svc.Name]; exists {
			return nil, fmt.Errorf("%w: duplicate service %q", errs.ErrConfig, svc.Name)
		}
		if svc.Client == nil || svc.Registry == nil {
			return nil, fmt.Errorf("%w: service %q missing client or registry", errs.ErrConfig, svc.Name)
		}
		m.services[svc.Name] = svc
		m.order = append(m.order, svc.Name)
	}
	return m, nil
}

// BackupRequest parameterises a backup. An empty ServiceSelector backs up
// every configured service.
type BackupRequest struct {
	ServiceSelector []string
	Description     string
	Compress        bool
	// ArchiveOnly commits the snapshot to the storage backend: artifacts
	// are uploaded as a tree (or tar.gz, if Compress) and the manifest is
	// written alongside it. When false, Backup writes nothing to the
	// backend and returns the exported data directly in
	// BackupResult.Artifacts instead.
	ArchiveOnly bool
}

// BackupResult is returned on success. MetadataKey is empty when the
// request had ArchiveOnly set to false, since no manifest was written;
// Artifacts is populated only in that case.
type BackupResult struct {
	SnapshotID  string
	MetadataKey string
	Degraded    bool
	Artifacts   map[string]map[string]types.Artifact
}

// Backup generates a snapshot_id and exports the selected services in
// parallel. When req.ArchiveOnly, it writes their artifacts and the
// manifest and uploads the result via the storage backend; the manifest
// is written last, so an aborted backup leaves only orphan artifacts
// under snapshot_id/, never a visible partial snapshot. Otherwise it
// writes nothing and returns the exported data directly in
// BackupResult.Artifacts.
func (m *Manager) Backup(ctx context.Context, req BackupRequest) (*BackupResult, error) {
	snapshotID := generateSnapshotID()
	logger := log.WithSnapshotID(snapshotID)
	tracker := newStateTracker(logger)
	timer := metrics.NewTimer()

	result, err := m.backup(ctx, tracker, snapshotID, req)
	timer.ObserveDuration(metrics.BackupDuration)
	if err != nil {
		tracker.fail(err)
		metrics.BackupsTotal.WithLabelValues("failed").Inc()
		return nil, err
	}
	if result.Degraded {
		metrics.BackupsTotal.WithLabelValues("degraded").Inc()
	} else {
		metrics.BackupsTotal.WithLabelValues("ok").Inc()
	}
	return result, nil
}

func (m *Manager) backup(ctx context.Context, tracker *stateTracker, snapshotID string, req BackupRequest) (*BackupResult, error) {
	if err := tracker.transition(StateSelecting); err != nil {
		return nil, err
	}
	selected, err := m.selectServices(req.ServiceSelector)
	if err != nil {
		return nil, err
	}

	tmpDir, err := os.MkdirTemp("", "kvault-backup-*")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrConfig, err)
	}
	defer os.RemoveAll(tmpDir)

	if err := tracker.transition(StateExporting); err != nil {
		return nil, err
	}

	manifest := types.Manifest{
		FormatVersion: types.FormatVersion,
		SnapshotID:    snapshotID,
		CreatedAt:     time.Now().UTC(),
		Description:   req.Description,
		Services:      make(map[string]types.ServiceManifest, len(selected)),
	}

	rawArtifacts := make(map[string]map[string]types.Artifact, len(selected))

	var mu sync.Mutex
	group, groupCtx := errgroup.WithContext(ctx)
	for _, svc := range selected {
		svc := svc
		group.Go(func() error {
			order, err := planner.Order(svc.Registry)
			if err != nil {
				return err
			}
			artifacts, degraded := exporter.Export(groupCtx, svc.Client, svc.Realm, order, svc.Registry)

			kinds := make([]string, 0, len(artifacts))
			for kind, artifact := range artifacts {
				if err := writeArtifact(tmpDir, svc.Name, kind, artifact); err != nil {
					return err
				}
				kinds = append(kinds, kind)
				metrics.EntitiesProcessedTotal.WithLabelValues(kind, "export").Add(float64(len(artifact.Result)))
				if artifact.Error != "" {
					metrics.KindErrorsTotal.WithLabelValues(kind, "export").Inc()
				}
			}
			sort.Strings(kinds)

			mu.Lock()
			manifest.Services[svc.Name] = types.ServiceManifest{
				Type:     svc.Type,
				Version:  svc.Version,
				Priority: svc.Priority,
				Data:     kinds,
			}
			if degraded {
				manifest.Degraded = true
			}
			rawArtifacts[svc.Name] = artifacts
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	if manifest.Degraded {
		if err := tracker.transition(StateDegraded); err != nil {
			return nil, err
		}
	}
	if err := tracker.transition(StateWriting); err != nil {
		return nil, err
	}

	if !req.ArchiveOnly {
		if err := tracker.transition(StateDone); err != nil {
			return nil, err
		}
		return &BackupResult{SnapshotID: snapshotID, Degraded: manifest.Degraded, Artifacts: rawArtifacts}, nil
	}

	if err := m.backend.UploadTree(ctx, snapshotID, tmpDir, req.Compress); err != nil {
		return nil, err
	}

	if err := tracker.transition(StateUploading); err != nil {
		return nil, err
	}

	metadataKey := snapshotID + "_metadata.json"
	manifestBytes, err := json.Marshal(manifest)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding manifest: %v", errs.ErrConfig, err)
	}
	if err := m.backend.Put(ctx, "", metadataKey, manifestBytes); err != nil {
		return nil, err
	}

	if err := tracker.transition(StateDone); err != nil {
		return nil, err
	}

	return &BackupResult{SnapshotID: snapshotID, MetadataKey: metadataKey, Degraded: manifest.Degraded}, nil
}

// RestoreRequest parameterises a restore. When Plan is true, Restore
// returns a Plan without invoking the importer.
type RestoreRequest struct {
	SnapshotID      string
	ServiceSelector []string
	Plan            bool
}

// RestoreResult is returned when RestoreRequest.Plan is false.
type RestoreResult struct {
	SnapshotID string
	Reports    map[string]*importer.Report
}

// PlanResult is returned when RestoreRequest.Plan is true.
type PlanResult struct {
	SnapshotID string
	Plans      map[string]differ.Plan
}

// Restore downloads the snapshot's artifacts for the selected services
// and either builds a diff plan against live state (Plan=true) or
// imports them (Plan=false).
func (m *Manager) Restore(ctx context.Context, req RestoreRequest) (*RestoreResult, *PlanResult, error) {
	timer := metrics.NewTimer()
	result, plan, err := m.restore(ctx, req)
	timer.ObserveDuration(metrics.RestoreDuration)
	if err != nil {
		metrics.RestoresTotal.WithLabelValues("failed").Inc()
		return nil, nil, err
	}
	metrics.RestoresTotal.WithLabelValues("ok").Inc()
	return result, plan, nil
}

func (m *Manager) restore(ctx context.Context, req RestoreRequest) (*RestoreResult, *PlanResult, error) {
	manifest, err := m.Get(ctx, req.SnapshotID)
	if err != nil {
		return nil, nil, err
	}

	names, err := m.filterServiceNames(manifest, req.ServiceSelector)
	if err != nil {
		return nil, nil, err
	}

	tmpDir, err := os.MkdirTemp("", "kvault-restore-*")
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", errs.ErrConfig, err)
	}
	defer os.RemoveAll(tmpDir)

	if err := m.backend.DownloadTree(ctx, req.SnapshotID, tmpDir); err != nil {
		return nil, nil, err
	}

	if req.Plan {
		plans := make(map[string]differ.Plan, len(names))
		for _, name := range names {
			svc, ok := m.services[name]
			if !ok {
				continue
			}
			snapshotByKind, err := readArtifacts(tmpDir, name, manifest.Services[name].Data)
			if err != nil {
				return nil, nil, err
			}
			order, err := planner.Order(svc.Registry)
			if err != nil {
				return nil, nil, err
			}
			liveArtifacts, _ := exporter.Export(ctx, svc.Client, svc.Realm, order, svc.Registry)
			liveByKind := make(map[string][]schema.Entity, len(liveArtifacts))
			for kind, artifact := range liveArtifacts {
				liveByKind[kind] = toEntities(artifact.Result)
			}
			plans[name] = differ.BuildPlan(svc.Registry, order, snapshotByKind, liveByKind)
		}
		return nil, &PlanResult{SnapshotID: req.SnapshotID, Plans: plans}, nil
	}

	reports := make(map[string]*importer.Report, len(names))
	for _, name := range names {
		svc, ok := m.services[name]
		if !ok {
			continue
		}
		artifacts, err := readRawArtifacts(tmpDir, name, manifest.Services[name].Data)
		if err != nil {
			return nil, nil, err
		}
		order, err := planner.Order(svc.Registry)
		if err != nil {
			return nil, nil, err
		}
		report := importer.Import(ctx, svc.Client, svc.Realm, order, artifacts, svc.Registry)
		for kind, kr := range report.Kinds {
			metrics.EntitiesProcessedTotal.WithLabelValues(kind, "import").Add(float64(kr.Created))
			if kr.Failed > 0 {
				metrics.KindErrorsTotal.WithLabelValues(kind, "import").Add(float64(kr.Failed))
			}
		}
		reports[name] = report
	}
	return &RestoreResult{SnapshotID: req.SnapshotID, Reports: reports}, nil, nil
}

// List returns a summary of every snapshot present on the backend.
func (m *Manager) List(ctx context.Context) ([]types.SnapshotSummary, error) {
	keys, err := m.backend.List(ctx, "", "")
	if err != nil {
		return nil, err
	}

	var summaries []types.SnapshotSummary
	for _, key := range keys {
		if !strings.HasSuffix(key, "_metadata.json") {
			continue
		}
		data, err := m.backend.Get(ctx, "", key)
		if err != nil {
			return nil, err
		}
		var manifest types.Manifest
		if err := json.Unmarshal(data, &manifest); err != nil {
			return nil, fmt.Errorf("%w: decoding manifest %s: %v", errs.ErrInvalidEntity, key, err)
		}
		services := make([]string, 0, len(manifest.Services))
		for name := range manifest.Services {
			services = append(services, name)
		}
		sort.Strings(services)
		summaries = append(summaries, types.SnapshotSummary{
			SnapshotID:  manifest.SnapshotID,
			CreatedAt:   manifest.CreatedAt,
			Description: manifest.Description,
			Degraded:    manifest.Degraded,
			Services:    services,
		})
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].CreatedAt.Before(summaries[j].CreatedAt) })
	return summaries, nil
}

// Info returns the full manifest for snapshotID. It is identical to Get;
// both names are kept because spec.md distinguishes them at the
// orchestrator boundary (Info is the read-only inspection verb).
func (m *Manager) Info(ctx context.Context, snapshotID string) (*types.Manifest, error) {
	return m.Get(ctx, snapshotID)
}

// Get reads and decodes a snapshot's manifest.
func (m *Manager) Get(ctx context.Context, snapshotID string) (*types.Manifest, error) {
	data, err := m.backend.Get(ctx, "", snapshotID+"_metadata.json")
	if err != nil {
		return nil, err
	}
	var manifest types.Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("%w: decoding manifest: %v", errs.ErrInvalidEntity, err)
	}
	return &manifest, nil
}

func (m *Manager) selectServices(selector []string) ([]ServiceConfig, error) {
	if len(selector) == 0 {
		out := make([]ServiceConfig, 0, len(m.order))
		for _, name := range m.order {
			out = append(out, m.services[name])
		}
		return out, nil
	}
	out := make([]ServiceConfig, 0, len(selector))
	for _, name := range selector {
		svc, ok := m.services[name]
		if !ok {
			return nil, fmt.Errorf("%w: unknown service %q", errs.ErrConfig, name)
		}
		out = append(out, svc)
	}
	return out, nil
}

func (m *Manager) filterServiceNames(manifest *types.Manifest, selector []string) ([]string, error) {
	if len(selector) == 0 {
		names := make([]string, 0, len(manifest.Services))
		for name := range manifest.Services {
			names = append(names, name)
		}
		sort.Strings(names)
		return names, nil
	}
	for _, name := range selector {
		if _, ok := manifest.Services[name]; !ok {
			return nil, fmt.Errorf("%w: service %q not present in snapshot", errs.ErrNotFound, name)
		}
	}
	return selector, nil
}

func writeArtifact(tmpDir, service, kind string, artifact types.Artifact) error {
	dir := filepath.Join(tmpDir, service)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrConfig, err)
	}
	data, err := json.Marshal(artifact)
	if err != nil {
		return fmt.Errorf("%w: encoding artifact: %v", errs.ErrConfig, err)
	}
	return os.WriteFile(filepath.Join(dir, kind+".json"), data, 0o644)
}

func readRawArtifacts(tmpDir, service string, kinds []string) (map[string]types.Artifact, error) {
	out := make(map[string]types.Artifact, len(kinds))
	for _, kind := range kinds {
		path := filepath.Join(tmpDir, service, kind+".json")
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: reading artifact %s: %v", errs.ErrInvalidEntity, path, err)
		}
		var artifact types.Artifact
		if err := json.Unmarshal(data, &artifact); err != nil {
			return nil, fmt.Errorf("%w: decoding artifact %s: %v", errs.ErrInvalidEntity, path, err)
		}
		out[kind] = artifact
	}
	return out, nil
}

func readArtifacts(tmpDir, service string, kinds []string) (map[string][]schema.Entity, error) {
	raw, err := readRawArtifacts(tmpDir, service, kinds)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]schema.Entity, len(raw))
	for kind, artifact := range raw {
		out[kind] = toEntities(artifact.Result)
	}
	return out, nil
}

func toEntities(items []map[string]any) []schema.Entity {
	out := make([]schema.Entity, len(items))
	for i, item := range items {
		out[i] = schema.Entity(item)
	}
	return out
}

func generateSnapshotID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}
