// Package importer decodes snapshot artifacts and creates entities against
// the realm, in planner order. Failures are isolated per item and per
// kind: a failing kind skips its dependents but independent branches
// continue.
package importer

import (
	"context"
	"errors"
	"strings"

	"github.com/cuemby/kvault/pkg/apiclient"
	"github.com/cuemby/kvault/pkg/errs"
	"github.com/cuemby/kvault/pkg/log"
	"github.com/cuemby/kvault/pkg/schema"
	"github.com/cuemby/kvault/pkg/types"
)

// KindReport counts the outcome of importing one kind.
type KindReport struct {
	Created  int      `json:"created"`
	Existing int      `json:"existing"`
	Failed   int      `json:"failed"`
	Skipped  int      `json:"skipped"`
	Reason   string   `json:"reason,omitempty"`
	Errors   []string `json:"errors,omitempty"`
}

// Report is the tree-shaped result of Import, keyed by kind name.
type Report struct {
	Kinds map[string]KindReport `json:"kinds"`
}

// Import walks order, decoding and creating each kind's entities via
// client. A kind whose create calls fail with a 5xx/transport error
// aborts that kind and marks every kind that (transitively) depends on
// it as Skipped, while independent branches continue unaffected.
func Import(ctx context.Context, client *apiclient.Client, realm string, order []string, artifacts map[string]types.Artifact, registry *schema.Registry) *Report {
	logger := log.WithComponent("importer").With().Str("realm", realm).Logger()

	report := &Report{Kinds: make(map[string]KindReport, len(order))}
	failed := make(map[string]bool)

	for _, name := range order {
		descriptor, ok := registry.Lookup(name)
		if !ok {
			continue
		}

		if dep, blocked := blockedBy(descriptor, failed); blocked {
			report.Kinds[name] = KindReport{Skipped: 1, Reason: "dependency failed: " + dep}
			failed[name] = true
			logger.Warn().Str("kind", name).Str("dependency", dep).Msg("skipping kind, dependency failed")
			continue
		}

		artifact, ok := artifacts[name]
		if !ok {
			report.Kinds[name] = KindReport{}
			continue
		}

		kindReport, abort := importKind(ctx, client, realm, descriptor, artifact)
		report.Kinds[name] = kindReport
		if abort {
			failed[name] = true
		}
		logger.Info().Str("kind", name).
			Int("created", kindReport.Created).
			Int("existing", kindReport.Existing).
			Int("failed", kindReport.Failed).
			Msg("imported kind")
	}

	return report
}

func blockedBy(descriptor schema.Descriptor, failed map[string]bool) (string, bool) {
	for _, dep := range descriptor.DependsOn {
		if failed[dep] {
			return dep, true
		}
	}
	return "", false
}

func importKind(ctx context.Context, client *apiclient.Client, realm string, descriptor schema.Descriptor, artifact types.Artifact) (KindReport, bool) {
	var kr KindReport
	path := strings.ReplaceAll(descriptor.EndpointCreate, "{realm}", realm)

	for _, item := range artifact.Result {
		if ctx.Err() != nil {
			kr.Failed++
			kr.Errors = append(kr.Errors, ctx.Err().Error())
			return kr, true
		}

		entity := schema.Entity(item)
		encoded := entity
		if descriptor.Codec.Encode != nil {
			var err error
			encoded, err = descriptor.Codec.Encode(entity)
			if err != nil {
				kr.Failed++
				kr.Errors = append(kr.Errors, err.Error())
				continue
			}
		}

		err := client.Post(ctx, path, map[string]any(encoded))
		switch {
		case err == nil:
			kr.Created++
		case errors.Is(err, errs.ErrAlreadyExists):
			kr.Existing++
		case errors.Is(err, errs.ErrInvalidEntity):
			kr.Failed++
			kr.Errors = append(kr.Errors, err.Error())
		default:
			kr.Failed++
			kr.Errors = append(kr.Errors, err.Error())
			return kr, true
		}
	}

	return kr, false
}
