// Package exporter fetches the live collection for each kind, in planner
// order, and canonicalises it into snapshot artifacts. Per-kind failures
// are isolated: a failing kind is recorded and the export continues.
package exporter

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/cuemby/kvault/pkg/apiclient"
	"github.com/cuemby/kvault/pkg/errs"
	"github.com/cuemby/kvault/pkg/log"
	"github.com/cuemby/kvault/pkg/schema"
	"github.com/cuemby/kvault/pkg/types"
)

// Export fetches every kind in order from the realm via client, producing
// one Artifact per kind. It never returns an error itself: a kind that
// fails is recorded as a degraded artifact and the loop continues, so a
// partial snapshot is always produced. The second return value reports
// whether any kind was degraded.
func Export(ctx context.Context, client *apiclient.Client, realm string, order []string, registry *schema.Registry) (map[string]types.Artifact, bool) {
	logger := log.WithComponent("exporter").With().Str("realm", realm).Logger()

	artifacts := make(map[string]types.Artifact, len(order))
	degraded := false

	for _, name := range order {
		if ctx.Err() != nil {
			artifacts[name] = types.Artifact{Error: ctx.Err().Error(), Status: 499}
			degraded = true
			continue
		}

		descriptor, ok := registry.Lookup(name)
		if !ok {
			logger.Warn().Str("kind", name).Msg("planner named an unregistered kind")
			continue
		}

		artifact, err := exportKind(ctx, client, realm, descriptor)
		if err != nil {
			logger.Warn().Err(err).Str("kind", name).Msg("export failed for kind, continuing")
			artifacts[name] = types.Artifact{
				Error:  err.Error(),
				Status: statusFor(err),
			}
			degraded = true
			continue
		}

		logger.Info().Str("kind", name).Int("count", len(artifact.Result)).Msg("exported kind")
		artifacts[name] = artifact
	}

	return artifacts, degraded
}

func exportKind(ctx context.Context, client *apiclient.Client, realm string, descriptor schema.Descriptor) (types.Artifact, error) {
	path := strings.ReplaceAll(descriptor.EndpointList, "{realm}", realm)
	raw, err := client.Get(ctx, path)
	if err != nil {
		return types.Artifact{}, err
	}

	var items []map[string]any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &items); err != nil {
			return types.Artifact{}, errs.ErrInvalidEntity
		}
	}

	result := make([]map[string]any, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		entity := schema.Entity(item)
		decoded := entity
		if descriptor.Codec.Decode != nil {
			decoded, err = descriptor.Codec.Decode(entity)
			if err != nil {
				return types.Artifact{}, errs.ErrInvalidEntity
			}
		}
		if descriptor.IdentityFn != nil {
			key := descriptor.IdentityFn(decoded)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
		}
		result = append(result, map[string]any(decoded))
	}

	return types.Artifact{
		Message: "exported " + descriptor.Name,
		Result:  result,
	}, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errs.ErrPermissionDenied):
		return 403
	case errors.Is(err, errs.ErrNotFound):
		return 404
	case errors.Is(err, errs.ErrInvalidEntity):
		return 400
	default:
		return 500
	}
}
