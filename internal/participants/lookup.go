package participants

import (
	"context"
	"log/slog"
	"strings"

	"github.com/m3rciful/eventbot/core/logger"
	"github.com/m3rciful/eventbot/internal/domain"
)

// LookupResult is the outcome of a roster prefix lookup.
type LookupResult struct {
	Records []domain.Record
	Err     error
}

// Found reports whether at least one record matched.
func (r LookupResult) Found() bool {
	return r.Err == nil && len(r.Records) > 0
}

// Detail returns field of the first match. It is empty when the field is missing or blank.
func (r LookupResult) Detail(field string) string {
	if !r.Found() {
		return ""
	}
	return strings.TrimSpace(r.Records[0][field])
}

// LookupByNamePrefix finds records in collection whose key field starts with name.
// Matching is case-sensitive and name is taken literally.
func (r *Registry) LookupByNamePrefix(ctx context.Context, collection, name string) LookupResult {
	name = strings.TrimSpace(name)
	if name == "" {
		return LookupResult{}
	}
	recs, err := r.store.FindRoster(ctx, collection, name)
	if err != nil {
		logger.LogEvent(ctx, logger.Registry, slog.LevelError, "registry.lookup",
			slog.String("collection", collection), slog.String("status", "fail"), slog.Any("err", err))
		return LookupResult{Err: err}
	}
	logger.LogEvent(ctx, logger.Registry, slog.LevelDebug, "registry.lookup",
		slog.String("collection", collection), slog.Int("matches", len(recs)))
	return LookupResult{Records: recs}
}
