package issues

import (
	"context"
	"log/slog"

	"fixversity/internal/bootstrap/logging"
	"fixversity/internal/domain/identity"
	"fixversity/internal/errs"
	"fixversity/internal/ports"
)

// FailurePolicy decides what a failed profile fetch does to a join.
type FailurePolicy int

const (
	// DegradeToNull keeps every item and joins it with a nil profile.
	DegradeToNull FailurePolicy = iota
	// Propagate fails the whole join.
	Propagate
)

func (p FailurePolicy) String() string {
	if p == Propagate {
		return "propagate"
	}
	return "degrade"
}

// Joined pairs an item with the profile its key resolved to, if any.
type Joined[T any] struct {
	Item    T
	Profile *identity.Profile
}

// Enrich joins items with profiles looked up by the user id keyOf returns.
// Profiles are fetched once for the distinct non-nil keys; no keys means no
// fetch. Items whose key is nil or unmatched get a nil profile.
func Enrich[T any](ctx context.Context, items []T, keyOf func(T) *string, profiles ports.ProfileBatchReader, policy FailurePolicy) ([]Joined[T], error) {
	out := make([]Joined[T], len(items))
	for i, item := range items {
		out[i].Item = item
	}

	keys := distinctKeys(items, keyOf)
	if len(keys) == 0 {
		return out, nil
	}

	rows, err := profiles.ListProfilesByUserIDs(ctx, keys)
	if err != nil {
		if policy == Propagate {
			return nil, errs.Wrap(err, "fetch profiles")
		}
		logCtx := logging.WithAttrs(ctx, slog.String("component", "issues.enrich"))
		logging.Warn(logCtx, "profile fetch failed, joining without profiles", slog.Int("keys", len(keys)), slog.Any("err", errs.Loggable(err)))
		return out, nil
	}

	byUser := make(map[string]identity.Profile, len(rows))
	for _, row := range rows {
		byUser[row.UserID] = row
	}
	for i, item := range items {
		key := keyOf(item)
		if key == nil {
			continue
		}
		if profile, ok := byUser[*key]; ok {
			out[i].Profile = &profile
		}
	}
	return out, nil
}

func distinctKeys[T any](items []T, keyOf func(T) *string) []string {
	seen := make(map[string]struct{}, len(items))
	keys := make([]string, 0, len(items))
	for _, item := range items {
		key := keyOf(item)
		if key == nil || *key == "" {
			continue
		}
		if _, ok := seen[*key]; ok {
			continue
		}
		seen[*key] = struct{}{}
		keys = append(keys, *key)
	}
	return keys
}
