// Package groups resolves human-readable category names (service interest,
// booking status) to provider-side group or tag identifiers, creating them on
// first use.
//
// Resolution is search-then-create with no locking: two submissions that
// introduce the same brand-new name at the same moment can both create it.
package groups

import (
	"context"
	"strings"

	"github.com/wolfman30/leadsync/pkg/logging"
)

// Binding maps a category name to the provider's identifier for it.
type Binding struct {
	Name string
	ID   string
}

// Directory is a provider's group/tag listing.
type Directory interface {
	// Find returns the id of the group whose name equals name exactly.
	Find(ctx context.Context, name string) (id string, found bool, err error)
	// Create makes a new group and returns its id.
	Create(ctx context.Context, name string) (id string, err error)
}

// Cache optionally persists bindings across submissions.
type Cache interface {
	Get(ctx context.Context, provider, name string) (string, bool)
	Set(ctx context.Context, provider, name, id string)
}

// Resolver implements EnsureGroup for one provider.
type Resolver struct {
	provider string
	dir      Directory
	cache    Cache
	logger   *logging.Logger
}

func NewResolver(provider string, dir Directory, cache Cache, logger *logging.Logger) *Resolver {
	if logger == nil {
		logger = logging.Default()
	}
	return &Resolver{provider: provider, dir: dir, cache: cache, logger: logger}
}

// EnsureGroup returns the id for name, creating the group when absent.
// ok is false when either provider call fails; callers then omit the group.
func (r *Resolver) EnsureGroup(ctx context.Context, name string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" || r.dir == nil {
		return "", false
	}
	if r.cache != nil {
		if id, ok := r.cache.Get(ctx, r.provider, name); ok {
			return id, true
		}
	}

	id, found, err := r.dir.Find(ctx, name)
	if err != nil {
		r.logger.Warn("group lookup failed", "provider", r.provider, "group", name, "error", err)
		return "", false
	}
	if !found {
		id, err = r.dir.Create(ctx, name)
		if err != nil {
			r.logger.Warn("group create failed", "provider", r.provider, "group", name, "error", err)
			return "", false
		}
		r.logger.Info("group created", "provider", r.provider, "group", name, "group_id", id)
	}

	if r.cache != nil {
		r.cache.Set(ctx, r.provider, name, id)
	}
	return id, true
}

// Session memoizes resolutions for the lifetime of one submission. It is not
// safe for concurrent use.
type Session struct {
	r    *Resolver
	memo map[string]string
}

func (r *Resolver) Session() *Session {
	return &Session{r: r, memo: map[string]string{}}
}

// EnsureGroup resolves name once per session.
func (s *Session) EnsureGroup(ctx context.Context, name string) (string, bool) {
	if id, ok := s.memo[name]; ok {
		return id, true
	}
	id, ok := s.r.EnsureGroup(ctx, name)
	if ok {
		s.memo[name] = id
	}
	return id, ok
}

// EnsureAll resolves every name, dropping the ones that fail.
func (s *Session) EnsureAll(ctx context.Context, names ...string) []Binding {
	out := make([]Binding, 0, len(names))
	seen := map[string]bool{}
	for _, n := range names {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		if id, ok := s.EnsureGroup(ctx, n); ok {
			out = append(out, Binding{Name: n, ID: id})
		}
	}
	return out
}
