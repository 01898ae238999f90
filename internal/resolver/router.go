package resolver

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	gocache "github.com/patrickmn/go-cache"

	"github.com/avetrov/namevault/internal/errs"
	"github.com/avetrov/namevault/internal/model"
	"github.com/avetrov/namevault/internal/namewire"
)

// RegistryReader is the read-side slice of the registry the router needs.
type RegistryReader interface {
	Resolver(ctx context.Context, hash model.LabelHash) (uuid.UUID, error)
}

// Router implements the delegated resolution protocol: it strips the
// outermost label off the queried name, asks the registry which resolver
// answers for it, and forwards the untouched (name, query) pair there. It
// never interprets the query payload and never consults label expiry:
// resolution reads are best-effort and tolerate stale registry data, which
// also makes the lookup safe to cache.
type Router struct {
	registry RegistryReader
	dir      Directory
	cache    *gocache.Cache // labelHash hex -> uuid.UUID; nil disables
}

// NewRouter constructs a router. cacheTTL > 0 enables a read-through cache of
// registry resolver lookups.
func NewRouter(reg RegistryReader, dir Directory, cacheTTL time.Duration) *Router {
	r := &Router{registry: reg, dir: dir}
	if cacheTTL > 0 {
		r.cache = gocache.New(cacheTTL, 2*cacheTTL)
	}
	return r
}

// Resolve implements Resolver, which lets a Router itself be registered as a
// label's resolver for one level of recursive delegation.
func (r *Router) Resolve(ctx context.Context, name []byte, query []byte) ([]byte, error) {
	label, _, err := namewire.SplitFirst(name)
	if err != nil {
		return nil, fmt.Errorf("parse name: %w", err)
	}
	if label == "" {
		return nil, fmt.Errorf("root name: %w", errs.ErrResolutionNotFound)
	}

	id, err := r.resolverFor(ctx, namewire.HashLabel(label))
	if err != nil {
		return nil, err
	}
	if id == uuid.Nil {
		return nil, fmt.Errorf("label %q: %w", label, errs.ErrResolutionNotFound)
	}

	target, err := r.dir.Lookup(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("resolver %s: %w", id, errs.ErrResolutionNotFound)
	}
	return target.Resolve(ctx, name, query)
}

func (r *Router) resolverFor(ctx context.Context, hash model.LabelHash) (uuid.UUID, error) {
	if r.cache != nil {
		if v, ok := r.cache.Get(hash.Hex()); ok {
			return v.(uuid.UUID), nil
		}
	}
	id, err := r.registry.Resolver(ctx, hash)
	if err != nil {
		return uuid.Nil, err
	}
	if r.cache != nil && id != uuid.Nil {
		r.cache.SetDefault(hash.Hex(), id)
	}
	return id, nil
}
