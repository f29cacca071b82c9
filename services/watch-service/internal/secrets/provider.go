package secrets

import (
	"context"
	"strings"

	dbconnector "datawatch"
)

type Resolver interface {
	ResolveByRef(ctx context.Context, connectionRef string) (dbconnector.ConnectionConfig, error)
}

type resolver struct {
	store Store
}

func NewResolver(store Store) Resolver {
	return &resolver{store: store}
}

func (r *resolver) ResolveByRef(ctx context.Context, connectionRef string) (dbconnector.ConnectionConfig, error) {
	if strings.TrimSpace(connectionRef) == "" {
		return dbconnector.ConnectionConfig{}, ErrInvalidInput
	}
	if r.store == nil {
		return dbconnector.ConnectionConfig{}, ErrNotConfigured
	}
	return r.store.GetConnection(ctx, connectionRef)
}

// Provider pins a resolver to one connection ref so it satisfies
// dbconnector.SecretsProvider.
type Provider struct {
	Resolver Resolver
	Ref      string
}

func NewProvider(resolver Resolver, ref string) *Provider {
	return &Provider{Resolver: resolver, Ref: ref}
}

func (p *Provider) ConnectionConfig(ctx context.Context) (dbconnector.ConnectionConfig, error) {
	if p.Resolver == nil {
		return dbconnector.ConnectionConfig{}, ErrNotConfigured
	}
	return p.Resolver.ResolveByRef(ctx, p.Ref)
}
