package connector

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/tetherhq/tether/internal/metrics"
)

// Request carries everything a driver needs to reach one resource.
type Request struct {
	AuthMethod   string
	Config       Config
	ResourceType ResourceTypeSpec
	// ResourceID is the canonical resource id, or empty for resource types
	// that target a single implicit resource and for discovery-mode verify.
	ResourceID string
	// Parsed is the decomposition of ResourceID. Zero when ResourceID is
	// empty.
	Parsed Parsed
}

// Driver is the provider-specific behavior behind a connector instance. The
// framework owns resolution, caching, and error classification around it;
// the driver owns the provider SDK.
type Driver interface {
	// Connect performs the provider handshake and returns an authenticated
	// client handle. Rejected credentials must surface as an
	// AuthorizationError.
	Connect(ctx context.Context, req Request) (any, error)

	// Verify performs the cheapest possible credential check. With a
	// resource id it validates exactly that resource; without one it
	// enumerates accessible ids when the resource type supports discovery
	// and returns nil otherwise. A locally unreachable provider is reported
	// by wrapping ErrProviderUnreachable.
	Verify(ctx context.Context, req Request) ([]string, error)
}

// LocalConfigurer is the optional capability of materializing credentials
// into an external tool's own configuration.
type LocalConfigurer interface {
	ConfigureLocalClient(ctx context.Context, req Request) error
}

// Connector binds a validated credential bundle and a target resource to
// live behavior. Instances move between a configured state (no client) and a
// connected state (client cached); Disconnect returns them to configured.
type Connector struct {
	spec         TypeSpec
	authMethod   AuthMethodSpec
	resourceType ResourceTypeSpec
	resourceID   string
	driver       Driver
	cache        *clientCache

	mu     sync.RWMutex
	config Config
}

func newConnector(spec TypeSpec, method AuthMethodSpec, cfg Config, rt ResourceTypeSpec, canonicalID string, driver Driver) *Connector {
	return &Connector{
		spec:         spec,
		authMethod:   method,
		config:       cfg,
		resourceType: rt,
		resourceID:   canonicalID,
		driver:       driver,
		cache:        newClientCache(),
	}
}

// Spec returns the connector type metadata.
func (c *Connector) Spec() TypeSpec { return c.spec }

// AuthMethod returns the method this instance authenticates with.
func (c *Connector) AuthMethod() AuthMethodSpec { return c.authMethod }

// ResourceType returns the resource type this instance targets.
func (c *Connector) ResourceType() ResourceTypeSpec { return c.resourceType }

// ResourceID returns the bound canonical resource id, or empty when unbound.
func (c *Connector) ResourceID() string { return c.resourceID }

// Config returns the credential bundle. Secrets stay masked outside Reveal.
func (c *Connector) Config() Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.config
}

// Rotate replaces the credential bundle after validating the new values
// against the same method schema. The cached clients are not torn down
// eagerly; the next Connect observes the fingerprint mismatch, evicts the
// stale client, and performs a fresh handshake.
func (c *Connector) Rotate(values map[string]string) error {
	cfg, err := NewConfig(c.authMethod.Schema, values)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.config = cfg
	c.mu.Unlock()
	return nil
}

// effectiveResource picks the resource id for an operation: the explicit
// argument, else the bound id, else the implicit single resource. It fails
// with AmbiguousResourceError when the resource type is multi-instance and
// nothing was supplied.
func (c *Connector) effectiveResource(raw string) (string, Parsed, error) {
	if raw == "" {
		raw = c.resourceID
	}
	if raw == "" {
		if c.resourceType.SupportsInstances {
			return "", Parsed{}, &AmbiguousResourceError{ResourceType: c.resourceType.ResourceTypeID}
		}
		return singleResourceKey, Parsed{}, nil
	}
	parsed, err := c.resourceType.Resolver.Parse(raw)
	if err != nil {
		return "", Parsed{}, err
	}
	return parsed.Canonical, parsed, nil
}

// Connect resolves the effective resource id and returns an authenticated
// client, reusing the cached one when its credential fingerprint still
// matches. Concurrent calls for the same resource coalesce into a single
// provider handshake. Credential rotation evicts the stale client before a
// fresh handshake; nothing is ever retried.
func (c *Connector) Connect(ctx context.Context, resourceID string) (any, error) {
	canonical, parsed, err := c.effectiveResource(resourceID)
	if err != nil {
		return nil, err
	}

	cfg := c.Config()
	fingerprint := cfg.Fingerprint()
	if client, ok := c.cache.lookup(canonical, fingerprint); ok {
		metrics.ClientCacheHitsTotal.WithLabelValues(c.spec.TypeID).Inc()
		return client, nil
	}

	client, err, _ := c.cache.group.Do(canonical, func() (any, error) {
		// A concurrent caller may have populated the entry while this one
		// waited on the flight group.
		if client, ok := c.cache.lookup(canonical, fingerprint); ok {
			metrics.ClientCacheHitsTotal.WithLabelValues(c.spec.TypeID).Inc()
			return client, nil
		}
		if c.cache.stale(canonical, fingerprint) {
			metrics.ClientCacheEvictionsTotal.WithLabelValues(c.spec.TypeID, "credential_rotation").Inc()
			if err := c.cache.evict(canonical); err != nil {
				slog.Warn("closing superseded client failed",
					"connector_type", c.spec.TypeID, "resource_id", canonical, "error", err)
			}
		}
		metrics.ClientCacheMissesTotal.WithLabelValues(c.spec.TypeID).Inc()

		start := time.Now()
		client, err := c.driver.Connect(ctx, Request{
			AuthMethod:   c.authMethod.MethodID,
			Config:       cfg,
			ResourceType: c.resourceType,
			ResourceID:   canonical,
			Parsed:       parsed,
		})
		metrics.ConnectDuration.WithLabelValues(c.spec.TypeID, c.resourceType.ResourceTypeID).Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.ConnectTotal.WithLabelValues(c.spec.TypeID, c.resourceType.ResourceTypeID, "error").Inc()
			return nil, err
		}
		metrics.ConnectTotal.WithLabelValues(c.spec.TypeID, c.resourceType.ResourceTypeID, "ok").Inc()
		c.cache.store(canonical, fingerprint, client)
		return client, nil
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

// Verify checks that the credentials are valid without touching the client
// cache. With an explicit resource id it confirms exactly that resource;
// without one it enumerates accessible ids when the resource type supports
// discovery, and returns an empty list otherwise (nothing confirmed; callers
// of non-discoverable types must pass explicit ids). A locally unreachable
// provider is inconclusive: Verify logs it and returns an empty list, not an
// error.
func (c *Connector) Verify(ctx context.Context, resourceTypeID, resourceID string) ([]string, error) {
	rt := c.resourceType
	if resourceTypeID != "" {
		found, ok := c.spec.ResourceType(resourceTypeID)
		if !ok {
			return nil, &ConfigurationError{Reason: "connector type " + c.spec.TypeID + " has no resource type " + resourceTypeID}
		}
		rt = found
	}

	if resourceID == "" {
		resourceID = c.resourceID
	}
	canonical := ""
	parsed := Parsed{}
	if resourceID != "" {
		p, err := rt.Resolver.Parse(resourceID)
		if err != nil {
			return nil, err
		}
		canonical, parsed = p.Canonical, p
	}

	ids, err := c.driver.Verify(ctx, Request{
		AuthMethod:   c.authMethod.MethodID,
		Config:       c.Config(),
		ResourceType: rt,
		ResourceID:   canonical,
		Parsed:       parsed,
	})
	if err != nil {
		if errors.Is(err, ErrProviderUnreachable) {
			metrics.VerifyTotal.WithLabelValues(c.spec.TypeID, rt.ResourceTypeID, "inconclusive").Inc()
			slog.Warn("provider unreachable, verification inconclusive",
				"connector_type", c.spec.TypeID, "resource_type", rt.ResourceTypeID, "error", err)
			return []string{}, nil
		}
		metrics.VerifyTotal.WithLabelValues(c.spec.TypeID, rt.ResourceTypeID, "error").Inc()
		return nil, err
	}

	metrics.VerifyTotal.WithLabelValues(c.spec.TypeID, rt.ResourceTypeID, "ok").Inc()
	if canonical != "" {
		return []string{canonical}, nil
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// ConfigureLocalClient materializes the credentials into an external tool's
// own configuration, e.g. a CLI credential store.
func (c *Connector) ConfigureLocalClient(ctx context.Context, resourceID string) error {
	configurer, ok := c.driver.(LocalConfigurer)
	if !ok {
		return &NotSupportedError{TypeID: c.spec.TypeID, Capability: "local client configuration"}
	}
	canonical, parsed, err := c.effectiveResource(resourceID)
	if err != nil {
		return err
	}
	err = configurer.ConfigureLocalClient(ctx, Request{
		AuthMethod:   c.authMethod.MethodID,
		Config:       c.Config(),
		ResourceType: c.resourceType,
		ResourceID:   canonical,
		Parsed:       parsed,
	})
	if err != nil {
		metrics.LocalLoginTotal.WithLabelValues(c.spec.TypeID, "error").Inc()
		return err
	}
	metrics.LocalLoginTotal.WithLabelValues(c.spec.TypeID, "ok").Inc()
	return nil
}

// Disconnect synchronously evicts every cached client, closing provider-side
// sessions before it returns. The instance stays usable; the next Connect
// performs a fresh handshake.
func (c *Connector) Disconnect() error {
	if n := c.cache.len(); n > 0 {
		metrics.ClientCacheEvictionsTotal.WithLabelValues(c.spec.TypeID, "disconnect").Add(float64(n))
	}
	return c.cache.purge()
}

// CanonicalResourceID canonicalizes raw for one of this connector's resource
// types without touching provider state.
func (c *Connector) CanonicalResourceID(resourceTypeID, raw string) (string, error) {
	return c.spec.CanonicalResourceID(resourceTypeID, raw)
}
