package connector

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// AutoConfigureOptions narrows what an auto-configure harvest should look
// for. All fields are optional.
type AutoConfigureOptions struct {
	AuthMethod   string
	ResourceType string
	ResourceID   string
}

// Seed is the outcome of an auto-configure harvest: enough material to build
// a fully configured connector instance through Registry.New.
type Seed struct {
	AuthMethod   string
	Values       map[string]string
	ResourceType string
	ResourceID   string
}

// AutoConfigureFunc harvests credentials from the ambient environment (env
// vars, local provider config files). Nil when a connector type cannot
// source credentials this way.
type AutoConfigureFunc func(ctx context.Context, opts AutoConfigureOptions) (Seed, error)

// Registration binds a connector type's metadata to its behavior.
type Registration struct {
	Spec TypeSpec
	// NewDriver builds the provider-specific driver for a validated config.
	NewDriver func(method AuthMethodSpec, cfg Config) (Driver, error)
	// AutoConfigure is the optional ambient-credential harvester.
	AutoConfigure AutoConfigureFunc
}

// Registry is the process-wide table of connector types and named live
// connector instances. Registration happens during startup; lookups are
// concurrent and unlimited.
type Registry struct {
	mu        sync.RWMutex
	types     map[string]Registration
	order     []string
	instances map[string]*Connector
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		types:     make(map[string]Registration),
		instances: make(map[string]*Connector),
	}
}

// Register adds a connector type. Append-only for the process lifetime.
func (r *Registry) Register(reg Registration) error {
	if err := reg.Spec.Validate(); err != nil {
		return err
	}
	if reg.NewDriver == nil {
		return &ConfigurationError{Reason: fmt.Sprintf("connector type %q has no driver constructor", reg.Spec.TypeID)}
	}
	typeID := strings.ToLower(strings.TrimSpace(reg.Spec.TypeID))

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.types[typeID]; exists {
		return &DuplicateTypeError{TypeID: typeID}
	}
	r.types[typeID] = reg
	r.order = append(r.order, typeID)
	return nil
}

// Type retrieves a connector type registration by id.
func (r *Registry) Type(typeID string) (Registration, error) {
	id := strings.ToLower(strings.TrimSpace(typeID))
	r.mu.RLock()
	reg, ok := r.types[id]
	r.mu.RUnlock()
	if !ok {
		return Registration{}, &UnknownTypeError{TypeID: typeID}
	}
	return reg, nil
}

// Types returns all registrations in registration order.
func (r *Registry) Types() []Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	regs := make([]Registration, 0, len(r.order))
	for _, id := range r.order {
		regs = append(regs, r.types[id])
	}
	return regs
}

// New constructs a connector instance: it resolves the auth method and
// resource type (falling back to the type's only one when unnamed),
// validates the credential values against the method schema, checks that the
// method is allowed for the resource type, and canonicalizes the bound
// resource id. All scope and schema mismatches fail here; operations never
// re-check them.
func (r *Registry) New(typeID, authMethod string, values map[string]string, resourceTypeID, resourceID string) (*Connector, error) {
	reg, err := r.Type(typeID)
	if err != nil {
		return nil, err
	}
	spec := reg.Spec

	method, ok := spec.AuthMethod(authMethod)
	if !ok {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("connector type %q has no auth method %q", spec.TypeID, authMethod)}
	}
	rt, ok := spec.ResourceType(resourceTypeID)
	if !ok {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("connector type %q has no resource type %q", spec.TypeID, resourceTypeID)}
	}
	if !rt.AllowsAuthMethod(method.MethodID) {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("auth method %q is not allowed for resource type %q", method.MethodID, rt.ResourceTypeID)}
	}

	cfg, err := NewConfig(method.Schema, values)
	if err != nil {
		return nil, err
	}

	canonicalID := ""
	if strings.TrimSpace(resourceID) != "" {
		if !rt.SupportsInstances {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("resource type %q targets a single implicit resource, no resource id may be bound", rt.ResourceTypeID)}
		}
		parsed, err := rt.Resolver.Parse(resourceID)
		if err != nil {
			return nil, err
		}
		canonicalID = parsed.Canonical
	}

	driver, err := reg.NewDriver(method, cfg)
	if err != nil {
		return nil, err
	}
	return newConnector(spec, method, cfg, rt, canonicalID, driver), nil
}

// AutoConfigure builds a fully configured connector by harvesting
// credentials from the ambient environment. Connector types without a
// harvester fail with NotSupportedError.
func (r *Registry) AutoConfigure(ctx context.Context, typeID string, opts AutoConfigureOptions) (*Connector, error) {
	reg, err := r.Type(typeID)
	if err != nil {
		return nil, err
	}
	if reg.AutoConfigure == nil {
		return nil, &NotSupportedError{TypeID: reg.Spec.TypeID, Capability: "auto-configuration"}
	}
	seed, err := reg.AutoConfigure(ctx, opts)
	if err != nil {
		return nil, err
	}
	return r.New(reg.Spec.TypeID, seed.AuthMethod, seed.Values, seed.ResourceType, seed.ResourceID)
}

// RegisterInstance adds a named live connector instance.
func (r *Registry) RegisterInstance(name string, c *Connector) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return &ConfigurationError{Reason: "connector instance name is required"}
	}
	if c == nil {
		return &ConfigurationError{Reason: "connector instance is nil"}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.instances[name]; exists {
		return &ConfigurationError{Reason: fmt.Sprintf("connector instance %q already registered", name)}
	}
	r.instances[name] = c
	return nil
}

// Instance retrieves a live connector instance by name.
func (r *Registry) Instance(name string) (*Connector, bool) {
	r.mu.RLock()
	c, ok := r.instances[strings.TrimSpace(name)]
	r.mu.RUnlock()
	return c, ok
}

// RemoveInstance discards a named instance, synchronously tearing down its
// cached clients.
func (r *Registry) RemoveInstance(name string) error {
	r.mu.Lock()
	c, ok := r.instances[strings.TrimSpace(name)]
	if ok {
		delete(r.instances, strings.TrimSpace(name))
	}
	r.mu.Unlock()
	if !ok {
		return nil
	}
	return c.Disconnect()
}

// InstanceNames returns the names of all live instances, sorted.
func (r *Registry) InstanceNames() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.instances))
	for name := range r.instances {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}
