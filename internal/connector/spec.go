package connector

import (
	"fmt"
	"slices"
	"strings"
)

// AuthMethodSpec identifies one authentication method and the configuration
// shape it accepts.
type AuthMethodSpec struct {
	MethodID    string
	Description string
	Schema      Schema
}

// ResourceTypeSpec describes one category of target a connector type can
// reach.
type ResourceTypeSpec struct {
	ResourceTypeID string
	DisplayName    string
	// SupportsInstances is false when the connector always targets exactly
	// one implicit resource.
	SupportsInstances bool
	// SupportsDiscovery is false when accessible resource ids cannot be
	// enumerated and must be supplied by the caller.
	SupportsDiscovery bool
	// AuthMethods lists the method ids allowed for this resource type.
	AuthMethods []string
	// Resolver canonicalizes resource ids of this type.
	Resolver Resolver
}

// AllowsAuthMethod reports whether methodID may target this resource type.
func (r ResourceTypeSpec) AllowsAuthMethod(methodID string) bool {
	return slices.Contains(r.AuthMethods, methodID)
}

// TypeSpec is the immutable descriptive metadata for a connector
// implementation. It is created once at registration time and shared by all
// instances of that connector type.
type TypeSpec struct {
	TypeID        string
	DisplayName   string
	Description   string
	AuthMethods   []AuthMethodSpec
	ResourceTypes []ResourceTypeSpec
}

// AuthMethod looks up a method by id. An empty id resolves to the only
// method when the type declares exactly one.
func (s TypeSpec) AuthMethod(methodID string) (AuthMethodSpec, bool) {
	methodID = strings.TrimSpace(methodID)
	if methodID == "" && len(s.AuthMethods) == 1 {
		return s.AuthMethods[0], true
	}
	for _, m := range s.AuthMethods {
		if m.MethodID == methodID {
			return m, true
		}
	}
	return AuthMethodSpec{}, false
}

// ResourceType looks up a resource type by id. An empty id resolves to the
// only resource type when the type declares exactly one.
func (s TypeSpec) ResourceType(resourceTypeID string) (ResourceTypeSpec, bool) {
	resourceTypeID = strings.TrimSpace(resourceTypeID)
	if resourceTypeID == "" && len(s.ResourceTypes) == 1 {
		return s.ResourceTypes[0], true
	}
	for _, r := range s.ResourceTypes {
		if r.ResourceTypeID == resourceTypeID {
			return r, true
		}
	}
	return ResourceTypeSpec{}, false
}

// CanonicalResourceID parses raw with the resource type's resolver and
// returns the canonical id. Pure and total over accepted inputs.
func (s TypeSpec) CanonicalResourceID(resourceTypeID, raw string) (string, error) {
	rt, ok := s.ResourceType(resourceTypeID)
	if !ok {
		return "", &ConfigurationError{Reason: fmt.Sprintf("connector type %q has no resource type %q", s.TypeID, resourceTypeID)}
	}
	parsed, err := rt.Resolver.Parse(raw)
	if err != nil {
		return "", err
	}
	return parsed.Canonical, nil
}

// Validate checks internal consistency at registration time.
func (s TypeSpec) Validate() error {
	if strings.TrimSpace(s.TypeID) == "" {
		return &ConfigurationError{Reason: "connector type id is required"}
	}
	if len(s.AuthMethods) == 0 {
		return &ConfigurationError{Reason: fmt.Sprintf("connector type %q declares no auth methods", s.TypeID)}
	}
	if len(s.ResourceTypes) == 0 {
		return &ConfigurationError{Reason: fmt.Sprintf("connector type %q declares no resource types", s.TypeID)}
	}
	methods := make(map[string]bool, len(s.AuthMethods))
	for _, m := range s.AuthMethods {
		if strings.TrimSpace(m.MethodID) == "" {
			return &ConfigurationError{Reason: fmt.Sprintf("connector type %q has an auth method with no id", s.TypeID)}
		}
		if methods[m.MethodID] {
			return &ConfigurationError{Reason: fmt.Sprintf("connector type %q declares auth method %q twice", s.TypeID, m.MethodID)}
		}
		methods[m.MethodID] = true
	}
	for _, rt := range s.ResourceTypes {
		if strings.TrimSpace(rt.ResourceTypeID) == "" {
			return &ConfigurationError{Reason: fmt.Sprintf("connector type %q has a resource type with no id", s.TypeID)}
		}
		if rt.Resolver == nil {
			return &ConfigurationError{Reason: fmt.Sprintf("resource type %q has no resolver", rt.ResourceTypeID)}
		}
		if len(rt.AuthMethods) == 0 {
			return &ConfigurationError{Reason: fmt.Sprintf("resource type %q allows no auth methods", rt.ResourceTypeID)}
		}
		for _, id := range rt.AuthMethods {
			if !methods[id] {
				return &ConfigurationError{Reason: fmt.Sprintf("resource type %q allows undeclared auth method %q", rt.ResourceTypeID, id)}
			}
		}
	}
	return nil
}
