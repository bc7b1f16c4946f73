package connector

import (
	"regexp"
	"strings"
)

// Parsed is the canonical decomposition of a raw resource id.
type Parsed struct {
	// Canonical is the normalized resource id. Canonicalization is
	// idempotent: parsing a canonical id yields the same canonical id.
	Canonical string
	// Fields holds the resource-type specific decomposition, e.g. the
	// registry host of a repository reference.
	Fields map[string]string
}

// Resolver classifies and canonicalizes raw resource ids for one resource
// type.
type Resolver interface {
	// Parse returns the canonical form of raw, or an InvalidResourceIDError
	// when raw matches none of the accepted shapes.
	Parse(raw string) (Parsed, error)
}

// Shape is one accepted form of a resource id. Shapes are tried in order and
// the first match wins, so more specific shapes must come first.
type Shape struct {
	Pattern *regexp.Regexp
	Parse   func(raw string) Parsed
}

// ShapeResolver resolves resource ids against an ordered set of shapes.
type ShapeResolver struct {
	ResourceType string
	Shapes       []Shape
	// Hint is appended to rejection errors to tell callers what the
	// accepted forms look like.
	Hint string
}

func (r ShapeResolver) Parse(raw string) (Parsed, error) {
	trimmed := strings.TrimSpace(raw)
	for _, shape := range r.Shapes {
		if shape.Pattern.MatchString(trimmed) {
			return shape.Parse(trimmed), nil
		}
	}
	return Parsed{}, &InvalidResourceIDError{
		ResourceType: r.ResourceType,
		Raw:          raw,
		Hint:         r.Hint,
	}
}
