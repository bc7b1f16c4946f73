package docker

import (
	"regexp"
	"strings"

	"github.com/tetherhq/tether/internal/connector"
)

var (
	// repositoryShape matches fully qualified repository references:
	// [scheme://]host[:port]/path. Tried before the bare-name shape because
	// it is the more specific of the two.
	repositoryShape = regexp.MustCompile(`^(https?://)?[a-zA-Z0-9-]+(\.[a-zA-Z0-9-]+)*(:[0-9]+)?/.+$`)
	// bareNameShape matches public-registry repository names.
	bareNameShape = regexp.MustCompile(`^[a-zA-Z0-9-]+$`)
)

// Resolver canonicalizes Docker repository references. The canonical id of a
// repository URI is the scheme-stripped host[:port]/path; a bare name is
// already canonical and carries no registry host.
func Resolver() connector.Resolver {
	return connector.ShapeResolver{
		ResourceType: ResourceTypeRegistry,
		Hint:         "use [https://]host[:port]/<repository-name> or a bare public repository name",
		Shapes: []connector.Shape{
			{
				Pattern: repositoryShape,
				Parse: func(raw string) connector.Parsed {
					canonical := raw
					if i := strings.Index(canonical, "://"); i >= 0 {
						canonical = canonical[i+len("://"):]
					}
					host, _, _ := strings.Cut(canonical, "/")
					return connector.Parsed{
						Canonical: canonical,
						Fields:    map[string]string{fieldHost: host},
					}
				},
			},
			{
				Pattern: bareNameShape,
				Parse: func(raw string) connector.Parsed {
					return connector.Parsed{Canonical: raw}
				},
			},
		},
	}
}

// TypeSpec returns the Docker connector type metadata.
func TypeSpec() connector.TypeSpec {
	return connector.TypeSpec{
		TypeID:      TypeID,
		DisplayName: "Docker Service Connector",
		Description: "Authenticates with a Docker or OCI container registry and manages pre-authenticated registry clients.",
		AuthMethods: []connector.AuthMethodSpec{{
			MethodID:    MethodPassword,
			Description: "Username and password or access token.",
			Schema: connector.Schema{Fields: []connector.FieldSpec{
				{Name: fieldUsername, Description: "Registry username.", Required: true},
				{Name: fieldPassword, Description: "Registry password or access token.", Required: true, Secret: true},
			}},
		}},
		ResourceTypes: []connector.ResourceTypeSpec{{
			ResourceTypeID:    ResourceTypeRegistry,
			DisplayName:       "Docker/OCI container registry",
			SupportsInstances: true,
			// A registry cannot enumerate the repositories a credential can
			// access; callers supply repository ids explicitly.
			SupportsDiscovery: false,
			AuthMethods:       []string{MethodPassword},
			Resolver:          Resolver(),
		}},
	}
}

// NewRegistration builds the registry entry for the Docker connector. The
// connector cannot harvest credentials from the environment, so it declares
// no auto-configuration.
func NewRegistration(opts Options) connector.Registration {
	return connector.Registration{
		Spec: TypeSpec(),
		NewDriver: func(method connector.AuthMethodSpec, cfg connector.Config) (connector.Driver, error) {
			return newDriver(cfg, opts), nil
		},
	}
}
