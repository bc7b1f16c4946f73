package vault

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/tetherhq/tether/internal/connector"
)

// serverShape matches Vault server addresses: [scheme://]host[:port][/].
var serverShape = regexp.MustCompile(`^(https?://)?[a-zA-Z0-9]([a-zA-Z0-9.\-]*[a-zA-Z0-9])?(:[0-9]+)?/?$`)

// Resolver canonicalizes Vault server references to lowercased host[:port].
func Resolver() connector.Resolver {
	return connector.ShapeResolver{
		ResourceType: ResourceTypeServer,
		Hint:         "use [https://]host[:port]",
		Shapes: []connector.Shape{{
			Pattern: serverShape,
			Parse: func(raw string) connector.Parsed {
				canonical := canonicalAddress(raw)
				return connector.Parsed{
					Canonical: canonical,
					Fields:    map[string]string{"host": canonical},
				}
			},
		}},
	}
}

// TypeSpec returns the Vault connector type metadata.
func TypeSpec() connector.TypeSpec {
	return connector.TypeSpec{
		TypeID:      TypeID,
		DisplayName: "HashiCorp Vault Service Connector",
		Description: "Authenticates with a HashiCorp Vault server and manages authenticated API clients.",
		AuthMethods: []connector.AuthMethodSpec{
			{
				MethodID:    MethodToken,
				Description: "Existing Vault client token.",
				Schema: connector.Schema{Fields: []connector.FieldSpec{
					{Name: fieldAddress, Description: "Vault server address.", Required: true},
					{Name: fieldToken, Description: "Vault client token.", Required: true, Secret: true},
					{Name: fieldNamespace, Description: "Vault namespace."},
				}},
			},
			{
				MethodID:    MethodAppRole,
				Description: "AppRole login exchanging a role id and secret id for a token.",
				Schema: connector.Schema{Fields: []connector.FieldSpec{
					{Name: fieldAddress, Description: "Vault server address.", Required: true},
					{Name: fieldRoleID, Description: "AppRole role id.", Required: true},
					{Name: fieldSecretID, Description: "AppRole secret id.", Required: true, Secret: true},
					{Name: fieldMountPath, Description: "AppRole auth mount path, defaults to approle."},
					{Name: fieldNamespace, Description: "Vault namespace."},
				}},
			},
		},
		ResourceTypes: []connector.ResourceTypeSpec{{
			ResourceTypeID: ResourceTypeServer,
			DisplayName:    "Vault server",
			// The configured address determines the server; discovery
			// confirms it by looking up the token.
			SupportsInstances: false,
			SupportsDiscovery: true,
			AuthMethods:       []string{MethodToken, MethodAppRole},
			Resolver:          Resolver(),
		}},
	}
}

// AutoConfigure harvests the CLI's own ambient state: VAULT_ADDR plus a
// token from VAULT_TOKEN or ~/.vault-token.
func AutoConfigure(_ context.Context, opts connector.AutoConfigureOptions) (connector.Seed, error) {
	if opts.AuthMethod != "" && opts.AuthMethod != MethodToken {
		return connector.Seed{}, &connector.NotSupportedError{
			TypeID:     TypeID,
			Capability: "auto-configure with auth method " + opts.AuthMethod,
		}
	}

	address := strings.TrimSpace(os.Getenv("VAULT_ADDR"))
	if address == "" {
		return connector.Seed{}, &connector.ConfigurationError{Reason: "VAULT_ADDR is not set"}
	}
	token := strings.TrimSpace(os.Getenv("VAULT_TOKEN"))
	if token == "" {
		token = tokenHelperFile()
	}
	if token == "" {
		return connector.Seed{}, &connector.ConfigurationError{Reason: "no Vault token in VAULT_TOKEN or ~/.vault-token"}
	}

	values := map[string]string{
		fieldAddress: address,
		fieldToken:   token,
	}
	if namespace := strings.TrimSpace(os.Getenv("VAULT_NAMESPACE")); namespace != "" {
		values[fieldNamespace] = namespace
	}

	seed := connector.Seed{
		AuthMethod:   MethodToken,
		Values:       values,
		ResourceType: opts.ResourceType,
		ResourceID:   opts.ResourceID,
	}
	if seed.ResourceType == "" {
		seed.ResourceType = ResourceTypeServer
	}
	return seed, nil
}

func tokenHelperFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	data, err := os.ReadFile(filepath.Join(home, ".vault-token"))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// NewRegistration builds the registry entry for the Vault connector.
func NewRegistration() connector.Registration {
	return connector.Registration{
		Spec: TypeSpec(),
		NewDriver: func(method connector.AuthMethodSpec, cfg connector.Config) (connector.Driver, error) {
			return newDriver(method, cfg), nil
		},
		AutoConfigure: AutoConfigure,
	}
}
