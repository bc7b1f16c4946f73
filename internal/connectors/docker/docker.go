// Package docker connects to Docker and OCI container registries. It hands
// out pre-authenticated registry clients, verifies credentials with a
// lightweight registry ping, and can materialize a login into the local
// docker CLI.
package docker

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"

	"oras.land/oras-go/v2/registry/remote"
	"oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/errcode"
	"oras.land/oras-go/v2/registry/remote/retry"

	"github.com/tetherhq/tether/internal/connector"
)

const (
	// TypeID identifies the Docker connector type.
	TypeID = "docker"
	// ResourceTypeRegistry is the Docker/OCI registry resource type.
	ResourceTypeRegistry = "docker-registry"
	// MethodPassword authenticates with a username and password or access
	// token.
	MethodPassword = "password"

	// publicRegistryHost is where bare repository names resolve to.
	publicRegistryHost = "docker.io"

	fieldUsername = "username"
	fieldPassword = "password"
	fieldHost     = "registry"
)

// Options configure the Docker connector driver.
type Options struct {
	// PlainHTTP talks to the registry without TLS. Test and air-gapped
	// registries only.
	PlainHTTP bool
	// CLI overrides the docker binary used for local client configuration.
	CLI string
}

// RegistryClient is the authenticated handle Connect returns: an oras remote
// registry scoped to one repository.
type RegistryClient struct {
	Registry   *remote.Registry
	Repository string
}

type driver struct {
	cfg  connector.Config
	opts Options
	// runCLI is swapped out in tests.
	runCLI cliRunner
}

func newDriver(cfg connector.Config, opts Options) *driver {
	return &driver{cfg: cfg, opts: opts, runCLI: runDockerCLI}
}

// registryHost extracts the registry host from a parsed resource id, falling
// back to the public registry for bare repository names.
func registryHost(req connector.Request) string {
	if host := req.Parsed.Fields[fieldHost]; host != "" {
		return host
	}
	return publicRegistryHost
}

func (d *driver) newRegistry(host string) (*remote.Registry, error) {
	reg, err := remote.NewRegistry(host)
	if err != nil {
		return nil, fmt.Errorf("registry client for %q: %w", host, err)
	}
	reg.PlainHTTP = d.opts.PlainHTTP
	reg.Client = &auth.Client{
		Client: retry.DefaultClient,
		Cache:  auth.NewCache(),
		Credential: auth.StaticCredential(host, auth.Credential{
			Username: d.cfg.SecretValue(fieldUsername).Reveal(),
			Password: d.cfg.SecretValue(fieldPassword).Reveal(),
		}),
	}
	return reg, nil
}

// ping performs the registry handshake and classifies the failure modes:
// rejected credentials are terminal, an unreachable registry is reported
// through connector.ErrProviderUnreachable so Verify can treat it as
// inconclusive.
func (d *driver) ping(ctx context.Context, host string) (*remote.Registry, error) {
	reg, err := d.newRegistry(host)
	if err != nil {
		return nil, err
	}
	if err := reg.Ping(ctx); err != nil {
		return nil, classifyPingError(host, err)
	}
	return reg, nil
}

func classifyPingError(host string, err error) error {
	var ec *errcode.ErrorResponse
	if errors.As(err, &ec) {
		if ec.StatusCode == 401 || ec.StatusCode == 403 {
			return &connector.AuthorizationError{TypeID: TypeID, Err: err}
		}
		return fmt.Errorf("registry %q handshake: %w", host, err)
	}

	var netErr net.Error
	var urlErr *url.Error
	if errors.As(err, &netErr) || errors.As(err, &urlErr) {
		return fmt.Errorf("registry %q: %v: %w", host, err, connector.ErrProviderUnreachable)
	}
	return fmt.Errorf("registry %q handshake: %w", host, err)
}

func (d *driver) Connect(ctx context.Context, req connector.Request) (any, error) {
	host := registryHost(req)
	reg, err := d.ping(ctx, host)
	if err != nil {
		return nil, err
	}
	return &RegistryClient{Registry: reg, Repository: req.ResourceID}, nil
}

func (d *driver) Verify(ctx context.Context, req connector.Request) ([]string, error) {
	// Without a repository there is nothing to enumerate: a registry does
	// not expose the set of repositories a credential can access.
	if req.ResourceID == "" {
		return nil, nil
	}
	if _, err := d.ping(ctx, registryHost(req)); err != nil {
		return nil, err
	}
	return []string{req.ResourceID}, nil
}
