// Package vault connects to a HashiCorp Vault server with a client token
// or an AppRole login and manages authenticated API clients for it.
package vault

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	neturl "net/url"
	"strings"
	"time"

	vaultapi "github.com/hashicorp/vault/api"

	"github.com/tetherhq/tether/internal/connector"
)

const (
	// TypeID identifies the Vault connector type.
	TypeID = "vault"
	// ResourceTypeServer is the one Vault server the configured address
	// points at.
	ResourceTypeServer = "vault-server"
	// MethodToken authenticates with an existing client token.
	MethodToken = "token"
	// MethodAppRole logs in through an AppRole mount to obtain a token.
	MethodAppRole = "approle"

	fieldAddress   = "address"
	fieldNamespace = "namespace"
	fieldToken     = "token"
	fieldRoleID    = "role_id"
	fieldSecretID  = "secret_id"
	fieldMountPath = "mount_path"

	defaultAppRoleMount = "approle"
	defaultHTTPTimeout  = 120 * time.Second
)

// Client is the authenticated handle handed back by Connect.
type Client struct {
	API *vaultapi.Client
	// Address is the canonical server address the client talks to.
	Address string
}

type driver struct {
	cfg    connector.Config
	method string
}

func newDriver(method connector.AuthMethodSpec, cfg connector.Config) *driver {
	return &driver{cfg: cfg, method: method.MethodID}
}

// login builds a Vault API client and authenticates it. AppRole logins
// exchange the role and secret id for a client token; token auth uses the
// configured token as-is.
func (d *driver) login(ctx context.Context) (*vaultapi.Client, error) {
	address := d.cfg.Value(fieldAddress)

	apiCfg := vaultapi.DefaultConfig()
	apiCfg.Address = address
	apiCfg.HttpClient = &http.Client{Timeout: defaultHTTPTimeout}

	client, err := vaultapi.NewClient(apiCfg)
	if err != nil {
		return nil, &connector.ConfigurationError{Reason: "vault client setup", Err: err}
	}
	if namespace := d.cfg.Value(fieldNamespace); namespace != "" {
		client.SetNamespace(namespace)
	}

	switch d.method {
	case MethodAppRole:
		mountPath := strings.Trim(d.cfg.Value(fieldMountPath), "/")
		if mountPath == "" {
			mountPath = defaultAppRoleMount
		}
		loginPath := "auth/" + mountPath + "/login"
		secret, err := client.Logical().WriteWithContext(ctx, loginPath, map[string]any{
			"role_id":   d.cfg.Value(fieldRoleID),
			"secret_id": d.cfg.SecretValue(fieldSecretID).Reveal(),
		})
		if err != nil {
			return nil, classify(err)
		}
		if secret == nil || secret.Auth == nil || strings.TrimSpace(secret.Auth.ClientToken) == "" {
			return nil, &connector.AuthorizationError{
				TypeID: TypeID,
				Err:    fmt.Errorf("approle login at %s returned no client token", loginPath),
			}
		}
		client.SetToken(secret.Auth.ClientToken)
	default:
		client.SetToken(d.cfg.SecretValue(fieldToken).Reveal())
	}
	return client, nil
}

// classify maps Vault API failures onto connector error kinds. Vault
// answers bad credentials on login and lookup paths with 400 or 403.
func classify(err error) error {
	var respErr *vaultapi.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.StatusCode {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
			return &connector.AuthorizationError{TypeID: TypeID, Err: err}
		}
		return fmt.Errorf("vault api: %w", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("vault api: %v: %w", err, connector.ErrProviderUnreachable)
	}
	return err
}

func (d *driver) Connect(ctx context.Context, _ connector.Request) (any, error) {
	client, err := d.login(ctx)
	if err != nil {
		return nil, err
	}
	// Prove the token before handing out the client.
	if _, err := client.Auth().Token().LookupSelfWithContext(ctx); err != nil {
		return nil, classify(err)
	}
	return &Client{API: client, Address: canonicalAddress(d.cfg.Value(fieldAddress))}, nil
}

func (d *driver) Verify(ctx context.Context, req connector.Request) ([]string, error) {
	server := canonicalAddress(d.cfg.Value(fieldAddress))
	if req.ResourceID != "" && req.ResourceID != server {
		return nil, &connector.AuthorizationError{
			TypeID: TypeID,
			Err:    fmt.Errorf("credentials authenticate to %s, not %s", server, req.ResourceID),
		}
	}
	client, err := d.login(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := client.Auth().Token().LookupSelfWithContext(ctx); err != nil {
		return nil, classify(err)
	}
	return []string{server}, nil
}

// canonicalAddress reduces a server address to lowercased host[:port].
func canonicalAddress(address string) string {
	address = strings.ToLower(strings.TrimSpace(address))
	if parsed, err := neturl.Parse(address); err == nil && parsed.Host != "" {
		return parsed.Host
	}
	address = strings.TrimPrefix(address, "https://")
	address = strings.TrimPrefix(address, "http://")
	return strings.TrimSuffix(address, "/")
}
