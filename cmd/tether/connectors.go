package main

import (
	"github.com/tetherhq/tether/internal/config"
	"github.com/tetherhq/tether/internal/connector"
	"github.com/tetherhq/tether/internal/connectors/aws"
	"github.com/tetherhq/tether/internal/connectors/docker"
	"github.com/tetherhq/tether/internal/connectors/vault"
)

func buildConnectorRegistry(cfg config.Config) (*connector.Registry, error) {
	reg := connector.NewRegistry()
	if err := reg.Register(docker.NewRegistration(docker.Options{PlainHTTP: cfg.PlainHTTP})); err != nil {
		return nil, err
	}
	if err := reg.Register(aws.NewRegistration()); err != nil {
		return nil, err
	}
	if err := reg.Register(vault.NewRegistration()); err != nil {
		return nil, err
	}
	return reg, nil
}
