package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tetherhq/tether/internal/config"
	"github.com/tetherhq/tether/internal/connector"
)

var loginFlags struct {
	name         string
	authMethod   string
	resourceType string
	resourceID   string
	values       []string
}

var loginCmd = &cobra.Command{
	Use:   "login [type]",
	Short: "Materialize credentials into the provider's own local tool, e.g. docker login.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadWithOptions(config.LoadOptions{RequireDatabaseURL: loginFlags.name != ""})
		if err != nil {
			return err
		}
		reg, err := buildConnectorRegistry(cfg)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.ConnectTimeout)
		defer cancel()

		var inst *connector.Connector
		switch {
		case loginFlags.name != "":
			inst, err = loadSavedConnector(ctx, cfg, reg, loginFlags.name)
		case len(args) == 1:
			var values map[string]string
			values, err = parseSetValues(loginFlags.values)
			if err != nil {
				return err
			}
			registration, regErr := reg.Type(args[0])
			if regErr != nil {
				return regErr
			}
			if err := promptMissingSecrets(registration.Spec, loginFlags.authMethod, values, cmd.ErrOrStderr()); err != nil {
				return err
			}
			inst, err = reg.New(args[0], loginFlags.authMethod, values, loginFlags.resourceType, loginFlags.resourceID)
		default:
			return errors.New("a connector type or --name is required")
		}
		if err != nil {
			return err
		}

		if err := inst.ConfigureLocalClient(ctx, loginFlags.resourceID); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "local client configured")
		return nil
	},
}

// promptMissingSecrets asks for required secret fields that were not given
// with --set, so secrets stay out of shell history. Prompting needs a
// terminal; anything else fails the required-field validation later.
func promptMissingSecrets(spec connector.TypeSpec, authMethod string, values map[string]string, prompt io.Writer) error {
	method, ok := spec.AuthMethod(authMethod)
	if !ok {
		return nil
	}
	fd := int(os.Stdin.Fd())
	for _, field := range method.Schema.Fields {
		if !field.Secret || !field.Required {
			continue
		}
		if _, present := values[field.Name]; present {
			continue
		}
		if !term.IsTerminal(fd) {
			continue
		}
		fmt.Fprintf(prompt, "%s: ", field.Name)
		entered, err := term.ReadPassword(fd)
		fmt.Fprintln(prompt)
		if err != nil {
			return fmt.Errorf("reading %s: %w", field.Name, err)
		}
		values[field.Name] = string(entered)
	}
	return nil
}

func init() {
	loginCmd.Flags().StringVar(&loginFlags.name, "name", "", "use a saved connector instead of building one from flags")
	loginCmd.Flags().StringVar(&loginFlags.authMethod, "auth-method", "", "auth method id (optional when the type has exactly one)")
	loginCmd.Flags().StringVar(&loginFlags.resourceType, "resource-type", "", "resource type id (optional when the type has exactly one)")
	loginCmd.Flags().StringVar(&loginFlags.resourceID, "resource-id", "", "target resource id")
	loginCmd.Flags().StringArrayVar(&loginFlags.values, "set", nil, "configuration value as key=value, repeatable")
}
