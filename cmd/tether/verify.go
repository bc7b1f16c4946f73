package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tetherhq/tether/internal/config"
	"github.com/tetherhq/tether/internal/connector"
)

var verifyFlags struct {
	name         string
	authMethod   string
	resourceType string
	resourceID   string
	values       []string
}

var verifyCmd = &cobra.Command{
	Use:   "verify [type]",
	Short: "Check credentials against the live provider and list reachable resources.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadWithOptions(config.LoadOptions{RequireDatabaseURL: verifyFlags.name != ""})
		if err != nil {
			return err
		}
		reg, err := buildConnectorRegistry(cfg)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.VerifyTimeout)
		defer cancel()

		var inst *connector.Connector
		switch {
		case verifyFlags.name != "":
			inst, err = loadSavedConnector(ctx, cfg, reg, verifyFlags.name)
		case len(args) == 1:
			var values map[string]string
			values, err = parseSetValues(verifyFlags.values)
			if err != nil {
				return err
			}
			inst, err = reg.New(args[0], verifyFlags.authMethod, values, verifyFlags.resourceType, "")
		default:
			return errors.New("a connector type or --name is required")
		}
		if err != nil {
			return err
		}

		ids, err := inst.Verify(ctx, verifyFlags.resourceType, verifyFlags.resourceID)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(ids) == 0 {
			fmt.Fprintln(out, "no resources confirmed")
			return nil
		}
		for _, id := range ids {
			fmt.Fprintln(out, id)
		}
		return nil
	},
}

func init() {
	verifyCmd.Flags().StringVar(&verifyFlags.name, "name", "", "verify a saved connector instead of building one from flags")
	verifyCmd.Flags().StringVar(&verifyFlags.authMethod, "auth-method", "", "auth method id (optional when the type has exactly one)")
	verifyCmd.Flags().StringVar(&verifyFlags.resourceType, "resource-type", "", "resource type id (optional when the type has exactly one)")
	verifyCmd.Flags().StringVar(&verifyFlags.resourceID, "resource-id", "", "verify exactly this resource")
	verifyCmd.Flags().StringArrayVar(&verifyFlags.values, "set", nil, "configuration value as key=value, repeatable")
}
