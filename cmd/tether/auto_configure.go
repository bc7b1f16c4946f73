package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/tetherhq/tether/internal/config"
	"github.com/tetherhq/tether/internal/connector"
	"github.com/tetherhq/tether/internal/store"
)

var autoConfigureFlags struct {
	name         string
	authMethod   string
	resourceType string
	resourceID   string
	verify       bool
}

var autoConfigureCmd = &cobra.Command{
	Use:   "auto-configure <type>",
	Short: "Harvest credentials from the local environment and build a connector from them.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadWithOptions(config.LoadOptions{RequireDatabaseURL: autoConfigureFlags.name != ""})
		if err != nil {
			return err
		}
		reg, err := buildConnectorRegistry(cfg)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.ConnectTimeout)
		defer cancel()

		inst, err := reg.AutoConfigure(ctx, args[0], connector.AutoConfigureOptions{
			AuthMethod:   autoConfigureFlags.authMethod,
			ResourceType: autoConfigureFlags.resourceType,
			ResourceID:   autoConfigureFlags.resourceID,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		masked, err := json.MarshalIndent(inst.Config(), "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "configured %s with auth method %s\n%s\n", inst.Spec().TypeID, inst.AuthMethod().MethodID, masked)

		if autoConfigureFlags.verify {
			ids, err := inst.Verify(ctx, "", "")
			if err != nil {
				return err
			}
			if len(ids) == 0 {
				fmt.Fprintln(out, "no resources confirmed")
			}
			for _, id := range ids {
				fmt.Fprintln(out, id)
			}
		}

		if autoConfigureFlags.name != "" {
			rec, err := inst.Record(autoConfigureFlags.name)
			if err != nil {
				return err
			}
			pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer pool.Close()
			if err := store.New(pool).Save(ctx, rec); err != nil {
				return err
			}
			fmt.Fprintf(out, "saved as %q\n", autoConfigureFlags.name)
		}
		return nil
	},
}

func init() {
	autoConfigureCmd.Flags().StringVar(&autoConfigureFlags.name, "name", "", "save the harvested connector under this name")
	autoConfigureCmd.Flags().StringVar(&autoConfigureFlags.authMethod, "auth-method", "", "restrict harvesting to one auth method")
	autoConfigureCmd.Flags().StringVar(&autoConfigureFlags.resourceType, "resource-type", "", "resource type to bind")
	autoConfigureCmd.Flags().StringVar(&autoConfigureFlags.resourceID, "resource-id", "", "resource id to bind")
	autoConfigureCmd.Flags().BoolVar(&autoConfigureFlags.verify, "verify", true, "verify the harvested credentials against the provider")
}
