package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tetherhq/tether/internal/config"
	"github.com/tetherhq/tether/internal/connector"
)

var typesCmd = &cobra.Command{
	Use:   "types [type]",
	Short: "List registered connector types and their auth methods and resource types.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadOptionalDB()
		if err != nil {
			return err
		}
		reg, err := buildConnectorRegistry(cfg)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(args) == 1 {
			registration, err := reg.Type(args[0])
			if err != nil {
				return err
			}
			printType(out, registration)
			return nil
		}
		for i, registration := range reg.Types() {
			if i > 0 {
				fmt.Fprintln(out)
			}
			printType(out, registration)
		}
		return nil
	},
}

func printType(out io.Writer, registration connector.Registration) {
	spec := registration.Spec
	fmt.Fprintf(out, "%s  %s\n", spec.TypeID, spec.DisplayName)
	if spec.Description != "" {
		fmt.Fprintf(out, "  %s\n", spec.Description)
	}
	if registration.AutoConfigure != nil {
		fmt.Fprintf(out, "  supports auto-configure\n")
	}
	fmt.Fprintf(out, "  auth methods:\n")
	for _, m := range spec.AuthMethods {
		fmt.Fprintf(out, "    %-15s %s\n", m.MethodID, describeFields(m.Schema))
	}
	fmt.Fprintf(out, "  resource types:\n")
	for _, rt := range spec.ResourceTypes {
		fmt.Fprintf(out, "    %-15s instances=%s discovery=%s methods=%s\n",
			rt.ResourceTypeID, yesNo(rt.SupportsInstances), yesNo(rt.SupportsDiscovery),
			strings.Join(rt.AuthMethods, ","))
	}
}

func describeFields(schema connector.Schema) string {
	parts := make([]string, 0, len(schema.Fields))
	for _, f := range schema.Fields {
		var marks []string
		if f.Required {
			marks = append(marks, "required")
		}
		if f.Secret {
			marks = append(marks, "secret")
		}
		if len(marks) == 0 {
			parts = append(parts, f.Name)
			continue
		}
		parts = append(parts, fmt.Sprintf("%s (%s)", f.Name, strings.Join(marks, ", ")))
	}
	return strings.Join(parts, ", ")
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
