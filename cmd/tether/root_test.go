package main

import "testing"

func TestRootCommand_RegistersConnectorCommands(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"types", "verify", "login", "auto-configure", "serve", "migrate"} {
		if cmd, _, err := rootCmd.Find([]string{name}); err != nil || cmd == nil || cmd.Name() != name {
			t.Fatalf("%s command not registered: cmd=%v err=%v", name, cmd, err)
		}
	}
}

func TestCommandUsesStructuredLogging(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
		want bool
	}{
		{name: "serve", args: []string{"serve"}, want: true},
		{name: "migrate", args: []string{"migrate"}, want: true},
		{name: "types", args: []string{"types"}, want: false},
		{name: "verify", args: []string{"verify"}, want: false},
		{name: "login", args: []string{"login"}, want: false},
		{name: "auto-configure", args: []string{"auto-configure"}, want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cmd, _, err := rootCmd.Find(tc.args)
			if err != nil {
				t.Fatalf("Find(%v) error = %v", tc.args, err)
			}
			if cmd == nil {
				t.Fatalf("Find(%v) returned nil command", tc.args)
			}

			if got := commandUsesStructuredLogging(cmd); got != tc.want {
				t.Fatalf("commandUsesStructuredLogging(%q) = %v, want %v", cmd.CommandPath(), got, tc.want)
			}
		})
	}
}

func TestParseSetValues(t *testing.T) {
	t.Parallel()

	values, err := parseSetValues([]string{"username=bob", "password=hunter2", "note=a=b"})
	if err != nil {
		t.Fatalf("parseSetValues: %v", err)
	}
	if values["username"] != "bob" || values["password"] != "hunter2" {
		t.Fatalf("values = %v", values)
	}
	if values["note"] != "a=b" {
		t.Fatalf("note = %q, want value with embedded equals kept", values["note"])
	}

	if _, err := parseSetValues([]string{"missing-equals"}); err == nil {
		t.Fatal("want error for pair without equals")
	}
	if _, err := parseSetValues([]string{"=value"}); err == nil {
		t.Fatal("want error for empty key")
	}
}
