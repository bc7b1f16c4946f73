package docker

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"

	"github.com/tetherhq/tether/internal/connector"
)

const defaultCLI = "docker"

type cliResult struct {
	exitCode int
	stderr   string
}

type cliRunner func(ctx context.Context, bin string, args []string, stdin string) (cliResult, error)

func runDockerCLI(ctx context.Context, bin string, args []string, stdin string) (cliResult, error) {
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdin = strings.NewReader(stdin)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := cliResult{stderr: stderr.String()}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.exitCode = exitErr.ExitCode()
	}
	return res, err
}

// ConfigureLocalClient writes the credentials into the local docker CLI's
// own credential store by invoking `docker login` with the password on
// stdin, so the secret never appears in the process list.
func (d *driver) ConfigureLocalClient(ctx context.Context, req connector.Request) error {
	bin := d.opts.CLI
	if bin == "" {
		bin = defaultCLI
	}

	args := []string{"login", "-u", d.cfg.SecretValue(fieldUsername).Reveal(), "--password-stdin"}
	if host := req.Parsed.Fields[fieldHost]; host != "" {
		args = append(args, host)
	}

	res, err := d.runCLI(ctx, bin, args, d.cfg.SecretValue(fieldPassword).Reveal())
	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && credentialsRejected(res.stderr) {
		return &connector.AuthorizationError{TypeID: TypeID, Err: errors.New(strings.TrimSpace(res.stderr))}
	}
	return &connector.LocalToolError{
		Tool:     bin,
		ExitCode: res.exitCode,
		Stderr:   res.stderr,
		Err:      err,
	}
}

func credentialsRejected(stderr string) bool {
	s := strings.ToLower(stderr)
	return strings.Contains(s, "unauthorized") ||
		strings.Contains(s, "401") ||
		strings.Contains(s, "incorrect username or password") ||
		strings.Contains(s, "denied")
}
