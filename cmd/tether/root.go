package main

import (
	"sync"

	"github.com/spf13/cobra"

	"github.com/tetherhq/tether/internal/logging"
)

// annotationStructuredLog marks commands whose output channel is structured
// logs rather than plain text for humans.
const annotationStructuredLog = "structured-log"

var rootCmd = &cobra.Command{
	Use:           "tether",
	Short:         "Tether brokers authenticated access from local tools to external service resources.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		structured := commandUsesStructuredLogging(cmd)
		setCommandExecutionContext(commandExecutionContext{
			CommandPath:       cmd.CommandPath(),
			UsesStructuredLog: structured,
		})
		if structured {
			if _, err := logging.BootstrapFromEnv(logging.BootstrapOptions{Command: cmd.CommandPath()}); err != nil {
				return err
			}
		}
		return nil
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(typesCmd, verifyCmd, loginCmd, autoConfigureCmd, serveCmd, migrateCmd)
}

func commandUsesStructuredLogging(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[annotationStructuredLog] == "true" {
			return true
		}
	}
	return false
}

// commandExecutionContext records which command is running so the fatal
// error path can pick the right output channel.
type commandExecutionContext struct {
	CommandPath       string
	UsesStructuredLog bool
}

var (
	commandCtxMu sync.RWMutex
	commandCtx   commandExecutionContext
)

func setCommandExecutionContext(ctx commandExecutionContext) {
	commandCtxMu.Lock()
	commandCtx = ctx
	commandCtxMu.Unlock()
}

func resetCommandExecutionContext() {
	setCommandExecutionContext(commandExecutionContext{})
}

func currentCommandExecutionContext() commandExecutionContext {
	commandCtxMu.RLock()
	defer commandCtxMu.RUnlock()
	return commandCtx
}
