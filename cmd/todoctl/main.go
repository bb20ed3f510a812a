// Package main implements todoctl, a command-line front end for the todo
// engine.
//
// Every command prints JSON on stdout. Errors go to stderr.
//
// Exit codes:
//   - 0: Success
//   - 1: Error (invalid input, unknown todo, storage failure)
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/JamesPrial/todo-engine/internal/app"
	"github.com/JamesPrial/todo-engine/internal/credential"
	"github.com/JamesPrial/todo-engine/internal/notify"
)

// rootOptions holds global flags and the session opened for a command.
type rootOptions struct {
	ConfigPath string
	Verbose    bool

	// openKeyring opens the keyring written by the secret commands.
	openKeyring func() (*credential.Keyring, error)

	app         *app.App
	blocking    []notify.Notice
	unsubscribe func()
}

// open starts a session and records blocking notices raised while the
// command runs.
func (o *rootOptions) open(logOutput io.Writer) error {
	a, err := app.New(app.Options{
		ConfigPath: o.ConfigPath,
		Verbose:    o.Verbose,
		LogOutput:  logOutput,
	})
	if err != nil {
		return err
	}
	o.app = a
	o.unsubscribe = a.Engine.Notices().Subscribe(func(n notify.Notice) {
		if n.Blocking() {
			o.blocking = append(o.blocking, n)
		}
	})
	return nil
}

func (o *rootOptions) close() {
	if o.app == nil {
		return
	}
	o.unsubscribe()
	o.app.Close()
	o.app = nil
}

func newRootCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "todoctl",
		Short:         "Manage the todo collection",
		Long:          "Add, list, complete and organise todos stored by the todo engine.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.open(cmd.ErrOrStderr())
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default ~/.config/todo-engine/config.yaml)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging on stderr")

	cmd.AddCommand(newAddCommand(opts))
	cmd.AddCommand(newEditCommand(opts))
	cmd.AddCommand(newListCommand(opts))
	cmd.AddCommand(newStatsCommand(opts))
	cmd.AddCommand(newDoneCommand(opts))
	cmd.AddCommand(newPinCommand(opts))
	cmd.AddCommand(newDeleteCommand(opts))
	cmd.AddCommand(newClearCompletedCommand(opts))
	cmd.AddCommand(newToggleAllCommand(opts))
	cmd.AddCommand(newTagsCommand(opts))
	cmd.AddCommand(newSecretCommand(opts))

	return cmd
}

// run executes the command line in args and returns the exit code.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	return execute(&rootOptions{openKeyring: credential.OpenSystem}, args, stdin, stdout, stderr)
}

func execute(opts *rootOptions, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	defer opts.close()

	cmd := newRootCommand(opts)
	cmd.SetArgs(args)
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if len(opts.blocking) > 0 {
		for _, n := range opts.blocking {
			fmt.Fprintf(stderr, "Error: %s\n", n.Message)
		}
		return 1
	}
	return 0
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
