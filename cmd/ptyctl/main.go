// ptyctl drives a running ptyd daemon over its HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/AgentOS/ptyd/internal/client"
	"github.com/GriffinCanCode/AgentOS/ptyd/internal/providers/terminal"
)

// errExit signals a non-zero exit after the command already reported.
var errExit = errors.New("exit")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type globalFlags struct {
	server  string
	timeout time.Duration
	json    bool
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(ctx, stdout, stderr)
	if args == nil {
		args = []string{}
	}
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.Execute(); err != nil {
		if !errors.Is(err, errExit) {
			fmt.Fprintf(stderr, "ptyctl: %v\n", err) //nolint:errcheck
		}
		return 1
	}
	return 0
}

func newRootCmd(ctx context.Context, stdout, stderr io.Writer) *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:           "ptyctl",
		Short:         "Control terminal sessions on a ptyd daemon",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	defaultServer := os.Getenv("PTYD_ADDR")
	if defaultServer == "" {
		defaultServer = "http://localhost:8080"
	}
	root.PersistentFlags().StringVar(&flags.server, "server", defaultServer, "ptyd base URL (env PTYD_ADDR)")
	root.PersistentFlags().DurationVar(&flags.timeout, "timeout", 30*time.Second, "request timeout")
	root.PersistentFlags().BoolVar(&flags.json, "json", false, "print JSON instead of text")
	root.CompletionOptions.DisableDefaultCmd = true

	connect := func() *client.Client {
		return client.New(client.Options{BaseURL: flags.server, Timeout: flags.timeout})
	}

	root.AddCommand(
		newCreateCmd(ctx, connect, flags, stdout, stderr),
		newWriteCmd(ctx, connect, stderr),
		newResizeCmd(ctx, connect, stderr),
		newCloseCmd(ctx, connect, stderr),
		newStatsCmd(ctx, connect, flags, stdout, stderr),
		newWatchCmd(ctx, connect, stdout, stderr),
	)
	return root
}

func newCreateCmd(ctx context.Context, connect func() *client.Client, flags *globalFlags, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Start a new shell session and print its id",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			id, err := connect().Create(ctx)
			if err != nil {
				return report(stderr, "create", err)
			}
			if flags.json {
				return printJSON(stdout, map[string]string{"id": id})
			}
			fmt.Fprintln(stdout, id) //nolint:errcheck
			return nil
		},
	}
}

func newWriteCmd(ctx context.Context, connect func() *client.Client, stderr io.Writer) *cobra.Command {
	var noNewline bool
	cmd := &cobra.Command{
		Use:   "write <id> <text>",
		Short: "Send text to a session (a newline is appended unless -n)",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			data := args[1]
			if !noNewline {
				data += "\n"
			}
			if err := connect().Write(ctx, args[0], []byte(data)); err != nil {
				return report(stderr, "write", err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&noNewline, "no-newline", "n", false, "do not append a newline")
	return cmd
}

func newResizeCmd(ctx context.Context, connect func() *client.Client, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "resize <id> <rows> <cols>",
		Short: "Change a session's terminal size",
		Args:  cobra.ExactArgs(3),
		RunE: func(_ *cobra.Command, args []string) error {
			rows, err := parseDimension("rows", args[1])
			if err != nil {
				return err
			}
			cols, err := parseDimension("cols", args[2])
			if err != nil {
				return err
			}
			if err := connect().Resize(ctx, args[0], rows, cols); err != nil {
				return report(stderr, "resize", err)
			}
			return nil
		},
	}
}

func newCloseCmd(ctx context.Context, connect func() *client.Client, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "close <id>",
		Short: "Terminate a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if err := connect().Close(ctx, args[0]); err != nil {
				return report(stderr, "close", err)
			}
			return nil
		},
	}
}

func newStatsCmd(ctx context.Context, connect func() *client.Client, flags *globalFlags, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show live sessions",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			snap, err := connect().Stats(ctx)
			if err != nil {
				return report(stderr, "stats", err)
			}
			if flags.json {
				return printJSON(stdout, snap)
			}
			printStats(stdout, snap)
			return nil
		},
	}
}

func newWatchCmd(ctx context.Context, connect func() *client.Client, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [id]",
		Short: "Stream session output until the shell exits",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			var id string
			if len(args) == 1 {
				id = args[0]
			}
			err := connect().Watch(ctx, id, func(e terminal.Event) error {
				switch e.Type {
				case terminal.EventOutput:
					_, err := io.WriteString(stdout, e.Data)
					return err
				case terminal.EventError:
					fmt.Fprintf(stderr, "[%s] error: %s\n", e.SessionID, e.Error) //nolint:errcheck
				case terminal.EventExit:
					fmt.Fprintf(stderr, "[%s] exited\n", e.SessionID) //nolint:errcheck
				}
				return nil
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				return report(stderr, "watch", err)
			}
			return nil
		},
	}
}

func parseDimension(name, s string) (uint16, error) {
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("%s must be an integer between 1 and 65535, got %q", name, s)
	}
	return uint16(n), nil
}

// report prints err with the daemon's suggestion, if any.
func report(stderr io.Writer, op string, err error) error {
	fmt.Fprintf(stderr, "ptyctl %s: %v\n", op, err) //nolint:errcheck
	var re *client.RemoteError
	if errors.As(err, &re) && re.Suggestion != "" {
		fmt.Fprintf(stderr, "hint: %s\n", re.Suggestion) //nolint:errcheck
	}
	return errExit
}

func printJSON(w io.Writer, v interface{}) error {
	b, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

func printStats(w io.Writer, snap terminal.Snapshot) {
	fmt.Fprintf(w, "%d/%d sessions on %s (%s)\n", snap.ActiveSessions, snap.MaxSessions, snap.Platform, snap.Shell) //nolint:errcheck
	if len(snap.Sessions) == 0 {
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSIZE\tAGE\tIDLE") //nolint:errcheck
	for _, s := range snap.Sessions {
		fmt.Fprintf(tw, "%s\t%dx%d\t%s\t%s\n", s.ID, s.Rows, s.Cols, //nolint:errcheck
			time.Duration(s.AgeSeconds)*time.Second,
			time.Duration(s.IdleSeconds)*time.Second)
	}
	tw.Flush() //nolint:errcheck
}
