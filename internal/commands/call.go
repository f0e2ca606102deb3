package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gaborage/ridekit/http"
	"github.com/gaborage/ridekit/session"
)

// CallOptions holds options for the call command
type CallOptions struct {
	Data            string
	Headers         []string
	InvalidateAfter int
}

// NewCallCommand creates the call command
func NewCallCommand(env *Env, global *globalOptions) *cobra.Command {
	opts := &CallOptions{}

	cmd := &cobra.Command{
		Use:   "call METHOD PATH",
		Short: "Perform an authenticated API call",
		Long: `Performs one authenticated call against the configured backend.

Network failures are retried with linear backoff. A rejected credential
ends the call with a re-login hint.`,
		Example: `  ridekit call GET /rides/current
  ridekit call POST /rides --data '{"pickup":"Main St 1"}'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCall(cmd, env, global, opts, args[0], args[1])
		},
	}

	cmd.Flags().StringVarP(&opts.Data, "data", "d", "", "JSON request body")
	cmd.Flags().StringArrayVarP(&opts.Headers, "header", "H", nil, "Extra header as 'Name: value' (repeatable)")
	cmd.Flags().IntVar(&opts.InvalidateAfter, "invalidate-after", 0, "Delete the stored token after this many consecutive rejections across runs (0 disables)")

	return cmd
}

func runCall(cmd *cobra.Command, env *Env, global *globalOptions, opts *CallOptions, method, path string) error {
	ctx := cmd.Context()

	ep := http.Endpoint{Path: path, Method: strings.ToUpper(method)}
	if opts.Data != "" {
		if !json.Valid([]byte(opts.Data)) {
			return errors.New("--data is not valid JSON")
		}
		ep.Payload = json.RawMessage(opts.Data)
	}
	headers, err := parseHeaders(opts.Headers)
	if err != nil {
		return err
	}
	ep.Headers = headers

	rt, err := env.setup(ctx, global)
	if err != nil {
		return err
	}
	defer rt.closer()

	var gateOpts []session.GateOption
	if opts.InvalidateAfter > 0 {
		gateOpts = append(gateOpts, session.WithObserver(session.NewInvalidator(
			rt.accessor, rt.log, opts.InvalidateAfter,
			session.WithRejectionCounter(rt.accessor),
		)))
	}
	gate, err := env.gate(rt, gateOpts...)
	if err != nil {
		return err
	}

	resp, err := gate.Do(ctx, ep)
	if err != nil {
		if errors.Is(err, http.ErrReloginRequired) {
			fmt.Fprintln(env.Err, "The stored token was rejected. Run 'ridekit login' or 'ridekit token set'.")
		}
		return err
	}

	if len(resp.Body) > 0 {
		_, _ = env.Out.Write(resp.Body)
		fmt.Fprintln(env.Out)
	}
	return nil
}

func parseHeaders(raw []string) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	headers := make(map[string]string, len(raw))
	for _, h := range raw {
		name, value, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid header %q, expected 'Name: value'", h)
		}
		headers[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}
	return headers, nil
}
