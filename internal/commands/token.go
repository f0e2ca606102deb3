package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gaborage/ridekit/tokenstore"
)

// ErrInvalidValue is returned when validate or token set rejects a value
var ErrInvalidValue = errors.New("invalid value")

// NewTokenCommand creates the token command with subcommands
func NewTokenCommand(env *Env, global *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the stored access token",
		Long: `Manage the access token in the configured store.

The memory backend only lives for one invocation; use the redis backend
(RIDEKIT_TOKEN_BACKEND=redis) to keep a token between commands.`,
	}

	cmd.AddCommand(
		tokenSetCmd(env, global),
		tokenShowCmd(env, global),
		tokenClearCmd(env, global),
	)
	return cmd
}

func tokenSetCmd(env *Env, global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set TOKEN",
		Short: "Store an access token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if v := tokenstore.ValidateToken(args[0], env.now()); !v.Valid {
				return fmt.Errorf("%w: %s", ErrInvalidValue, v.Diagnostic)
			}

			rt, err := env.setup(cmd.Context(), global)
			if err != nil {
				return err
			}
			defer rt.closer()

			rt.accessor.Set(args[0])
			rt.accessor.Flush()
			fmt.Fprintf(env.Out, "token stored under %q\n", rt.accessor.Key())
			return nil
		},
	}
}

func tokenShowCmd(env *Env, global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Report whether a token is stored",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := env.setup(cmd.Context(), global)
			if err != nil {
				return err
			}
			defer rt.closer()

			cred, ok, err := rt.accessor.Get(cmd.Context())
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(env.Out, "no token stored")
				return nil
			}
			fmt.Fprintf(env.Out, "token stored: %s\n", cred)
			if v := tokenstore.ValidateToken(cred.Value(), env.now()); !v.Valid {
				fmt.Fprintf(env.Out, "warning: %s\n", v.Diagnostic)
			}
			return nil
		},
	}
}

func tokenClearCmd(env *Env, global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := env.setup(cmd.Context(), global)
			if err != nil {
				return err
			}
			defer rt.closer()

			if err := rt.accessor.Delete(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(env.Out, "token cleared")
			return nil
		},
	}
}

// NewValidateCommand creates the validate command
func NewValidateCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "validate VALUE",
		Short: "Check a server address or token without contacting the network",
		Example: `  ridekit validate http://192.168.1.10:3000
  ridekit validate "$RIDEKIT_TOKEN_VALUE"`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if v := tokenstore.Validate(args[0]); !v.Valid {
				return fmt.Errorf("%w: %s", ErrInvalidValue, v.Diagnostic)
			}
			fmt.Fprintln(env.Out, "valid")
			return nil
		},
	}
}
