package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gaborage/ridekit/callback"
)

// NewLoginCommand creates the login command
func NewLoginCommand(env *Env, global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Wait for the identity provider to redirect with a token",
		Long: `Starts a local listener on callback.addr and waits for the identity
provider to redirect to callback.path with an access_token parameter.
The token is validated and stored, then the listener stops.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := env.setup(cmd.Context(), global)
			if err != nil {
				return err
			}
			defer rt.closer()

			receiver := callback.New(callback.Config{
				Addr:           rt.cfg.Callback.Addr,
				Path:           rt.cfg.Callback.Path,
				Now:            env.Now,
				TracerProvider: rt.telemetry.TracerProvider(),
			}, rt.accessor, rt.log)

			fmt.Fprintf(env.Out, "Redirect URI: http://%s%s\n", rt.cfg.Callback.Addr, rt.cfg.Callback.Path)
			if err := receiver.Run(cmd.Context()); err != nil {
				return err
			}
			rt.accessor.Flush()
			fmt.Fprintln(env.Out, "login complete, token stored")
			return nil
		},
	}
}
