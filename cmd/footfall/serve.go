package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/loopwork/footfall/internal/stubsite"
)

func newServeCommand() *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a local stub storefront for dry runs without a cluster",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "stub storefront listening on %s\n", listen)
			return stubsite.Serve(cmd.Context(), listen, stubsite.Options{
				MaxDelay: 40 * time.Millisecond,
			})
		},
	}
	cmd.Flags().StringVar(&listen, "listen", ":8080", "Listen address")
	return cmd
}
