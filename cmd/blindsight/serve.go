package main

import (
	"github.com/spf13/cobra"

	"github.com/koustreak/blindsight/internal/api"
	"github.com/koustreak/blindsight/internal/errs"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Browse saved results over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rs, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			if rs == nil {
				return errs.New(errs.ErrKindInvalidInput, "serve needs a result store, not \"none\"")
			}
			defer rs.close()

			srv := api.New(rs, a.log)
			if rs.presigner != nil {
				srv.WithPresigner(rs.presigner, a.cfg.Output.URLTTL)
			}
			return srv.Serve(ctx, a.cfg.Serve.Addr)
		},
	}
	cmd.Flags().String("addr", "127.0.0.1:8080", "listen address")
	return cmd
}
