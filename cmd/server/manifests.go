package main

import (
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/Canopy/backend/internal/server"
)

func newManifestsCmd(o *overrides) *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "manifests",
		Short: "Print the installed widget and theme manifests as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.load(cmd)
			if err != nil {
				return err
			}
			quiet(cmd, cfg)
			ctx := commandContext(cmd)

			srv, err := server.New(ctx, cfg)
			if err != nil {
				return err
			}
			defer srv.Close()

			out := map[string]interface{}{}
			if kind == "" || kind == "widget" {
				widgets, err := srv.Widgets.GetManifests(ctx)
				if err != nil {
					return err
				}
				out["widgets"] = widgets
			}
			if kind == "" || kind == "theme" {
				themes, err := srv.Themes.GetManifests(ctx)
				if err != nil {
					return err
				}
				out["themes"] = themes
			}
			if len(out) == 0 {
				return fmt.Errorf("unknown kind %q, want widget or theme", kind)
			}

			data, err := sonic.ConfigStd.MarshalIndent(out, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode manifests: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "Only list one kind: widget or theme")
	return cmd
}
