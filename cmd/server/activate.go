package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/Canopy/backend/internal/domain/theme"
	"github.com/GriffinCanCode/Canopy/backend/internal/server"
)

func newActivateCmd(o *overrides) *cobra.Command {
	return &cobra.Command{
		Use:   "activate <folder>",
		Short: "Register a theme, provision its widget areas and install its assets",
		Args:  cobra.ExactArgs(1),
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

			act, err := srv.Coordinator.ActivateTheme(ctx, args[0])
			if err != nil {
				return err
			}
			if err := srv.Themes.InstallExtension(ctx, &theme.Theme{Folder: act.Folder}); err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "theme %s activated (registered: %t)\n", act.Folder, act.Registered)
			if len(act.AreasCreated) > 0 {
				fmt.Fprintf(w, "areas created: %s\n", strings.Join(act.AreasCreated, ", "))
			}
			return nil
		},
	}
}
