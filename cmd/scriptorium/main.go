package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/scriptorium/scriptorium/pkg/app"
	"github.com/scriptorium/scriptorium/pkg/buildinfo"
)

func main() {
	log.SetOutput(os.Stdout)
	log.SetLevel(log.InfoLevel)

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "scriptorium",
		Short:        "Manuscript analysis and report generation server",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log.Info("Starting Scriptorium application")

			application, err := app.New()
			if err != nil {
				log.WithError(err).Error("Failed to initialize application")
				return err
			}

			return application.Run(cmd.Context())
		},
	}

	cmd.AddCommand(versionCmd())
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Println(buildinfo.String())
		},
	}
}
