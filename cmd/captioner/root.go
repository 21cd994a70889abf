package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var projectsRootFlag string
	var verboseFlag bool

	ctx := newCommandContext(&configFlag, &projectsRootFlag, &verboseFlag)

	rootCmd := &cobra.Command{
		Use:           "captioner",
		Short:         "Generate and inspect caption artifacts",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&projectsRootFlag, "projects-root", "", "Override the projects root directory")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(newGenerateCommand(ctx))
	rootCmd.AddCommand(newLookupCommand(ctx))
	rootCmd.AddCommand(newDeriveURLCommand(ctx))
	rootCmd.AddCommand(newCuesCommand(ctx))
	rootCmd.AddCommand(newActiveCommand(ctx))

	return rootCmd
}
