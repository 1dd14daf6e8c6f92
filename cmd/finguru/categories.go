package main

import (
	"fmt"

	"github.com/Shlokpalrecha/Finguru/internal/cli"
	"github.com/Shlokpalrecha/Finguru/internal/spec"
	"github.com/spf13/cobra"
)

func categoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List expense categories and their GST rates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			specs, err := spec.Open(settings.SpecPath, nil)
			if err != nil {
				return err
			}

			snap := specs.Current()
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), snap.Categories())
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(),
				cli.NewFormatter(snap.Categories()).Categories(snap.Categories(), snap.Fallback().Key))
			return err
		},
	}
}

func specCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "spec",
		Short: "Manage the expense category specification",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "validate [PATH]",
		Short: "Check a specification file before installing it",
		Long: `Parse and validate a specification file. Without PATH the configured
spec.path (or the built-in specification) is checked.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			} else {
				settings, err := loadSettings()
				if err != nil {
					return err
				}
				path = settings.SpecPath
			}

			var (
				snap *spec.Snapshot
				err  error
			)
			if path == "" {
				snap, err = spec.Default()
			} else {
				snap, err = spec.Load(path)
			}
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf(
				"%s is valid: %d categories, fallback %s", snap.Source(), len(snap.Categories()), snap.Fallback().Key)))
			return err
		},
	})

	return cmd
}
