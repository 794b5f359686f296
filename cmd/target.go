package cmd

import (
	"errors"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

func newTargetCmd(opts *rootOptions) *cobra.Command {
	targetCmd := &cobra.Command{
		Use:   "target",
		Short: "Show or change the section pages are sent to",
	}

	targetCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the remembered target section",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.newApp(cmd, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			recent, err := a.recents.Load()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if recent == nil {
				printLine(out, "%s", text.FgYellow.Sprint("No target section remembered"))
				return nil
			}
			printLine(out, "Notebook:  %s (%s)", recent.NotebookName, recent.NotebookID)
			printLine(out, "Section:   %s (%s)", recent.SectionName, recent.SectionID)
			return nil
		},
	})

	targetCmd.AddCommand(&cobra.Command{
		Use:   "set <section-id>",
		Short: "Remember a section as the target",
		Long:  `Look up a section by ID and remember it as the target for 'noteclip send'.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.newApp(cmd, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			if args[0] == "" {
				return errors.New("section ID must not be empty")
			}
			target, err := a.sender.ResolveTarget(cmd.Context(), args[0])
			if err != nil {
				return sessionError(err)
			}
			if err := a.recents.Save(*target); err != nil {
				return err
			}
			opts.printf(cmd, "Target set to %s\n", formatTarget(*target))
			return nil
		},
	})

	targetCmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Forget the remembered target",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.newApp(cmd, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.recents.Clear(); err != nil {
				return err
			}
			opts.printf(cmd, "Target cleared\n")
			return nil
		},
	})

	return targetCmd
}
