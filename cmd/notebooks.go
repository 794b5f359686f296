package cmd

import (
	"errors"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

func newNotebooksCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "notebooks",
		Short: "List your OneNote notebooks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.newApp(cmd, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			notebooks, err := a.notes.ListNotebooks(cmd.Context())
			if err != nil {
				return sessionError(err)
			}
			if len(notebooks) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), text.FgYellow.Sprint("No notebooks found"))
				return nil
			}

			t := newTable(cmd.OutOrStdout())
			t.AppendHeader(table.Row{text.FgHiCyan.Sprint("ID"), text.FgHiCyan.Sprint("NAME")})
			for _, nb := range notebooks {
				t.AppendRow(table.Row{nb.ID, nb.DisplayName})
			}
			t.Render()
			return nil
		},
	}
}

func newSectionsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sections [notebook-id]",
		Short: "List the sections of a notebook",
		Long: `List the sections of a notebook, notes.defaultNotebook when no ID is
given. Use the section ID with 'noteclip send --section' or
'noteclip target set'.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.newApp(cmd, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			notebookID := a.cfg.Notes.DefaultNotebook
			if len(args) == 1 {
				notebookID = args[0]
			}
			if notebookID == "" {
				return errors.New("notebook ID is required: pass it or set notes.defaultNotebook")
			}

			sections, err := a.notes.ListSections(cmd.Context(), notebookID)
			if err != nil {
				return sessionError(err)
			}
			if len(sections) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), text.FgYellow.Sprint("No sections found"))
				return nil
			}

			t := newTable(cmd.OutOrStdout())
			t.AppendHeader(table.Row{text.FgHiCyan.Sprint("ID"), text.FgHiCyan.Sprint("NAME")})
			for _, s := range sections {
				t.AppendRow(table.Row{s.ID, s.DisplayName})
			}
			t.Render()
			return nil
		},
	}
}
