package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/giantswarm/noteclip/internal/notes"
	"github.com/giantswarm/noteclip/pkg/logging"
)

type sendOptions struct {
	section  string
	title    string
	language string
	tags     []string
	merge    bool
}

// sendSource is one input read before anything is sent.
type sendSource struct {
	name string
	body string
}

func newSendCmd(opts *rootOptions) *cobra.Command {
	sendOpts := &sendOptions{}

	sendCmd := &cobra.Command{
		Use:   "send [file...]",
		Short: "Send files or standard input to OneNote as new pages",
		Long: `Send the contents of a file, or standard input when no file (or "-")
is given, to a OneNote section as a new page.

With several files each becomes its own page titled "<title> - <file>",
or just the file name without --title. With --merge all files go into a
single page, each preceded by a "// <file>" line.

The section is taken from --section, then notes.defaultSection in the
configuration, then the section used last. The section used is remembered.

Examples:
  noteclip send main.go --title "Parser entry point"
  kubectl get pods | noteclip send --title "Pods" --tag ops
  noteclip send notes.txt --section 0-ABC123!45
  noteclip send *.go --title "Code review" --merge`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSend(cmd, opts, sendOpts, args)
		},
	}

	sendCmd.Flags().StringVarP(&sendOpts.section, "section", "s", "", "Target section ID")
	sendCmd.Flags().StringVarP(&sendOpts.title, "title", "t", "", "Page title, or title prefix when sending several files (default: file name)")
	sendCmd.Flags().StringVarP(&sendOpts.language, "language", "l", "", "Code block language (default: from file extension)")
	sendCmd.Flags().StringSliceVar(&sendOpts.tags, "tag", nil, "Tag to add to the page (repeatable)")
	sendCmd.Flags().BoolVar(&sendOpts.merge, "merge", false, "Merge several files into a single page")

	return sendCmd
}

func runSend(cmd *cobra.Command, opts *rootOptions, sendOpts *sendOptions, args []string) error {
	if len(args) == 0 {
		args = []string{"-"}
	}
	if len(args) > 1 {
		for _, arg := range args {
			if arg == "-" {
				return errors.New("standard input cannot be combined with files")
			}
		}
	}

	sources := make([]sendSource, 0, len(args))
	for _, arg := range args {
		body, err := readSource(cmd, arg)
		if err != nil {
			return err
		}
		if strings.TrimSpace(body) == "" {
			if arg == "-" {
				return errors.New("nothing to send: input is empty")
			}
			return fmt.Errorf("nothing to send: %s is empty", arg)
		}
		sources = append(sources, sendSource{name: arg, body: body})
	}

	a, err := opts.newApp(cmd, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	var tags []string
	if len(sendOpts.tags) > 0 {
		if a.cfg.Notes.EnableTags {
			tags = sendOpts.tags
		} else {
			logging.Warn("CLI", "Tags are disabled (notes.enableTags), ignoring --tag")
		}
	}

	pages := buildPages(sources, sendOpts, time.Now())
	for i := range pages {
		pages[i].Tags = tags
		pages[i].Theme = a.cfg.Notes.CodeTheme
	}

	sectionID := sendOpts.section
	if sectionID == "" {
		sectionID = a.cfg.Notes.DefaultSection
	}

	target, err := a.sender.ResolveTarget(cmd.Context(), sectionID)
	if err != nil {
		if errors.Is(err, notes.ErrNoTarget) {
			return fmt.Errorf("%w: pass --section or run 'noteclip target set <section-id>'", err)
		}
		return sessionError(err)
	}

	for i, content := range pages {
		page, err := a.sender.Send(cmd.Context(), *target, content)
		if err != nil {
			if i > 0 {
				logging.Warn("CLI", "Sent %d of %d pages before failing", i, len(pages))
			}
			return sessionError(err)
		}

		opts.printf(cmd, "%s %q to %s\n", text.FgGreen.Sprint("Sent"), content.Title, formatTarget(*target))
		if page.WebURL != "" {
			opts.printf(cmd, "  %s\n", page.WebURL)
		}
	}
	return nil
}

// buildPages turns the inputs into page contents: one page per source, or a
// single combined page when merging several files.
func buildPages(sources []sendSource, sendOpts *sendOptions, now time.Time) []notes.PageContent {
	if len(sources) == 1 {
		src := sources[0]
		content := notes.PageContent{
			Title:    sendOpts.title,
			Body:     src.body,
			Language: sendOpts.language,
			SentAt:   now,
		}
		if content.Title == "" {
			content.Title = defaultTitle(src.name, now)
		}
		if content.Language == "" && src.name != "-" {
			content.Language = notes.LanguageFromFilename(src.name)
		}
		return []notes.PageContent{content}
	}

	if sendOpts.merge {
		parts := make([]string, 0, len(sources))
		language := sendOpts.language
		for i, src := range sources {
			name := filepath.Base(src.name)
			parts = append(parts, "// "+name+"\n"+src.body)
			if sendOpts.language != "" {
				continue
			}
			// A shared extension keeps highlighting; mixed files fall back to plain text.
			lang := notes.LanguageFromFilename(name)
			if i == 0 {
				language = lang
			} else if language != lang {
				language = "plaintext"
			}
		}

		title := fmt.Sprintf("batch files (%d)", len(sources))
		if sendOpts.title != "" {
			title = sendOpts.title + " (batch)"
		}
		return []notes.PageContent{{
			Title:    title,
			Body:     strings.Join(parts, "\n\n"),
			Language: language,
			SentAt:   now,
		}}
	}

	pages := make([]notes.PageContent, 0, len(sources))
	for _, src := range sources {
		name := filepath.Base(src.name)
		title := name
		if sendOpts.title != "" {
			title = sendOpts.title + " - " + name
		}
		language := sendOpts.language
		if language == "" {
			language = notes.LanguageFromFilename(name)
		}
		pages = append(pages, notes.PageContent{
			Title:    title,
			Body:     src.body,
			Language: language,
			SentAt:   now,
		})
	}
	return pages
}

func readSource(cmd *cobra.Command, source string) (string, error) {
	if source == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read standard input: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", source, err)
	}
	return string(data), nil
}

func defaultTitle(source string, now time.Time) string {
	if source == "-" {
		return "Snippet " + now.Format("2006-01-02 15:04")
	}
	return filepath.Base(source)
}
