package notes

import (
	"context"
	"errors"
	"fmt"

	"github.com/giantswarm/noteclip/pkg/logging"
)

// ErrNoTarget means no section was given and no usable recent target exists.
var ErrNoTarget = errors.New("no target section selected")

// Sender resolves a target section and posts pages to it, remembering the
// last section used.
type Sender struct {
	client  *Client
	recents *RecentTargets
}

// NewSender creates a Sender.
func NewSender(client *Client, recents *RecentTargets) *Sender {
	return &Sender{client: client, recents: recents}
}

// ResolveTarget returns the section to send to. An explicit section ID is
// looked up; otherwise the recent target is used after confirming it still
// exists. A recent target that was deleted upstream is forgotten.
func (s *Sender) ResolveTarget(ctx context.Context, sectionID string) (*RecentTarget, error) {
	if sectionID != "" {
		section, err := s.client.GetSection(ctx, sectionID)
		if err != nil {
			return nil, err
		}
		return targetFromSection(section), nil
	}

	recent, err := s.recents.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load recent target: %w", err)
	}
	if recent == nil {
		return nil, ErrNoTarget
	}

	section, err := s.client.GetSection(ctx, recent.SectionID)
	if err != nil {
		if IsNotFound(err) {
			logging.Warn("Notes", "Recent section %q no longer exists, forgetting it", recent.SectionName)
			if clearErr := s.recents.Clear(); clearErr != nil {
				logging.Error("Notes", clearErr, "Failed to clear recent target")
			}
			return nil, ErrNoTarget
		}
		return nil, err
	}

	// Names may have changed since the target was saved.
	target := targetFromSection(section)
	if target.NotebookID == "" {
		target.NotebookID = recent.NotebookID
		target.NotebookName = recent.NotebookName
	}
	return target, nil
}

// Send renders content, creates the page and remembers the target.
func (s *Sender) Send(ctx context.Context, target RecentTarget, content PageContent) (*Page, error) {
	html, err := RenderPage(content)
	if err != nil {
		return nil, err
	}

	page, err := s.client.CreatePage(ctx, target.SectionID, html)
	if err != nil {
		return nil, err
	}

	if err := s.recents.Save(target); err != nil {
		logging.Warn("Notes", "Page created but recent target could not be saved: %v", err)
	}
	logging.Info("Notes", "Created page %q in section %q", content.Title, target.SectionName)
	return page, nil
}

func targetFromSection(section *Section) *RecentTarget {
	return &RecentTarget{
		NotebookID:   section.NotebookID,
		NotebookName: section.NotebookName,
		SectionID:    section.ID,
		SectionName:  section.DisplayName,
	}
}
