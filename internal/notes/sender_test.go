package notes

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/noteclip/internal/kvstore"
)

// graphStub serves one existing section and records created pages.
func graphStub(pages chan<- string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/sections/s-1":
			_, _ = io.WriteString(w, `{"id":"s-1","displayName":"Snippets (renamed)","parentNotebook":{"id":"nb-1","displayName":"Work"}}`)
		case r.Method == http.MethodPost && r.URL.Path == "/sections/s-1/pages":
			body, _ := io.ReadAll(r.Body)
			pages <- string(body)
			w.WriteHeader(http.StatusCreated)
			_, _ = io.WriteString(w, `{"id":"page-1","title":"T","links":{"oneNoteWebUrl":{"href":"https://example.com/p"}}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"error":{"code":"20102","message":"not found"}}`)
		}
	}
}

func newTestSender(t *testing.T, pages chan<- string) (*Sender, *RecentTargets) {
	t.Helper()
	client, _ := newTestClient(t, graphStub(pages))
	recents := NewRecentTargets(kvstore.NewMemoryStore())
	return NewSender(client, recents), recents
}

func TestSender_ResolveExplicitSection(t *testing.T) {
	sender, _ := newTestSender(t, nil)

	target, err := sender.ResolveTarget(context.Background(), "s-1")
	require.NoError(t, err)
	assert.Equal(t, &RecentTarget{NotebookID: "nb-1", NotebookName: "Work", SectionID: "s-1", SectionName: "Snippets (renamed)"}, target)

	_, err = sender.ResolveTarget(context.Background(), "missing")
	assert.True(t, IsNotFound(err))
}

func TestSender_ResolveWithoutRecent(t *testing.T) {
	sender, _ := newTestSender(t, nil)

	_, err := sender.ResolveTarget(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoTarget)
}

func TestSender_ResolveRecentRefreshesNames(t *testing.T) {
	sender, recents := newTestSender(t, nil)
	require.NoError(t, recents.Save(RecentTarget{NotebookID: "nb-1", NotebookName: "Work", SectionID: "s-1", SectionName: "Snippets"}))

	target, err := sender.ResolveTarget(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "Snippets (renamed)", target.SectionName)
}

func TestSender_ResolveStaleRecentIsForgotten(t *testing.T) {
	sender, recents := newTestSender(t, nil)
	require.NoError(t, recents.Save(RecentTarget{NotebookID: "nb-1", NotebookName: "Work", SectionID: "deleted", SectionName: "Old"}))

	_, err := sender.ResolveTarget(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoTarget)

	stored, err := recents.Load()
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestSender_SendRemembersTarget(t *testing.T) {
	pages := make(chan string, 1)
	sender, recents := newTestSender(t, pages)

	target := RecentTarget{NotebookID: "nb-1", NotebookName: "Work", SectionID: "s-1", SectionName: "Snippets"}
	page, err := sender.Send(context.Background(), target, PageContent{Title: "T", Body: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/p", page.WebURL)

	body := <-pages
	assert.True(t, strings.HasPrefix(body, "<!DOCTYPE html>"))
	assert.Contains(t, body, "hello")

	stored, err := recents.Load()
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, target, *stored)
}

func TestSender_SendFailureKeepsPreviousTarget(t *testing.T) {
	sender, recents := newTestSender(t, nil)
	previous := RecentTarget{NotebookID: "nb-1", NotebookName: "Work", SectionID: "s-1", SectionName: "Snippets"}
	require.NoError(t, recents.Save(previous))

	_, err := sender.Send(context.Background(), RecentTarget{SectionID: "missing"}, PageContent{Body: "x"})
	require.Error(t, err)

	stored, err := recents.Load()
	require.NoError(t, err)
	assert.Equal(t, previous, *stored)
}
