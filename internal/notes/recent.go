package notes

import (
	"errors"

	"github.com/giantswarm/noteclip/internal/kvstore"
)

const (
	recentNotebookIDKey   = "recent.notebookId"
	recentNotebookNameKey = "recent.notebookName"
	recentSectionIDKey    = "recent.sectionId"
	recentSectionNameKey  = "recent.sectionName"
)

var recentKeys = []string{recentNotebookIDKey, recentNotebookNameKey, recentSectionIDKey, recentSectionNameKey}

// RecentTarget is a notebook section pages are sent to.
type RecentTarget struct {
	NotebookID   string
	NotebookName string
	SectionID    string
	SectionName  string
}

// RecentTargets remembers the last section a page was sent to.
type RecentTargets struct {
	kv kvstore.Store
}

// NewRecentTargets binds recent-target persistence to a KV store.
func NewRecentTargets(kv kvstore.Store) *RecentTargets {
	return &RecentTargets{kv: kv}
}

// Load returns the remembered target, or nil unless all of its fields are stored.
func (r *RecentTargets) Load() (*RecentTarget, error) {
	values := make([]string, len(recentKeys))
	for i, key := range recentKeys {
		v, ok, err := r.kv.Get(key)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
		values[i] = v
	}

	return &RecentTarget{
		NotebookID:   values[0],
		NotebookName: values[1],
		SectionID:    values[2],
		SectionName:  values[3],
	}, nil
}

// Save remembers t.
func (r *RecentTargets) Save(t RecentTarget) error {
	return errors.Join(
		r.kv.Set(recentNotebookIDKey, t.NotebookID),
		r.kv.Set(recentNotebookNameKey, t.NotebookName),
		r.kv.Set(recentSectionIDKey, t.SectionID),
		r.kv.Set(recentSectionNameKey, t.SectionName),
	)
}

// Clear forgets the remembered target.
func (r *RecentTargets) Clear() error {
	var errs []error
	for _, key := range recentKeys {
		errs = append(errs, r.kv.Delete(key))
	}
	return errors.Join(errs...)
}
