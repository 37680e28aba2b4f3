package store

import "fmt"

// Reserved keys. The namespace is flat and caller-chosen; these are the
// well-known slots the workstation itself owns.
const (
	// SessionKey holds the auth session snapshot (token + user profile).
	SessionKey = "nocturne:auth"

	// NewNovelDraftKey holds the draft envelope for the new-novel
	// workstation. One draft per editing context, no versioning.
	NewNovelDraftKey = "malaz.newNovelWorkstation"
)

// NovelStateKey returns the per-novel interaction state slot
// (follow/bookmark/rating/comments/read markers) for a series slug.
func NovelStateKey(slug string) string {
	return fmt.Sprintf("novel:%s:state", slug)
}

// ReaderPrefsKey returns the reader preference slot for a series slug.
func ReaderPrefsKey(slug string) string {
	return fmt.Sprintf("reader:%s:prefs", slug)
}
