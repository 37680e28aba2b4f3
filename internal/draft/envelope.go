// Package draft implements the autosaved draft envelope for an editing
// context: debounced local persistence, hydration on start, and awareness
// of writes made by other workstation processes.
package draft

import "encoding/json"

// Form holds the editorial metadata fields of the new-novel workstation.
type Form struct {
	Title    string `json:"title"`
	AltTitle string `json:"altTitle"`
	Origin   string `json:"origin"`
	Author   string `json:"author"`
	Team     string `json:"team"`
	Language string `json:"language"`
	Tags     string `json:"tags"`
	Synopsis string `json:"synopsis"`
	Age      string `json:"age"`
}

// Envelope is the persisted bundle for one editing context. The document
// fields hold the rich-text tree saved from the editor view; the rest is
// owned by the metadata form. Unknown fields on disk are ignored and
// missing fields default rather than fail.
type Envelope struct {
	Form             Form            `json:"form"`
	CoverURL         string          `json:"coverUrl"`
	VolumeNumber     int             `json:"volumeNumber"`
	ChapterNumber    int             `json:"chapterNumber"`
	ChapterTitle     string          `json:"chapterTitle"`
	ChapterText      string          `json:"chapterText"`
	IllustrationURL  string          `json:"illustrationUrl"`
	IllustrationNote string          `json:"illustrationNote"`
	PublishNote      string          `json:"publishNote"`
	Document         json.RawMessage `json:"plateValue,omitempty"`
	DocumentSavedAt  string          `json:"plateSavedAt,omitempty"`
	SavedAt          string          `json:"savedAt"`
}

// DefaultEnvelope returns the working-copy defaults for a fresh context.
func DefaultEnvelope() Envelope {
	return Envelope{
		Form:          Form{Language: "EN"},
		VolumeNumber:  1,
		ChapterNumber: 1,
	}
}

// normalize applies defaults to fields a partial or older record left
// unset.
func (e *Envelope) normalize() {
	if e.VolumeNumber <= 0 {
		e.VolumeNumber = 1
	}
	if e.ChapterNumber <= 0 {
		e.ChapterNumber = 1
	}
	if e.Form.Language == "" {
		e.Form.Language = "EN"
	}
}
