package api

import (
	"encoding/json"

	"github.com/malaztl/nocturne/internal/draft"
	"github.com/malaztl/nocturne/internal/session"
)

// EnvelopePatch is a partial update of the workstation draft. Only fields
// present in the request body are applied, so concurrent views can each
// own their slice of the envelope.
type EnvelopePatch struct {
	Form             *FormPatch `json:"form,omitempty"`
	CoverURL         *string    `json:"coverUrl,omitempty"`
	VolumeNumber     *int       `json:"volumeNumber,omitempty"`
	ChapterNumber    *int       `json:"chapterNumber,omitempty"`
	ChapterTitle     *string    `json:"chapterTitle,omitempty"`
	ChapterText      *string    `json:"chapterText,omitempty"`
	IllustrationURL  *string    `json:"illustrationUrl,omitempty"`
	IllustrationNote *string    `json:"illustrationNote,omitempty"`
	PublishNote      *string    `json:"publishNote,omitempty"`
}

// FormPatch is a partial update of the metadata form.
type FormPatch struct {
	Title    *string `json:"title,omitempty"`
	AltTitle *string `json:"altTitle,omitempty"`
	Origin   *string `json:"origin,omitempty"`
	Author   *string `json:"author,omitempty"`
	Team     *string `json:"team,omitempty"`
	Language *string `json:"language,omitempty"`
	Tags     *string `json:"tags,omitempty"`
	Synopsis *string `json:"synopsis,omitempty"`
	Age      *string `json:"age,omitempty"`
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func (p EnvelopePatch) apply(e *draft.Envelope) {
	if p.Form != nil {
		f := p.Form
		setIf(&e.Form.Title, f.Title)
		setIf(&e.Form.AltTitle, f.AltTitle)
		setIf(&e.Form.Origin, f.Origin)
		setIf(&e.Form.Author, f.Author)
		setIf(&e.Form.Team, f.Team)
		setIf(&e.Form.Language, f.Language)
		setIf(&e.Form.Tags, f.Tags)
		setIf(&e.Form.Synopsis, f.Synopsis)
		setIf(&e.Form.Age, f.Age)
	}
	setIf(&e.CoverURL, p.CoverURL)
	setIf(&e.VolumeNumber, p.VolumeNumber)
	setIf(&e.ChapterNumber, p.ChapterNumber)
	setIf(&e.ChapterTitle, p.ChapterTitle)
	setIf(&e.ChapterText, p.ChapterText)
	setIf(&e.IllustrationURL, p.IllustrationURL)
	setIf(&e.IllustrationNote, p.IllustrationNote)
	setIf(&e.PublishNote, p.PublishNote)
}

// SaveDocumentRequest carries the editor's document tree.
type SaveDocumentRequest struct {
	Document json.RawMessage `json:"document"`
}

// SerializeRequest is the request body for content coercion.
type SerializeRequest struct {
	Content string `json:"content"`
}

// SerializeResponse is the coerced plain text.
type SerializeResponse struct {
	Text string `json:"text"`
}

// SessionResponse wraps the session snapshot; Session is null when logged
// out.
type SessionResponse struct {
	Session *session.Session `json:"session"`
}
