package mcpserver

// DraftFormatContract describes the persisted workstation draft envelope
// for MCP consumers that read or produce draft content.
const DraftFormatContract = `# Nocturne Draft Envelope Contract

The workstation persists one draft per editing context under a reserved
key. The record is a single JSON object; writes fully replace it.

## Shape

` + "```" + `json
{
  "form": {
    "title": "Ashen Crown",
    "altTitle": "",
    "origin": "",
    "author": "K. Mori",
    "team": "",
    "language": "EN",
    "tags": "",
    "synopsis": "",
    "age": ""
  },
  "coverUrl": "",
  "volumeNumber": 1,
  "chapterNumber": 1,
  "chapterTitle": "Prologue",
  "chapterText": "Night falls.",
  "illustrationUrl": "",
  "illustrationNote": "",
  "publishNote": "",
  "plateValue": [{"type": "p", "children": [{"text": "Night falls."}]}],
  "plateSavedAt": "2026-03-01T12:00:00Z",
  "savedAt": "2026-03-01T12:00:00Z"
}
` + "```" + `

## Rules

1. **Unknown fields are ignored and missing fields default** —
   ` + "`" + `volumeNumber` + "`" + ` and ` + "`" + `chapterNumber` + "`" + ` default to 1,
   ` + "`" + `form.language` + "`" + ` to "EN".
2. **` + "`" + `plateValue` + "`" + `** is the rich-text document tree saved from the
   editor view. It is optional; when present it takes precedence over
   ` + "`" + `chapterText` + "`" + ` at publish time.
3. **Timestamps** are RFC 3339 in UTC. ` + "`" + `savedAt` + "`" + ` is stamped on every
   durable write; ` + "`" + `plateSavedAt` + "`" + ` only when the document changes.
4. **Plain-text chapter content** uses double-newline paragraph breaks and
   inline image markers of the exact form ` + "`" + `[[img:https://host/file.png]]` + "`" + `.
5. **Last write wins.** Concurrent writers are not merged; do not hold a
   stale envelope and write it back after another writer saved.
`
