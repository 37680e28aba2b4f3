// Package richtext flattens the editor's structured document trees into
// plain text for a backend that only understands strings. The conversion
// is lossy and one-directional; nothing here rebuilds a tree from text.
package richtext

import (
	"encoding/json"
	"strings"
)

// imageTypes are the element types that carry an inline image.
var imageTypes = map[string]struct{}{
	"img":         {},
	"image":       {},
	"media":       {},
	"mediaEmbed":  {},
	"media-embed": {},
}

// Node is the closed representation of one editor node, decoded at the
// boundary where the loosely-typed tree is first received. A node is
// either a text leaf or an element with children; image-bearing elements
// carry a resolved URL.
type Node struct {
	Leaf     bool
	Text     string
	Type     string
	URL      string
	Children []Node
}

// rawNode mirrors the open editor shape for decoding only.
type rawNode struct {
	Text     *string `json:"text"`
	Type     string  `json:"type"`
	URL      string  `json:"url"`
	Src      string  `json:"src"`
	Data     struct {
		URL string `json:"url"`
	} `json:"data"`
	Children []Node `json:"children"`
}

// UnmarshalJSON decodes one editor node. Malformed shapes decode to an
// empty element rather than failing, so a bad node never aborts the
// traversal.
func (n *Node) UnmarshalJSON(data []byte) error {
	var raw rawNode
	if err := json.Unmarshal(data, &raw); err != nil {
		*n = Node{}
		return nil
	}
	if raw.Text != nil {
		*n = Node{Leaf: true, Text: *raw.Text}
		return nil
	}
	*n = Node{
		Type:     raw.Type,
		URL:      resolveURL(raw),
		Children: raw.Children,
	}
	return nil
}

// resolveURL checks the equivalent image-URL fields in order: url, src,
// then the nested data object's url.
func resolveURL(raw rawNode) string {
	if u := strings.TrimSpace(raw.URL); u != "" {
		return u
	}
	if u := strings.TrimSpace(raw.Src); u != "" {
		return u
	}
	return strings.TrimSpace(raw.Data.URL)
}

// isImage reports whether the node contributes an image token.
func (n Node) isImage() bool {
	if n.Leaf {
		return false
	}
	if _, ok := imageTypes[n.Type]; ok {
		return true
	}
	if strings.Contains(n.Type, "img") {
		return true
	}
	return n.URL != ""
}
