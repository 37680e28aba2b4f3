package richtext

import (
	"encoding/json"
	"strings"
)

// Serialize flattens a document tree into plain text. Each top-level node
// is a block boundary: its trimmed contribution becomes one paragraph,
// paragraphs are joined with a blank line, and empty paragraphs are
// dropped entirely. The function is pure and never fails; unexpected node
// shapes contribute empty text.
func Serialize(nodes []Node) string {
	var blocks []string
	for _, n := range nodes {
		block := strings.TrimSpace(nodeText(n))
		if block == "" {
			continue
		}
		blocks = append(blocks, block)
	}
	return strings.Join(blocks, "\n\n")
}

// nodeText is the depth-first contribution of one node.
func nodeText(n Node) string {
	if n.Leaf {
		return n.Text
	}
	if n.isImage() {
		if n.URL == "" {
			return ""
		}
		return "[[img:" + n.URL + "]]"
	}
	var b strings.Builder
	for _, child := range n.Children {
		b.WriteString(nodeText(child))
	}
	return b.String()
}

// SerializeRaw decodes a JSON-encoded tree and serializes it. Input that
// is not an array yields empty text.
func SerializeRaw(raw json.RawMessage) string {
	var nodes []Node
	if err := json.Unmarshal(raw, &nodes); err != nil {
		return ""
	}
	return Serialize(nodes)
}

// CoerceToPlainText accepts chapter content that is either already plain
// text or a JSON-encoded document tree, and returns plain text either way.
// Content is treated as a tree only when it trims to something starting
// with '[' or '{'; if that parse fails, or serializing yields nothing, the
// original string passes through unchanged. Calling it on its own output
// is a no-op.
func CoerceToPlainText(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return content
	}
	if trimmed[0] != '[' && trimmed[0] != '{' {
		return content
	}
	if serialized := SerializeRaw(json.RawMessage(trimmed)); serialized != "" {
		return serialized
	}
	return content
}
