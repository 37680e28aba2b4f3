package richtext

import (
	"encoding/json"
	"testing"
)

func decodeNodes(t *testing.T, src string) []Node {
	t.Helper()
	var nodes []Node
	if err := json.Unmarshal([]byte(src), &nodes); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return nodes
}

func TestSerialize_ImageToken(t *testing.T) {
	nodes := decodeNodes(t, `[{"type":"img","url":"https://x/y.png"}]`)
	if got := Serialize(nodes); got != "[[img:https://x/y.png]]" {
		t.Errorf("Serialize = %q, want image token", got)
	}
}

func TestSerialize_ImageURLResolution(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"url field", `[{"type":"image","url":"https://a/1.png"}]`, "[[img:https://a/1.png]]"},
		{"src field", `[{"type":"image","src":"https://a/2.png"}]`, "[[img:https://a/2.png]]"},
		{"nested data url", `[{"type":"mediaEmbed","data":{"url":"https://a/3.png"}}]`, "[[img:https://a/3.png]]"},
		{"whitespace trimmed", `[{"type":"img","url":"  https://a/4.png  "}]`, "[[img:https://a/4.png]]"},
		{"no url resolves to nothing", `[{"type":"img"}]`, ""},
		{"type containing img", `[{"type":"custom-img-block","src":"https://a/5.png"}]`, "[[img:https://a/5.png]]"},
		{"bare url implies image", `[{"type":"figure","url":"https://a/6.png"}]`, "[[img:https://a/6.png]]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Serialize(decodeNodes(t, tt.src)); got != tt.want {
				t.Errorf("Serialize = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSerialize_ParagraphJoining(t *testing.T) {
	nodes := decodeNodes(t, `[
		{"type":"p","children":[{"text":"A"}]},
		{"type":"p","children":[{"text":"B"}]}
	]`)
	if got := Serialize(nodes); got != "A\n\nB" {
		t.Errorf("Serialize = %q, want %q", got, "A\n\nB")
	}
}

func TestSerialize_EmptyParagraphsDropped(t *testing.T) {
	nodes := decodeNodes(t, `[
		{"type":"p","children":[{"text":"A"}]},
		{"type":"p","children":[{"text":"   "}]},
		{"type":"p","children":[{"text":""}]},
		{"type":"p","children":[{"text":"B"}]}
	]`)
	if got := Serialize(nodes); got != "A\n\nB" {
		t.Errorf("Serialize = %q, empty paragraphs must not leave blank lines", got)
	}
}

func TestSerialize_NestedChildrenConcatenate(t *testing.T) {
	nodes := decodeNodes(t, `[
		{"type":"p","children":[
			{"text":"The "},
			{"type":"strong","children":[{"text":"Ashen"}]},
			{"text":" Crown"}
		]}
	]`)
	if got := Serialize(nodes); got != "The Ashen Crown" {
		t.Errorf("Serialize = %q, want %q", got, "The Ashen Crown")
	}
}

func TestSerialize_Deterministic(t *testing.T) {
	nodes := decodeNodes(t, `[
		{"type":"p","children":[{"text":"line"},{"type":"img","url":"https://a/i.png"}]}
	]`)
	first := Serialize(nodes)
	for i := 0; i < 5; i++ {
		if got := Serialize(nodes); got != first {
			t.Fatalf("call %d produced %q, first call produced %q", i, got, first)
		}
	}
}

func TestSerialize_MalformedShapesContributeNothing(t *testing.T) {
	// Numbers, nulls, and odd objects inside a tree must not abort the
	// traversal.
	nodes := decodeNodes(t, `[
		{"type":"p","children":[{"text":"ok"}, 42, null, {"children":"not-an-array"}]},
		"just a string"
	]`)
	if got := Serialize(nodes); got != "ok" {
		t.Errorf("Serialize = %q, want %q", got, "ok")
	}
}

func TestSerializeRaw_NonArrayInput(t *testing.T) {
	for _, src := range []string{`{"type":"p"}`, `"text"`, `17`, `not json at all`} {
		if got := SerializeRaw(json.RawMessage(src)); got != "" {
			t.Errorf("SerializeRaw(%q) = %q, want empty", src, got)
		}
	}
}

func TestCoerceToPlainText_PassThrough(t *testing.T) {
	tests := []string{
		"already plain text",
		"",
		"   ",
		"line one\n\nline two",
		"[not valid json",
		`{"an":"object"}`,
		`[1,2,3]`, // parses but serializes empty
	}
	for _, in := range tests {
		if got := CoerceToPlainText(in); got != in {
			t.Errorf("CoerceToPlainText(%q) = %q, want unchanged", in, got)
		}
	}
}

func TestCoerceToPlainText_SerializesTrees(t *testing.T) {
	in := `[{"type":"p","children":[{"text":"Hello"}]},{"type":"img","url":"https://x/c.png"}]`
	want := "Hello\n\n[[img:https://x/c.png]]"
	if got := CoerceToPlainText(in); got != want {
		t.Errorf("CoerceToPlainText = %q, want %q", got, want)
	}
}

func TestCoerceToPlainText_Idempotent(t *testing.T) {
	inputs := []string{
		`[{"type":"p","children":[{"text":"Hello"}]}]`,
		"plain chapter text",
		"[broken json",
	}
	for _, in := range inputs {
		once := CoerceToPlainText(in)
		if twice := CoerceToPlainText(once); twice != once {
			t.Errorf("coercion not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}
