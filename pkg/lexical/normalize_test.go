package lexical

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseContentPlainTextPassthrough(t *testing.T) {
	assert.Equal(t, "just plain text", ParseContent("just plain text"))
	assert.Equal(t, "{not lexical}", ParseContent("{not lexical}"))
}

func TestParseContentInvalidJSONPassthrough(t *testing.T) {
	broken := `{"root": {"type": "root", "children": [`
	assert.Equal(t, broken, ParseContent(broken))
}

func TestParseContentParagraphsAndHeadings(t *testing.T) {
	content := `{"root":{"type":"root","children":[
		{"type":"heading","tag":"h1","children":[{"type":"text","text":"Title"}]},
		{"type":"paragraph","children":[{"type":"text","text":"First line."},{"type":"linebreak"},{"type":"text","text":"Second line."}]}
	]}}`

	got := ParseContent(content)
	assert.Contains(t, got, "Title")
	assert.Contains(t, got, "First line.\nSecond line.")
}

func TestParseContentBulletAndNumberedLists(t *testing.T) {
	content := `{"root":{"type":"root","children":[
		{"type":"list","listType":"bullet","children":[
			{"type":"listitem","children":[{"type":"text","text":"alpha"}]},
			{"type":"listitem","children":[{"type":"text","text":"beta"}]}
		]},
		{"type":"list","listType":"number","start":3,"children":[
			{"type":"listitem","children":[{"type":"text","text":"third"}]},
			{"type":"listitem","children":[{"type":"text","text":"fourth"}]}
		]}
	]}}`

	got := ParseContent(content)
	assert.Contains(t, got, "- alpha")
	assert.Contains(t, got, "- beta")
	assert.Contains(t, got, "3. third")
	assert.Contains(t, got, "4. fourth")
}

func TestParseContentNestedListIndentation(t *testing.T) {
	content := `{"root":{"type":"root","children":[
		{"type":"list","listType":"bullet","children":[
			{"type":"listitem","children":[
				{"type":"text","text":"outer"},
				{"type":"list","listType":"bullet","children":[
					{"type":"listitem","children":[{"type":"text","text":"inner"}]}
				]}
			]}
		]}
	]}}`

	got := ParseContent(content)
	assert.Contains(t, got, "- outer")
	assert.Contains(t, got, "  - inner")
}

func TestParseContentLinksAndTables(t *testing.T) {
	content := `{"root":{"type":"root","children":[
		{"type":"paragraph","children":[
			{"type":"link","url":"https://example.com","children":[{"type":"text","text":"docs"}]}
		]},
		{"type":"table","children":[
			{"type":"tablerow","children":[
				{"type":"tablecell","children":[{"type":"text","text":"name"}]},
				{"type":"tablecell","children":[{"type":"text","text":"value"}]}
			]}
		]}
	]}}`

	got := ParseContent(content)
	assert.Contains(t, got, "docs (https://example.com)")
	assert.Contains(t, got, "name | value")
}

func TestParseContentSkipsHorizontalRule(t *testing.T) {
	content := `{"root":{"type":"root","children":[
		{"type":"paragraph","children":[{"type":"text","text":"above"}]},
		{"type":"horizontalrule"},
		{"type":"paragraph","children":[{"type":"text","text":"below"}]}
	]}}`

	got := ParseContent(content)
	assert.Contains(t, got, "above")
	assert.Contains(t, got, "below")
}
