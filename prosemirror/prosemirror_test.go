package prosemirror

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drpcorg/ydoc"
	"github.com/drpcorg/ydoc/rdx"
)

func TestMarkNames(t *testing.T) {
	assert.Equal(t, "bold", DecodeMarkName("bold"))
	assert.Equal(t, "link", DecodeMarkName("link--ABCD1234"))
	assert.Equal(t, "text-style", DecodeMarkName("text-style--ABCD1234"))
	assert.Equal(t, "my-mark--short", DecodeMarkName("my-mark--short"))

	assert.Equal(t, "bold", EncodeMarkName("bold", nil))
	assert.Equal(t, "bold", EncodeMarkName("bold", map[string]any{}))

	a := EncodeMarkName("link", map[string]any{"href": "https://a.com"})
	assert.Regexp(t, `^link--[a-zA-Z0-9+/=]{8}$`, a)
	assert.Equal(t, a, EncodeMarkName("link", map[string]any{"href": "https://a.com"}))
	assert.NotEqual(t, a, EncodeMarkName("link", map[string]any{"href": "https://b.com"}))
	assert.Equal(t, "link", DecodeMarkName(a))
}

func fragment(t *testing.T) (*ydoc.Doc, *ydoc.XmlFragment) {
	doc := ydoc.New(ydoc.WithClientID(1))
	frag, err := doc.GetOrInsertXmlFragment("default")
	require.NoError(t, err)
	return doc, frag
}

func toJSON(t *testing.T, doc *ydoc.Doc, frag *ydoc.XmlFragment) (out *Doc) {
	assert.Nil(t, doc.WithReadTransaction(func(txn *ydoc.Transaction) (err error) {
		out, err = FragmentToJSON(txn, frag)
		return
	}))
	return
}

func TestFragmentToJSON(t *testing.T) {
	doc, frag := fragment(t)
	empty := toJSON(t, doc, frag)
	data, err := json.Marshal(empty)
	assert.Nil(t, err)
	assert.JSONEq(t, `{"type":"doc","content":[]}`, string(data))

	assert.Nil(t, doc.WithTransaction(func(txn *ydoc.Transaction) error {
		heading := frag.PushElement(txn, "heading")
		heading.InsertAttribute(txn, "level", "2")
		if err := heading.PushText(txn).Insert(txn, 0, "Title"); err != nil {
			return err
		}
		quote := frag.PushElement(txn, "blockquote")
		para := quote.PushElement(txn, "paragraph")
		text := para.PushText(txn)
		if err := text.Insert(txn, 0, "Quoted text"); err != nil {
			return err
		}
		return text.Format(txn, 0, 6, ydoc.Attrs{"bold": map[string]any{}})
	}))
	assert.Equal(t, &Doc{Type: "doc", Content: []Node{
		{
			Type:    "heading",
			Attrs:   map[string]any{"level": "2"},
			Content: []Node{{Type: "text", Text: "Title"}},
		},
		{
			Type: "blockquote",
			Content: []Node{{
				Type: "paragraph",
				Content: []Node{
					{Type: "text", Text: "Quoted", Marks: []Mark{{Type: "bold"}}},
					{Type: "text", Text: " text"},
				},
			}},
		},
	}}, toJSON(t, doc, frag))
}

const sample = `{
	"type": "doc",
	"content": [
		{"type": "heading", "attrs": {"level": 2}, "content": [{"type": "text", "text": "Title"}]},
		{"type": "paragraph", "marks": [{"type": "align", "attrs": {"side": "left"}}], "content": [
			{"type": "text", "text": "bold", "marks": [{"type": "bold"}]},
			{"type": "text", "text": " link", "marks": [{"type": "link", "attrs": {"href": "https://example.com"}}]},
			{"type": "text", "text": " normal"}
		]}
	]
}`

func TestJSONToFragment(t *testing.T) {
	in, err := ParseDoc([]byte(sample))
	require.NoError(t, err)
	doc, frag := fragment(t)
	assert.Nil(t, doc.WithTransaction(func(txn *ydoc.Transaction) error {
		return JSONToFragment(txn, frag, in)
	}))

	txn, _ := doc.TransactRead()
	assert.Equal(t, uint32(2), frag.Len(txn))
	heading := frag.FirstChild(txn).(*ydoc.XmlElement)
	assert.Equal(t, "heading", heading.Tag())
	level, _ := heading.GetAttribute(txn, "level")
	assert.Equal(t, "2", level)
	para := heading.NextSibling(txn).(*ydoc.XmlElement)
	assert.Len(t, para.Children(txn), 3)
	for _, child := range para.Children(txn) {
		assert.Equal(t, ydoc.XmlKindText, child.Kind())
	}
	txn.Commit()

	// the level comes back a string, attributes are strings
	out := toJSON(t, doc, frag)
	assert.Equal(t, map[string]any{"level": "2"}, out.Content[0].Attrs)
	assert.Equal(t, []Mark{{Type: "align", Attrs: map[string]any{"side": "left"}}}, out.Content[1].Marks)
	assert.Equal(t, []Node{
		{Type: "text", Text: "bold", Marks: []Mark{{Type: "bold"}}},
		{Type: "text", Text: " link", Marks: []Mark{{Type: "link", Attrs: map[string]any{"href": "https://example.com"}}}},
		{Type: "text", Text: " normal"},
	}, out.Content[1].Content)
}

func TestUpdateFragment(t *testing.T) {
	doc1, frag1 := fragment(t)
	old, _ := ParseDoc([]byte(`{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"Hello"}]}]}`))
	assert.Nil(t, doc1.WithTransaction(func(txn *ydoc.Transaction) error {
		return JSONToFragment(txn, frag1, old)
	}))

	doc2 := ydoc.New(ydoc.WithClientID(2))
	sync := func() {
		sv, err := doc2.EncodeStateVector(rdx.EncodingV1)
		require.NoError(t, err)
		txn, _ := doc1.TransactRead()
		diff, err := txn.EncodeDiff(sv, rdx.EncodingV1)
		txn.Commit()
		require.NoError(t, err)
		require.NoError(t, doc2.ApplyUpdate(diff, rdx.EncodingV1))
	}
	sync()

	updated, _ := ParseDoc([]byte(`{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"Updated"}]}]}`))
	assert.Nil(t, doc1.WithTransaction(func(txn *ydoc.Transaction) error {
		return UpdateFragment(txn, frag1, updated)
	}))
	sync()

	frag2, err := doc2.GetOrInsertXmlFragment("default")
	require.NoError(t, err)
	assert.Equal(t, updated, toJSON(t, doc2, frag2))
}

func TestParseDoc(t *testing.T) {
	_, err := ParseDoc([]byte(`{"type":"paragraph"}`))
	assert.NotNil(t, err)
	_, err = ParseDoc([]byte(`{`))
	assert.NotNil(t, err)
}
