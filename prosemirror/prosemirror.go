// Package prosemirror converts between XML fragments and ProseMirror
// JSON documents, laid out the way y-prosemirror binds an editor to a
// fragment: block nodes are elements named after the node type, text
// is XmlText whose formatting attributes are the marks.
package prosemirror

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/drpcorg/ydoc"
)

// Doc is the top-level ProseMirror node.
type Doc struct {
	Type    string `json:"type"`
	Content []Node `json:"content"`
}

type Node struct {
	Type    string         `json:"type"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Marks   []Mark         `json:"marks,omitempty"`
	Text    string         `json:"text,omitempty"`
	Content []Node         `json:"content,omitempty"`
}

type Mark struct {
	Type  string         `json:"type"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

// Element marks are kept as JSON in this element attribute.
const marksAttribute = "marks"

// parent is an XmlFragment or an XmlElement.
type parent interface {
	PushElement(txn *ydoc.Transaction, tag string) *ydoc.XmlElement
	PushText(txn *ydoc.Transaction) *ydoc.XmlText
	Children(txn *ydoc.Transaction) []ydoc.XmlNode
}

func FragmentToJSON(txn *ydoc.Transaction, fragment *ydoc.XmlFragment) (*Doc, error) {
	content, err := childrenToJSON(txn, fragment)
	if err != nil {
		return nil, err
	}
	if content == nil {
		content = []Node{}
	}
	return &Doc{Type: "doc", Content: content}, nil
}

func childrenToJSON(txn *ydoc.Transaction, p parent) ([]Node, error) {
	var nodes []Node
	for _, child := range p.Children(txn) {
		switch n := child.(type) {
		case *ydoc.XmlElement:
			node, err := elementToJSON(txn, n)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, node)
		case *ydoc.XmlText:
			nodes = append(nodes, textToJSON(txn, n)...)
		}
	}
	return nodes, nil
}

func elementToJSON(txn *ydoc.Transaction, el *ydoc.XmlElement) (Node, error) {
	node := Node{Type: el.Tag()}
	for k, v := range el.Attributes(txn) {
		if k == marksAttribute {
			if err := json.Unmarshal([]byte(v), &node.Marks); err != nil {
				return node, fmt.Errorf("marks of <%s>: %w", el.Tag(), err)
			}
			continue
		}
		if node.Attrs == nil {
			node.Attrs = make(map[string]any)
		}
		node.Attrs[k] = v
	}
	content, err := childrenToJSON(txn, el)
	if err != nil {
		return node, err
	}
	node.Content = content
	return node, nil
}

// textToJSON makes a text node of every formatting run; embeds have
// no ProseMirror text form and are skipped.
func textToJSON(txn *ydoc.Transaction, text *ydoc.XmlText) []Node {
	var nodes []Node
	for _, d := range text.Diff(txn) {
		s, ok := d.Insert.(string)
		if !ok {
			continue
		}
		node := Node{Type: "text", Text: s}
		keys := make([]string, 0, len(d.Attributes))
		for k := range d.Attributes {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			mark := Mark{Type: DecodeMarkName(k)}
			if attrs, ok := d.Attributes[k].(map[string]any); ok && len(attrs) > 0 {
				mark.Attrs = attrs
			}
			node.Marks = append(node.Marks, mark)
		}
		nodes = append(nodes, node)
	}
	return nodes
}

// JSONToFragment appends the content of doc to the fragment.
func JSONToFragment(txn *ydoc.Transaction, fragment *ydoc.XmlFragment, doc *Doc) error {
	for i := range doc.Content {
		if err := writeNode(txn, fragment, &doc.Content[i]); err != nil {
			return err
		}
	}
	return nil
}

// UpdateFragment replaces the content of the fragment with doc. The
// old nodes are deleted, so replicas converge on the new content.
func UpdateFragment(txn *ydoc.Transaction, fragment *ydoc.XmlFragment, doc *Doc) error {
	if err := fragment.Delete(txn, 0, fragment.Len(txn)); err != nil {
		return err
	}
	return JSONToFragment(txn, fragment, doc)
}

func writeNode(txn *ydoc.Transaction, p parent, node *Node) error {
	if node.Type == "text" {
		return writeText(txn, p, node)
	}
	el := p.PushElement(txn, node.Type)
	keys := make([]string, 0, len(node.Attrs))
	for k := range node.Attrs {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		el.InsertAttribute(txn, k, fmt.Sprint(node.Attrs[k]))
	}
	if len(node.Marks) > 0 {
		marks, err := json.Marshal(node.Marks)
		if err != nil {
			return err
		}
		el.InsertAttribute(txn, marksAttribute, string(marks))
	}
	for i := range node.Content {
		if err := writeNode(txn, el, &node.Content[i]); err != nil {
			return err
		}
	}
	return nil
}

func writeText(txn *ydoc.Transaction, p parent, node *Node) error {
	text := p.PushText(txn)
	if len(node.Marks) == 0 {
		return text.Insert(txn, 0, node.Text)
	}
	attrs := ydoc.Attrs{}
	for _, mark := range node.Marks {
		val := mark.Attrs
		if val == nil {
			val = map[string]any{}
		}
		attrs[EncodeMarkName(mark.Type, mark.Attrs)] = val
	}
	return text.InsertWithAttributes(txn, 0, node.Text, attrs)
}

// ParseDoc reads a ProseMirror JSON document.
func ParseDoc(data []byte) (*Doc, error) {
	var doc Doc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Type != "doc" {
		return nil, fmt.Errorf("not a ProseMirror document: type %q", doc.Type)
	}
	return &doc, nil
}
