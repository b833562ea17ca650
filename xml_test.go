package ydoc

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/drpcorg/ydoc/rdx"
	"github.com/drpcorg/ydoc/ydoc_errors"
)

func TestXml_Siblings(t *testing.T) {
	doc := New(WithClientID(1))
	frag, err := doc.GetOrInsertXmlFragment("f")
	assert.Nil(t, err)

	txn, _ := doc.Transact()
	x, err := frag.InsertText(txn, 0)
	assert.Nil(t, err)
	assert.Nil(t, x.Insert(txn, 0, "x"))
	el, err := frag.InsertElement(txn, 1, "b")
	assert.Nil(t, err)
	txn.Commit()

	txn, _ = doc.TransactRead()
	defer txn.Commit()
	children := frag.Children(txn)
	assert.Len(t, children, 2)
	assert.Same(t, x, children[0])
	assert.Same(t, el, children[1])
	assert.Same(t, el, x.NextSibling(txn))
	assert.Same(t, x, el.PrevSibling(txn))
	assert.Nil(t, el.NextSibling(txn))
	assert.Nil(t, x.PrevSibling(txn))
	assert.Same(t, frag, x.Parent())
	assert.Same(t, frag, el.Parent())
	assert.Nil(t, frag.Parent())
	assert.Same(t, x, frag.FirstChild(txn))
	assert.Equal(t, XmlKindText, children[0].Kind())
	assert.Equal(t, XmlKindElement, children[1].Kind())
	assert.Equal(t, "x<b></b>", frag.String(txn))

	_, err = frag.Get(txn, 2)
	assert.ErrorIs(t, err, ydoc_errors.ErrOutOfBounds)
}

func TestXml_Nesting(t *testing.T) {
	doc := New(WithClientID(1))
	frag, _ := doc.GetOrInsertXmlFragment("f")
	assert.Nil(t, doc.WithTransaction(func(txn *Transaction) error {
		a := frag.PushElement(txn, "A")
		b := a.PushElement(txn, "B")
		a.InsertAttribute(txn, "href", "u")
		text := b.PushText(txn)
		if err := text.Insert(txn, 0, "hi"); err != nil {
			return err
		}
		return text.Format(txn, 0, 1, Attrs{"bold": true})
	}))

	txn, _ := doc.TransactRead()
	defer txn.Commit()
	assert.Equal(t, `<A href="u"><B><bold>h</bold>i</B></A>`, frag.String(txn))

	a := frag.FirstChild(txn).(*XmlElement)
	href, ok := a.GetAttribute(txn, "href")
	assert.True(t, ok)
	assert.Equal(t, "u", href)
	assert.Equal(t, map[string]string{"href": "u"}, a.Attributes(txn))
	b := a.FirstChild(txn).(*XmlElement)
	assert.Same(t, a, b.Parent())
	assert.Equal(t, "B", b.Tag())
}

func TestXml_DeleteChildren(t *testing.T) {
	doc := New(WithClientID(1))
	frag, _ := doc.GetOrInsertXmlFragment("f")
	assert.Nil(t, doc.WithTransaction(func(txn *Transaction) error {
		frag.PushElement(txn, "A")
		frag.PushElement(txn, "B")
		frag.UnshiftElement(txn, "C")
		return nil
	}))

	var deltas []Delta
	frag.Observe(func(txn *Transaction, ev *Event) {
		deltas = ev.Delta
	})
	assert.Nil(t, doc.WithTransaction(func(txn *Transaction) error {
		assert.Equal(t, "<C></C><A></A><B></B>", frag.String(txn))
		return frag.Delete(txn, 1, 1)
	}))
	assert.Equal(t, []Delta{Retained(1, nil), Deleted(1)}, deltas)

	txn, _ := doc.TransactRead()
	defer txn.Commit()
	assert.Equal(t, "<C></C><B></B>", frag.String(txn))
	assert.Equal(t, uint32(2), frag.Len(txn))
}

func TestXml_Sync(t *testing.T) {
	for _, enc := range []rdx.Encoding{rdx.EncodingV1, rdx.EncodingV2} {
		a := New(WithClientID(1))
		fa, _ := a.GetOrInsertXmlFragment("f")
		assert.Nil(t, a.WithTransaction(func(txn *Transaction) error {
			p := fa.PushElement(txn, "p")
			p.InsertAttribute(txn, "class", "lead")
			text := p.PushText(txn)
			return text.InsertWithAttributes(txn, 0, "hey", Attrs{"em": true})
		}))
		b := New(WithClientID(2))
		syncDocs(t, a, b, enc)

		fb, err := b.GetOrInsertXmlFragment("f")
		assert.Nil(t, err)
		txn, _ := b.TransactRead()
		assert.Equal(t, `<p class="lead"><em>hey</em></p>`, fb.String(txn), enc.String())
		txn.Commit()
	}
}

func TestXmlText_Attributes(t *testing.T) {
	doc := New(WithClientID(1))
	text, _ := doc.GetOrInsertXmlText("x")
	assert.Nil(t, doc.WithTransaction(func(txn *Transaction) error {
		text.InsertAttribute(txn, "lang", "en")
		text.InsertAttribute(txn, "dir", "ltr")
		assert.True(t, text.RemoveAttribute(txn, "dir"))
		return text.Insert(txn, 0, "plain")
	}))
	txn, _ := doc.TransactRead()
	defer txn.Commit()
	assert.Equal(t, map[string]string{"lang": "en"}, text.Attributes(txn))
	_, ok := text.GetAttribute(txn, "dir")
	assert.False(t, ok)
	assert.Equal(t, "plain", text.String(txn))
	assert.Nil(t, text.Parent())
}
