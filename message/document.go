// Package message implements the structured documents exchanged with
// the server: ordered key/value attributes plus ordered, repeatable
// named child blocks.  The transport layer treats documents as opaque
// and moves them through a [Codec].
//
// The text form is line-oriented:
//
//	version="1.0"
//	[request]
//		name="ladder"
//	[/request]
//
// Attribute order and duplicate child names are significant and are
// preserved exactly through an encode/decode round trip.
package message

import "strings"

// Attribute is a single ordered key/value pair.
type Attribute struct {
	Key   string
	Value string
}

// Child is a named nested document.  The same name may repeat.
type Child struct {
	Name string
	Doc  *Document
}

// Document is an ordered tree of attributes and named children.
type Document struct {
	attrs    []Attribute
	children []Child
}

// New returns an empty document.
func New() *Document {
	return &Document{}
}

// Set assigns key to value, replacing the first existing occurrence
// or appending a new attribute.  It returns the document for chaining.
func (d *Document) Set(key, value string) *Document {
	for i := range d.attrs {
		if d.attrs[i].Key == key {
			d.attrs[i].Value = value
			return d
		}
	}
	d.attrs = append(d.attrs, Attribute{Key: key, Value: value})
	return d
}

// Get returns the value of the first attribute named key.
func (d *Document) Get(key string) (string, bool) {
	for _, a := range d.attrs {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

// Attributes returns the attributes in document order.  The slice is
// shared; callers must not modify it.
func (d *Document) Attributes() []Attribute {
	return d.attrs
}

// AddChild appends a new empty child block and returns it.
func (d *Document) AddChild(name string) *Document {
	c := New()
	d.children = append(d.children, Child{Name: name, Doc: c})
	return c
}

// AppendChild appends an existing document as a child block.
func (d *Document) AppendChild(name string, doc *Document) {
	d.children = append(d.children, Child{Name: name, Doc: doc})
}

// Child returns the first child block with the given name.
func (d *Document) Child(name string) *Document {
	for _, c := range d.children {
		if c.Name == name {
			return c.Doc
		}
	}
	return nil
}

// Children returns every child block with the given name, in order.
func (d *Document) Children(name string) []*Document {
	var out []*Document
	for _, c := range d.children {
		if c.Name == name {
			out = append(out, c.Doc)
		}
	}
	return out
}

// AllChildren returns every child in document order.  The slice is
// shared; callers must not modify it.
func (d *Document) AllChildren() []Child {
	return d.children
}

// Empty reports whether the document has no attributes and no children.
func (d *Document) Empty() bool {
	return len(d.attrs) == 0 && len(d.children) == 0
}

// Equal reports whether two documents have identical attributes and
// children in identical order.
func (d *Document) Equal(o *Document) bool {
	if d == nil || o == nil {
		return d == o
	}
	if len(d.attrs) != len(o.attrs) || len(d.children) != len(o.children) {
		return false
	}
	for i, a := range d.attrs {
		if o.attrs[i] != a {
			return false
		}
	}
	for i, c := range d.children {
		if o.children[i].Name != c.Name || !c.Doc.Equal(o.children[i].Doc) {
			return false
		}
	}
	return true
}

// String renders the document in its text form.
func (d *Document) String() string {
	var sb strings.Builder
	d.write(&sb, 0)
	return sb.String()
}

func (d *Document) write(sb *strings.Builder, depth int) {
	indent := strings.Repeat("\t", depth)
	for _, a := range d.attrs {
		sb.WriteString(indent)
		sb.WriteString(a.Key)
		sb.WriteString(`="`)
		// Quotes inside values are doubled; everything else,
		// newlines included, passes through literally.
		sb.WriteString(strings.ReplaceAll(a.Value, `"`, `""`))
		sb.WriteString("\"\n")
	}
	for _, c := range d.children {
		sb.WriteString(indent)
		sb.WriteString("[")
		sb.WriteString(c.Name)
		sb.WriteString("]\n")
		c.Doc.write(sb, depth+1)
		sb.WriteString(indent)
		sb.WriteString("[/")
		sb.WriteString(c.Name)
		sb.WriteString("]\n")
	}
}
