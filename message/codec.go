package message

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"

	"wirelink/internal/errors"
)

// Codec converts documents to and from frame payloads.  The transport
// consumes this interface and never inspects the bytes itself.
type Codec interface {
	Encode(doc *Document) ([]byte, error)
	Decode(data []byte) (*Document, error)
}

// TextCodec moves documents in their plain text form.
type TextCodec struct{}

// Encode renders the document as text.
func (TextCodec) Encode(doc *Document) ([]byte, error) {
	return []byte(doc.String()), nil
}

// Decode parses the text form.
func (TextCodec) Decode(data []byte) (*Document, error) {
	doc, err := Parse(data)
	if err != nil {
		return nil, errors.WrapDecode(err)
	}
	return doc, nil
}

// GzipCodec moves documents as gzip-compressed text, the historical
// wire form of the protocol.  Decode rejects payloads that do not
// start with a gzip header.
type GzipCodec struct {
	// Level is a compress/gzip level; 0 means gzip.DefaultCompression.
	Level int
}

// Encode compresses the text form.
func (c GzipCodec) Encode(doc *Document) ([]byte, error) {
	level := c.Level
	if level == 0 {
		level = gzip.DefaultCompression
	}
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, fmt.Errorf("gzip level %d: %w", level, err)
	}
	if _, err := io.WriteString(zw, doc.String()); err != nil {
		zw.Close()
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode decompresses and parses a payload.
func (c GzipCodec) Decode(data []byte) (*Document, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.WrapDecode(fmt.Errorf("gzip header: %w", err))
	}
	defer zr.Close()

	text, err := io.ReadAll(zr)
	if err != nil {
		return nil, errors.WrapDecode(fmt.Errorf("gzip body: %w", err))
	}
	doc, err := Parse(text)
	if err != nil {
		return nil, errors.WrapDecode(err)
	}
	return doc, nil
}
