package message

import (
	"fmt"
	"strings"
	"unicode"
)

// Parse reads the text form back into a Document.  Attribute order and
// duplicate child blocks survive the round trip.  Malformed input
// fails with a descriptive error; the transport wraps it as a decode
// failure.
func Parse(data []byte) (*Document, error) {
	p := &parser{src: string(data)}
	root := New()
	if err := p.parseInto(root, ""); err != nil {
		return nil, err
	}
	return root, nil
}

// parser is a single-pass cursor over the text form.  It is not
// line-based because quoted values may contain newlines.
type parser struct {
	src  string
	pos  int
	line int
}

// parseInto fills doc until the matching close tag of block (or EOF
// for the root, where block is "").
func (p *parser) parseInto(doc *Document, block string) error {
	for {
		p.skipSpace()
		if p.eof() {
			if block != "" {
				return p.errf("unterminated block [%s]", block)
			}
			return nil
		}

		if p.peek() == '[' {
			name, closing, err := p.readTag()
			if err != nil {
				return err
			}
			if closing {
				if name != block {
					return p.errf("mismatched close tag [/%s] in [%s]", name, block)
				}
				return nil
			}
			child := doc.AddChild(name)
			if err := p.parseInto(child, name); err != nil {
				return err
			}
			continue
		}

		key, err := p.readKey()
		if err != nil {
			return err
		}
		value, err := p.readValue()
		if err != nil {
			return err
		}
		doc.attrs = append(doc.attrs, Attribute{Key: key, Value: value})
	}
}

// readTag consumes "[name]" or "[/name]".
func (p *parser) readTag() (name string, closing bool, err error) {
	p.pos++ // consume '['
	if !p.eof() && p.peek() == '/' {
		closing = true
		p.pos++
	}
	start := p.pos
	for !p.eof() && p.peek() != ']' && p.peek() != '\n' {
		p.pos++
	}
	if p.eof() || p.peek() != ']' {
		return "", false, p.errf("unterminated tag")
	}
	name = p.src[start:p.pos]
	p.pos++ // consume ']'
	if name == "" {
		return "", false, p.errf("empty tag name")
	}
	if !validName(name) {
		return "", false, p.errf("invalid tag name %q", name)
	}
	return name, closing, nil
}

// readKey consumes an attribute key up to '='.
func (p *parser) readKey() (string, error) {
	start := p.pos
	for !p.eof() && p.peek() != '=' && p.peek() != '\n' {
		p.pos++
	}
	if p.eof() || p.peek() != '=' {
		return "", p.errf("attribute without '='")
	}
	key := strings.TrimSpace(p.src[start:p.pos])
	p.pos++ // consume '='
	if key == "" || !validName(key) {
		return "", p.errf("invalid attribute key %q", key)
	}
	return key, nil
}

// readValue consumes a quoted value.  Doubled quotes unescape to a
// single quote; newlines inside the quotes are preserved.
func (p *parser) readValue() (string, error) {
	if p.eof() || p.peek() != '"' {
		return "", p.errf("attribute value must be quoted")
	}
	p.pos++ // consume opening quote

	var sb strings.Builder
	for {
		if p.eof() {
			return "", p.errf("unterminated quoted value")
		}
		c := p.src[p.pos]
		if c == '"' {
			if p.pos+1 < len(p.src) && p.src[p.pos+1] == '"' {
				sb.WriteByte('"')
				p.pos += 2
				continue
			}
			p.pos++ // closing quote
			return sb.String(), nil
		}
		if c == '\n' {
			p.line++
		}
		sb.WriteByte(c)
		p.pos++
	}
}

func (p *parser) skipSpace() {
	for !p.eof() {
		c := p.src[p.pos]
		if c == '\n' {
			p.line++
		}
		if c != ' ' && c != '\t' && c != '\r' && c != '\n' {
			return
		}
		p.pos++
	}
}

func (p *parser) peek() byte { return p.src[p.pos] }
func (p *parser) eof() bool  { return p.pos >= len(p.src) }

func (p *parser) errf(format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	return fmt.Errorf("line %d: %s", p.line+1, msg)
}

// validName restricts tag and key names to letters, digits and
// underscores, matching what the server accepts.
func validName(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return false
		}
	}
	return s != ""
}
