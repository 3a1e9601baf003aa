package odvd

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ErrRecursiveMessage reports a message that contains itself, directly or
// through other messages.
var ErrRecursiveMessage = errors.New("odvd: recursive message definition")

// ParseFile reads and parses the specification at path.
func ParseFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read message specification: %w", err)
	}
	return Parse(string(data))
}

// Parse parses an ODVD specification and returns the resulting registry.
func Parse(src string) (*Registry, error) {
	tokens, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	descriptors, err := p.parseFile()
	if err != nil {
		return nil, err
	}
	return newRegistry(descriptors)
}

type parser struct {
	tokens []token
	pos    int
	pkg    string
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) errorf(tok token, format string, args ...any) error {
	return &SyntaxError{Line: tok.line, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) expectPunct(text string) (token, error) {
	tok := p.next()
	if tok.kind != tokPunct || tok.text != text {
		return tok, p.errorf(tok, "expected %q, found %s", text, tok.describe())
	}
	return tok, nil
}

func (p *parser) expectIdent(what string) (token, error) {
	tok := p.next()
	if tok.kind != tokIdent {
		return tok, p.errorf(tok, "expected %s, found %s", what, tok.describe())
	}
	return tok, nil
}

func (p *parser) parseFile() ([]*Descriptor, error) {
	var out []*Descriptor
	for {
		tok := p.peek()
		switch {
		case tok.kind == tokEOF:
			return out, nil
		case tok.kind == tokIdent && tok.text == "package":
			p.next()
			name, err := p.expectIdent("package name")
			if err != nil {
				return nil, err
			}
			if _, err := p.expectPunct(";"); err != nil {
				return nil, err
			}
			p.pkg = name.text
		case tok.kind == tokIdent && tok.text == "message":
			desc, err := p.parseMessage()
			if err != nil {
				return nil, err
			}
			out = append(out, desc)
		default:
			return nil, p.errorf(tok, "expected \"message\" or \"package\", found %s", tok.describe())
		}
	}
}

func (p *parser) parseMessage() (*Descriptor, error) {
	kw := p.next()
	name, err := p.expectIdent("message name")
	if err != nil {
		return nil, err
	}
	opts, err := p.parseOptions()
	if err != nil {
		return nil, err
	}
	idText, ok := opts["id"]
	if !ok {
		return nil, p.errorf(name, "message %s has no id", name.text)
	}
	id, err := strconv.ParseInt(idText, 10, 32)
	if err != nil {
		return nil, p.errorf(name, "message %s: invalid id %q", name.text, idText)
	}
	desc := &Descriptor{ID: int32(id), Name: name.text, Package: p.pkg, Line: kw.line}

	if _, err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	seenIDs := map[uint32]string{}
	seenNames := map[string]struct{}{}
	for {
		tok := p.peek()
		if tok.kind == tokPunct && tok.text == "}" {
			p.next()
			break
		}
		if tok.kind == tokEOF {
			return nil, p.errorf(tok, "message %s is not closed", desc.Name)
		}
		field, err := p.parseField()
		if err != nil {
			return nil, err
		}
		if prev, dup := seenIDs[field.ID]; dup {
			return nil, p.errorf(tok, "message %s: field %s reuses id %d of field %s", desc.Name, field.Name, field.ID, prev)
		}
		if _, dup := seenNames[field.Name]; dup {
			return nil, p.errorf(tok, "message %s: duplicate field name %s", desc.Name, field.Name)
		}
		seenIDs[field.ID] = field.Name
		seenNames[field.Name] = struct{}{}
		desc.Fields = append(desc.Fields, field)
	}
	return desc, nil
}

func (p *parser) parseField() (Field, error) {
	typeTok, err := p.expectIdent("field type")
	if err != nil {
		return Field{}, err
	}
	nameTok, err := p.expectIdent("field name")
	if err != nil {
		return Field{}, err
	}
	field := Field{Name: nameTok.text, TypeName: typeTok.text, Line: typeTok.line}
	if ft, ok := scalarTypes[typeTok.text]; ok {
		field.Type = ft
	} else {
		field.Type = TypeMessage
	}

	tok := p.peek()
	if tok.kind != tokPunct || tok.text != "[" {
		return Field{}, p.errorf(tok, "field %s has no id", field.Name)
	}
	opts, err := p.parseOptions()
	if err != nil {
		return Field{}, err
	}
	idText, ok := opts["id"]
	if !ok {
		return Field{}, p.errorf(nameTok, "field %s has no id", field.Name)
	}
	id, err := strconv.ParseUint(idText, 10, 29)
	if err != nil || id == 0 {
		return Field{}, p.errorf(nameTok, "field %s: invalid id %q", field.Name, idText)
	}
	field.ID = uint32(id)
	if def, ok := opts["default"]; ok {
		if err := checkDefault(field.Type, def); err != nil {
			return Field{}, p.errorf(nameTok, "field %s: default %q: %v", field.Name, def, err)
		}
		field.Default = def
		field.HasDefault = true
	}
	if _, err := p.expectPunct(";"); err != nil {
		return Field{}, err
	}
	return field, nil
}

// parseOptions consumes "[key = value, ...]".
func (p *parser) parseOptions() (map[string]string, error) {
	if _, err := p.expectPunct("["); err != nil {
		return nil, err
	}
	opts := map[string]string{}
	for {
		key, err := p.expectIdent("option name")
		if err != nil {
			return nil, err
		}
		if _, err := p.expectPunct("="); err != nil {
			return nil, err
		}
		val := p.next()
		switch val.kind {
		case tokIdent, tokNumber, tokString:
		default:
			return nil, p.errorf(val, "expected value for option %s, found %s", key.text, val.describe())
		}
		opts[strings.ToLower(key.text)] = val.text

		sep := p.next()
		if sep.kind == tokPunct && sep.text == "]" {
			return opts, nil
		}
		if sep.kind != tokPunct || sep.text != "," {
			return nil, p.errorf(sep, "expected \",\" or \"]\", found %s", sep.describe())
		}
	}
}

func checkDefault(t FieldType, value string) error {
	var err error
	switch {
	case t == TypeBool:
		_, err = strconv.ParseBool(value)
	case t.Signed():
		_, err = strconv.ParseInt(value, 0, 64)
	case t.Unsigned():
		_, err = strconv.ParseUint(value, 0, 64)
	case t == TypeFloat || t == TypeDouble:
		_, err = strconv.ParseFloat(value, 64)
	case t == TypeMessage:
		err = errors.New("message fields cannot have defaults")
	}
	return err
}
