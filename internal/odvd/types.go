package odvd

import "strings"

// FieldType identifies the declared type of a message field.
type FieldType int

const (
	TypeInvalid FieldType = iota
	TypeBool
	TypeChar
	TypeInt8
	TypeUint8
	TypeInt16
	TypeUint16
	TypeInt32
	TypeUint32
	TypeInt64
	TypeUint64
	TypeFloat
	TypeDouble
	TypeString
	TypeBytes
	TypeMessage
)

var scalarTypes = map[string]FieldType{
	"bool":   TypeBool,
	"char":   TypeChar,
	"int8":   TypeInt8,
	"uint8":  TypeUint8,
	"int16":  TypeInt16,
	"uint16": TypeUint16,
	"int32":  TypeInt32,
	"uint32": TypeUint32,
	"int64":  TypeInt64,
	"uint64": TypeUint64,
	"float":  TypeFloat,
	"double": TypeDouble,
	"string": TypeString,
	"bytes":  TypeBytes,
}

var typeNames = [...]string{
	TypeInvalid: "invalid",
	TypeBool:    "bool",
	TypeChar:    "char",
	TypeInt8:    "int8",
	TypeUint8:   "uint8",
	TypeInt16:   "int16",
	TypeUint16:  "uint16",
	TypeInt32:   "int32",
	TypeUint32:  "uint32",
	TypeInt64:   "int64",
	TypeUint64:  "uint64",
	TypeFloat:   "float",
	TypeDouble:  "double",
	TypeString:  "string",
	TypeBytes:   "bytes",
	TypeMessage: "message",
}

func (t FieldType) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return "invalid"
	}
	return typeNames[t]
}

// Signed reports whether the type is a signed integer.
func (t FieldType) Signed() bool {
	switch t {
	case TypeInt8, TypeInt16, TypeInt32, TypeInt64:
		return true
	}
	return false
}

// Unsigned reports whether the type is an unsigned integer.
func (t FieldType) Unsigned() bool {
	switch t {
	case TypeUint8, TypeUint16, TypeUint32, TypeUint64:
		return true
	}
	return false
}

// Field describes one declared field of a message.
type Field struct {
	ID         uint32
	Name       string
	Type       FieldType
	TypeName   string // as written in the specification
	Default    string
	HasDefault bool
	Line       int
}

// Descriptor describes one message declaration.
type Descriptor struct {
	ID      int32
	Name    string
	Package string
	Fields  []Field
	Line    int
}

// QualifiedName returns the package-qualified message name.
func (d *Descriptor) QualifiedName() string {
	if d.Package == "" {
		return d.Name
	}
	return d.Package + "." + d.Name
}

// ShortName returns the last dotted component of the message name.
func (d *Descriptor) ShortName() string {
	if idx := strings.LastIndex(d.Name, "."); idx >= 0 {
		return d.Name[idx+1:]
	}
	return d.Name
}

// FieldByID returns the field declared with the given identifier.
func (d *Descriptor) FieldByID(id uint32) (Field, bool) {
	for _, f := range d.Fields {
		if f.ID == id {
			return f, true
		}
	}
	return Field{}, false
}
