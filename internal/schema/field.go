package schema

import (
	"fmt"
	"strings"
)

// Kind tags a field type.
type Kind string

const (
	KindInt      Kind = "int"
	KindLong     Kind = "long"
	KindString   Kind = "string"
	KindText     Kind = "text"
	KindEnum     Kind = "enum"
	KindDateTime Kind = "datetime"
)

// EnumSeparator is the character used to encode an enum's option set.
// Option values must never contain it; see NewEnumType.
const EnumSeparator = ","

// Type is a tagged field type. Length is meaningful for KindString,
// Options for KindEnum; both are zero otherwise.
type Type struct {
	Kind    Kind     `yaml:"kind"`
	Length  int      `yaml:"length,omitempty"`
	Options []string `yaml:"options,omitempty"`
}

// IntType returns the 32-bit integer type.
func IntType() Type { return Type{Kind: KindInt} }

// LongType returns the 64-bit integer type.
func LongType() Type { return Type{Kind: KindLong} }

// StringType returns a bounded varchar type of the given length.
func StringType(length int) Type { return Type{Kind: KindString, Length: length} }

// TextType returns the unbounded text type.
func TextType() Type { return Type{Kind: KindText} }

// DateTimeType returns the timestamp type.
func DateTimeType() Type { return Type{Kind: KindDateTime} }

// NewEnumType builds an enum type. Options containing the separator
// character fail at construction, never as a runtime data-corruption
// risk.
func NewEnumType(options []string) (Type, error) {
	for _, opt := range options {
		if strings.Contains(opt, EnumSeparator) {
			return Type{}, &InvariantError{
				Code:    ErrCodeEnumSeparator,
				Subject: opt,
				Message: fmt.Sprintf("enum option must not contain %q", EnumSeparator),
			}
		}
	}
	return Type{Kind: KindEnum, Options: options}, nil
}

// Field is one column of a layout.
type Field struct {
	Name          string `yaml:"name"`
	Type          Type   `yaml:"type"`
	Nullable      bool   `yaml:"nullable"`
	AutoIncrement bool   `yaml:"auto_increment,omitempty"`
	Unsigned      bool   `yaml:"unsigned,omitempty"`
}
