// Package value implements the generic, self-describing value tree handed
// to the table pipeline: strings, lists, ordered records, an explicit
// "nothing" marker and error values. Every value is stamped with the span
// of input it was produced for.
package value

import "fmt"

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	KindNothing Kind = iota
	KindString
	KindList
	KindRecord
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindNothing:
		return "nothing"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindRecord:
		return "record"
	case KindError:
		return "error"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Span is a half-open byte range [Start, End) into the command input.
type Span struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// ShellError is the payload of an error value. Head points at the command
// that produced the value, Origin at the input the failure came from.
type ShellError struct {
	Msg    string
	Label  string
	Head   Span
	Origin Span
}

func (e *ShellError) Error() string {
	return e.Msg
}

// Value is one node of the generic value tree. The zero Value is nothing
// at span {0, 0}.
type Value struct {
	kind Kind
	str  string
	list []Value
	rec  *Record
	err  *ShellError
	span Span
}

// Nothing returns the explicit absence marker.
func Nothing(span Span) Value {
	return Value{kind: KindNothing, span: span}
}

// String returns a string value.
func String(s string, span Span) Value {
	return Value{kind: KindString, str: s, span: span}
}

// List returns a list value. A nil slice is stored as an empty list so that
// encoders never see a missing list.
func List(vals []Value, span Span) Value {
	if vals == nil {
		vals = []Value{}
	}
	return Value{kind: KindList, list: vals, span: span}
}

// RecordOf returns a record value. A nil record is stored as an empty one.
func RecordOf(r *Record, span Span) Value {
	if r == nil {
		r = NewRecord(0)
	}
	return Value{kind: KindRecord, rec: r, span: span}
}

// Error returns an error value carrying err.
func Error(err *ShellError, span Span) Value {
	return Value{kind: KindError, err: err, span: span}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) Span() Span { return v.span }

func (v Value) IsNothing() bool { return v.kind == KindNothing }

func (v Value) IsError() bool { return v.kind == KindError }

// AsString returns the string payload and whether v is a string.
func (v Value) AsString() (string, bool) {
	return v.str, v.kind == KindString
}

// AsList returns the list payload and whether v is a list.
func (v Value) AsList() ([]Value, bool) {
	return v.list, v.kind == KindList
}

// AsRecord returns the record payload and whether v is a record.
func (v Value) AsRecord() (*Record, bool) {
	return v.rec, v.kind == KindRecord
}

// AsError returns the error payload and whether v is an error value.
func (v Value) AsError() (*ShellError, bool) {
	return v.err, v.kind == KindError
}
