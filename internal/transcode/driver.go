// Package transcode turns parsed calendars into the generic value tree.
//
// Each top-level document becomes either a calendar record or an error
// value at the same position in the output list; one bad document never
// stops the others from being encoded.
package transcode

import (
	"fmt"
	"iter"
	"strings"

	"icstable/internal/ics"
	"icstable/internal/model"
	"icstable/internal/value"
)

const (
	unsupportedInputMsg = "input cannot be parsed as .ics"
	originLabel         = "value originates from here"
)

// FromICS parses input and transcodes every document in it. All values are
// stamped with head; error values point at the failing document.
func FromICS(input string, head value.Span, opts ics.Options) value.Value {
	p := ics.NewParser(strings.NewReader(input), opts)
	return Transcode(p.All(), head)
}

// Transcode consumes docs once, in order, and returns a list holding one
// element per yielded document.
func Transcode(docs iter.Seq2[*model.Calendar, *ics.ParseError], head value.Span) value.Value {
	out := make([]value.Value, 0, 1)
	for cal, perr := range docs {
		switch {
		case perr != nil:
			out = append(out, errorValue(perr, head))
		case cal != nil:
			out = append(out, CalendarToValue(cal, head))
		default:
			out = append(out, errorValue(&ics.ParseError{Msg: "parser yielded an empty result"}, head))
		}
	}
	return value.List(out, head)
}

func errorValue(perr *ics.ParseError, head value.Span) value.Value {
	return value.Error(&value.ShellError{
		Msg:    fmt.Sprintf("%s (%s)", unsupportedInputMsg, perr.Error()),
		Label:  originLabel,
		Head:   head,
		Origin: perr.Span,
	}, head)
}

// Summary counts the outcome of one transcoding call.
type Summary struct {
	Documents int
	Failed    int
}

// Summarize inspects a list produced by Transcode.
func Summarize(v value.Value) Summary {
	var s Summary
	items, _ := v.AsList()
	for _, item := range items {
		s.Documents++
		if item.IsError() {
			s.Failed++
		}
	}
	return s
}
