package ics

import (
	"fmt"
	"io"
	"iter"
	"slices"
	"strings"

	"icstable/internal/model"
	"icstable/internal/value"
)

const calendarComponent = "VCALENDAR"

// allowedChildren lists the sub-components each component may contain.
// Components missing from the map are leaves.
var allowedChildren = map[string][]string{
	calendarComponent: {"VEVENT", "VTODO", "VJOURNAL", "VFREEBUSY", "VTIMEZONE", "VALARM"},
	"VEVENT":          {"VALARM"},
	"VTODO":           {"VALARM"},
	"VTIMEZONE":       {"STANDARD", "DAYLIGHT"},
}

// Options controls how a Parser reads its input.
type Options struct {
	// Folded keeps RFC 5545 line folding: lines starting with a space or
	// tab continue the previous line. When false every line is trimmed on
	// its own, which suits hand-typed or indented input.
	Folded bool

	// Strict additionally runs each structurally valid document through
	// golang-ical and reports its error as the document's failure.
	Strict bool
}

// ParseError describes why one top-level document could not be parsed.
type ParseError struct {
	Msg  string
	Line int        // line where the failure was detected
	Span value.Span // the failing document only
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
	}
	return e.Msg
}

// Parser yields one result per top-level document found in its input.
// It is lazy, reads its input exactly once and is not safe for concurrent
// use.
type Parser struct {
	lr   *lineReader
	opts Options
	done bool
}

// NewParser returns a Parser reading from r.
func NewParser(r io.Reader, opts Options) *Parser {
	return &Parser{
		lr:   newLineReader(r, opts.Folded),
		opts: opts,
	}
}

// component is the untyped tree a document is read into before it is
// mapped onto model types.
type component struct {
	name     string
	props    []model.Property
	children []*component
}

// docState tracks the extent of the document being read.
type docState struct {
	start int
	end   int
	raw   strings.Builder
}

func (d *docState) take(ll logicalLine) {
	d.end = ll.end
	d.raw.WriteString(ll.text)
	d.raw.WriteString("\r\n")
}

// Next parses the next document. ok is false once the input is exhausted;
// otherwise exactly one of cal and perr is non-nil.
func (p *Parser) Next() (cal *model.Calendar, perr *ParseError, ok bool) {
	if p.done {
		return nil, nil, false
	}

	first, found := p.lr.next()
	if !found {
		p.done = true
		if p.lr.err != nil {
			return nil, &ParseError{Msg: fmt.Sprintf("read input: %v", p.lr.err)}, true
		}
		return nil, nil, false
	}

	doc := &docState{start: first.start, end: first.end}
	root, err := p.readDocument(doc, first)
	if err != nil {
		p.resync(doc)
		err.Span = value.Span{Start: doc.start, End: doc.end}
		return nil, err, true
	}

	if p.opts.Strict {
		if serr := validateStrict(doc.raw.String()); serr != nil {
			// golang-ical numbers lines from the start of the document.
			return nil, &ParseError{
				Msg:  serr.Error(),
				Span: value.Span{Start: doc.start, End: doc.end},
			}, true
		}
	}

	return buildCalendar(root), nil, true
}

// All adapts the parser to a range-over-func sequence.
func (p *Parser) All() iter.Seq2[*model.Calendar, *ParseError] {
	return func(yield func(*model.Calendar, *ParseError) bool) {
		for {
			cal, perr, ok := p.Next()
			if !ok || !yield(cal, perr) {
				return
			}
		}
	}
}

func (p *Parser) readDocument(doc *docState, first logicalLine) (*component, *ParseError) {
	doc.take(first)
	prop, err := parseContentLine(first.text)
	if err != nil {
		return nil, &ParseError{Msg: err.Error(), Line: first.num}
	}
	if prop.Name != "BEGIN" || componentName(prop) != calendarComponent {
		return nil, &ParseError{
			Msg:  fmt.Sprintf("expected BEGIN:VCALENDAR, found %q", first.text),
			Line: first.num,
		}
	}
	return p.readComponent(doc, calendarComponent, first.num)
}

// readComponent consumes lines up to and including END:name.
func (p *Parser) readComponent(doc *docState, name string, beginLine int) (*component, *ParseError) {
	c := &component{name: name}
	for {
		ll, ok := p.lr.next()
		if !ok {
			return nil, &ParseError{
				Msg:  fmt.Sprintf("unexpected end of input inside %s opened on line %d", name, beginLine),
				Line: beginLine,
			}
		}

		prop, err := parseContentLine(ll.text)
		if err != nil {
			doc.take(ll)
			return nil, &ParseError{Msg: err.Error(), Line: ll.num}
		}

		switch prop.Name {
		case "BEGIN":
			child := componentName(prop)
			if child == calendarComponent {
				// A new document starts here; leave it for the next call.
				p.lr.unread(ll)
				return nil, &ParseError{
					Msg:  fmt.Sprintf("missing END:%s before line %d", name, ll.num),
					Line: ll.num,
				}
			}
			doc.take(ll)
			if !slices.Contains(allowedChildren[name], child) {
				return nil, &ParseError{
					Msg:  fmt.Sprintf("unexpected component %q inside %s", child, name),
					Line: ll.num,
				}
			}
			sub, perr := p.readComponent(doc, child, ll.num)
			if perr != nil {
				return nil, perr
			}
			c.children = append(c.children, sub)
		case "END":
			doc.take(ll)
			if got := componentName(prop); got != name {
				return nil, &ParseError{
					Msg:  fmt.Sprintf("END:%s does not close %s opened on line %d", got, name, beginLine),
					Line: ll.num,
				}
			}
			return c, nil
		default:
			doc.take(ll)
			c.props = append(c.props, prop)
		}
	}
}

// resync skips input up to the next BEGIN:VCALENDAR line so that the
// following document can be parsed on its own.
func (p *Parser) resync(doc *docState) {
	for {
		ll, ok := p.lr.next()
		if !ok {
			return
		}
		if isCalendarBegin(ll.text) {
			p.lr.unread(ll)
			return
		}
		doc.end = ll.end
	}
}

func isCalendarBegin(line string) bool {
	prop, err := parseContentLine(line)
	return err == nil && prop.Name == "BEGIN" && componentName(prop) == calendarComponent
}

func componentName(prop model.Property) string {
	if prop.Value == nil {
		return ""
	}
	return strings.ToUpper(strings.TrimSpace(*prop.Value))
}

func buildCalendar(root *component) *model.Calendar {
	cal := &model.Calendar{
		Properties: props(root),
		Events:     []model.Event{},
		Alarms:     []model.Alarm{},
		Todos:      []model.Todo{},
		Journals:   []model.Journal{},
		FreeBusys:  []model.FreeBusy{},
		TimeZones:  []model.TimeZone{},
	}
	for _, c := range root.children {
		switch c.name {
		case "VEVENT":
			cal.Events = append(cal.Events, model.Event{Properties: props(c), Alarms: alarms(c)})
		case "VTODO":
			cal.Todos = append(cal.Todos, model.Todo{Properties: props(c), Alarms: alarms(c)})
		case "VALARM":
			cal.Alarms = append(cal.Alarms, model.Alarm{Properties: props(c)})
		case "VJOURNAL":
			cal.Journals = append(cal.Journals, model.Journal{Properties: props(c)})
		case "VFREEBUSY":
			cal.FreeBusys = append(cal.FreeBusys, model.FreeBusy{Properties: props(c)})
		case "VTIMEZONE":
			tz := model.TimeZone{Properties: props(c), Transitions: []model.Transition{}}
			for _, t := range c.children {
				tz.Transitions = append(tz.Transitions, model.Transition{Properties: props(t)})
			}
			cal.TimeZones = append(cal.TimeZones, tz)
		}
	}
	return cal
}

func props(c *component) []model.Property {
	if c.props == nil {
		return []model.Property{}
	}
	return c.props
}

func alarms(c *component) []model.Alarm {
	out := make([]model.Alarm, 0, len(c.children))
	for _, a := range c.children {
		out = append(out, model.Alarm{Properties: props(a)})
	}
	return out
}
