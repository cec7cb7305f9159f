package ics

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"icstable/internal/model"
	"icstable/internal/value"
)

type result struct {
	cal  *model.Calendar
	perr *ParseError
}

func parseAll(t *testing.T, input string, opts Options) []result {
	t.Helper()
	var out []result
	for cal, perr := range NewParser(strings.NewReader(input), opts).All() {
		out = append(out, result{cal: cal, perr: perr})
	}
	return out
}

const fullCalendar = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//icstable//test//EN
BEGIN:VTIMEZONE
TZID:Europe/Berlin
BEGIN:STANDARD
TZOFFSETTO:+0100
END:STANDARD
BEGIN:DAYLIGHT
TZOFFSETTO:+0200
END:DAYLIGHT
END:VTIMEZONE
BEGIN:VEVENT
UID:event-1
SUMMARY:Planning
BEGIN:VALARM
ACTION:DISPLAY
TRIGGER:-PT15M
END:VALARM
END:VEVENT
BEGIN:VEVENT
UID:event-2
END:VEVENT
BEGIN:VTODO
UID:todo-1
BEGIN:VALARM
ACTION:AUDIO
END:VALARM
END:VTODO
BEGIN:VJOURNAL
UID:journal-1
END:VJOURNAL
BEGIN:VFREEBUSY
FREEBUSY:19970308T160000Z/PT8H30M
END:VFREEBUSY
BEGIN:VALARM
ACTION:EMAIL
END:VALARM
END:VCALENDAR
`

func TestParserMinimalCalendar(t *testing.T) {
	got := parseAll(t, "BEGIN:VCALENDAR\nEND:VCALENDAR", Options{})
	require.Len(t, got, 1)
	require.Nil(t, got[0].perr)

	cal := got[0].cal
	assert.NotNil(t, cal.Properties)
	assert.Empty(t, cal.Properties)
	assert.NotNil(t, cal.Events)
	assert.Empty(t, cal.Events)
	assert.NotNil(t, cal.TimeZones)
	assert.Empty(t, cal.TimeZones)
}

func TestParserIndentedInputIsTrimmed(t *testing.T) {
	got := parseAll(t, "BEGIN:VCALENDAR\n            END:VCALENDAR", Options{})
	require.Len(t, got, 1)
	assert.Nil(t, got[0].perr)
	assert.NotNil(t, got[0].cal)
}

func TestParserFullTree(t *testing.T) {
	got := parseAll(t, fullCalendar, Options{})
	require.Len(t, got, 1)
	require.Nil(t, got[0].perr)
	cal := got[0].cal

	require.Len(t, cal.Properties, 2)
	assert.Equal(t, "VERSION", cal.Properties[0].Name)
	assert.Equal(t, "PRODID", cal.Properties[1].Name)

	require.Len(t, cal.Events, 2)
	assert.Equal(t, "event-1", *cal.Events[0].Properties[0].Value)
	assert.Equal(t, "event-2", *cal.Events[1].Properties[0].Value)
	require.Len(t, cal.Events[0].Alarms, 1)
	assert.Len(t, cal.Events[0].Alarms[0].Properties, 2)
	assert.Empty(t, cal.Events[1].Alarms)

	require.Len(t, cal.Todos, 1)
	require.Len(t, cal.Todos[0].Alarms, 1)
	assert.Equal(t, "AUDIO", *cal.Todos[0].Alarms[0].Properties[0].Value)

	assert.Len(t, cal.Journals, 1)
	assert.Len(t, cal.FreeBusys, 1)

	require.Len(t, cal.Alarms, 1)
	assert.Equal(t, "EMAIL", *cal.Alarms[0].Properties[0].Value)

	require.Len(t, cal.TimeZones, 1)
	tz := cal.TimeZones[0]
	require.Len(t, tz.Transitions, 2)
	assert.Equal(t, "+0100", *tz.Transitions[0].Properties[0].Value)
	assert.Equal(t, "+0200", *tz.Transitions[1].Properties[0].Value)
}

func TestParserTrailingGarbageIsIsolated(t *testing.T) {
	input := "BEGIN:VCALENDAR\nEND:VCALENDAR\nfoo bar\n"
	got := parseAll(t, input, Options{})
	require.Len(t, got, 2)

	assert.NotNil(t, got[0].cal)
	assert.Nil(t, got[0].perr)

	require.NotNil(t, got[1].perr)
	assert.Nil(t, got[1].cal)
	assert.Equal(t, 3, got[1].perr.Line)
	assert.Equal(t, value.Span{Start: 30, End: 38}, got[1].perr.Span)
	assert.Equal(t, "foo bar\n", input[got[1].perr.Span.Start:got[1].perr.Span.End])
}

func TestParserFailureDoesNotStopLaterDocuments(t *testing.T) {
	docs := []string{
		"BEGIN:VCALENDAR\nX-ID:1\nEND:VCALENDAR\n",
		"BEGIN:VCALENDAR\nBEGIN:VFOO\nEND:VFOO\nEND:VCALENDAR\n",
		"BEGIN:VCALENDAR\nX-ID:3\nEND:VCALENDAR\n",
	}
	input := strings.Join(docs, "")

	got := parseAll(t, input, Options{})
	require.Len(t, got, 3)
	assert.Nil(t, got[0].perr)
	require.NotNil(t, got[1].perr)
	assert.Contains(t, got[1].perr.Msg, `"VFOO"`)
	assert.Nil(t, got[2].perr)
	assert.Equal(t, "3", *got[2].cal.Properties[0].Value)

	span := got[1].perr.Span
	assert.Equal(t, docs[1], input[span.Start:span.End])
}

func TestParserStructuralErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		msg   string
	}{
		{
			name:  "mismatched end",
			input: "BEGIN:VCALENDAR\nBEGIN:VEVENT\nEND:VCALENDAR\n",
			msg:   "does not close VEVENT",
		},
		{
			name:  "end of input",
			input: "BEGIN:VCALENDAR\nVERSION:2.0\n",
			msg:   "unexpected end of input",
		},
		{
			name:  "misplaced transition",
			input: "BEGIN:VCALENDAR\nBEGIN:STANDARD\nEND:STANDARD\nEND:VCALENDAR\n",
			msg:   "inside VCALENDAR",
		},
		{
			name:  "not a calendar",
			input: "BEGIN:VEVENT\nEND:VEVENT\n",
			msg:   "expected BEGIN:VCALENDAR",
		},
		{
			name:  "bad content line",
			input: "BEGIN:VCALENDAR\nno colon\nEND:VCALENDAR\n",
			msg:   "missing ':'",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseAll(t, tt.input, Options{})
			require.Len(t, got, 1)
			require.NotNil(t, got[0].perr)
			assert.Contains(t, got[0].perr.Msg, tt.msg)
		})
	}
}

func TestParserMissingEndStartsNextDocument(t *testing.T) {
	input := "BEGIN:VCALENDAR\nSUMMARY:x\nBEGIN:VCALENDAR\nEND:VCALENDAR\n"
	got := parseAll(t, input, Options{})
	require.Len(t, got, 2)
	require.NotNil(t, got[0].perr)
	assert.Contains(t, got[0].perr.Msg, "missing END:VCALENDAR")
	assert.Equal(t, "BEGIN:VCALENDAR\nSUMMARY:x\n", input[got[0].perr.Span.Start:got[0].perr.Span.End])
	assert.Nil(t, got[1].perr)
}

func TestParserUnfoldsFoldedLines(t *testing.T) {
	input := "BEGIN:VCALENDAR\r\nDESCRIPTION:hello\r\n  world\r\nEND:VCALENDAR\r\n"
	got := parseAll(t, input, Options{Folded: true})
	require.Len(t, got, 1)
	require.Nil(t, got[0].perr)
	require.Len(t, got[0].cal.Properties, 1)
	assert.Equal(t, "hello world", *got[0].cal.Properties[0].Value)
}

func TestParserIsSinglePass(t *testing.T) {
	p := NewParser(strings.NewReader("BEGIN:VCALENDAR\nEND:VCALENDAR\n"), Options{})
	n := 0
	for range p.All() {
		n++
	}
	assert.Equal(t, 1, n)

	_, _, ok := p.Next()
	assert.False(t, ok)
}

func TestParserEmptyInput(t *testing.T) {
	assert.Empty(t, parseAll(t, "", Options{}))
	assert.Empty(t, parseAll(t, "\n  \n", Options{}))
}

func TestStrictModeAcceptsValidCalendar(t *testing.T) {
	input := "BEGIN:VCALENDAR\nVERSION:2.0\nPRODID:-//icstable//test//EN\nEND:VCALENDAR\n"
	got := parseAll(t, input, Options{Strict: true})
	require.Len(t, got, 1)
	assert.Nil(t, got[0].perr)
}

// A control character in a parameter value passes the structural parser
// but not golang-ical.
const controlCharParam = "BEGIN:VCALENDAR\nX-A;P=a\x01b:v\nEND:VCALENDAR\nBEGIN:VCALENDAR\nEND:VCALENDAR\n"

func TestStrictModeRejectsDocumentAndContinues(t *testing.T) {
	lenient := parseAll(t, controlCharParam, Options{})
	require.Len(t, lenient, 2)
	assert.Nil(t, lenient[0].perr)
	assert.Nil(t, lenient[1].perr)

	got := parseAll(t, controlCharParam, Options{Strict: true})
	require.Len(t, got, 2)

	require.NotNil(t, got[0].perr)
	assert.Nil(t, got[0].cal)
	assert.Zero(t, got[0].perr.Line)
	assert.True(t, strings.HasPrefix(got[0].perr.Error(), "strict: "), got[0].perr.Error())
	assert.Equal(t, 0, got[0].perr.Span.Start)
	assert.True(t, strings.HasPrefix(controlCharParam[got[0].perr.Span.Start:got[0].perr.Span.End], "BEGIN:VCALENDAR\nX-A;"))

	assert.Nil(t, got[1].perr)
	assert.NotNil(t, got[1].cal)
}

func TestValidateStrictRejectsGarbage(t *testing.T) {
	err := validateStrict("NOT A CALENDAR\r\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "strict")
}
