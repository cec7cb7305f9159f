package model

// Calendar is one parsed VCALENDAR document. Every list keeps the order in
// which the parser met its elements.
type Calendar struct {
	Properties []Property
	Events     []Event
	Alarms     []Alarm
	Todos      []Todo
	Journals   []Journal
	FreeBusys  []FreeBusy
	TimeZones  []TimeZone
}

// Event is a VEVENT with its nested VALARMs.
type Event struct {
	Properties []Property
	Alarms     []Alarm
}

// Alarm is a VALARM. It appears under a calendar, an event or a to-do.
type Alarm struct {
	Properties []Property
}

// Todo is a VTODO with its nested VALARMs.
type Todo struct {
	Properties []Property
	Alarms     []Alarm
}

type Journal struct {
	Properties []Property
}

type FreeBusy struct {
	Properties []Property
}

// TimeZone is a VTIMEZONE; its STANDARD and DAYLIGHT sub-components are
// kept together as transitions in source order.
type TimeZone struct {
	Properties  []Property
	Transitions []Transition
}

// Transition is a STANDARD or DAYLIGHT block inside a VTIMEZONE.
type Transition struct {
	Properties []Property
}

// Property is a single content line.
//
// Value is nil when the line carried nothing after the colon. Params is nil
// when the line had no parameters at all.
type Property struct {
	Name   string
	Value  *string
	Params []Param
}

// Param is a property parameter. Values holds every value given for the
// name, in encounter order, including repeats of the same parameter.
type Param struct {
	Name   string
	Values []string
}

// StringPtr is a small helper for building properties by hand.
func StringPtr(s string) *string {
	return &s
}
