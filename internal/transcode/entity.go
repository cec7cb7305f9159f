package transcode

import (
	"icstable/internal/model"
	"icstable/internal/value"
)

// Column names are read by existing table consumers and must not change.
const (
	colProperties  = "properties"
	colEvents      = "events"
	colAlarms      = "alarms"
	colTodos       = "to-Dos"
	colJournals    = "journals"
	colFreeBusys   = "free-busys"
	colTimeZones   = "timezones"
	colTransitions = "transitions"
)

// CalendarToValue encodes a whole calendar. All seven columns are present
// even when their lists are empty.
func CalendarToValue(c *model.Calendar, span value.Span) value.Value {
	r := value.NewRecord(7)
	r.Push(colProperties, propertiesToValue(c.Properties, span))
	r.Push(colEvents, listOf(c.Events, span, EventToValue))
	r.Push(colAlarms, listOf(c.Alarms, span, AlarmToValue))
	r.Push(colTodos, listOf(c.Todos, span, TodoToValue))
	r.Push(colJournals, listOf(c.Journals, span, JournalToValue))
	r.Push(colFreeBusys, listOf(c.FreeBusys, span, FreeBusyToValue))
	r.Push(colTimeZones, listOf(c.TimeZones, span, TimeZoneToValue))
	return value.RecordOf(r, span)
}

func EventToValue(e model.Event, span value.Span) value.Value {
	r := value.NewRecord(2)
	r.Push(colProperties, propertiesToValue(e.Properties, span))
	r.Push(colAlarms, listOf(e.Alarms, span, AlarmToValue))
	return value.RecordOf(r, span)
}

func AlarmToValue(a model.Alarm, span value.Span) value.Value {
	return propertiesOnly(a.Properties, span)
}

func TodoToValue(t model.Todo, span value.Span) value.Value {
	r := value.NewRecord(2)
	r.Push(colProperties, propertiesToValue(t.Properties, span))
	r.Push(colAlarms, listOf(t.Alarms, span, AlarmToValue))
	return value.RecordOf(r, span)
}

func JournalToValue(j model.Journal, span value.Span) value.Value {
	return propertiesOnly(j.Properties, span)
}

func FreeBusyToValue(f model.FreeBusy, span value.Span) value.Value {
	return propertiesOnly(f.Properties, span)
}

func TimeZoneToValue(tz model.TimeZone, span value.Span) value.Value {
	r := value.NewRecord(2)
	r.Push(colProperties, propertiesToValue(tz.Properties, span))
	r.Push(colTransitions, listOf(tz.Transitions, span, TransitionToValue))
	return value.RecordOf(r, span)
}

func TransitionToValue(t model.Transition, span value.Span) value.Value {
	return propertiesOnly(t.Properties, span)
}

func propertiesOnly(props []model.Property, span value.Span) value.Value {
	r := value.NewRecord(1)
	r.Push(colProperties, propertiesToValue(props, span))
	return value.RecordOf(r, span)
}

// listOf maps enc over items. The result is an empty list, never nothing,
// when items is empty or nil.
func listOf[T any](items []T, span value.Span, enc func(T, value.Span) value.Value) value.Value {
	vals := make([]value.Value, 0, len(items))
	for _, it := range items {
		vals = append(vals, enc(it, span))
	}
	return value.List(vals, span)
}
