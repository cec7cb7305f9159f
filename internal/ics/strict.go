package ics

import (
	"fmt"
	"strings"

	ical "github.com/arran4/golang-ical"
)

// validateStrict re-reads one document with golang-ical, which applies
// its own grammar checks on top of the structural ones done here.
func validateStrict(doc string) error {
	cal, err := ical.ParseCalendar(strings.NewReader(doc))
	if err != nil {
		return fmt.Errorf("strict: %w", err)
	}
	if cal == nil {
		return fmt.Errorf("strict: no calendar produced")
	}
	return nil
}
