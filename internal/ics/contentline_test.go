package ics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"icstable/internal/model"
)

func TestParseContentLine(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		want   model.Property
		noVal  bool
		errMsg string
	}{
		{
			name: "plain value",
			line: "SUMMARY:Team sync",
			want: model.Property{Name: "SUMMARY", Value: model.StringPtr("Team sync")},
		},
		{
			name: "lower case name",
			line: "summary:x",
			want: model.Property{Name: "SUMMARY", Value: model.StringPtr("x")},
		},
		{
			name: "value keeps colons and semicolons",
			line: "DESCRIPTION:a;b:c,d",
			want: model.Property{Name: "DESCRIPTION", Value: model.StringPtr("a;b:c,d")},
		},
		{
			name: "single parameter",
			line: "DTSTART;TZID=Europe/Berlin:20240929T144500",
			want: model.Property{
				Name:   "DTSTART",
				Value:  model.StringPtr("20240929T144500"),
				Params: []model.Param{{Name: "TZID", Values: []string{"Europe/Berlin"}}},
			},
		},
		{
			name: "repeated parameter keeps both values in order",
			line: "ATTENDEE;ROLE=CHAIR;CN=Ann;role=REQ-PARTICIPANT:mailto:ann@example.com",
			want: model.Property{
				Name:  "ATTENDEE",
				Value: model.StringPtr("mailto:ann@example.com"),
				Params: []model.Param{
					{Name: "ROLE", Values: []string{"CHAIR", "REQ-PARTICIPANT"}},
					{Name: "CN", Values: []string{"Ann"}},
				},
			},
		},
		{
			name: "quoted and multi valued parameters",
			line: `ATTENDEE;CN="Doe, John";DELEGATED-TO="mailto:a@x.org","mailto:b@x.org":mailto:john@x.org`,
			want: model.Property{
				Name:  "ATTENDEE",
				Value: model.StringPtr("mailto:john@x.org"),
				Params: []model.Param{
					{Name: "CN", Values: []string{"Doe, John"}},
					{Name: "DELEGATED-TO", Values: []string{"mailto:a@x.org", "mailto:b@x.org"}},
				},
			},
		},
		{
			name:  "empty value is absent",
			line:  "X-EMPTY:",
			want:  model.Property{Name: "X-EMPTY"},
			noVal: true,
		},
		{name: "missing colon", line: "this is not ical", errMsg: "missing ':'"},
		{name: "empty name", line: ":value", errMsg: "empty property name"},
		{name: "parameter without equals", line: "A;B:x", errMsg: "without '='"},
		{name: "unterminated quote", line: `A;B="x:y`, errMsg: "unterminated"},
		{name: "bad name character", line: "SUM MARY:x", errMsg: "invalid character"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseContentLine(tt.line)
			if tt.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			if tt.noVal {
				assert.Nil(t, got.Value)
				assert.Nil(t, got.Params)
			}
		})
	}
}
