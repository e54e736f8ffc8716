package reconcile

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func fullDesired() CustomFields {
	return DesiredFields(SourceRecord{
		EmployeeCode: "E100",
		Division:     StringPtr("Finance"),
		Team:         StringPtr("Payables"),
		Region:       StringPtr("West"),
		OfficeName:   StringPtr("Denver"),
	})
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "jane.doe@co.com", NormalizeEmail(" Jane.Doe@co.com "))
	assert.Equal(t, "", NormalizeEmail("   "))
}

func TestRender(t *testing.T) {
	s := "x"
	var nilStr *string
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"string", "Sales", "Sales"},
		{"string pointer", &s, "x"},
		{"nil string pointer", nilStr, ""},
		{"json number", json.Number("42"), "42"},
		{"float", float64(1234), "1234"},
		{"bool", true, "true"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Render(tt.in))
		})
	}
}

func TestDesiredFields_AbsentAttributesAreNil(t *testing.T) {
	got := DesiredFields(SourceRecord{EmployeeCode: "E1", Team: StringPtr("Ops")})

	assert.Len(t, got, len(OwnedFields))
	assert.Equal(t, "E1", got[FieldEmployeeID])
	assert.Equal(t, "Ops", got[FieldTeam])
	assert.Nil(t, got[FieldDivision])
	assert.Nil(t, got[FieldRegion])
	assert.Nil(t, got[FieldLocation])
}

func TestCompact_DropsNulls(t *testing.T) {
	got := CustomFields{"team": "Ops", "region": nil}.Compact()
	assert.Equal(t, CustomFields{"team": "Ops"}, got)
}

func TestNeedsUpdate(t *testing.T) {
	tests := []struct {
		name     string
		existing CustomFields
		desired  CustomFields
		want     bool
	}{
		{
			name:     "no custom fields and something to write",
			existing: nil,
			desired:  fullDesired(),
			want:     true,
		},
		{
			name:     "no custom fields and nothing to write",
			existing: nil,
			desired:  CustomFields{FieldEmployeeID: nil, FieldDivision: nil, FieldTeam: nil, FieldRegion: nil, FieldLocation: nil},
			want:     false,
		},
		{
			name: "identical",
			existing: CustomFields{
				FieldEmployeeID: "E100", FieldDivision: "Finance", FieldTeam: "Payables", FieldRegion: "West", FieldLocation: "Denver",
			},
			desired: fullDesired(),
			want:    false,
		},
		{
			name: "case-only difference",
			existing: CustomFields{
				FieldEmployeeID: "e100", FieldDivision: "finance", FieldTeam: "PAYABLES", FieldRegion: "west", FieldLocation: "denver",
			},
			desired: fullDesired(),
			want:    false,
		},
		{
			name: "value changed",
			existing: CustomFields{
				FieldEmployeeID: "E100", FieldDivision: "Sales", FieldTeam: "Payables", FieldRegion: "West", FieldLocation: "Denver",
			},
			desired: fullDesired(),
			want:    true,
		},
		{
			name:     "owned field missing with desired value",
			existing: CustomFields{FieldEmployeeID: "E100", FieldDivision: "Finance", FieldTeam: "Payables", FieldRegion: "West"},
			desired:  fullDesired(),
			want:     true,
		},
		{
			name:     "owned field missing with blank desired value",
			existing: CustomFields{FieldEmployeeID: "E1"},
			desired:  DesiredFields(SourceRecord{EmployeeCode: "E1"}),
			want:     false,
		},
		{
			name:     "present null equals absent desired",
			existing: CustomFields{FieldEmployeeID: "E1", FieldDivision: nil},
			desired:  DesiredFields(SourceRecord{EmployeeCode: "E1"}),
			want:     false,
		},
		{
			name:     "numeric employee id compares as text",
			existing: CustomFields{FieldEmployeeID: json.Number("1001")},
			desired:  DesiredFields(SourceRecord{EmployeeCode: "1001"}),
			want:     false,
		},
		{
			name: "foreign fields are ignored",
			existing: CustomFields{
				FieldEmployeeID: "E100", FieldDivision: "Finance", FieldTeam: "Payables", FieldRegion: "West", FieldLocation: "Denver",
				"cost_center": "CC-9", "vip": true,
			},
			desired: fullDesired(),
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NeedsUpdate(tt.existing, tt.desired))
		})
	}
}
