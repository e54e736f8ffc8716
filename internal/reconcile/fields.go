package reconcile

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Custom fields owned by lakesync. Nothing outside this set is ever written.
const (
	FieldEmployeeID = "employee_id"
	FieldDivision   = "division"
	FieldTeam       = "team"
	FieldRegion     = "region"
	FieldLocation   = "location"
)

// OwnedFields lists the owned custom fields in evaluation order.
var OwnedFields = []string{
	FieldEmployeeID,
	FieldDivision,
	FieldTeam,
	FieldRegion,
	FieldLocation,
}

// CustomFields maps a custom-field name to a scalar value.
//
// A missing key is absent; a key holding nil is present-but-null. Values are
// otherwise string, json.Number, float64 or bool, as decoded from the API.
type CustomFields map[string]any

// Render returns the comparison form of a value. Absent and null both render
// as the empty string.
func Render(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case *string:
		if val == nil {
			return ""
		}
		return *val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(val, 10)
	case int:
		return strconv.Itoa(val)
	case bool:
		return strconv.FormatBool(val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// Compact returns a copy without null values, i.e. the wire payload.
func (f CustomFields) Compact() CustomFields {
	out := make(CustomFields, len(f))
	for k, v := range f {
		if v == nil {
			continue
		}
		out[k] = v
	}
	return out
}

// DesiredFields builds the owned field set for a matched source record.
func DesiredFields(src SourceRecord) CustomFields {
	return CustomFields{
		FieldEmployeeID: src.EmployeeCode,
		FieldDivision:   optional(src.Division),
		FieldTeam:       optional(src.Team),
		FieldRegion:     optional(src.Region),
		FieldLocation:   optional(src.OfficeName),
	}
}

// optional keeps a nil pointer from becoming a non-nil interface value.
func optional(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// NeedsUpdate decides whether desired differs from what the requester holds.
//
// Only the owned fields are inspected. Comparison is on rendered strings and
// ignores case. A field missing on the requester only counts as a difference
// when the desired value is non-blank.
func NeedsUpdate(existing, desired CustomFields) bool {
	if existing == nil {
		for _, name := range OwnedFields {
			if v, ok := desired[name]; ok && v != nil {
				return true
			}
		}
		return false
	}

	for _, name := range OwnedFields {
		want := Render(desired[name])
		have, ok := existing[name]
		if !ok {
			if strings.TrimSpace(want) != "" {
				return true
			}
			continue
		}
		if !strings.EqualFold(Render(have), want) {
			return true
		}
	}
	return false
}
