package freshservice

import (
	"bytes"
	"encoding/json"

	"lakesync.dev/lakesync/internal/reconcile"
)

// Requester is the subset of the FreshService requester resource lakesync reads.
type Requester struct {
	ID              int64                  `json:"id"`
	PrimaryEmail    string                 `json:"primary_email"`
	FirstName       string                 `json:"first_name"`
	LastName        string                 `json:"last_name"`
	JobTitle        *string                `json:"job_title"`
	DepartmentNames []string               `json:"department_names"`
	CustomFields    map[string]interface{} `json:"custom_fields"`
}

func (r Requester) record() reconcile.TargetRecord {
	var fields reconcile.CustomFields
	if r.CustomFields != nil {
		fields = reconcile.CustomFields(r.CustomFields)
	}
	return reconcile.TargetRecord{
		ID:              r.ID,
		PrimaryEmail:    r.PrimaryEmail,
		FirstName:       r.FirstName,
		LastName:        r.LastName,
		JobTitle:        r.JobTitle,
		DepartmentNames: r.DepartmentNames,
		CustomFields:    fields,
	}
}

// requestersPage is the body of GET /api/v2/requesters.
type requestersPage struct {
	Requesters []Requester `json:"requesters"`
	Total      int         `json:"total"`
}

// updateRequest is the body of PUT /api/v2/requesters/{id}.
type updateRequest struct {
	CustomFields map[string]interface{} `json:"custom_fields"`
}

func decodePage(data []byte) (*requestersPage, error) {
	var page requestersPage
	dec := json.NewDecoder(bytes.NewReader(data))
	// Keep numeric custom field values in their wire form for comparison.
	dec.UseNumber()
	if err := dec.Decode(&page); err != nil {
		return nil, err
	}
	return &page, nil
}
