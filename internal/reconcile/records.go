// Package reconcile matches source-of-truth employee records to FreshService
// requesters and drives the minimal set of custom-field writes needed to keep
// the requesters' organisational metadata in line with the source.
//
// Import Path: lakesync.dev/lakesync/internal/reconcile
package reconcile

import (
	"context"
	"strings"
)

// SourceRecord is an active employee as held by the source database.
// Nil pointers are attributes the source does not carry for the employee.
type SourceRecord struct {
	EmployeeCode   string
	Email          string
	FirstName      string
	LastName       string
	JobTitle       *string
	Department     *string
	Division       *string
	Region         *string
	Team           *string
	OfficeCode     *string
	OfficeSiteCode *string
	OfficeName     *string
	OfficeAddress  *string
}

// TargetRecord is a requester in the FreshService directory.
type TargetRecord struct {
	ID              int64
	PrimaryEmail    string
	FirstName       string
	LastName        string
	JobTitle        *string
	DepartmentNames []string
	// CustomFields is nil when the requester carries no custom fields at all.
	CustomFields CustomFields
}

// SourceReader returns every active source record. Any error is fatal to the run.
type SourceReader interface {
	FetchActive(ctx context.Context) ([]SourceRecord, error)
}

// TargetDirectory reads and writes requesters.
type TargetDirectory interface {
	// FetchAll returns every requester, or an error if any page failed.
	FetchAll(ctx context.Context) ([]TargetRecord, error)
	// UpdateCustomFields reports whether the remote acknowledged the write.
	UpdateCustomFields(ctx context.Context, id int64, fields CustomFields) bool
}

// NormalizeEmail returns the join key for an address: trimmed and lower-cased.
// Blank addresses normalize to "" and never match.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// StringPtr returns nil for s == "" and &s otherwise.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
