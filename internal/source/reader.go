// Package source reads the active employee set from the source-of-truth
// PostgreSQL database.
//
// Table names are unqualified; point the connection's search_path at the
// schemas holding them (e.g. SOURCE_URL=...?search_path=sd,extenders).
//
// Import Path: lakesync.dev/lakesync/internal/source
package source

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"lakesync.dev/lakesync/internal/pkg/logger"
	"lakesync.dev/lakesync/internal/reconcile"
)

// DefaultQueryTimeout bounds the active-employee query.
const DefaultQueryTimeout = 2 * time.Minute

// activeEmployeesQuery returns one row per active employee, joined to the
// primary work assignment and its office.
const activeEmployeesQuery = `
SELECT
    e.employee_code,
    COALESCE(e.email, '')                                AS email,
    COALESCE(e.common_name, e.first_name, '')            AS first_name,
    COALESCE(e.preferred_last_name, e.last_name, '')     AS last_name,
    wa.job_title,
    d.dept_name                                          AS department_name,
    o.division_name,
    o.region_name,
    o.team_name,
    o.office_code,
    o.site_code                                          AS office_site_code,
    o.office_name,
    o.address1 || ' ' || o.address2 || ', ' || o.city || ', ' || o.state_abbrev || ' ' || o.postal_code
                                                         AS office_address
FROM employees e
LEFT JOIN departments d
       ON d.dept_code = e.primary_dept_code
JOIN work_assignments wa
       ON wa.employee_code = e.employee_code
      AND wa.is_primary
JOIN offices o
       ON o.office_code = wa.office_code
WHERE e.is_active
ORDER BY e.first_name, e.employee_code`

// Querier is the subset of pgxpool.Pool the reader needs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// employeeRow mirrors the query's column list.
type employeeRow struct {
	EmployeeCode   string  `db:"employee_code"`
	Email          string  `db:"email"`
	FirstName      string  `db:"first_name"`
	LastName       string  `db:"last_name"`
	JobTitle       *string `db:"job_title"`
	DepartmentName *string `db:"department_name"`
	DivisionName   *string `db:"division_name"`
	RegionName     *string `db:"region_name"`
	TeamName       *string `db:"team_name"`
	OfficeCode     *string `db:"office_code"`
	OfficeSiteCode *string `db:"office_site_code"`
	OfficeName     *string `db:"office_name"`
	OfficeAddress  *string `db:"office_address"`
}

func (r employeeRow) record() reconcile.SourceRecord {
	return reconcile.SourceRecord{
		EmployeeCode:   r.EmployeeCode,
		Email:          r.Email,
		FirstName:      r.FirstName,
		LastName:       r.LastName,
		JobTitle:       r.JobTitle,
		Department:     r.DepartmentName,
		Division:       r.DivisionName,
		Region:         r.RegionName,
		Team:           r.TeamName,
		OfficeCode:     r.OfficeCode,
		OfficeSiteCode: r.OfficeSiteCode,
		OfficeName:     r.OfficeName,
		OfficeAddress:  r.OfficeAddress,
	}
}

// Reader implements reconcile.SourceReader over a pgx connection pool.
type Reader struct {
	db      Querier
	timeout time.Duration
}

var _ reconcile.SourceReader = (*Reader)(nil)

// NewReader creates a Reader. Non-positive timeout falls back to DefaultQueryTimeout.
func NewReader(db Querier, timeout time.Duration) *Reader {
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	return &Reader{db: db, timeout: timeout}
}

// FetchActive returns every active employee. No partial result is returned on error.
func (r *Reader) FetchActive(ctx context.Context) ([]reconcile.SourceRecord, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("source reader is not initialized")
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.db.Query(ctx, activeEmployeesQuery)
	if err != nil {
		logger.Error("active employee query failed", zap.Error(err))
		return nil, fmt.Errorf("query active employees: %w", err)
	}

	employees, err := pgx.CollectRows(rows, pgx.RowToStructByName[employeeRow])
	if err != nil {
		logger.Error("active employee scan failed", zap.Error(err))
		return nil, fmt.Errorf("scan active employees: %w", err)
	}

	records := make([]reconcile.SourceRecord, 0, len(employees))
	for _, e := range employees {
		records = append(records, e.record())
	}

	logger.Info("retrieved active employees from source", zap.Int("count", len(records)))
	return records, nil
}
