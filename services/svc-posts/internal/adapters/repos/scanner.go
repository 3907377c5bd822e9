//go:generate go tool github.com/maxbrunsfeld/counterfeiter/v6 -generate

package repos

import (
	"github.com/georgysavva/scany/v2/dbscan"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
)

//counterfeiter:generate -o ../../mocks/scanner.go . Scanner

// Scanner maps result rows onto db-tagged structs.
type Scanner interface {
	ScanAll(dst any, rows pgx.Rows) error
	ScanOne(dst any, rows pgx.Rows) error
	IsNotFound(err error) bool
}

var _ Scanner = (*PgxScanner)(nil)

// PgxScanner is the scany backed Scanner. Result columns without a matching
// struct field are ignored, so a projection may grow ahead of postRow.
type PgxScanner struct {
	api *pgxscan.API
}

func NewPgxScanner() *PgxScanner {
	return &PgxScanner{api: mustScanAPI(dbscan.WithAllowUnknownColumns(true))}
}

func mustScanAPI(opts ...dbscan.APIOption) *pgxscan.API {
	dbAPI, err := pgxscan.NewDBScanAPI(opts...)
	if err != nil {
		panic(err)
	}

	api, err := pgxscan.NewAPI(dbAPI)
	if err != nil {
		panic(err)
	}

	return api
}

func (s *PgxScanner) ScanAll(dst any, rows pgx.Rows) error { return s.api.ScanAll(dst, rows) }

func (s *PgxScanner) ScanOne(dst any, rows pgx.Rows) error { return s.api.ScanOne(dst, rows) }

func (*PgxScanner) IsNotFound(err error) bool {
	return pgxscan.NotFound(err)
}
