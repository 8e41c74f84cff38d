package dataset

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// ListingSource supplies raw listings to the training pipeline. The scraper
// database is the production source; the CSV source exists for offline runs
// and fixtures.
type ListingSource interface {
	FetchAll(ctx context.Context) ([]RawListing, error)
}

// listingsQuery pulls the columns the pipeline consumes from the scraper's
// listings table.
const listingsQuery = `
	SELECT
		id,
		divisa,
		precio,
		"desc",
		tipo,
		comuna,
		superficie_total,
		superficie_util,
		dormitorios,
		banos,
		estacionamientos,
		antiguedad,
		latitud,
		longitud
	FROM listings
`

// SQLListingSource reads raw listings from the scraper database.
type SQLListingSource struct {
	db *sqlx.DB
}

// OpenSQLListingSource connects to the scraper database. The connection is
// verified before returning.
func OpenSQLListingSource(dsn string) (*SQLListingSource, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to listings database: %w", err)
	}
	return &SQLListingSource{db: db}, nil
}

// FetchAll loads every listing row.
func (s *SQLListingSource) FetchAll(ctx context.Context) ([]RawListing, error) {
	var rows []RawListing
	if err := s.db.SelectContext(ctx, &rows, listingsQuery); err != nil {
		return nil, fmt.Errorf("failed to query listings: %w", err)
	}
	return rows, nil
}

// Close releases the database connection.
func (s *SQLListingSource) Close() error {
	return s.db.Close()
}

// CSVListingSource reads raw listings from a CSV extract with a header row
// matching the listings table column names.
type CSVListingSource struct {
	path string
}

// NewCSVListingSource builds a source over the given file.
func NewCSVListingSource(path string) *CSVListingSource {
	return &CSVListingSource{path: path}
}

// FetchAll parses the whole file. Empty cells become NULLs, matching what
// the database driver would report.
func (s *CSVListingSource) FetchAll(_ context.Context) ([]RawListing, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open listings file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read listings header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, col := range header {
		idx[col] = i
	}

	var rows []RawListing
	line := 1
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read listings row %d: %w", line, err)
		}
		line++

		cell := func(col string) string {
			i, ok := idx[col]
			if !ok || i >= len(rec) {
				return ""
			}
			return rec[i]
		}

		row := RawListing{
			Currency:    nullString(cell("divisa")),
			Description: nullString(cell("desc")),
			Type:        nullString(cell("tipo")),
			Comuna:      nullString(cell("comuna")),
			TotalArea:   nullString(cell("superficie_total")),
			UsableArea:  nullString(cell("superficie_util")),
			Bedrooms:    nullString(cell("dormitorios")),
			Bathrooms:   nullString(cell("banos")),
			Parking:     nullString(cell("estacionamientos")),
			Age:         nullString(cell("antiguedad")),
		}
		if v, err := strconv.ParseInt(cell("id"), 10, 64); err == nil {
			row.ID = v
		}
		row.Price = nullFloatFromString(cell("precio"))
		row.Lat = nullFloatFromString(cell("latitud"))
		row.Lon = nullFloatFromString(cell("longitud"))

		rows = append(rows, row)
	}

	return rows, nil
}
