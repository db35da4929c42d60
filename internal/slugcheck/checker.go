// internal/slugcheck/checker.go
//
// Slug availability checks for the public catalogue collections.
//
// Context
// -------
// Editors pick slugs for artists, organizers, and venues by hand.  While they
// type, the admin UI asks whether the candidate is free.  The answer is a
// hint only: two editors may claim the same slug between check and save, and
// the unique index on each `slug` column rejects the loser (MySQL 1062).
//
// The table name is the one piece of user input that reaches SQL text, so it
// is resolved through a fixed allow-list and never interpolated directly.
//
// Notes
// -----
// • A rejected table never issues a query.
// • `exists` is always set on success; errors return no Result at all.
package slugcheck

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	"github.com/rolecultura/role/internal/metrics"
)

var (
	ErrMissingParams = errors.New("Table and slug parameters are required")
	ErrInvalidTable  = errors.New("Invalid table parameter")
)

// tables maps accepted request values to the SQL identifier.
var tables = map[string]string{
	"artists":    "artists",
	"organizers": "organizers",
	"venues":     "venues",
}

// Tables returns the accepted table names.
func Tables() []string { return []string{"artists", "organizers", "venues"} }

// Request is the input shared by the GET and POST forms.
type Request struct {
	Table     string `json:"table"     validate:"required,oneof=artists organizers venues"`
	Slug      string `json:"slug"      validate:"required"`
	ExcludeID string `json:"excludeId"`
}

// Result is the 200 body.
type Result struct {
	Exists    bool   `json:"exists"`
	Available bool   `json:"available"`
	Slug      string `json:"slug"`
	Table     string `json:"table"`
}

// Checker answers availability questions against the content database.
type Checker struct {
	db       *sqlx.DB
	validate *validator.Validate
}

// New returns a Checker over db.
func New(db *sqlx.DB) *Checker {
	return &Checker{db: db, validate: validator.New()}
}

// Validate reports ErrMissingParams or ErrInvalidTable for bad input.
// Missing fields win over a bad table name.
func (c *Checker) Validate(req Request) error {
	err := c.validate.Struct(req)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return err
	}
	for _, fe := range ves {
		if fe.Tag() == "required" {
			return ErrMissingParams
		}
	}
	return ErrInvalidTable
}

// Check looks up at most one row with the exact slug, ignoring ExcludeID.
func (c *Checker) Check(ctx context.Context, req Request) (*Result, error) {
	if err := c.Validate(req); err != nil {
		metrics.SlugCheckTotal.WithLabelValues("-", "invalid").Inc()
		return nil, err
	}
	table, ok := tables[req.Table]
	if !ok {
		return nil, ErrInvalidTable
	}

	q := `SELECT id FROM ` + table + ` WHERE slug = ?`
	args := []any{req.Slug}
	if req.ExcludeID != "" {
		q += ` AND id <> ?`
		args = append(args, req.ExcludeID)
	}
	q += ` LIMIT 1`

	var id string
	err := c.db.GetContext(ctx, &id, q, args...)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		metrics.SlugCheckTotal.WithLabelValues(table, "available").Inc()
		return &Result{Exists: false, Available: true, Slug: req.Slug, Table: table}, nil
	case err != nil:
		metrics.SlugCheckTotal.WithLabelValues(table, "error").Inc()
		return nil, fmt.Errorf("slug lookup in %s: %w", table, err)
	}
	metrics.SlugCheckTotal.WithLabelValues(table, "taken").Inc()
	return &Result{Exists: true, Available: false, Slug: req.Slug, Table: table}, nil
}
