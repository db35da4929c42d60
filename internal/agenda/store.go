// internal/agenda/store.go
//
// sqlx query helpers for the `agenda_item` table.
//
// Context
// -------
// Every read and write path excludes soft-deleted rows at SQL level so
// callers never need to filter.  Human mutations record the actor from
// context in `updated_by`; scheduler sweeps write NULL.
//
// Sweeps
// ------
// A sweep runs inside its own transaction:
//
//  1. SELECT id, slug of eligible rows … FOR UPDATE (locks them against a
//     concurrent editor for the few milliseconds the sweep takes).
//  2. One UPDATE … WHERE id IN (…) that re-asserts the source status.
//
// The second statement is the single bulk write; step 1 exists so the
// caller can log and publish the affected ids and slugs.  The two sweeps do
// not share a transaction.
//
// Notes
// -----
// • Column list matches the fields in `Item`; update both together.
// • The DSN must set clientFoundRows so an UPDATE that changes nothing
//   still reports the matched row (see database.WithPassword).
package agenda

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/rolecultura/role/internal/auth"
	"github.com/rolecultura/role/internal/idgen"
	"github.com/rolecultura/role/internal/message"
)

const columns = `id, slug, title, city, venue_id, description, starts_at, status,
               publish_at, unpublish_at, deleted_at, created_at, updated_at, updated_by`

// Store wraps the content database pool.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewStore returns a Store using the wall clock in UTC.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Create inserts d as a new draft and returns the stored row.
func (s *Store) Create(ctx context.Context, d Draft) (*Item, error) {
	if err := d.normalize(); err != nil {
		return nil, err
	}
	id, err := idgen.New(idgen.AgendaPrefix)
	if err != nil {
		return nil, err
	}
	now := s.now()
	it := &Item{
		ID:          id,
		Slug:        d.Slug,
		Title:       d.Title,
		City:        d.City,
		VenueID:     d.VenueID,
		Description: d.Description,
		StartsAt:    d.StartsAt,
		Status:      StatusDraft,
		PublishAt:   d.PublishAt,
		CreatedAt:   now,
		UpdatedAt:   now,
		UpdatedBy:   auth.ActorPtr(ctx),
	}

	const q = `
        INSERT INTO agenda_item
               (id, slug, title, city, venue_id, description, starts_at, status,
                publish_at, created_at, updated_at, updated_by)
        VALUES (:id, :slug, :title, :city, :venue_id, :description, :starts_at, :status,
                :publish_at, :created_at, :updated_at, :updated_by)`
	if _, err := s.db.NamedExecContext(ctx, q, it); err != nil {
		if isDuplicate(err) {
			return nil, ErrSlugTaken
		}
		return nil, fmt.Errorf("insert agenda item: %w", err)
	}
	return it, nil
}

// Get fetches one non-deleted item by id.
func (s *Store) Get(ctx context.Context, id string) (*Item, error) {
	q := `
        SELECT ` + columns + `
        FROM   agenda_item
        WHERE  id = ?
          AND  deleted_at IS NULL
        LIMIT  1`
	var it Item
	if err := s.db.GetContext(ctx, &it, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &it, nil
}

// SetStatus is the editor path for a manual status change.
func (s *Store) SetStatus(ctx context.Context, id string, st Status) error {
	if !st.Valid() {
		return ErrInvalidStatus
	}
	const q = `
        UPDATE agenda_item
        SET    status = ?, updated_at = ?, updated_by = ?
        WHERE  id = ?
          AND  deleted_at IS NULL`
	return s.execOne(ctx, q, st, s.now(), auth.ActorPtr(ctx), id)
}

// SetSchedule replaces both scheduling timestamps.  nil clears a field.
func (s *Store) SetSchedule(ctx context.Context, id string, sch Schedule) error {
	if err := sch.Validate(); err != nil {
		return err
	}
	const q = `
        UPDATE agenda_item
        SET    publish_at = ?, unpublish_at = ?, updated_at = ?, updated_by = ?
        WHERE  id = ?
          AND  deleted_at IS NULL`
	return s.execOne(ctx, q, sch.PublishAt, sch.UnpublishAt, s.now(), auth.ActorPtr(ctx), id)
}

// SoftDelete stamps deleted_at.  Deleting twice reports ErrNotFound.
func (s *Store) SoftDelete(ctx context.Context, id string) error {
	now := s.now()
	const q = `
        UPDATE agenda_item
        SET    deleted_at = ?, updated_at = ?, updated_by = ?
        WHERE  id = ?
          AND  deleted_at IS NULL`
	return s.execOne(ctx, q, now, now, auth.ActorPtr(ctx), id)
}

// SaveDraft is the autosave upsert: insert as draft when id is empty,
// otherwise overwrite the content fields in place (last writer wins).  On
// update an empty slug keeps the stored one, so retitling never moves a
// public URL, and PublishAt is ignored.  It returns the item id.
func (s *Store) SaveDraft(ctx context.Context, id string, d Draft) (string, error) {
	if id == "" {
		it, err := s.Create(ctx, d)
		if err != nil {
			return "", err
		}
		return it.ID, nil
	}
	if err := d.validate(); err != nil {
		return "", err
	}
	const q = `
        UPDATE agenda_item
        SET    slug = COALESCE(NULLIF(?, ''), slug), title = ?, city = ?, venue_id = ?, description = ?,
               starts_at = ?, updated_at = ?, updated_by = ?
        WHERE  id = ?
          AND  deleted_at IS NULL`
	err := s.execOne(ctx, q, d.Slug, d.Title, d.City, d.VenueID, d.Description,
		d.StartsAt, s.now(), auth.ActorPtr(ctx), id)
	if isDuplicate(err) {
		return "", ErrSlugTaken
	}
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) execOne(ctx context.Context, q string, args ...any) error {
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// isDuplicate recognises MySQL/MariaDB error 1062 (unique key violation).
// The unique index on slug is the real guarantee behind the slug checker.
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

/*──────────────────────────── sweeps ──────────────────────────────────────*/

const (
	selectDuePublish = `
        SELECT id, slug
        FROM   agenda_item
        WHERE  status = 'draft'
          AND  deleted_at IS NULL
          AND  publish_at <= ?
          AND  (unpublish_at IS NULL OR unpublish_at > ?)
        ORDER  BY id
        FOR UPDATE`

	selectDueUnpublish = `
        SELECT id, slug
        FROM   agenda_item
        WHERE  status = 'published'
          AND  deleted_at IS NULL
          AND  unpublish_at <= ?
        ORDER  BY id
        FOR UPDATE`

	updateSweep = `
        UPDATE agenda_item
        SET    status = ?, updated_at = ?, updated_by = NULL
        WHERE  id IN (?)
          AND  status = ?
          AND  deleted_at IS NULL`
)

// Sweep transitions every item due in direction dir at now and returns the
// affected ids and slugs.  Zero eligible rows is not an error and issues no
// UPDATE.
func (s *Store) Sweep(ctx context.Context, dir Direction, now time.Time) ([]message.Ref, error) {
	var (
		sel      string
		selArgs  []any
		from, to Status
	)
	switch dir {
	case DirPublish:
		sel, selArgs, from, to = selectDuePublish, []any{now, now}, StatusDraft, StatusPublished
	case DirUnpublish:
		sel, selArgs, from, to = selectDueUnpublish, []any{now}, StatusPublished, StatusDraft
	default:
		return nil, fmt.Errorf("unknown sweep direction %q", dir)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s sweep begin: %w", dir, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	var refs []message.Ref
	if err := tx.SelectContext(ctx, &refs, sel, selArgs...); err != nil {
		return nil, fmt.Errorf("%s sweep select: %w", dir, err)
	}
	if len(refs) == 0 {
		return nil, nil
	}

	ids := make([]string, len(refs))
	for i, r := range refs {
		ids[i] = r.ID
	}
	q, args, err := sqlx.In(updateSweep, to, now, ids, from)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("%s sweep update: %w", dir, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s sweep commit: %w", dir, err)
	}
	return refs, nil
}
