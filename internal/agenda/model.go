// internal/agenda/model.go
//
// `agenda_item` row model and publish-lifecycle rules.
//
// Context
// -------
// An agenda item lives in one of two persisted states, `draft` and
// `published`.  “Scheduled” is not stored: it is a draft whose `publish_at`
// lies in the future.  The scheduler moves items between the two states when
// `publish_at` or `unpublish_at` has passed; editors may flip the status at
// any time.  Items are never hard-deleted; `deleted_at` hides them from every
// read path and from the scheduler.
//
// Schema reference: internal/database/migrations/000001_create_agenda_item.
//
// Notes
// -----
// • Nullable timestamps are `*time.Time`; callers must nil-check before use.
// • `UpdatedBy == nil` means the last mutation came from the scheduler.
// • The predicates in Due mirror the SQL in store.go; change both together.
package agenda

import (
	"errors"
	"time"

	"github.com/rolecultura/role/internal/slug"
)

// Status is the persisted lifecycle state.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

// Valid reports whether s is one of the persisted states.
func (s Status) Valid() bool {
	return s == StatusDraft || s == StatusPublished
}

// State is the editor-facing view of Status plus scheduling.
type State string

const (
	StateDraft     State = "draft"
	StateScheduled State = "scheduled"
	StatePublished State = "published"
)

// Direction names one scheduler sweep.
type Direction string

const (
	DirPublish   Direction = "publish"
	DirUnpublish Direction = "unpublish"
)

var (
	ErrNotFound      = errors.New("agenda item not found")
	ErrInvalidStatus = errors.New("invalid status")
	ErrInvalidSlug   = errors.New("invalid slug")
	ErrEmptyTitle    = errors.New("title is required")
	ErrBadSchedule   = errors.New("unpublish_at must be after publish_at")
	ErrSlugTaken     = errors.New("slug already in use")
)

// Item mirrors one row in `agenda_item`.
type Item struct {
	ID          string     `db:"id"           json:"id"`
	Slug        string     `db:"slug"         json:"slug"`
	Title       string     `db:"title"        json:"title"`
	City        string     `db:"city"         json:"city"`
	VenueID     *string    `db:"venue_id"     json:"venue_id,omitempty"`
	Description *string    `db:"description"  json:"description,omitempty"`
	StartsAt    *time.Time `db:"starts_at"    json:"starts_at,omitempty"`
	Status      Status     `db:"status"       json:"status"`
	PublishAt   *time.Time `db:"publish_at"   json:"publish_at,omitempty"`
	UnpublishAt *time.Time `db:"unpublish_at" json:"unpublish_at,omitempty"`
	DeletedAt   *time.Time `db:"deleted_at"   json:"deleted_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at"   json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"   json:"updated_at"`
	UpdatedBy   *string    `db:"updated_by"   json:"updated_by"`
}

// State derives the editor-facing state at now.
func (it *Item) State(now time.Time) State {
	switch {
	case it.Status == StatusPublished:
		return StatePublished
	case it.PublishAt != nil && it.PublishAt.After(now):
		return StateScheduled
	default:
		return StateDraft
	}
}

// Path is the public URL path of the item.
func (it *Item) Path() string { return slug.BuildPath("agenda", it.Slug) }

// Due reports which sweep, if any, would transition it at now.  At most one
// direction is ever returned, and an item that has just been transitioned is
// never due in the opposite direction at the same instant.
func (it *Item) Due(now time.Time) (Direction, bool) {
	if it.DeletedAt != nil {
		return "", false
	}
	switch it.Status {
	case StatusDraft:
		if notAfter(it.PublishAt, now) && !notAfter(it.UnpublishAt, now) {
			return DirPublish, true
		}
	case StatusPublished:
		if notAfter(it.UnpublishAt, now) {
			return DirUnpublish, true
		}
	}
	return "", false
}

// notAfter reports t != nil && t <= now.
func notAfter(t *time.Time, now time.Time) bool {
	return t != nil && !t.After(now)
}

// Draft is the editable content snapshot sent by autosave clients and used
// to create items.  Status is managed separately.  PublishAt is only read on
// insert; existing items are scheduled through PUT /api/agenda/{id}/schedule.
// An empty Slug is derived from the title on insert and left untouched on
// update.
type Draft struct {
	Title       string     `json:"title"`
	Slug        string     `json:"slug,omitempty"`
	City        string     `json:"city,omitempty"`
	VenueID     *string    `json:"venue_id,omitempty"`
	Description *string    `json:"description,omitempty"`
	StartsAt    *time.Time `json:"starts_at,omitempty"`
	PublishAt   *time.Time `json:"publish_at,omitempty"`
}

// normalize fills the slug from the title and validates the snapshot.
func (d *Draft) normalize() error {
	if err := d.validate(); err != nil {
		return err
	}
	if d.Slug == "" {
		d.Slug = slug.Make(d.Title)
	}
	if !slug.Valid(d.Slug) {
		return ErrInvalidSlug
	}
	return nil
}

// validate checks the title and, when present, the slug.
func (d *Draft) validate() error {
	if d.Title == "" {
		return ErrEmptyTitle
	}
	if d.Slug != "" && !slug.Valid(d.Slug) {
		return ErrInvalidSlug
	}
	return nil
}

// Schedule carries the two optional scheduling timestamps.
type Schedule struct {
	PublishAt   *time.Time `json:"publish_at"`
	UnpublishAt *time.Time `json:"unpublish_at"`
}

// Validate rejects windows that close before they open.
func (s Schedule) Validate() error {
	if s.PublishAt != nil && s.UnpublishAt != nil && !s.UnpublishAt.After(*s.PublishAt) {
		return ErrBadSchedule
	}
	return nil
}
