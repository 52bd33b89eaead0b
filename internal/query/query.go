// Package query translates a requested event view (status filter plus an
// optional explicit date range) into a deterministic, ordered database
// query. All date arithmetic is in UTC.
package query

import (
	"time"

	"gorm.io/gorm"
)

const (
	StatusUpcoming = "upcoming"
	StatusPast     = "past"
)

// Params is a client's requested view of the event list. A Status other
// than "upcoming" or "past" applies no status constraint.
type Params struct {
	Status    string
	StartDate *time.Time
	EndDate   *time.Time
}

// Window is the effective date constraint after merging the status filter
// with the explicit range. The status filter derives a bound from "today";
// an explicit StartDate replaces the derived lower bound (last write wins),
// while an explicit EndDate is applied alongside the derived upper bound.
type Window struct {
	Lower          *time.Time // date >= Lower
	UpperExclusive *time.Time // date < UpperExclusive
	UpperInclusive *time.Time // date <= UpperInclusive
}

// Resolve computes the effective window at the given instant.
// "Today" is anchored at UTC midnight of now.
func (p Params) Resolve(now time.Time) Window {
	var w Window

	midnight := StartOfDayUTC(now)
	switch p.Status {
	case StatusUpcoming:
		w.Lower = &midnight
	case StatusPast:
		w.UpperExclusive = &midnight
	}

	if p.StartDate != nil {
		w.Lower = p.StartDate
	}
	if p.EndDate != nil {
		w.UpperInclusive = p.EndDate
	}

	return w
}

// Apply adds the effective window, the organizer join, and newest-first
// ordering to db. The returned query is read-only and may match nothing;
// an empty result is not an error.
func (p Params) Apply(db *gorm.DB, now time.Time) *gorm.DB {
	w := p.Resolve(now)

	if w.Lower != nil {
		db = db.Where("date >= ?", *w.Lower)
	}
	if w.UpperExclusive != nil {
		db = db.Where("date < ?", *w.UpperExclusive)
	}
	if w.UpperInclusive != nil {
		db = db.Where("date <= ?", *w.UpperInclusive)
	}

	return db.
		Preload("Organizer", OrganizerFields).
		Preload("Attendees").
		Order("created_at DESC, id DESC")
}

// OrganizerFields restricts a joined organizer to its public identity.
// The id is needed to map the association; name and email are the only
// fields exposed to clients.
func OrganizerFields(db *gorm.DB) *gorm.DB {
	return db.Select("id", "name", "email")
}

// StartOfDayUTC truncates t to UTC midnight. Upcoming/past classification
// is day-granular and anchored in UTC end to end.
func StartOfDayUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
