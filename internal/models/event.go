package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Valid event categories. The category field is a fixed enum, not a
// free-form tag.
const (
	CategoryConference  = "conference"
	CategoryWorkshop    = "workshop"
	CategoryMeetup      = "meetup"
	CategorySocial      = "social"
	CategoryCompetition = "competition"
)

type Event struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Title       string    `gorm:"not null" json:"title"`
	Description string    `json:"description"`
	Date        time.Time `gorm:"not null;index" json:"date"`
	Location    string    `gorm:"not null" json:"location"`
	Category    string    `gorm:"not null" json:"category"`
	Image       string    `json:"image"`
	OrganizerID uuid.UUID `gorm:"type:uuid;not null;index" json:"organizerId"`
	Organizer   *User     `gorm:"foreignKey:OrganizerID" json:"organizer,omitempty"`
	Attendees   []User    `gorm:"many2many:event_attendees;" json:"attendees"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"-"`
}

func (event *Event) BeforeCreate(tx *gorm.DB) (err error) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	return
}

// Attendees always serializes as an array, never null.
func (event *Event) AfterFind(tx *gorm.DB) (err error) {
	if event.Attendees == nil {
		event.Attendees = []User{}
	}
	return
}
