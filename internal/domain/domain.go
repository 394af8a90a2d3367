// Package domain holds the event bot's core records and sentinel errors.
package domain

import (
	"errors"
	"time"
)

var (
	// ErrNotFound reports a missing tour, roster record or notification.
	ErrNotFound = errors.New("not found")
	// ErrNotAvailable reports a tour that is unknown or has no free places left.
	ErrNotAvailable = errors.New("tour not available")
	// ErrAlreadyBooked reports a second booking attempt by the same user.
	ErrAlreadyBooked = errors.New("already booked")
)

// Tour is a bookable excursion with a fixed seat capacity.
type Tour struct {
	Name             string `db:"name" bson:"name" yaml:"name"`
	Description      string `db:"description" bson:"description" yaml:"description"`
	FreePlaces       int    `db:"free_places" bson:"free_places" yaml:"free_places"`
	RequiresPassport bool   `db:"requires_passport" bson:"requires_passport" yaml:"requires_passport"`
}

// Available reports whether the tour still has a free place.
func (t Tour) Available() bool {
	return t.FreePlaces > 0
}

// Length limits of the user-entered booking fields. They match the validate tags of Participant.
const (
	MaxNameLen     = 256
	MaxPhoneLen    = 64
	MaxPassportLen = 256
)

// Participant is a tour booking. There is at most one per user.
type Participant struct {
	UserID       int64     `db:"user_id" bson:"user_id" validate:"required,gt=0"`
	Tour         string    `db:"tour" bson:"tour" validate:"required"`
	UserName     string    `db:"user_name" bson:"user_name" validate:"required,max=256"`
	UserPhone    string    `db:"user_phone" bson:"user_phone" validate:"required,max=64"`
	UserPassport *string   `db:"user_passport" bson:"user_passport,omitempty" validate:"omitempty,max=256"`
	CreatedAt    time.Time `db:"created_at" bson:"created_at"`
}

// User is a chat participant known to the bot, used as a broadcast target.
type User struct {
	ID        int64     `db:"id" bson:"id"`
	CreatedAt time.Time `db:"created_at" bson:"created_at"`
}

// Notification is a time-boxed announcement keyed by date and hour.
type Notification struct {
	Date string `db:"date" bson:"date" yaml:"date"`
	Hour int    `db:"hour" bson:"hour" yaml:"hour"`
	Text string `db:"text" bson:"text" yaml:"text"`
}

// Roster collections looked up by name prefix.
const (
	CollectionParticipants = "participants"
	CollectionTransfers    = "transfers"
)

// Record is a schema-free roster entry.
type Record map[string]string

// RosterKeyField returns the field holding the full name in collection.
func RosterKeyField(collection string) string {
	if collection == CollectionTransfers {
		return "full_name"
	}
	return "name"
}
