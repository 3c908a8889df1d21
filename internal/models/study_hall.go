package models

import "time"

// StudyHall is a room of cabins. Students reference it by Name, not by ID.
type StudyHall struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Capacity    int       `db:"capacity" json:"capacity"`
	Location    string    `db:"location" json:"location"`
	Description *string   `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}
