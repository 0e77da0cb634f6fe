package store

import "time"

// Room is the durable record of a room. Participants is a derived value
// written back from the relay's in-memory membership.
type Room struct {
	RoomID       string    `json:"roomId" bson:"roomId"`
	Participants int       `json:"participants" bson:"participants"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
}
