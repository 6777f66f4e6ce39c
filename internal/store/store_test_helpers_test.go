package store

import "time"

type widget struct {
	ID        string    `json:"id" dynamodbav:"id"`
	Name      string    `json:"name" dynamodbav:"name"`
	Count     int       `json:"count" dynamodbav:"count"`
	UpdatedAt time.Time `json:"updated_at" dynamodbav:"updated_at"`
}

var widgets = Table{Name: "widgets", Key: "id"}

var events = Table{Name: "events", Key: "event_id"}
