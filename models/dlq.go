package models

import "time"

// DLQMessage is an event that could not be published or processed
type DLQMessage struct {
	ID           int       `json:"id"`
	MessageID    string    `json:"message_id"`
	Topic        string    `json:"topic"`
	Key          string    `json:"key"`
	Value        string    `json:"value"`
	ErrorMessage string    `json:"error_message"`
	RetryCount   int       `json:"retry_count"`
	MaxRetries   int       `json:"max_retries"`
	CreatedAt    time.Time `json:"created_at"`
}

type DLQStats struct {
	Total      int `json:"total_dlq_messages"`
	Unresolved int `json:"unresolved_messages"`
	Resolved   int `json:"resolved_messages"`
}
