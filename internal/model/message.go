package model

import "time"

// MaxContentLength is the largest message body the pipeline accepts,
// counted in runes.
const MaxContentLength = 5000

// Message is a single inbound chat message. It is constructed once by the
// caller and never mutated; only Content is required.
type Message struct {
	Timestamp   time.Time
	Content     string
	SenderName  string
	SenderPhone string
}
