package model

import "time"

// Response is a consumer's answer to a signal. This client constructs
// Response values (user-entered answers, skip-with-reason, and
// auto-submitted defaults) and hands them to the submission boundary;
// it never stores them locally.
type Response struct {
	// ID is the unique identifier for this response.
	ID string `json:"id"`

	// SignalID links the response to its signal.
	SignalID string `json:"signal_id"`

	// ConsumerEmail identifies the answering consumer.
	ConsumerEmail string `json:"consumer_email"`

	// Response is the answer text. For default submissions this is the
	// signal's DefaultResponse.
	Response string `json:"response"`

	// SubmittedAt is when the response was produced on the client.
	SubmittedAt time.Time `json:"submitted_at"`

	// IsDefault marks responses not typed by the consumer: auto-submits
	// and skip-with-reason both record the default answer.
	IsDefault bool `json:"is_default"`

	// SkipReason carries the user's skip explanation, or the
	// auto-submit cause for default submissions.
	SkipReason string `json:"skip_reason,omitempty"`
}

// Draft is in-progress response text for a signal, persisted on a slow
// cadence so a crash does not lose what the consumer has typed.
type Draft struct {
	// SignalID identifies which signal the text belongs to.
	SignalID string `json:"signal_id"`

	// Text is the unsubmitted response text.
	Text string `json:"text"`

	// SavedAt is when the draft was last persisted.
	SavedAt time.Time `json:"saved_at"`
}
