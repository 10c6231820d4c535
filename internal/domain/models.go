package domain

import "time"

// Question is one quiz question as loaded from the question bank.
// Values are immutable once loaded.
type Question struct {
	Category string
	Text     string
	Options  []string
	Answer   string
	// ImageRef optionally points at an illustration sent before the question text.
	ImageRef string
}

// Session holds the transient state of one quiz attempt. It is keyed by the
// user identifier and owned exclusively by the quiz service; all mutation
// happens under that user's transition lock.
type Session struct {
	UserID   int64
	Username string
	Category string

	// Questions is the shuffled, capped sample fixed at category selection.
	Questions []Question
	Current   int
	Score     int

	// CorrectAnswer is the accepted answer for the question currently
	// awaiting a response. It is overwritten each round and cleared on
	// completion.
	CorrectAnswer string

	// Pending tracks outbound message IDs cleaned up before the next round.
	Pending []int

	// PromptMsg is the category chooser message, edited into the
	// confirmation once a category is picked.
	PromptMsg int
	// ShareMsg is the completion message carrying the share controls.
	ShareMsg int

	// Done marks a completed attempt. The session stays in memory so the
	// share actions keep working, but no further answers are accepted.
	Done bool
}

// ScoreRecord is one persisted result of a completed quiz attempt.
// Records are append-only; nothing ever mutates or deletes them.
type ScoreRecord struct {
	UserID      int64
	Username    string
	Category    string
	Score       int
	Total       int
	CompletedAt time.Time
}
