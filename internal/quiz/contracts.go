package quiz

import (
	"context"

	"github.com/kamass93/quiz-bot/internal/domain"
)

// Button is one inline control attached to an outbound message.
type Button struct {
	Label string
	// Data is the callback value reported back when the button is pressed.
	Data string
	// SwitchInline, when set, turns the button into a forward-to-chat control
	// instead of a callback.
	SwitchInline string
}

// Row builds one keyboard row.
func Row(buttons ...Button) []Button { return buttons }

// Callback data values understood by the state machine's controls. The
// messaging gateway routes inbound callback events using these.
const (
	CallbackCategoryPrefix = "cat:"
	CallbackAnswerPrefix   = "ans:"
	CallbackShareMenu      = "share"
	CallbackShareText      = "share:text"
	CallbackShareImage     = "share:image"
	CallbackLeaderboard    = "share:board"
)

// ShareKind selects one of the share sub-operations.
type ShareKind string

const (
	ShareText        ShareKind = "text"
	ShareImage       ShareKind = "image"
	ShareLeaderboard ShareKind = "leaderboard"
)

// Gateway abstracts the chat transport. Message delivery failures are
// recoverable by contract: the state machine logs and moves on.
// DeleteMessage is best-effort; the message may already be gone.
type Gateway interface {
	SendText(ctx context.Context, userID int64, text string, rows ...[]Button) (int, error)
	SendImage(ctx context.Context, userID int64, image []byte, caption string, rows ...[]Button) (int, error)
	EditText(ctx context.Context, userID int64, messageID int, text string) error
	EditButtons(ctx context.Context, userID int64, messageID int, rows ...[]Button) error
	DeleteMessage(ctx context.Context, userID int64, messageID int) error
}

// QuestionSource loads the question bank. Both calls are made fresh per
// navigation step; callers must not assume any caching.
type QuestionSource interface {
	Categories(ctx context.Context) ([]string, error)
	QuestionsFor(ctx context.Context, category string) ([]domain.Question, error)
}

// ScoreLedger is the append-only store of completed-attempt results.
// TopByCategory orders by descending score, ties broken by insertion order.
type ScoreLedger interface {
	Append(ctx context.Context, rec domain.ScoreRecord) error
	TopByCategory(ctx context.Context, category string, n int) ([]domain.ScoreRecord, error)
}

// CertificateRenderer produces the shareable score image. The artifact is
// single-use: it lives only in memory and is discarded after sending.
type CertificateRenderer interface {
	Render(username, category string, score, total int) ([]byte, error)
}
