package quiz

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/kamass93/quiz-bot/internal/domain"
)

// Options tunes the state machine.
type Options struct {
	// MaxQuestions caps the sample taken from a category's pool (default 20).
	MaxQuestions int
	// AnswerDelay is the visual pacing pause between the answer feedback and
	// the next question. It suspends only the answering user's transition.
	AnswerDelay time.Duration
	// LeaderboardSize is the number of entries shown (default 10).
	LeaderboardSize int
	// ImageDir is the directory question image references resolve against.
	ImageDir string
	// BotName, when set, is appended to share texts as an invitation.
	BotName string
}

// Service is the quiz session state machine. It owns all per-user transient
// state and is the sole mutator of session data. Transitions for one user are
// serialized by a per-user lock; different users interleave freely.
//
// Collaborator failures never escape a transition: they are logged and turned
// into a short user-facing message.
type Service struct {
	gateway  Gateway
	source   QuestionSource
	ledger   ScoreLedger
	renderer CertificateRenderer
	opts     Options

	now func() time.Time

	rndMu sync.Mutex
	rnd   *rand.Rand

	mu    sync.Mutex
	slots map[int64]*slot
}

// slot pairs a session with the lock serializing that user's transitions.
type slot struct {
	mu   sync.Mutex
	sess *domain.Session
}

func NewService(gateway Gateway, source QuestionSource, ledger ScoreLedger, renderer CertificateRenderer, opts Options) *Service {
	if opts.MaxQuestions <= 0 {
		opts.MaxQuestions = 20
	}
	if opts.LeaderboardSize <= 0 {
		opts.LeaderboardSize = 10
	}
	return &Service{
		gateway:  gateway,
		source:   source,
		ledger:   ledger,
		renderer: renderer,
		opts:     opts,
		now:      time.Now,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
		slots:    make(map[int64]*slot),
	}
}

// WithClock replaces the timestamp source. Test-only.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// WithRand replaces the shuffle source. Test-only.
func (s *Service) WithRand(rnd *rand.Rand) *Service {
	s.rnd = rnd
	return s
}

// Begin starts a fresh quiz attempt for the user, replacing any previous one,
// and offers the category choice.
func (s *Service) Begin(ctx context.Context, userID int64, username string) {
	sl := s.slot(userID)
	sl.mu.Lock()
	defer sl.mu.Unlock()

	sl.sess = &domain.Session{UserID: userID, Username: username}

	categories, err := s.source.Categories(ctx)
	if err != nil {
		log.Printf("quiz: list categories for user %d: %v", userID, err)
		sl.sess = nil
		s.send(ctx, userID, "⚠️ The question bank is unavailable. Please try again later.")
		return
	}

	rows := make([][]Button, 0, len(categories))
	for _, cat := range categories {
		rows = append(rows, Row(Button{Label: "📚 " + title(cat), Data: CallbackCategoryPrefix + cat}))
	}
	id := s.send(ctx, userID, "👋 Welcome to the Quiz Bot!\n\nChoose a category:", rows...)
	sl.sess.PromptMsg = id
}

// ChooseCategory fixes the question sample for the attempt and presents the
// first question. An unknown or empty category aborts the attempt.
func (s *Service) ChooseCategory(ctx context.Context, userID int64, category string) {
	sl := s.slot(userID)
	sl.mu.Lock()
	defer sl.mu.Unlock()

	sess := sl.sess
	if sess == nil || sess.Done || len(sess.Questions) > 0 {
		s.send(ctx, userID, "⚠️ No quiz in progress. Send /start to begin.")
		return
	}

	pool, err := s.source.QuestionsFor(ctx, category)
	if err != nil {
		log.Printf("quiz: load questions for category %q: %v", category, err)
		sl.sess = nil
		s.editOrSend(ctx, userID, sess.PromptMsg, "⚠️ The question bank is unavailable. Please try again later.")
		return
	}
	if len(pool) == 0 {
		sl.sess = nil
		s.editOrSend(ctx, userID, sess.PromptMsg, "⚠️ No questions in this category!")
		return
	}

	sess.Category = category
	sess.Questions = s.sample(pool)
	sess.Score = 0
	sess.Current = 0
	sess.Pending = sess.Pending[:0]

	s.editOrSend(ctx, userID, sess.PromptMsg,
		fmt.Sprintf("📘 Category: %s\n\nAnswer the questions:", title(category)))
	s.presentNext(ctx, sl)
}

// Answer grades the selected option against the pending question, shows
// feedback, waits the pacing delay, and moves on.
func (s *Service) Answer(ctx context.Context, userID int64, option string) {
	sl := s.slot(userID)
	sl.mu.Lock()
	defer sl.mu.Unlock()

	sess := sl.sess
	if sess == nil || sess.Done || len(sess.Questions) == 0 || sess.Current >= len(sess.Questions) {
		s.send(ctx, userID, "⚠️ No quiz in progress. Send /start to begin.")
		return
	}

	var feedback string
	if option == sess.CorrectAnswer {
		sess.Score++
		feedback = "✅ *Correct!*"
	} else {
		feedback = fmt.Sprintf("❌ *Wrong!*\n\nThe answer was: %s", sess.CorrectAnswer)
	}
	if id := s.send(ctx, userID, feedback); id != 0 {
		sess.Pending = append(sess.Pending, id)
	}

	// Visual pacing. This suspends only the current user's transition; other
	// users' events run on their own goroutines.
	if s.opts.AnswerDelay > 0 {
		select {
		case <-time.After(s.opts.AnswerDelay):
		case <-ctx.Done():
			return
		}
	}

	sess.Current++
	s.presentNext(ctx, sl)
}

// Cancel discards the session without writing a score record.
func (s *Service) Cancel(ctx context.Context, userID int64) {
	sl := s.slot(userID)
	sl.mu.Lock()
	if sess := sl.sess; sess != nil {
		s.cleanup(ctx, sess)
		sl.sess = nil
	}
	sl.mu.Unlock()

	s.mu.Lock()
	delete(s.slots, userID)
	s.mu.Unlock()

	s.send(ctx, userID, "❌ Quiz cancelled.")
}

// ShareMenu swaps the completion message's controls for the share options.
func (s *Service) ShareMenu(ctx context.Context, userID int64) {
	sl := s.slot(userID)
	sl.mu.Lock()
	defer sl.mu.Unlock()

	sess := sl.sess
	if sess == nil || !sess.Done {
		s.send(ctx, userID, "⚠️ Finish a quiz first. Send /start to play.")
		return
	}

	rows := [][]Button{
		Row(Button{Label: "📤 Share as text", Data: CallbackShareText}),
		Row(Button{Label: "🖼 Share as image", Data: CallbackShareImage}),
		Row(Button{Label: "🏆 Show leaderboard", Data: CallbackLeaderboard}),
	}
	if sess.ShareMsg != 0 {
		err := s.gateway.EditButtons(ctx, userID, sess.ShareMsg, rows...)
		if err == nil {
			return
		}
		log.Printf("quiz: edit share controls for user %d: %v", userID, err)
	}
	s.send(ctx, userID, "Share your score:", rows...)
}

// Share performs one of the share sub-operations for a completed attempt.
func (s *Service) Share(ctx context.Context, userID int64, kind ShareKind) {
	sl := s.slot(userID)
	sl.mu.Lock()
	defer sl.mu.Unlock()

	sess := sl.sess
	if sess == nil || !sess.Done {
		s.send(ctx, userID, "⚠️ Finish a quiz first. Send /start to play.")
		return
	}

	switch kind {
	case ShareText:
		s.shareText(ctx, sess)
	case ShareImage:
		s.shareImage(ctx, sess)
	case ShareLeaderboard:
		s.shareLeaderboard(ctx, sess)
	default:
		log.Printf("quiz: unknown share kind %q from user %d", kind, userID)
	}
}

// Snapshot returns a copy of the user's session, if any. Intended for tests
// and diagnostics; the copy shares no mutable state with the live session.
func (s *Service) Snapshot(userID int64) (domain.Session, bool) {
	s.mu.Lock()
	sl, ok := s.slots[userID]
	s.mu.Unlock()
	if !ok {
		return domain.Session{}, false
	}

	sl.mu.Lock()
	defer sl.mu.Unlock()
	if sl.sess == nil {
		return domain.Session{}, false
	}
	cp := *sl.sess
	cp.Questions = append([]domain.Question(nil), sl.sess.Questions...)
	cp.Pending = append([]int(nil), sl.sess.Pending...)
	return cp, true
}

// presentNext runs the between-rounds step with the slot lock held: clean up
// the previous round's messages, then either complete the attempt or deliver
// the next question.
func (s *Service) presentNext(ctx context.Context, sl *slot) {
	sess := sl.sess
	s.cleanup(ctx, sess)
	sess.Pending = sess.Pending[:0]

	if sess.Current >= len(sess.Questions) {
		s.complete(ctx, sess)
		return
	}

	q := sess.Questions[sess.Current]
	sess.CorrectAnswer = q.Answer

	if q.ImageRef != "" {
		if img, err := os.ReadFile(s.imagePath(q.ImageRef)); err != nil {
			log.Printf("quiz: question image %q: %v", q.ImageRef, err)
		} else if id, err := s.gateway.SendImage(ctx, sess.UserID, img, ""); err != nil {
			log.Printf("quiz: send question image to user %d: %v", sess.UserID, err)
		} else {
			sess.Pending = append(sess.Pending, id)
		}
	}

	progress := strings.Repeat("🟩", sess.Current) + strings.Repeat("⬜", len(sess.Questions)-sess.Current)
	text := fmt.Sprintf("📊 Progress: %s\n\n❓ *Question %d/%d*\n\n*%s*",
		progress, sess.Current+1, len(sess.Questions), q.Text)

	rows := make([][]Button, 0, len(q.Options))
	for _, opt := range q.Options {
		rows = append(rows, Row(Button{Label: opt, Data: CallbackAnswerPrefix + opt}))
	}
	if id := s.send(ctx, sess.UserID, text, rows...); id != 0 {
		sess.Pending = append(sess.Pending, id)
	}
}

// complete persists the score record and offers the share controls. A ledger
// failure is logged but the user still sees their result; the record may be
// lost (best-effort durability).
func (s *Service) complete(ctx context.Context, sess *domain.Session) {
	sess.Done = true
	sess.CorrectAnswer = ""

	rec := domain.ScoreRecord{
		UserID:      sess.UserID,
		Username:    sess.Username,
		Category:    sess.Category,
		Score:       sess.Score,
		Total:       len(sess.Questions),
		CompletedAt: s.now(),
	}
	if err := s.ledger.Append(ctx, rec); err != nil {
		log.Printf("quiz: append score for user %d: %v", sess.UserID, err)
	}

	text := fmt.Sprintf("🏁 *Quiz complete!*\n\nScore: *%d/%d*", sess.Score, len(sess.Questions))
	id := s.send(ctx, sess.UserID, text, Row(Button{Label: "🎯 Share your score", Data: CallbackShareMenu}))
	if id != 0 {
		sess.ShareMsg = id
		sess.Pending = append(sess.Pending, id)
	}
}

func (s *Service) shareText(ctx context.Context, sess *domain.Session) {
	summary := fmt.Sprintf("🎓 *Quiz result*\n\n👤 @%s\n📚 Category: %s\n🎯 Score: %d/%d",
		sess.Username, title(sess.Category), sess.Score, len(sess.Questions))
	if s.opts.BotName != "" {
		summary += fmt.Sprintf("\n\nTry it yourself: @%s", s.opts.BotName)
	}
	s.send(ctx, sess.UserID, summary,
		Row(Button{Label: "Share with a group", SwitchInline: fmt.Sprintf("I scored %d/%d in the %s quiz!", sess.Score, len(sess.Questions), title(sess.Category))}))
}

func (s *Service) shareImage(ctx context.Context, sess *domain.Session) {
	img, err := s.renderer.Render(sess.Username, title(sess.Category), sess.Score, len(sess.Questions))
	if err != nil {
		log.Printf("quiz: render certificate for user %d: %v", sess.UserID, err)
		s.editOrSend(ctx, sess.UserID, sess.ShareMsg, "⚠️ Could not generate the certificate.")
		return
	}

	caption := "Share your result!"
	if s.opts.BotName != "" {
		caption += " @" + s.opts.BotName
	}
	if _, err := s.gateway.SendImage(ctx, sess.UserID, img, caption,
		Row(Button{Label: "Share", SwitchInline: "Look at my quiz certificate!"})); err != nil {
		log.Printf("quiz: send certificate to user %d: %v", sess.UserID, err)
		s.editOrSend(ctx, sess.UserID, sess.ShareMsg, "⚠️ Could not send the certificate.")
	}
}

func (s *Service) shareLeaderboard(ctx context.Context, sess *domain.Session) {
	top, err := s.ledger.TopByCategory(ctx, sess.Category, s.opts.LeaderboardSize)
	if err != nil {
		log.Printf("quiz: leaderboard for category %q: %v", sess.Category, err)
		s.editOrSend(ctx, sess.UserID, sess.ShareMsg, "⚠️ Could not load the leaderboard. Please try again later.")
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🏆 *Top %d — %s*\n\n", s.opts.LeaderboardSize, title(sess.Category))
	if len(top) == 0 {
		b.WriteString("No scores yet. Be the first! 🎯")
	} else {
		for i, rec := range top {
			fmt.Fprintf(&b, "%d. @%s: %d/%d\n", i+1, rec.Username, rec.Score, rec.Total)
		}
	}
	s.editOrSend(ctx, sess.UserID, sess.ShareMsg, b.String())
}

// cleanup best-effort deletes the session's tracked messages. Failures are
// expected (the message may already be gone) and only logged.
func (s *Service) cleanup(ctx context.Context, sess *domain.Session) {
	for _, id := range sess.Pending {
		if err := s.gateway.DeleteMessage(ctx, sess.UserID, id); err != nil {
			log.Printf("quiz: delete message %d for user %d: %v", id, sess.UserID, err)
		}
	}
}

// sample returns a uniform random permutation of pool truncated to the cap.
// The input is never modified.
func (s *Service) sample(pool []domain.Question) []domain.Question {
	shuffled := make([]domain.Question, len(pool))
	copy(shuffled, pool)

	s.rndMu.Lock()
	for i := len(shuffled) - 1; i > 0; i-- {
		j := s.rnd.Intn(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	s.rndMu.Unlock()

	if len(shuffled) > s.opts.MaxQuestions {
		shuffled = shuffled[:s.opts.MaxQuestions]
	}
	return shuffled
}

// send delivers a message and returns its ID, or 0 when delivery failed.
// Delivery failures are recoverable: logged and skipped.
func (s *Service) send(ctx context.Context, userID int64, text string, rows ...[]Button) int {
	id, err := s.gateway.SendText(ctx, userID, text, rows...)
	if err != nil {
		log.Printf("quiz: send message to user %d: %v", userID, err)
		return 0
	}
	return id
}

// editOrSend updates an earlier message in place, falling back to a fresh
// message when there is nothing to edit or the edit fails.
func (s *Service) editOrSend(ctx context.Context, userID int64, messageID int, text string) {
	if messageID != 0 {
		err := s.gateway.EditText(ctx, userID, messageID, text)
		if err == nil {
			return
		}
		log.Printf("quiz: edit message %d for user %d: %v", messageID, userID, err)
	}
	s.send(ctx, userID, text)
}

func (s *Service) slot(userID int64) *slot {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.slots[userID]
	if !ok {
		sl = &slot{}
		s.slots[userID] = sl
	}
	return sl
}

func (s *Service) imagePath(ref string) string {
	if s.opts.ImageDir == "" || filepath.IsAbs(ref) {
		return ref
	}
	return filepath.Join(s.opts.ImageDir, ref)
}

// title upper-cases the first letter of each word, mirroring how categories
// are displayed throughout the bot.
func title(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
