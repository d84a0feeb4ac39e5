package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"mcq-quiz-service/internal/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// QuestionRepository loads the question bank (from cache/backing store).
type QuestionRepository interface {
	GetQuestions(ctx context.Context) ([]domain.Question, error)
}

// AttemptRepository remembers which shuffled order was issued to each attempt.
type AttemptRepository interface {
	Save(ctx context.Context, attempt domain.Attempt) error
	Get(ctx context.Context, id string) (domain.Attempt, error)
	Delete(ctx context.Context, id string) error
}

// ResultSink persists completed results.
type ResultSink interface {
	AppendResult(ctx context.Context, result domain.Result) error
}

// ResultLister returns a full snapshot of stored results in insertion order.
type ResultLister interface {
	ListResults(ctx context.Context) ([]domain.Result, error)
}

// ResultStore is a sink that can also be listed and cleared (spreadsheet, database, memory).
type ResultStore interface {
	ResultSink
	ResultLister
	ClearResults(ctx context.Context) error
}

// DefaultTestDuration is the time a participant has to finish.
const DefaultTestDuration = 15 * time.Minute

// Settings tunes a QuizService.
type Settings struct {
	TestDuration time.Duration
	TieBreak     TieBreak
}

// QuizService contains the quiz use cases.
type QuizService struct {
	questions QuestionRepository
	attempts  AttemptRepository
	results   ResultStore
	shuffler  *Shuffler
	board     *Board
	settings  Settings
	now       func() time.Time
	log       *zap.Logger
}

func NewQuizService(questions QuestionRepository, attempts AttemptRepository, results ResultStore, settings Settings, log *zap.Logger) *QuizService {
	if settings.TestDuration <= 0 {
		settings.TestDuration = DefaultTestDuration
	}
	if settings.TieBreak.Compare == nil {
		settings.TieBreak = TieBreakTimeSpent
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &QuizService{
		questions: questions,
		attempts:  attempts,
		results:   results,
		shuffler:  NewShuffler(),
		board:     NewBoard(),
		settings:  settings,
		now:       time.Now,
		log:       log,
	}
}

// WithClock is test-only for deterministic timestamps.
func (s *QuizService) WithClock(now func() time.Time) *QuizService {
	s.now = now
	return s
}

// WithShuffler replaces the random source, mostly for tests.
func (s *QuizService) WithShuffler(shuffler *Shuffler) *QuizService {
	s.shuffler = shuffler
	return s
}

// StartAttempt shuffles the question bank for a new participant and remembers the order.
func (s *QuizService) StartAttempt(ctx context.Context) (domain.QuestionSet, error) {
	bank, err := s.questions.GetQuestions(ctx)
	if err != nil {
		return domain.QuestionSet{}, fmt.Errorf("%w: %v", domain.ErrQuestionsUnavailable, err)
	}

	shuffled := s.shuffler.Shuffle(bank)
	attempt := domain.Attempt{
		ID:          uuid.NewString(),
		QuestionIDs: make([]int, len(shuffled)),
		IssuedAt:    s.now(),
	}
	public := make([]domain.PublicQuestion, len(shuffled))
	for i, q := range shuffled {
		attempt.QuestionIDs[i] = q.ID
		public[i] = q.Public()
	}

	if err := s.attempts.Save(ctx, attempt); err != nil {
		return domain.QuestionSet{}, fmt.Errorf("save attempt: %w", err)
	}

	s.log.Info("questions shuffled for new participant",
		zap.String("session_id", attempt.ID),
		zap.Ints("first_ids", firstN(attempt.QuestionIDs, 5)),
	)

	return domain.QuestionSet{
		AttemptID:    attempt.ID,
		Questions:    public,
		TestDuration: int(s.settings.TestDuration / time.Minute),
	}, nil
}

// Submit scores a finished test against the order it was issued in and stores the result.
// Storage failures are logged and reported through Outcome.Persisted; they never fail the call.
func (s *QuizService) Submit(ctx context.Context, sub domain.Submission) (domain.Outcome, error) {
	name := strings.TrimSpace(sub.Name)
	phone := strings.TrimSpace(sub.Phone)
	if name == "" || phone == "" {
		return domain.Outcome{}, domain.ErrInvalidSubmission
	}

	order, issuedAt, err := s.resolveOrder(ctx, sub)
	if err != nil {
		return domain.Outcome{}, err
	}

	bank, err := s.questions.GetQuestions(ctx)
	if err != nil {
		return domain.Outcome{}, fmt.Errorf("%w: %v", domain.ErrQuestionsUnavailable, err)
	}
	if sub.AttemptID == "" {
		if err := checkOrder(bank, order); err != nil {
			return domain.Outcome{}, err
		}
	}
	questions := arrange(bank, order)

	answers := sub.Answers
	if sub.AnswersByID != nil {
		answers = positional(sub.AnswersByID, order)
	}
	answers = resolveAnswers(answers, questions)

	summary, details := Grade(answers, questions)
	now := s.now()
	result := domain.Result{
		Name:           name,
		Phone:          phone,
		Score:          summary.Correct,
		TotalQuestions: summary.Total,
		Details:        details,
		Timestamp:      now,
		TimeSpent:      s.timeSpent(sub.TimeSpent, issuedAt, now),
	}

	outcome := domain.Outcome{Result: result, Score: summary, Persisted: true}
	if err := s.results.AppendResult(ctx, result); err != nil {
		outcome.Persisted = false
		s.log.Error("failed to persist result",
			zap.String("name", name),
			zap.Int("score", summary.Correct),
			zap.Error(err),
		)
	} else {
		s.log.Info("result saved",
			zap.String("name", name),
			zap.Int("score", summary.Correct),
			zap.Int("total", summary.Total),
		)
	}

	if sub.AttemptID != "" {
		if err := s.attempts.Delete(ctx, sub.AttemptID); err != nil {
			s.log.Warn("failed to delete attempt", zap.String("session_id", sub.AttemptID), zap.Error(err))
		}
	}

	if outcome.Persisted {
		s.refreshBoard(ctx)
	}
	return outcome, nil
}

// Leaderboard re-ranks the full result collection.
func (s *QuizService) Leaderboard(ctx context.Context) (domain.Leaderboard, error) {
	results, err := s.Results(ctx)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	ranked := Rank(results, s.settings.TieBreak)
	return domain.Leaderboard{
		Entries:   ranked,
		TieBreak:  s.settings.TieBreak.Name,
		Summary:   Summarize(ranked),
		UpdatedAt: s.now(),
	}, nil
}

// Results returns stored results in insertion order.
func (s *QuizService) Results(ctx context.Context) ([]domain.Result, error) {
	results, err := s.results.ListResults(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrResultsUnavailable, err)
	}
	return results, nil
}

// ClearResults removes every stored result.
func (s *QuizService) ClearResults(ctx context.Context) error {
	if err := s.results.ClearResults(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrResultsUnavailable, err)
	}
	s.log.Warn("all results cleared")
	s.refreshBoard(ctx)
	return nil
}

// Subscribe returns a channel that receives a fresh leaderboard after every change.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *QuizService) Subscribe(ctx context.Context) (<-chan domain.Leaderboard, func(), error) {
	lb, err := s.Leaderboard(ctx)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := s.board.Subscribe(lb)
	return ch, cancel, nil
}

// TestDuration is the configured time limit.
func (s *QuizService) TestDuration() time.Duration {
	return s.settings.TestDuration
}

func (s *QuizService) refreshBoard(ctx context.Context) {
	if s.board.Subscribers() == 0 {
		return
	}
	lb, err := s.Leaderboard(ctx)
	if err != nil {
		s.log.Warn("failed to refresh leaderboard", zap.Error(err))
		return
	}
	s.board.Publish(lb)
}

func (s *QuizService) resolveOrder(ctx context.Context, sub domain.Submission) ([]int, time.Time, error) {
	if sub.AttemptID != "" {
		attempt, err := s.attempts.Get(ctx, sub.AttemptID)
		if err != nil {
			if errors.Is(err, domain.ErrAttemptNotFound) {
				return nil, time.Time{}, err
			}
			return nil, time.Time{}, fmt.Errorf("load attempt: %w", err)
		}
		return attempt.QuestionIDs, attempt.IssuedAt, nil
	}
	if len(sub.QuestionIDs) > 0 {
		return sub.QuestionIDs, time.Time{}, nil
	}
	return nil, time.Time{}, domain.ErrAttemptRequired
}

// timeSpent prefers the client's figure, falls back to the time since the attempt was
// issued, and never exceeds the test duration.
func (s *QuizService) timeSpent(reported int, issuedAt, now time.Time) int {
	spent := reported
	if spent < 0 {
		spent = 0
		if !issuedAt.IsZero() {
			spent = int(now.Sub(issuedAt) / time.Second)
		}
	}
	limit := int(s.settings.TestDuration / time.Second)
	if spent > limit {
		spent = limit
	}
	if spent < 0 {
		spent = 0
	}
	return spent
}

// checkOrder accepts only an order that lists every question of the bank exactly once.
func checkOrder(bank []domain.Question, order []int) error {
	if len(order) != len(bank) {
		return fmt.Errorf("%w: got %d ids for %d questions", domain.ErrInvalidQuestionOrder, len(order), len(bank))
	}
	remaining := make(map[int]bool, len(bank))
	for _, q := range bank {
		remaining[q.ID] = true
	}
	for _, id := range order {
		if !remaining[id] {
			return fmt.Errorf("%w: unexpected or repeated id %d", domain.ErrInvalidQuestionOrder, id)
		}
		delete(remaining, id)
	}
	return nil
}

// arrange lays the bank out in the issued order. Ids missing from the bank become
// empty questions, which still occupy a slot but can never be answered correctly.
func arrange(bank []domain.Question, order []int) []domain.Question {
	byID := make(map[int]domain.Question, len(bank))
	for _, q := range bank {
		byID[q.ID] = q
	}
	out := make([]domain.Question, len(order))
	for i, id := range order {
		q, ok := byID[id]
		if !ok {
			q = domain.Question{ID: id}
		}
		out[i] = q
	}
	return out
}

func positional(byID map[int]domain.OptionKey, order []int) []domain.OptionKey {
	out := make([]domain.OptionKey, len(order))
	for i, id := range order {
		out[i] = byID[id]
	}
	return out
}

// resolveAnswers turns each raw answer into a key against the question at its position.
// Answers past the last question are dropped.
func resolveAnswers(raw []domain.OptionKey, questions []domain.Question) []domain.OptionKey {
	n := len(raw)
	if n > len(questions) {
		n = len(questions)
	}
	out := make([]domain.OptionKey, n)
	for i := 0; i < n; i++ {
		out[i] = questions[i].ResolveAnswer(string(raw[i]))
	}
	return out
}

func firstN(ids []int, n int) []int {
	if len(ids) < n {
		return ids
	}
	return ids[:n]
}
