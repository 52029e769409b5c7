package quiz

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"studyhub-backend/internal/apperr"
	"studyhub-backend/internal/logger"
	"studyhub-backend/internal/models"
)

type Status string

const (
	StatusSetup      Status = "setup"
	StatusGenerating Status = "generating"
	StatusInProgress Status = "in-progress"
	StatusGraded     Status = "graded"
)

type Kind string

const (
	KindQuiz     Kind = "quiz"
	KindExam     Kind = "exam"
	KindRemedial Kind = "remedial"
)

type EventType string

const (
	EventGenerationStarted EventType = "generation_started"
	EventGenerationFailed  EventType = "generation_failed"
	EventSessionStarted    EventType = "session_started"
	EventTick              EventType = "tick"
	EventGraded            EventType = "graded"
	EventAbandoned         EventType = "abandoned"
)

// Event reports a session state change. Events are delivered outside the
// session lock, in the order the changes happened for a given goroutine.
type Event struct {
	Type      EventType
	SessionID uuid.UUID
	Status    Status
	Remaining time.Duration
	Result    *models.ExamResult
	Warnings  []apperr.Warning
	Err       error
}

// Source produces a question set. It is called on the generation runner with
// a context that is cancelled when the session abandons the request.
type Source func(ctx context.Context) ([]models.QuizQuestion, error)

// Fixed returns a Source that yields qs, used for remedial sets that arrive
// together with a gap analysis.
func Fixed(qs []models.QuizQuestion) Source {
	return func(ctx context.Context) ([]models.QuizQuestion, error) {
		return slices.Clone(qs), nil
	}
}

// Runner executes generation work off the caller's goroutine. When Go returns
// nil, done must be called exactly once, even if fn never runs.
type Runner interface {
	Go(ctx context.Context, jobType string, fn func(ctx context.Context) error, done func(err error)) error
}

// ResultLog receives the result of every graded session.
type ResultLog interface {
	Append(ctx context.Context, r models.ExamResult) error
}

type Config struct {
	Kind      Kind
	Subject   string
	TimeLimit time.Duration
	// Types restricts generated questions; empty means any type.
	Types []models.QuizType

	Results ResultLog
	Runner  Runner
	OnEvent func(Event)
	Log     *logger.Logger

	// Tick is the countdown resolution. Defaults to one second.
	Tick time.Duration
	Now  func() time.Time
}

// Session is one attempt at a question set. All methods are safe for
// concurrent use.
type Session struct {
	id  uuid.UUID
	cfg Config
	log *logger.Logger

	mu        sync.Mutex
	status    Status
	questions []models.QuizQuestion
	answers   map[string]string
	startedAt time.Time
	deadline  time.Time
	result    *models.ExamResult
	warnings  []apperr.Warning
	lastErr   error
	closed    bool
	// touched is the last time the session was started or answered.
	touched time.Time

	// genSeq identifies the current generation request; results carrying an
	// older value are discarded.
	genSeq    uint64
	genCancel context.CancelFunc
	runSeq    uint64
	stopTimer context.CancelFunc
}

var errClosed = fmt.Errorf("%w: session closed", apperr.ErrInvalidTransition)

func NewSession(cfg Config) *Session {
	if cfg.Kind == "" {
		cfg.Kind = KindQuiz
	}
	if cfg.Tick <= 0 {
		cfg.Tick = time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Session{
		id:      uuid.New(),
		cfg:     cfg,
		log:     logger.OrNop(cfg.Log),
		status:  StatusSetup,
		touched: cfg.Now(),
	}
}

func (s *Session) ID() uuid.UUID { return s.id }

func (s *Session) Kind() Kind { return s.cfg.Kind }

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Err returns the last generation failure, if the session fell back to setup.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Generate requests a question set from src. It returns once the request is
// queued; the outcome arrives as an event and through View.
func (s *Session) Generate(ctx context.Context, src Source) error {
	if src == nil {
		return fmt.Errorf("%w: no question source", apperr.ErrInvalidArgument)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errClosed
	}
	if s.status != StatusSetup {
		st := s.status
		s.mu.Unlock()
		return fmt.Errorf("%w: cannot generate while %s", apperr.ErrInvalidTransition, st)
	}
	s.genSeq++
	seq := s.genSeq
	gctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.genCancel = cancel
	s.status = StatusGenerating
	s.lastErr = nil
	s.mu.Unlock()

	s.emit(Event{Type: EventGenerationStarted, Status: StatusGenerating})

	var questions []models.QuizQuestion
	run := func(ctx context.Context) error {
		qs, err := src(ctx)
		questions = qs
		return err
	}
	done := func(err error) { s.finishGeneration(seq, questions, err) }

	if s.cfg.Runner == nil {
		go func() { done(run(gctx)) }()
		return nil
	}
	if err := s.cfg.Runner.Go(gctx, "quiz-generation", run, done); err != nil {
		s.finishGeneration(seq, nil, err)
		return fmt.Errorf("%w: %v", apperr.ErrGenerationFailed, err)
	}
	return nil
}

func (s *Session) finishGeneration(seq uint64, qs []models.QuizQuestion, genErr error) {
	s.mu.Lock()
	if seq != s.genSeq || s.status != StatusGenerating {
		s.mu.Unlock()
		s.log.Debug("discarding superseded generation result", "session_id", s.id, "seq", seq)
		return
	}
	if s.genCancel != nil {
		s.genCancel()
		s.genCancel = nil
	}

	qs = ValidateQuestions(qs, s.cfg.Types...)
	if genErr != nil || len(qs) == 0 {
		if genErr == nil {
			genErr = errors.New("empty question set")
		}
		if !errors.Is(genErr, apperr.ErrGenerationFailed) {
			genErr = fmt.Errorf("%w: %v", apperr.ErrGenerationFailed, genErr)
		}
		s.status = StatusSetup
		s.lastErr = genErr
		s.mu.Unlock()

		s.log.Warn("question generation failed", "session_id", s.id, "kind", s.cfg.Kind, "error", genErr)
		s.emit(Event{Type: EventGenerationFailed, Status: StatusSetup, Err: genErr})
		return
	}

	now := s.cfg.Now()
	s.questions = qs
	s.answers = make(map[string]string, len(qs))
	s.startedAt = now
	s.touched = now
	s.status = StatusInProgress
	s.result = nil
	s.warnings = nil
	var remaining time.Duration
	if s.cfg.TimeLimit > 0 {
		s.deadline = now.Add(s.cfg.TimeLimit)
		remaining = s.cfg.TimeLimit
		s.startCountdownLocked()
	}
	s.mu.Unlock()

	s.emit(Event{Type: EventSessionStarted, Status: StatusInProgress, Remaining: remaining})
}

func (s *Session) startCountdownLocked() {
	s.runSeq++
	ctx, cancel := context.WithCancel(context.Background())
	s.stopTimer = cancel
	go s.countdown(ctx, s.runSeq, s.deadline)
}

func (s *Session) stopCountdownLocked() {
	if s.stopTimer != nil {
		s.stopTimer()
		s.stopTimer = nil
	}
}

func (s *Session) countdown(ctx context.Context, run uint64, deadline time.Time) {
	ticker := time.NewTicker(s.cfg.Tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		remaining := deadline.Sub(s.cfg.Now())
		if remaining <= 0 {
			s.expire(run)
			return
		}
		s.emit(Event{Type: EventTick, Status: StatusInProgress, Remaining: remaining})
	}
}

func (s *Session) expire(run uint64) {
	s.mu.Lock()
	if run != s.runSeq || s.status != StatusInProgress {
		s.mu.Unlock()
		return
	}
	result := s.gradeLocked()
	s.mu.Unlock()

	s.log.Info("time limit reached, session graded", "session_id", s.id, "score", result.Score, "total", result.Total)
	warnings := s.record(result)
	s.emit(Event{Type: EventGraded, Status: StatusGraded, Result: &result, Warnings: warnings})
}

// Answer records text for questionID. Later answers replace earlier ones.
func (s *Session) Answer(questionID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errClosed
	}
	if s.status != StatusInProgress {
		return fmt.Errorf("%w: cannot answer while %s", apperr.ErrInvalidTransition, s.status)
	}
	if !slices.ContainsFunc(s.questions, func(q models.QuizQuestion) bool { return q.ID == questionID }) {
		return fmt.Errorf("%w: unknown question %q", apperr.ErrInvalidArgument, questionID)
	}
	s.answers[questionID] = text
	s.touched = s.cfg.Now()
	return nil
}

// Submit grades the session with the answers recorded so far. Exactly one of
// Submit and the countdown grades a session; the loser gets ErrInvalidTransition.
func (s *Session) Submit() (models.ExamResult, []apperr.Warning, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return models.ExamResult{}, nil, errClosed
	}
	if s.status != StatusInProgress {
		st := s.status
		s.mu.Unlock()
		return models.ExamResult{}, nil, fmt.Errorf("%w: cannot submit while %s", apperr.ErrInvalidTransition, st)
	}
	result := s.gradeLocked()
	s.mu.Unlock()

	warnings := s.record(result)
	s.emit(Event{Type: EventGraded, Status: StatusGraded, Result: &result, Warnings: warnings})
	return result, warnings, nil
}

func (s *Session) gradeLocked() models.ExamResult {
	s.stopCountdownLocked()
	now := s.cfg.Now()
	result := models.ExamResult{
		ID:          uuid.NewString(),
		Date:        now,
		Kind:        string(s.cfg.Kind),
		Subject:     s.cfg.Subject,
		Score:       Grade(s.questions, s.answers),
		Total:       len(s.questions),
		Questions:   slices.Clone(s.questions),
		UserAnswers: maps.Clone(s.answers),
	}
	if s.cfg.TimeLimit > 0 {
		result.DurationMinutes = int(now.Sub(s.startedAt).Round(time.Minute) / time.Minute)
	}
	s.status = StatusGraded
	s.result = &result
	return result
}

// record appends the result to the log. Storage problems never un-grade the
// session; they come back as warnings.
func (s *Session) record(result models.ExamResult) []apperr.Warning {
	if s.cfg.Results == nil {
		return nil
	}
	err := s.cfg.Results.Append(context.Background(), result)
	if err == nil {
		return nil
	}
	w, ok := apperr.WarningFor(err)
	if !ok {
		w = apperr.Warning{Code: "RESULT_NOT_SAVED", Message: "The result could not be saved to history."}
	}
	s.log.Error("failed to append result", "session_id", s.id, "result_id", result.ID, "error", err)

	s.mu.Lock()
	s.warnings = append(s.warnings, w)
	s.mu.Unlock()
	return []apperr.Warning{w}
}

// Abandon leaves the session without producing a result. An in-progress
// session only abandons with confirm set; a pending generation is cancelled.
func (s *Session) Abandon(confirm bool) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errClosed
	}
	switch s.status {
	case StatusInProgress:
		if !confirm {
			s.mu.Unlock()
			return fmt.Errorf("%w: abandoning discards your answers", apperr.ErrConfirmationRequired)
		}
		s.stopCountdownLocked()
	case StatusGenerating:
		s.cancelGenerationLocked()
	default:
		st := s.status
		s.mu.Unlock()
		return fmt.Errorf("%w: cannot abandon while %s", apperr.ErrInvalidTransition, st)
	}
	s.clearLocked()
	s.mu.Unlock()

	s.emit(Event{Type: EventAbandoned, Status: StatusSetup})
	return nil
}

// Reset returns a graded session to setup for another attempt.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errClosed
	}
	switch s.status {
	case StatusGraded, StatusSetup:
		s.clearLocked()
		return nil
	}
	return fmt.Errorf("%w: cannot reset while %s", apperr.ErrInvalidTransition, s.status)
}

func (s *Session) cancelGenerationLocked() {
	if s.genCancel != nil {
		s.genCancel()
		s.genCancel = nil
	}
	s.genSeq++
}

func (s *Session) clearLocked() {
	s.status = StatusSetup
	s.questions = nil
	s.answers = nil
	s.result = nil
	s.warnings = nil
	s.deadline = time.Time{}
}

// untimedSince reports when an untimed in-progress session was last worked on.
// ok is false for every other session, since those end on their own.
func (s *Session) untimedSince() (since time.Time, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.status != StatusInProgress || s.cfg.TimeLimit > 0 {
		return time.Time{}, false
	}
	return s.touched, true
}

// Close stops the countdown and any pending generation. A closed session
// rejects every further operation.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.stopCountdownLocked()
	if s.status == StatusGenerating {
		s.cancelGenerationLocked()
		s.status = StatusSetup
	}
}

// View is a read-only snapshot. Correct answers and explanations are hidden
// until the session is graded.
type View struct {
	ID               uuid.UUID             `json:"id"`
	Kind             Kind                  `json:"kind"`
	Subject          string                `json:"subject"`
	Status           Status                `json:"status"`
	Questions        []models.QuizQuestion `json:"questions"`
	Answers          map[string]string     `json:"answers"`
	RemainingSeconds int                   `json:"remaining_seconds,omitempty"`
	Result           *models.ExamResult    `json:"result,omitempty"`
	Warnings         []apperr.Warning      `json:"warnings,omitempty"`
	Error            string                `json:"error,omitempty"`
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		ID:        s.id,
		Kind:      s.cfg.Kind,
		Subject:   s.cfg.Subject,
		Status:    s.status,
		Questions: slices.Clone(s.questions),
		Answers:   maps.Clone(s.answers),
		Result:    s.result,
		Warnings:  slices.Clone(s.warnings),
	}
	if s.status != StatusGraded {
		for i := range v.Questions {
			v.Questions[i].CorrectAnswer = ""
			v.Questions[i].Explanation = ""
		}
	}
	if s.status == StatusInProgress && !s.deadline.IsZero() {
		if left := s.deadline.Sub(s.cfg.Now()); left > 0 {
			v.RemainingSeconds = int((left + time.Second - 1) / time.Second)
		}
	}
	if s.lastErr != nil {
		v.Error = s.lastErr.Error()
	}
	return v
}

func (s *Session) emit(ev Event) {
	if s.cfg.OnEvent == nil {
		return
	}
	ev.SessionID = s.id
	s.cfg.OnEvent(ev)
}
