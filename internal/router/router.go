package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"studyhub-backend/internal/handlers"
	"studyhub-backend/internal/logger"
	"studyhub-backend/internal/middleware"
	"studyhub-backend/internal/websocket"
)

// Handlers groups the route handlers mounted under /api/v1.
type Handlers struct {
	Auth         *handlers.AuthHandler
	State        *handlers.StateHandler
	Flashcards   *handlers.FlashcardHandler
	Sessions     *handlers.SessionHandler
	Exams        *handlers.ExamHandler
	Lessons      *handlers.LessonHandler
	Chat         *handlers.ChatHandler
	Mindmaps     *handlers.MindmapHandler
	Grades       *handlers.GradeHandler
	Planner      *handlers.PlannerHandler
	StudySession *handlers.StudySessionHandler
}

func New(
	jwtAuth *middleware.JWTAuth,
	h Handlers,
	wsHub *websocket.Hub,
	authLimiter *middleware.RateLimiter,
	generateLimiter *middleware.RateLimiter,
	frontendURL string,
	log *logger.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.CORS(frontendURL))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Auth Routes (public) ────
		r.Route("/auth", func(r chi.Router) {
			r.Use(authLimiter.Middleware)
			r.Post("/device", h.Auth.Device)
			r.Post("/refresh", h.Auth.Refresh)

			r.Group(func(r chi.Router) {
				r.Use(jwtAuth.Middleware)
				r.Post("/logout", h.Auth.Logout)
			})
		})

		// ──── WebSocket (token in query) ────
		r.Get("/ws", wsHub.HandleWebSocket)

		r.Group(func(r chi.Router) {
			r.Use(jwtAuth.Middleware)

			// ──── State & Profile ────
			r.Get("/state", h.State.Get)
			r.Put("/profile", h.State.UpdateProfile)
			r.Route("/drafts", func(r chi.Router) {
				r.Get("/{name}", h.State.GetDraft)
				r.Put("/{name}", h.State.PutDraft)
				r.Delete("/{name}", h.State.DeleteDraft)
			})

			// ──── Flashcard Routes ────
			r.Route("/flashcards", func(r chi.Router) {
				r.Get("/", h.Flashcards.List)
				r.Post("/", h.Flashcards.Create)
				r.Get("/due", h.Flashcards.Due)
				r.With(generateLimiter.Middleware).Post("/generate", h.Flashcards.Generate)
				r.Post("/review/start", h.Flashcards.StartReview)
				r.Post("/review/answer", h.Flashcards.AnswerReview)
				r.Post("/{id}/review", h.Flashcards.Review)
				r.Delete("/{id}", h.Flashcards.Delete)
			})

			// ──── Quiz & Exam Sessions ────
			r.Route("/sessions", func(r chi.Router) {
				r.With(generateLimiter.Middleware).Post("/", h.Sessions.Create)
				r.Get("/{id}", h.Sessions.Get)
				r.Put("/{id}/answers/{questionId}", h.Sessions.Answer)
				r.Post("/{id}/submit", h.Sessions.Submit)
				r.Post("/{id}/abandon", h.Sessions.Abandon)
				r.Post("/{id}/reset", h.Sessions.Reset)
			})

			r.Route("/exams", func(r chi.Router) {
				r.Get("/history", h.Exams.History)
				r.Delete("/history", h.Exams.ClearHistory)
				r.With(generateLimiter.Middleware).Post("/gap-analysis", h.Exams.GapAnalysis)
			})

			// ──── Lessons, Chat & Mind Maps ────
			r.Route("/lessons", func(r chi.Router) {
				r.With(generateLimiter.Middleware).Post("/generate", h.Lessons.Generate)
				r.Get("/", h.Lessons.List)
				r.Post("/", h.Lessons.Save)
				r.Delete("/{id}", h.Lessons.Delete)
			})

			r.Route("/chat", func(r chi.Router) {
				r.Use(generateLimiter.Middleware)
				r.Post("/", h.Chat.Chat)
				r.Post("/explain", h.Chat.Explain)
			})

			r.With(generateLimiter.Middleware).Post("/mindmaps/generate", h.Mindmaps.Generate)

			// ──── Grades & Roadmap ────
			r.Route("/grades", func(r chi.Router) {
				r.Get("/", h.Grades.Get)
				r.Put("/", h.Grades.Put)
				r.With(generateLimiter.Middleware).Post("/analyze", h.Grades.Analyze)
			})

			r.Route("/roadmap", func(r chi.Router) {
				r.Get("/", h.Grades.Roadmap)
				r.With(generateLimiter.Middleware).Post("/", h.Grades.GenerateRoadmap)
			})

			// ──── Planner ────
			r.Route("/tasks", func(r chi.Router) {
				r.Get("/", h.Planner.ListTasks)
				r.Post("/", h.Planner.CreateTask)
				r.Put("/{id}", h.Planner.UpdateTask)
				r.Delete("/{id}", h.Planner.DeleteTask)
			})

			r.Route("/reminders", func(r chi.Router) {
				r.Get("/", h.Planner.ListReminders)
				r.Post("/", h.Planner.CreateReminder)
				r.Put("/{id}", h.Planner.UpdateReminder)
				r.Delete("/{id}", h.Planner.DeleteReminder)
			})

			// ──── Study Session Routes ────
			r.Route("/study-sessions", func(r chi.Router) {
				r.Post("/start", h.StudySession.Start)
				r.Post("/{id}/heartbeat", h.StudySession.Heartbeat)
				r.Post("/{id}/stop", h.StudySession.Stop)
			})
		})
	})

	return r
}
