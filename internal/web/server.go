package web

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"recall-study/internal/chat"
	"recall-study/internal/session"
)

const sessionCookie = "study_session"

// Server is the participant-facing front door: a landing page describing the
// study, the chat interface, and the transcript export. All business logic
// lives in the chat controller; handlers only translate HTTP to protocol
// steps and trigger a render.
type Server struct {
	e          *echo.Echo
	sessions   *session.Manager
	ctrl       *chat.Controller
	studyTitle string
}

func NewServer(sessions *session.Manager, ctrl *chat.Controller, studyTitle string) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	s := &Server{
		e:          e,
		sessions:   sessions,
		ctrl:       ctrl,
		studyTitle: studyTitle,
	}

	e.GET("/", s.handleRoot)
	e.POST("/proceed", s.handleProceed)
	e.POST("/chat", s.handleSubmit)
	e.GET("/export", s.handleExport)
	return s
}

func (s *Server) Start(addr string) error {
	return s.e.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}

// session resolves the participant session from the handle cookie, issuing a
// new handle on first contact. Session (and identity) creation is lazy in
// the manager.
func (s *Server) session(c echo.Context) *session.Session {
	cookie, err := c.Cookie(sessionCookie)
	if err != nil || cookie.Value == "" {
		handle := uuid.NewString()
		c.SetCookie(&http.Cookie{
			Name:     sessionCookie,
			Value:    handle,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		return s.sessions.Get(handle)
	}
	return s.sessions.Get(cookie.Value)
}
