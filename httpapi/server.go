package httpapi

import (
	"errors"
	"net/http"

	goCrud "github.com/MrEthical07/goCrud"
	"github.com/MrEthical07/goCrud/metrics/export/prometheus"
	"github.com/MrEthical07/goCrud/middleware"
	"github.com/MrEthical07/goCrud/session"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Server binds engine operations to echo routes.
type Server struct {
	engine *goCrud.Engine
	l      *zap.Logger
}

// New returns a Server for engine. A nil logger discards output.
func New(engine *goCrud.Engine, l *zap.Logger) *Server {
	if l == nil {
		l = zap.NewNop()
	}
	return &Server{engine: engine, l: l}
}

// Register mounts every route on e.
func (s *Server) Register(e *echo.Echo) {
	g := e.Group("", clientIP, echo.WrapMiddleware(middleware.Session(s.engine)))

	g.POST("/user", s.UserCreate)
	g.POST("/user/login", s.UserLogin)
	g.POST("/user/logout", s.UserLogout)
	g.PATCH("/user", s.UserUpdate)
	g.DELETE("/user", s.UserDelete)
	g.GET("/user", s.UserGet)
	g.GET("/users", s.UserList)
	g.GET("/token", s.Token)

	g.POST("/group", s.GroupCreate)
	g.POST("/group/member", s.GroupAddMember)
	g.GET("/group", s.GroupGet)
	g.GET("/groups", s.GroupList)
	g.DELETE("/group", s.GroupDelete)

	requireSession := echo.WrapMiddleware(middleware.RequireSession(s.engine))
	g.POST("/grant", s.GrantCreate, requireSession)
	g.GET("/grant", s.GrantGet, requireSession)
	g.GET("/grants", s.GrantList, requireSession)
	g.PUT("/grant", s.GrantUpdate, requireSession)
	g.DELETE("/grant", s.GrantDelete, requireSession)

	e.GET("/healthz", s.Health)
	if s.engine.MetricsEnabled() {
		e.GET("/metrics", echo.WrapHandler(prometheus.NewPrometheusExporter(s.engine).Handler()))
	}
}

// clientIP attaches the caller address to the request context for login
// throttling and audit events.
func clientIP(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		r := c.Request()
		c.SetRequest(r.WithContext(goCrud.WithClientIP(r.Context(), c.RealIP())))
		return next(c)
	}
}

func (s *Server) session(c echo.Context) session.Session {
	sess, _ := middleware.SessionFromContext(c.Request().Context())
	return sess
}

// apply writes cookie mutations to the response.
func (s *Server) apply(c echo.Context, mutations ...session.Mutation) error {
	auth := s.engine.Authenticator()
	for _, m := range mutations {
		if m.Kind == session.MutationNone {
			continue
		}
		cookie, err := auth.HTTPCookie(m)
		if err != nil {
			return err
		}
		c.SetCookie(cookie)
	}
	return nil
}

// Health answers 200 when the store is reachable.
func (s *Server) Health(c echo.Context) error {
	if err := s.engine.Ping(c.Request().Context()); err != nil {
		s.l.Error("store ping failed", zap.Error(err))
		return s.er(c, http.StatusServiceUnavailable)
	}
	return c.NoContent(http.StatusOK)
}

type errorMessage struct {
	Message string `json:"message"`
}

func (s *Server) er(c echo.Context, statusCode int) error {
	return c.JSON(statusCode, &errorMessage{Message: http.StatusText(statusCode)})
}

// fail answers with the status matching err.
func (s *Server) fail(c echo.Context, err error) error {
	status := StatusOf(err)
	if status == http.StatusInternalServerError {
		s.l.Error("request failed",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
	}
	return s.er(c, status)
}

// StatusOf maps an engine error to its HTTP status.
func StatusOf(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, goCrud.ErrExists):
		return http.StatusConflict
	case errors.Is(err, goCrud.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, goCrud.ErrForbidden):
		return http.StatusUnauthorized
	case errors.Is(err, goCrud.ErrToken):
		return http.StatusForbidden
	case errors.Is(err, goCrud.ErrConflict):
		return http.StatusPreconditionFailed
	case errors.Is(err, goCrud.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, goCrud.ErrLoginRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// bind decodes the request body into v, answering 400 on failure.
func (s *Server) bind(c echo.Context, v any) bool {
	if err := c.Bind(v); err != nil {
		s.l.Debug("failed to bind request", zap.Error(err))
		return false
	}
	return true
}
