package httpapi

import (
	"net/http"

	goCrud "github.com/MrEthical07/goCrud"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type userCreateRequest struct {
	Nickname string  `json:"nickname"`
	Name     *string `json:"name"`
	Surname  *string `json:"surname"`
	Email    string  `json:"email"`
	Password string  `json:"password"`
}

type userLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userUpdateRequest struct {
	AuthToken   string  `json:"auth_token"`
	Nickname    *string `json:"nickname"`
	Name        *string `json:"name"`
	Surname     *string `json:"surname"`
	Email       *string `json:"email"`
	Password    *string `json:"password"`
	NewPassword *string `json:"new_password"`
}

type userDeleteRequest struct {
	AuthToken string `json:"auth_token"`
	Password  string `json:"password"`
}

type tokenRequest struct {
	AuthToken string `json:"auth_token"`
}

func (s *Server) UserCreate(c echo.Context) error {
	var req userCreateRequest
	if !s.bind(c, &req) {
		return s.er(c, http.StatusBadRequest)
	}

	view, err := s.engine.CreateUser(c.Request().Context(), goCrud.UserCreate{
		Nickname: req.Nickname,
		Name:     req.Name,
		Surname:  req.Surname,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(http.StatusCreated, view)
}

func (s *Server) UserLogin(c echo.Context) error {
	var req userLoginRequest
	if !s.bind(c, &req) {
		return s.er(c, http.StatusBadRequest)
	}

	res, err := s.engine.Login(c.Request().Context(), goCrud.UserLogin{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return s.fail(c, err)
	}
	if err := s.apply(c, res.Cookie); err != nil {
		return s.fail(c, err)
	}

	return c.JSON(http.StatusOK, res.User)
}

func (s *Server) UserLogout(c echo.Context) error {
	var req tokenRequest
	if !s.bind(c, &req) {
		return s.er(c, http.StatusBadRequest)
	}

	m, err := s.engine.Logout(c.Request().Context(), s.session(c), req.AuthToken)
	if err != nil {
		return s.fail(c, err)
	}
	if err := s.apply(c, m); err != nil {
		return s.fail(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

func (s *Server) UserUpdate(c echo.Context) error {
	var req userUpdateRequest
	if !s.bind(c, &req) {
		return s.er(c, http.StatusBadRequest)
	}

	view, err := s.engine.UpdateUser(c.Request().Context(), s.session(c), goCrud.UserUpdate{
		CSRFToken:   req.AuthToken,
		Nickname:    req.Nickname,
		Name:        req.Name,
		Surname:     req.Surname,
		NewEmail:    req.Email,
		NewPassword: req.NewPassword,
		Password:    req.Password,
	})
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(http.StatusOK, view)
}

func (s *Server) UserDelete(c echo.Context) error {
	var req userDeleteRequest
	if !s.bind(c, &req) {
		return s.er(c, http.StatusBadRequest)
	}

	m, err := s.engine.DeleteUser(c.Request().Context(), s.session(c), goCrud.UserDelete{
		CSRFToken: req.AuthToken,
		Password:  req.Password,
	})
	if err != nil {
		return s.fail(c, err)
	}
	if err := s.apply(c, m); err != nil {
		return s.fail(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

func (s *Server) UserGet(c echo.Context) error {
	view, err := s.engine.GetUser(c.Request().Context(), goCrud.UserQuery{
		Nid:   c.QueryParam("nid"),
		Email: c.QueryParam("email"),
	})
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(http.StatusOK, view)
}

func (s *Server) UserList(c echo.Context) error {
	views, err := s.engine.ListUsers(c.Request().Context())
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(http.StatusOK, views)
}

// Token issues a CSRF token bound to the caller's session, setting the CSRF
// cookie when the caller had none.
func (s *Server) Token(c echo.Context) error {
	grant, err := s.engine.CSRFToken(c.Request().Context(), s.session(c))
	if err != nil {
		return s.fail(c, err)
	}
	if err := s.apply(c, grant.Mutations...); err != nil {
		s.l.Error("failed to write session cookies", zap.Error(err))
		return s.er(c, http.StatusInternalServerError)
	}

	return c.JSON(http.StatusOK, grant.Token)
}
