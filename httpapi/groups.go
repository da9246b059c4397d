package httpapi

import (
	"net/http"

	goCrud "github.com/MrEthical07/goCrud"
	"github.com/labstack/echo/v4"
)

type groupCreateRequest struct {
	AuthToken   string  `json:"auth_token"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

type groupMemberRequest struct {
	GroupNid string `json:"group_nid"`
	UserNid  string `json:"user_nid"`
}

type groupDeleteRequest struct {
	AuthToken string `json:"auth_token"`
	Nid       string `json:"nid"`
}

func (s *Server) GroupCreate(c echo.Context) error {
	var req groupCreateRequest
	if !s.bind(c, &req) {
		return s.er(c, http.StatusBadRequest)
	}
	if err := s.engine.VerifyCSRF(c.Request().Context(), s.session(c), req.AuthToken); err != nil {
		return s.fail(c, err)
	}

	view, err := s.engine.CreateGroup(c.Request().Context(), s.session(c), goCrud.GroupCreate{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(http.StatusCreated, view)
}

func (s *Server) GroupAddMember(c echo.Context) error {
	var req groupMemberRequest
	if !s.bind(c, &req) {
		return s.er(c, http.StatusBadRequest)
	}

	view, err := s.engine.AddMember(c.Request().Context(), goCrud.GroupMember{
		GroupNid: req.GroupNid,
		UserNid:  req.UserNid,
	})
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(http.StatusOK, view)
}

func (s *Server) GroupGet(c echo.Context) error {
	view, err := s.engine.GetGroup(c.Request().Context(), c.QueryParam("nid"))
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(http.StatusOK, view)
}

func (s *Server) GroupList(c echo.Context) error {
	views, err := s.engine.ListGroups(c.Request().Context())
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(http.StatusOK, views)
}

func (s *Server) GroupDelete(c echo.Context) error {
	var req groupDeleteRequest
	if !s.bind(c, &req) {
		return s.er(c, http.StatusBadRequest)
	}

	err := s.engine.DeleteGroup(c.Request().Context(), s.session(c), goCrud.GroupDelete{
		CSRFToken: req.AuthToken,
		Nid:       req.Nid,
	})
	if err != nil {
		return s.fail(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}
