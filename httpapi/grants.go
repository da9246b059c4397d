package httpapi

import (
	"net/http"

	goCrud "github.com/MrEthical07/goCrud"
	"github.com/labstack/echo/v4"
)

type grantCreateRequest struct {
	AuthToken string `json:"auth_token"`
	goCrud.Grant
}

type grantUpdateRequest struct {
	AuthToken string       `json:"auth_token"`
	Expected  goCrud.Grant `json:"expected"`
	Next      goCrud.Grant `json:"next"`
}

type grantDeleteRequest struct {
	AuthToken string       `json:"auth_token"`
	Expected  goCrud.Grant `json:"expected"`
}

func (s *Server) GrantCreate(c echo.Context) error {
	var req grantCreateRequest
	if !s.bind(c, &req) {
		return s.er(c, http.StatusBadRequest)
	}
	if err := s.engine.VerifyCSRF(c.Request().Context(), s.session(c), req.AuthToken); err != nil {
		return s.fail(c, err)
	}

	grant, err := s.engine.CreateGrant(c.Request().Context(), goCrud.GrantInput{
		Kind:         req.Kind,
		Tree:         req.Tree,
		AssetNid:     req.AssetNid,
		UserNids:     req.UserNids,
		GroupNids:    req.GroupNids,
		Capabilities: req.Capabilities,
	})
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(http.StatusCreated, grant)
}

func (s *Server) GrantGet(c echo.Context) error {
	grant, err := s.engine.GetGrant(c.Request().Context(), c.QueryParam("nid"))
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(http.StatusOK, grant)
}

func (s *Server) GrantList(c echo.Context) error {
	grants, err := s.engine.ListGrants(c.Request().Context())
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(http.StatusOK, grants)
}

// GrantUpdate replaces the grant named by expected.nid, failing with 412
// when the stored grant no longer equals expected.
func (s *Server) GrantUpdate(c echo.Context) error {
	var req grantUpdateRequest
	if !s.bind(c, &req) {
		return s.er(c, http.StatusBadRequest)
	}
	if err := s.engine.VerifyCSRF(c.Request().Context(), s.session(c), req.AuthToken); err != nil {
		return s.fail(c, err)
	}

	grant, err := s.engine.UpdateGrant(c.Request().Context(), req.Expected.Nid, req.Expected, req.Next)
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(http.StatusOK, grant)
}

func (s *Server) GrantDelete(c echo.Context) error {
	var req grantDeleteRequest
	if !s.bind(c, &req) {
		return s.er(c, http.StatusBadRequest)
	}
	if err := s.engine.VerifyCSRF(c.Request().Context(), s.session(c), req.AuthToken); err != nil {
		return s.fail(c, err)
	}

	if err := s.engine.DeleteGrant(c.Request().Context(), req.Expected.Nid, req.Expected); err != nil {
		return s.fail(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}
