package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// Platform roles. A token may carry several; "admin" passes every check.
const (
	RolePatient  = "patient"
	RoleDoctor   = "doctor"
	RoleHospital = "hospital"
	RoleLab      = "lab"
	RolePharmacy = "pharmacy"
	RoleAdmin    = "admin"
)

// RequireRole returns middleware admitting callers that hold at least one of
// the listed roles.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !hasAnyRole(RolesFromContext(c.Request().Context()), roles) {
				return roleDenied(roles)
			}
			return next(c)
		}
	}
}

// RequireSelfOrRole guards patient-owned routes: the request passes when the
// caller's token is bound to the patient named by the given path parameter,
// or when the caller holds one of the listed roles.
func RequireSelfOrRole(param string, roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			if pid := PatientIDFromContext(ctx); pid != "" && pid == c.Param(param) {
				return next(c)
			}
			if !hasAnyRole(RolesFromContext(ctx), roles) {
				return roleDenied(roles)
			}
			return next(c)
		}
	}
}

// hasAnyRole reports whether granted includes the admin role or any of the
// wanted roles.
func hasAnyRole(granted, wanted []string) bool {
	for _, have := range granted {
		if have == RoleAdmin {
			return true
		}
		for _, want := range wanted {
			if have == want {
				return true
			}
		}
	}
	return false
}

func roleDenied(roles []string) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusForbidden, "required role: "+strings.Join(roles, " or "))
}
