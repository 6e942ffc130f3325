package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"ragdesk/internal/console"
	"ragdesk/internal/transport/http/response"
)

const (
	ContextDecisionKey = "guard_decision"
	ContextConsoleKey  = "console"
)

// GuardView resolves the caller once per request and only lets authorized
// callers through. Unauthenticated callers get the login redirect, callers
// with an insufficient tier get the access-denied state.
func GuardView(guard *console.Guard, consoles *console.Registry, view console.View) gin.HandlerFunc {
	return func(c *gin.Context) {
		decision := guard.Enter(c.Request.Context(), BearerToken(c), view)

		switch decision.Outcome {
		case console.OutcomeAuthorized:
		case console.OutcomeForbidden:
			response.ErrorWithData(c, http.StatusForbidden, response.CodeForbidden, "access denied", gin.H{
				"view":    "access_denied",
				"actions": []string{"logout"},
			})
			c.Abort()
			return
		default:
			c.Header("Location", decision.Redirect)
			response.ErrorWithData(c, http.StatusUnauthorized, response.CodeUnauthorized, "authentication required", gin.H{
				"redirect": decision.Redirect,
			})
			c.Abort()
			return
		}

		c.Set(ContextDecisionKey, decision)
		c.Set(ContextConsoleKey, consoles.Get(*decision.Identity))
		c.Next()
	}
}

// BearerToken returns the token of an "Authorization: Bearer" header, or "".
func BearerToken(c *gin.Context) string {
	const prefix = "Bearer "
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}

func DecisionFrom(c *gin.Context) (console.Decision, bool) {
	v, ok := c.Get(ContextDecisionKey)
	if !ok {
		return console.Decision{}, false
	}
	d, ok := v.(console.Decision)
	return d, ok
}

func ConsoleFrom(c *gin.Context) (*console.Console, bool) {
	v, ok := c.Get(ContextConsoleKey)
	if !ok {
		return nil, false
	}
	con, ok := v.(*console.Console)
	return con, ok && con != nil
}
