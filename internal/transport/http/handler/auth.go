package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"ragdesk/internal/console"
	"ragdesk/internal/identity"
	"ragdesk/internal/transport/http/middleware"
	"ragdesk/internal/transport/http/response"
)

type AuthHandler struct {
	provider *identity.LocalProvider
	guard    *console.Guard
	consoles *console.Registry
}

type CredentialsRequest struct {
	Email    string `json:"email" binding:"required,email,max=191"`
	Password string `json:"password" binding:"required,min=8,max=128"`
}

func NewAuthHandler(provider *identity.LocalProvider, guard *console.Guard, consoles *console.Registry) *AuthHandler {
	return &AuthHandler{provider: provider, guard: guard, consoles: consoles}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	session, err := h.provider.SignUp(c.Request.Context(), identity.Credentials{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, identity.ErrEmailExists):
			response.Error(c, http.StatusBadRequest, response.CodeEmailExists, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "register failed")
		}
		return
	}

	response.OK(c, session)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	session, err := h.provider.SignIn(c.Request.Context(), identity.Credentials{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, identity.ErrInvalidCredential):
			response.Error(c, http.StatusUnauthorized, response.CodeInvalidCredentials, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "login failed")
		}
		return
	}

	response.OK(c, session)
}

// Me runs behind the chat guard, so any signed-in identity reaches it.
func (h *AuthHandler) Me(c *gin.Context) {
	decision, ok := middleware.DecisionFrom(c)
	if !ok || decision.Identity == nil {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "identity not resolved")
		return
	}

	response.OK(c, gin.H{
		"id":    decision.Identity.UserID,
		"email": decision.Identity.Email,
		"tier":  decision.Tier.String(),
	})
}

// Logout works from any state, including access denied, and always answers
// with the login redirect.
func (h *AuthHandler) Logout(c *gin.Context) {
	ctx := c.Request.Context()
	token := middleware.BearerToken(c)

	if who, err := h.provider.Current(ctx, token); err == nil && who != nil {
		h.consoles.Drop(*who)
	}
	decision := h.guard.Logout(ctx, token)

	c.Header("Location", decision.Redirect)
	response.OK(c, gin.H{"redirect": decision.Redirect})
}
