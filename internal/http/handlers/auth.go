package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/geocoder89/authhub/internal/db"
	"github.com/geocoder89/authhub/internal/domain/user"
	"github.com/geocoder89/authhub/internal/observability"
	"github.com/geocoder89/authhub/internal/security"
	"github.com/geocoder89/authhub/internal/service"
	"github.com/gin-gonic/gin"
)

type UsersService interface {
	RegisterUser(ctx context.Context, req user.CreateUserRequest) (user.Public, error)
	Authenticate(ctx context.Context, username, password string) (user.Public, error)
	FindByUsername(ctx context.Context, username string) (user.Public, error)
}

type TokenIssuer interface {
	Issue(username string) (string, error)
}

type AuthHandler struct {
	users   UsersService
	tokens  TokenIssuer
	prom    *observability.Prom
	log     *slog.Logger
	timeout time.Duration
}

func NewAuthHandler(users UsersService, tokens TokenIssuer, prom *observability.Prom, log *slog.Logger, timeout time.Duration) *AuthHandler {
	if log == nil {
		log = slog.Default()
	}

	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	return &AuthHandler{
		users:   users,
		tokens:  tokens,
		prom:    prom,
		log:     log,
		timeout: timeout,
	}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req user.CreateUserRequest

	if !BindJSON(ctx, &req) {
		h.prom.Registration("invalid")
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), h.timeout)

	defer cancel()

	created, err := h.users.RegisterUser(cctx, req)

	if err != nil {
		if errors.Is(err, user.ErrUsernameTaken) {
			h.prom.Registration("conflict")
			RespondConflict(ctx, "username_taken", "Username is already in use.")
			return
		}

		if errors.Is(err, security.ErrPasswordTooLong) {
			h.prom.Registration("invalid")
			RespondBadRequest(ctx, "Invalid request body", gin.H{"fields": []FieldError{{
				Field:   "password",
				Rule:    "maxbytes",
				Param:   strconv.Itoa(security.MaxPasswordBytes),
				Message: validationMessage("maxbytes", strconv.Itoa(security.MaxPasswordBytes)),
			}}})
			return
		}

		h.prom.Registration("error")
		h.respondStoreError(ctx, err, "Could not create user")
		return
	}

	h.prom.Registration("created")

	ctx.JSON(http.StatusOK, created)
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		h.prom.Login("invalid")
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), h.timeout)

	defer cancel()

	found, err := h.users.Authenticate(cctx, req.Username, req.Password)

	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			h.prom.Login("rejected")
			RespondUnAuthorized(ctx, "invalid_credentials", "Username or password is incorrect.")
			return
		}

		h.prom.Login("error")
		h.respondStoreError(ctx, err, "Could not sign in")
		return
	}

	token, err := h.tokens.Issue(found.Username)

	if err != nil {
		h.prom.Login("error")
		h.log.ErrorContext(ctx.Request.Context(), "token signing failed", "err", err, "user_id", found.ID)
		RespondInternal(ctx, "Could not generate access token")
		return
	}

	h.prom.Login("success")

	// the body is the bare token, JSON encoded as a string
	ctx.JSON(http.StatusOK, token)
}

// respondStoreError maps failures that are not domain outcomes. Unavailable
// stores and deadlines become 503, the rest 500.
func (h *AuthHandler) respondStoreError(ctx *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, db.ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		h.log.WarnContext(ctx.Request.Context(), "store unavailable", "err", err)
		RespondUnavailable(ctx, "Service temporarily unavailable, try again.")
	case errors.Is(err, user.ErrUnsupportedSpec):
		h.log.ErrorContext(ctx.Request.Context(), "unsupported user lookup", "err", err)
		RespondInternal(ctx, message)
	default:
		h.log.ErrorContext(ctx.Request.Context(), message, "err", err)
		RespondInternal(ctx, message)
	}
}
