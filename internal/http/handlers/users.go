package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/geocoder89/authhub/internal/domain/user"
	"github.com/geocoder89/authhub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

// Me returns the profile of the user named in the bearer token.
func (h *AuthHandler) Me(ctx *gin.Context) {
	username, ok := middlewares.UsernameFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), h.timeout)

	defer cancel()

	found, err := h.users.FindByUsername(cctx, username)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User no longer exists")
			return
		}

		h.respondStoreError(ctx, err, "Could not load user")
		return
	}

	ctx.JSON(http.StatusOK, found)
}
