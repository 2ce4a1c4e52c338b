package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/geocoder89/tourhub/internal/domain/user"
	"github.com/geocoder89/tourhub/internal/http/apierr"
	"github.com/geocoder89/tourhub/internal/http/middlewares"
	"github.com/geocoder89/tourhub/internal/query"
	"github.com/gin-gonic/gin"
)

const msgNotForPasswords = "This route is not for password updates. Please use /updateMyPassword."

type UsersHandler struct {
	users UsersStore
}

func NewUsersHandler(users UsersStore) *UsersHandler {
	return &UsersHandler{users: users}
}

func (h *UsersHandler) GetMe(ctx *gin.Context) {
	current, ok := middlewares.CurrentUser(ctx)
	if !ok {
		RespondError(ctx, apierr.Unauthorized("unauthorized", "You are not logged in! Please log in to get access."))
		return
	}

	cctx, cancel := requestCtx(ctx, 2*time.Second)
	defer cancel()

	u, err := h.users.GetByID(cctx, current.ID)
	if err != nil {
		RespondError(ctx, err)
		return
	}

	RespondData(ctx, http.StatusOK, "data", u)
}

// UpdateMe changes name and email only.
func (h *UsersHandler) UpdateMe(ctx *gin.Context) {
	current, ok := middlewares.CurrentUser(ctx)
	if !ok {
		RespondError(ctx, apierr.Unauthorized("unauthorized", "You are not logged in! Please log in to get access."))
		return
	}

	var req user.UpdateMeRequest

	if !BindJSON(ctx, &req) {
		return
	}

	if req.TouchesPassword() {
		RespondBadRequest(ctx, msgNotForPasswords, nil)
		return
	}

	cctx, cancel := requestCtx(ctx, 2*time.Second)
	defer cancel()

	u, err := h.update(cctx, current.ID, req.Patch())
	if err != nil {
		RespondError(ctx, err)
		return
	}

	RespondData(ctx, http.StatusOK, "user", u)
}

func (h *UsersHandler) DeleteMe(ctx *gin.Context) {
	current, ok := middlewares.CurrentUser(ctx)
	if !ok {
		RespondError(ctx, apierr.Unauthorized("unauthorized", "You are not logged in! Please log in to get access."))
		return
	}

	cctx, cancel := requestCtx(ctx, 2*time.Second)
	defer cancel()

	if err := h.users.Deactivate(cctx, current.ID); err != nil {
		RespondError(ctx, err)
		return
	}

	RespondNoContent(ctx)
}

func (h *UsersHandler) List(ctx *gin.Context) {
	q, err := query.Parse(ctx.Request.URL.Query(), user.QuerySchema)
	if err != nil {
		RespondError(ctx, err)
		return
	}

	cctx, cancel := requestCtx(ctx, 3*time.Second)
	defer cancel()

	users, err := h.users.List(cctx, q)
	if err != nil {
		RespondError(ctx, err)
		return
	}

	items, err := query.ProjectAll(users, q.Fields)
	if err != nil {
		RespondError(ctx, apierr.Internal(err))
		return
	}

	RespondList(ctx, items)
}

func (h *UsersHandler) Get(ctx *gin.Context) {
	cctx, cancel := requestCtx(ctx, 2*time.Second)
	defer cancel()

	u, err := h.users.GetByID(cctx, ctx.Param("id"))
	if err != nil {
		RespondError(ctx, err)
		return
	}

	RespondData(ctx, http.StatusOK, "data", u)
}

// Create exists so that POST /users answers with a pointer to /signup.
func (h *UsersHandler) Create(ctx *gin.Context) {
	RespondError(ctx, apierr.New(http.StatusInternalServerError, "route_not_defined",
		"This route is not defined! Please use /signup instead"))
}

// Update is the admin edit. It never changes the secret.
func (h *UsersHandler) Update(ctx *gin.Context) {
	var req user.AdminUpdateRequest

	if !BindJSON(ctx, &req) {
		return
	}

	if req.Password != nil {
		RespondBadRequest(ctx, msgNotForPasswords, nil)
		return
	}

	cctx, cancel := requestCtx(ctx, 2*time.Second)
	defer cancel()

	u, err := h.update(cctx, ctx.Param("id"), req.Patch())
	if err != nil {
		RespondError(ctx, err)
		return
	}

	RespondData(ctx, http.StatusOK, "data", u)
}

// Delete deactivates the identity. Records are never removed.
func (h *UsersHandler) Delete(ctx *gin.Context) {
	cctx, cancel := requestCtx(ctx, 2*time.Second)
	defer cancel()

	if err := h.users.Deactivate(cctx, ctx.Param("id")); err != nil {
		RespondError(ctx, err)
		return
	}

	RespondNoContent(ctx)
}

// update skips the write when nothing would change.
func (h *UsersHandler) update(ctx context.Context, id string, patch user.Patch) (user.User, error) {
	if patch.Empty() {
		return h.users.GetByID(ctx, id)
	}
	return h.users.Update(ctx, id, patch)
}
