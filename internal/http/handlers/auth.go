package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/tourhub/internal/auth"
	"github.com/geocoder89/tourhub/internal/config"
	"github.com/geocoder89/tourhub/internal/domain/user"
	"github.com/geocoder89/tourhub/internal/http/apierr"
	"github.com/geocoder89/tourhub/internal/http/middlewares"
	"github.com/geocoder89/tourhub/internal/jobs"
	"github.com/geocoder89/tourhub/internal/notifications"
	"github.com/geocoder89/tourhub/internal/security"
	"github.com/gin-gonic/gin"
)

const (
	msgBadCredentials = "Incorrect email or password"
	msgTokenInvalid   = "Token is invalid or has expired"
	logoutCookieTTL   = 10 // seconds
)

type AuthHandler struct {
	users  UsersStore
	tokens *auth.Manager
	hooks  user.Hooks
	mailer notifications.Mailer
	queue  Enqueuer
	cfg    config.Config
	log    *slog.Logger
	now    func() time.Time
}

type AuthDeps struct {
	Users  UsersStore
	Tokens *auth.Manager
	Hooks  user.Hooks
	Mailer notifications.Mailer
	// Queue is optional. Without it no welcome email is scheduled.
	Queue Enqueuer
	Cfg   config.Config
	Log   *slog.Logger
}

func NewAuthHandler(d AuthDeps) *AuthHandler {
	log := d.Log
	if log == nil {
		log = slog.Default()
	}
	return &AuthHandler{
		users:  d.Users,
		tokens: d.Tokens,
		hooks:  d.Hooks,
		mailer: d.Mailer,
		queue:  d.Queue,
		cfg:    d.Cfg,
		log:    log,
		now:    time.Now,
	}
}

func (h *AuthHandler) SignUp(ctx *gin.Context) {
	var req user.SignupRequest

	if !BindJSON(ctx, &req) {
		return
	}

	u, change := user.NewFromSignup(req, h.now().UTC())
	if err := h.hooks.Run(&u, change); err != nil {
		RespondError(ctx, apierr.Internal(err))
		return
	}

	cctx, cancel := requestCtx(ctx, 3*time.Second)
	defer cancel()

	created, err := h.users.Create(cctx, u)
	if err != nil {
		RespondError(ctx, err)
		return
	}

	h.scheduleWelcome(ctx, created)
	h.sendToken(ctx, http.StatusCreated, created)
}

// scheduleWelcome enqueues the welcome email. A failure is logged and never
// fails the signup.
func (h *AuthHandler) scheduleWelcome(ctx *gin.Context, u user.User) {
	if h.queue == nil {
		return
	}

	j, err := jobs.NewJob(jobs.JobWelcomeEmail, jobs.WelcomeEmailPayload{
		UserID:    u.ID,
		Email:     u.Email,
		Name:      u.Name,
		URL:       h.baseURL(ctx) + "/api/v1/users/me",
		RequestID: middlewares.RequestIDFrom(ctx),
	}, h.now().UTC())
	if err == nil {
		cctx, cancel := requestCtx(ctx, time.Second)
		err = h.queue.Enqueue(cctx, j)
		cancel()
	}
	if err != nil {
		h.log.WarnContext(ctx.Request.Context(), "auth.welcome_enqueue_failed",
			"user_id", u.ID,
			"err", err,
		)
	}
}

// Login answers every failure with the same 400 and stops there.
func (h *AuthHandler) Login(ctx *gin.Context) {
	var req user.LoginRequest

	if err := ctx.ShouldBindJSON(&req); err != nil || req.Email == "" || req.Password == "" {
		RespondBadRequest(ctx, msgBadCredentials, nil)
		return
	}

	cctx, cancel := requestCtx(ctx, 2*time.Second)
	defer cancel()

	u, err := h.users.GetByEmail(cctx, req.Email, user.WithSecret())
	if err != nil {
		if !errors.Is(err, user.ErrNotFound) {
			RespondError(ctx, err)
			return
		}
		security.BurnCompare(req.Password)
		RespondBadRequest(ctx, msgBadCredentials, nil)
		return
	}

	if err := security.CheckPassword(u.PasswordHash, req.Password); err != nil {
		RespondBadRequest(ctx, msgBadCredentials, nil)
		return
	}

	h.sendToken(ctx, http.StatusOK, u)
}

// Logout overwrites the session cookie with a short-lived placeholder.
func (h *AuthHandler) Logout(ctx *gin.Context) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(middlewares.CookieName, middlewares.LoggedOutValue, logoutCookieTTL, "/", "", h.secureCookie(), true)
	ctx.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *AuthHandler) ForgotPassword(ctx *gin.Context) {
	var req user.ForgotPasswordRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := requestCtx(ctx, 2*time.Second)
	defer cancel()

	u, err := h.users.GetByEmail(cctx, req.Email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondError(ctx, apierr.NotFound("There is no user with that email address."))
			return
		}
		RespondError(ctx, err)
		return
	}

	plain, digest, err := security.NewResetToken()
	if err != nil {
		RespondError(ctx, apierr.Internal(err))
		return
	}

	expires := h.now().UTC().Add(h.cfg.ResetTokenTTL)
	if err := h.users.SetResetToken(cctx, u.ID, digest, expires); err != nil {
		RespondError(ctx, err)
		return
	}

	resetURL := h.baseURL(ctx) + "/api/v1/users/resetPassword/" + plain
	msg, err := notifications.PasswordResetMessage(u.Email, u.Name, resetURL, h.cfg.ResetTokenTTL)
	if err == nil {
		err = h.mailer.Send(ctx.Request.Context(), msg)
	}
	if err != nil {
		h.log.ErrorContext(ctx.Request.Context(), "auth.reset_mail_failed", "user_id", u.ID, "err", err)

		// The request context may already be gone; the rollback must still run.
		rctx, rcancel := context.WithTimeout(context.WithoutCancel(ctx.Request.Context()), 2*time.Second)
		defer rcancel()
		if cerr := h.users.ClearResetToken(rctx, u.ID); cerr != nil {
			h.log.ErrorContext(rctx, "auth.reset_rollback_failed", "user_id", u.ID, "err", cerr)
		}

		RespondError(ctx, &apierr.AppError{
			Status:  http.StatusInternalServerError,
			Code:    "email_failed",
			Message: "There was an error sending the email. Try again later!",
			Err:     err,
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Token sent to email!",
	})
}

func (h *AuthHandler) ResetPassword(ctx *gin.Context) {
	var req user.ResetPasswordRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := requestCtx(ctx, 3*time.Second)
	defer cancel()

	digest := security.HashToken(ctx.Param("token"))
	u, err := h.users.GetByResetToken(cctx, digest, h.now().UTC())
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondBadRequest(ctx, msgTokenInvalid, nil)
			return
		}
		RespondError(ctx, err)
		return
	}

	u.PasswordResetToken = ""
	u.PasswordResetExpires = nil

	saved, err := h.savePassword(cctx, u, req.Password)
	if err != nil {
		RespondError(ctx, err)
		return
	}

	h.sendToken(ctx, http.StatusOK, saved)
}

func (h *AuthHandler) UpdatePassword(ctx *gin.Context) {
	current, ok := middlewares.CurrentUser(ctx)
	if !ok {
		RespondError(ctx, apierr.Unauthorized("unauthorized", "You are not logged in! Please log in to get access."))
		return
	}

	var req user.UpdatePasswordRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := requestCtx(ctx, 3*time.Second)
	defer cancel()

	u, err := h.users.GetByID(cctx, current.ID, user.WithSecret())
	if err != nil {
		RespondError(ctx, err)
		return
	}

	if err := security.CheckPassword(u.PasswordHash, req.PasswordCurrent); err != nil {
		RespondError(ctx, apierr.Unauthorized("wrong_password", "Your current password is wrong."))
		return
	}

	saved, err := h.savePassword(cctx, u, req.Password)
	if err != nil {
		RespondError(ctx, err)
		return
	}

	h.sendToken(ctx, http.StatusOK, saved)
}

// savePassword runs the save hooks for a new secret and persists u.
func (h *AuthHandler) savePassword(ctx context.Context, u user.User, plain string) (user.User, error) {
	change := &user.Change{Password: &plain}
	if err := h.hooks.Run(&u, change); err != nil {
		return user.User{}, apierr.Internal(err)
	}
	return h.users.Save(ctx, u)
}

// sendToken issues a token for u, sets the session cookie and writes the
// token response.
func (h *AuthHandler) sendToken(ctx *gin.Context, status int, u user.User) {
	token, _, err := h.tokens.Issue(u.ID)
	if err != nil {
		RespondError(ctx, apierr.Internal(err))
		return
	}

	maxAge := h.cfg.JWTCookieDays * 24 * 60 * 60
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(middlewares.CookieName, token, maxAge, "/", "", h.secureCookie(), true)

	u.PasswordHash = ""
	ctx.JSON(status, gin.H{
		"status": "success",
		"token":  token,
		"data":   gin.H{"user": u},
	})
}

func (h *AuthHandler) secureCookie() bool {
	return !h.cfg.IsDevelopment()
}

// baseURL prefers the configured public URL over the request's own host.
func (h *AuthHandler) baseURL(ctx *gin.Context) string {
	if h.cfg.PublicBaseURL != "" {
		return h.cfg.PublicBaseURL
	}

	scheme := "http"
	if ctx.Request.TLS != nil || ctx.GetHeader("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + ctx.Request.Host
}
