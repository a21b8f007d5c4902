package httpapi

import (
	"net/http"

	"github.com/dkeye/confcore/internal/apperr"
	"github.com/dkeye/confcore/internal/domain"
	"github.com/dkeye/confcore/internal/user"
	"github.com/gin-gonic/gin"
)

type registerRequest struct {
	Username string              `json:"username"`
	Email    string              `json:"email"`
	Password string              `json:"password"`
	Profile  domain.UserProfile  `json:"profile"`
}

func (h *handlers) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperr.New(apperr.BadRequest, "invalid request body"))
		return
	}
	ctx, cancel := withTimeout(c, defaultTimeout)
	defer cancel()

	u, token, err := h.deps.Users.Register(ctx, user.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Profile:  req.Profile,
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, "account created", gin.H{"user": u.PublicView(), "token": token})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *handlers) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperr.New(apperr.BadRequest, "invalid request body"))
		return
	}
	ctx, cancel := withTimeout(c, defaultTimeout)
	defer cancel()

	u, token, err := h.deps.Users.Login(ctx, req.Email, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "logged in", gin.H{"user": u.PublicView(), "token": token})
}

type guestRequest struct {
	Username string `json:"username"`
}

func (h *handlers) guest(c *gin.Context) {
	var req guestRequest
	_ = c.ShouldBindJSON(&req)
	ctx, cancel := withTimeout(c, defaultTimeout)
	defer cancel()

	u, token, err := h.deps.Users.Guest(ctx, req.Username)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, "guest session created", gin.H{"user": u.PublicView(), "token": token})
}

func (h *handlers) me(c *gin.Context) {
	u := currentUser(c)
	ok(c, http.StatusOK, "", u.PublicView())
}

type updateProfileRequest struct {
	Profile     *domain.UserProfile     `json:"profile"`
	Preferences *domain.UserPreferences `json:"preferences"`
}

func (h *handlers) updateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperr.New(apperr.BadRequest, "invalid request body"))
		return
	}
	ctx, cancel := withTimeout(c, defaultTimeout)
	defer cancel()

	u, err := h.deps.Users.UpdateProfile(ctx, currentUser(c).ID, req.Profile, req.Preferences)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "profile updated", u.PublicView())
}

func (h *handlers) logout(c *gin.Context) {
	ctx, cancel := withTimeout(c, defaultTimeout)
	defer cancel()

	if err := h.deps.Users.Logout(ctx, currentUser(c).ID); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "logged out", nil)
}
