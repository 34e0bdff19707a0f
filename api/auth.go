package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kochabx/passport/core/auth"
	middleware "github.com/kochabx/passport/middleware/http"
	transport "github.com/kochabx/passport/transport/http"
)

type registerRequest struct {
	auth.RegisterInput
	RememberMe bool `json:"remember_me"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type logoutRequest struct {
	SessionToken string `json:"session_token"`
}

type logoutResponse struct {
	Message     string    `json:"message"`
	LoggedOutAt time.Time `json:"logged_out_at"`
}

type verifyResponse struct {
	Valid    bool   `json:"valid"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// register 注册成功后直接登录，返回 201 与令牌
func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := bind(c, &req); err != nil {
		transport.GinJSONE(c, err)
		return
	}

	ctx := c.Request.Context()
	if _, err := h.svc.Register(ctx, req.RegisterInput); err != nil {
		transport.GinJSONE(c, err)
		return
	}

	pair, err := h.svc.Login(ctx, auth.LoginInput{
		Username:   req.Username,
		Password:   req.Password,
		RememberMe: req.RememberMe,
		IP:         middleware.ClientIP(c),
		UserAgent:  c.Request.UserAgent(),
	})
	if err != nil {
		transport.GinJSONE(c, err)
		return
	}
	transport.GinJSONStatus(c, http.StatusCreated, pair)
}

func (h *Handler) login(c *gin.Context) {
	var in auth.LoginInput
	if err := bind(c, &in); err != nil {
		transport.GinJSONE(c, err)
		return
	}
	in.IP = middleware.ClientIP(c)
	in.UserAgent = c.Request.UserAgent()

	pair, err := h.svc.Login(c.Request.Context(), in)
	if err != nil {
		transport.GinJSONE(c, err)
		return
	}
	transport.GinJSON(c, pair)
}

func (h *Handler) refresh(c *gin.Context) {
	var req refreshRequest
	if err := bind(c, &req); err != nil {
		transport.GinJSONE(c, err)
		return
	}
	if req.RefreshToken == "" {
		transport.GinJSONE(c, required("refresh_token"))
		return
	}

	pair, err := h.svc.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		transport.GinJSONE(c, err)
		return
	}
	transport.GinJSON(c, pair)
}

// logout 会话令牌优先取请求头，其次取请求体
func (h *Handler) logout(c *gin.Context) {
	tok := c.GetHeader(HeaderSessionToken)
	if tok == "" && c.Request.ContentLength != 0 {
		var req logoutRequest
		if err := bind(c, &req); err != nil {
			transport.GinJSONE(c, err)
			return
		}
		tok = req.SessionToken
	}
	if tok == "" {
		transport.GinJSONE(c, required("session_token"))
		return
	}

	if err := h.svc.Logout(c.Request.Context(), tok); err != nil {
		transport.GinJSONE(c, err)
		return
	}
	transport.GinJSON(c, logoutResponse{Message: "Successfully logged out", LoggedOutAt: time.Now().UTC()})
}

func (h *Handler) logoutAll(c *gin.Context) {
	if err := h.svc.LogoutAll(c.Request.Context(), caller(c).UserID); err != nil {
		transport.GinJSONE(c, err)
		return
	}
	transport.GinJSON(c, logoutResponse{Message: "Successfully logged out from all sessions", LoggedOutAt: time.Now().UTC()})
}

func (h *Handler) me(c *gin.Context) {
	user, err := h.svc.Me(c.Request.Context(), caller(c).UserID)
	if err != nil {
		transport.GinJSONE(c, err)
		return
	}
	transport.GinJSON(c, user)
}

// verify 令牌已由中间件校验
func (h *Handler) verify(c *gin.Context) {
	id := caller(c)
	transport.GinJSON(c, verifyResponse{Valid: true, UserID: id.UserID, Username: id.Username})
}

func (h *Handler) verifySession(c *gin.Context) {
	tok := c.GetHeader(HeaderSessionToken)
	if tok == "" {
		transport.GinJSONE(c, auth.ErrSessionNotFound)
		return
	}

	user, err := h.svc.VerifySession(c.Request.Context(), tok)
	if err != nil {
		transport.GinJSONE(c, err)
		return
	}
	transport.GinJSON(c, user)
}
