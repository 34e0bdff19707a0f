package api

import (
	"github.com/gin-gonic/gin"

	"github.com/kochabx/passport/core/auth"
	transport "github.com/kochabx/passport/transport/http"
)

type passwordRequest struct {
	CurrentPassword    string `json:"current_password"`
	NewPassword        string `json:"new_password"`
	ConfirmNewPassword string `json:"confirm_new_password"`
}

func (h *Handler) changePassword(c *gin.Context) {
	var req passwordRequest
	if err := bind(c, &req); err != nil {
		transport.GinJSONE(c, err)
		return
	}
	if req.ConfirmNewPassword != "" && req.ConfirmNewPassword != req.NewPassword {
		transport.GinJSONE(c, auth.ErrValidation.WithMetadata(map[string]string{
			"confirm_new_password": "confirm_new_password must be equal to new_password",
		}))
		return
	}

	if err := h.svc.ChangePassword(c.Request.Context(), caller(c).UserID, req.CurrentPassword, req.NewPassword); err != nil {
		transport.GinJSONE(c, err)
		return
	}
	transport.GinJSON(c, gin.H{"message": "Password changed, all sessions logged out"})
}

func (h *Handler) updateProfile(c *gin.Context) {
	var in auth.ProfileInput
	if err := bind(c, &in); err != nil {
		transport.GinJSONE(c, err)
		return
	}

	user, err := h.svc.UpdateProfile(c.Request.Context(), caller(c).UserID, in)
	if err != nil {
		transport.GinJSONE(c, err)
		return
	}
	transport.GinJSON(c, user)
}

func (h *Handler) deactivate(c *gin.Context) {
	if err := h.svc.Deactivate(c.Request.Context(), caller(c).UserID); err != nil {
		transport.GinJSONE(c, err)
		return
	}
	transport.GinJSON(c, gin.H{"message": "Account deactivated"})
}
