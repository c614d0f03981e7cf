package handler

import (
	"pujaledger/pkg/response"

	"github.com/gin-gonic/gin"
)

type LoginRequest struct {
	LoginName string `json:"loginName" binding:"required"`
	Password  string `json:"password" binding:"required"`
}

// Login 登录
// POST /api/auth/login
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, bindError(err))
		return
	}
	result, err := h.auth.Login(c.Request.Context(), req.LoginName, req.Password)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, result)
}

type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required"`
}

// ChangePassword 修改当前账号密码
// POST /api/auth/change-password
func (h *Handler) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, bindError(err))
		return
	}
	principal := currentPrincipal(c)
	if err := h.auth.ChangePassword(c.Request.Context(), principal.IdentityID, req.OldPassword, req.NewPassword); err != nil {
		response.Fail(c, err)
		return
	}
	response.Message(c, "password updated")
}

type CreateUserRequest struct {
	LoginName string `json:"loginName"`
	Password  string `json:"password"`
	Role      string `json:"role"`
}

// CreateUser 管理员创建登录账号
// POST /api/auth/create-user
func (h *Handler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, bindError(err))
		return
	}
	identity, err := h.auth.CreateUser(c.Request.Context(), req.LoginName, req.Password, req.Role)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Created(c, gin.H{
		"id":        identity.ID,
		"loginName": identity.LoginName,
		"role":      identity.Role,
	})
}
