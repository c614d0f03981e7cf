package handler

import (
	"time"

	"pujaledger/internal/service"
	"pujaledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// MemberRequest 创建与修改共用；contribution 不接受客户端传入
type MemberRequest struct {
	Name        *string    `json:"name"`
	Role        *string    `json:"role"`
	Position    *string    `json:"position"`
	Phone       *string    `json:"phone"`
	AadhaarID   *string    `json:"aadhaarId"`
	Active      *bool      `json:"active"`
	JoiningDate *time.Time `json:"joiningDate"`
	LoginName   *string    `json:"loginName"`
	Password    *string    `json:"password"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// ListMembers GET /api/members
func (h *Handler) ListMembers(c *gin.Context) {
	members, err := h.members.ListMembers(c.Request.Context())
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, members)
}

// GetMemberStats GET /api/members/stats
func (h *Handler) GetMemberStats(c *gin.Context) {
	stats, err := h.members.GetStats(c.Request.Context())
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, stats)
}

// CreateMember POST /api/members
func (h *Handler) CreateMember(c *gin.Context) {
	var req MemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, bindError(err))
		return
	}
	member, err := h.members.CreateMember(c.Request.Context(), service.CreateMemberInput{
		Name:        deref(req.Name),
		Role:        deref(req.Role),
		Position:    deref(req.Position),
		Phone:       deref(req.Phone),
		AadhaarID:   deref(req.AadhaarID),
		Active:      req.Active,
		JoiningDate: req.JoiningDate,
		LoginName:   deref(req.LoginName),
		Password:    deref(req.Password),
	})
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Created(c, member)
}

// UpdateMember PUT /api/members/:id
func (h *Handler) UpdateMember(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Fail(c, err)
		return
	}
	var req MemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, bindError(err))
		return
	}
	member, err := h.members.UpdateMember(c.Request.Context(), id, service.UpdateMemberInput{
		Name:        req.Name,
		Role:        req.Role,
		Position:    req.Position,
		Phone:       req.Phone,
		AadhaarID:   req.AadhaarID,
		Active:      req.Active,
		JoiningDate: req.JoiningDate,
		LoginName:   req.LoginName,
		Password:    req.Password,
	})
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, member)
}

// DeleteMember DELETE /api/members/:id
func (h *Handler) DeleteMember(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Fail(c, err)
		return
	}
	if err := h.members.DeleteMember(c.Request.Context(), id); err != nil {
		response.Fail(c, err)
		return
	}
	response.Message(c, "member deleted")
}

// ReconcileMembers POST /api/members/reconcile?fix=true
func (h *Handler) ReconcileMembers(c *gin.Context) {
	fix := c.Query("fix") == "true"
	drifts, err := h.reconcile.ReconcileContributions(c.Request.Context(), fix)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, gin.H{"fixed": fix, "drifts": drifts})
}
