package handler

import (
	"pujaledger/pkg/response"

	"github.com/gin-gonic/gin"
)

type DonorRequest struct {
	Name  *string `json:"name"`
	Phone *string `json:"phone"`
}

// ListDonors GET /api/donors
func (h *Handler) ListDonors(c *gin.Context) {
	donors, err := h.donors.ListDonors(c.Request.Context())
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, donors)
}

// CreateDonor POST /api/donors
func (h *Handler) CreateDonor(c *gin.Context) {
	var req DonorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, bindError(err))
		return
	}
	donor, err := h.donors.CreateDonor(c.Request.Context(), deref(req.Name), deref(req.Phone))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Created(c, donor)
}

// UpdateDonor PUT /api/donors/:id
func (h *Handler) UpdateDonor(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Fail(c, err)
		return
	}
	var req DonorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, bindError(err))
		return
	}
	donor, err := h.donors.UpdateDonor(c.Request.Context(), id, req.Name, req.Phone)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, donor)
}
