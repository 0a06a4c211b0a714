package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/enroll-web/internal/response"
	"github.com/stemsi/enroll-web/internal/service"
)

// MajorHandler exposes the list of majors.
type MajorHandler struct {
	majorService *service.MajorService
}

// NewMajorHandler creates a new MajorHandler.
func NewMajorHandler(majorService *service.MajorService) *MajorHandler {
	return &MajorHandler{majorService: majorService}
}

// ListMajors godoc
// GET /api/v1/majors
func (h *MajorHandler) ListMajors(c *gin.Context) {
	majors, err := h.majorService.GetAll(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"majors": majors})
}
