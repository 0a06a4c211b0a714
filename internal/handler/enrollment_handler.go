package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/enroll-web/internal/middleware"
	"github.com/stemsi/enroll-web/internal/response"
	"github.com/stemsi/enroll-web/internal/service"
)

// EnrollmentHandler lets the logged-in student join and leave classes.
type EnrollmentHandler struct {
	classService      *service.ClassService
	enrollmentService *service.EnrollmentService
	log               zerolog.Logger
}

// NewEnrollmentHandler creates a new EnrollmentHandler.
func NewEnrollmentHandler(
	classService *service.ClassService,
	enrollmentService *service.EnrollmentService,
	log zerolog.Logger,
) *EnrollmentHandler {
	return &EnrollmentHandler{
		classService:      classService,
		enrollmentService: enrollmentService,
		log:               log.With().Str("component", "enrollment_handler").Logger(),
	}
}

// Enroll godoc
// POST /enroll/:classid
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	student := middleware.CurrentStudent(c)
	id, ok := paramID(c, "classid")
	if !ok {
		middleware.AddFlash(c, middleware.FlashError, "Class not found.")
		redirect(c, "/index")
		return
	}

	created, err := h.enrollmentService.Enroll(c.Request.Context(), student.ID, id)
	switch {
	case errors.Is(err, service.ErrClassNotFound):
		middleware.AddFlash(c, middleware.FlashError, "Class not found.")
	case err != nil:
		h.log.Error().Err(err).Int("student_id", student.ID).Int("class_id", id).Msg("Enroll failed")
		middleware.AddFlash(c, middleware.FlashError, response.GetMessage(response.ErrInternal))
	case created:
		middleware.AddFlash(c, middleware.FlashSuccess, "You are now enrolled in "+h.label(c, id)+".")
	default:
		middleware.AddFlash(c, middleware.FlashInfo, "You are already enrolled in "+h.label(c, id)+".")
	}
	redirect(c, "/index")
}

// Unenroll godoc
// POST /unenroll/:classid
func (h *EnrollmentHandler) Unenroll(c *gin.Context) {
	student := middleware.CurrentStudent(c)
	id, ok := paramID(c, "classid")
	if !ok {
		middleware.AddFlash(c, middleware.FlashError, "Class not found.")
		redirect(c, "/index")
		return
	}

	removed, err := h.enrollmentService.Unenroll(c.Request.Context(), student.ID, id)
	switch {
	case err != nil:
		h.log.Error().Err(err).Int("student_id", student.ID).Int("class_id", id).Msg("Unenroll failed")
		middleware.AddFlash(c, middleware.FlashError, response.GetMessage(response.ErrInternal))
	case removed:
		middleware.AddFlash(c, middleware.FlashSuccess, "You have been unenrolled from "+h.label(c, id)+".")
	default:
		middleware.AddFlash(c, middleware.FlashInfo, "You are not enrolled in "+h.label(c, id)+".")
	}
	redirect(c, "/index")
}

// label names the class for flash messages.
func (h *EnrollmentHandler) label(c *gin.Context, id int) string {
	class, err := h.classService.GetByID(c.Request.Context(), id)
	if err != nil {
		return "the class"
	}
	return class.Label()
}

// MyClasses godoc
// GET /api/v1/me/classes
func (h *EnrollmentHandler) MyClasses(c *gin.Context) {
	student := middleware.CurrentStudent(c)
	list, err := h.enrollmentService.StudentClasses(c.Request.Context(), student.ID)
	if err != nil {
		h.log.Error().Err(err).Int("student_id", student.ID).Msg("List student classes failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"enrollments": list})
}

// APIEnroll godoc
// POST /api/v1/classes/:id/enrollment
// Responds 201 when a new enrollment is created and 200 when it already existed.
func (h *EnrollmentHandler) APIEnroll(c *gin.Context) {
	student := middleware.CurrentStudent(c)
	id, ok := paramID(c, "id")
	if !ok {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	created, err := h.enrollmentService.Enroll(c.Request.Context(), student.ID, id)
	if err != nil {
		if errors.Is(err, service.ErrClassNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		h.log.Error().Err(err).Int("student_id", student.ID).Int("class_id", id).Msg("Enroll failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	response.Success(c, status, gin.H{"class_id": id, "enrolled": true, "created": created})
}

// APIUnenroll godoc
// DELETE /api/v1/classes/:id/enrollment
func (h *EnrollmentHandler) APIUnenroll(c *gin.Context) {
	student := middleware.CurrentStudent(c)
	id, ok := paramID(c, "id")
	if !ok {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	removed, err := h.enrollmentService.Unenroll(c.Request.Context(), student.ID, id)
	if err != nil {
		h.log.Error().Err(err).Int("student_id", student.ID).Int("class_id", id).Msg("Unenroll failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"class_id": id, "enrolled": false, "removed": removed})
}
