package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/enroll-web/internal/middleware"
	"github.com/stemsi/enroll-web/internal/model"
	"github.com/stemsi/enroll-web/internal/response"
	"github.com/stemsi/enroll-web/internal/service"
	"github.com/stemsi/enroll-web/internal/validator"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ClassHandler serves the course list, class creation and class rosters.
type ClassHandler struct {
	classService      *service.ClassService
	majorService      *service.MajorService
	enrollmentService *service.EnrollmentService
	log               zerolog.Logger
}

// NewClassHandler creates a new ClassHandler.
func NewClassHandler(
	classService *service.ClassService,
	majorService *service.MajorService,
	enrollmentService *service.EnrollmentService,
	log zerolog.Logger,
) *ClassHandler {
	return &ClassHandler{
		classService:      classService,
		majorService:      majorService,
		enrollmentService: enrollmentService,
		log:               log.With().Str("component", "class_handler").Logger(),
	}
}

// Index godoc
// GET /, /index
// Greets the student and lists every class with an enroll or unenroll action.
func (h *ClassHandler) Index(c *gin.Context) {
	ctx := c.Request.Context()
	student := middleware.CurrentStudent(c)

	classes, err := h.classService.List(ctx)
	if err != nil {
		h.fail(c, err, "List classes failed")
		return
	}
	mine, err := h.enrollmentService.StudentClasses(ctx, student.ID)
	if err != nil {
		h.fail(c, err, "List student classes failed")
		return
	}
	enrolled, err := h.enrollmentService.EnrolledClassIDs(ctx, student.ID)
	if err != nil {
		h.fail(c, err, "List enrolled class ids failed")
		return
	}

	render(c, http.StatusOK, "index.html", "Home", gin.H{
		"Classes":   classes,
		"MyClasses": mine,
		"Enrolled":  enrolled,
	})
}

// CreateClassPage godoc
// GET /createclass
func (h *ClassHandler) CreateClassPage(c *gin.Context) {
	h.renderCreate(c, model.CreateClassRequest{}, nil)
}

// CreateClass godoc
// POST /createclass
// Invalid input re-renders the form with field errors and stores nothing.
func (h *ClassHandler) CreateClass(c *gin.Context) {
	var req model.CreateClassRequest
	if fields := validator.BindForm(c, &req); fields != nil {
		h.renderCreate(c, req, fields)
		return
	}

	class, err := h.classService.Create(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, model.ErrValidation) {
			h.renderCreate(c, req, validator.TranslateErrors(err))
			return
		}
		h.fail(c, err, "Create class failed")
		return
	}

	h.log.Info().Int("class_id", class.ID).Str("class", class.Label()).Msg("Class created")
	middleware.AddFlash(c, middleware.FlashSuccess, fmt.Sprintf("Class %s has been created.", class.Label()))
	redirect(c, "/index")
}

func (h *ClassHandler) renderCreate(c *gin.Context, req model.CreateClassRequest, fields map[string]string) {
	majors, err := h.majorService.GetAll(c.Request.Context())
	if err != nil {
		h.fail(c, err, "List majors failed")
		return
	}
	render(c, http.StatusOK, "createclass.html", "Create Class", gin.H{
		"Form":   req,
		"Errors": fields,
		"Majors": majors,
	})
}

// Roster godoc
// GET /roster/:classid
func (h *ClassHandler) Roster(c *gin.Context) {
	class, ok := h.pageClass(c)
	if !ok {
		return
	}
	roster, err := h.enrollmentService.Roster(c.Request.Context(), class.ID)
	if err != nil {
		h.fail(c, err, "Load roster failed")
		return
	}
	render(c, http.StatusOK, "roster.html", class.Label(), gin.H{"Class": class, "Roster": roster})
}

// ExportRoster godoc
// GET /roster/:classid/export
// Streams the roster as an .xlsx workbook.
func (h *ClassHandler) ExportRoster(c *gin.Context) {
	class, ok := h.pageClass(c)
	if !ok {
		return
	}

	f, err := h.enrollmentService.ExportRoster(c.Request.Context(), class)
	if err != nil {
		h.fail(c, err, "Export roster failed")
		return
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		h.fail(c, err, "Write roster workbook failed")
		return
	}

	filename := fmt.Sprintf("roster-%s%s.xlsx", class.Major, class.CourseNum)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// pageClass loads the class named by :classid or renders a 404 page.
func (h *ClassHandler) pageClass(c *gin.Context) (*model.Class, bool) {
	id, ok := paramID(c, "classid")
	if !ok {
		renderError(c, http.StatusNotFound, "Class not found.")
		return nil, false
	}
	class, err := h.classService.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrClassNotFound) {
			renderError(c, http.StatusNotFound, "Class not found.")
			return nil, false
		}
		h.fail(c, err, "Load class failed")
		return nil, false
	}
	return class, true
}

func (h *ClassHandler) fail(c *gin.Context, err error, msg string) {
	h.log.Error().Err(err).Msg(msg)
	renderError(c, http.StatusInternalServerError, response.GetMessage(response.ErrInternal))
}

// ListClasses godoc
// GET /api/v1/classes
func (h *ClassHandler) ListClasses(c *gin.Context) {
	classes, err := h.classService.List(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("List classes failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"classes": classes})
}

// APICreateClass godoc
// POST /api/v1/classes
func (h *ClassHandler) APICreateClass(c *gin.Context) {
	var req model.CreateClassRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	class, err := h.classService.Create(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, model.ErrValidation) {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, validator.TranslateErrors(err))
			return
		}
		h.log.Error().Err(err).Msg("Create class failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"class": class})
}

// GetRoster godoc
// GET /api/v1/classes/:id/roster
func (h *ClassHandler) GetRoster(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	class, err := h.classService.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrClassNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		h.log.Error().Err(err).Int("class_id", id).Msg("Load class failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	roster, err := h.enrollmentService.Roster(c.Request.Context(), id)
	if err != nil {
		h.log.Error().Err(err).Int("class_id", id).Msg("Load roster failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"class": class, "roster": roster})
}
