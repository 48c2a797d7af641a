package api

import (
	"errors"
	"net/http"
	"time"

	reqdto "rota-claims/internal/handler/dto/request"
	resdto "rota-claims/internal/handler/dto/response"
	"rota-claims/internal/handler/middleware"
	"rota-claims/internal/usecase/commands"
	"rota-claims/internal/usecase/queries"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ShiftHandler struct {
	shiftCommands commands.ShiftCommands
	shiftQueries  queries.ShiftQueries
	eligibility   queries.EligibilityQueries
}

func NewShiftHandler(
	shiftCommands commands.ShiftCommands,
	shiftQueries queries.ShiftQueries,
	eligibility queries.EligibilityQueries,
) *ShiftHandler {
	return &ShiftHandler{
		shiftCommands: shiftCommands,
		shiftQueries:  shiftQueries,
		eligibility:   eligibility,
	}
}

// @Summary List site shifts
// @Description List shifts for a site, optionally bounded by a time range
// @Tags shifts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Site ID"
// @Param from query string false "Range start (RFC3339)"
// @Param to query string false "Range end (RFC3339)"
// @Success 200 {array} resdto.ShiftResponse
// @Failure 400 {object} map[string]string
// @Router /sites/{id}/shifts [get]
func (h *ShiftHandler) ListBySite(c *gin.Context) {
	siteID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid site ID format",
		})
		return
	}

	from, err := optionalTimeQuery(c, "from")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid from timestamp",
		})
		return
	}
	to, err := optionalTimeQuery(c, "to")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid to timestamp",
		})
		return
	}

	views, err := h.shiftQueries.ListBySite(c.Request.Context(), siteID, from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}

	response := make([]*resdto.ShiftResponse, len(views))
	for i, view := range views {
		response[i] = resdto.FromShiftView(view)
	}
	c.JSON(http.StatusOK, response)
}

// @Summary Upsert shift
// @Description Create or update a draft/published shift for rota planning
// @Tags shifts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Site ID"
// @Param request body reqdto.UpsertShiftRequest true "Shift input"
// @Success 200 {object} resdto.UpsertShiftResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /sites/{id}/shifts [post]
func (h *ShiftHandler) Upsert(c *gin.Context) {
	siteID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid site ID format",
		})
		return
	}

	var req reqdto.UpsertShiftRequest
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return
	}

	actorID, _ := middleware.GetStaffID(c)

	input := commands.UpsertShiftInput{
		ID:       req.ID,
		Role:     req.Role,
		StartsAt: req.StartsAt,
		EndsAt:   req.EndsAt,
		Status:   req.Status,
	}

	shiftID, err := h.shiftCommands.Upsert(c.Request.Context(), siteID, input, actorID)
	if err != nil {
		switch {
		case errors.Is(err, commands.ErrShiftNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Shift not found",
			})
		case errors.Is(err, commands.ErrShiftInputInvalid):
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid shift input",
			})
		case errors.Is(err, commands.ErrShiftNotEditable):
			c.JSON(http.StatusConflict, gin.H{
				"error": "Shift can no longer be edited",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Internal server error",
			})
		}
		return
	}

	c.JSON(http.StatusOK, resdto.UpsertShiftResponse{ID: shiftID})
}

// @Summary Report sickness
// @Description Retire a shift whose assignee called in sick and reopen the slot
// @Tags shifts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Shift ID"
// @Success 200 {object} resdto.SicknessResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /shifts/{id}/sickness [post]
func (h *ShiftHandler) ReportSickness(c *gin.Context) {
	shiftID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid shift ID format",
		})
		return
	}

	actorID, _ := middleware.GetStaffID(c)

	result, err := h.shiftCommands.ReportSickness(c.Request.Context(), shiftID, actorID)
	if err != nil {
		switch {
		case errors.Is(err, commands.ErrShiftNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Shift not found",
			})
		case errors.Is(err, commands.ErrSicknessNotApplicable):
			c.JSON(http.StatusConflict, gin.H{
				"error": "Shift cannot be flagged as sickness",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Internal server error",
			})
		}
		return
	}

	c.JSON(http.StatusOK, resdto.FromSicknessResult(result))
}

// @Summary Shift eligibility
// @Description Per-staff eligibility checks for a shift, for operator inspection
// @Tags shifts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Shift ID"
// @Success 200 {object} resdto.EligibilityResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /shifts/{id}/eligibility [get]
func (h *ShiftHandler) Eligibility(c *gin.Context) {
	shiftID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid shift ID format",
		})
		return
	}

	results, version, err := h.eligibility.Evaluate(c.Request.Context(), shiftID)
	if err != nil {
		switch {
		case errors.Is(err, queries.ErrShiftNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Shift not found",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Internal server error",
			})
		}
		return
	}

	c.JSON(http.StatusOK, resdto.FromEligibilityResults(results, version))
}

func optionalTimeQuery(c *gin.Context, name string) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
