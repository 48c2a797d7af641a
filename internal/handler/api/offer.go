package api

import (
	"errors"
	"net/http"

	reqdto "rota-claims/internal/handler/dto/request"
	resdto "rota-claims/internal/handler/dto/response"
	"rota-claims/internal/handler/middleware"
	"rota-claims/internal/usecase/commands"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type OfferHandler struct {
	offerCommands commands.OfferCommands
}

func NewOfferHandler(offerCommands commands.OfferCommands) *OfferHandler {
	return &OfferHandler{
		offerCommands: offerCommands,
	}
}

// @Summary Issue offer batch
// @Description Send offers for a shift to its eligible candidates as one atomic batch
// @Tags offers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Shift ID"
// @Param Idempotency-Key header string false "Idempotency key for duplicate prevention"
// @Param request body reqdto.IssueOfferBatchRequest true "Batch request"
// @Success 201 {object} resdto.IssueOfferBatchResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Router /shifts/{id}/offers/batch [post]
func (h *OfferHandler) IssueBatch(c *gin.Context) {
	shiftID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid shift ID format",
		})
		return
	}

	idempotencyKey, err := optionalIdempotencyKey(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	var req reqdto.IssueOfferBatchRequest
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return
	}

	actorID, _ := middleware.GetStaffID(c)

	result, err := h.offerCommands.IssueBatch(c.Request.Context(), shiftID, req.Size, actorID, idempotencyKey)
	if err != nil {
		switch {
		case errors.Is(err, commands.ErrShiftNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Shift not found",
			})
		case errors.Is(err, commands.ErrShiftNotEligible):
			c.JSON(http.StatusConflict, gin.H{
				"error": "Shift is not open for offers",
			})
		case errors.Is(err, commands.ErrNoCandidates):
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error": "No eligible candidates for this shift",
			})
		case errors.Is(err, commands.ErrDuplicateRequest):
			c.JSON(http.StatusConflict, gin.H{
				"error": "Duplicate request with different parameters",
			})
		case errors.Is(err, commands.ErrRequestInProgress):
			c.JSON(http.StatusConflict, gin.H{
				"error": "Request is currently being processed",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Internal server error",
			})
		}
		return
	}

	if result.IsReplayed {
		c.Header("X-Idempotent-Replay", "true")
	}
	c.JSON(http.StatusCreated, resdto.FromIssueBatchResult(result))
}

// @Summary Accept offer
// @Description Claim the shift behind an offer; exactly one concurrent accept wins
// @Tags offers
// @Accept json
// @Produce json
// @Param id path string true "Offer ID"
// @Param Idempotency-Key header string false "Idempotency key for duplicate prevention"
// @Param request body reqdto.AcceptOfferRequest false "Acting staff fallback for anonymous callers"
// @Success 200 {object} resdto.AcceptOfferResponse
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 410 {object} map[string]string
// @Router /offers/{id}/accept [post]
func (h *OfferHandler) Accept(c *gin.Context) {
	offerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid offer ID format",
		})
		return
	}

	idempotencyKey, err := optionalIdempotencyKey(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	var req reqdto.AcceptOfferRequest
	if c.Request.ContentLength > 0 {
		if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid request format",
			})
			return
		}
	}

	// Token identity wins over the request body.
	actingStaffID := req.ActingStaffID()
	if tokenStaffID, ok := middleware.GetStaffID(c); ok {
		actingStaffID = tokenStaffID
	}

	result, err := h.offerCommands.Accept(c.Request.Context(), offerID, actingStaffID, idempotencyKey)
	if err != nil {
		switch {
		case errors.Is(err, commands.ErrOfferNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Offer not found",
			})
		case errors.Is(err, commands.ErrOfferExpired):
			c.JSON(http.StatusGone, gin.H{
				"error": "Offer has expired",
			})
		case errors.Is(err, commands.ErrRecipientMismatch):
			c.JSON(http.StatusForbidden, gin.H{
				"error": "Offer belongs to another staff member",
			})
		case errors.Is(err, commands.ErrDuplicateRequest):
			c.JSON(http.StatusConflict, gin.H{
				"error": "Duplicate request with different parameters",
			})
		case errors.Is(err, commands.ErrRequestInProgress):
			c.JSON(http.StatusConflict, gin.H{
				"error": "Request is currently being processed",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Internal server error",
			})
		}
		return
	}

	if result.IsReplayed {
		c.Header("X-Idempotent-Replay", "true")
	}
	c.JSON(http.StatusOK, resdto.FromAcceptResult(result))
}

// @Summary Close offer
// @Description Withdraw a still-open offer without a winner
// @Tags offers
// @Produce json
// @Security BearerAuth
// @Param id path string true "Offer ID"
// @Success 200 {object} resdto.CloseOfferResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /offers/{id}/close [post]
func (h *OfferHandler) Close(c *gin.Context) {
	offerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid offer ID format",
		})
		return
	}

	actorID, _ := middleware.GetStaffID(c)

	if err := h.offerCommands.Close(c.Request.Context(), offerID, actorID); err != nil {
		switch {
		case errors.Is(err, commands.ErrOfferNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Offer not found",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Internal server error",
			})
		}
		return
	}

	c.JSON(http.StatusOK, resdto.CloseOfferResponse{OK: true})
}

// optionalIdempotencyKey parses the Idempotency-Key header; absence is not
// an error, every mutating endpoint works without one.
func optionalIdempotencyKey(c *gin.Context) (uuid.UUID, error) {
	keyStr := c.GetHeader("Idempotency-Key")
	if keyStr == "" {
		return uuid.Nil, nil
	}

	key, err := uuid.Parse(keyStr)
	if err != nil {
		return uuid.Nil, errors.New("invalid idempotency key format")
	}

	return key, nil
}
