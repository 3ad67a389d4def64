package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/gigmarket/internal/domain/repository"
	"github.com/ignatzorin/gigmarket/internal/domain/valueobject"
	"github.com/ignatzorin/gigmarket/internal/interface/http/dto"
	"github.com/ignatzorin/gigmarket/internal/interface/http/response"
	"github.com/ignatzorin/gigmarket/internal/usecase/gig"
	"github.com/ignatzorin/gigmarket/internal/usecase/query"
)

type GigHandler struct {
	createGigUC *gig.CreateGigUseCase
	cancelGigUC *gig.CancelGigUseCase
	queries     *query.Service
}

func NewGigHandler(createGigUC *gig.CreateGigUseCase, cancelGigUC *gig.CancelGigUseCase, queries *query.Service) *GigHandler {
	return &GigHandler{
		createGigUC: createGigUC,
		cancelGigUC: cancelGigUC,
		queries:     queries,
	}
}

func (h *GigHandler) CreateGig(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req dto.CreateGigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}

	created, err := h.createGigUC.Execute(c.Request.Context(), gig.CreateGigInput{
		OwnerID:     userID,
		Title:       req.Title,
		Description: req.Description,
		Budget:      req.Budget,
		Deadline:    req.Deadline,
		Skills:      req.Skills,
	})
	if err != nil {
		fail(c, err)
		return
	}

	response.Created(c, dto.ToGigResponse(created))
}

// ListGigs обслуживает GET /api/gigs?status=&owner_id=&limit=&offset=
func (h *GigHandler) ListGigs(c *gin.Context) {
	filter := repository.GigFilter{
		Limit:  parseIntQuery(c, "limit", 0),
		Offset: parseIntQuery(c, "offset", 0),
	}

	if raw := c.Query("status"); raw != "" {
		status, err := valueobject.NewGigStatus(raw)
		if err != nil {
			response.BadRequest(c, "некорректный статус заказа")
			return
		}
		filter.Status = &status
	}

	if raw := c.Query("owner_id"); raw != "" {
		ownerID, err := uuid.Parse(raw)
		if err != nil {
			response.BadRequest(c, "некорректный owner_id")
			return
		}
		filter.OwnerID = &ownerID
	}

	page, err := h.queries.ListGigs(c.Request.Context(), filter)
	if err != nil {
		fail(c, err)
		return
	}

	response.Paginated(c, dto.ToGigListingResponses(page.Items), page.Total, page.Limit, page.Offset)
}

func (h *GigHandler) GetGig(c *gin.Context) {
	gigID, ok := pathID(c, "id", "заказа")
	if !ok {
		return
	}

	listing, err := h.queries.GetGig(c.Request.Context(), gigID)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, dto.ToGigListingResponse(*listing))
}

func (h *GigHandler) CancelGig(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	gigID, ok := pathID(c, "id", "заказа")
	if !ok {
		return
	}

	cancelled, err := h.cancelGigUC.Execute(c.Request.Context(), gigID, userID)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, dto.ToGigResponse(cancelled))
}
