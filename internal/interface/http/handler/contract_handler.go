package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/gigmarket/internal/domain/valueobject"
	"github.com/ignatzorin/gigmarket/internal/interface/http/dto"
	"github.com/ignatzorin/gigmarket/internal/interface/http/response"
	"github.com/ignatzorin/gigmarket/internal/usecase/contract"
	"github.com/ignatzorin/gigmarket/internal/usecase/milestone"
	"github.com/ignatzorin/gigmarket/internal/usecase/query"
)

// ContractHandler обслуживает контракты и их этапы.
type ContractHandler struct {
	activateUC   *contract.ActivateContractUseCase
	completeUC   *contract.CompleteContractUseCase
	cancelUC     *contract.CancelContractUseCase
	milestonesUC *milestone.CreateMilestonesUseCase
	advanceUC    *milestone.AdvanceMilestoneUseCase
	queries      *query.Service
}

func NewContractHandler(
	activateUC *contract.ActivateContractUseCase,
	completeUC *contract.CompleteContractUseCase,
	cancelUC *contract.CancelContractUseCase,
	milestonesUC *milestone.CreateMilestonesUseCase,
	advanceUC *milestone.AdvanceMilestoneUseCase,
	queries *query.Service,
) *ContractHandler {
	return &ContractHandler{
		activateUC:   activateUC,
		completeUC:   completeUC,
		cancelUC:     cancelUC,
		milestonesUC: milestonesUC,
		advanceUC:    advanceUC,
		queries:      queries,
	}
}

func (h *ContractHandler) ListContracts(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	list, err := h.queries.ListContracts(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, dto.ToContractSummaryResponses(list))
}

func (h *ContractHandler) GetContract(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	contractID, ok := pathID(c, "id", "контракта")
	if !ok {
		return
	}

	summary, err := h.queries.GetContract(c.Request.Context(), contractID, userID)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, dto.ToContractSummaryResponse(*summary))
}

// ActivateContract тело необязательно: без этапов контракт оплачивается целиком.
func (h *ContractHandler) ActivateContract(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	contractID, ok := pathID(c, "id", "контракта")
	if !ok {
		return
	}

	var req dto.ActivateContractRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	res, err := h.activateUC.Execute(c.Request.Context(), contractID, userID, dto.ToMilestoneSpecs(req.Milestones))
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, dto.ActivateContractResponse{
		Contract:   dto.ToContractResponse(res.Contract),
		Milestones: dto.ToMilestoneResponses(res.Milestones),
	})
}

func (h *ContractHandler) CompleteContract(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	contractID, ok := pathID(c, "id", "контракта")
	if !ok {
		return
	}

	completed, err := h.completeUC.Execute(c.Request.Context(), contractID, userID)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, dto.ToContractResponse(completed))
}

func (h *ContractHandler) CancelContract(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	contractID, ok := pathID(c, "id", "контракта")
	if !ok {
		return
	}

	cancelled, err := h.cancelUC.Execute(c.Request.Context(), contractID, userID)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, dto.ToContractResponse(cancelled))
}

func (h *ContractHandler) CreateMilestones(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	contractID, ok := pathID(c, "id", "контракта")
	if !ok {
		return
	}

	var req dto.CreateMilestonesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}

	created, err := h.milestonesUC.Execute(c.Request.Context(), contractID, userID, dto.ToMilestoneSpecs(req.Milestones))
	if err != nil {
		fail(c, err)
		return
	}

	response.Created(c, dto.ToMilestoneResponses(created))
}

func (h *ContractHandler) ListMilestones(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	contractID, ok := pathID(c, "id", "контракта")
	if !ok {
		return
	}

	list, err := h.queries.ListMilestones(c.Request.Context(), contractID, userID)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, dto.ToMilestoneResponses(list))
}

func (h *ContractHandler) AdvanceMilestone(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	milestoneID, ok := pathID(c, "id", "этапа")
	if !ok {
		return
	}

	var req dto.AdvanceMilestoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}

	m, err := h.advanceUC.Execute(c.Request.Context(), milestoneID, userID, valueobject.MilestoneStatus(req.Status))
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, dto.ToMilestoneResponse(m))
}
