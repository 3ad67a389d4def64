package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/gigmarket/internal/domain/valueobject"
	"github.com/ignatzorin/gigmarket/internal/interface/http/dto"
	"github.com/ignatzorin/gigmarket/internal/interface/http/response"
	"github.com/ignatzorin/gigmarket/internal/usecase/escrow"
	"github.com/ignatzorin/gigmarket/internal/usecase/query"
)

type EscrowHandler struct {
	initiateUC *escrow.InitiateEscrowUseCase
	fundUC     *escrow.FundEscrowUseCase
	releaseUC  *escrow.ReleaseEscrowUseCase
	disputeUC  *escrow.DisputeEscrowUseCase
	resolveUC  *escrow.ResolveDisputeUseCase
	queries    *query.Service
}

// NewEscrowHandler собирает все сценарии эскроу поверх общих зависимостей.
func NewEscrowHandler(deps escrow.Deps, queries *query.Service) *EscrowHandler {
	return &EscrowHandler{
		initiateUC: escrow.NewInitiateEscrowUseCase(deps),
		fundUC:     escrow.NewFundEscrowUseCase(deps),
		releaseUC:  escrow.NewReleaseEscrowUseCase(deps),
		disputeUC:  escrow.NewDisputeEscrowUseCase(deps),
		resolveUC:  escrow.NewResolveDisputeUseCase(deps),
		queries:    queries,
	}
}

func (h *EscrowHandler) InitiateEscrow(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	contractID, ok := pathID(c, "id", "контракта")
	if !ok {
		return
	}

	var req dto.InitiateEscrowRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	tx, err := h.initiateUC.Execute(c.Request.Context(), escrow.InitiateEscrowInput{
		ContractID:  contractID,
		ActorID:     userID,
		Amount:      req.Amount,
		MilestoneID: req.MilestoneID,
	})
	if err != nil {
		fail(c, err)
		return
	}

	response.Created(c, dto.ToEscrowResponse(tx))
}

func (h *EscrowHandler) ListEscrow(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	contractID, ok := pathID(c, "id", "контракта")
	if !ok {
		return
	}

	list, err := h.queries.ListEscrow(c.Request.Context(), contractID, userID)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, dto.ToEscrowResponses(list))
}

func (h *EscrowHandler) FundEscrow(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	escrowID, ok := pathID(c, "id", "транзакции")
	if !ok {
		return
	}

	tx, err := h.fundUC.Execute(c.Request.Context(), escrowID, userID)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, dto.ToEscrowResponse(tx))
}

func (h *EscrowHandler) ReleaseEscrow(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	escrowID, ok := pathID(c, "id", "транзакции")
	if !ok {
		return
	}

	var req dto.ReleaseEscrowRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	tx, err := h.releaseUC.Execute(c.Request.Context(), escrowID, userID, req.Override)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, dto.ToEscrowResponse(tx))
}

func (h *EscrowHandler) DisputeEscrow(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	escrowID, ok := pathID(c, "id", "транзакции")
	if !ok {
		return
	}

	var req dto.DisputeEscrowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "укажите причину спора")
		return
	}

	tx, err := h.disputeUC.Execute(c.Request.Context(), escrowID, userID, req.Reason)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, dto.ToEscrowResponse(tx))
}

// ResolveDispute доступен только арбитру; роль берётся из токена.
func (h *EscrowHandler) ResolveDispute(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	escrowID, ok := pathID(c, "id", "транзакции")
	if !ok {
		return
	}

	var req dto.ResolveDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}

	arbiter := escrow.Arbiter{ID: userID, Role: currentRole(c)}
	tx, err := h.resolveUC.Execute(c.Request.Context(), escrowID, arbiter, valueobject.EscrowStatus(req.Outcome), req.Note)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, dto.ToEscrowResponse(tx))
}
