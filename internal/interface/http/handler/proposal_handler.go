package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/gigmarket/internal/interface/http/dto"
	"github.com/ignatzorin/gigmarket/internal/interface/http/response"
	"github.com/ignatzorin/gigmarket/internal/usecase/proposal"
	"github.com/ignatzorin/gigmarket/internal/usecase/query"
)

type ProposalHandler struct {
	submitUC *proposal.SubmitProposalUseCase
	acceptUC *proposal.AcceptProposalUseCase
	rejectUC *proposal.RejectProposalUseCase
	queries  *query.Service
}

func NewProposalHandler(
	submitUC *proposal.SubmitProposalUseCase,
	acceptUC *proposal.AcceptProposalUseCase,
	rejectUC *proposal.RejectProposalUseCase,
	queries *query.Service,
) *ProposalHandler {
	return &ProposalHandler{
		submitUC: submitUC,
		acceptUC: acceptUC,
		rejectUC: rejectUC,
		queries:  queries,
	}
}

func (h *ProposalHandler) SubmitProposal(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	gigID, ok := pathID(c, "id", "заказа")
	if !ok {
		return
	}

	var req dto.SubmitProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}

	p, err := h.submitUC.Execute(c.Request.Context(), proposal.SubmitProposalInput{
		GigID:    gigID,
		BidderID: userID,
		Message:  req.Message,
		Rate:     req.Rate,
		Timeline: req.Timeline,
	})
	if err != nil {
		fail(c, err)
		return
	}

	response.Created(c, dto.ToProposalResponse(p))
}

func (h *ProposalHandler) ListGigProposals(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	gigID, ok := pathID(c, "id", "заказа")
	if !ok {
		return
	}

	list, err := h.queries.ListGigProposals(c.Request.Context(), gigID, userID)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, dto.ToProposalResponses(list))
}

// AcceptProposal повторный вызов по уже принятому предложению возвращает тот же контракт.
func (h *ProposalHandler) AcceptProposal(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	proposalID, ok := pathID(c, "id", "предложения")
	if !ok {
		return
	}

	res, err := h.acceptUC.Execute(c.Request.Context(), proposalID, userID)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, dto.ToAcceptProposalResponse(res))
}

func (h *ProposalHandler) RejectProposal(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	proposalID, ok := pathID(c, "id", "предложения")
	if !ok {
		return
	}

	p, err := h.rejectUC.Execute(c.Request.Context(), proposalID, userID)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, dto.ToProposalResponse(p))
}
