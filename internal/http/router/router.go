package router

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/gigmarket/internal/auth"
	"github.com/ignatzorin/gigmarket/internal/config"
	"github.com/ignatzorin/gigmarket/internal/http/middleware"
	"github.com/ignatzorin/gigmarket/internal/interface/http/handler"
)

type Handlers struct {
	Health       *handler.HealthHandler
	Gig          *handler.GigHandler
	Proposal     *handler.ProposalHandler
	Contract     *handler.ContractHandler
	Escrow       *handler.EscrowHandler
	Notification *handler.NotificationHandler
	WS           *handler.WSHandler
}

func SetupRouter(cfg *config.Config, log logrus.FieldLogger, tokens *auth.TokenManager, h Handlers) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.ErrorHandler(log))
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", h.Health.Health)

	api := r.Group("/api")
	api.GET("/ws", middleware.WSAuthMiddleware(tokens), h.WS.Handle)

	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(tokens))
	protected.Use(middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod))

	byID := middleware.UUIDValidator("id")

	gigs := protected.Group("/gigs")
	{
		gigs.POST("", h.Gig.CreateGig)
		gigs.GET("", h.Gig.ListGigs)
		gigs.GET("/:id", byID, h.Gig.GetGig)
		gigs.POST("/:id/cancel", byID, h.Gig.CancelGig)
		gigs.POST("/:id/proposals", byID, h.Proposal.SubmitProposal)
		gigs.GET("/:id/proposals", byID, h.Proposal.ListGigProposals)
	}

	proposals := protected.Group("/proposals")
	{
		proposals.POST("/:id/accept", byID, h.Proposal.AcceptProposal)
		proposals.POST("/:id/reject", byID, h.Proposal.RejectProposal)
	}

	contracts := protected.Group("/contracts")
	{
		contracts.GET("", h.Contract.ListContracts)
		contracts.GET("/:id", byID, h.Contract.GetContract)
		contracts.POST("/:id/activate", byID, h.Contract.ActivateContract)
		contracts.POST("/:id/complete", byID, h.Contract.CompleteContract)
		contracts.POST("/:id/cancel", byID, h.Contract.CancelContract)
		contracts.POST("/:id/milestones", byID, h.Contract.CreateMilestones)
		contracts.GET("/:id/milestones", byID, h.Contract.ListMilestones)
		contracts.POST("/:id/escrow", byID, h.Escrow.InitiateEscrow)
		contracts.GET("/:id/escrow", byID, h.Escrow.ListEscrow)
	}

	protected.POST("/milestones/:id/advance", byID, h.Contract.AdvanceMilestone)

	escrow := protected.Group("/escrow")
	{
		escrow.POST("/:id/fund", byID, h.Escrow.FundEscrow)
		escrow.POST("/:id/release", byID, h.Escrow.ReleaseEscrow)
		escrow.POST("/:id/dispute", byID, h.Escrow.DisputeEscrow)
		escrow.POST("/:id/resolve", byID, h.Escrow.ResolveDispute)
	}

	notifications := protected.Group("/notifications")
	{
		notifications.GET("", h.Notification.ListNotifications)
		notifications.GET("/unread/count", h.Notification.UnreadCount)
		notifications.PUT("/:id/read", byID, h.Notification.MarkRead)
		notifications.PUT("/read-all", h.Notification.MarkAllRead)
	}

	return r
}
