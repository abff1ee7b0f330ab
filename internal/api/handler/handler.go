package handler

import (
	"context"
	"net/http"

	"matchlink/backend/internal/chathub"
	"matchlink/backend/internal/chatlink"
	"matchlink/backend/internal/ledger"
	"matchlink/backend/internal/localization"
	"matchlink/backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/cors"
)

// ChatLinker is the workflow the routes expose.
type ChatLinker interface {
	Resolve(ctx context.Context, matchID string) (*chatlink.Resolution, error)
	Prepare(ctx context.Context, req chatlink.PrepareRequest) (*chatlink.Plan, error)
	Reconcile(ctx context.Context, req chatlink.ReconcileRequest) (*models.ChatMirror, error)
	Submit(ctx context.Context, req chatlink.SubmitRequest) (*models.ChatMirror, error)
	Simulate(ctx context.Context, sender, txBytes string) (*ledger.DevInspectResult, error)
	Mirror(ctx context.Context, chatRoomID string) (*models.ChatMirror, error)
}

// Handler holds the dependencies shared by all routes.
type Handler struct {
	Linker    ChatLinker
	Hub       *chathub.ManagerService
	Sessions  *Sessions
	Localizer *localization.Localizer
	// CORS, when set, also decides which origins may open the websocket.
	CORS *cors.Cors
}

func NewHandler(linker ChatLinker, hub *chathub.ManagerService, sessions *Sessions, loc *localization.Localizer) *Handler {
	return &Handler{Linker: linker, Hub: hub, Sessions: sessions, Localizer: loc}
}

// Register mounts every route on r.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/health", h.Health)

	auth := r.Group("/", h.RequireWallet())
	auth.GET("/matches/:id/chat", h.ResolveChat)
	auth.POST("/matches/:id/chat/transaction", h.PrepareTransaction)
	auth.POST("/chats/reconcile", h.ReconcileChat)
	auth.POST("/chats/submit", h.SubmitChat)
	auth.POST("/chats/simulate", h.SimulateChat)
	auth.GET("/chats/:roomId", h.GetChat)
	auth.GET("/ws", h.ServeWebSocket)
}

// NewRouter builds the gin engine and wraps it with CORS for the given
// origins. An empty list allows any origin.
func NewRouter(h *Handler, origins []string) http.Handler {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), requestID())
	h.Register(r)

	opts := cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "Accept-Language"},
		AllowCredentials: true,
	}
	if len(origins) == 0 {
		opts.AllowedOrigins = []string{"*"}
		opts.AllowCredentials = false
	}
	h.CORS = cors.New(opts)
	return h.CORS.Handler(r)
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) ResolveChat(c *gin.Context) {
	res, err := h.Linker.Resolve(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type prepareBody struct {
	ProfileID    string `json:"profile_id"`
	PolicyID     string `json:"policy_id"`
	EncryptedKey string `json:"encrypted_key"`
}

func (h *Handler) PrepareTransaction(c *gin.Context) {
	var body prepareBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.respondError(c, chatlink.NewInvalidInputError(c.Param("id"), err.Error()))
		return
	}
	plan, err := h.Linker.Prepare(c.Request.Context(), chatlink.PrepareRequest{
		MatchID:      c.Param("id"),
		Caller:       WalletFrom(c),
		ProfileID:    body.ProfileID,
		PolicyID:     body.PolicyID,
		EncryptedKey: body.EncryptedKey,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

func (h *Handler) ReconcileChat(c *gin.Context) {
	var req chatlink.ReconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, chatlink.NewInvalidInputError("", err.Error()))
		return
	}
	req.Caller = WalletFrom(c)
	row, err := h.Linker.Reconcile(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

func (h *Handler) SubmitChat(c *gin.Context) {
	var req chatlink.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, chatlink.NewInvalidInputError("", err.Error()))
		return
	}
	req.Caller = WalletFrom(c)
	row, err := h.Linker.Submit(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

type simulateBody struct {
	TxBytes string `json:"tx_bytes"`
}

// SimulationSummary is what the dApp needs from a dev-inspect run.
type SimulationSummary struct {
	Status string `json:"status"`
	Events int    `json:"events"`
}

func (h *Handler) SimulateChat(c *gin.Context) {
	var body simulateBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.respondError(c, chatlink.NewInvalidInputError("", err.Error()))
		return
	}
	res, err := h.Linker.Simulate(c.Request.Context(), WalletFrom(c), body.TxBytes)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, SimulationSummary{Status: res.Effects.Status.Status, Events: len(res.Events)})
}

func (h *Handler) GetChat(c *gin.Context) {
	row, err := h.Linker.Mirror(c.Request.Context(), c.Param("roomId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}
