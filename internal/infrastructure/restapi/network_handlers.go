package restapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"network_controller/internal/app/port"
	"network_controller/internal/domain/entity"
)

// APIResponse is the envelope for successful responses.
type APIResponse struct {
	Data any `json:"data"`
}

// APIError is the envelope for failed requests.
type APIError struct {
	Error string `json:"error"`
}

type setProviderTypeRequest struct {
	Type entity.NetworkType `json:"type" binding:"required"`
}

type setActiveNetworkRequest struct {
	ID string `json:"id" binding:"required"`
}

type upsertNetworkConfigurationRequest struct {
	RPCURL           string `json:"rpcUrl"`
	ChainID          string `json:"chainId"`
	Ticker           string `json:"ticker"`
	Nickname         string `json:"nickname"`
	BlockExplorerURL string `json:"blockExplorerUrl"`
	Referrer         string `json:"referrer"`
	Source           string `json:"source"`
	SetActive        bool   `json:"setActive"`
}

type eip1559Response struct {
	Supported bool `json:"supported"`
}

type idResponse struct {
	ID string `json:"id"`
}

// NetworkHandler serves the network controller over HTTP.
type NetworkHandler struct {
	service     port.NetworkService
	definitions port.NetworkDefinitionProvider
	logger      *zap.Logger
}

// NewNetworkHandler creates a NetworkHandler.
func NewNetworkHandler(service port.NetworkService, definitions port.NetworkDefinitionProvider, logger *zap.Logger) *NetworkHandler {
	return &NetworkHandler{
		service:     service,
		definitions: definitions,
		logger:      logger.Named("NetworkHandler"),
	}
}

// GetStateHandler returns the full controller state.
func (h *NetworkHandler) GetStateHandler(c *gin.Context) {
	c.JSON(http.StatusOK, APIResponse{Data: h.service.State()})
}

// SetProviderTypeHandler switches to a well-known network.
func (h *NetworkHandler) SetProviderTypeHandler(c *gin.Context) {
	var req setProviderTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	if err := h.service.SetProviderType(c.Request.Context(), req.Type); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, APIResponse{Data: h.service.ProviderConfig()})
}

// SetActiveNetworkHandler switches to a registered custom network.
func (h *NetworkHandler) SetActiveNetworkHandler(c *gin.Context) {
	var req setActiveNetworkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	if err := h.service.SetActiveNetwork(c.Request.Context(), req.ID); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, APIResponse{Data: h.service.ProviderConfig()})
}

// ResetConnectionHandler reconnects to the active network.
func (h *NetworkHandler) ResetConnectionHandler(c *gin.Context) {
	if err := h.service.ResetConnection(c.Request.Context()); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, APIResponse{Data: h.service.ProviderConfig()})
}

// RollbackHandler switches back to the previously active network.
func (h *NetworkHandler) RollbackHandler(c *gin.Context) {
	if err := h.service.RollbackToPreviousProvider(c.Request.Context()); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, APIResponse{Data: h.service.ProviderConfig()})
}

// LookupNetworkHandler checks the active network and returns the resulting state.
func (h *NetworkHandler) LookupNetworkHandler(c *gin.Context) {
	h.service.LookupNetwork(c.Request.Context())
	c.JSON(http.StatusOK, APIResponse{Data: h.service.State()})
}

// GetEIP1559Handler reports whether the active network supports EIP-1559.
func (h *NetworkHandler) GetEIP1559Handler(c *gin.Context) {
	supported, err := h.service.GetEIP1559Compatibility(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, APIResponse{Data: eip1559Response{Supported: supported}})
}

// GetLatestBlockHandler returns the latest block header seen on the active network.
func (h *NetworkHandler) GetLatestBlockHandler(c *gin.Context) {
	header, err := h.service.GetLatestBlock(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, APIResponse{Data: header})
}

// ListNetworksHandler returns the built-in network definitions.
func (h *NetworkHandler) ListNetworksHandler(c *gin.Context) {
	c.JSON(http.StatusOK, APIResponse{Data: h.definitions.GetAllNetworkDefinitions()})
}

// ListNetworkConfigurationsHandler returns the custom network registry.
func (h *NetworkHandler) ListNetworkConfigurationsHandler(c *gin.Context) {
	entries := h.service.State().NetworkConfigurations
	if entries == nil {
		entries = []entity.NetworkRegistryEntry{}
	}
	c.JSON(http.StatusOK, APIResponse{Data: entries})
}

// UpsertNetworkConfigurationHandler adds or updates a custom network.
func (h *NetworkHandler) UpsertNetworkConfigurationHandler(c *gin.Context) {
	var req upsertNetworkConfigurationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	entry := entity.NetworkRegistryEntry{
		RPCURL:   req.RPCURL,
		ChainID:  req.ChainID,
		Ticker:   req.Ticker,
		Nickname: req.Nickname,
	}
	if req.BlockExplorerURL != "" {
		entry.RPCPrefs = &entity.RPCPrefs{BlockExplorerURL: req.BlockExplorerURL}
	}
	opts := port.UpsertOptions{Referrer: req.Referrer, Source: req.Source, SetActive: req.SetActive}

	id, err := h.service.UpsertNetworkConfiguration(c.Request.Context(), entry, opts)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, APIResponse{Data: idResponse{ID: id}})
}

// RemoveNetworkConfigurationHandler deletes a custom network.
func (h *NetworkHandler) RemoveNetworkConfigurationHandler(c *gin.Context) {
	if err := h.service.RemoveNetworkConfiguration(c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *NetworkHandler) badRequest(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(http.StatusBadRequest, APIError{Error: err.Error()})
}

func (h *NetworkHandler) writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	_ = c.Error(err)
	c.JSON(status, APIError{Error: err.Error()})
}

func statusFor(err error) int {
	var rpcErr *entity.RPCError
	switch {
	case errors.Is(err, entity.ErrValidation), errors.Is(err, entity.ErrConfiguration):
		return http.StatusBadRequest
	case errors.Is(err, entity.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, entity.ErrNotInitialized):
		return http.StatusServiceUnavailable
	case errors.As(err, &rpcErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
