// File: handlers/slots.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"govbook/models"
	"govbook/services/slots"
	"govbook/utils"
)

// SlotHandler exposes slot provisioning and blocking.
type SlotHandler struct {
	Manager *slots.Manager
}

func NewSlotHandler(manager *slots.Manager) *SlotHandler {
	return &SlotHandler{Manager: manager}
}

// ListSlotsHandler handles GET /api/slots?department=&service=&date=.
func (h *SlotHandler) ListSlotsHandler(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	list, err := h.Manager.List(c.Request.Context(), p, c.Query("department"), c.Query("service"), c.Query("date"))
	if err != nil {
		utils.RespondError(c, "Failed to fetch slots", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"slots": list})
}

// ProvisionSlotHandler handles POST /api/slots.
func (h *SlotHandler) ProvisionSlotHandler(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req models.ProvisionSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request payload", err.Error())
		return
	}
	slot, err := h.Manager.Provision(c.Request.Context(), p, req)
	if err != nil {
		utils.RespondError(c, "Failed to provision slot", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"slot": slot})
}

// BlockSlotHandler handles POST /api/slots/:id/block.
func (h *SlotHandler) BlockSlotHandler(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req models.BlockSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request payload", err.Error())
		return
	}
	slot, err := h.Manager.Block(c.Request.Context(), p, c.Param("id"), req.Reason)
	if err != nil {
		utils.RespondError(c, "Failed to block slot", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"slot": slot})
}

// UnblockSlotHandler handles POST /api/slots/:id/unblock.
func (h *SlotHandler) UnblockSlotHandler(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	slot, err := h.Manager.Unblock(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		utils.RespondError(c, "Failed to unblock slot", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"slot": slot})
}
