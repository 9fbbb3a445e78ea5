package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/m6parking/parkadmin/internal/api/permit"
	"github.com/m6parking/parkadmin/internal/models"
	"github.com/m6parking/parkadmin/internal/service"
)

// client 取当前会话绑定的上游客户端
func (h *Handler) client(c *gin.Context) (*permit.Client, bool) {
	session := sessionFrom(c)
	client, err := h.dashboard.Client(c.Request.Context(), session.ID)
	if err != nil {
		h.writeAPIError(c, err)
		return nil, false
	}
	return client, true
}

// pathID 解析路由里的数字 ID
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return 0, false
	}
	return id, true
}

// GetLot 获取车场详情
func (h *Handler) GetLot(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	client, ok := h.client(c)
	if !ok {
		return
	}

	lot, err := client.GetLot(c.Request.Context(), id)
	if err != nil {
		h.writeAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": lot})
}

// CreateLot 新建车场
// Free 车场不带定价表，FreePaid 必须带非空定价表；不满足时直接 422，不打上游
func (h *Handler) CreateLot(c *gin.Context) {
	var payload permit.LotCreate
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	lot := models.Lot{Status: payload.Status, Pricing: payload.Pricing}
	if !lot.ValidatePricing() {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": "Pricing must be empty for Free lots and non-empty for FreePaid lots",
		})
		return
	}

	client, ok := h.client(c)
	if !ok {
		return
	}

	created, err := client.CreateLot(c.Request.Context(), payload)
	if err != nil {
		h.writeAPIError(c, err)
		return
	}

	h.dashboard.NotifyViewChanged(service.ResourceLots, created.ID)
	c.JSON(http.StatusCreated, gin.H{"data": created})
}

// UpdateLot 编辑车场（部分更新，未提交的字段服务端保持不变）
func (h *Handler) UpdateLot(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var payload permit.LotUpdate
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	client, ok := h.client(c)
	if !ok {
		return
	}

	updated, err := client.UpdateLot(c.Request.Context(), id, payload)
	if err != nil {
		h.writeAPIError(c, err)
		return
	}

	h.dashboard.NotifyViewChanged(service.ResourceLots, id)
	c.JSON(http.StatusOK, gin.H{"data": updated})
}

// GetVehicle 获取车辆详情
func (h *Handler) GetVehicle(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	client, ok := h.client(c)
	if !ok {
		return
	}

	vehicle, err := client.GetVehicle(c.Request.Context(), id)
	if err != nil {
		h.writeAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": vehicle})
}

// BulkCreateVehicles 批量建档
func (h *Handler) BulkCreateVehicles(c *gin.Context) {
	var payload permit.VehicleBatch
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if len(payload.Entries) == 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "At least one entry is required"})
		return
	}

	client, ok := h.client(c)
	if !ok {
		return
	}

	created, err := client.BulkCreateVehicles(c.Request.Context(), payload)
	if err != nil {
		h.writeAPIError(c, err)
		return
	}

	h.dashboard.NotifyViewChanged(service.ResourceVehicles)
	c.JSON(http.StatusCreated, gin.H{"data": created})
}

// UpdateVehicle 编辑车辆
func (h *Handler) UpdateVehicle(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var payload permit.VehicleUpdate
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	client, ok := h.client(c)
	if !ok {
		return
	}

	updated, err := client.UpdateVehicle(c.Request.Context(), id, payload)
	if err != nil {
		h.writeAPIError(c, err)
		return
	}

	h.dashboard.NotifyViewChanged(service.ResourceVehicles, id)
	c.JSON(http.StatusOK, gin.H{"data": updated})
}

// GetAccessCode 获取访问码详情
func (h *Handler) GetAccessCode(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	client, ok := h.client(c)
	if !ok {
		return
	}

	code, err := client.GetAccessCode(c.Request.Context(), id)
	if err != nil {
		h.writeAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": code})
}

// BulkCreateAccessCodes 批量生成访问码
func (h *Handler) BulkCreateAccessCodes(c *gin.Context) {
	var payload permit.AccessCodeBatch
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if len(payload.Entries) == 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "At least one code is required"})
		return
	}

	client, ok := h.client(c)
	if !ok {
		return
	}

	created, err := client.BulkCreateAccessCodes(c.Request.Context(), payload)
	if err != nil {
		h.writeAPIError(c, err)
		return
	}

	h.dashboard.NotifyViewChanged(service.ResourceAccessCodes)
	c.JSON(http.StatusCreated, gin.H{"data": created})
}

// UpdateAccessCode 编辑访问码
func (h *Handler) UpdateAccessCode(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var payload permit.AccessCodeUpdate
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	client, ok := h.client(c)
	if !ok {
		return
	}

	updated, err := client.UpdateAccessCode(c.Request.Context(), id, payload)
	if err != nil {
		h.writeAPIError(c, err)
		return
	}

	h.dashboard.NotifyViewChanged(service.ResourceAccessCodes, id)
	c.JSON(http.StatusOK, gin.H{"data": updated})
}

// ToggleActiveAccessCodes 批量切换访问码启用状态
// PUT /api/access-codes/toggle-active {"ids": [1,2,3]}
func (h *Handler) ToggleActiveAccessCodes(c *gin.Context) {
	var req struct {
		IDs []int64 `json:"ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || len(req.IDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "At least one id is required"})
		return
	}

	client, ok := h.client(c)
	if !ok {
		return
	}

	if err := client.ToggleActiveAccessCodes(c.Request.Context(), req.IDs); err != nil {
		h.writeAPIError(c, err)
		return
	}

	h.dashboard.NotifyViewChanged(service.ResourceAccessCodes, req.IDs...)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// CreateUser 新建账号
func (h *Handler) CreateUser(c *gin.Context) {
	var payload permit.UserCreate
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	client, ok := h.client(c)
	if !ok {
		return
	}

	created, err := client.CreateUser(c.Request.Context(), payload)
	if err != nil {
		h.writeAPIError(c, err)
		return
	}

	h.dashboard.NotifyViewChanged(service.ResourceUsers, created.ID)
	c.JSON(http.StatusCreated, gin.H{"data": created})
}

// UpdateUser 编辑账号
func (h *Handler) UpdateUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var payload permit.UserUpdate
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	client, ok := h.client(c)
	if !ok {
		return
	}

	updated, err := client.UpdateUser(c.Request.Context(), id, payload)
	if err != nil {
		h.writeAPIError(c, err)
		return
	}

	h.dashboard.NotifyViewChanged(service.ResourceUsers, id)
	c.JSON(http.StatusOK, gin.H{"data": updated})
}
