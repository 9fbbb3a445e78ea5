package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/m6parking/parkadmin/internal/models"
	"github.com/m6parking/parkadmin/internal/wizard"
)

// machine 取路由里的向导会话，不存在返回 404
func (h *Handler) machine(c *gin.Context) (*wizard.Machine, bool) {
	m, ok := h.dashboard.Wizards().Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found or expired"})
		return nil, false
	}
	return m, true
}

// writeWizardError 向导错误到 HTTP 状态码的映射
// 业务失败（激活被拒、查无记录）不会走到这里，快照里带提示直接 200
func (h *Handler) writeWizardError(c *gin.Context, m *wizard.Machine, err error) {
	switch {
	case errors.Is(err, wizard.ErrBusy):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "state": m.Snapshot()})
	case errors.Is(err, wizard.ErrValidation):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "state": m.Snapshot()})
	case errors.Is(err, wizard.ErrWrongStep):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "state": m.Snapshot()})
	default:
		h.logger.Error("wizard request failed", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"state": m.Snapshot()})
	}
}

// StartWizard 新建注册向导会话
func (h *Handler) StartWizard(c *gin.Context) {
	id, m := h.dashboard.Wizards().Create()
	h.logger.Info("wizard session created", zap.String("wizardID", id))
	c.JSON(http.StatusCreated, gin.H{"wizard_id": id, "state": m.Snapshot()})
}

// WizardState 当前向导状态
func (h *Handler) WizardState(c *gin.Context) {
	m, ok := h.machine(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": m.Snapshot()})
}

// SubmitIdentifiers 第一步：提交车场码和车牌
// 录入即净化，随后整体提交；上游失败留在第一步，快照里带提示
func (h *Handler) SubmitIdentifiers(c *gin.Context) {
	m, ok := h.machine(c)
	if !ok {
		return
	}

	var req struct {
		LotCode      string `json:"lot_code"`
		LicensePlate string `json:"license_plate"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	m.SetLotCode(req.LotCode)
	m.SetLicensePlate(req.LicensePlate)

	if err := m.SubmitIdentifiers(c.Request.Context()); err != nil {
		h.writeWizardError(c, m, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": m.Snapshot()})
}

// ActivateWizard 第二步：选择时段并激活许可
func (h *Handler) ActivateWizard(c *gin.Context) {
	m, ok := h.machine(c)
	if !ok {
		return
	}

	var req models.ActivationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if err := m.Activate(c.Request.Context(), req); err != nil {
		h.writeWizardError(c, m, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": m.Snapshot()})
}

// StartOver 任意步骤回到第一步，清空已录入内容
func (h *Handler) StartOver(c *gin.Context) {
	m, ok := h.machine(c)
	if !ok {
		return
	}
	m.StartOver()
	c.JSON(http.StatusOK, gin.H{"state": m.Snapshot()})
}

// WizardHistory 查询当前车牌在该车场的许可历史
// 两个识别字段没填全时不打上游，快照里带引导提示
func (h *Handler) WizardHistory(c *gin.Context) {
	m, ok := h.machine(c)
	if !ok {
		return
	}

	history, err := m.History(c.Request.Context())
	if err != nil {
		h.writeWizardError(c, m, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": history, "state": m.Snapshot()})
}

// SendReceipt 完成步骤里补发确认邮件
func (h *Handler) SendReceipt(c *gin.Context) {
	m, ok := h.machine(c)
	if !ok {
		return
	}

	var req struct {
		VehicleID int64  `json:"vehicle_id"`
		Email     string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if err := m.SendReceipt(c.Request.Context(), req.VehicleID, req.Email); err != nil {
		h.writeWizardError(c, m, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": m.Snapshot()})
}
