package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/m6parking/parkadmin/internal/listview"
	"github.com/m6parking/parkadmin/internal/service"
)

// view 解析路由里的资源名并取对应控制器
func (h *Handler) view(c *gin.Context) (service.View, bool) {
	session := sessionFrom(c)
	view, err := h.dashboard.View(c.Request.Context(), session.ID, c.Param("resource"))
	if err != nil {
		h.writeAPIError(c, err)
		return nil, false
	}
	return view, true
}

// ListView 拉取列表页
// GET /api/views/:resource?page=&per_page=&q=
// per_page 支持数字或 ALL；q 只在已取到的当前页内做客户端筛选。
// 取数失败时不清空旧行：返回 200，错误放在 meta.error 里由前端以横幅展示
func (h *Handler) ListView(c *gin.Context) {
	view, ok := h.view(c)
	if !ok {
		return
	}
	session := sessionFrom(c)
	resource := c.Param("resource")

	if raw := c.Query("per_page"); raw != "" {
		perPage := listview.RowsPerPageAll
		if !strings.EqualFold(raw, "ALL") {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid per_page"})
				return
			}
			perPage = n
		}
		if _, err := h.dashboard.SetRowsPerPage(c.Request.Context(), session.ID, resource, perPage); err != nil {
			h.writeAPIError(c, err)
			return
		}
	}

	if raw := c.Query("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid page"})
			return
		}
		view.SetPage(page)
	}

	view.SetSearch(c.Query("q"))

	if err := view.Fetch(c.Request.Context()); err != nil {
		h.logger.Error("Failed to fetch view", zap.String("resource", resource), zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{
		"data":         view.VisibleRows(),
		"meta":         view.Meta(),
		"selected":     view.SelectedIDs(),
		"all_selected": view.AllSelected(),
	})
}

// SetViewPage 翻页
// POST /api/views/:resource/page {"page": 3} 或 {"dir": "next"|"prev"}
func (h *Handler) SetViewPage(c *gin.Context) {
	view, ok := h.view(c)
	if !ok {
		return
	}

	var req struct {
		Page int    `json:"page"`
		Dir  string `json:"dir"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	changed := false
	switch {
	case req.Dir == "next":
		changed = view.NextPage()
	case req.Dir == "prev":
		changed = view.PrevPage()
	case req.Page >= 1:
		changed = view.SetPage(req.Page)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid page"})
		return
	}

	if changed {
		if err := view.Fetch(c.Request.Context()); err != nil {
			h.logger.Error("Failed to fetch view after page change", zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"data":     view.VisibleRows(),
		"meta":     view.Meta(),
		"selected": view.SelectedIDs(),
	})
}

// SelectRow 勾选/取消勾选单行
// POST /api/views/:resource/select {"id": 7}
func (h *Handler) SelectRow(c *gin.Context) {
	view, ok := h.view(c)
	if !ok {
		return
	}

	var req struct {
		ID int64 `json:"id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid row id"})
		return
	}

	view.Toggle(req.ID)
	c.JSON(http.StatusOK, gin.H{
		"selected":     view.SelectedIDs(),
		"all_selected": view.AllSelected(),
	})
}

// SelectAllRows 全选/全不选当前页
// POST /api/views/:resource/select-all {"checked": true}
func (h *Handler) SelectAllRows(c *gin.Context) {
	view, ok := h.view(c)
	if !ok {
		return
	}

	var req struct {
		Checked bool `json:"checked"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	view.SelectAll(req.Checked)
	c.JSON(http.StatusOK, gin.H{
		"selected":     view.SelectedIDs(),
		"all_selected": view.AllSelected(),
	})
}

// CopySelected 批量复制：返回制表符分隔文本，写剪贴板由前端完成
// POST /api/views/:resource/copy
func (h *Handler) CopySelected(c *gin.Context) {
	view, ok := h.view(c)
	if !ok {
		return
	}

	text := view.CopySelected()
	if text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No rows selected"})
		return
	}

	c.Data(http.StatusOK, "text/tab-separated-values; charset=utf-8", []byte(text))
}

// ExportSelected 批量导出 CSV
// POST /api/views/:resource/export
// 车场走服务端导出，其余资源从当前页选中行合成——两者覆盖范围不同，见 listview.Exporter
func (h *Handler) ExportSelected(c *gin.Context) {
	view, ok := h.view(c)
	if !ok {
		return
	}

	if len(view.SelectedIDs()) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No rows selected"})
		return
	}

	data, err := view.ExportSelected(c.Request.Context())
	if err != nil {
		h.writeAPIError(c, err)
		return
	}

	filename := fmt.Sprintf("%s.csv", c.Param("resource"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, filename))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}

// DeleteSelected 批量删除选中行
// POST /api/views/:resource/delete
// 部分失败也会重取当前页并清空选择，失败的行在响应错误里点名
func (h *Handler) DeleteSelected(c *gin.Context) {
	session := sessionFrom(c)
	resource := c.Param("resource")

	view, ok := h.view(c)
	if !ok {
		return
	}

	if err := h.dashboard.DeleteSelected(c.Request.Context(), session.ID, resource); err != nil {
		h.logger.Error("Bulk delete failed", zap.String("resource", resource), zap.Error(err))
		c.JSON(http.StatusOK, gin.H{
			"data":  view.VisibleRows(),
			"meta":  view.Meta(),
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": view.VisibleRows(),
		"meta": view.Meta(),
	})
}
