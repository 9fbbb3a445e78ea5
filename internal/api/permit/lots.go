package permit

import (
	"context"
	"fmt"
	"net/http"

	"github.com/m6parking/parkadmin/internal/models"
)

// LotCreate 新建车场的请求体
type LotCreate struct {
	LotCode         string             `json:"lot_code"`
	Address         string             `json:"address"`
	City            string             `json:"city"`
	PermitsPerMonth int                `json:"permits_per_month"`
	Duration        string             `json:"duration"`
	Status          models.LotStatus   `json:"status"`
	Note            string             `json:"note,omitempty"`
	Pricing         map[string]float64 `json:"pricing,omitempty"`
}

// LotUpdate 部分更新的请求体，nil 字段服务端保持不变
type LotUpdate struct {
	LotCode         *string            `json:"lot_code,omitempty"`
	Address         *string            `json:"address,omitempty"`
	City            *string            `json:"city,omitempty"`
	PermitsPerMonth *int               `json:"permits_per_month,omitempty"`
	Duration        *string            `json:"duration,omitempty"`
	Status          *models.LotStatus  `json:"status,omitempty"`
	Note            *string            `json:"note,omitempty"`
	Pricing         map[string]float64 `json:"pricing,omitempty"`
}

// ListLots 获取车场分页列表
func (c *Client) ListLots(ctx context.Context, page, perPage int) (*models.Page[models.Lot], error) {
	result, err := listPage[models.Lot](ctx, c, "/lots", page, perPage)
	if err != nil {
		return nil, fmt.Errorf("list lots: %w", err)
	}
	return result, nil
}

// GetLot 获取单个车场
func (c *Client) GetLot(ctx context.Context, id int64) (*models.Lot, error) {
	var lot models.Lot
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/lots/%d", id), nil, &lot); err != nil {
		return nil, fmt.Errorf("get lot %d: %w", id, err)
	}
	return &lot, nil
}

// CreateLot 新建车场，payload 校验由调用方负责，服务端是接受与否的唯一权威
func (c *Client) CreateLot(ctx context.Context, payload LotCreate) (*models.Lot, error) {
	var lot models.Lot
	if err := c.doJSON(ctx, http.MethodPost, "/lots", payload, &lot); err != nil {
		return nil, fmt.Errorf("create lot: %w", err)
	}
	return &lot, nil
}

// UpdateLot 部分更新车场
func (c *Client) UpdateLot(ctx context.Context, id int64, payload LotUpdate) (*models.Lot, error) {
	var lot models.Lot
	if err := c.doJSON(ctx, http.MethodPut, fmt.Sprintf("/lots/%d", id), payload, &lot); err != nil {
		return nil, fmt.Errorf("update lot %d: %w", id, err)
	}
	return &lot, nil
}

// DeleteLot 删除车场
func (c *Client) DeleteLot(ctx context.Context, id int64) error {
	if err := c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/lots/%d", id), nil, nil); err != nil {
		return fmt.Errorf("delete lot %d: %w", id, err)
	}
	return nil
}

// ExportLots 服务端导出 CSV，返回不透明字节流，调用方只负责落盘/下发
func (c *Client) ExportLots(ctx context.Context, ids []int64) ([]byte, error) {
	payload := map[string][]int64{"ids": ids}
	data, err := c.doBytes(ctx, http.MethodPost, "/lots/export", payload)
	if err != nil {
		return nil, fmt.Errorf("export lots: %w", err)
	}
	return data, nil
}
