package permit

import (
	"context"
	"fmt"
	"net/http"

	"github.com/m6parking/parkadmin/internal/models"
)

// AccessCodeBatch 批量生成访问码请求
type AccessCodeBatch struct {
	LotNumberID     int64    `json:"lot_number_id"`
	PermitsPerMonth int      `json:"permits_per_month"`
	Duration        string   `json:"duration"`
	Entries         []string `json:"entries"`
}

// AccessCodeUpdate 部分更新的请求体
type AccessCodeUpdate struct {
	LotNumberID     *int64  `json:"lot_number_id,omitempty"`
	AccessCode      *string `json:"access_code,omitempty"`
	PermitsPerMonth *int    `json:"permits_per_month,omitempty"`
	Duration        *string `json:"duration,omitempty"`
	IsActive        *bool   `json:"is_active,omitempty"`
}

// ListAccessCodes 获取访问码分页列表
func (c *Client) ListAccessCodes(ctx context.Context, page, perPage int) (*models.Page[models.AccessCode], error) {
	result, err := listPage[models.AccessCode](ctx, c, "/access-codes", page, perPage)
	if err != nil {
		return nil, fmt.Errorf("list access codes: %w", err)
	}
	return result, nil
}

// GetAccessCode 获取单个访问码
func (c *Client) GetAccessCode(ctx context.Context, id int64) (*models.AccessCode, error) {
	var code models.AccessCode
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/access-codes/%d", id), nil, &code); err != nil {
		return nil, fmt.Errorf("get access code %d: %w", id, err)
	}
	return &code, nil
}

// BulkCreateAccessCodes 批量生成访问码
func (c *Client) BulkCreateAccessCodes(ctx context.Context, payload AccessCodeBatch) ([]models.AccessCode, error) {
	var codes []models.AccessCode
	if err := c.doJSON(ctx, http.MethodPost, "/access-codes/bulk", payload, &codes); err != nil {
		return nil, fmt.Errorf("bulk create access codes: %w", err)
	}
	return codes, nil
}

// UpdateAccessCode 部分更新访问码
func (c *Client) UpdateAccessCode(ctx context.Context, id int64, payload AccessCodeUpdate) (*models.AccessCode, error) {
	var code models.AccessCode
	if err := c.doJSON(ctx, http.MethodPut, fmt.Sprintf("/access-codes/%d", id), payload, &code); err != nil {
		return nil, fmt.Errorf("update access code %d: %w", id, err)
	}
	return &code, nil
}

// DeleteAccessCode 删除访问码（服务端为软删除）
func (c *Client) DeleteAccessCode(ctx context.Context, id int64) error {
	if err := c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/access-codes/%d", id), nil, nil); err != nil {
		return fmt.Errorf("delete access code %d: %w", id, err)
	}
	return nil
}

// ToggleActiveAccessCodes 批量切换启用状态
func (c *Client) ToggleActiveAccessCodes(ctx context.Context, ids []int64) error {
	payload := map[string][]int64{"ids": ids}
	if err := c.doJSON(ctx, http.MethodPut, "/access-codes/toggle-active", payload, nil); err != nil {
		return fmt.Errorf("toggle active access codes: %w", err)
	}
	return nil
}
