package permit

import (
	"context"
	"fmt"
	"net/http"

	"github.com/m6parking/parkadmin/internal/models"
)

// VehicleEntry 批量建档中的单条车辆
type VehicleEntry struct {
	LicensePlate string `json:"license_plate"`
	PermitID     string `json:"permit_id"`
}

// VehicleBatch 批量建档请求，同一车场下共享时段与分类
type VehicleBatch struct {
	LotNumberID  int64                `json:"lot_number_id"`
	Status       models.VehicleStatus `json:"status"`
	StartDate    string               `json:"start_date"`
	EndDate      string               `json:"end_date"`
	DurationType models.DurationType  `json:"duration_type"`
	Entries      []VehicleEntry       `json:"entries"`
}

// VehicleUpdate 部分更新的请求体
type VehicleUpdate struct {
	LotNumberID  *int64                `json:"lot_number_id,omitempty"`
	LicensePlate *string               `json:"license_plate,omitempty"`
	PermitID     *string               `json:"permit_id,omitempty"`
	Status       *models.VehicleStatus `json:"status,omitempty"`
	StartDate    *string               `json:"start_date,omitempty"`
	EndDate      *string               `json:"end_date,omitempty"`
	DurationType *models.DurationType  `json:"duration_type,omitempty"`
	IsActive     *bool                 `json:"is_active,omitempty"`
	Notes        *string               `json:"notes,omitempty"`
}

// ListVehicles 获取车辆分页列表
func (c *Client) ListVehicles(ctx context.Context, page, perPage int) (*models.Page[models.Vehicle], error) {
	result, err := listPage[models.Vehicle](ctx, c, "/vehicles", page, perPage)
	if err != nil {
		return nil, fmt.Errorf("list vehicles: %w", err)
	}
	return result, nil
}

// GetVehicle 获取单个车辆
func (c *Client) GetVehicle(ctx context.Context, id int64) (*models.Vehicle, error) {
	var vehicle models.Vehicle
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/vehicles/%d", id), nil, &vehicle); err != nil {
		return nil, fmt.Errorf("get vehicle %d: %w", id, err)
	}
	return &vehicle, nil
}

// BulkCreateVehicles 批量建档
func (c *Client) BulkCreateVehicles(ctx context.Context, payload VehicleBatch) ([]models.Vehicle, error) {
	var vehicles []models.Vehicle
	if err := c.doJSON(ctx, http.MethodPost, "/vehicles/bulk", payload, &vehicles); err != nil {
		return nil, fmt.Errorf("bulk create vehicles: %w", err)
	}
	return vehicles, nil
}

// UpdateVehicle 部分更新车辆
func (c *Client) UpdateVehicle(ctx context.Context, id int64, payload VehicleUpdate) (*models.Vehicle, error) {
	var vehicle models.Vehicle
	if err := c.doJSON(ctx, http.MethodPut, fmt.Sprintf("/vehicles/%d", id), payload, &vehicle); err != nil {
		return nil, fmt.Errorf("update vehicle %d: %w", id, err)
	}
	return &vehicle, nil
}

// DeleteVehicle 删除车辆
func (c *Client) DeleteVehicle(ctx context.Context, id int64) error {
	if err := c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/vehicles/%d", id), nil, nil); err != nil {
		return fmt.Errorf("delete vehicle %d: %w", id, err)
	}
	return nil
}
