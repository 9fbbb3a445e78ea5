package permit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/m6parking/parkadmin/internal/models"
)

// RegisterPermit 提交自助注册
// 业务失败通过 {success:false, message} 表达，HTTP 层面仍是 2xx
func (c *Client) RegisterPermit(ctx context.Context, form models.RegistrationForm) (*models.RegistrationResult, error) {
	var result models.RegistrationResult
	if err := c.doJSON(ctx, http.MethodPost, "/registerPermit", form, &result); err != nil {
		return nil, fmt.Errorf("register permit: %w", err)
	}
	return &result, nil
}

// historyRow 上游历史记录的宽松形状
// 不同版本的后端对同一字段有不同拼写（lot_code/lot_number_id、access_code/status、
// permit_start/start_date），这里全部接住，在客户端边界归一化
type historyRow struct {
	LotCode      string `json:"lot_code"`
	LotNumberID  int64  `json:"lot_number_id"`
	AccessCode   string `json:"access_code"`
	Status       string `json:"status"`
	LicensePlate string `json:"license_plate"`
	PermitStart  string `json:"permit_start"`
	StartDate    string `json:"start_date"`
	PermitEnd    string `json:"permit_end"`
	EndDate      string `json:"end_date"`
}

func (r historyRow) normalize() models.VehicleHistory {
	h := models.VehicleHistory{
		LotCode:      r.LotCode,
		AccessCode:   r.AccessCode,
		LicensePlate: r.LicensePlate,
		PermitStart:  r.PermitStart,
		PermitEnd:    r.PermitEnd,
	}
	if h.LotCode == "" && r.LotNumberID != 0 {
		h.LotCode = strconv.FormatInt(r.LotNumberID, 10)
	}
	if h.AccessCode == "" {
		h.AccessCode = r.Status
	}
	if h.PermitStart == "" {
		h.PermitStart = r.StartDate
	}
	if h.PermitEnd == "" {
		h.PermitEnd = r.EndDate
	}
	return h
}

// VehicleHistory 查询许可历史，归一化为规范形状
// 空结果返回空切片而不是 nil，调用方据此区分“无记录”和“查询失败”
func (c *Client) VehicleHistory(ctx context.Context, lotCode, licensePlate string) ([]models.VehicleHistory, error) {
	payload := map[string]string{
		"lot_code":      lotCode,
		"license_plate": licensePlate,
	}

	// 响应包裹键同样存在 data/history 两种版本
	var envelope struct {
		Data    []historyRow `json:"data"`
		History []historyRow `json:"history"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/vehicleHistory", payload, &envelope); err != nil {
		return nil, fmt.Errorf("vehicle history: %w", err)
	}

	rows := envelope.Data
	if len(rows) == 0 {
		rows = envelope.History
	}

	history := make([]models.VehicleHistory, 0, len(rows))
	for _, row := range rows {
		history = append(history, row.normalize())
	}
	return history, nil
}

// ActivateVehicle 激活许可（注册流程的收尾调用）
func (c *Client) ActivateVehicle(ctx context.Context, req models.ActivationRequest) (*models.RegistrationResult, error) {
	var result models.RegistrationResult
	if err := c.doJSON(ctx, http.MethodPost, "/vehicle/activate", req, &result); err != nil {
		return nil, fmt.Errorf("activate vehicle: %w", err)
	}
	return &result, nil
}

// SendActivationEmail 发送回执邮件，fire-and-forget 语义，失败只上抛一次
func (c *Client) SendActivationEmail(ctx context.Context, vehicleID int64, email string) error {
	payload := map[string]any{
		"vehicle_id": vehicleID,
		"email":      email,
	}
	if err := c.doJSON(ctx, http.MethodPost, "/vehicle/activate/email", payload, nil); err != nil {
		return fmt.Errorf("send activation email: %w", err)
	}
	return nil
}
