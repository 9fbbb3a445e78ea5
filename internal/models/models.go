package models

import "time"

// LotStatus 车场许可策略
type LotStatus string

const (
	LotStatusFree     LotStatus = "Free"     // 免费车场，无定价表
	LotStatusFreePaid LotStatus = "FreePaid" // 免费+付费车场，必须带定价表
)

// Lot 停车场
// Pricing 按 Status 取值：Free 时为 nil，FreePaid 时为非空的 时长标签->价格 映射
type Lot struct {
	ID              int64              `json:"id"`
	LotCode         string             `json:"lot_code"`
	Address         string             `json:"address"`
	City            string             `json:"city"`
	PermitsPerMonth int                `json:"permits_per_month"`
	Duration        string             `json:"duration"`
	Status          LotStatus          `json:"status"`
	Note            *string            `json:"note"`
	Pricing         map[string]float64 `json:"pricing,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// ValidatePricing 校验 Status 与 Pricing 的组合是否合法
func (l *Lot) ValidatePricing() bool {
	switch l.Status {
	case LotStatusFree:
		return l.Pricing == nil
	case LotStatusFreePaid:
		return len(l.Pricing) > 0
	}
	return false
}

// VehicleStatus 车辆许可分类
type VehicleStatus string

const (
	VehicleStatusTenant   VehicleStatus = "Tenant"
	VehicleStatusEmployee VehicleStatus = "Employee"
	VehicleStatusVisitor  VehicleStatus = "Visitor"
	VehicleStatusDoNotTag VehicleStatus = "Do Not Tag"
	VehicleStatusOther    VehicleStatus = "Other"
)

// DurationType 许可时长类型
type DurationType string

const (
	Duration1Day   DurationType = "1 Day"
	Duration7Days  DurationType = "7 Days"
	Duration1Month DurationType = "1 Month"
	Duration1Year  DurationType = "1 Year"
	Duration5Years DurationType = "5 Years"
)

// Vehicle 车辆许可记录
// end_date > start_date 由服务端保证，客户端不做校验
type Vehicle struct {
	ID           int64         `json:"id"`
	LotNumberID  int64         `json:"lot_number_id"`
	LicensePlate string        `json:"license_plate"`
	PermitID     string        `json:"permit_id"`
	Status       VehicleStatus `json:"status"`
	StartDate    time.Time     `json:"start_date"`
	EndDate      time.Time     `json:"end_date"`
	DurationType DurationType  `json:"duration_type"`
	IsActive     bool          `json:"is_active"`
	Notes        *string       `json:"notes"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// AccessCode 独立访问码（不绑定预登记车辆，软删除）
type AccessCode struct {
	ID              int64      `json:"id"`
	LotNumberID     int64      `json:"lot_number_id"`
	AccessCode      string     `json:"access_code"`
	PermitsPerMonth int        `json:"permits_per_month"`
	Duration        string     `json:"duration"`
	IsActive        bool       `json:"is_active"`
	LastUsedAt      *time.Time `json:"last_used_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	DeletedAt       *time.Time `json:"deleted_at"`
}

// UserRole 后台账号角色
type UserRole string

const (
	RoleAdmin           UserRole = "Admin"
	RolePropertyManager UserRole = "Property Manager"
)

// User 后台账号
// 密码只写不读，任何读取接口都不会返回
type User struct {
	ID         int64     `json:"id"`
	Username   string    `json:"username"`
	Role       UserRole  `json:"role"`
	Note       *string   `json:"note"`
	Properties []string  `json:"properties"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Page 分页响应（Laravel 风格分页器）
type Page[T any] struct {
	Data        []T `json:"data"`
	Total       int `json:"total"`
	PerPage     int `json:"per_page"`
	CurrentPage int `json:"current_page"`
	LastPage    int `json:"last_page"`
}

// RegistrationForm 公开自助注册的请求表单（不落库）
type RegistrationForm struct {
	LotCode      string `json:"lot_code"`
	LicensePlate string `json:"license_plate"`
	Email        string `json:"email,omitempty"`
	Duration     string `json:"duration,omitempty"`
	StartDate    string `json:"start_date,omitempty"`
	EndDate      string `json:"end_date,omitempty"`
}

// VehicleHistory 车辆许可历史（已在客户端边界归一化的规范形状）
type VehicleHistory struct {
	LotCode      string `json:"lot_code"`
	AccessCode   string `json:"access_code"`
	LicensePlate string `json:"license_plate"`
	PermitStart  string `json:"permit_start"`
	PermitEnd    string `json:"permit_end"`
}

// ActivationRequest 许可激活请求
type ActivationRequest struct {
	VehicleManagementID int64  `json:"vehicle_management_id"`
	StartDate           string `json:"start_date"`
	StartTime           string `json:"start_time"`
	DurationHours       int    `json:"duration_hours"`
}

// RegistrationResult 注册/激活类接口的统一结果
type RegistrationResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
