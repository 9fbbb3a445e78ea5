// Package wizard 实现公开自助注册的多步表单状态机。
package wizard

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/looplab/fsm"

	"github.com/m6parking/parkadmin/internal/api/permit"
	"github.com/m6parking/parkadmin/internal/models"
)

// 步骤常量
const (
	StepIdentifiers = "step_identifiers" // 第一步：输入车场码/访问码与车牌
	StepPermit      = "step_permit"      // 第二步：输入许可详情
	StepDone        = "step_done"        // 第三步：注册成功
)

// 事件常量
const (
	EventSubmitIdentifiers = "submit_identifiers"
	EventActivate          = "activate"
	EventStartOver         = "start_over"
)

// 守卫类错误
var (
	ErrBusy       = errors.New("a request is already in flight")
	ErrValidation = errors.New("validation failed")
	ErrWrongStep  = errors.New("action not available at this step")
)

// 固定文案（与现网一致）
const (
	msgLotCodeRequired = "You must enter your lot or unique access code"
	msgPlateRequired   = "You must enter your license plate number"
	msgHistoryGuard    = "To view your vehicle permit history, please first enter your access code and license plate."
	msgEmailRequired   = "Please enter a valid email address."
	msgGenericFailure  = "Something went wrong. Please try again."
)

// RegistrationAPI 状态机依赖的上游操作子集
type RegistrationAPI interface {
	RegisterPermit(ctx context.Context, form models.RegistrationForm) (*models.RegistrationResult, error)
	VehicleHistory(ctx context.Context, lotCode, licensePlate string) ([]models.VehicleHistory, error)
	ActivateVehicle(ctx context.Context, req models.ActivationRequest) (*models.RegistrationResult, error)
	SendActivationEmail(ctx context.Context, vehicleID int64, email string) error
}

// FieldErrors 第一步的字段级错误
type FieldErrors struct {
	LotCode      string `json:"lot_code,omitempty"`
	LicensePlate string `json:"license_plate,omitempty"`
}

// Snapshot 供渲染的状态快照
type Snapshot struct {
	Step        string                  `json:"step"`
	Form        models.RegistrationForm `json:"form"`
	FieldErrors FieldErrors             `json:"field_errors"`
	Message     string                  `json:"message,omitempty"`
	InFlight    bool                    `json:"in_flight"`
}

// Machine 注册向导状态机
// 同一时刻只允许一个在途请求，重复提交直接拒绝
type Machine struct {
	mu  sync.Mutex
	api RegistrationAPI
	fsm *fsm.FSM

	form        models.RegistrationForm
	fieldErrors FieldErrors
	message     string
	inFlight    bool
}

// NewMachine 创建状态机，初始停在第一步
func NewMachine(api RegistrationAPI) *Machine {
	m := &Machine{api: api}

	m.fsm = fsm.NewFSM(
		StepIdentifiers,
		fsm.Events{
			{Name: EventSubmitIdentifiers, Src: []string{StepIdentifiers}, Dst: StepPermit},
			{Name: EventActivate, Src: []string{StepPermit}, Dst: StepDone},
			// 任意步骤都可以从头再来
			{Name: EventStartOver, Src: []string{StepIdentifiers, StepPermit, StepDone}, Dst: StepIdentifiers},
		},
		fsm.Callbacks{},
	)

	return m
}

// Step 当前步骤
func (m *Machine) Step() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fsm.Current()
}

// Snapshot 当前状态快照
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		Step:        m.fsm.Current(),
		Form:        m.form,
		FieldErrors: m.fieldErrors,
		Message:     m.message,
		InFlight:    m.inFlight,
	}
}

// SetLotCode 录入车场码/访问码，逐次输入都会净化
// 净化后超长时保留旧值并给出字段错误
func (m *Machine) SetLotCode(input string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	value := sanitize(input)
	if len(value) <= MaxFieldLength {
		m.form.LotCode = value
		m.fieldErrors.LotCode = ""
	} else {
		m.fieldErrors.LotCode = errLotCodeTooLong
	}
}

// SetLicensePlate 录入车牌号
func (m *Machine) SetLicensePlate(input string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	value := sanitize(input)
	if len(value) <= MaxFieldLength {
		m.form.LicensePlate = value
		m.fieldErrors.LicensePlate = ""
	} else {
		m.fieldErrors.LicensePlate = errPlateTooLong
	}
}

// SetEmail 录入回执邮箱（可选字段，不净化）
func (m *Machine) SetEmail(email string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.form.Email = email
}

// SubmitIdentifiers 提交第一步
// 本地校验不通过时不发任何 API 调用；注册被拒或请求失败时停留在第一步，
// 错误信息通过快照内联展示；成功则进入第二步
func (m *Machine) SubmitIdentifiers(ctx context.Context) error {
	m.mu.Lock()

	if m.fsm.Current() != StepIdentifiers {
		m.mu.Unlock()
		return ErrWrongStep
	}
	if m.inFlight {
		m.mu.Unlock()
		return ErrBusy
	}

	m.fieldErrors = FieldErrors{}
	if m.form.LotCode == "" {
		m.fieldErrors.LotCode = msgLotCodeRequired
	}
	if m.form.LicensePlate == "" {
		m.fieldErrors.LicensePlate = msgPlateRequired
	}
	if m.fieldErrors.LotCode != "" || m.fieldErrors.LicensePlate != "" {
		m.mu.Unlock()
		return ErrValidation
	}

	m.inFlight = true
	form := m.form
	m.mu.Unlock()

	result, err := m.api.RegisterPermit(ctx, form)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.inFlight = false

	if err != nil {
		m.message = registrationMessage(err)
		return err
	}
	if !result.Success {
		m.message = result.Message
		return nil
	}

	m.message = ""
	if err := m.fsm.Event(ctx, EventSubmitIdentifiers); err != nil {
		return fmt.Errorf("advance to permit step: %w", err)
	}
	return nil
}

// Activate 提交第二步，成功后立即进入成功页
// 现网在成功提示后延时 3 秒再跳转，该延时纯属展示效果，这里由成功消息承担
// “先看到成功再跳转”的约定
func (m *Machine) Activate(ctx context.Context, req models.ActivationRequest) error {
	m.mu.Lock()

	if m.fsm.Current() != StepPermit {
		m.mu.Unlock()
		return ErrWrongStep
	}
	if m.inFlight {
		m.mu.Unlock()
		return ErrBusy
	}

	m.inFlight = true
	m.mu.Unlock()

	result, err := m.api.ActivateVehicle(ctx, req)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.inFlight = false

	if err != nil {
		m.message = registrationMessage(err)
		return err
	}
	if !result.Success {
		m.message = result.Message
		return nil
	}

	m.message = "Vehicle registered successfully!"
	m.form.StartDate = req.StartDate
	if err := m.fsm.Event(ctx, EventActivate); err != nil {
		return fmt.Errorf("advance to done step: %w", err)
	}
	return nil
}

// StartOver 无条件回到第一步并清空所有表单与错误
func (m *Machine) StartOver() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.form = models.RegistrationForm{}
	m.fieldErrors = FieldErrors{}
	m.message = ""

	// 已在第一步时 fsm 会拒绝自环事件，直接忽略
	_ = m.fsm.Event(context.Background(), EventStartOver)
}

// History 查询许可历史（只读副操作，不改变步骤）
// 标识未填时直接给守卫错误，不发 API 调用；空结果与失败是两种可见状态
func (m *Machine) History(ctx context.Context) ([]models.VehicleHistory, error) {
	m.mu.Lock()
	lotCode := m.form.LotCode
	plate := m.form.LicensePlate
	m.mu.Unlock()

	if lotCode == "" || plate == "" {
		return nil, fmt.Errorf("%w: %s", ErrValidation, msgHistoryGuard)
	}

	history, err := m.api.VehicleHistory(ctx, lotCode, plate)
	if err != nil {
		return nil, fmt.Errorf("fetch vehicle history: %w", err)
	}
	return history, nil
}

// SendReceipt 在成功页发送回执邮件，结果不影响向导状态
func (m *Machine) SendReceipt(ctx context.Context, vehicleID int64, email string) error {
	if m.Step() != StepDone {
		return ErrWrongStep
	}
	if email == "" {
		return fmt.Errorf("%w: %s", ErrValidation, msgEmailRequired)
	}

	if err := m.api.SendActivationEmail(ctx, vehicleID, email); err != nil {
		return fmt.Errorf("send receipt: %w", err)
	}
	return nil
}

// registrationMessage 把上游错误折叠为可内联展示的文案
// 后端 422 自带 message 时优先透出，否则用通用文案
func registrationMessage(err error) string {
	var apiErr *permit.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return msgGenericFailure
}
