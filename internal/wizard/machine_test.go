package wizard

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m6parking/parkadmin/internal/api/permit"
	"github.com/m6parking/parkadmin/internal/models"
)

// fakeAPI 记录调用并按预设结果应答
type fakeAPI struct {
	registerCalls int
	activateCalls int
	historyCalls  int
	emailCalls    int

	registerResult *models.RegistrationResult
	registerErr    error
	activateResult *models.RegistrationResult
	activateErr    error
	history        []models.VehicleHistory
	historyErr     error
	emailErr       error

	lastEmail string
}

func (f *fakeAPI) RegisterPermit(_ context.Context, _ models.RegistrationForm) (*models.RegistrationResult, error) {
	f.registerCalls++
	return f.registerResult, f.registerErr
}

func (f *fakeAPI) VehicleHistory(_ context.Context, _, _ string) ([]models.VehicleHistory, error) {
	f.historyCalls++
	return f.history, f.historyErr
}

func (f *fakeAPI) ActivateVehicle(_ context.Context, _ models.ActivationRequest) (*models.RegistrationResult, error) {
	f.activateCalls++
	return f.activateResult, f.activateErr
}

func (f *fakeAPI) SendActivationEmail(_ context.Context, _ int64, email string) error {
	f.emailCalls++
	f.lastEmail = email
	return f.emailErr
}

func TestSanitize(t *testing.T) {
	cases := map[string]string{
		"ab-12 cd!":   "AB12CD",
		"  p 104  ":   "P104",
		"ABC123":      "ABC123",
		"!@#$%":       "",
		"déjà-vu 7":   "DJVU7",
		"lot_code-9x": "LOTCODE9X",
	}
	for input, want := range cases {
		assert.Equal(t, want, sanitize(input), "input %q", input)
	}
}

func TestSetLotCodeRejectsOverlongInput(t *testing.T) {
	m := NewMachine(&fakeAPI{})

	m.SetLotCode("p104")
	require.Equal(t, "P104", m.Snapshot().Form.LotCode)

	// 净化后超长：保留旧值，给出字段错误
	m.SetLotCode("abcdefghijk")
	snap := m.Snapshot()
	assert.Equal(t, "P104", snap.Form.LotCode)
	assert.Equal(t, "Maximum lot code length reached.", snap.FieldErrors.LotCode)

	// 合法输入清掉错误
	m.SetLotCode("p105")
	snap = m.Snapshot()
	assert.Equal(t, "P105", snap.Form.LotCode)
	assert.Empty(t, snap.FieldErrors.LotCode)
}

func TestSetLicensePlateSanitizes(t *testing.T) {
	m := NewMachine(&fakeAPI{})

	m.SetLicensePlate("ab-12 cd!")
	assert.Equal(t, "AB12CD", m.Snapshot().Form.LicensePlate)

	m.SetLicensePlate("12345678901")
	snap := m.Snapshot()
	assert.Equal(t, "AB12CD", snap.Form.LicensePlate)
	assert.Equal(t, "Maximum license plate length reached.", snap.FieldErrors.LicensePlate)
}

func TestSubmitIdentifiersEmptyFields(t *testing.T) {
	api := &fakeAPI{}
	m := NewMachine(api)

	err := m.SubmitIdentifiers(context.Background())
	require.ErrorIs(t, err, ErrValidation)

	snap := m.Snapshot()
	assert.Equal(t, StepIdentifiers, snap.Step)
	assert.Equal(t, "You must enter your lot or unique access code", snap.FieldErrors.LotCode)
	assert.Equal(t, "You must enter your license plate number", snap.FieldErrors.LicensePlate)

	// 本地校验不通过时不打上游
	assert.Zero(t, api.registerCalls)
}

// blockingAPI 注册调用阻塞到显式放行，用于验证在途互斥
type blockingAPI struct {
	fakeAPI
	entered chan struct{}
	release chan struct{}
}

func (b *blockingAPI) RegisterPermit(_ context.Context, _ models.RegistrationForm) (*models.RegistrationResult, error) {
	close(b.entered)
	<-b.release
	return &models.RegistrationResult{Success: true}, nil
}

func TestSubmitIdentifiersSingleInFlight(t *testing.T) {
	api := &blockingAPI{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	m := NewMachine(api)
	m.SetLotCode("P104")
	m.SetLicensePlate("AB12CD")

	first := make(chan error, 1)
	go func() { first <- m.SubmitIdentifiers(context.Background()) }()
	<-api.entered

	// 第一个请求还在途，重复提交直接拒绝
	err := m.SubmitIdentifiers(context.Background())
	require.ErrorIs(t, err, ErrBusy)
	assert.Equal(t, StepIdentifiers, m.Step())

	close(api.release)
	require.NoError(t, <-first)
	assert.Equal(t, StepPermit, m.Step())
	assert.False(t, m.Snapshot().InFlight)
}

func TestSubmitIdentifiersRejected(t *testing.T) {
	api := &fakeAPI{
		registerResult: &models.RegistrationResult{Success: false, Message: "Lot is full."},
	}
	m := NewMachine(api)
	m.SetLotCode("P104")
	m.SetLicensePlate("AB12CD")

	// 业务拒绝不是传输错误：停在第一步，提示内联展示
	require.NoError(t, m.SubmitIdentifiers(context.Background()))
	snap := m.Snapshot()
	assert.Equal(t, StepIdentifiers, snap.Step)
	assert.Equal(t, "Lot is full.", snap.Message)
}

func TestSubmitIdentifiersAPIError(t *testing.T) {
	api := &fakeAPI{
		registerErr: &permit.APIError{Status: 422, Message: "This lot code does not exist."},
	}
	m := NewMachine(api)
	m.SetLotCode("P999")
	m.SetLicensePlate("AB12CD")

	err := m.SubmitIdentifiers(context.Background())
	require.Error(t, err)

	snap := m.Snapshot()
	assert.Equal(t, StepIdentifiers, snap.Step)
	assert.Equal(t, "This lot code does not exist.", snap.Message)
	assert.False(t, snap.InFlight)
}

func TestSubmitIdentifiersNetworkError(t *testing.T) {
	api := &fakeAPI{registerErr: errors.New("connection refused")}
	m := NewMachine(api)
	m.SetLotCode("P104")
	m.SetLicensePlate("AB12CD")

	require.Error(t, m.SubmitIdentifiers(context.Background()))
	assert.Equal(t, "Something went wrong. Please try again.", m.Snapshot().Message)
}

func TestWizardHappyPath(t *testing.T) {
	api := &fakeAPI{
		registerResult: &models.RegistrationResult{Success: true},
		activateResult: &models.RegistrationResult{Success: true},
	}
	m := NewMachine(api)
	ctx := context.Background()

	m.SetLotCode("P104")
	m.SetLicensePlate("AB12CD")
	require.NoError(t, m.SubmitIdentifiers(ctx))
	assert.Equal(t, StepPermit, m.Step())

	req := models.ActivationRequest{
		VehicleManagementID: 42,
		StartDate:           "2026-09-01",
		StartTime:           "08:00",
		DurationHours:       24,
	}
	require.NoError(t, m.Activate(ctx, req))

	snap := m.Snapshot()
	assert.Equal(t, StepDone, snap.Step)
	assert.Equal(t, "Vehicle registered successfully!", snap.Message)
	assert.Equal(t, "2026-09-01", snap.Form.StartDate)
}

func TestActivateWrongStep(t *testing.T) {
	api := &fakeAPI{}
	m := NewMachine(api)

	err := m.Activate(context.Background(), models.ActivationRequest{})
	require.ErrorIs(t, err, ErrWrongStep)
	assert.Zero(t, api.activateCalls)
}

func TestStartOverResetsEverything(t *testing.T) {
	api := &fakeAPI{
		registerResult: &models.RegistrationResult{Success: true},
	}
	m := NewMachine(api)
	ctx := context.Background()

	m.SetLotCode("P104")
	m.SetLicensePlate("AB12CD")
	m.SetEmail("driver@example.com")
	require.NoError(t, m.SubmitIdentifiers(ctx))
	require.Equal(t, StepPermit, m.Step())

	m.StartOver()

	snap := m.Snapshot()
	assert.Equal(t, StepIdentifiers, snap.Step)
	assert.Equal(t, models.RegistrationForm{}, snap.Form)
	assert.Equal(t, FieldErrors{}, snap.FieldErrors)
	assert.Empty(t, snap.Message)

	// 已在第一步时也可以安全调用
	m.StartOver()
	assert.Equal(t, StepIdentifiers, m.Step())
}

func TestHistoryRequiresIdentifiers(t *testing.T) {
	api := &fakeAPI{}
	m := NewMachine(api)

	_, err := m.History(context.Background())
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "To view your vehicle permit history")
	assert.Zero(t, api.historyCalls)
}

func TestHistoryReturnsRows(t *testing.T) {
	api := &fakeAPI{
		history: []models.VehicleHistory{
			{LotCode: "P104", LicensePlate: "AB12CD"},
		},
	}
	m := NewMachine(api)
	m.SetLotCode("P104")
	m.SetLicensePlate("AB12CD")

	rows, err := m.History(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "P104", rows[0].LotCode)
	assert.Equal(t, 1, api.historyCalls)

	// 只读副操作，步骤不变
	assert.Equal(t, StepIdentifiers, m.Step())
}

func TestSendReceiptGuards(t *testing.T) {
	api := &fakeAPI{
		registerResult: &models.RegistrationResult{Success: true},
		activateResult: &models.RegistrationResult{Success: true},
	}
	m := NewMachine(api)
	ctx := context.Background()

	// 未到完成步骤
	err := m.SendReceipt(ctx, 42, "driver@example.com")
	require.ErrorIs(t, err, ErrWrongStep)

	m.SetLotCode("P104")
	m.SetLicensePlate("AB12CD")
	require.NoError(t, m.SubmitIdentifiers(ctx))
	require.NoError(t, m.Activate(ctx, models.ActivationRequest{VehicleManagementID: 42}))

	err = m.SendReceipt(ctx, 42, "")
	require.ErrorIs(t, err, ErrValidation)
	assert.Zero(t, api.emailCalls)

	require.NoError(t, m.SendReceipt(ctx, 42, "driver@example.com"))
	assert.Equal(t, "driver@example.com", api.lastEmail)
}
