// Package service 把上游客户端、列表控制器、注册向导和本地会话粘合成控制台服务。
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/m6parking/parkadmin/internal/api/permit"
	"github.com/m6parking/parkadmin/internal/config"
	"github.com/m6parking/parkadmin/internal/listview"
	"github.com/m6parking/parkadmin/internal/models"
	"github.com/m6parking/parkadmin/internal/store"
	"github.com/m6parking/parkadmin/internal/wizard"
	"github.com/m6parking/parkadmin/pkg/ws"
)

// ErrUnknownResource 路由带了不认识的资源名
var ErrUnknownResource = errors.New("unknown resource")

// View 资源无关的列表视图操作面，由泛型控制器适配而来
type View interface {
	Fetch(ctx context.Context) error
	VisibleRows() any
	Meta() listview.Meta
	SetPage(page int) bool
	NextPage() bool
	PrevPage() bool
	SetRowsPerPage(perPage int) bool
	SetSearch(text string)
	Toggle(id int64)
	SelectAll(checked bool)
	AllSelected() bool
	SelectedIDs() []int64
	CopySelected() string
	ExportSelected(ctx context.Context) ([]byte, error)
	DeleteSelected(ctx context.Context) error
	RowsPerPage() int
}

// typedView 泛型控制器到 View 的适配
type typedView[T any] struct {
	*listview.Controller[T]
}

func (v typedView[T]) VisibleRows() any {
	return v.Visible()
}

// sessionState 一个已登录会话的内存状态
// 每个会话持有自己的上游客户端（各自的令牌）和四个列表控制器
type sessionState struct {
	client *permit.Client
	views  map[string]View
}

// Dashboard 控制台核心服务
type Dashboard struct {
	logger  *zap.Logger
	cfg     *config.Config
	store   *store.SessionStore
	hub     *ws.Hub
	wizards *wizard.Manager

	mu       sync.Mutex
	sessions map[string]*sessionState
}

// NewDashboard 创建服务
// 注册向导走公开接口，共用一个未认证客户端
func NewDashboard(cfg *config.Config, logger *zap.Logger, sessionStore *store.SessionStore, hub *ws.Hub) *Dashboard {
	publicClient := permit.NewClient(cfg.PermitAPIHost, cfg.RequestTimeout)
	return &Dashboard{
		logger:   logger,
		cfg:      cfg,
		store:    sessionStore,
		hub:      hub,
		wizards:  wizard.NewManager(publicClient, cfg.WizardSessionTTL),
		sessions: make(map[string]*sessionState),
	}
}

// Wizards 注册向导管理器
func (d *Dashboard) Wizards() *wizard.Manager {
	return d.wizards
}

// Login 登录上游并建立控制台会话
func (d *Dashboard) Login(ctx context.Context, username, password string) (*store.Session, error) {
	client := permit.NewClient(d.cfg.PermitAPIHost, d.cfg.RequestTimeout)
	if _, err := client.Login(ctx, username, password); err != nil {
		return nil, fmt.Errorf("upstream login: %w", err)
	}

	session, err := d.store.Create(ctx, client.Token(), username)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	d.mu.Lock()
	d.sessions[session.ID] = &sessionState{
		client: client,
		views:  buildViews(client),
	}
	d.mu.Unlock()

	d.logger.Info("Session created", zap.String("username", username), zap.String("session_id", session.ID))
	return session, nil
}

// Logout 销毁会话；上游登出失败只记日志，本地会话一定清掉
func (d *Dashboard) Logout(ctx context.Context, sessionID string) error {
	state, err := d.state(ctx, sessionID)
	if err == nil {
		if err := state.client.Logout(ctx); err != nil {
			d.logger.Warn("Upstream logout failed", zap.Error(err), zap.String("session_id", sessionID))
		}
	}

	d.mu.Lock()
	delete(d.sessions, sessionID)
	d.mu.Unlock()

	if err := d.store.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Authenticate 校验会话是否有效
func (d *Dashboard) Authenticate(ctx context.Context, sessionID string) (*store.Session, error) {
	return d.store.Get(ctx, sessionID)
}

// state 取会话的内存状态，进程重启后用存储里的令牌重建
func (d *Dashboard) state(ctx context.Context, sessionID string) (*sessionState, error) {
	d.mu.Lock()
	if s, ok := d.sessions[sessionID]; ok {
		d.mu.Unlock()
		return s, nil
	}
	d.mu.Unlock()

	session, err := d.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	client := permit.NewClient(d.cfg.PermitAPIHost, d.cfg.RequestTimeout)
	client.SetToken(session.Token)

	state := &sessionState{
		client: client,
		views:  buildViews(client),
	}
	d.restoreViewPrefs(ctx, sessionID, state)

	d.mu.Lock()
	d.sessions[sessionID] = state
	d.mu.Unlock()

	return state, nil
}

// buildViews 为会话建四个列表控制器
func buildViews(client *permit.Client) map[string]View {
	return map[string]View{
		ResourceLots:        typedView[models.Lot]{listview.New(lotSource{client}, lotConfig())},
		ResourceVehicles:    typedView[models.Vehicle]{listview.New(vehicleSource{client}, vehicleConfig())},
		ResourceAccessCodes: typedView[models.AccessCode]{listview.New(accessCodeSource{client}, accessCodeConfig())},
		ResourceUsers:       typedView[models.User]{listview.New(userSource{client}, userConfig())},
	}
}

// Client 取会话绑定的上游客户端，新建/编辑表单由 handler 直接代理上游
func (d *Dashboard) Client(ctx context.Context, sessionID string) (*permit.Client, error) {
	state, err := d.state(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return state.client, nil
}

// View 取某个资源的列表视图
func (d *Dashboard) View(ctx context.Context, sessionID, resource string) (View, error) {
	state, err := d.state(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	view, ok := state.views[resource]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownResource, resource)
	}
	return view, nil
}

// SetRowsPerPage 切换每页行数并持久化为该会话的偏好
func (d *Dashboard) SetRowsPerPage(ctx context.Context, sessionID, resource string, perPage int) (bool, error) {
	view, err := d.View(ctx, sessionID, resource)
	if err != nil {
		return false, err
	}

	changed := view.SetRowsPerPage(perPage)
	if changed {
		if err := d.store.SaveViewPref(ctx, sessionID, resource, perPage); err != nil {
			d.logger.Warn("Failed to save view preference", zap.Error(err))
		}
	}
	return changed, nil
}

// restoreViewPrefs 重建会话时恢复记住的每页行数
func (d *Dashboard) restoreViewPrefs(ctx context.Context, sessionID string, state *sessionState) {
	for resource, view := range state.views {
		perPage, ok, err := d.store.GetViewPref(ctx, sessionID, resource)
		if err != nil {
			d.logger.Warn("Failed to load view preference", zap.Error(err), zap.String("resource", resource))
			continue
		}
		if ok {
			view.SetRowsPerPage(perPage)
		}
	}
}

// DeleteSelected 批量删除并向所有前端广播结果
func (d *Dashboard) DeleteSelected(ctx context.Context, sessionID, resource string) error {
	view, err := d.View(ctx, sessionID, resource)
	if err != nil {
		return err
	}

	ids := view.SelectedIDs()
	delErr := view.DeleteSelected(ctx)

	event := ws.ViewEvent{Resource: resource, IDs: ids}
	if delErr != nil {
		event.Error = delErr.Error()
	}
	d.hub.BroadcastBulkDeleteDone(event)

	return delErr
}

// NotifyViewChanged 资源变更后广播刷新事件（新建/编辑表单提交成功时调用）
func (d *Dashboard) NotifyViewChanged(resource string, ids ...int64) {
	d.hub.BroadcastViewUpdate(ws.ViewEvent{Resource: resource, IDs: ids})
}
