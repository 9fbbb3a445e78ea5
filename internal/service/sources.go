package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/m6parking/parkadmin/internal/api/permit"
	"github.com/m6parking/parkadmin/internal/listview"
	"github.com/m6parking/parkadmin/internal/models"
)

// 列表资源名（路由参数与偏好存储共用）
const (
	ResourceLots        = "lots"
	ResourceVehicles    = "vehicles"
	ResourceAccessCodes = "access-codes"
	ResourceUsers       = "users"
)

// toListPage 把客户端分页响应转成控制器的分页结构
func toListPage[T any](p *models.Page[T]) *listview.Page[T] {
	return &listview.Page[T]{
		Data:        p.Data,
		Total:       p.Total,
		PerPage:     p.PerPage,
		CurrentPage: p.CurrentPage,
		LastPage:    p.LastPage,
	}
}

// lotSource 车场数据源：支持单条删除与服务端导出
type lotSource struct {
	client *permit.Client
}

func (s lotSource) List(ctx context.Context, page, perPage int) (*listview.Page[models.Lot], error) {
	result, err := s.client.ListLots(ctx, page, perPage)
	if err != nil {
		return nil, err
	}
	return toListPage(result), nil
}

func (s lotSource) Delete(ctx context.Context, id int64) error {
	return s.client.DeleteLot(ctx, id)
}

func (s lotSource) Export(ctx context.Context, ids []int64) ([]byte, error) {
	return s.client.ExportLots(ctx, ids)
}

// vehicleSource 车辆数据源：逐条删除，客户端导出
type vehicleSource struct {
	client *permit.Client
}

func (s vehicleSource) List(ctx context.Context, page, perPage int) (*listview.Page[models.Vehicle], error) {
	result, err := s.client.ListVehicles(ctx, page, perPage)
	if err != nil {
		return nil, err
	}
	return toListPage(result), nil
}

func (s vehicleSource) Delete(ctx context.Context, id int64) error {
	return s.client.DeleteVehicle(ctx, id)
}

// accessCodeSource 访问码数据源
type accessCodeSource struct {
	client *permit.Client
}

func (s accessCodeSource) List(ctx context.Context, page, perPage int) (*listview.Page[models.AccessCode], error) {
	result, err := s.client.ListAccessCodes(ctx, page, perPage)
	if err != nil {
		return nil, err
	}
	return toListPage(result), nil
}

func (s accessCodeSource) Delete(ctx context.Context, id int64) error {
	return s.client.DeleteAccessCode(ctx, id)
}

// userSource 账号数据源：后端提供批量删除接口
type userSource struct {
	client *permit.Client
}

func (s userSource) List(ctx context.Context, page, perPage int) (*listview.Page[models.User], error) {
	result, err := s.client.ListUsers(ctx, page, perPage)
	if err != nil {
		return nil, err
	}
	return toListPage(result), nil
}

func (s userSource) Delete(ctx context.Context, id int64) error {
	return s.client.DeleteUser(ctx, id)
}

func (s userSource) DeleteMany(ctx context.Context, ids []int64) error {
	return s.client.BulkDeleteUsers(ctx, ids)
}

func derefNote(note *string) string {
	if note == nil {
		return ""
	}
	return *note
}

// lotConfig 车场列表的列定义
// 导出走服务端接口，不配置客户端 CSV 列（与其他资源的分歧属产品现状）
func lotConfig() listview.Config[models.Lot] {
	return listview.Config[models.Lot]{
		ID: func(l models.Lot) int64 { return l.ID },
		SearchFields: func(l models.Lot) []string {
			return []string{l.LotCode, l.Address, l.City}
		},
		CopyFields: func(l models.Lot) []string {
			return []string{l.LotCode, l.Address, l.City, string(l.Status)}
		},
	}
}

// vehicleConfig 车辆列表的列定义
func vehicleConfig() listview.Config[models.Vehicle] {
	return listview.Config[models.Vehicle]{
		ID: func(v models.Vehicle) int64 { return v.ID },
		SearchFields: func(v models.Vehicle) []string {
			return []string{v.LicensePlate, v.PermitID, string(v.Status)}
		},
		CopyFields: func(v models.Vehicle) []string {
			return []string{v.LicensePlate, v.PermitID, string(v.Status)}
		},
		CSVHeader: []string{"License Plate", "Permit ID", "Status", "Start Date", "End Date", "Active"},
		CSVRecord: func(v models.Vehicle) []string {
			return []string{
				v.LicensePlate,
				v.PermitID,
				string(v.Status),
				v.StartDate.Format(time.RFC3339),
				v.EndDate.Format(time.RFC3339),
				strconv.FormatBool(v.IsActive),
			}
		},
	}
}

// accessCodeConfig 访问码列表的列定义
func accessCodeConfig() listview.Config[models.AccessCode] {
	return listview.Config[models.AccessCode]{
		ID: func(a models.AccessCode) int64 { return a.ID },
		SearchFields: func(a models.AccessCode) []string {
			return []string{a.AccessCode, a.Duration}
		},
		CopyFields: func(a models.AccessCode) []string {
			return []string{a.AccessCode, strconv.Itoa(a.PermitsPerMonth), a.Duration}
		},
		CSVHeader: []string{"Access Code", "Permits/Mo", "Duration", "Active"},
		CSVRecord: func(a models.AccessCode) []string {
			return []string{
				a.AccessCode,
				strconv.Itoa(a.PermitsPerMonth),
				a.Duration,
				strconv.FormatBool(a.IsActive),
			}
		},
	}
}

// userConfig 账号列表的列定义
func userConfig() listview.Config[models.User] {
	return listview.Config[models.User]{
		ID: func(u models.User) int64 { return u.ID },
		SearchFields: func(u models.User) []string {
			return []string{u.Username, string(u.Role), derefNote(u.Note)}
		},
		CopyFields: func(u models.User) []string {
			return []string{u.Username, string(u.Role), derefNote(u.Note)}
		},
		CSVHeader: []string{"Username", "Role", "Note", "Properties"},
		CSVRecord: func(u models.User) []string {
			return []string{
				u.Username,
				string(u.Role),
				derefNote(u.Note),
				strings.Join(u.Properties, ";"),
			}
		},
	}
}
