// Package listview 实现后台列表页共用的 取数/分页/筛选/批量操作 模式。
// 每种资源（车场、车辆、访问码、账号）各实例化一个 Controller。
package listview

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

const (
	// RowsPerPageAll “ALL”档位的哨兵值
	RowsPerPageAll = -1

	// DefaultRowsPerPage 默认每页行数
	DefaultRowsPerPage = 25
)

// Page 与 Source 解耦的分页结果
type Page[T any] struct {
	Data        []T
	Total       int
	PerPage     int
	CurrentPage int
	LastPage    int
}

// Source 列表数据源，由各资源的 API 客户端适配实现
type Source[T any] interface {
	List(ctx context.Context, page, perPage int) (*Page[T], error)
}

// Deleter 支持单条删除的数据源
type Deleter interface {
	Delete(ctx context.Context, id int64) error
}

// BulkDeleter 支持批量删除的数据源，优先于逐条删除
type BulkDeleter interface {
	DeleteMany(ctx context.Context, ids []int64) error
}

// Exporter 支持服务端导出的数据源（目前只有车场）
// 未实现此接口的资源在客户端侧从已取到的行合成 CSV，两者覆盖范围不同：
// 服务端导出可包含未取到的行，客户端导出只覆盖当前页。该分歧是沿袭的
// 产品现状，等确认前不做统一。
type Exporter interface {
	Export(ctx context.Context, ids []int64) ([]byte, error)
}

// Config 资源相关的列定义
type Config[T any] struct {
	ID           func(T) int64    // 行 ID
	SearchFields func(T) []string // 参与文本筛选的字段
	CopyFields   func(T) []string // 批量复制的展示列
	CSVHeader    []string         // 客户端导出的表头
	CSVRecord    func(T) []string // 客户端导出的行
}

// Controller 列表视图控制器
// 行数据只是当前页的瞬态缓存，服务端是分页状态的唯一权威
type Controller[T any] struct {
	mu  sync.Mutex
	src Source[T]
	cfg Config[T]

	rows        []T
	currentPage int
	rowsPerPage int
	total       int
	lastPage    int
	searchText  string
	selected    map[int64]struct{}
	lastErr     error

	// 请求序号，参数变更后作废在途响应
	fetchSeq uint64
}

// New 创建控制器
func New[T any](src Source[T], cfg Config[T]) *Controller[T] {
	if cfg.ID == nil {
		panic("listview: Config.ID is required")
	}
	return &Controller[T]{
		src:         src,
		cfg:         cfg,
		currentPage: 1,
		rowsPerPage: DefaultRowsPerPage,
		lastPage:    1,
		selected:    make(map[int64]struct{}),
	}
}

// Fetch 拉取当前页
// 成功时用服务端响应整体替换 rows/total/currentPage/lastPage，并按新行收敛选中集；
// 失败时只记录错误，保留旧行（可见的旧数据优于空表）
func (c *Controller[T]) Fetch(ctx context.Context) error {
	c.mu.Lock()
	page := c.currentPage
	perPage := c.rowsPerPage
	if perPage == RowsPerPageAll {
		// ALL 档位按上次已知总数请求；总数未知时退回默认页长，
		// 数据集增长时最多差一轮取数
		if c.total > 0 {
			perPage = c.total
		} else {
			perPage = DefaultRowsPerPage
		}
	}
	seq := c.fetchSeq
	c.mu.Unlock()

	result, err := c.src.List(ctx, page, perPage)

	c.mu.Lock()
	defer c.mu.Unlock()

	if seq != c.fetchSeq {
		// 参数已变，丢弃过期响应
		return nil
	}

	if err != nil {
		c.lastErr = err
		return err
	}

	c.rows = result.Data
	c.total = result.Total
	if result.CurrentPage > 0 {
		c.currentPage = result.CurrentPage
	}
	if result.LastPage > 0 {
		c.lastPage = result.LastPage
	} else {
		c.lastPage = 1
	}
	c.lastErr = nil

	// 选中集只允许引用当前已加载的行
	loaded := make(map[int64]struct{}, len(c.rows))
	for _, row := range c.rows {
		loaded[c.cfg.ID(row)] = struct{}{}
	}
	for id := range c.selected {
		if _, ok := loaded[id]; !ok {
			delete(c.selected, id)
		}
	}

	return nil
}

// SetPage 跳转页码，返回是否发生变化，变化时清空选中集
func (c *Controller[T]) SetPage(page int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if page < 1 {
		page = 1
	}
	if page > c.lastPage {
		page = c.lastPage
	}
	if page == c.currentPage {
		return false
	}

	c.currentPage = page
	c.selected = make(map[int64]struct{})
	c.fetchSeq++
	return true
}

// NextPage 下一页
func (c *Controller[T]) NextPage() bool {
	c.mu.Lock()
	next := c.currentPage + 1
	c.mu.Unlock()
	return c.SetPage(next)
}

// PrevPage 上一页
func (c *Controller[T]) PrevPage() bool {
	c.mu.Lock()
	prev := c.currentPage - 1
	c.mu.Unlock()
	return c.SetPage(prev)
}

// CanNext 是否还有下一页
func (c *Controller[T]) CanNext() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentPage < c.lastPage
}

// CanPrev 是否还有上一页
func (c *Controller[T]) CanPrev() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentPage > 1
}

// SetRowsPerPage 切换每页行数并回到第一页，perPage 取 RowsPerPageAll 表示全部
func (c *Controller[T]) SetRowsPerPage(perPage int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if perPage != RowsPerPageAll && perPage < 1 {
		perPage = DefaultRowsPerPage
	}
	if perPage == c.rowsPerPage {
		return false
	}

	c.rowsPerPage = perPage
	c.currentPage = 1
	c.selected = make(map[int64]struct{})
	c.fetchSeq++
	return true
}

// SetSearch 更新筛选文本，纯客户端行为，不触发取数
func (c *Controller[T]) SetSearch(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.searchText = text
}

// Visible 返回筛选后的行
// 只在已取到的当前页内做大小写不敏感的子串匹配，不发服务端查询——
// 这是沿袭下来的已知局限
func (c *Controller[T]) Visible() []T {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.searchText == "" || c.cfg.SearchFields == nil {
		return append([]T(nil), c.rows...)
	}

	needle := strings.ToLower(c.searchText)
	var visible []T
	for _, row := range c.rows {
		for _, field := range c.cfg.SearchFields(row) {
			if strings.Contains(strings.ToLower(field), needle) {
				visible = append(visible, row)
				break
			}
		}
	}
	return visible
}

// Rows 返回当前页全部行
func (c *Controller[T]) Rows() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]T(nil), c.rows...)
}

// Toggle 翻转单行选中状态
func (c *Controller[T]) Toggle(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.selected[id]; ok {
		delete(c.selected, id)
	} else {
		c.selected[id] = struct{}{}
	}
}

// SelectAll 全选/全不选当前页
func (c *Controller[T]) SelectAll(checked bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.selected = make(map[int64]struct{})
	if checked {
		for _, row := range c.rows {
			c.selected[c.cfg.ID(row)] = struct{}{}
		}
	}
}

// AllSelected 全选框的勾选状态
// 按“选中数等于行数”判定时零行也会成立，这里收紧为空表恒未勾选——
// 与沿袭的页面行为有意不同
func (c *Controller[T]) AllSelected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.rows) > 0 && len(c.selected) == len(c.rows)
}

// IsSelected 单行勾选状态
func (c *Controller[T]) IsSelected(id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.selected[id]
	return ok
}

// SelectedIDs 返回排序后的选中 ID
func (c *Controller[T]) SelectedIDs() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := make([]int64, 0, len(c.selected))
	for id := range c.selected {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ClearSelection 清空选中集
func (c *Controller[T]) ClearSelection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selected = make(map[int64]struct{})
}

// CopySelected 把选中行的展示列序列化为制表符分隔文本
// 纯客户端操作，写剪贴板由调用方完成
func (c *Controller[T]) CopySelected() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfg.CopyFields == nil {
		return ""
	}

	var lines []string
	for _, row := range c.rows {
		if _, ok := c.selected[c.cfg.ID(row)]; !ok {
			continue
		}
		lines = append(lines, strings.Join(c.cfg.CopyFields(row), "\t"))
	}
	return strings.Join(lines, "\n")
}

// ExportSelected 导出选中行
// 数据源实现 Exporter 时走服务端导出，否则从当前页选中行合成 CSV
func (c *Controller[T]) ExportSelected(ctx context.Context) ([]byte, error) {
	ids := c.SelectedIDs()
	if len(ids) == 0 {
		return nil, errors.New("listview: no rows selected")
	}

	if exporter, ok := c.src.(Exporter); ok {
		data, err := exporter.Export(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("server export: %w", err)
		}
		return data, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfg.CSVRecord == nil {
		return nil, errors.New("listview: source supports neither server nor client export")
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if len(c.cfg.CSVHeader) > 0 {
		if err := w.Write(c.cfg.CSVHeader); err != nil {
			return nil, fmt.Errorf("write csv header: %w", err)
		}
	}
	for _, row := range c.rows {
		if _, ok := c.selected[c.cfg.ID(row)]; !ok {
			continue
		}
		if err := w.Write(c.cfg.CSVRecord(row)); err != nil {
			return nil, fmt.Errorf("write csv record: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// DeleteSelected 批量删除选中行
// 数据源支持批量接口时一次调用，否则逐条并发删除（不保证顺序，无部分失败回滚）。
// 无论成败都重新拉取当前页并清空选中集，失败的行通过返回错误报告
func (c *Controller[T]) DeleteSelected(ctx context.Context) error {
	ids := c.SelectedIDs()
	if len(ids) == 0 {
		return nil
	}

	var delErr error
	switch src := c.src.(type) {
	case BulkDeleter:
		if err := src.DeleteMany(ctx, ids); err != nil {
			delErr = fmt.Errorf("bulk delete: %w", err)
		}
	case Deleter:
		var (
			wg     sync.WaitGroup
			mu     sync.Mutex
			failed []int64
			errs   []error
		)
		for _, id := range ids {
			wg.Add(1)
			go func(id int64) {
				defer wg.Done()
				if err := src.Delete(ctx, id); err != nil {
					mu.Lock()
					failed = append(failed, id)
					errs = append(errs, err)
					mu.Unlock()
				}
			}(id)
		}
		wg.Wait()
		if len(failed) > 0 {
			sort.Slice(failed, func(i, j int) bool { return failed[i] < failed[j] })
			delErr = fmt.Errorf("delete rows %v: %w", failed, errors.Join(errs...))
		}
	default:
		return errors.New("listview: source does not support delete")
	}

	c.ClearSelection()
	if err := c.Fetch(ctx); err != nil {
		if delErr != nil {
			return errors.Join(delErr, err)
		}
		return err
	}
	return delErr
}

// Meta 分页元信息
type Meta struct {
	Total       int    `json:"total"`
	PerPage     int    `json:"per_page"`
	CurrentPage int    `json:"current_page"`
	LastPage    int    `json:"last_page"`
	Search      string `json:"search,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Meta 返回当前分页状态快照
func (c *Controller[T]) Meta() Meta {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := Meta{
		Total:       c.total,
		PerPage:     c.rowsPerPage,
		CurrentPage: c.currentPage,
		LastPage:    c.lastPage,
		Search:      c.searchText,
	}
	if c.lastErr != nil {
		m.Error = c.lastErr.Error()
	}
	return m
}

// LastErr 上一次取数错误
func (c *Controller[T]) LastErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// CurrentPage 当前页码
func (c *Controller[T]) CurrentPage() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentPage
}

// LastPage 末页页码
func (c *Controller[T]) LastPage() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastPage
}

// Total 服务端报告的总行数
func (c *Controller[T]) Total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

// RowsPerPage 当前每页行数（RowsPerPageAll 表示全部）
func (c *Controller[T]) RowsPerPage() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rowsPerPage
}
