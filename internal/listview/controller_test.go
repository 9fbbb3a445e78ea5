package listview

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	id   int64
	name string
}

// fakeSource 以内存切片模拟服务端分页
type fakeSource struct {
	mu          sync.Mutex
	items       []item
	listCalls   []int // 每次 List 收到的 perPage
	deleteCalls []int64
	failIDs     map[int64]bool
	listErr     error
}

func (s *fakeSource) List(_ context.Context, page, perPage int) (*Page[item], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.listCalls = append(s.listCalls, perPage)
	if s.listErr != nil {
		return nil, s.listErr
	}

	total := len(s.items)
	lastPage := (total + perPage - 1) / perPage
	if lastPage < 1 {
		lastPage = 1
	}
	start := (page - 1) * perPage
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}

	return &Page[item]{
		Data:        append([]item(nil), s.items[start:end]...),
		Total:       total,
		PerPage:     perPage,
		CurrentPage: page,
		LastPage:    lastPage,
	}, nil
}

func (s *fakeSource) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deleteCalls = append(s.deleteCalls, id)
	if s.failIDs[id] {
		return errors.New("delete rejected")
	}
	for i, it := range s.items {
		if it.id == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			break
		}
	}
	return nil
}

// bulkSource 在 fakeSource 之上增加批量删除
type bulkSource struct {
	fakeSource
	bulkCalls [][]int64
}

func (s *bulkSource) DeleteMany(_ context.Context, ids []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bulkCalls = append(s.bulkCalls, append([]int64(nil), ids...))
	for _, id := range ids {
		for i, it := range s.items {
			if it.id == id {
				s.items = append(s.items[:i], s.items[i+1:]...)
				break
			}
		}
	}
	return nil
}

func seedItems(n int) []item {
	items := make([]item, 0, n)
	for i := 1; i <= n; i++ {
		items = append(items, item{id: int64(i), name: "Item " + strconv.Itoa(i)})
	}
	return items
}

func itemConfig() Config[item] {
	return Config[item]{
		ID:           func(i item) int64 { return i.id },
		SearchFields: func(i item) []string { return []string{i.name} },
		CopyFields:   func(i item) []string { return []string{strconv.FormatInt(i.id, 10), i.name} },
		CSVHeader:    []string{"ID", "Name"},
		CSVRecord:    func(i item) []string { return []string{strconv.FormatInt(i.id, 10), i.name} },
	}
}

func TestControllerPagination(t *testing.T) {
	src := &fakeSource{items: seedItems(12)}
	ctrl := New[item](src, itemConfig())
	ctx := context.Background()

	ctrl.SetRowsPerPage(5)
	require.NoError(t, ctrl.Fetch(ctx))

	assert.Len(t, ctrl.Rows(), 5)
	assert.Equal(t, 12, ctrl.Total())
	assert.Equal(t, 3, ctrl.LastPage())
	assert.True(t, ctrl.CanNext())
	assert.False(t, ctrl.CanPrev())

	require.True(t, ctrl.NextPage())
	require.NoError(t, ctrl.Fetch(ctx))
	require.True(t, ctrl.NextPage())
	require.NoError(t, ctrl.Fetch(ctx))

	assert.Equal(t, 3, ctrl.CurrentPage())
	assert.Len(t, ctrl.Rows(), 2)
	assert.False(t, ctrl.CanNext())
	assert.True(t, ctrl.CanPrev())

	// 末页不能再往后翻
	assert.False(t, ctrl.NextPage())
	assert.Equal(t, 3, ctrl.CurrentPage())
}

func TestControllerPageClamping(t *testing.T) {
	src := &fakeSource{items: seedItems(12)}
	ctrl := New[item](src, itemConfig())

	ctrl.SetRowsPerPage(5)
	require.NoError(t, ctrl.Fetch(context.Background()))

	assert.True(t, ctrl.SetPage(99))
	assert.Equal(t, 3, ctrl.CurrentPage())

	assert.True(t, ctrl.SetPage(-4))
	assert.Equal(t, 1, ctrl.CurrentPage())
}

func TestControllerSelectionBoundToLoadedRows(t *testing.T) {
	src := &fakeSource{items: seedItems(12)}
	ctrl := New[item](src, itemConfig())
	ctx := context.Background()

	ctrl.SetRowsPerPage(5)
	require.NoError(t, ctrl.Fetch(ctx))

	ctrl.Toggle(1)
	ctrl.Toggle(3)
	assert.Equal(t, []int64{1, 3}, ctrl.SelectedIDs())
	assert.True(t, ctrl.IsSelected(3))

	// 翻页清空选中集
	require.True(t, ctrl.NextPage())
	assert.Empty(t, ctrl.SelectedIDs())

	require.NoError(t, ctrl.Fetch(ctx))
	ctrl.Toggle(6)

	// 重新取数后选中集只保留仍在当前页的行
	src.mu.Lock()
	src.items = src.items[:5] // 第二页不复存在
	src.mu.Unlock()
	require.NoError(t, ctrl.Fetch(ctx))
	assert.Empty(t, ctrl.SelectedIDs())
}

func TestControllerSelectAll(t *testing.T) {
	src := &fakeSource{items: seedItems(5)}
	ctrl := New[item](src, itemConfig())

	require.NoError(t, ctrl.Fetch(context.Background()))
	assert.False(t, ctrl.AllSelected())

	ctrl.SelectAll(true)
	assert.True(t, ctrl.AllSelected())
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, ctrl.SelectedIDs())

	ctrl.SelectAll(false)
	assert.False(t, ctrl.AllSelected())
	assert.Empty(t, ctrl.SelectedIDs())
}

func TestControllerSearchFilter(t *testing.T) {
	src := &fakeSource{items: []item{
		{1, "Alpha Lot"},
		{2, "beta lot"},
		{3, "Gamma"},
	}}
	ctrl := New[item](src, itemConfig())

	require.NoError(t, ctrl.Fetch(context.Background()))

	// 大小写不敏感的子串匹配
	ctrl.SetSearch("LOT")
	visible := ctrl.Visible()
	require.Len(t, visible, 2)
	assert.Equal(t, int64(1), visible[0].id)
	assert.Equal(t, int64(2), visible[1].id)

	// 筛选是幂等的只读视图，不改底层行
	assert.Equal(t, visible, ctrl.Visible())
	assert.Len(t, ctrl.Rows(), 3)

	ctrl.SetSearch("")
	assert.Len(t, ctrl.Visible(), 3)
}

func TestControllerFetchErrorKeepsStaleRows(t *testing.T) {
	src := &fakeSource{items: seedItems(3)}
	ctrl := New[item](src, itemConfig())
	ctx := context.Background()

	require.NoError(t, ctrl.Fetch(ctx))
	require.Len(t, ctrl.Rows(), 3)

	src.mu.Lock()
	src.listErr = errors.New("upstream down")
	src.mu.Unlock()

	err := ctrl.Fetch(ctx)
	require.Error(t, err)
	assert.Len(t, ctrl.Rows(), 3, "stale rows stay visible on fetch failure")
	assert.Contains(t, ctrl.Meta().Error, "upstream down")

	src.mu.Lock()
	src.listErr = nil
	src.mu.Unlock()

	require.NoError(t, ctrl.Fetch(ctx))
	assert.Empty(t, ctrl.Meta().Error)
}

func TestControllerRowsPerPageAll(t *testing.T) {
	src := &fakeSource{items: seedItems(60)}
	ctrl := New[item](src, itemConfig())
	ctx := context.Background()

	// 总数未知时 ALL 档位退回默认页长
	ctrl.SetRowsPerPage(RowsPerPageAll)
	require.NoError(t, ctrl.Fetch(ctx))
	assert.Equal(t, DefaultRowsPerPage, src.listCalls[0])

	// 总数已知后按总数请求
	require.NoError(t, ctrl.Fetch(ctx))
	assert.Equal(t, 60, src.listCalls[1])
	assert.Len(t, ctrl.Rows(), 60)
}

// gatedSource 第一次 List 阻塞到显式放行，后续调用直通
type gatedSource struct {
	fakeSource
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (s *gatedSource) List(ctx context.Context, page, perPage int) (*Page[item], error) {
	gated := false
	s.once.Do(func() { gated = true })
	if gated {
		close(s.entered)
		<-s.release
	}
	return s.fakeSource.List(ctx, page, perPage)
}

func TestControllerDiscardsStaleFetch(t *testing.T) {
	src := &gatedSource{
		fakeSource: fakeSource{items: seedItems(12)},
		entered:    make(chan struct{}),
		release:    make(chan struct{}),
	}
	ctrl := New[item](src, itemConfig())
	ctx := context.Background()

	ctrl.SetRowsPerPage(5)
	first := make(chan error, 1)
	go func() { first <- ctrl.Fetch(ctx) }()
	<-src.entered

	// 响应在途时切换页长，作废那次取数
	require.True(t, ctrl.SetRowsPerPage(3))
	close(src.release)
	require.NoError(t, <-first)

	// 过期的 5 行响应不得覆盖新状态
	assert.Empty(t, ctrl.Rows())
	assert.Equal(t, 3, ctrl.RowsPerPage())
	assert.Equal(t, 0, ctrl.Total())

	require.NoError(t, ctrl.Fetch(ctx))
	assert.Len(t, ctrl.Rows(), 3)
	assert.Equal(t, 12, ctrl.Total())
}

func TestControllerAllSelectedEmptyTable(t *testing.T) {
	src := &fakeSource{}
	ctrl := New[item](src, itemConfig())

	require.NoError(t, ctrl.Fetch(context.Background()))
	require.Empty(t, ctrl.Rows())

	// 零行不算全选，全选框保持未勾选
	assert.False(t, ctrl.AllSelected())
	ctrl.SelectAll(true)
	assert.False(t, ctrl.AllSelected())
}

func TestControllerDeleteSelectedPerRow(t *testing.T) {
	src := &fakeSource{items: seedItems(5)}
	ctrl := New[item](src, itemConfig())
	ctx := context.Background()

	require.NoError(t, ctrl.Fetch(ctx))
	ctrl.Toggle(1)
	ctrl.Toggle(3)
	ctrl.Toggle(5)

	require.NoError(t, ctrl.DeleteSelected(ctx))

	src.mu.Lock()
	calls := append([]int64(nil), src.deleteCalls...)
	src.mu.Unlock()
	assert.ElementsMatch(t, []int64{1, 3, 5}, calls)

	// 删除后重新取数并清空选中集
	assert.Empty(t, ctrl.SelectedIDs())
	assert.Len(t, ctrl.Rows(), 2)
	assert.Equal(t, 2, ctrl.Total())
}

func TestControllerDeleteSelectedPartialFailure(t *testing.T) {
	src := &fakeSource{
		items:   seedItems(4),
		failIDs: map[int64]bool{2: true},
	}
	ctrl := New[item](src, itemConfig())
	ctx := context.Background()

	require.NoError(t, ctrl.Fetch(ctx))
	ctrl.Toggle(1)
	ctrl.Toggle(2)

	err := ctrl.DeleteSelected(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[2]")

	// 失败也要收敛：选中集清空，页面按服务端现状重取
	assert.Empty(t, ctrl.SelectedIDs())
	assert.Len(t, ctrl.Rows(), 3)
}

func TestControllerDeleteSelectedBulk(t *testing.T) {
	src := &bulkSource{fakeSource: fakeSource{items: seedItems(5)}}
	ctrl := New[item](src, itemConfig())
	ctx := context.Background()

	require.NoError(t, ctrl.Fetch(ctx))
	ctrl.Toggle(4)
	ctrl.Toggle(2)

	require.NoError(t, ctrl.DeleteSelected(ctx))

	src.mu.Lock()
	bulkCalls := src.bulkCalls
	perRow := src.deleteCalls
	src.mu.Unlock()

	// 批量接口一次调用，ID 升序，不退化为逐条删除
	require.Len(t, bulkCalls, 1)
	assert.Equal(t, []int64{2, 4}, bulkCalls[0])
	assert.Empty(t, perRow)
	assert.Len(t, ctrl.Rows(), 3)
}

func TestControllerCopySelected(t *testing.T) {
	src := &fakeSource{items: seedItems(3)}
	ctrl := New[item](src, itemConfig())

	require.NoError(t, ctrl.Fetch(context.Background()))
	ctrl.Toggle(1)
	ctrl.Toggle(3)

	text := ctrl.CopySelected()
	lines := strings.Split(text, "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "1\tItem 1", lines[0])
	assert.Equal(t, "3\tItem 3", lines[1])
}

func TestControllerExportSelectedClientCSV(t *testing.T) {
	src := &fakeSource{items: seedItems(3)}
	ctrl := New[item](src, itemConfig())
	ctx := context.Background()

	require.NoError(t, ctrl.Fetch(ctx))

	_, err := ctrl.ExportSelected(ctx)
	require.Error(t, err, "export requires a selection")

	ctrl.Toggle(2)
	data, err := ctrl.ExportSelected(ctx)
	require.NoError(t, err)

	assert.Equal(t, "ID,Name\n2,Item 2\n", string(data))
}

type exportingSource struct {
	fakeSource
	exported []int64
}

func (s *exportingSource) Export(_ context.Context, ids []int64) ([]byte, error) {
	s.exported = append([]int64(nil), ids...)
	return []byte("server-csv"), nil
}

func TestControllerExportSelectedServerSide(t *testing.T) {
	src := &exportingSource{fakeSource: fakeSource{items: seedItems(3)}}
	ctrl := New[item](src, itemConfig())
	ctx := context.Background()

	require.NoError(t, ctrl.Fetch(ctx))
	ctrl.Toggle(1)
	ctrl.Toggle(2)

	data, err := ctrl.ExportSelected(ctx)
	require.NoError(t, err)
	assert.Equal(t, "server-csv", string(data))
	assert.Equal(t, []int64{1, 2}, src.exported)
}
