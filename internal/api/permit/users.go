package permit

import (
	"context"
	"fmt"
	"net/http"

	"github.com/m6parking/parkadmin/internal/models"
)

// UserCreate 新建账号请求，Password 只写不读
type UserCreate struct {
	Username   string          `json:"username"`
	Password   string          `json:"password"`
	Role       models.UserRole `json:"role"`
	Note       string          `json:"note,omitempty"`
	Properties []string        `json:"properties"`
}

// UserUpdate 部分更新的请求体
type UserUpdate struct {
	Username   *string          `json:"username,omitempty"`
	Password   *string          `json:"password,omitempty"`
	Role       *models.UserRole `json:"role,omitempty"`
	Note       *string          `json:"note,omitempty"`
	Properties []string         `json:"properties,omitempty"`
}

// ListUsers 获取账号分页列表
func (c *Client) ListUsers(ctx context.Context, page, perPage int) (*models.Page[models.User], error) {
	result, err := listPage[models.User](ctx, c, "/users", page, perPage)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return result, nil
}

// CreateUser 新建账号
func (c *Client) CreateUser(ctx context.Context, payload UserCreate) (*models.User, error) {
	var user models.User
	if err := c.doJSON(ctx, http.MethodPost, "/users", payload, &user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &user, nil
}

// UpdateUser 部分更新账号
func (c *Client) UpdateUser(ctx context.Context, id int64, payload UserUpdate) (*models.User, error) {
	var user models.User
	if err := c.doJSON(ctx, http.MethodPut, fmt.Sprintf("/users/%d", id), payload, &user); err != nil {
		return nil, fmt.Errorf("update user %d: %w", id, err)
	}
	return &user, nil
}

// DeleteUser 删除账号
func (c *Client) DeleteUser(ctx context.Context, id int64) error {
	if err := c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/users/%d", id), nil, nil); err != nil {
		return fmt.Errorf("delete user %d: %w", id, err)
	}
	return nil
}

// BulkDeleteUsers 批量删除账号（DELETE /users 带 ids 请求体）
func (c *Client) BulkDeleteUsers(ctx context.Context, ids []int64) error {
	payload := map[string][]int64{"ids": ids}
	if err := c.doJSON(ctx, http.MethodDelete, "/users", payload, nil); err != nil {
		return fmt.Errorf("bulk delete users: %w", err)
	}
	return nil
}
