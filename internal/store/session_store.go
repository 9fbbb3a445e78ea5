package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrSessionNotFound 会话不存在或已登出
var ErrSessionNotFound = errors.New("session not found")

// Session 控制台登录会话
// 取代散落各处的 storage 直读：令牌只通过显式的登录/登出流转
type Session struct {
	ID        string    `json:"id"`
	Token     string    `json:"-"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionStore 会话与列表偏好存储
type SessionStore struct {
	db *DB
}

// NewSessionStore 创建存储
func NewSessionStore(db *DB) *SessionStore {
	return &SessionStore{db: db}
}

// Create 登录成功后写入新会话
func (s *SessionStore) Create(ctx context.Context, token, username string) (*Session, error) {
	session := &Session{
		ID:        uuid.NewString(),
		Token:     token,
		Username:  username,
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.db.conn.ExecContext(ctx,
		`INSERT INTO sessions (id, token, username, created_at) VALUES (?, ?, ?, ?)`,
		session.ID, session.Token, session.Username, session.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}

	return session, nil
}

// Get 按会话 ID 取会话
func (s *SessionStore) Get(ctx context.Context, id string) (*Session, error) {
	var session Session
	err := s.db.conn.QueryRowContext(ctx,
		`SELECT id, token, username, created_at FROM sessions WHERE id = ?`, id,
	).Scan(&session.ID, &session.Token, &session.Username, &session.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query session: %w", err)
	}
	return &session, nil
}

// Delete 登出时删除会话（级联清掉列表偏好）
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.conn.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// SaveViewPref 记住某个列表的每页行数
func (s *SessionStore) SaveViewPref(ctx context.Context, sessionID, resource string, rowsPerPage int) error {
	_, err := s.db.conn.ExecContext(ctx,
		`INSERT INTO view_prefs (session_id, resource, rows_per_page) VALUES (?, ?, ?)
		 ON CONFLICT (session_id, resource) DO UPDATE SET rows_per_page = excluded.rows_per_page`,
		sessionID, resource, rowsPerPage,
	)
	if err != nil {
		return fmt.Errorf("save view pref: %w", err)
	}
	return nil
}

// GetViewPref 取某个列表记住的每页行数，没有记录时 ok 为 false
func (s *SessionStore) GetViewPref(ctx context.Context, sessionID, resource string) (rowsPerPage int, ok bool, err error) {
	err = s.db.conn.QueryRowContext(ctx,
		`SELECT rows_per_page FROM view_prefs WHERE session_id = ? AND resource = ?`,
		sessionID, resource,
	).Scan(&rowsPerPage)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("query view pref: %w", err)
	}
	return rowsPerPage, true, nil
}
