// Package store 是控制台自己的本地存储：登录会话与列表偏好。
// 业务数据全部归上游后端所有，这里只存轻量的会话状态，因此用内嵌 sqlite，
// 不引入外部数据库。
package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB 数据库封装
type DB struct {
	conn *sql.DB
}

// Open 打开数据库并执行迁移
// path 传 ":memory:" 时使用内存库（测试用）
func Open(path string) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_journal_mode=WAL&_foreign_keys=on", path)
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// sqlite 单写者，串行化到一个连接上省去 busy 重试
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// DSN 里的开关在部分驱动版本下不生效，这里再显式开一次
	if _, err := conn.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.Migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	return db, nil
}

// Close 关闭数据库
func (db *DB) Close() error {
	return db.conn.Close()
}

// Migrate 执行数据库迁移
func (db *DB) Migrate() error {
	migrations := []string{
		migrationCreateSessions,
		migrationCreateViewPrefs,
	}

	for _, m := range migrations {
		if _, err := db.conn.Exec(m); err != nil {
			return fmt.Errorf("execute migration: %w", err)
		}
	}

	return nil
}

// 数据库迁移 SQL
const migrationCreateSessions = `
CREATE TABLE IF NOT EXISTS sessions (
    id         TEXT PRIMARY KEY,
    token      TEXT NOT NULL,
    username   TEXT NOT NULL,
    created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);
`

const migrationCreateViewPrefs = `
CREATE TABLE IF NOT EXISTS view_prefs (
    session_id    TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
    resource      TEXT NOT NULL,
    rows_per_page INTEGER NOT NULL,
    PRIMARY KEY (session_id, resource)
);
`
