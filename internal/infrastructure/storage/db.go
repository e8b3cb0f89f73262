package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/memtier/backend/internal/infrastructure/config"
	_ "modernc.org/sqlite"
)

// GetDBPath 获取 memtier 数据库路径
// Windows: %USERPROFILE%\.memtier\memtier.db
// macOS/Linux: ~/.memtier/memtier.db
func GetDBPath() string {
	return filepath.Join(config.GetDataDir(), "memtier.db")
}

// OpenDBAtPath 打开指定路径的数据库连接（测试可传 ":memory:"）
func OpenDBAtPath(dbPath string) (*sql.DB, error) {
	// 确保目录存在（内存库除外）
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// 测试连接
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// ProvideDB 提供数据库连接（wire 使用）
// 配置未指定路径时使用数据目录下的默认路径
func ProvideDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	dbPath := cfg.Path
	if dbPath == "" {
		dbPath = GetDBPath()
	}

	db, err := OpenDBAtPath(dbPath)
	if err != nil {
		return nil, err
	}

	if err := InitSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// InitSchema 初始化表结构
// 三个存储逻辑独立：对话/轮次（Tier 1）、模式/关系（Tier 2）
// Tier 3 信号缓存是纯内存结构，不落库
func InitSchema(db *sql.DB) error {
	// 创建 conversations 表
	createConversationsSQL := `
	CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		started_at INTEGER NOT NULL,
		ended_at INTEGER,
		active INTEGER NOT NULL DEFAULT 0
	);`

	if _, err := db.Exec(createConversationsSQL); err != nil {
		return fmt.Errorf("failed to create conversations table: %w", err)
	}

	// 创建 conversation_turns 表
	createTurnsSQL := `
	CREATE TABLE IF NOT EXISTS conversation_turns (
		id TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		entities TEXT,
		linked_pattern_ids TEXT
	);`

	if _, err := db.Exec(createTurnsSQL); err != nil {
		return fmt.Errorf("failed to create conversation_turns table: %w", err)
	}

	// 创建索引
	createTurnsIndexSQL := `
	CREATE INDEX IF NOT EXISTS idx_turns_conversation ON conversation_turns(conversation_id);
	CREATE INDEX IF NOT EXISTS idx_turns_timestamp ON conversation_turns(timestamp);`

	if _, err := db.Exec(createTurnsIndexSQL); err != nil {
		return fmt.Errorf("failed to create conversation_turns indexes: %w", err)
	}

	// 创建 patterns 表
	createPatternsSQL := `
	CREATE TABLE IF NOT EXISTS patterns (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		category TEXT,
		confidence REAL NOT NULL,
		context TEXT,
		created_at INTEGER NOT NULL,
		last_used_at INTEGER NOT NULL,
		usage_count INTEGER NOT NULL DEFAULT 0,
		applied_in_conversation_ids TEXT
	);`

	if _, err := db.Exec(createPatternsSQL); err != nil {
		return fmt.Errorf("failed to create patterns table: %w", err)
	}

	createPatternsIndexSQL := `
	CREATE INDEX IF NOT EXISTS idx_patterns_category ON patterns(category);
	CREATE INDEX IF NOT EXISTS idx_patterns_last_used ON patterns(last_used_at);`

	if _, err := db.Exec(createPatternsIndexSQL); err != nil {
		return fmt.Errorf("failed to create patterns indexes: %w", err)
	}

	// 创建 relationships 表
	createRelationshipsSQL := `
	CREATE TABLE IF NOT EXISTS relationships (
		id TEXT PRIMARY KEY,
		subject TEXT NOT NULL,
		object TEXT NOT NULL,
		relationship_type TEXT NOT NULL,
		strength REAL NOT NULL,
		observation_count INTEGER NOT NULL DEFAULT 0,
		last_observed_at INTEGER NOT NULL,
		UNIQUE(subject, object, relationship_type)
	);`

	if _, err := db.Exec(createRelationshipsSQL); err != nil {
		return fmt.Errorf("failed to create relationships table: %w", err)
	}

	createRelationshipsIndexSQL := `
	CREATE INDEX IF NOT EXISTS idx_relationships_subject ON relationships(subject);
	CREATE INDEX IF NOT EXISTS idx_relationships_object ON relationships(object);`

	if _, err := db.Exec(createRelationshipsIndexSQL); err != nil {
		return fmt.Errorf("failed to create relationships indexes: %w", err)
	}

	return nil
}
