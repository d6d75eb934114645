package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"           // PostgreSQLドライバー
	_ "github.com/mattn/go-sqlite3" // SQLiteドライバー（ローカル開発・テスト用）
	"github.com/rs/zerolog/log"
)

const sqlitePrefix = "sqlite://"

// DatabaseService はデータベース接続を保持します。
type DatabaseService struct {
	DB     *sql.DB
	Driver string // "postgres" または "sqlite3"
}

// NewDatabaseService は databaseURL からドライバーを選んで接続し、スキーマを適用します。
//
// Parameters:
//
//	databaseURL : postgres:// の接続文字列、または sqlite://<path>（:memory: も可）
//
// Returns:
//
//	*DatabaseService: 接続済みのサービス
//	error           : 接続・Ping・スキーマ適用に失敗した場合
func NewDatabaseService(databaseURL string) (*DatabaseService, error) {
	driver, dsn := resolveDriver(databaseURL)
	log.Info().Str("component", "DatabaseService").Str("driver", driver).Msg("データベース接続を試行中")

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("データベースへの接続オブジェクト作成に失敗しました: %w", err)
	}
	if driver == "sqlite3" {
		// SQLite は単一ライターなので接続を1本にする（:memory: でも同じDBを共有できる）
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("データベースのPingに失敗しました。接続情報やネットワークを確認してください: %w", err)
	}

	svc := &DatabaseService{DB: db, Driver: driver}
	if err := svc.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	log.Info().Str("component", "DatabaseService").Msg("データベースに正常に接続しました。")
	return svc, nil
}

// Close は接続を閉じます。
func (s *DatabaseService) Close() error {
	return s.DB.Close()
}

// Version はデータベースサーバーのバージョン文字列を返します。
func (s *DatabaseService) Version(ctx context.Context) (string, error) {
	query := "SELECT version()"
	if s.Driver == "sqlite3" {
		query = "SELECT sqlite_version()"
	}
	var version string
	if err := s.DB.QueryRowContext(ctx, query).Scan(&version); err != nil {
		return "", fmt.Errorf("バージョンの取得に失敗しました: %w", err)
	}
	return version, nil
}

func resolveDriver(databaseURL string) (driver, dsn string) {
	if strings.HasPrefix(databaseURL, sqlitePrefix) {
		return "sqlite3", strings.TrimPrefix(databaseURL, sqlitePrefix)
	}
	return "postgres", databaseURL
}

// migrate はテーブルがなければ作成します。何度実行しても同じ結果になります。
func (s *DatabaseService) migrate(ctx context.Context) error {
	resultsID := "BIGSERIAL PRIMARY KEY"
	if s.Driver == "sqlite3" {
		resultsID = "INTEGER PRIMARY KEY AUTOINCREMENT"
	}

	statements := []string{
		`CREATE TABLE IF NOT EXISTS user_preferences (
			user_id    TEXT NOT NULL,
			pref_key   TEXT NOT NULL,
			pref_value TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			PRIMARY KEY (user_id, pref_key)
		)`,
		`CREATE TABLE IF NOT EXISTS results (
			id         ` + resultsID + `,
			user_id    TEXT NOT NULL,
			score      INTEGER NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_results_score ON results (score DESC, created_at ASC)`,
		`CREATE INDEX IF NOT EXISTS idx_results_user ON results (user_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("スキーマの適用に失敗しました: %w", err)
		}
	}
	return nil
}
