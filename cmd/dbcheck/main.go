package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/progate-hackathon-strawberry-flavor/BLOCKBLAST-backend/internal/config"
	"github.com/progate-hackathon-strawberry-flavor/BLOCKBLAST-backend/internal/database"
	"github.com/progate-hackathon-strawberry-flavor/BLOCKBLAST-backend/internal/logging"
)

// dbcheck は DATABASE_URL への接続・スキーマ適用を確認するためのツールです。
func main() {
	cfg := config.Load()
	logging.Setup(cfg.LogLevel, true)

	if cfg.DatabaseURL == "" {
		log.Fatal().Msg("エラー: DATABASE_URL 環境変数が設定されていません。")
	}
	log.Info().Str("url", truncate(cfg.DatabaseURL, 50)).Msg("テスト開始: データベース接続を試行中...")

	dbService, err := database.NewDatabaseService(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("エラー: データベースに接続できませんでした")
	}
	defer dbService.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	version, err := dbService.Version(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("警告: バージョンの取得に失敗しました")
	} else {
		log.Info().Str("driver", dbService.Driver).Str("version", version).Msg("データベースバージョン")
	}

	top, err := database.NewResultRepository(dbService.DB).GetTopResults(ctx, 1)
	if err != nil {
		log.Fatal().Err(err).Msg("エラー: results テーブルを読めませんでした")
	}
	if len(top) > 0 {
		log.Info().Str("user", top[0].UserID).Int("score", top[0].Score).Msg("現在の1位")
	}

	fmt.Println("成功: データベースに正常に接続し、スキーマを確認しました！")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
