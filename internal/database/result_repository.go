package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/progate-hackathon-strawberry-flavor/BLOCKBLAST-backend/internal/models"
)

// ResultRepository はゲーム結果関連のデータベース操作を定義するインターフェースです。
type ResultRepository interface {
	// CreateResult は新しいゲーム結果レコードを作成します
	CreateResult(ctx context.Context, userID string, score int) (*models.Result, error)

	// GetTopResults は上位N件の結果を取得します（ランキング用）
	GetTopResults(ctx context.Context, limit int) ([]models.ResultResponse, error)

	// GetUserBestScore は指定したユーザーの最高スコアを取得します。記録がなければ nil です
	GetUserBestScore(ctx context.Context, userID string) (*models.Result, error)

	// GetUserRanking は指定したユーザーの最高スコアの順位を取得します。記録がなければ nil です
	GetUserRanking(ctx context.Context, userID string) (*models.ResultResponse, error)
}

type resultRepositoryImpl struct {
	db *sql.DB
}

// NewResultRepository はResultRepositoryの新しいインスタンスを作成します。
func NewResultRepository(db *sql.DB) ResultRepository {
	return &resultRepositoryImpl{db: db}
}

func (r *resultRepositoryImpl) CreateResult(ctx context.Context, userID string, score int) (*models.Result, error) {
	now := time.Now().UTC()
	var id int64

	err := r.db.QueryRowContext(ctx,
		"INSERT INTO results (user_id, score, created_at) VALUES ($1, $2, $3) RETURNING id",
		userID, score, now,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("ゲーム結果レコードの作成に失敗しました: %w", err)
	}

	return &models.Result{
		ID:        id,
		UserID:    userID,
		Score:     score,
		CreatedAt: now,
	}, nil
}

func (r *resultRepositoryImpl) GetTopResults(ctx context.Context, limit int) ([]models.ResultResponse, error) {
	query := `
		SELECT id, user_id, score, created_at
		FROM results
		ORDER BY score DESC, created_at ASC, id ASC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("ゲーム結果取得に失敗しました: %w", err)
	}
	defer rows.Close()

	results := []models.ResultResponse{}
	for rows.Next() {
		var result models.ResultResponse
		if err := rows.Scan(&result.ID, &result.UserID, &result.Score, &result.CreatedAt); err != nil {
			return nil, fmt.Errorf("ゲーム結果データのスキャンに失敗しました: %w", err)
		}
		result.Rank = len(results) + 1
		results = append(results, result)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("ゲーム結果取得中にエラーが発生しました: %w", err)
	}

	return results, nil
}

func (r *resultRepositoryImpl) GetUserBestScore(ctx context.Context, userID string) (*models.Result, error) {
	query := `
		SELECT id, user_id, score, created_at
		FROM results
		WHERE user_id = $1
		ORDER BY score DESC, created_at ASC, id ASC
		LIMIT 1
	`

	var result models.Result
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&result.ID, &result.UserID, &result.Score, &result.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ユーザーの最高スコア取得に失敗しました: %w", err)
	}

	return &result, nil
}

func (r *resultRepositoryImpl) GetUserRanking(ctx context.Context, userID string) (*models.ResultResponse, error) {
	best, err := r.GetUserBestScore(ctx, userID)
	if err != nil {
		return nil, err
	}
	if best == nil {
		return nil, nil
	}

	// 同点なら先に記録した方が上位
	query := `
		SELECT COUNT(*) + 1
		FROM results
		WHERE score > $1 OR (score = $1 AND id < $2)
	`

	var rank int
	if err := r.db.QueryRowContext(ctx, query, best.Score, best.ID).Scan(&rank); err != nil {
		return nil, fmt.Errorf("ユーザーランキング順位の計算に失敗しました: %w", err)
	}

	return &models.ResultResponse{
		ID:        best.ID,
		UserID:    best.UserID,
		Score:     best.Score,
		CreatedAt: best.CreatedAt,
		Rank:      rank,
	}, nil
}
