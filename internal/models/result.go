package models

import (
	"time"
)

// Result はresultsテーブルのレコードに対応する構造体です。
// セッションがゲームオーバーになったとき（または途中で切断されたとき）に1件記録されます。
type Result struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

// ResultResponse はランキングAPIのレスポンス用の構造体です。
type ResultResponse struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"created_at"`
	Rank      int       `json:"rank"` // ランキング順位（1始まり）
}
