package blockblast

import (
	"github.com/progate-hackathon-strawberry-flavor/BLOCKBLAST-backend/internal/models/blockblast"
)

const (
	PointsPerLine     = 10  // 1ラインあたりの基本点
	PerfectClearBonus = 500 // 盤面をすべて消したときのボーナス
	CurrencyPercent   = 20  // 獲得スコアのうち通貨になる割合 (%)

	// ComboDecayMoves 手連続でラインを消さないとコンボ倍率が 1 に戻ります。
	ComboDecayMoves = 3
)

// ClearedLines は揃った行と列のインデックスです。
type ClearedLines struct {
	Rows []int `json:"rows"`
	Cols []int `json:"cols"`
}

// Count は揃ったラインの総数（行 + 列）を返します。
func (l ClearedLines) Count() int {
	return len(l.Rows) + len(l.Cols)
}

// DetectLines はボードのすべての行と列を走査し、完全に埋まったものを集めます。
func DetectLines(board blockblast.Board) ClearedLines {
	lines := ClearedLines{Rows: []int{}, Cols: []int{}}
	for i := 0; i < board.Size(); i++ {
		if board.RowFull(i) {
			lines.Rows = append(lines.Rows, i)
		}
		if board.ColFull(i) {
			lines.Cols = append(lines.Cols, i)
		}
	}
	return lines
}

// LinePoints はライン数 L に対する得点です。L×10、2ライン以上同時なら さらに L×10 を加算します。
func LinePoints(lines int) int {
	if lines <= 0 {
		return 0
	}
	points := lines * PointsPerLine
	if lines >= 2 {
		points += lines * PointsPerLine
	}
	return points
}

// MoveScore は1手の合計スコア (配置点 + ライン点) × コンボ倍率 を計算します。
//
// Parameters:
//
//	placementPoints : 今回埋まったマスの数（爆弾の場合は 0）
//	lines           : 揃ったライン数
//	combo           : 適用するコンボ倍率
func MoveScore(placementPoints, lines, combo int) int {
	return (placementPoints + LinePoints(lines)) * combo
}

// CurrencyFor はスコアから獲得できる通貨（20%、切り捨て）を返します。スコアが正でなければ 0 です。
func CurrencyFor(score int) int {
	if score <= 0 {
		return 0
	}
	return score * CurrencyPercent / 100
}

// ComboState はコンボ倍率と、最後にラインを消してからの手数です。
type ComboState struct {
	Multiplier          int `json:"comboMultiplier"`
	MovesSinceLastClear int `json:"movesSinceLastClear"`
}

// NewComboState は初期状態（倍率 1、手数 0）を返します。
func NewComboState() ComboState {
	return ComboState{Multiplier: 1}
}

// Next は1手の結果を反映した次のコンボ状態を返します。
// ラインを消せば倍率 +1 で手数は 0 に。消せなければ手数 +1 で、
// ComboDecayMoves に達したら倍率と手数をリセットします。
func (c ComboState) Next(cleared bool) ComboState {
	if cleared {
		return ComboState{Multiplier: c.Multiplier + 1}
	}
	c.MovesSinceLastClear++
	if c.MovesSinceLastClear >= ComboDecayMoves {
		return NewComboState()
	}
	return c
}

// ApplyClear は揃った行と列をすべて空にした新しいボードを返します。
// 行と列の交差点は1回だけ空になります。埋まりフラグと色は同時にリセットされます。
func ApplyClear(board blockblast.Board, lines ClearedLines) blockblast.Board {
	next := board.Clone()
	size := next.Size()
	for _, r := range lines.Rows {
		for c := 0; c < size; c++ {
			next[r][c] = blockblast.Cell{}
		}
	}
	for _, c := range lines.Cols {
		for r := 0; r < size; r++ {
			next[r][c] = blockblast.Cell{}
		}
	}
	return next
}

// IsPerfectClear は before に埋まったマスがあり、after が完全に空になったかどうかを返します。
func IsPerfectClear(before, after blockblast.Board) bool {
	return !before.IsEmpty() && after.IsEmpty()
}
