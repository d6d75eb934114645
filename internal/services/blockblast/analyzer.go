package blockblast

import (
	"github.com/progate-hackathon-strawberry-flavor/BLOCKBLAST-backend/internal/models/blockblast"
)

// BoardAnalysis はピース生成に使うボードの密度・隙間プロファイルです。
// 永続化はせず、手札を補充する直前に毎回作り直します。
type BoardAnalysis struct {
	Density    float64                // 埋まっているマスの割合 (0.0-1.0)
	RowGaps    map[int]int            // 行番号 -> 空きマス数（0 の行は含まない）
	ColGaps    map[int]int            // 列番号 -> 空きマス数（0 の列は含まない）
	TotalEmpty int                    // 空きマスの総数
	EmptyCells []blockblast.CellCoord // 空きマスの座標（行優先順）
}

// Analyze はボードを1回走査して BoardAnalysis を作成します。
// 空きが 0 の行・列（揃ったライン）は補充の対象にならないため、ギャップには含めません。
func Analyze(board blockblast.Board) BoardAnalysis {
	size := board.Size()
	analysis := BoardAnalysis{
		RowGaps:    make(map[int]int),
		ColGaps:    make(map[int]int),
		EmptyCells: []blockblast.CellCoord{},
	}

	for i := 0; i < size; i++ {
		rowEmpty, colEmpty := 0, 0
		for j := 0; j < size; j++ {
			if !board[i][j].Filled {
				rowEmpty++
				analysis.EmptyCells = append(analysis.EmptyCells, blockblast.CellCoord{Row: i, Col: j})
			}
			if !board[j][i].Filled {
				colEmpty++
			}
		}
		if rowEmpty > 0 {
			analysis.RowGaps[i] = rowEmpty
		}
		if colEmpty > 0 {
			analysis.ColGaps[i] = colEmpty
		}
	}

	analysis.TotalEmpty = len(analysis.EmptyCells)
	if total := size * size; total > 0 {
		analysis.Density = float64(total-analysis.TotalEmpty) / float64(total)
	}
	return analysis
}

// SmallestGap は maxGap 以下の最小ギャップを行・列の両方から探します。
// 該当するギャップがなければ 0 を返します。
func (a BoardAnalysis) SmallestGap(maxGap int) int {
	smallest := 0
	consider := func(gaps map[int]int) {
		for _, g := range gaps {
			if g > 0 && g <= maxGap && (smallest == 0 || g < smallest) {
				smallest = g
			}
		}
	}
	consider(a.RowGaps)
	consider(a.ColGaps)
	return smallest
}
