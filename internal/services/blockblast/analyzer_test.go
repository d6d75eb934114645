package blockblast

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/progate-hackathon-strawberry-flavor/BLOCKBLAST-backend/internal/models/blockblast"
)

func TestAnalyzeEmptyBoard(t *testing.T) {
	analysis := Analyze(blockblast.NewBoard(blockblast.GridClassic))

	assert.Equal(t, 0.0, analysis.Density)
	assert.Equal(t, 64, analysis.TotalEmpty)
	assert.Len(t, analysis.EmptyCells, 64)
	assert.Len(t, analysis.RowGaps, 8)
	assert.Len(t, analysis.ColGaps, 8)
	assert.Equal(t, 8, analysis.RowGaps[0])
	assert.Equal(t, 0, analysis.SmallestGap(KeyPieceMaxGap))
}

func TestAnalyzeGaps(t *testing.T) {
	board := blockblast.NewBoard(blockblast.GridClassic)
	fillRowExcept(board, 3, 7)    // 行3は空き1
	fillRowExcept(board, 5, 0, 1) // 行5は空き2
	for c := 0; c < 8; c++ {      // 行6は満杯
		board[6][c] = blockblast.Cell{Filled: true, Color: "#111"}
	}

	analysis := Analyze(board)

	assert.Equal(t, 1, analysis.RowGaps[3])
	assert.Equal(t, 2, analysis.RowGaps[5])
	_, ok := analysis.RowGaps[6]
	assert.False(t, ok, "満杯の行はギャップに含めない")
	assert.Equal(t, 64-7-6-8, analysis.TotalEmpty)
	assert.InDelta(t, float64(7+6+8)/64, analysis.Density, 1e-9)
	assert.Equal(t, 1, analysis.SmallestGap(KeyPieceMaxGap))
}

func TestSmallestGapUsesColumns(t *testing.T) {
	board := blockblast.NewBoard(blockblast.GridSmall)
	for r := 0; r < 4; r++ {
		board[r][2] = blockblast.Cell{Filled: true, Color: "#111"}
	}

	analysis := Analyze(board)
	assert.Equal(t, 2, analysis.ColGaps[2])
	assert.Equal(t, 2, analysis.SmallestGap(KeyPieceMaxGap))
	assert.Equal(t, 0, analysis.SmallestGap(1))
}
