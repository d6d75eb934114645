package blockblast

// GridSize はボードの一辺のマス数です。ストアで購入できるサイズのみ有効です。
type GridSize int

const (
	GridSmall   GridSize = 6  // 6x6 Small
	GridClassic GridSize = 8  // 8x8 Classic (初期値)
	GridLarge   GridSize = 10 // 10x10 Large
	GridExpert  GridSize = 12 // 12x12 Expert
)

// Valid はサイズが定義済みのグリッドサイズかどうかを返します。
func (g GridSize) Valid() bool {
	switch g {
	case GridSmall, GridClassic, GridLarge, GridExpert:
		return true
	}
	return false
}

// Cell はボード上の1マスです。
// Filled が false のとき Color は常に空文字列です（色だけが残ることはありません）。
type Cell struct {
	Filled bool   `json:"filled"`
	Color  string `json:"color,omitempty"`
}

// CellCoord はボード上の座標 (行, 列) です。
type CellCoord struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Board は正方形のゲームボードです。Board[row][col] でアクセスします。
// すべての行の長さはボードのサイズと等しくなります。
//
// ボードは論理的な更新ごとに Clone してから変更し、丸ごと差し替えて使います。
// 更新前後の比較（例: 「今ちょうど空になった」）を単純にするためです。
type Board [][]Cell

// NewBoard は指定サイズの空のボードを作成して返します。
func NewBoard(size GridSize) Board {
	n := int(size)
	if n < 0 {
		n = 0
	}
	board := make(Board, n)
	for r := range board {
		board[r] = make([]Cell, n)
	}
	return board
}

// Size はボードの一辺の長さを返します。
func (b Board) Size() int {
	return len(b)
}

// Clone はボードのディープコピーを返します。
// プレビューやシミュレーションで元のボードを変更せずに「仮の」盤面を作るために使います。
func (b Board) Clone() Board {
	out := make(Board, len(b))
	for r, row := range b {
		out[r] = make([]Cell, len(row))
		copy(out[r], row)
	}
	return out
}

// FilledCount は埋まっているマスの数を返します。
func (b Board) FilledCount() int {
	n := 0
	for _, row := range b {
		for _, cell := range row {
			if cell.Filled {
				n++
			}
		}
	}
	return n
}

// IsEmpty はすべてのマスが空のとき true を返します。
func (b Board) IsEmpty() bool {
	for _, row := range b {
		for _, cell := range row {
			if cell.Filled {
				return false
			}
		}
	}
	return true
}

// IsFull はすべてのマスが埋まっているとき true を返します。
func (b Board) IsFull() bool {
	for _, row := range b {
		for _, cell := range row {
			if !cell.Filled {
				return false
			}
		}
	}
	return true
}

// RowFull は行 r がすべて埋まっているかどうかを返します。
func (b Board) RowFull(r int) bool {
	for _, cell := range b[r] {
		if !cell.Filled {
			return false
		}
	}
	return true
}

// ColFull は列 c がすべて埋まっているかどうかを返します。
func (b Board) ColFull(c int) bool {
	for r := range b {
		if !b[r][c].Filled {
			return false
		}
	}
	return true
}

// InBounds は座標がボードの範囲内かどうかを返します。
func (b Board) InBounds(row, col int) bool {
	size := len(b)
	return row >= 0 && row < size && col >= 0 && col < size
}

// MergeShape は matrix の埋まっているマスを color で塗り、塗ったマスの数を返します。
// 配置可能かどうかの判定は行わないため、事前に CanPlace で確認してください。
// 範囲外のマスは無視します。
//
// Parameters:
//
//	matrix : 配置するピースの形
//	row,col: アンカー（左上）の座標
//	color  : 塗る色
//
// Returns:
//
//	int: 新たに埋まったマスの数
func (b Board) MergeShape(matrix Matrix, row, col int, color string) int {
	placed := 0
	for r, line := range matrix {
		for c, v := range line {
			if v != 1 {
				continue
			}
			tr, tc := row+r, col+c
			if !b.InBounds(tr, tc) || b[tr][tc].Filled {
				continue
			}
			b[tr][tc] = Cell{Filled: true, Color: color}
			placed++
		}
	}
	return placed
}

// ClearArea は (row, col) を中心とした半径 radius の正方形範囲を空にします。
// 範囲外の部分は切り捨てます。元々空のマスも対象です。
func (b Board) ClearArea(row, col, radius int) {
	for r := row - radius; r <= row+radius; r++ {
		for c := col - radius; c <= col+radius; c++ {
			if b.InBounds(r, c) {
				b[r][c] = Cell{}
			}
		}
	}
}
