package blockblast

// CanPlace は matrix をアンカー (row, col) に置けるかどうかを判定します。
// 埋まっているマスのすべてがボードの範囲内にあり、かつ既存のブロックと重ならない場合に true です。
// アンカーが負の値や範囲外でもエラーにはならず、単に false を返します。
//
// 副作用のない純粋関数で、ドロップ判定・ホバープレビュー・ゲームオーバー判定のすべてで共通に使います。
func CanPlace(board Board, matrix Matrix, row, col int) bool {
	for r, line := range matrix {
		for c, v := range line {
			if v != 1 {
				continue
			}
			tr, tc := row+r, col+c
			if !board.InBounds(tr, tc) || board[tr][tc].Filled {
				return false
			}
		}
	}
	return true
}

// HasAnchor はボード上のどこかに matrix を置けるアンカーが存在するかどうかを返します。
func HasAnchor(board Board, matrix Matrix) bool {
	size := board.Size()
	for r := 0; r < size; r++ {
		for c := 0; c < size; c++ {
			if CanPlace(board, matrix, r, c) {
				return true
			}
		}
	}
	return false
}

// CountPlaceable は少なくとも1か所に置ける Shape の数を返します。
// 0 はゲームオーバーを意味します。
func CountPlaceable(shapes []Shape, board Board) int {
	n := 0
	for _, s := range shapes {
		if HasAnchor(board, s.Matrix) {
			n++
		}
	}
	return n
}

// AllPlaceable はすべての Shape がそれぞれ少なくとも1か所に置ける場合に true を返します。
func AllPlaceable(shapes []Shape, board Board) bool {
	return CountPlaceable(shapes, board) == len(shapes)
}
