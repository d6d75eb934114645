package blockblast

import "github.com/google/uuid"

// Matrix はピースの形を表す 0/1 の長方形グリッドです。Matrix[row][col] が 1 のマスが埋まっています。
type Matrix [][]int

// Area は埋まっているマスの数を返します。
func (m Matrix) Area() int {
	n := 0
	for _, line := range m {
		for _, v := range line {
			if v == 1 {
				n++
			}
		}
	}
	return n
}

// Rotate は時計回りに90度回転した新しい Matrix を返します（転置してから各行を反転）。
// 元の Matrix は変更しません。
func (m Matrix) Rotate() Matrix {
	if len(m) == 0 {
		return Matrix{}
	}
	rows, cols := len(m), len(m[0])
	out := make(Matrix, cols)
	for i := 0; i < cols; i++ {
		out[i] = make([]int, rows)
		for j := 0; j < rows; j++ {
			out[i][j] = m[rows-1-j][i]
		}
	}
	return out
}

// Clone は Matrix のディープコピーを返します。
func (m Matrix) Clone() Matrix {
	out := make(Matrix, len(m))
	for i, line := range m {
		out[i] = append([]int(nil), line...)
	}
	return out
}

// Shape は手札の1ピースです。
// 生成後は不変で、回転したときだけ新しい Matrix を持つ Shape に置き換わります。
type Shape struct {
	ID     string `json:"id"`
	Matrix Matrix `json:"matrix"`
	Color  string `json:"color"`
	Area   int    `json:"area"`
}

// NewShape は新しいIDを振った Shape を作成します。Area は matrix から計算します。
func NewShape(matrix Matrix, color string) Shape {
	return Shape{
		ID:     uuid.New().String(),
		Matrix: matrix.Clone(),
		Color:  color,
		Area:   matrix.Area(),
	}
}

// Rotated は90度回転した Shape を返します。ID・色・面積はそのままです。
func (s Shape) Rotated() Shape {
	s.Matrix = s.Matrix.Rotate()
	return s
}
