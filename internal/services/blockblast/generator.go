package blockblast

import (
	"math/rand"
	"time"

	"github.com/progate-hackathon-strawberry-flavor/BLOCKBLAST-backend/internal/models/blockblast"
)

const (
	HandSize = 3 // 手札の枚数

	// RescueDensity 以上埋まったボードでは小さいピースを優先して配ります。
	RescueDensity = 0.55

	// KeyPieceMaxGap 以下の隙間しかないラインがあれば、それを埋めるキーピースを配ります。
	KeyPieceMaxGap = 2
)

// ピースプール。各プールの形はすべて正規化済み（空の行・列を持たない）です。
var (
	PoolTiny  = []blockblast.Matrix{{{1}}}
	PoolSmall = []blockblast.Matrix{
		{{1, 1}},
		{{1}, {1}},
	}
	PoolLinear3 = []blockblast.Matrix{
		{{1, 1, 1}},
		{{1}, {1}, {1}},
	}
	PoolMultiLine = []blockblast.Matrix{
		{{1, 1, 1}, {0, 1, 0}},
		{{0, 1, 0}, {1, 1, 1}},
		{{1, 1, 1}, {1, 0, 0}},
		{{1, 1, 1}, {0, 0, 1}},
		{{1, 1}, {1, 0}},
		{{1, 1}, {0, 1}},
	}
	PoolLargeBlocks = []blockblast.Matrix{
		{{1, 1}, {1, 1}},
		{{1, 1, 1}, {1, 1, 1}},
		{{1, 1, 1}, {1, 1, 1}, {1, 1, 1}},
	}
	PoolAwkward = []blockblast.Matrix{
		{{1, 1, 0}, {0, 1, 1}},
		{{0, 1, 1}, {1, 1, 0}},
	}

	// PoolStandard はキーピースがなかったときの補充用です。1x1 以外のすべての段階を混ぜます。
	PoolStandard = concatPools(PoolSmall, PoolLinear3, PoolMultiLine, PoolLargeBlocks, PoolAwkward)

	poolSurvival     = concatPools(PoolTiny, PoolSmall, PoolLinear3)
	poolSurvivalWide = concatPools(poolSurvival, PoolMultiLine)
	poolBuilder      = concatPools(PoolMultiLine, []blockblast.Matrix{{{1, 1}, {1, 1}}}, PoolLinear3, PoolLargeBlocks)

	singleCell = blockblast.Matrix{{1}}
)

func concatPools(pools ...[]blockblast.Matrix) []blockblast.Matrix {
	var out []blockblast.Matrix
	for _, p := range pools {
		out = append(out, p...)
	}
	return out
}

// Generator は「ジェネラスフィット」方式で手札を生成します。
// 乱数源は外から注入するため、テストでは固定シードで生成結果を検証できます。
type Generator struct {
	rng *rand.Rand
}

// NewGenerator は rng を使う Generator を返します。rng が nil なら現在時刻でシードします。
func NewGenerator(rng *rand.Rand) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Generator{rng: rng}
}

// Generate は現在のボードに対して手札3枚を生成します。
//
// Parameters:
//
//	board   : 現在のボード
//	palette : 現在のテーマの色パレット
//
// Returns:
//
//	[]blockblast.Shape: 生成した3枚の Shape。ボードに空きマスが1つでもあれば、少なくとも1枚は置けます。
func (g *Generator) Generate(board blockblast.Board, palette []string) []blockblast.Shape {
	matrices := g.generateShapeSet(Analyze(board))

	candidates := make([]blockblast.Shape, 0, len(matrices))
	for _, m := range matrices {
		candidates = append(candidates, g.createShape(m, palette))
	}

	// 3枚すべてが置けない場合は、最も大きいピースを 1x1 に差し替える
	if !blockblast.AllPlaceable(candidates, board) {
		largest, maxArea := -1, 0
		for i, s := range candidates {
			if s.Area > maxArea {
				maxArea = s.Area
				largest = i
			}
		}
		if largest != -1 {
			candidates[largest] = g.createShape(singleCell, palette)
		}
	}

	// 最終フェイルセーフ: それでも1枚も置けなければ先頭を 1x1 にする
	if blockblast.CountPlaceable(candidates, board) == 0 && len(candidates) > 0 {
		candidates[0] = g.createShape(singleCell, palette)
	}

	return candidates
}

// generateShapeSet は分析結果から手札3枚分の形を選びます。
func (g *Generator) generateShapeSet(analysis BoardAnalysis) []blockblast.Matrix {
	matrices := make([]blockblast.Matrix, 0, HandSize)

	// ソルバー: ほぼ揃ったラインがあれば、それを閉じるキーピースを必ず1枚入れる
	if key := g.findKeyPiece(analysis, KeyPieceMaxGap); key != nil {
		matrices = append(matrices, key)
	}

	if analysis.Density >= RescueDensity {
		// レスキュー: 3枚中2枚は小さい・直線のピース
		for len(matrices) < 2 {
			matrices = append(matrices, g.pick(poolSurvival))
		}
		// 3枚目は L/T も含む少し広いプールから
		if len(matrices) < HandSize {
			matrices = append(matrices, g.pick(poolSurvivalWide))
		}
	} else {
		// エクスパンション: 盤面を早く埋めるビルダーピース
		for len(matrices) < HandSize {
			matrices = append(matrices, g.pick(poolBuilder))
		}
	}

	for len(matrices) < HandSize {
		matrices = append(matrices, g.pick(PoolStandard))
	}
	return matrices[:HandSize]
}

// findKeyPiece は maxGap 以下の最小ギャップを埋めるピースを返します。
// 最小ギャップが 1 なら 1x1、2 ならランダムな向きのドミノです。該当がなければ nil です。
func (g *Generator) findKeyPiece(analysis BoardAnalysis, maxGap int) blockblast.Matrix {
	switch analysis.SmallestGap(maxGap) {
	case 1:
		return singleCell
	case 2:
		return g.pick(PoolSmall)
	default:
		return nil
	}
}

func (g *Generator) createShape(m blockblast.Matrix, palette []string) blockblast.Shape {
	color := ""
	if len(palette) > 0 {
		color = palette[g.rng.Intn(len(palette))]
	}
	return blockblast.NewShape(m, color)
}

func (g *Generator) pick(pool []blockblast.Matrix) blockblast.Matrix {
	return pool[g.rng.Intn(len(pool))]
}
