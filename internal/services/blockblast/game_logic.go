package blockblast

import (
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/progate-hackathon-strawberry-flavor/BLOCKBLAST-backend/internal/models/blockblast"
)

// ErrUnknownAction は ApplyPlayerInput が解釈できないアクションを受け取ったときに返します。
var ErrUnknownAction = errors.New("unknown action")

// PlayerInput はクライアントから届く1回の操作です。
type PlayerInput struct {
	Action  string `json:"action"`
	ShapeID string `json:"shape_id,omitempty"`
	Row     int    `json:"row"`
	Col     int    `json:"col"`
	ItemID  string `json:"item_id,omitempty"` // buy_theme / buy_skin / buy_sound
	Size    int    `json:"size,omitempty"`    // buy_grid
}

// ApplyPlayerInput はプレイヤーの入力（アクション）に基づいてセッションを更新します。
//
// Parameters:
//
//	s     : 更新するセッション
//	input : プレイヤーが実行したアクション（例: "place", "rotate"）
//
// Returns:
//
//	bool : 状態が変わった場合は true
//	error: アクション名が不明な場合 ErrUnknownAction
func ApplyPlayerInput(s *Session, input PlayerInput) (bool, error) {
	switch input.Action {
	case "pick_up":
		return s.PickUp(input.ShapeID), nil
	case "place":
		return s.PlaceShape(input.ShapeID, input.Row, input.Col), nil
	case "preview":
		s.UpdatePreview(input.ShapeID, input.Row, input.Col)
		return true, nil
	case "clear_preview":
		s.ClearPreview()
		return true, nil
	case "activate_bomb":
		return s.ActivateBomb(), nil
	case "cancel_bomb":
		return s.CancelBomb(), nil
	case "bomb":
		return s.UseBomb(input.Row, input.Col), nil
	case "rotate":
		return s.RotateHand(), nil
	case "refresh":
		return s.RefreshHand(), nil
	case "reset":
		s.ResetGame()
		return true, nil
	case "buy_theme":
		return s.BuyTheme(input.ItemID), nil
	case "buy_skin":
		return s.BuySkin(input.ItemID), nil
	case "buy_grid":
		return s.BuyGrid(blockblast.GridSize(input.Size)), nil
	case "buy_sound":
		return s.BuySoundPack(input.ItemID), nil
	default:
		return false, ErrUnknownAction
	}
}

// CanPlace は手札の形を (row, col) に置けるかどうかを返します。
// 消去待ちのラインは消えたものとして判定します（PlaceShape は配置の前に消去を適用するため）。
func (s *Session) CanPlace(matrix blockblast.Matrix, row, col int) bool {
	return blockblast.CanPlace(s.effectiveBoard(), matrix, row, col)
}

// PickUp は手札のピースを持ち上げたことを通知します。ボードは変わりません。
func (s *Session) PickUp(shapeID string) bool {
	if s.gameOver || s.bombMode {
		return false
	}
	if _, ok := s.findShape(shapeID); !ok {
		return false
	}
	s.emit(Event{Type: EventPickUp})
	return true
}

// PlaceShape は手札のピースをアンカー (row, col) に置きます。
//
// 置けない場合は何も変えずに EventReturn を通知して false を返します。
// 置けた場合はボードにマージして手札から取り除き、ライン判定・スコア加算を行います。
// 消去待ち・補充待ちの処理があれば、判定の前にすべて適用します。
//
// Parameters:
//
//	shapeID : 置く手札の ID
//	row,col : アンカー（形の左上）の座標
//
// Returns:
//
//	bool: 配置された場合は true
func (s *Session) PlaceShape(shapeID string, row, col int) bool {
	s.settle()
	if s.gameOver || s.bombMode {
		return false
	}

	idx, ok := s.findShape(shapeID)
	if !ok {
		return false
	}
	shape := s.hand[idx]

	if !s.CanPlace(shape.Matrix, row, col) {
		s.emit(Event{Type: EventReturn})
		return false
	}

	next := s.board.Clone()
	points := next.MergeShape(shape.Matrix, row, col, shape.Color)
	s.board = next
	s.emit(Event{Type: EventDrop})

	s.hand = append(s.hand[:idx:idx], s.hand[idx+1:]...)
	s.preview = emptyPreview()

	log.Debug().Str("shape", shape.ID).Int("row", row).Int("col", col).Int("points", points).Msg("ピースを配置しました")

	if s.resolveLines(points) {
		return true
	}
	if len(s.hand) == 0 {
		s.scheduleRefill()
	} else {
		s.CheckGameOver()
	}
	return true
}

// resolveLines は現在のボードのライン判定を行い、コンボ・スコア・通貨を即座に反映します。
// ラインが揃っていれば消去を予約し true を返します。
func (s *Session) resolveLines(placementPoints int) bool {
	lines := DetectLines(s.board)
	count := lines.Count()

	s.combo = s.combo.Next(count > 0)
	if count > 0 {
		s.emit(Event{Type: EventLinesCleared, Lines: count, Rows: lines.Rows, Cols: lines.Cols})
	}

	total := MoveScore(placementPoints, count, s.combo.Multiplier)
	s.addScore(total)
	s.addCurrency(CurrencyFor(total))

	if count == 0 {
		return false
	}

	log.Debug().Ints("rows", lines.Rows).Ints("cols", lines.Cols).Int("combo", s.combo.Multiplier).Int("score", total).Msg("ラインが揃いました")

	s.clear = &pendingClear{lines: lines, due: s.now().Add(s.clearDelay)}
	if s.clearDelay <= 0 {
		s.applyClear()
	}
	return true
}

// applyClear は予約済みのライン消去をボードに適用します。
// 盤面が空になればパーフェクトクリア、そうでなければ手札の補充かゲームオーバー判定に進みます。
func (s *Session) applyClear() {
	if s.clear == nil {
		return
	}
	lines := s.clear.lines
	s.clear = nil

	before := s.board
	s.board = ApplyClear(before, lines)

	switch {
	case IsPerfectClear(before, s.board):
		s.perfectClear()
	case len(s.hand) == 0:
		s.RefillShapes()
	default:
		s.CheckGameOver()
	}
}

// perfectClear はボーナスを加算し、所持テーマの次のテーマに切り替えて手札を配り直します。
func (s *Session) perfectClear() {
	s.addScore(PerfectClearBonus)
	s.addCurrency(CurrencyFor(PerfectClearBonus))

	s.themeID = nextOwned(s.ownedThemes, s.themeID)
	s.persist(KeyThemeID, s.themeID)
	s.emit(Event{Type: EventPerfectClear, ThemeID: s.themeID})

	log.Debug().Str("theme", s.themeID).Msg("パーフェクトクリア")
	s.RefillShapes()
}

// nextOwned は current の次の要素を返します。末尾の次は先頭です。current がなければ先頭を返します。
func nextOwned(owned []string, current string) string {
	if len(owned) == 0 {
		return current
	}
	idx := -1
	for i, id := range owned {
		if id == current {
			idx = i
			break
		}
	}
	return owned[(idx+1)%len(owned)]
}

func (s *Session) scheduleRefill() {
	if s.refillDelay <= 0 {
		s.RefillShapes()
		return
	}
	due := s.now().Add(s.refillDelay)
	s.refillDue = &due
}

// Advance は now の時点で期限が来た遅延処理（ライン消去・手札補充）を適用します。
// SessionManager のティッカーから定期的に呼ばれます。
//
// Returns:
//
//	bool: 何かが適用された場合は true
func (s *Session) Advance(now time.Time) bool {
	changed := false
	if s.clear != nil && !now.Before(s.clear.due) {
		s.applyClear()
		changed = true
	}
	if s.refillDue != nil && !now.Before(*s.refillDue) {
		s.RefillShapes()
		changed = true
	}
	return changed
}

// settle は期限に関係なく、待っている遅延処理をすべて適用します。
func (s *Session) settle() {
	if s.clear != nil {
		s.applyClear()
	}
	if s.refillDue != nil {
		s.RefillShapes()
	}
}

// Pending は消去待ちまたは補充待ちの処理があるかどうかを返します。
func (s *Session) Pending() bool {
	return s.clear != nil || s.refillDue != nil
}

// RefillShapes は現在のボードとテーマのパレットから手札3枚を配り直し、ゲームオーバー判定を行います。
func (s *Session) RefillShapes() {
	s.refillDue = nil
	s.hand = s.generator.Generate(s.board, themeByID(s.themeID).Colors)
	s.CheckGameOver()
}

// CheckGameOver は手札のどれもボードに置けない場合にゲームオーバーにします。
// 手札が空のとき（補充待ち）は判定しません。
func (s *Session) CheckGameOver() bool {
	if s.gameOver {
		return true
	}
	if len(s.hand) == 0 {
		return false
	}
	if blockblast.CountPlaceable(s.hand, s.board) == 0 {
		s.gameOver = true
		s.bombMode = false
		s.emit(Event{Type: EventError})
		log.Debug().Int("score", s.score).Msg("ゲームオーバー")
	}
	return s.gameOver
}

// ResetGame は現在のグリッドサイズで新しいゲームを始めます。
// 通貨・ベストスコア・所持アイテムはそのままです。待っている遅延処理は破棄します。
func (s *Session) ResetGame() {
	s.clear = nil
	s.refillDue = nil
	s.board = blockblast.NewBoard(s.gridSize)
	s.score = 0
	s.combo = NewComboState()
	s.gameOver = false
	s.bombMode = false
	s.preview = emptyPreview()
	s.RefillShapes()
}

// effectiveBoard は消去待ちのラインを適用した後のボードを返します。プレビュー用です。
func (s *Session) effectiveBoard() blockblast.Board {
	if s.clear == nil {
		return s.board
	}
	return ApplyClear(s.board, s.clear.lines)
}

// UpdatePreview はピースを (row, col) に置いた場合のプレビューを更新します。
// 置ける場合は覆うマスと、揃うことになる行・列を求めます。置けない場合は UpdateInvalidPreview と同じです。
func (s *Session) UpdatePreview(shapeID string, row, col int) Preview {
	if s.gameOver || s.bombMode {
		return s.ClearPreview()
	}
	idx, ok := s.findShape(shapeID)
	if !ok {
		return s.ClearPreview()
	}
	shape := s.hand[idx]
	board := s.effectiveBoard()

	if !blockblast.CanPlace(board, shape.Matrix, row, col) {
		return s.UpdateInvalidPreview(shapeID, row, col)
	}

	sim := board.Clone()
	sim.MergeShape(shape.Matrix, row, col, shape.Color)
	lines := DetectLines(sim)

	s.preview = Preview{
		ShapeID: shape.ID,
		Cells:   coveredCells(board, shape.Matrix, row, col),
		Color:   shape.Color,
		Valid:   true,
		Rows:    lines.Rows,
		Cols:    lines.Cols,
	}
	return s.preview
}

// UpdateInvalidPreview は置けない位置でのプレビュー（赤表示用）を更新します。
// ボードの範囲内にかかるマスだけを含み、揃うラインは空です。
func (s *Session) UpdateInvalidPreview(shapeID string, row, col int) Preview {
	idx, ok := s.findShape(shapeID)
	if !ok {
		return s.ClearPreview()
	}
	shape := s.hand[idx]
	s.preview = Preview{
		ShapeID: shape.ID,
		Cells:   coveredCells(s.board, shape.Matrix, row, col),
		Color:   shape.Color,
		Valid:   false,
		Rows:    []int{},
		Cols:    []int{},
	}
	return s.preview
}

// ClearPreview はプレビューを消します。
func (s *Session) ClearPreview() Preview {
	s.preview = emptyPreview()
	return s.preview
}

func coveredCells(board blockblast.Board, matrix blockblast.Matrix, row, col int) []blockblast.CellCoord {
	cells := []blockblast.CellCoord{}
	for r, line := range matrix {
		for c, v := range line {
			if v == 1 && board.InBounds(row+r, col+c) {
				cells = append(cells, blockblast.CellCoord{Row: row + r, Col: col + c})
			}
		}
	}
	return cells
}

// ActivateBomb は爆弾モードに入ります。通貨が BombCost 未満なら何もしません。
// 通貨は実際に爆弾を使ったときに引かれます。
func (s *Session) ActivateBomb() bool {
	if s.gameOver || s.bombMode || s.currency < BombCost {
		return false
	}
	s.bombMode = true
	s.preview = emptyPreview()
	return true
}

// CancelBomb は爆弾モードを解除します。
func (s *Session) CancelBomb() bool {
	if !s.bombMode {
		return false
	}
	s.bombMode = false
	return true
}

// UseBomb は (row, col) を中心とした 3x3 を消します。
// 配置点は 0 ですが、消した結果ラインが揃えば通常どおりスコアとコンボが進みます。
func (s *Session) UseBomb(row, col int) bool {
	s.settle()
	if s.gameOver || !s.bombMode {
		return false
	}
	if s.currency < BombCost {
		s.bombMode = false
		s.emit(Event{Type: EventError})
		return false
	}

	s.addCurrency(-BombCost)
	s.emit(Event{Type: EventPowerUp})

	next := s.board.Clone()
	next.ClearArea(row, col, BombRadius)
	s.board = next
	s.bombMode = false

	s.resolveLines(0)
	return true
}

// RotateHand は通貨 RotateCost を払い、手札のすべてのピースを時計回りに90度回転します。
func (s *Session) RotateHand() bool {
	s.settle()
	if s.gameOver || s.currency < RotateCost || len(s.hand) == 0 {
		return false
	}
	s.addCurrency(-RotateCost)
	s.emit(Event{Type: EventPowerUp})

	rotated := make([]blockblast.Shape, len(s.hand))
	for i, shape := range s.hand {
		rotated[i] = shape.Rotated()
	}
	s.hand = rotated
	s.preview = emptyPreview()
	return true
}

// RefreshHand は通貨 RefreshCost を払い、手札を新しく配り直します。
func (s *Session) RefreshHand() bool {
	s.settle()
	if s.gameOver || s.currency < RefreshCost {
		return false
	}
	s.addCurrency(-RefreshCost)
	s.emit(Event{Type: EventPowerUp})
	s.preview = emptyPreview()
	s.RefillShapes()
	return true
}
