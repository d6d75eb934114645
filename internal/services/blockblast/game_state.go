package blockblast

import (
	"math/rand"
	"time"

	"github.com/progate-hackathon-strawberry-flavor/BLOCKBLAST-backend/internal/models/blockblast"
)

// 演出用の遅延の初期値
const (
	DefaultClearDelay  = 350 * time.Millisecond // ラインが揃ってから実際に消えるまで
	DefaultRefillDelay = 100 * time.Millisecond // 手札が空になってから補充されるまで
)

// パワーアップの価格
const (
	RotateCost  = 50
	RefreshCost = 100
	BombCost    = 200
	BombRadius  = 1 // 3x3 の範囲を消す
)

// SessionOptions は NewSession の設定です。ゼロ値の項目には初期値が使われます。
type SessionOptions struct {
	Snapshot  *Snapshot     // 永続化済みの値。nil なら DefaultSnapshot
	Rng       *rand.Rand    // ピース生成用の乱数。nil なら現在時刻でシード
	Persister Persister     // 値の変更の書き込み先。nil なら書き込まない
	Listener  EventListener // ゲームイベントの通知先

	// ClearDelay / RefillDelay が 0 の場合、消去と補充は即座に行われます。
	ClearDelay  time.Duration
	RefillDelay time.Duration

	Now func() time.Time // 現在時刻。nil なら time.Now
}

// Preview はドラッグ中のホバー表示です。
type Preview struct {
	ShapeID string                 `json:"shapeId,omitempty"`
	Cells   []blockblast.CellCoord `json:"cells"`
	Color   string                 `json:"color,omitempty"`
	Valid   bool                   `json:"valid"`
	Rows    []int                  `json:"rows"` // 置いた場合に揃う行
	Cols    []int                  `json:"cols"` // 置いた場合に揃う列
}

func emptyPreview() Preview {
	return Preview{Cells: []blockblast.CellCoord{}, Rows: []int{}, Cols: []int{}}
}

// pendingClear は検出済みでまだボードに適用していないライン消去です。
type pendingClear struct {
	lines ClearedLines
	due   time.Time
}

// Session は1人のプレイヤーのゲーム状態です。
//
// Session はスレッドセーフではありません。1つのゴルーチン（SessionManager のループ、またはテスト）だけが操作します。
// 遅延処理（ライン消去・手札補充）は Advance で時間を進めたときに適用されます。
type Session struct {
	board    blockblast.Board
	gridSize blockblast.GridSize
	hand     []blockblast.Shape

	score     int
	highScore int
	currency  int
	combo     ComboState
	gameOver  bool
	bombMode  bool

	ownedThemes     []string
	ownedSkins      []string
	ownedGrids      []blockblast.GridSize
	ownedSoundPacks []string
	themeID         string
	skinID          string
	soundPackID     string

	preview Preview

	clear     *pendingClear
	refillDue *time.Time

	generator   *Generator
	persister   Persister
	listener    EventListener
	clearDelay  time.Duration
	refillDelay time.Duration
	now         func() time.Time
}

// NewSession は新しいゲームを開始した状態の Session を返します。
//
// Parameters:
//
//	opts : 永続化済みの値・乱数・遅延などの設定
//
// Returns:
//
//	*Session: 空のボードと3枚の手札を持つ Session
func NewSession(opts SessionOptions) *Session {
	snap := DefaultSnapshot()
	if opts.Snapshot != nil {
		snap = opts.Snapshot.normalized()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	s := &Session{
		gridSize:        snap.GridSize,
		highScore:       snap.HighScore,
		currency:        snap.Currency,
		ownedThemes:     append([]string(nil), snap.OwnedThemes...),
		ownedSkins:      append([]string(nil), snap.OwnedSkins...),
		ownedGrids:      append([]blockblast.GridSize(nil), snap.OwnedGrids...),
		ownedSoundPacks: append([]string(nil), snap.OwnedSoundPacks...),
		themeID:         snap.ThemeID,
		skinID:          snap.SkinID,
		soundPackID:     snap.SoundPackID,
		generator:       NewGenerator(opts.Rng),
		persister:       opts.Persister,
		listener:        opts.Listener,
		clearDelay:      opts.ClearDelay,
		refillDelay:     opts.RefillDelay,
		now:             now,
	}
	s.ResetGame()
	return s
}

// State はクライアントへ送る軽量なゲーム状態のスナップショットです。
type State struct {
	Board               blockblast.Board      `json:"board"`
	Hand                []blockblast.Shape    `json:"hand"`
	GridSize            blockblast.GridSize   `json:"gridSize"`
	Score               int                   `json:"score"`
	HighScore           int                   `json:"highScore"`
	Currency            int                   `json:"currency"`
	ComboMultiplier     int                   `json:"comboMultiplier"`
	MovesSinceLastClear int                   `json:"movesSinceLastClear"`
	GameOver            bool                  `json:"gameOver"`
	BombMode            bool                  `json:"bombMode"`
	ThemeID             string                `json:"themeId"`
	SkinID              string                `json:"skinId"`
	SoundPackID         string                `json:"soundPackId"`
	OwnedThemes         []string              `json:"ownedThemes"`
	OwnedSkins          []string              `json:"ownedSkins"`
	OwnedGrids          []blockblast.GridSize `json:"ownedGrids"`
	OwnedSoundPacks     []string              `json:"ownedSoundPacks"`
	Preview             Preview               `json:"preview"`
	Clearing            *ClearedLines         `json:"clearing,omitempty"` // 消去待ちのライン
}

// State は現在の状態のコピーを返します。戻り値を変更しても Session には影響しません。
func (s *Session) State() State {
	hand := make([]blockblast.Shape, len(s.hand))
	for i, shape := range s.hand {
		shape.Matrix = shape.Matrix.Clone()
		hand[i] = shape
	}
	st := State{
		Board:               s.board.Clone(),
		Hand:                hand,
		GridSize:            s.gridSize,
		Score:               s.score,
		HighScore:           s.highScore,
		Currency:            s.currency,
		ComboMultiplier:     s.combo.Multiplier,
		MovesSinceLastClear: s.combo.MovesSinceLastClear,
		GameOver:            s.gameOver,
		BombMode:            s.bombMode,
		ThemeID:             s.themeID,
		SkinID:              s.skinID,
		SoundPackID:         s.soundPackID,
		OwnedThemes:         append([]string(nil), s.ownedThemes...),
		OwnedSkins:          append([]string(nil), s.ownedSkins...),
		OwnedGrids:          append([]blockblast.GridSize(nil), s.ownedGrids...),
		OwnedSoundPacks:     append([]string(nil), s.ownedSoundPacks...),
		Preview:             s.preview,
	}
	if s.clear != nil {
		lines := s.clear.lines
		st.Clearing = &lines
	}
	return st
}

// CurrentTheme は状態が選択しているテーマを返します。
// 不明な ID の場合は最初のテーマ（clean）になります。
func CurrentTheme(st State) blockblast.ColorTheme {
	return themeByID(st.ThemeID)
}

func themeByID(id string) blockblast.ColorTheme {
	if t, ok := blockblast.FindTheme(id); ok {
		return t
	}
	return blockblast.Themes[0]
}

// Score は現在のスコアを返します。
func (s *Session) Score() int { return s.score }

// HighScore はベストスコアを返します。
func (s *Session) HighScore() int { return s.highScore }

// Currency は所持通貨を返します。
func (s *Session) Currency() int { return s.currency }

// IsGameOver はゲームオーバーかどうかを返します。
func (s *Session) IsGameOver() bool { return s.gameOver }

// Board は現在のボードを返します。呼び出し側で変更しないでください。
func (s *Session) Board() blockblast.Board { return s.board }

// Hand は現在の手札を返します。呼び出し側で変更しないでください。
func (s *Session) Hand() []blockblast.Shape { return s.hand }

func (s *Session) emit(e Event) {
	if s.listener != nil {
		s.listener(e)
	}
}

func (s *Session) persist(key, value string) {
	if s.persister != nil {
		s.persister.Persist(key, value)
	}
}

// addScore はスコアを加算し、ベストスコアを超えたら更新して保存します。
func (s *Session) addScore(n int) {
	s.score += n
	if s.score > s.highScore {
		s.highScore = s.score
		s.persist(KeyHighScore, encodeInt(s.highScore))
	}
}

// addCurrency は通貨を増減して保存します。呼び出し側で残高が負にならないことを確認します。
func (s *Session) addCurrency(n int) {
	if n == 0 {
		return
	}
	s.currency += n
	s.persist(KeyCurrency, encodeInt(s.currency))
}

func (s *Session) findShape(id string) (int, bool) {
	for i, shape := range s.hand {
		if shape.ID == id {
			return i, true
		}
	}
	return -1, false
}
