package blockblast

import (
	"math/rand"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/progate-hackathon-strawberry-flavor/BLOCKBLAST-backend/internal/models/blockblast"
)

// testClock はテストから進める時計です。
type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Add(d time.Duration) time.Time {
	c.now = c.now.Add(d)
	return c.now
}

type recorder struct {
	events []Event
}

func (r *recorder) listen(e Event) { r.events = append(r.events, e) }

func (r *recorder) types() []EventType {
	out := make([]EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func newTestSession(t *testing.T, opts SessionOptions) (*Session, *recorder, *testClock) {
	t.Helper()
	rec := &recorder{}
	clock := &testClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	if opts.Rng == nil {
		opts.Rng = rand.New(rand.NewSource(1))
	}
	opts.Listener = rec.listen
	opts.Now = clock.Now
	s := NewSession(opts)
	require.Len(t, s.Hand(), HandSize)
	return s, rec, clock
}

// setHand は手札を固定の形に置き換え、ID を返します。
func setHand(s *Session, matrices ...blockblast.Matrix) []string {
	s.hand = nil
	ids := make([]string, 0, len(matrices))
	for _, m := range matrices {
		shape := blockblast.NewShape(m, "#abcdef")
		s.hand = append(s.hand, shape)
		ids = append(ids, shape.ID)
	}
	return ids
}

var (
	mono    = blockblast.Matrix{{1}}
	domino  = blockblast.Matrix{{1, 1}}
	square2 = blockblast.Matrix{{1, 1}, {1, 1}}
	line3   = blockblast.Matrix{{1, 1, 1}}
)

func TestNewSessionDefaults(t *testing.T) {
	s, _, _ := newTestSession(t, SessionOptions{})
	st := s.State()

	assert.Equal(t, 0, st.Score)
	assert.Equal(t, DefaultCurrency, st.Currency)
	assert.Equal(t, 1, st.ComboMultiplier)
	assert.Equal(t, blockblast.GridClassic, st.GridSize)
	assert.Len(t, st.Board, 8)
	assert.True(t, st.Board.IsEmpty())
	assert.Equal(t, "clean", st.ThemeID)
	assert.Equal(t, []string{"clean", "ocean"}, st.OwnedThemes)
	assert.False(t, st.GameOver)
	assert.Nil(t, st.Clearing)
	for _, shape := range st.Hand {
		assert.Contains(t, CurrentTheme(st).Colors, shape.Color)
	}
}

func TestPlaceShapeIncreasesFilledByArea(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		s, rec, _ := newTestSession(t, SessionOptions{Rng: rand.New(rand.NewSource(seed)), ClearDelay: DefaultClearDelay})
		shape := s.Hand()[0]

		require.True(t, s.PlaceShape(shape.ID, 0, 0), "seed %d", seed)
		assert.Equal(t, shape.Area, s.Board().FilledCount(), "seed %d", seed)
		assert.Equal(t, shape.Area, s.Score(), "1ラインも揃わなければ配置点のみ")
		assert.Len(t, s.Hand(), HandSize-1)
		assert.Equal(t, []EventType{EventDrop}, rec.types())
	}
}

func TestPlaceShapeClearsRow(t *testing.T) {
	s, rec, _ := newTestSession(t, SessionOptions{})
	s.board[0][0] = blockblast.Cell{Filled: true, Color: "#111"}
	fillRowExcept(s.board, 3, 7)
	ids := setHand(s, mono, domino, line3)

	require.True(t, s.PlaceShape(ids[0], 3, 7))

	// コンボ 1 から1ライン: (1 + 10) × 2
	assert.Equal(t, 22, s.Score())
	assert.Equal(t, DefaultCurrency+4, s.Currency())
	assert.Equal(t, 2, s.State().ComboMultiplier)
	assert.Equal(t, 1, s.Board().FilledCount(), "行3が消えて (0,0) だけが残る")
	assert.False(t, s.Pending())
	assert.Equal(t, []EventType{EventDrop, EventLinesCleared}, rec.types())
	assert.Equal(t, []int{3}, rec.events[1].Rows)
	assert.Equal(t, 1, rec.events[1].Lines)
}

func TestPlaceShapeDelayedClear(t *testing.T) {
	s, _, clock := newTestSession(t, SessionOptions{ClearDelay: DefaultClearDelay})
	s.board[0][0] = blockblast.Cell{Filled: true, Color: "#111"}
	fillRowExcept(s.board, 3, 7)
	ids := setHand(s, mono, domino, line3)

	require.True(t, s.PlaceShape(ids[0], 3, 7))

	// スコアは即座に反映、ボードは消去待ち
	assert.Equal(t, 22, s.Score())
	assert.Equal(t, 9, s.Board().FilledCount())
	st := s.State()
	require.NotNil(t, st.Clearing)
	assert.Equal(t, []int{3}, st.Clearing.Rows)

	assert.False(t, s.Advance(clock.Add(100*time.Millisecond)))
	assert.Equal(t, 9, s.Board().FilledCount())

	assert.True(t, s.Advance(clock.Add(250*time.Millisecond)))
	assert.Equal(t, 1, s.Board().FilledCount())
	assert.Nil(t, s.State().Clearing)
	assert.False(t, s.Advance(clock.Add(time.Second)), "2回目は何もしない")
	assert.Equal(t, 22, s.Score())
}

func TestPendingClearIsAppliedBeforeNextPlacement(t *testing.T) {
	s, _, _ := newTestSession(t, SessionOptions{ClearDelay: time.Hour})
	s.board[0][0] = blockblast.Cell{Filled: true, Color: "#111"}
	fillRowExcept(s.board, 3, 7)
	ids := setHand(s, mono, mono, line3)

	require.True(t, s.PlaceShape(ids[0], 3, 7))
	require.True(t, s.Pending())

	// (3,0) は消去待ちの行にあるが、先に消去が適用されるので置ける
	require.True(t, s.PlaceShape(ids[1], 3, 0))
	assert.False(t, s.Pending())
	assert.Equal(t, 2, s.Board().FilledCount())
	assert.True(t, s.Board()[3][0].Filled)
}

func TestPreviewUsesBoardAfterPendingClear(t *testing.T) {
	s, _, _ := newTestSession(t, SessionOptions{ClearDelay: time.Hour})
	s.board[0][0] = blockblast.Cell{Filled: true, Color: "#111"}
	fillRowExcept(s.board, 3, 7)
	ids := setHand(s, mono, mono, line3)

	require.True(t, s.PlaceShape(ids[0], 3, 7))
	p := s.UpdatePreview(ids[1], 3, 0)
	assert.True(t, p.Valid)
	assert.Equal(t, []blockblast.CellCoord{{Row: 3, Col: 0}}, p.Cells)
	assert.True(t, s.Pending(), "プレビューは消去を適用しない")
}

func TestCanPlaceSeesPendingClear(t *testing.T) {
	s, _, _ := newTestSession(t, SessionOptions{ClearDelay: time.Hour})
	s.board[0][0] = blockblast.Cell{Filled: true, Color: "#111"}
	fillRowExcept(s.board, 3, 7)
	ids := setHand(s, mono, mono, line3)
	require.True(t, s.PlaceShape(ids[0], 3, 7))

	require.True(t, s.Board()[3][0].Filled, "消去はまだ適用されていない")
	assert.True(t, s.CanPlace(mono, 3, 0))
	assert.True(t, s.UpdatePreview(ids[1], 3, 0).Valid)
	assert.False(t, s.CanPlace(mono, 0, 0))
	assert.True(t, s.PlaceShape(ids[1], 3, 0))
}

func TestResetGameDiscardsPendingWork(t *testing.T) {
	s, _, clock := newTestSession(t, SessionOptions{ClearDelay: DefaultClearDelay})
	s.board[0][0] = blockblast.Cell{Filled: true, Color: "#111"}
	fillRowExcept(s.board, 3, 7)
	ids := setHand(s, mono, domino, line3)
	require.True(t, s.PlaceShape(ids[0], 3, 7))
	require.True(t, s.Pending())

	s.ResetGame()

	assert.False(t, s.Pending())
	assert.False(t, s.Advance(clock.Add(time.Second)))
	assert.True(t, s.Board().IsEmpty())
	assert.Equal(t, 0, s.Score())
	assert.Equal(t, 22, s.HighScore(), "ベストスコアは残る")
	assert.Equal(t, DefaultCurrency+4, s.Currency(), "通貨は残る")
	assert.Len(t, s.Hand(), HandSize)
}

func TestPlaceShapeRejected(t *testing.T) {
	s, rec, _ := newTestSession(t, SessionOptions{})
	s.board[2][2] = blockblast.Cell{Filled: true, Color: "#111"}
	ids := setHand(s, square2, domino, mono)
	before := s.State()

	tests := []struct {
		name     string
		row, col int
	}{
		{"overlap", 1, 1},
		{"out of bounds", 7, 7},
		{"negative anchor", -1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, s.PlaceShape(ids[0], tt.row, tt.col))
		})
	}

	if diff := cmp.Diff(before, s.State()); diff != "" {
		t.Errorf("拒否された配置で状態が変わった (-before +after):\n%s", diff)
	}
	assert.Equal(t, []EventType{EventReturn, EventReturn, EventReturn}, rec.types())

	assert.False(t, s.PlaceShape("missing", 0, 0))
	assert.Len(t, rec.events, 3, "存在しない ID ではイベントを出さない")
}

func TestPerfectClear(t *testing.T) {
	s, rec, _ := newTestSession(t, SessionOptions{})
	fillRowExcept(s.board, 3, 7)
	ids := setHand(s, mono, domino, line3)

	require.True(t, s.PlaceShape(ids[0], 3, 7))

	assert.True(t, s.Board().IsEmpty())
	assert.Equal(t, 22+PerfectClearBonus, s.Score())
	assert.Equal(t, DefaultCurrency+4+100, s.Currency())
	st := s.State()
	assert.Equal(t, "ocean", st.ThemeID)
	require.Len(t, st.Hand, HandSize, "パーフェクトクリア後は手札を配り直す")
	for _, shape := range st.Hand {
		assert.Contains(t, CurrentTheme(st).Colors, shape.Color)
	}
	assert.Equal(t, []EventType{EventDrop, EventLinesCleared, EventPerfectClear}, rec.types())
	assert.Equal(t, "ocean", rec.events[2].ThemeID)
}

func TestPerfectClearWrapsTheme(t *testing.T) {
	s, _, _ := newTestSession(t, SessionOptions{})
	s.themeID = "ocean"
	fillRowExcept(s.board, 0, 0)
	ids := setHand(s, mono)

	require.True(t, s.PlaceShape(ids[0], 0, 0))
	assert.Equal(t, "clean", s.State().ThemeID)
}

func TestPerfectClearWithSingleTheme(t *testing.T) {
	snap := DefaultSnapshot()
	snap.OwnedThemes = []string{"clean"}
	s, _, _ := newTestSession(t, SessionOptions{Snapshot: &snap})
	fillRowExcept(s.board, 0, 0)
	ids := setHand(s, mono)

	require.True(t, s.PlaceShape(ids[0], 0, 0))
	assert.Equal(t, "clean", s.State().ThemeID)
}

func TestNextOwned(t *testing.T) {
	owned := []string{"clean", "ocean", "dark"}
	assert.Equal(t, "ocean", nextOwned(owned, "clean"))
	assert.Equal(t, "clean", nextOwned(owned, "dark"))
	assert.Equal(t, "clean", nextOwned(owned, "unknown"))
	assert.Equal(t, "x", nextOwned(nil, "x"))
}

func TestComboDecaysAfterThreeMoves(t *testing.T) {
	s, _, _ := newTestSession(t, SessionOptions{})
	s.combo = ComboState{Multiplier: 2}
	ids := setHand(s, mono, mono, mono)

	require.True(t, s.PlaceShape(ids[0], 0, 0))
	assert.Equal(t, 2, s.Score())
	require.True(t, s.PlaceShape(ids[1], 0, 2))
	assert.Equal(t, 4, s.Score())
	require.True(t, s.PlaceShape(ids[2], 0, 4))

	assert.Equal(t, 5, s.Score(), "3手目で倍率が 1 に戻る")
	st := s.State()
	assert.Equal(t, 1, st.ComboMultiplier)
	assert.Equal(t, 0, st.MovesSinceLastClear)
	assert.Len(t, st.Hand, HandSize, "手札が空になったら補充する")
}

func TestDelayedRefill(t *testing.T) {
	s, _, clock := newTestSession(t, SessionOptions{RefillDelay: DefaultRefillDelay})
	ids := setHand(s, mono)

	require.True(t, s.PlaceShape(ids[0], 4, 4))
	assert.Empty(t, s.Hand())
	assert.True(t, s.Pending())
	assert.False(t, s.IsGameOver(), "補充待ちではゲームオーバー判定をしない")

	assert.False(t, s.Advance(clock.Add(50*time.Millisecond)))
	assert.True(t, s.Advance(clock.Add(50*time.Millisecond)))
	assert.Len(t, s.Hand(), HandSize)
	assert.False(t, s.Pending())
}

func TestGameOver(t *testing.T) {
	s, rec, _ := newTestSession(t, SessionOptions{})
	for r := range s.board {
		for c := range s.board[r] {
			s.board[r][c] = blockblast.Cell{Filled: true, Color: "#111"}
		}
	}
	s.board[0][0] = blockblast.Cell{}
	ids := setHand(s, domino, square2)

	assert.True(t, s.CheckGameOver())
	assert.True(t, s.IsGameOver())
	assert.Equal(t, []EventType{EventError}, rec.types())

	// ゲームオーバー中の操作は何もしない
	assert.False(t, s.PlaceShape(ids[0], 0, 0))
	assert.False(t, s.PickUp(ids[0]))
	assert.False(t, s.RotateHand())
	assert.False(t, s.RefreshHand())
	assert.False(t, s.ActivateBomb())
	assert.Equal(t, DefaultCurrency, s.Currency())

	s.ResetGame()
	assert.False(t, s.IsGameOver())
	assert.True(t, s.Board().IsEmpty())
}

func TestCheckGameOverSkipsEmptyHand(t *testing.T) {
	s, _, _ := newTestSession(t, SessionOptions{})
	s.hand = nil
	assert.False(t, s.CheckGameOver())
}

func TestUseBomb(t *testing.T) {
	s, rec, _ := newTestSession(t, SessionOptions{})
	s.currency = 300
	for r := range s.board {
		for c := range s.board[r] {
			if (r+c)%2 == 0 {
				s.board[r][c] = blockblast.Cell{Filled: true, Color: "#111"}
			}
		}
	}
	before := s.Board().FilledCount()

	assert.False(t, s.UseBomb(4, 4), "爆弾モードでなければ使えない")
	require.True(t, s.ActivateBomb())
	assert.True(t, s.State().BombMode)
	assert.False(t, s.PlaceShape(s.Hand()[0].ID, 0, 1), "爆弾モード中は配置できない")

	require.True(t, s.UseBomb(4, 4))

	assert.Equal(t, 100, s.Currency())
	assert.Equal(t, before-5, s.Board().FilledCount())
	for r := 3; r <= 5; r++ {
		for c := 3; c <= 5; c++ {
			assert.False(t, s.Board()[r][c].Filled, "(%d,%d)", r, c)
		}
	}
	assert.False(t, s.State().BombMode)
	assert.Equal(t, 0, s.Score())
	assert.Contains(t, rec.types(), EventPowerUp)
}

func TestUseBombAtEdge(t *testing.T) {
	s, _, _ := newTestSession(t, SessionOptions{})
	s.currency = BombCost
	s.board[0][0] = blockblast.Cell{Filled: true, Color: "#111"}
	s.board[1][1] = blockblast.Cell{Filled: true, Color: "#111"}
	s.board[2][2] = blockblast.Cell{Filled: true, Color: "#111"}

	require.True(t, s.ActivateBomb())
	require.True(t, s.UseBomb(0, 0))
	assert.Equal(t, 1, s.Board().FilledCount())
	assert.Equal(t, 0, s.Currency())
}

func TestActivateBombRequiresCurrency(t *testing.T) {
	s, _, _ := newTestSession(t, SessionOptions{})
	s.currency = BombCost - 1
	assert.False(t, s.ActivateBomb())

	s.currency = BombCost
	require.True(t, s.ActivateBomb())
	assert.True(t, s.CancelBomb())
	assert.False(t, s.CancelBomb())
	assert.Equal(t, BombCost, s.Currency(), "キャンセルでは通貨は減らない")
}

func TestRotateHand(t *testing.T) {
	s, rec, _ := newTestSession(t, SessionOptions{})
	ids := setHand(s, line3, domino, blockblast.Matrix{{1, 1, 1}, {1, 0, 0}})

	require.True(t, s.RotateHand())

	assert.Equal(t, DefaultCurrency-RotateCost, s.Currency())
	hand := s.Hand()
	assert.Equal(t, blockblast.Matrix{{1}, {1}, {1}}, hand[0].Matrix)
	assert.Equal(t, blockblast.Matrix{{1}, {1}}, hand[1].Matrix)
	assert.Equal(t, blockblast.Matrix{{1, 1}, {0, 1}, {0, 1}}, hand[2].Matrix)
	for i, shape := range hand {
		assert.Equal(t, ids[i], shape.ID)
	}
	assert.Equal(t, []EventType{EventPowerUp}, rec.types())

	require.True(t, s.RotateHand())
	assert.Equal(t, 0, s.Currency())
	assert.False(t, s.RotateHand(), "通貨が足りない")
	assert.Equal(t, blockblast.Matrix{{1, 1, 1}}, s.Hand()[0].Matrix)
}

func TestRefreshHand(t *testing.T) {
	s, _, _ := newTestSession(t, SessionOptions{})
	ids := setHand(s, mono, mono, mono)

	require.True(t, s.RefreshHand())

	assert.Equal(t, DefaultCurrency-RefreshCost, s.Currency())
	require.Len(t, s.Hand(), HandSize)
	for _, shape := range s.Hand() {
		assert.NotContains(t, ids, shape.ID)
	}
	assert.False(t, s.RefreshHand(), "通貨が足りない")
}

func TestUpdatePreview(t *testing.T) {
	s, _, _ := newTestSession(t, SessionOptions{})
	s.board[0][0] = blockblast.Cell{Filled: true, Color: "#111"}
	fillRowExcept(s.board, 3, 7)
	ids := setHand(s, mono, square2)

	p := s.UpdatePreview(ids[0], 3, 7)
	assert.True(t, p.Valid)
	assert.Equal(t, ids[0], p.ShapeID)
	assert.Equal(t, []blockblast.CellCoord{{Row: 3, Col: 7}}, p.Cells)
	assert.Equal(t, []int{3}, p.Rows)
	assert.Equal(t, []int{}, p.Cols)
	assert.Equal(t, 8, s.Board().FilledCount(), "プレビューはボードを変えない")

	// 範囲外にはみ出すマスは含めない
	p = s.UpdatePreview(ids[1], 7, 7)
	assert.False(t, p.Valid)
	assert.Equal(t, []blockblast.CellCoord{{Row: 7, Col: 7}}, p.Cells)
	assert.Empty(t, p.Rows)

	p = s.ClearPreview()
	assert.Empty(t, p.Cells)
	assert.Equal(t, "", s.State().Preview.ShapeID)

	p = s.UpdatePreview("missing", 0, 0)
	assert.Empty(t, p.Cells)
}

func TestApplyPlayerInput(t *testing.T) {
	s, rec, _ := newTestSession(t, SessionOptions{})
	ids := setHand(s, mono, domino, line3)

	changed, err := ApplyPlayerInput(s, PlayerInput{Action: "pick_up", ShapeID: ids[1]})
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = ApplyPlayerInput(s, PlayerInput{Action: "place", ShapeID: ids[1], Row: 5, Col: 5})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, s.Board()[5][6].Filled)

	changed, err = ApplyPlayerInput(s, PlayerInput{Action: "place", ShapeID: ids[2], Row: 5, Col: 5})
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, []EventType{EventPickUp, EventDrop, EventReturn}, rec.types())

	changed, err = ApplyPlayerInput(s, PlayerInput{Action: "rotate"})
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = ApplyPlayerInput(s, PlayerInput{Action: "buy_grid", Size: int(blockblast.GridLarge)})
	require.NoError(t, err)
	assert.False(t, changed, "通貨が足りない")

	changed, err = ApplyPlayerInput(s, PlayerInput{Action: "reset"})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, s.Board().IsEmpty())

	_, err = ApplyPlayerInput(s, PlayerInput{Action: "teleport"})
	assert.ErrorIs(t, err, ErrUnknownAction)
}

func TestStateIsACopy(t *testing.T) {
	s, _, _ := newTestSession(t, SessionOptions{})
	st := s.State()
	st.Board[0][0] = blockblast.Cell{Filled: true}
	st.Hand[0].Matrix[0][0] = 9
	st.OwnedThemes[0] = "mutated"

	assert.False(t, s.Board()[0][0].Filled)
	assert.NotEqual(t, 9, s.Hand()[0].Matrix[0][0])
	assert.Equal(t, "clean", s.State().OwnedThemes[0])
}
