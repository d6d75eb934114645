package blockblast

import (
	"encoding/json"
	"strconv"
	"sync"

	"github.com/progate-hackathon-strawberry-flavor/BLOCKBLAST-backend/internal/models/blockblast"
)

// 永続化キー。値はすべて文字列で、リストは JSON 配列としてエンコードします。
const (
	KeyHighScore   = "best"
	KeyCurrency    = "currency"
	KeyOwnedThemes = "owned_themes"
	KeyOwnedSkins  = "owned_skins"
	KeyOwnedGrids  = "owned_grids"
	KeyOwnedSounds = "owned_sounds"
	KeyThemeID     = "theme_id"
	KeySkinID      = "skin_id"
	KeySoundID     = "sound_id"
	KeyGridSize    = "grid_size"
)

// 初期値
const (
	DefaultCurrency    = 100
	DefaultThemeID     = "clean"
	DefaultSkinID      = "classic"
	DefaultSoundPackID = "classic"
	DefaultGridSize    = blockblast.GridClassic
)

// Persister はセッションが変更した値をキー単位で受け取ります。
// 書き込みは fire-and-forget で、失敗はエンジンに返しません。
type Persister interface {
	Persist(key, value string)
}

// Snapshot はセッション開始時に読み込む永続化済みの値です。
type Snapshot struct {
	HighScore       int                   `json:"highScore"`
	Currency        int                   `json:"currency"`
	OwnedThemes     []string              `json:"ownedThemes"`
	OwnedSkins      []string              `json:"ownedSkins"`
	OwnedGrids      []blockblast.GridSize `json:"ownedGrids"`
	OwnedSoundPacks []string              `json:"ownedSoundPacks"`
	ThemeID         string                `json:"themeId"`
	SkinID          string                `json:"skinId"`
	SoundPackID     string                `json:"soundPackId"`
	GridSize        blockblast.GridSize   `json:"gridSize"`
}

// DefaultSnapshot は初回プレイ時の状態を返します。
func DefaultSnapshot() Snapshot {
	return Snapshot{
		HighScore:       0,
		Currency:        DefaultCurrency,
		OwnedThemes:     []string{"clean", "ocean"},
		OwnedSkins:      []string{DefaultSkinID},
		OwnedGrids:      []blockblast.GridSize{DefaultGridSize},
		OwnedSoundPacks: []string{DefaultSoundPackID},
		ThemeID:         DefaultThemeID,
		SkinID:          DefaultSkinID,
		SoundPackID:     DefaultSoundPackID,
		GridSize:        DefaultGridSize,
	}
}

// SnapshotFromValues はキーと値のマップから Snapshot を復元します。
// 欠けている値や壊れている値は初期値になり、所持していないものが選択されていれば初期値に戻します。
func SnapshotFromValues(values map[string]string) Snapshot {
	snap := DefaultSnapshot()

	if n, ok := atoi(values[KeyHighScore]); ok && n >= 0 {
		snap.HighScore = n
	}
	if n, ok := atoi(values[KeyCurrency]); ok && n >= 0 {
		snap.Currency = n
	}
	decodeList(values[KeyOwnedThemes], &snap.OwnedThemes)
	decodeList(values[KeyOwnedSkins], &snap.OwnedSkins)
	decodeList(values[KeyOwnedGrids], &snap.OwnedGrids)
	decodeList(values[KeyOwnedSounds], &snap.OwnedSoundPacks)
	if v := values[KeyThemeID]; v != "" {
		snap.ThemeID = v
	}
	if v := values[KeySkinID]; v != "" {
		snap.SkinID = v
	}
	if v := values[KeySoundID]; v != "" {
		snap.SoundPackID = v
	}
	if n, ok := atoi(values[KeyGridSize]); ok {
		snap.GridSize = blockblast.GridSize(n)
	}

	return snap.normalized()
}

// normalized は所持リストが空なら初期値で埋め、選択中のアイテムが所持リストになければ初期値に戻します。
func (s Snapshot) normalized() Snapshot {
	def := DefaultSnapshot()
	if s.Currency < 0 {
		s.Currency = 0
	}
	if len(s.OwnedThemes) == 0 {
		s.OwnedThemes = def.OwnedThemes
	}
	if len(s.OwnedSkins) == 0 {
		s.OwnedSkins = def.OwnedSkins
	}
	if len(s.OwnedGrids) == 0 {
		s.OwnedGrids = def.OwnedGrids
	}
	if len(s.OwnedSoundPacks) == 0 {
		s.OwnedSoundPacks = def.OwnedSoundPacks
	}
	if !containsString(s.OwnedThemes, s.ThemeID) {
		s.ThemeID = s.OwnedThemes[0]
	}
	if !containsString(s.OwnedSkins, s.SkinID) {
		s.SkinID = s.OwnedSkins[0]
	}
	if !containsString(s.OwnedSoundPacks, s.SoundPackID) {
		s.SoundPackID = s.OwnedSoundPacks[0]
	}
	if !s.GridSize.Valid() || !containsGrid(s.OwnedGrids, s.GridSize) {
		s.GridSize = DefaultGridSize
		if !containsGrid(s.OwnedGrids, DefaultGridSize) {
			s.OwnedGrids = append(s.OwnedGrids, DefaultGridSize)
		}
	}
	return s
}

// MemoryPersister は値をメモリ上のマップに保持する Persister です。ゲストプレイとテストで使います。
type MemoryPersister struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemoryPersister は空の MemoryPersister を返します。
func NewMemoryPersister() *MemoryPersister {
	return &MemoryPersister{values: make(map[string]string)}
}

func (m *MemoryPersister) Persist(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
}

// Values は保存された値のコピーを返します。
func (m *MemoryPersister) Values() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out
}

func encodeInt(n int) string {
	return strconv.Itoa(n)
}

func encodeList(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func decodeList(raw string, out interface{}) {
	if raw == "" {
		return
	}
	// 壊れた値は無視して初期値のままにする
	_ = json.Unmarshal([]byte(raw), out)
}

func atoi(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func containsGrid(list []blockblast.GridSize, v blockblast.GridSize) bool {
	for _, g := range list {
		if g == v {
			return true
		}
	}
	return false
}
