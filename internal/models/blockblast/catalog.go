package blockblast

// ColorTheme はピースの色パレットを持つテーマです。
// 見た目（背景スタイルなど）はクライアント側の責務で、ここでは色と価格だけを扱います。
type ColorTheme struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Colors []string `json:"colors"`
	IsDark bool     `json:"isDark"`
	Cost   int      `json:"cost"`
}

// BlockSkin はブロックの描画スタイルです。
type BlockSkin struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Cost int    `json:"cost"`
}

// GridOption はストアで販売するボードサイズです。
type GridOption struct {
	Size GridSize `json:"size"`
	Name string   `json:"name"`
	Cost int      `json:"cost"`
}

// SoundPack は効果音セットです。
type SoundPack struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Cost        int    `json:"cost"`
}

var Themes = []ColorTheme{
	{ID: "clean", Name: "Clean White", Colors: []string{"#64748b", "#0ea5e9", "#475569", "#0284c7"}, Cost: 0},
	{ID: "ocean", Name: "Ocean Breeze", Colors: []string{"#64748b", "#22c55e", "#475569", "#16a34a"}, Cost: 0},
	{ID: "dark", Name: "Dark Mode", Colors: []string{"#ef4444", "#3b82f6", "#22c55e", "#eab308"}, IsDark: true, Cost: 500},
	{ID: "forest", Name: "Forest", Colors: []string{"#a7f3d0", "#6ee7b7", "#34d399", "#10b981"}, IsDark: true, Cost: 1000},
	{ID: "sunset", Name: "Sunset", Colors: []string{"#fdba74", "#fb923c", "#f97316", "#ea580c"}, IsDark: true, Cost: 1500},
	{ID: "lavender", Name: "Lavender", Colors: []string{"#d8b4fe", "#c084fc", "#a855f7", "#9333ea"}, Cost: 2000},
	{ID: "candy", Name: "Candy", Colors: []string{"#f9a8d4", "#f472b6", "#ec4899", "#db2777"}, Cost: 2500},
	{ID: "mint", Name: "Mint", Colors: []string{"#6ee7b7", "#34d399", "#10b981", "#059669"}, Cost: 3000},
	{ID: "royal", Name: "Royal", Colors: []string{"#fde047", "#facc15", "#eab308", "#ca8a04"}, IsDark: true, Cost: 3500},
	{ID: "charcoal", Name: "Charcoal", Colors: []string{"#71717a", "#52525b", "#3f3f46", "#27272a"}, IsDark: true, Cost: 4000},
	{ID: "matrix", Name: "Matrix", Colors: []string{"#4ade80", "#22c55e", "#16a34a", "#15803d"}, IsDark: true, Cost: 5000},
	{ID: "cyberpunk", Name: "Cyberpunk", Colors: []string{"#22d3ee", "#e879f9", "#f472b6", "#818cf8"}, IsDark: true, Cost: 6000},
	{ID: "coffee", Name: "Coffee", Colors: []string{"#d6d3d1", "#a8a29e", "#78716c", "#57534e"}, IsDark: true, Cost: 7500},
	{ID: "vampire", Name: "Vampire", Colors: []string{"#f87171", "#ef4444", "#dc2626", "#b91c1c"}, IsDark: true, Cost: 8000},
	{ID: "ice", Name: "Ice", Colors: []string{"#cffafe", "#a5f3fc", "#67e8f9", "#22d3ee"}, Cost: 9000},
	{ID: "mono", Name: "Monochrome", Colors: []string{"#000000", "#111111", "#222222", "#333333"}, Cost: 10000},
}

var BlockSkins = []BlockSkin{
	{ID: "classic", Name: "Classic", Cost: 0},
	{ID: "tetris", Name: "Tetris", Cost: 1500},
	{ID: "toy", Name: "Toy Bricks", Cost: 1500},
	{ID: "iron", Name: "Iron Block", Cost: 2500},
}

var GridOptions = []GridOption{
	{Size: GridSmall, Name: "6x6 Small", Cost: 250},
	{Size: GridClassic, Name: "8x8 Classic", Cost: 0},
	{Size: GridLarge, Name: "10x10 Large", Cost: 1000},
	{Size: GridExpert, Name: "12x12 Expert", Cost: 2000},
}

var SoundPacks = []SoundPack{
	{ID: "classic", Name: "Classic Chill", Description: "Relaxing lo-fi beats & soft thuds.", Cost: 0},
	{ID: "wood", Name: "Woodblock", Description: "Organic, snappy wooden textures.", Cost: 750},
	{ID: "bubble", Name: "Bubble Pop", Description: "Fun, soapy popping sounds.", Cost: 750},
	{ID: "glass", Name: "Crystal Glass", Description: "Elegant, high-pitched chimes.", Cost: 750},
	{ID: "mech", Name: "Mechanical", Description: "Clicky, tactile switch sounds.", Cost: 750},
	{ID: "nature", Name: "Nature", Description: "Water drops and organic rustles.", Cost: 750},
	{ID: "retro", Name: "8-Bit Retro", Description: "Old school arcade bleeps.", Cost: 750},
	{ID: "scifi", Name: "Sci-Fi", Description: "Futuristic zaps and lasers.", Cost: 750},
}

// FindTheme は ID に一致するテーマを返します。
func FindTheme(id string) (ColorTheme, bool) {
	for _, t := range Themes {
		if t.ID == id {
			return t, true
		}
	}
	return ColorTheme{}, false
}

// FindSkin は ID に一致するスキンを返します。
func FindSkin(id string) (BlockSkin, bool) {
	for _, s := range BlockSkins {
		if s.ID == id {
			return s, true
		}
	}
	return BlockSkin{}, false
}

// FindGridOption はサイズに一致するグリッドオプションを返します。
func FindGridOption(size GridSize) (GridOption, bool) {
	for _, g := range GridOptions {
		if g.Size == size {
			return g, true
		}
	}
	return GridOption{}, false
}

// FindSoundPack は ID に一致するサウンドパックを返します。
func FindSoundPack(id string) (SoundPack, bool) {
	for _, p := range SoundPacks {
		if p.ID == id {
			return p, true
		}
	}
	return SoundPack{}, false
}
