package blockblast

import (
	"github.com/rs/zerolog/log"

	"github.com/progate-hackathon-strawberry-flavor/BLOCKBLAST-backend/internal/models/blockblast"
)

// ストアの購入処理。
// 所持済みのアイテムは選択するだけで通貨は減りません。未所持なら価格以上の通貨が必要で、
// 購入すると所持リストに加えてそのまま選択します。ゲームオーバー中でも購入できます。

// BuyTheme はテーマを購入または選択し、新しいパレットで手札を配り直します。
func (s *Session) BuyTheme(id string) bool {
	// パーフェクトクリア待ちならテーマが切り替わるので、選択の前に適用しておく
	s.settle()
	theme, ok := blockblast.FindTheme(id)
	if !ok {
		return false
	}
	if !containsString(s.ownedThemes, id) {
		if !s.spend(theme.Cost) {
			return false
		}
		s.ownedThemes = append(s.ownedThemes, id)
		s.persist(KeyOwnedThemes, encodeList(s.ownedThemes))
		log.Debug().Str("theme", id).Int("cost", theme.Cost).Msg("テーマを購入しました")
	}

	s.themeID = id
	s.persist(KeyThemeID, id)
	if !s.gameOver {
		s.RefillShapes()
	}
	return true
}

// BuySkin はブロックスキンを購入または選択します。
func (s *Session) BuySkin(id string) bool {
	skin, ok := blockblast.FindSkin(id)
	if !ok {
		return false
	}
	if !containsString(s.ownedSkins, id) {
		if !s.spend(skin.Cost) {
			return false
		}
		s.ownedSkins = append(s.ownedSkins, id)
		s.persist(KeyOwnedSkins, encodeList(s.ownedSkins))
	}
	s.skinID = id
	s.persist(KeySkinID, id)
	return true
}

// BuySoundPack はサウンドパックを購入または選択します。
func (s *Session) BuySoundPack(id string) bool {
	pack, ok := blockblast.FindSoundPack(id)
	if !ok {
		return false
	}
	if !containsString(s.ownedSoundPacks, id) {
		if !s.spend(pack.Cost) {
			return false
		}
		s.ownedSoundPacks = append(s.ownedSoundPacks, id)
		s.persist(KeyOwnedSounds, encodeList(s.ownedSoundPacks))
	}
	s.soundPackID = id
	s.persist(KeySoundID, id)
	return true
}

// BuyGrid はグリッドサイズを購入または選択します。サイズが変わるとゲームはリセットされます。
func (s *Session) BuyGrid(size blockblast.GridSize) bool {
	option, ok := blockblast.FindGridOption(size)
	if !ok {
		return false
	}
	if !containsGrid(s.ownedGrids, size) {
		if !s.spend(option.Cost) {
			return false
		}
		s.ownedGrids = append(s.ownedGrids, size)
		s.persist(KeyOwnedGrids, encodeList(s.ownedGrids))
	}
	return s.SetGridSize(size)
}

// SetGridSize は所持しているグリッドサイズに切り替えて新しいゲームを始めます。
func (s *Session) SetGridSize(size blockblast.GridSize) bool {
	if !size.Valid() || !containsGrid(s.ownedGrids, size) {
		return false
	}
	s.gridSize = size
	s.persist(KeyGridSize, encodeInt(int(size)))
	s.ResetGame()
	return true
}

// spend は通貨が足りれば cost を引いて true を返します。
func (s *Session) spend(cost int) bool {
	if s.currency < cost {
		return false
	}
	s.addCurrency(-cost)
	return true
}
