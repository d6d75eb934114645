package handlers

import (
	"fmt"
	"net/http"

	"github.com/progate-hackathon-strawberry-flavor/BLOCKBLAST-backend/internal/models/blockblast"
	game "github.com/progate-hackathon-strawberry-flavor/BLOCKBLAST-backend/internal/services/blockblast"
)

// PublicHandlerFunc は疎通確認用の公開エンドポイントです。
// GET /api/public
func PublicHandlerFunc(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintf(w, "Hello, this is public content! (From /api/public)")
}

// CatalogResponse はストアの商品とパワーアップの価格です。
type CatalogResponse struct {
	Themes      []blockblast.ColorTheme `json:"themes"`
	Skins       []blockblast.BlockSkin  `json:"skins"`
	Grids       []blockblast.GridOption `json:"grids"`
	SoundPacks  []blockblast.SoundPack  `json:"soundPacks"`
	RotateCost  int                     `json:"rotateCost"`
	RefreshCost int                     `json:"refreshCost"`
	BombCost    int                     `json:"bombCost"`
}

// GetCatalog はストアのカタログを返します。
// GET /api/catalog
func GetCatalog(w http.ResponseWriter, r *http.Request) {
	WriteJSONResponse(w, http.StatusOK, CatalogResponse{
		Themes:      blockblast.Themes,
		Skins:       blockblast.BlockSkins,
		Grids:       blockblast.GridOptions,
		SoundPacks:  blockblast.SoundPacks,
		RotateCost:  game.RotateCost,
		RefreshCost: game.RefreshCost,
		BombCost:    game.BombCost,
	})
}
