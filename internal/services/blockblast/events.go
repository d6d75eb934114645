package blockblast

// EventType はプレゼンテーション層（効果音・アニメーション）へ通知するゲームイベントの種類です。
type EventType string

const (
	EventPickUp       EventType = "pick_up"       // 手札のピースを持ち上げた
	EventDrop         EventType = "drop"          // ピースを置いた
	EventReturn       EventType = "return"        // 置けなかったピースが手札に戻った
	EventLinesCleared EventType = "lines_cleared" // ラインが揃った（Lines にライン数）
	EventError        EventType = "error"         // ゲームオーバーなどのエラー通知
	EventPowerUp      EventType = "power_up"      // パワーアップを使用した
	EventPerfectClear EventType = "perfect_clear" // 盤面をすべて消した（ThemeID に切り替え先）
)

// Event は1つのゲームイベントです。
type Event struct {
	Type    EventType `json:"type"`
	Lines   int       `json:"lines,omitempty"`
	Rows    []int     `json:"rows,omitempty"`
	Cols    []int     `json:"cols,omitempty"`
	ThemeID string    `json:"theme_id,omitempty"`
}

// EventListener はイベントを受け取るコールバックです。Session を操作しているゴルーチン上で同期的に呼ばれます。
type EventListener func(Event)
