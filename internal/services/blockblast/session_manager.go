package blockblast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/progate-hackathon-strawberry-flavor/BLOCKBLAST-backend/internal/database"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrForbidden       = errors.New("session belongs to another user")
)

const (
	DefaultTickInterval = 50 * time.Millisecond

	readLimit    = 1024
	pongWait     = 300 * time.Second
	pingInterval = 60 * time.Second
	writeWait    = 10 * time.Second
	dbTimeout    = 5 * time.Second
)

// Client はWebSocket接続を持つ単一のクライアントを表します。
type Client struct {
	SessionID string          // このクライアントが操作するセッションのID
	UserID    string          // このクライアントに紐づくユーザーのID
	Conn      *websocket.Conn // クライアントとの実際のWebSocketコネクション
	Send      chan []byte     // クライアントへメッセージを送信するためのバッファ付きチャネル
	closed    bool
	mu        sync.Mutex
}

// SafeSend は安全にチャネルにメッセージを送信します（closedチェック付き）
func (c *Client) SafeSend(message []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.Send <- message:
		return true
	default:
		return false // チャネルがフル
	}
}

// SafeClose は安全にチャネルを閉じます
func (c *Client) SafeClose() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		close(c.Send)
		c.closed = true
	}
}

// GameSession は1人のプレイヤーのセッションと、まだ送信していないイベントを保持します。
type GameSession struct {
	ID        string
	UserID    string
	Session   *Session
	CreatedAt time.Time

	events         []Event
	resultRecorded bool
	closePersister func() // 設定の書き込みを止める（残りは書き込む）。nil なら何もしない
	mu             sync.Mutex
}

// SessionMessage はクライアントへ送るメッセージです。前回送信してから発生したイベントを含みます。
type SessionMessage struct {
	SessionID string  `json:"session_id"`
	State     State   `json:"state"`
	Events    []Event `json:"events"`
}

// PlayerInputEvent はどのセッションへの入力かを含むプレイヤー入力です。
type PlayerInputEvent struct {
	SessionID string
	UserID    string
	Input     PlayerInput
}

// ManagerConfig は SessionManager の設定です。
type ManagerConfig struct {
	ClearDelay   time.Duration
	RefillDelay  time.Duration
	TickInterval time.Duration
}

// SessionManager はゲームセッションとWebSocketクライアント接続の全体を管理します。
// Run ループが唯一のセッション操作者で、入力・遅延処理・送信はすべてこのゴルーチンで行います。
type SessionManager struct {
	sessions    map[string]*GameSession // sessionID -> GameSession
	clients     map[string]*Client      // sessionID -> Client
	register    chan *Client
	unregister  chan *Client
	inputEvents chan PlayerInputEvent
	quit        chan struct{}
	mu          sync.RWMutex

	prefs   database.PreferenceRepository
	results database.ResultRepository
	config  ManagerConfig
}

// NewSessionManager は新しい SessionManager を作成し、メインイベントループをバックグラウンドで開始します。
//
// Parameters:
//
//	prefs   : 設定・通貨・所持アイテムの保存先（nil ならメモリのみ）
//	results : ゲーム結果の保存先（nil なら保存しない）
//	config  : 遅延とティック間隔
//
// Returns:
//
//	*SessionManager: 初期化されたセッションマネージャーのポインタ
func NewSessionManager(prefs database.PreferenceRepository, results database.ResultRepository, config ManagerConfig) *SessionManager {
	if config.TickInterval <= 0 {
		config.TickInterval = DefaultTickInterval
	}
	sm := &SessionManager{
		sessions:    make(map[string]*GameSession),
		clients:     make(map[string]*Client),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		inputEvents: make(chan PlayerInputEvent, 512),
		quit:        make(chan struct{}),
		prefs:       prefs,
		results:     results,
		config:      config,
	}
	go sm.Run()
	return sm
}

// Run は SessionManager のメインイベントループです。
// クライアントの登録/解除、プレイヤー入力の処理、遅延処理のティック、状態の送信を行います。
func (sm *SessionManager) Run() {
	ticker := time.NewTicker(sm.config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case client := <-sm.register:
			sm.mu.Lock()
			if existing, ok := sm.clients[client.SessionID]; ok && existing != client {
				existing.SafeClose()
			}
			sm.clients[client.SessionID] = client
			gs := sm.sessions[client.SessionID]
			sm.mu.Unlock()
			log.Info().Str("component", "SessionManager").Str("user", client.UserID).Str("session", client.SessionID).Msg("client registered")

			if gs != nil {
				gs.mu.Lock()
				sm.send(gs)
				gs.mu.Unlock()
			}

		case client := <-sm.unregister:
			sm.mu.Lock()
			registered, ok := sm.clients[client.SessionID]
			if ok && registered == client {
				registered.SafeClose()
				delete(sm.clients, client.SessionID)
			}
			sm.mu.Unlock()
			if ok && registered == client {
				log.Info().Str("component", "SessionManager").Str("user", client.UserID).Str("session", client.SessionID).Msg("client unregistered")
				sm.EndSession(client.SessionID)
			}

		case event := <-sm.inputEvents:
			sm.handleInput(event)

		case now := <-ticker.C:
			sm.mu.RLock()
			active := make([]*GameSession, 0, len(sm.sessions))
			for _, gs := range sm.sessions {
				active = append(active, gs)
			}
			sm.mu.RUnlock()

			for _, gs := range active {
				gs.mu.Lock()
				if gs.Session.Advance(now) {
					sm.afterChange(gs)
				}
				gs.mu.Unlock()
			}

		case <-sm.quit:
			log.Info().Str("component", "SessionManager").Msg("シャットダウンシグナルを受信、メインループを終了します")
			return
		}
	}
}

func (sm *SessionManager) handleInput(event PlayerInputEvent) {
	sm.mu.RLock()
	gs, ok := sm.sessions[event.SessionID]
	sm.mu.RUnlock()
	if !ok {
		log.Warn().Str("component", "SessionManager").Str("session", event.SessionID).Msg("input for unknown session")
		return
	}
	if gs.UserID != event.UserID {
		log.Warn().Str("component", "SessionManager").Str("session", event.SessionID).Str("user", event.UserID).Msg("input from another user")
		return
	}

	gs.mu.Lock()
	defer gs.mu.Unlock()

	changed, err := ApplyPlayerInput(gs.Session, event.Input)
	if err != nil {
		log.Warn().Str("component", "SessionManager").Err(err).Str("action", event.Input.Action).Msg("input rejected")
		return
	}
	// 状態が変わらなくても、EventReturn などのイベントは送る
	if changed || len(gs.events) > 0 {
		sm.afterChange(gs)
	}
}

// afterChange はゲーム結果の記録を確認してからクライアントに状態を送ります。gs.mu を保持して呼びます。
func (sm *SessionManager) afterChange(gs *GameSession) {
	if !gs.Session.IsGameOver() {
		gs.resultRecorded = false
	} else if !gs.resultRecorded {
		gs.resultRecorded = true
		sm.recordResult(gs.UserID, gs.Session.Score())
	}
	sm.send(gs)
}

// send は現在の状態と未送信のイベントをクライアントに送ります。gs.mu を保持して呼びます。
func (sm *SessionManager) send(gs *GameSession) {
	msg := SessionMessage{SessionID: gs.ID, State: gs.Session.State(), Events: gs.events}
	if msg.Events == nil {
		msg.Events = []Event{}
	}
	gs.events = nil

	sm.mu.RLock()
	client, ok := sm.clients[gs.ID]
	sm.mu.RUnlock()
	if !ok {
		return
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		log.Error().Str("component", "SessionManager").Err(err).Str("session", gs.ID).Msg("failed to marshal state")
		return
	}
	if !client.SafeSend(payload) {
		log.Warn().Str("component", "SessionManager").Str("session", gs.ID).Msg("failed to send to client (channel closed or full)")
	}
}

// recordResult はゲーム結果を非同期で保存します。スコア 0 のゲームは保存しません。
func (sm *SessionManager) recordResult(userID string, score int) {
	if sm.results == nil || score <= 0 {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
		defer cancel()
		if _, err := sm.results.CreateResult(ctx, userID, score); err != nil {
			log.Error().Str("component", "SessionManager").Err(err).Str("user", userID).Msg("ゲーム結果の保存に失敗しました")
			return
		}
		log.Info().Str("component", "SessionManager").Str("user", userID).Int("score", score).Msg("game result recorded")
	}()
}

// CreateSession は保存済みの設定を読み込んで新しいゲームセッションを作成します。
//
// Parameters:
//
//	ctx    : 設定読み込みのコンテキスト
//	userID : プレイヤーのユーザーID
//
// Returns:
//
//	string: 作成されたセッションのID
//	error : 設定の読み込みに失敗した場合
func (sm *SessionManager) CreateSession(ctx context.Context, userID string) (string, error) {
	gs := &GameSession{
		ID:        uuid.New().String(),
		UserID:    userID,
		CreatedAt: time.Now(),
	}

	snap := DefaultSnapshot()
	var persister Persister = NewMemoryPersister()
	if sm.prefs != nil {
		values, err := sm.prefs.LoadPreferences(ctx, userID)
		if err != nil {
			return "", fmt.Errorf("failed to load preferences: %w", err)
		}
		snap = SnapshotFromValues(values)
		// 書き込みは sink のゴルーチンで行い、Run ループを止めない
		sink := database.NewPreferenceSink(sm.prefs, userID)
		persister = sink
		gs.closePersister = sink.Close
	}

	gs.Session = NewSession(SessionOptions{
		Snapshot:    &snap,
		Persister:   persister,
		Listener:    func(e Event) { gs.events = append(gs.events, e) },
		ClearDelay:  sm.config.ClearDelay,
		RefillDelay: sm.config.RefillDelay,
	})

	sm.mu.Lock()
	sm.sessions[gs.ID] = gs
	sm.mu.Unlock()

	log.Info().Str("component", "SessionManager").Str("session", gs.ID).Str("user", userID).Msg("created new game session")
	return gs.ID, nil
}

// GetSessionState はセッションの現在の状態を返します。
func (sm *SessionManager) GetSessionState(sessionID, userID string) (State, error) {
	gs, err := sm.lookup(sessionID, userID)
	if err != nil {
		return State{}, err
	}
	gs.mu.Lock()
	defer gs.mu.Unlock()
	return gs.Session.State(), nil
}

func (sm *SessionManager) lookup(sessionID, userID string) (*GameSession, error) {
	sm.mu.RLock()
	gs, ok := sm.sessions[sessionID]
	sm.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	if gs.UserID != userID {
		return nil, ErrForbidden
	}
	return gs, nil
}

// SubmitInput はプレイヤー入力をメインループのキューに積みます。キューが満杯なら false を返します。
func (sm *SessionManager) SubmitInput(sessionID, userID string, input PlayerInput) bool {
	select {
	case sm.inputEvents <- PlayerInputEvent{SessionID: sessionID, UserID: userID, Input: input}:
		return true
	default:
		log.Warn().Str("component", "SessionManager").Str("user", userID).Msg("input events channel is full, dropping message")
		return false
	}
}

// RegisterClient は新しいWebSocketクライアントを SessionManager に登録します。
//
// Parameters:
//
//	sessionID : クライアントが操作するセッションのID
//	userID    : クライアントのユーザーID
//	conn      : WebSocketコネクション
//
// Returns:
//
//	error: セッションが存在しない、または他のユーザーのセッションの場合
func (sm *SessionManager) RegisterClient(sessionID, userID string, conn *websocket.Conn) error {
	if _, err := sm.lookup(sessionID, userID); err != nil {
		return err
	}

	client := &Client{
		SessionID: sessionID,
		UserID:    userID,
		Conn:      conn,
		Send:      make(chan []byte, 256),
	}

	go sm.readPump(client)
	go client.writePump()

	select {
	case sm.register <- client:
	case <-sm.quit:
	}
	return nil
}

// readPump はクライアントからのWebSocketメッセージを読み込み、inputEvents チャネルに送信します。
func (sm *SessionManager) readPump(client *Client) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("component", "SessionManager").Interface("panic", r).Str("user", client.UserID).Msg("panic in readPump")
		}
		select {
		case sm.unregister <- client:
		case <-sm.quit:
		}
		if err := client.Conn.Close(); err != nil {
			log.Debug().Str("component", "SessionManager").Err(err).Str("user", client.UserID).Msg("error closing websocket connection")
		}
	}()

	client.Conn.SetReadLimit(readLimit)
	client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	client.Conn.SetPongHandler(func(string) error {
		client.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := client.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Warn().Str("component", "SessionManager").Err(err).Str("user", client.UserID).Msg("websocket unexpected close error")
			}
			return
		}
		if len(message) == 0 {
			continue
		}

		input, err := ParsePlayerInput(message)
		if err != nil {
			log.Warn().Str("component", "SessionManager").Err(err).Str("user", client.UserID).Msg("failed to unmarshal input message")
			continue
		}
		sm.SubmitInput(client.SessionID, client.UserID, input)
	}
}

// ParsePlayerInput はクライアントから届いた JSON を PlayerInput にデコードします。
func ParsePlayerInput(message []byte) (PlayerInput, error) {
	var input PlayerInput
	if err := json.Unmarshal(message, &input); err != nil {
		return PlayerInput{}, fmt.Errorf("invalid input message: %w", err)
	}
	if input.Action == "" {
		return PlayerInput{}, fmt.Errorf("invalid input message: %w", ErrUnknownAction)
	}
	return input, nil
}

// writePump は Client の Send チャネルからのメッセージをWebSocketコネクションに書き込みます。
func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// マネージャーがチャネルを閉じた
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Warn().Str("component", "Client").Err(err).Str("user", c.UserID).Msg("error writing message")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// EndSession はセッションを終了し、未記録のスコアがあれば保存してから削除します。
func (sm *SessionManager) EndSession(sessionID string) {
	sm.mu.Lock()
	gs, ok := sm.sessions[sessionID]
	if !ok {
		sm.mu.Unlock()
		return
	}
	delete(sm.sessions, sessionID)
	if client, ok := sm.clients[sessionID]; ok {
		client.SafeClose()
		delete(sm.clients, sessionID)
	}
	sm.mu.Unlock()

	gs.mu.Lock()
	if !gs.resultRecorded {
		gs.resultRecorded = true
		sm.recordResult(gs.UserID, gs.Session.Score())
	}
	if gs.closePersister != nil {
		go gs.closePersister()
	}
	gs.mu.Unlock()
	log.Info().Str("component", "SessionManager").Str("session", sessionID).Msg("game session ended")
}

// Shutdown は SessionManager を安全にシャットダウンします。
func (sm *SessionManager) Shutdown() {
	close(sm.quit)

	sm.mu.Lock()
	for _, client := range sm.clients {
		if client.Conn != nil {
			client.Conn.Close()
		}
		client.SafeClose()
	}
	sessions := sm.sessions
	sm.clients = make(map[string]*Client)
	sm.sessions = make(map[string]*GameSession)
	sm.mu.Unlock()

	// 残っている設定の書き込みを終えてから戻る
	for _, gs := range sessions {
		if gs.closePersister != nil {
			gs.closePersister()
		}
	}
	log.Info().Str("component", "SessionManager").Msg("シャットダウン完了")
}
