package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/progate-hackathon-strawberry-flavor/BLOCKBLAST-backend/internal/api/middleware"
	"github.com/progate-hackathon-strawberry-flavor/BLOCKBLAST-backend/internal/services/blockblast"
)

const (
	authTimeout = 10 * time.Second
	bypassToken = "BYPASS_AUTH"
)

// GameHandler はゲーム関連のHTTPリクエスト（セッション作成、状態取得、WebSocket接続）を処理します。
type GameHandler struct {
	sessionManager *blockblast.SessionManager
	jwtSecret      string
	bypassAuth     bool
	upgrader       websocket.Upgrader
}

// NewGameHandler は新しい GameHandler インスタンスを作成します。
//
// Parameters:
//
//	sm             : セッションマネージャーへのポインタ
//	jwtSecret      : WebSocket の認証メッセージを検証する SUPABASE_JWT_SECRET
//	bypassAuth     : true ならテスト用トークン BYPASS_AUTH を受け付ける
//	allowedOrigins : WebSocket 接続を許可する Origin（空なら制限しない）
//
// Returns:
//
//	*GameHandler: 新しく作成された GameHandler のポインタ
func NewGameHandler(sm *blockblast.SessionManager, jwtSecret string, bypassAuth bool, allowedOrigins []string) *GameHandler {
	return &GameHandler{
		sessionManager: sm,
		jwtSecret:      jwtSecret,
		bypassAuth:     bypassAuth,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if len(allowed) == 0 || origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}

// CreateSession は保存済みの設定で新しいゲームセッションを作成します。
// POST /api/protected/sessions
func (h *GameHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	userID, err := ExtractUserIDFromContext(r)
	if err != nil {
		WriteErrorResponse(w, http.StatusUnauthorized, err.Error())
		return
	}

	sessionID, err := h.sessionManager.CreateSession(r.Context(), userID)
	if err != nil {
		log.Error().Str("component", "GameHandler").Err(err).Str("user", userID).Msg("failed to create session")
		WriteErrorResponse(w, http.StatusInternalServerError, "セッションの作成に失敗しました")
		return
	}

	WriteJSONResponse(w, http.StatusCreated, map[string]string{
		"session_id": sessionID,
		"user_id":    userID,
		"message":    "セッションを作成しました",
	})
}

// GetSessionState はセッションの現在の状態を返します。
// GET /api/protected/sessions/{sessionID}
func (h *GameHandler) GetSessionState(w http.ResponseWriter, r *http.Request) {
	userID, err := ExtractUserIDFromContext(r)
	if err != nil {
		WriteErrorResponse(w, http.StatusUnauthorized, err.Error())
		return
	}
	sessionID := mux.Vars(r)["sessionID"]

	state, err := h.sessionManager.GetSessionState(sessionID, userID)
	switch {
	case errors.Is(err, blockblast.ErrSessionNotFound):
		WriteErrorResponse(w, http.StatusNotFound, "指定されたセッションは見つかりませんでした")
	case errors.Is(err, blockblast.ErrForbidden):
		WriteErrorResponse(w, http.StatusForbidden, "他のユーザーのセッションです")
	case err != nil:
		WriteErrorResponse(w, http.StatusInternalServerError, "セッションの取得に失敗しました")
	default:
		WriteJSONResponse(w, http.StatusOK, state)
	}
}

// authMessage は WebSocket 接続後に最初に送られる認証メッセージです。
type authMessage struct {
	Type   string `json:"type"`
	Token  string `json:"token"`
	UserID string `json:"user_id,omitempty"` // BYPASS_AUTH のときだけ使う
}

// HandleWebSocketConnection はHTTP接続をWebSocketにアップグレードし、
// 最初の認証メッセージでユーザーを確認してからセッションマネージャーに引き渡します。
// GET /api/sessions/{sessionID}/ws
func (h *GameHandler) HandleWebSocketConnection(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionID"]
	if sessionID == "" {
		WriteErrorResponse(w, http.StatusBadRequest, "WebSocket接続にはセッションIDが必要です")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Str("component", "GameHandler").Err(err).Str("session", sessionID).Msg("failed to upgrade to websocket")
		return
	}

	conn.SetReadDeadline(time.Now().Add(authTimeout))
	_, message, err := conn.ReadMessage()
	if err != nil {
		log.Warn().Str("component", "GameHandler").Err(err).Msg("failed to read auth message")
		conn.Close()
		return
	}

	userID, err := h.authenticate(message)
	if err != nil {
		log.Warn().Str("component", "GameHandler").Err(err).Str("session", sessionID).Msg("websocket auth failed")
		conn.WriteJSON(map[string]string{"error": err.Error()})
		conn.Close()
		return
	}
	conn.WriteJSON(map[string]string{"type": "auth_success", "message": "Authentication successful"})
	conn.SetReadDeadline(time.Time{})

	if err := h.sessionManager.RegisterClient(sessionID, userID, conn); err != nil {
		log.Warn().Str("component", "GameHandler").Err(err).Str("session", sessionID).Str("user", userID).Msg("failed to register client")
		conn.WriteJSON(map[string]string{"error": err.Error()})
		conn.Close()
	}
}

// authenticate は認証メッセージを検証してユーザーIDを返します。
func (h *GameHandler) authenticate(message []byte) (string, error) {
	var msg authMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		return "", errors.New("invalid auth message")
	}
	if msg.Type != "auth" {
		return "", errors.New("expected auth message")
	}
	if h.bypassAuth && msg.Token == bypassToken {
		if msg.UserID == "" {
			return "", errors.New("user_id is required with BYPASS_AUTH")
		}
		return msg.UserID, nil
	}
	userID, err := middleware.ParseUserID(msg.Token, h.jwtSecret)
	if err != nil {
		return "", err
	}
	return userID, nil
}
