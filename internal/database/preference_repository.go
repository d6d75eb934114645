package database

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// PreferenceRepository はユーザーごとのキー・値の設定（ベストスコア・通貨・所持アイテム・選択中のアイテム）を扱います。
type PreferenceRepository interface {
	// LoadPreferences はユーザーの保存済みの値をすべて返します。記録がなければ空のマップです
	LoadPreferences(ctx context.Context, userID string) (map[string]string, error)

	// SavePreference は1つの値を保存します（既存の値は上書き）
	SavePreference(ctx context.Context, userID, key, value string) error
}

type preferenceRepositoryImpl struct {
	db *sql.DB
}

// NewPreferenceRepository はPreferenceRepositoryの新しいインスタンスを作成します。
func NewPreferenceRepository(db *sql.DB) PreferenceRepository {
	return &preferenceRepositoryImpl{db: db}
}

func (r *preferenceRepositoryImpl) LoadPreferences(ctx context.Context, userID string) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT pref_key, pref_value FROM user_preferences WHERE user_id = $1", userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザー設定の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("ユーザー設定のスキャンに失敗しました: %w", err)
		}
		values[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ユーザー設定の取得中にエラーが発生しました: %w", err)
	}
	return values, nil
}

func (r *preferenceRepositoryImpl) SavePreference(ctx context.Context, userID, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_preferences (user_id, pref_key, pref_value, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, pref_key)
		DO UPDATE SET pref_value = EXCLUDED.pref_value, updated_at = EXCLUDED.updated_at`,
		userID, key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("ユーザー設定 %s の保存に失敗しました: %w", key, err)
	}
	return nil
}

// PreferenceSink は1人のユーザーの値を PreferenceRepository に書き込みます。
// ゲームエンジンの Persister として使います。Persist はキューに積むだけで待たず、
// 書き込みは専用のゴルーチンが行います。同じキーの未書き込みの値は最後の値だけが残ります。
// 書き込みの失敗はログに残すだけでエンジンには返しません。
type PreferenceSink struct {
	repo    PreferenceRepository
	userID  string
	timeout time.Duration

	mu      sync.Mutex
	pending map[string]string
	order   []string // 未書き込みのキー（最初に積まれた順）
	closed  bool

	wake chan struct{}
	done chan struct{}
	wg   sync.WaitGroup
}

// NewPreferenceSink は userID の値を repo に書き込む PreferenceSink を返し、書き込み用のゴルーチンを開始します。
// 使い終わったら Close を呼んでください。
func NewPreferenceSink(repo PreferenceRepository, userID string) *PreferenceSink {
	p := &PreferenceSink{
		repo:    repo,
		userID:  userID,
		timeout: 2 * time.Second,
		pending: make(map[string]string),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	p.wg.Add(1)
	go p.run()
	return p
}

// Persist は key の値を書き込みキューに積みます。Close の後は何もしません。
func (p *PreferenceSink) Persist(key, value string) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	if _, ok := p.pending[key]; !ok {
		p.order = append(p.order, key)
	}
	p.pending[key] = value
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default: // すでに起こしてある
	}
}

// Close はキューに残っている値をすべて書き込んでからゴルーチンを止めます。2回目以降は何もしません。
func (p *PreferenceSink) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.done)
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *PreferenceSink) run() {
	defer p.wg.Done()
	for {
		select {
		case <-p.wake:
			p.flush()
		case <-p.done:
			p.flush()
			return
		}
	}
}

// flush はキューが空になるまで1件ずつ書き込みます。
func (p *PreferenceSink) flush() {
	for {
		p.mu.Lock()
		if len(p.order) == 0 {
			p.mu.Unlock()
			return
		}
		key := p.order[0]
		p.order = p.order[1:]
		value := p.pending[key]
		delete(p.pending, key)
		p.mu.Unlock()

		p.write(key, value)
	}
}

func (p *PreferenceSink) write(key, value string) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if err := p.repo.SavePreference(ctx, p.userID, key, value); err != nil {
		log.Error().Str("component", "PreferenceSink").Err(err).Str("user", p.userID).Str("key", key).Msg("failed to persist preference")
	}
}
