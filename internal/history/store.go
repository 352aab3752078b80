// Package history はWeb層の操作履歴をJSONファイルに保存する。
//
// 履歴は新しい順に並べて保持し、件数が上限を超えた古いものは捨てる。
// 書き込みは一時ファイルへの書き出しとリネームで行い、途中で失敗しても
// 既存のファイルは壊れない。
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/assetdesk/internal/security"
)

// DefaultLimit は保持する履歴の既定件数。
const DefaultLimit = 500

var (
	// ErrInvalidRecord はsourceまたはentryが欠けていることを示す。
	ErrInvalidRecord = errors.New("history: source and entry are required")
	// ErrCorruptFile は履歴ファイルがJSON配列として読めないことを示す。
	ErrCorruptFile = errors.New("history: file is not a JSON array")
)

// Record は1件の操作履歴。
type Record struct {
	ID      string    `json:"id"`
	Source  string    `json:"source"`
	Entry   any       `json:"entry"`
	ActorID int64     `json:"actor_id,omitempty"`
	When    time.Time `json:"when"`
}

// Config はStoreの設定。
type Config struct {
	Path      string
	Limit     int
	Sanitizer security.TextSanitizer
	// Now はテスト用に差し替えられる時刻関数。nilの場合はtime.Now。
	Now func() time.Time
}

// Store はファイルに保存する履歴ストア。
// 同一プロセス内の読み書きはmuで直列化する。
type Store struct {
	mu        sync.Mutex
	path      string
	limit     int
	sanitizer security.TextSanitizer
	now       func() time.Time
}

// NewStore はStoreを生成する。ファイルは最初の書き込みで作成される。
func NewStore(cfg Config) *Store {
	limit := cfg.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	sanitizer := cfg.Sanitizer
	if sanitizer == nil {
		sanitizer = security.NewTextSanitizer()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Store{
		path:      cfg.Path,
		limit:     limit,
		sanitizer: sanitizer,
		now:       now,
	}
}

// Append は履歴を先頭に追加し、上限を超えた分を削除して保存する。
// sourceとentry内の文字列はサニタイズしてから保存する。
func (s *Store) Append(ctx context.Context, source string, entry any, actorID int64) (*Record, error) {
	source = s.sanitizer.Sanitize(source)
	if source == "" || entry == nil {
		return nil, ErrInvalidRecord
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rec := Record{
		ID:      uuid.NewString(),
		Source:  source,
		Entry:   s.sanitizer.SanitizeValue(entry),
		ActorID: actorID,
		When:    s.now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return nil, err
	}

	records = append([]Record{rec}, records...)
	if len(records) > s.limit {
		records = records[:s.limit]
	}

	if err := s.save(records); err != nil {
		return nil, err
	}

	slog.Info("history recorded",
		slog.String("history_id", rec.ID),
		slog.String("source", rec.Source),
		slog.Int64("actor_id", actorID),
	)
	return &rec, nil
}

// List は履歴を新しい順に返す。sourceが空でない場合はそのsourceのみを返す。
// ファイルが存在しない場合は空のスライスを返す。
func (s *Store) List(ctx context.Context, source string) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	records, err := s.load()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	source = strings.TrimSpace(source)
	if source == "" {
		return records, nil
	}
	filtered := make([]Record, 0, len(records))
	for _, r := range records {
		if r.Source == source {
			filtered = append(filtered, r)
		}
	}
	return filtered, nil
}

// load はファイルから履歴を読み込む。呼び出し側でmuを保持すること。
func (s *Store) load() ([]Record, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history file: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return []Record{}, nil
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptFile, err)
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

// save は一時ファイルに書き出してからリネームする。呼び出し側でmuを保持すること。
func (s *Store) save(records []Record) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".history-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write history: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close history: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace history file: %w", err)
	}
	return nil
}
