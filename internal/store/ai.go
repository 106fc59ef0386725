package store

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/tailscale/hujson"
	"go.uber.org/zap"

	"github.com/tinytelemetry/olam/internal/kvstore"
	"github.com/tinytelemetry/olam/internal/model"
)

// AIStore holds the assistant settings and chat transcript.
type AIStore struct {
	Status

	api      model.ChatAPI
	storage  kvstore.Storage
	settings model.AISettings
	messages []model.ChatMessage
}

// NewAIStore returns a store with default settings. storage may be nil, in
// which case settings live only in memory.
func NewAIStore(api model.ChatAPI, storage kvstore.Storage, opts ...Option) *AIStore {
	s := &AIStore{
		api:      api,
		storage:  storage,
		settings: model.DefaultAISettings(),
	}
	s.configure(opts)
	return s
}

func newMessageID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Settings returns the current settings.
func (s *AIStore) Settings() model.AISettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// SetSettings replaces the settings in memory. Call SaveSettings to persist.
func (s *AIStore) SetSettings(settings model.AISettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
}

// LoadSettings overlays the persisted settings onto the defaults. A missing
// key keeps the current settings and malformed content is ignored.
func (s *AIStore) LoadSettings() {
	if s.storage == nil {
		return
	}
	raw, ok, err := s.storage.Get(model.SettingsKey)
	if err != nil {
		s.opts.logger.Debug("read ai settings", zap.Error(err))
		return
	}
	if !ok || raw == "" {
		return
	}
	settings, err := parseSettings(raw)
	if err != nil {
		s.opts.logger.Debug("ignore malformed ai settings", zap.Error(err))
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
}

// parseSettings accepts JSON with comments and trailing commas. Keys are
// overlaid on the defaults one at a time, so a value of the wrong type only
// loses that key.
func parseSettings(raw string) (model.AISettings, error) {
	standardized, err := hujson.Standardize([]byte(raw))
	if err != nil {
		return model.AISettings{}, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(standardized, &fields); err != nil {
		return model.AISettings{}, err
	}
	settings := model.DefaultAISettings()
	for name, value := range fields {
		one, err := json.Marshal(map[string]json.RawMessage{name: value})
		if err != nil {
			continue
		}
		next := settings
		if err := json.Unmarshal(one, &next); err != nil {
			continue
		}
		settings = next
	}
	return settings, nil
}

// SaveSettings persists the current settings.
func (s *AIStore) SaveSettings() error {
	if s.storage == nil {
		return nil
	}
	data, err := json.Marshal(s.Settings())
	if err != nil {
		return fmt.Errorf("store: encode ai settings: %w", err)
	}
	if err := s.storage.Set(model.SettingsKey, string(data)); err != nil {
		return fmt.Errorf("store: save ai settings: %w", err)
	}
	return nil
}

// CanSend reports whether a model and an api key are configured.
func (s *AIStore) CanSend() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return strings.TrimSpace(s.settings.Model) != "" && strings.TrimSpace(s.settings.APIKey) != ""
}

// Messages returns a copy of the transcript.
func (s *AIStore) Messages() []model.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.messages)
}

func (s *AIStore) ResetChat() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
}

func (s *AIStore) PushUser(content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, model.ChatMessage{ID: newMessageID(), Role: model.RoleUser, Content: content})
}

// PushAssistant appends a reply with the SQL and row count the backend ran.
func (s *AIStore) PushAssistant(content, sql string, rowCount *int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pushAssistantLocked(content, sql, rowCount)
}

func (s *AIStore) pushAssistantLocked(content, sql string, rowCount *int) {
	s.messages = append(s.messages, model.ChatMessage{
		ID:       newMessageID(),
		Role:     model.RoleAssistant,
		Content:  content,
		SQL:      sql,
		RowCount: rowCount,
	})
}

// Send posts text with the prior transcript as history. It returns false
// without a request when text is blank or CanSend is false.
func (s *AIStore) Send(ctx context.Context, text string) bool {
	text = strings.TrimSpace(text)
	if text == "" || !s.CanSend() {
		return false
	}

	s.mu.Lock()
	history := make([]model.ChatTurn, 0, len(s.messages))
	for _, m := range s.messages {
		history = append(history, model.ChatTurn{Role: m.Role, Content: m.Content})
	}
	s.messages = append(s.messages, model.ChatMessage{ID: newMessageID(), Role: model.RoleUser, Content: text})
	req := model.ChatRequest{
		ProviderID: s.settings.ProviderID,
		BaseURL:    strings.TrimSpace(s.settings.BaseURL),
		Model:      strings.TrimSpace(s.settings.Model),
		APIKey:     strings.TrimSpace(s.settings.APIKey),
		Message:    text,
		History:    history,
		MaxRows:    s.settings.MaxRows,
	}
	s.beginLocked()
	s.mu.Unlock()
	defer s.end()

	resp, err := s.api.Chat(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.failLocked("ai chat", err, "failed to get a reply")
		return true
	}
	s.pushAssistantLocked(resp.Reply, resp.SQL, resp.RowCount)
	return true
}
