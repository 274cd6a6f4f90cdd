// Package session реализует хранение авторизованной сессии в одном файловом слоте.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gokhantonkal0/payda-sub000/internal/model"
)

// Store предоставляет доступ к единственному слоту с сериализованной личностью
// и к отдельному слоту с именем темы оформления.
type Store struct {
	sessionPath string
	themePath   string
}

// NewStore создаёт хранилище сессии с указанными путями слотов.
func NewStore(sessionPath, themePath string) *Store {
	return &Store{
		sessionPath: sessionPath,
		themePath:   themePath,
	}
}

// Load читает сохранённую личность из слота.
// Читает закрыто к отказам: структурно некорректная запись (битый JSON,
// отсутствующий id) приводит к очистке слота и возврату nil вместо ошибки.
func (s *Store) Load() *model.Identity {
	data, err := os.ReadFile(s.sessionPath)
	if err != nil {
		return nil
	}

	var identity model.Identity
	if err := json.Unmarshal(data, &identity); err != nil {
		s.Clear()
		return nil
	}

	if !identity.Valid() {
		s.Clear()
		return nil
	}

	return &identity
}

// Save атомарно перезаписывает слот сериализованной личностью.
func (s *Store) Save(identity *model.Identity) error {
	if !identity.Valid() {
		return errors.New("identity without id cannot be persisted")
	}

	data, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("marshal identity: %w", err)
	}

	tmp := s.sessionPath + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.sessionPath), 0o755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write session slot: %w", err)
	}
	if err := os.Rename(tmp, s.sessionPath); err != nil {
		return fmt.Errorf("replace session slot: %w", err)
	}
	return nil
}

// Clear удаляет слот сессии. Используется при выходе и при обнаружении
// некорректной записи во время загрузки.
func (s *Store) Clear() {
	_ = os.Remove(s.sessionPath)
}

// LoadTheme возвращает сохранённое имя темы либо пустую строку, если слот отсутствует.
func (s *Store) LoadTheme() string {
	data, err := os.ReadFile(s.themePath)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// SaveTheme перезаписывает слот темы.
func (s *Store) SaveTheme(name string) error {
	if err := os.WriteFile(s.themePath, []byte(name), 0o600); err != nil {
		return fmt.Errorf("write theme slot: %w", err)
	}
	return nil
}

// TranslateRole переводит серверную роль в клиентский словарь ролей.
// Функция тотальна: неизвестные роли отображаются в наименее привилегированную
// роль user, повторный перевод собственного результата ничего не меняет.
func TranslateRole(raw string) model.Role {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "merchant", "seller":
		return model.RoleSeller
	case "donor":
		return model.RoleDonor
	case "volunteer":
		return model.RoleVolunteer
	case "user", "beneficiary", "admin":
		return model.RoleUser
	default:
		return model.RoleUser
	}
}
