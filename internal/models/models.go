package models

import (
	"encoding/json"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// ---------- Аккаунты ----------

type AccountType string

const (
	AccountAdmin    AccountType = "admin"
	AccountEmployee AccountType = "employee"
	AccountStudent  AccountType = "student"
)

type Account struct {
	ID          uint        `gorm:"primaryKey"`
	Type        AccountType `gorm:"type:varchar(20);not null;index"`
	Email       *string     `gorm:"size:255"`
	FirstName   string      `gorm:"size:255;not null"`
	LastName    *string     `gorm:"size:255"`
	Patronymic  *string     `gorm:"size:255"`
	TrainingID  *uint       `gorm:"index"` // заполняется только у стажёров
	CompletedAt *time.Time
	CreatedAt   time.Time

	Key     *Key          `gorm:"foreignKey:AccountID"`
	Roles   []Role        `gorm:"many2many:account_roles"`
	Answers []LevelAnswer `gorm:"foreignKey:AccountID"`
}

// ФИО одной строкой, пустые части пропускаются.
func (a Account) FullName() string {
	parts := []string{a.FirstName}
	if a.LastName != nil && *a.LastName != "" {
		parts = append(parts, *a.LastName)
	}
	if a.Patronymic != nil && *a.Patronymic != "" {
		parts = append(parts, *a.Patronymic)
	}
	return strings.Join(parts, " ")
}

// ---------- Ключ доступа и сессия ----------

// Ключ выдаётся вместе с аккаунтом и меняется один раз — при первом входе.
type Key struct {
	ID           uint   `gorm:"primaryKey"`
	AccessKey    string `gorm:"uniqueIndex;size:32;not null"`
	IsFirstLogIn bool   `gorm:"not null;default:true"`
	AccountID    uint   `gorm:"uniqueIndex;not null"`
	CreatedAt    time.Time

	Session *Session `gorm:"foreignKey:KeyID"`
}

// У аккаунта не бывает больше одной сессии: повторный вход удаляет старую.
type Session struct {
	ID             uint   `gorm:"primaryKey"`
	KeyID          uint   `gorm:"uniqueIndex;not null"`
	Token          string `gorm:"uniqueIndex;size:32;not null"`
	ExternalUserID int64  `gorm:"index"`
	CreatedAt      time.Time
}

// ---------- Роли ----------

type Role struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"uniqueIndex;size:255;not null"`
	CreatedAt time.Time

	Accounts  []Account  `gorm:"many2many:account_roles"`
	Trainings []Training `gorm:"many2many:role_trainings"`
}

// ---------- Стажировка ----------

type Training struct {
	ID           uint           `gorm:"primaryKey"`
	Name         string         `gorm:"size:255;not null"`
	StartContent datatypes.JSON `gorm:"type:jsonb"` // приветственные сообщения
	CreatedAt    time.Time
	StartedAt    *time.Time
	EndedAt      *time.Time

	Levels []Level `gorm:"foreignKey:TrainingID"`
	Roles  []Role  `gorm:"many2many:role_trainings"`
}

// Стажировка активна, если запущена и ещё не остановлена.
func (t Training) IsActive() bool {
	return t.StartedAt != nil && t.EndedAt == nil
}

func (t Training) DecodeStartContent() ([]ContentItem, error) {
	if len(t.StartContent) == 0 {
		return nil, nil
	}
	var items []ContentItem
	if err := json.Unmarshal(t.StartContent, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// ---------- Уровни ----------

type LevelType string

const (
	LevelInfo LevelType = "info"
	LevelQuiz LevelType = "quiz"
)

// Уровни стажировки образуют двусвязный список: у головы PreviousLevelID
// пустой, у хвоста пустой NextLevelID. Новые уровни добавляются в хвост.
type Level struct {
	ID              uint           `gorm:"primaryKey"`
	TrainingID      uint           `gorm:"index;not null"`
	PreviousLevelID *uint          `gorm:"index"`
	NextLevelID     *uint          `gorm:"index"`
	Type            LevelType      `gorm:"type:varchar(20);not null"`
	Title           string         `gorm:"size:255;not null"`
	Content         datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt       time.Time

	Answers []LevelAnswer `gorm:"foreignKey:LevelID"`
}

func (l Level) DecodeContent() (LevelContent, error) {
	var content LevelContent
	if len(l.Content) == 0 {
		return content, nil
	}
	err := json.Unmarshal(l.Content, &content)
	return content, err
}

// ---------- Контент уровня ----------

// Один элемент контента: сообщение, которое бот отправит стажёру.
type ContentItem struct {
	Kind   string `json:"kind"` // "text" | "photo" | "video" | "document"
	Text   string `json:"text,omitempty"`
	FileID string `json:"file_id,omitempty"`
}

type QuizOption struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

// Содержимое уровня. Options и CorrectOptionID заполняются только у квизов.
type LevelContent struct {
	Items           []ContentItem `json:"items,omitempty"`
	Options         []QuizOption  `json:"options,omitempty"`
	CorrectOptionID int           `json:"correct_option_id,omitempty"`
}

func (c LevelContent) Encode() (datatypes.JSON, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

func EncodeContentItems(items []ContentItem) (datatypes.JSON, error) {
	if items == nil {
		return nil, nil
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

// ---------- Ответы на уровни ----------

// Ответ сохраняется один раз: составной уникальный индекс не даёт
// записать второй ответ на тот же уровень даже при гонке.
type LevelAnswer struct {
	ID                uint           `gorm:"primaryKey"`
	AccountID         uint           `gorm:"not null;uniqueIndex:idx_level_answer_once"`
	LevelID           uint           `gorm:"not null;uniqueIndex:idx_level_answer_once"`
	SelectedOptionIDs datatypes.JSON `gorm:"type:jsonb"` // только для квизов
	IsCorrect         *bool          // только для квизов
	CreatedAt         time.Time
}

func (a LevelAnswer) DecodeSelectedOptions() ([]int, error) {
	if len(a.SelectedOptionIDs) == 0 {
		return nil, nil
	}
	var ids []int
	if err := json.Unmarshal(a.SelectedOptionIDs, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// Полный список моделей для миграций.
func All() []any {
	return []any{
		&Account{},
		&Key{},
		&Session{},
		&Role{},
		&Training{},
		&Level{},
		&LevelAnswer{},
	}
}
