package service

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"stazhbot/internal/models"
)

// ---------- Генерация токенов и ключей ----------

// 128 случайных бит, нормализованных в 32 hex-символа в нижнем регистре.
func newSecret() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}

// Токен сессии, гарантированно не совпадающий ни с одним из хранимых.
// Коллизия астрономически маловероятна, но проверка обязана существовать.
func NewUniqueToken(tx *gorm.DB) (string, error) {
	for {
		token := newSecret()
		var count int64
		if err := tx.Model(&models.Session{}).Where("token = ?", token).Count(&count).Error; err != nil {
			return "", fmt.Errorf("проверка уникальности токена: %w", err)
		}
		if count == 0 {
			return token, nil
		}
	}
}

// То же самое для ключей доступа: проверяется по таблице ключей.
func NewUniqueAccessKey(tx *gorm.DB) (string, error) {
	for {
		key := newSecret()
		var count int64
		if err := tx.Model(&models.Key{}).Where("access_key = ?", key).Count(&count).Error; err != nil {
			return "", fmt.Errorf("проверка уникальности ключа: %w", err)
		}
		if count == 0 {
			return key, nil
		}
	}
}

// ---------- Вход / выход ----------

type LoginResult struct {
	Token        string
	IsFirstLogin bool
	// Актуальный ключ доступа: при первом входе старый ключ заменяется
	// новым, и вернуться по старому уже нельзя.
	AccessKey   string
	AccountType models.AccountType
	AccountID   uint
}

// Вход по ключу доступа. Старая сессия аккаунта отзывается, при первом
// входе ключ меняется на свежий. Всё — в одной транзакции, чтобы не было
// окна, в котором у аккаунта ноль или две сессии.
func (s *Service) Login(externalUserID int64, accessKey string) (LoginResult, error) {
	var result LoginResult

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var key models.Key
		if err := tx.Where("access_key = ?", accessKey).First(&key).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrKeyNotFound
			}
			return fmt.Errorf("поиск ключа: %w", err)
		}

		var account models.Account
		if err := tx.First(&account, key.AccountID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// ключ без аккаунта — считаем его несуществующим
				return ErrKeyNotFound
			}
			return fmt.Errorf("поиск аккаунта: %w", err)
		}

		// отзыв предыдущей сессии
		if err := tx.Where("key_id = ?", key.ID).Delete(&models.Session{}).Error; err != nil {
			return fmt.Errorf("удаление старой сессии: %w", err)
		}

		result.IsFirstLogin = key.IsFirstLogIn
		if key.IsFirstLogIn {
			// одноразовое приглашение: выдаём новый ключ, старый сгорает
			fresh, err := NewUniqueAccessKey(tx)
			if err != nil {
				return err
			}
			key.AccessKey = fresh
			key.IsFirstLogIn = false
			if err := tx.Save(&key).Error; err != nil {
				return fmt.Errorf("ротация ключа: %w", err)
			}
		}

		token, err := NewUniqueToken(tx)
		if err != nil {
			return err
		}
		session := models.Session{
			KeyID:          key.ID,
			Token:          token,
			ExternalUserID: externalUserID,
		}
		if err := tx.Create(&session).Error; err != nil {
			return fmt.Errorf("создание сессии: %w", err)
		}

		result.Token = token
		result.AccessKey = key.AccessKey
		result.AccountType = account.Type
		result.AccountID = account.ID
		return nil
	})
	if err != nil {
		return LoginResult{}, err
	}

	s.log.WithFields(logrus.Fields{
		"account_id": result.AccountID,
		"type":       result.AccountType,
		"first":      result.IsFirstLogin,
	}).Info("вход выполнен")
	return result, nil
}

// Проверяет токен и возвращает тройку (аккаунт, ключ, сессия).
// Пустой, неизвестный или осиротевший токен — ErrInvalidToken.
func (s *Service) Authenticate(token string) (models.Account, models.Key, models.Session, error) {
	var (
		account models.Account
		key     models.Key
		session models.Session
	)
	if token == "" {
		return account, key, session, ErrInvalidToken
	}

	if err := s.db.Where("token = ?", token).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return account, key, session, ErrInvalidToken
		}
		return account, key, session, fmt.Errorf("поиск сессии: %w", err)
	}
	if err := s.db.First(&key, session.KeyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return account, key, session, ErrInvalidToken
		}
		return account, key, session, fmt.Errorf("поиск ключа: %w", err)
	}
	if err := s.db.First(&account, key.AccountID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return account, key, session, ErrInvalidToken
		}
		return account, key, session, fmt.Errorf("поиск аккаунта: %w", err)
	}
	return account, key, session, nil
}

// Удаляет сессию по токену.
func (s *Service) Logout(token string) error {
	if token == "" {
		return ErrInvalidToken
	}
	res := s.db.Where("token = ?", token).Delete(&models.Session{})
	if res.Error != nil {
		return fmt.Errorf("удаление сессии: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrInvalidToken
	}
	return nil
}
