package service

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"stazhbot/internal/models"
)

// Service — ядро бэкенда: сессии, доступ, стажировки, уровни, прогресс.
// База передаётся явно, никакого глобального состояния.
type Service struct {
	db  *gorm.DB
	log *logrus.Logger
}

func New(db *gorm.DB, log *logrus.Logger) *Service {
	return &Service{db: db, log: log}
}

// Достаёт аккаунт по id. Отсутствие аккаунта — внутреннее состояние
// ErrAccountNotFound, вызывающий код обязан превратить его в ErrInvalidToken
// перед возвратом наружу (см. mapAccountErr).
func getAccountTx(tx *gorm.DB, id uint) (models.Account, error) {
	var account models.Account
	if err := tx.First(&account, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return account, ErrAccountNotFound
		}
		return account, fmt.Errorf("поиск аккаунта: %w", err)
	}
	return account, nil
}

// Превращает внутреннее «аккаунт не найден» в «недействительный токен»:
// если аккаунт инициатора исчез, его сессия считается отозванной.
func mapAccountErr(err error) error {
	if errors.Is(err, ErrAccountNotFound) {
		return ErrInvalidToken
	}
	return err
}

func getTrainingTx(tx *gorm.DB, id uint) (models.Training, error) {
	var training models.Training
	if err := tx.First(&training, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return training, ErrTrainingNotFound
		}
		return training, fmt.Errorf("поиск стажировки: %w", err)
	}
	return training, nil
}

func getLevelTx(tx *gorm.DB, id uint) (models.Level, error) {
	var level models.Level
	if err := tx.First(&level, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return level, ErrLevelNotFound
		}
		return level, fmt.Errorf("поиск уровня: %w", err)
	}
	return level, nil
}

func getRoleTx(tx *gorm.DB, id uint) (models.Role, error) {
	var role models.Role
	if err := tx.First(&role, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return role, ErrRoleNotFound
		}
		return role, fmt.Errorf("поиск роли: %w", err)
	}
	return role, nil
}
