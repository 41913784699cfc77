package service

import (
	"fmt"

	"gorm.io/gorm"

	"stazhbot/internal/models"
)

// Правила доступа к стажировке по трём уровням аккаунтов:
//   - админ видит и меняет всё;
//   - сотрудник — только стажировки, достижимые через его роли;
//   - стажёр видит ровно свою стажировку и не меняет ничего.
//
// Для сотрудников и стажёров «не найдена» и «нет доступа» намеренно
// не различаются, чтобы по ошибке нельзя было узнать о существовании
// чужой стажировки. ErrTrainingNotFound получает только админ.

func (s *Service) CanViewTraining(accountID, trainingID uint) error {
	account, err := getAccountTx(s.db, accountID)
	if err != nil {
		return err
	}
	return s.canAccessTrainingTx(s.db, account, trainingID, true)
}

func (s *Service) CanModifyTraining(accountID, trainingID uint) error {
	account, err := getAccountTx(s.db, accountID)
	if err != nil {
		return err
	}
	return s.canAccessTrainingTx(s.db, account, trainingID, false)
}

func (s *Service) canAccessTrainingTx(tx *gorm.DB, account models.Account, trainingID uint, allowStudent bool) error {
	switch account.Type {
	case models.AccountAdmin:
		var count int64
		if err := tx.Model(&models.Training{}).Where("id = ?", trainingID).Count(&count).Error; err != nil {
			return fmt.Errorf("проверка стажировки: %w", err)
		}
		if count == 0 {
			return ErrTrainingNotFound
		}
		return nil

	case models.AccountEmployee:
		reachable, err := employeeReachesTrainingTx(tx, account.ID, trainingID)
		if err != nil {
			return err
		}
		if !reachable {
			return ErrAccessDenied
		}
		return nil

	case models.AccountStudent:
		if !allowStudent {
			return ErrAccessDenied
		}
		if account.TrainingID != nil && *account.TrainingID == trainingID {
			return nil
		}
		return ErrAccessDenied

	default:
		return ErrAccessDenied
	}
}

// Стажировка достижима для сотрудника, если связана хотя бы с одной из
// его ролей (join account_roles × role_trainings).
func employeeReachesTrainingTx(tx *gorm.DB, accountID, trainingID uint) (bool, error) {
	var count int64
	err := tx.Table("role_trainings").
		Joins("JOIN account_roles ON account_roles.role_id = role_trainings.role_id").
		Where("account_roles.account_id = ? AND role_trainings.training_id = ?", accountID, trainingID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("проверка доступа сотрудника: %w", err)
	}
	return count > 0, nil
}
