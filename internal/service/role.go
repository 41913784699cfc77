package service

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"stazhbot/internal/models"
)

// Администрирование ролей — только для админа. Роль связывает сотрудников
// со стажировками: сотрудник достаёт до стажировки через любую свою роль.

func (s *Service) requireAdmin(actorID uint) error {
	actor, err := getAccountTx(s.db, actorID)
	if err != nil {
		return mapAccountErr(err)
	}
	if actor.Type != models.AccountAdmin {
		return ErrAccessDenied
	}
	return nil
}

func (s *Service) CreateRole(actorID uint, name string) (models.Role, error) {
	if err := s.requireAdmin(actorID); err != nil {
		return models.Role{}, err
	}
	name = strings.TrimSpace(name)
	if err := validateName("name", name); err != nil {
		return models.Role{}, err
	}

	var count int64
	if err := s.db.Model(&models.Role{}).Where("name = ?", name).Count(&count).Error; err != nil {
		return models.Role{}, fmt.Errorf("проверка роли: %w", err)
	}
	if count > 0 {
		return models.Role{}, ErrRoleAlreadyExists
	}

	role := models.Role{Name: name}
	if err := s.db.Create(&role).Error; err != nil {
		return models.Role{}, fmt.Errorf("создание роли: %w", err)
	}
	return role, nil
}

func (s *Service) ListRoles(actorID uint) ([]models.Role, error) {
	if err := s.requireAdmin(actorID); err != nil {
		return nil, err
	}
	var roles []models.Role
	if err := s.db.Order("id").Find(&roles).Error; err != nil {
		return nil, fmt.Errorf("список ролей: %w", err)
	}
	return roles, nil
}

// Удаляет роль и все её связи с аккаунтами и стажировками.
func (s *Service) DeleteRole(actorID, roleID uint) error {
	if err := s.requireAdmin(actorID); err != nil {
		return err
	}
	role, err := getRoleTx(s.db, roleID)
	if err != nil {
		return err
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&role).Association("Accounts").Clear(); err != nil {
			return fmt.Errorf("отвязка аккаунтов: %w", err)
		}
		if err := tx.Model(&role).Association("Trainings").Clear(); err != nil {
			return fmt.Errorf("отвязка стажировок: %w", err)
		}
		if err := tx.Delete(&role).Error; err != nil {
			return fmt.Errorf("удаление роли: %w", err)
		}
		return nil
	})
}

// Назначает роль сотруднику. Роли бывают только у сотрудников.
func (s *Service) AssignRoleToAccount(actorID, roleID, accountID uint) error {
	if err := s.requireAdmin(actorID); err != nil {
		return err
	}
	role, err := getRoleTx(s.db, roleID)
	if err != nil {
		return err
	}
	target, err := getAccountTx(s.db, accountID)
	if err != nil {
		return err
	}
	if target.Type != models.AccountEmployee {
		return newValidationError("account_id", "роли назначаются только сотрудникам")
	}
	if err := s.db.Model(&target).Association("Roles").Append(&role); err != nil {
		return fmt.Errorf("назначение роли: %w", err)
	}
	return nil
}

// Привязывает стажировку к роли.
func (s *Service) AssignTrainingToRole(actorID, roleID, trainingID uint) error {
	if err := s.requireAdmin(actorID); err != nil {
		return err
	}
	role, err := getRoleTx(s.db, roleID)
	if err != nil {
		return err
	}
	training, err := getTrainingTx(s.db, trainingID)
	if err != nil {
		return err
	}
	if err := s.db.Model(&role).Association("Trainings").Append(&training); err != nil {
		return fmt.Errorf("привязка стажировки: %w", err)
	}
	return nil
}
