package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"stazhbot/internal/models"
)

// ---------- Создание ----------

type CreateTrainingParams struct {
	Name         string
	StartContent []models.ContentItem
	// Роль, к которой привязывается стажировка. Для сотрудника с одной
	// ролью можно не указывать — возьмётся она; с несколькими — обязательна.
	RoleID *uint
}

func (s *Service) CreateTraining(actorID uint, p CreateTrainingParams) (models.Training, error) {
	actor, err := getAccountTx(s.db, actorID)
	if err != nil {
		return models.Training{}, mapAccountErr(err)
	}

	p.Name = strings.TrimSpace(p.Name)
	if err := validateName("name", p.Name); err != nil {
		return models.Training{}, err
	}

	var roleID *uint
	switch actor.Type {
	case models.AccountAdmin:
		roleID = p.RoleID

	case models.AccountEmployee:
		var roles []models.Role
		if err := s.db.Model(&actor).Association("Roles").Find(&roles); err != nil {
			return models.Training{}, fmt.Errorf("роли сотрудника: %w", err)
		}
		switch {
		case len(roles) == 0:
			// сотруднику без ролей некуда привязать стажировку
			return models.Training{}, ErrAccessDenied
		case len(roles) == 1:
			roleID = &roles[0].ID
		default:
			if p.RoleID == nil {
				return models.Training{}, newValidationError("role_id", "у вас несколько ролей, укажите одну")
			}
			for i := range roles {
				if roles[i].ID == *p.RoleID {
					roleID = p.RoleID
					break
				}
			}
			if roleID == nil {
				return models.Training{}, ErrAccessDenied
			}
		}

	default:
		return models.Training{}, ErrAccessDenied
	}

	startContent, err := models.EncodeContentItems(p.StartContent)
	if err != nil {
		return models.Training{}, newValidationError("start_content", "не удалось сериализовать")
	}

	var training models.Training
	err = s.db.Transaction(func(tx *gorm.DB) error {
		training = models.Training{
			Name:         p.Name,
			StartContent: startContent,
		}
		if err := tx.Create(&training).Error; err != nil {
			return fmt.Errorf("создание стажировки: %w", err)
		}
		if roleID != nil {
			role, err := getRoleTx(tx, *roleID)
			if err != nil {
				return err
			}
			if err := tx.Model(&role).Association("Trainings").Append(&training); err != nil {
				return fmt.Errorf("привязка к роли: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return models.Training{}, err
	}

	s.log.WithFields(logrus.Fields{
		"training_id": training.ID,
		"actor_id":    actorID,
	}).Info("создана стажировка")
	return training, nil
}

// ---------- Мьютекс изменений ----------

// Менять стажировку (название, уровни, удаление) можно только пока она
// не запущена и в ней нет стажёров. Порядок проверок фиксированный.
func mutationGuardTx(tx *gorm.DB, training models.Training) error {
	if training.IsActive() {
		return ErrTrainingIsActive
	}
	var students int64
	err := tx.Model(&models.Account{}).
		Where("type = ? AND training_id = ?", models.AccountStudent, training.ID).
		Count(&students).Error
	if err != nil {
		return fmt.Errorf("подсчёт стажёров: %w", err)
	}
	if students > 0 {
		return ErrTrainingHasStudents
	}
	return nil
}

// ---------- Изменение и удаление ----------

func (s *Service) RenameTraining(actorID, trainingID uint, name string) (models.Training, error) {
	name = strings.TrimSpace(name)
	if err := validateName("name", name); err != nil {
		return models.Training{}, err
	}
	if err := mapAccountErr(s.CanModifyTraining(actorID, trainingID)); err != nil {
		return models.Training{}, err
	}
	training, err := getTrainingTx(s.db, trainingID)
	if err != nil {
		return models.Training{}, err
	}
	if err := mutationGuardTx(s.db, training); err != nil {
		return models.Training{}, err
	}
	training.Name = name
	if err := s.db.Save(&training).Error; err != nil {
		return models.Training{}, fmt.Errorf("сохранение стажировки: %w", err)
	}
	return training, nil
}

// Удаляет стажировку со всеми уровнями, ответами, стажёрами и связями ролей.
func (s *Service) DeleteTraining(actorID, trainingID uint) error {
	if err := mapAccountErr(s.CanModifyTraining(actorID, trainingID)); err != nil {
		return err
	}
	training, err := getTrainingTx(s.db, trainingID)
	if err != nil {
		return err
	}
	if err := mutationGuardTx(s.db, training); err != nil {
		return err
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := deleteTrainingStudentsTx(tx, training.ID); err != nil {
			return err
		}
		if err := tx.Where("level_id IN (?)",
			tx.Model(&models.Level{}).Select("id").Where("training_id = ?", training.ID),
		).Delete(&models.LevelAnswer{}).Error; err != nil {
			return fmt.Errorf("удаление ответов: %w", err)
		}
		if err := tx.Where("training_id = ?", training.ID).Delete(&models.Level{}).Error; err != nil {
			return fmt.Errorf("удаление уровней: %w", err)
		}
		if err := tx.Model(&training).Association("Roles").Clear(); err != nil {
			return fmt.Errorf("отвязка ролей: %w", err)
		}
		if err := tx.Delete(&training).Error; err != nil {
			return fmt.Errorf("удаление стажировки: %w", err)
		}
		return nil
	})
}

func deleteTrainingStudentsTx(tx *gorm.DB, trainingID uint) error {
	var students []models.Account
	err := tx.Where("type = ? AND training_id = ?", models.AccountStudent, trainingID).
		Find(&students).Error
	if err != nil {
		return fmt.Errorf("поиск стажёров: %w", err)
	}
	for _, student := range students {
		if err := deleteAccountTx(tx, student); err != nil {
			return err
		}
	}
	return nil
}

// ---------- Запуск и остановка ----------

// Запускает стажировку: нужен хотя бы один уровень, текущее состояние —
// «не запущена». Прежние стажёры удаляются — набор начинается заново.
func (s *Service) StartTraining(actorID, trainingID uint) (models.Training, error) {
	if err := mapAccountErr(s.CanModifyTraining(actorID, trainingID)); err != nil {
		return models.Training{}, err
	}
	var training models.Training
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		training, err = getTrainingTx(tx, trainingID)
		if err != nil {
			return err
		}
		var levels int64
		if err := tx.Model(&models.Level{}).Where("training_id = ?", trainingID).Count(&levels).Error; err != nil {
			return fmt.Errorf("подсчёт уровней: %w", err)
		}
		if levels == 0 {
			return ErrTrainingIsEmpty
		}
		if training.IsActive() {
			return ErrTrainingAlreadyInThisState
		}
		if err := deleteTrainingStudentsTx(tx, trainingID); err != nil {
			return err
		}
		now := time.Now()
		training.StartedAt = &now
		training.EndedAt = nil
		if err := tx.Save(&training).Error; err != nil {
			return fmt.Errorf("сохранение стажировки: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.Training{}, err
	}

	s.log.WithField("training_id", trainingID).Info("стажировка запущена")
	return training, nil
}

func (s *Service) StopTraining(actorID, trainingID uint) (models.Training, error) {
	if err := mapAccountErr(s.CanModifyTraining(actorID, trainingID)); err != nil {
		return models.Training{}, err
	}
	var training models.Training
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		training, err = getTrainingTx(tx, trainingID)
		if err != nil {
			return err
		}
		if !training.IsActive() {
			return ErrTrainingAlreadyInThisState
		}
		now := time.Now()
		training.EndedAt = &now
		if err := tx.Save(&training).Error; err != nil {
			return fmt.Errorf("сохранение стажировки: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.Training{}, err
	}

	s.log.WithField("training_id", trainingID).Info("стажировка остановлена")
	return training, nil
}

// ---------- Чтение ----------

func (s *Service) GetTraining(actorID, trainingID uint) (models.Training, error) {
	if err := mapAccountErr(s.CanViewTraining(actorID, trainingID)); err != nil {
		return models.Training{}, err
	}
	return getTrainingTx(s.db, trainingID)
}

// Список стажировок, видимых аккаунту: админу — все, сотруднику — через
// роли, стажёру — только его собственная.
func (s *Service) ListTrainings(actorID uint) ([]models.Training, error) {
	actor, err := getAccountTx(s.db, actorID)
	if err != nil {
		return nil, mapAccountErr(err)
	}

	var trainings []models.Training
	switch actor.Type {
	case models.AccountAdmin:
		err = s.db.Order("id").Find(&trainings).Error

	case models.AccountEmployee:
		err = s.db.
			Joins("JOIN role_trainings ON role_trainings.training_id = trainings.id").
			Joins("JOIN account_roles ON account_roles.role_id = role_trainings.role_id").
			Where("account_roles.account_id = ?", actor.ID).
			Distinct().
			Order("trainings.id").
			Find(&trainings).Error

	case models.AccountStudent:
		if actor.TrainingID == nil {
			return nil, nil
		}
		err = s.db.Where("id = ?", *actor.TrainingID).Find(&trainings).Error

	default:
		return nil, ErrAccessDenied
	}
	if err != nil {
		return nil, fmt.Errorf("список стажировок: %w", err)
	}
	return trainings, nil
}
