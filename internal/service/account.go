package service

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"stazhbot/internal/models"
)

// ---------- Валидация ----------

func validateName(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return newValidationError(field, "не может быть пустым")
	}
	return nil
}

func validateEmail(email *string) error {
	if email == nil || *email == "" {
		return nil
	}
	if _, err := mail.ParseAddress(*email); err != nil {
		return newValidationError("email", "некорректный адрес")
	}
	return nil
}

// ---------- Создание аккаунтов ----------

type CreateEmployeeParams struct {
	FirstName  string
	LastName   *string
	Patronymic *string
	Email      *string
	RoleIDs    []uint
}

// Создаёт сотрудника вместе с ключом доступа (атомарно). Только админ.
// Возвращает аккаунт и сгенерированный ключ — его показывают один раз.
func (s *Service) CreateEmployee(actorID uint, p CreateEmployeeParams) (models.Account, string, error) {
	actor, err := getAccountTx(s.db, actorID)
	if err != nil {
		return models.Account{}, "", mapAccountErr(err)
	}
	if actor.Type != models.AccountAdmin {
		return models.Account{}, "", ErrAccessDenied
	}
	if err := validateName("first_name", p.FirstName); err != nil {
		return models.Account{}, "", err
	}
	if err := validateEmail(p.Email); err != nil {
		return models.Account{}, "", err
	}

	var account models.Account
	var accessKey string
	err = s.db.Transaction(func(tx *gorm.DB) error {
		account = models.Account{
			Type:       models.AccountEmployee,
			FirstName:  strings.TrimSpace(p.FirstName),
			LastName:   p.LastName,
			Patronymic: p.Patronymic,
			Email:      p.Email,
		}
		if err := tx.Create(&account).Error; err != nil {
			return fmt.Errorf("создание аккаунта: %w", err)
		}
		for _, roleID := range p.RoleIDs {
			role, err := getRoleTx(tx, roleID)
			if err != nil {
				return err
			}
			if err := tx.Model(&account).Association("Roles").Append(&role); err != nil {
				return fmt.Errorf("назначение роли: %w", err)
			}
		}
		key, err := createKeyTx(tx, account.ID)
		if err != nil {
			return err
		}
		accessKey = key.AccessKey
		return nil
	})
	if err != nil {
		return models.Account{}, "", err
	}

	s.log.WithField("account_id", account.ID).Info("создан сотрудник")
	return account, accessKey, nil
}

type CreateStudentParams struct {
	FirstName  string
	LastName   *string
	Patronymic *string
	TrainingID uint
}

// Создаёт стажёра, привязанного ровно к одной стажировке. Доступно админу
// и сотруднику, чьи роли достают до этой стажировки.
func (s *Service) CreateStudent(actorID uint, p CreateStudentParams) (models.Account, string, error) {
	actor, err := getAccountTx(s.db, actorID)
	if err != nil {
		return models.Account{}, "", mapAccountErr(err)
	}
	if err := s.canAccessTrainingTx(s.db, actor, p.TrainingID, false); err != nil {
		return models.Account{}, "", err
	}
	if err := validateName("first_name", p.FirstName); err != nil {
		return models.Account{}, "", err
	}

	var account models.Account
	var accessKey string
	err = s.db.Transaction(func(tx *gorm.DB) error {
		trainingID := p.TrainingID
		account = models.Account{
			Type:       models.AccountStudent,
			FirstName:  strings.TrimSpace(p.FirstName),
			LastName:   p.LastName,
			Patronymic: p.Patronymic,
			TrainingID: &trainingID,
		}
		if err := tx.Create(&account).Error; err != nil {
			return fmt.Errorf("создание аккаунта: %w", err)
		}
		key, err := createKeyTx(tx, account.ID)
		if err != nil {
			return err
		}
		accessKey = key.AccessKey
		return nil
	})
	if err != nil {
		return models.Account{}, "", err
	}

	s.log.WithFields(logrus.Fields{
		"account_id":  account.ID,
		"training_id": p.TrainingID,
	}).Info("создан стажёр")
	return account, accessKey, nil
}

func createKeyTx(tx *gorm.DB, accountID uint) (models.Key, error) {
	accessKey, err := NewUniqueAccessKey(tx)
	if err != nil {
		return models.Key{}, err
	}
	key := models.Key{
		AccessKey:    accessKey,
		IsFirstLogIn: true,
		AccountID:    accountID,
	}
	if err := tx.Create(&key).Error; err != nil {
		return models.Key{}, fmt.Errorf("создание ключа: %w", err)
	}
	return key, nil
}

// ---------- Удаление ----------

// Удаляет аккаунт со всем, что на нём висит. Только админ; удалить
// самого админа нельзя.
func (s *Service) DeleteAccount(actorID, accountID uint) error {
	actor, err := getAccountTx(s.db, actorID)
	if err != nil {
		return mapAccountErr(err)
	}
	if actor.Type != models.AccountAdmin {
		return ErrAccessDenied
	}
	target, err := getAccountTx(s.db, accountID)
	if err != nil {
		return err
	}
	if target.Type == models.AccountAdmin {
		return ErrAccessDenied
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		return deleteAccountTx(tx, target)
	})
}

// Каскад владения: аккаунт → ключ → сессия, плюс ответы и связи с ролями.
func deleteAccountTx(tx *gorm.DB, account models.Account) error {
	var key models.Key
	err := tx.Where("account_id = ?", account.ID).First(&key).Error
	if err == nil {
		if err := tx.Where("key_id = ?", key.ID).Delete(&models.Session{}).Error; err != nil {
			return fmt.Errorf("удаление сессии: %w", err)
		}
		if err := tx.Delete(&key).Error; err != nil {
			return fmt.Errorf("удаление ключа: %w", err)
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("поиск ключа: %w", err)
	}
	if err := tx.Where("account_id = ?", account.ID).Delete(&models.LevelAnswer{}).Error; err != nil {
		return fmt.Errorf("удаление ответов: %w", err)
	}
	if err := tx.Model(&account).Association("Roles").Clear(); err != nil {
		return fmt.Errorf("отвязка ролей: %w", err)
	}
	if err := tx.Delete(&account).Error; err != nil {
		return fmt.Errorf("удаление аккаунта: %w", err)
	}
	return nil
}

// ---------- Списки и представление ----------

func (s *Service) ListEmployees(actorID uint) ([]models.Account, error) {
	actor, err := getAccountTx(s.db, actorID)
	if err != nil {
		return nil, mapAccountErr(err)
	}
	if actor.Type != models.AccountAdmin {
		return nil, ErrAccessDenied
	}
	var employees []models.Account
	err = s.db.Preload("Roles").
		Where("type = ?", models.AccountEmployee).
		Order("id").
		Find(&employees).Error
	if err != nil {
		return nil, fmt.Errorf("список сотрудников: %w", err)
	}
	return employees, nil
}

// Список стажёров стажировки; доступ — как на просмотр стажировки,
// но стажёрам чужие аккаунты не показываем.
func (s *Service) ListStudents(actorID, trainingID uint) ([]models.Account, error) {
	actor, err := getAccountTx(s.db, actorID)
	if err != nil {
		return nil, mapAccountErr(err)
	}
	if err := s.canAccessTrainingTx(s.db, actor, trainingID, false); err != nil {
		return nil, err
	}
	var students []models.Account
	err = s.db.Where("type = ? AND training_id = ?", models.AccountStudent, trainingID).
		Order("id").
		Find(&students).Error
	if err != nil {
		return nil, fmt.Errorf("список стажёров: %w", err)
	}
	return students, nil
}

// Представление аккаунта зависит от его типа: у сотрудника — роли,
// у стажёра — стажировка и ответы, у админа — только базовые поля.
type AccountView struct {
	Account  models.Account
	Roles    []models.Role
	Training *models.Training
	Answers  []models.LevelAnswer
}

func (s *Service) GetAccountView(accountID uint) (AccountView, error) {
	account, err := getAccountTx(s.db, accountID)
	if err != nil {
		return AccountView{}, mapAccountErr(err)
	}
	view := AccountView{Account: account}

	switch account.Type {
	case models.AccountAdmin:
		return view, nil

	case models.AccountEmployee:
		if err := s.db.Model(&account).Association("Roles").Find(&view.Roles); err != nil {
			return AccountView{}, fmt.Errorf("роли сотрудника: %w", err)
		}
		return view, nil

	case models.AccountStudent:
		if account.TrainingID != nil {
			training, err := getTrainingTx(s.db, *account.TrainingID)
			if err == nil {
				view.Training = &training
			} else if !errors.Is(err, ErrTrainingNotFound) {
				return AccountView{}, err
			}
		}
		err := s.db.Where("account_id = ?", account.ID).
			Order("created_at").
			Find(&view.Answers).Error
		if err != nil {
			return AccountView{}, fmt.Errorf("ответы стажёра: %w", err)
		}
		return view, nil

	default:
		return AccountView{}, fmt.Errorf("неизвестный тип аккаунта %q", account.Type)
	}
}

// Создаёт единственного админа при первом запуске. Сгенерированный ключ
// доступа печатается в лог — это единственный способ войти первый раз.
func (s *Service) SeedAdmin(name, email string) error {
	var count int64
	if err := s.db.Model(&models.Account{}).Where("type = ?", models.AccountAdmin).Count(&count).Error; err != nil {
		return fmt.Errorf("проверка админа: %w", err)
	}
	if count > 0 {
		return nil
	}

	var accessKey string
	err := s.db.Transaction(func(tx *gorm.DB) error {
		admin := models.Account{
			Type:      models.AccountAdmin,
			FirstName: name,
		}
		if email != "" {
			admin.Email = &email
		}
		if err := tx.Create(&admin).Error; err != nil {
			return fmt.Errorf("создание админа: %w", err)
		}
		key, err := createKeyTx(tx, admin.ID)
		if err != nil {
			return err
		}
		accessKey = key.AccessKey
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Infof("создан администратор, ключ доступа: %s", accessKey)
	return nil
}
