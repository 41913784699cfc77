package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"stazhbot/internal/models"
)

// ---------- Запись ответа ----------

// Сохраняет ответ стажёра на уровень. Только стажёр, только своя
// стажировка, только пока она запущена, только один раз на уровень.
// У квиза сравнивается первый выбранный вариант с правильным; у
// информационного уровня ответ — просто отметка «просмотрено».
func (s *Service) RecordAnswer(actorID, levelID uint, selectedOptionIDs []int) (models.LevelAnswer, error) {
	actor, err := getAccountTx(s.db, actorID)
	if err != nil {
		return models.LevelAnswer{}, mapAccountErr(err)
	}
	if actor.Type != models.AccountStudent {
		return models.LevelAnswer{}, ErrAccessDenied
	}

	level, err := getLevelTx(s.db, levelID)
	if err != nil {
		return models.LevelAnswer{}, err
	}
	if actor.TrainingID == nil || *actor.TrainingID != level.TrainingID {
		return models.LevelAnswer{}, ErrAccessDenied
	}
	training, err := getTrainingTx(s.db, level.TrainingID)
	if err != nil {
		return models.LevelAnswer{}, err
	}
	if !training.IsActive() {
		return models.LevelAnswer{}, ErrTrainingIsNotActive
	}

	var answer models.LevelAnswer
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		err := tx.Model(&models.LevelAnswer{}).
			Where("account_id = ? AND level_id = ?", actor.ID, level.ID).
			Count(&count).Error
		if err != nil {
			return fmt.Errorf("проверка ответа: %w", err)
		}
		if count > 0 {
			return ErrLevelAnswerAlreadyExists
		}

		answer = models.LevelAnswer{
			AccountID: actor.ID,
			LevelID:   level.ID,
		}
		if level.Type == models.LevelQuiz {
			content, err := level.DecodeContent()
			if err != nil {
				return fmt.Errorf("контент уровня %d: %w", level.ID, err)
			}
			// одиночный выбор: сравнивается только первый вариант
			correct := len(selectedOptionIDs) > 0 && selectedOptionIDs[0] == content.CorrectOptionID
			answer.IsCorrect = &correct

			raw, err := json.Marshal(selectedOptionIDs)
			if err != nil {
				return fmt.Errorf("сериализация вариантов: %w", err)
			}
			answer.SelectedOptionIDs = datatypes.JSON(raw)
		}

		if err := tx.Create(&answer).Error; err != nil {
			// страховка от гонки: уникальный индекс (account_id, level_id)
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrLevelAnswerAlreadyExists
			}
			return fmt.Errorf("сохранение ответа: %w", err)
		}

		return markCompletedTx(tx, actor, level.TrainingID)
	})
	if err != nil {
		return models.LevelAnswer{}, err
	}

	s.log.WithFields(logrus.Fields{
		"account_id": actor.ID,
		"level_id":   level.ID,
	}).Info("ответ сохранён")
	return answer, nil
}

// Если стажёр ответил на все уровни своей стажировки, ставим отметку
// о завершении.
func markCompletedTx(tx *gorm.DB, student models.Account, trainingID uint) error {
	var total, answered int64
	if err := tx.Model(&models.Level{}).Where("training_id = ?", trainingID).Count(&total).Error; err != nil {
		return fmt.Errorf("подсчёт уровней: %w", err)
	}
	err := tx.Model(&models.LevelAnswer{}).
		Joins("JOIN levels ON levels.id = level_answers.level_id").
		Where("level_answers.account_id = ? AND levels.training_id = ?", student.ID, trainingID).
		Count(&answered).Error
	if err != nil {
		return fmt.Errorf("подсчёт ответов: %w", err)
	}
	if answered < total || student.CompletedAt != nil {
		return nil
	}
	now := time.Now()
	return tx.Model(&models.Account{}).Where("id = ?", student.ID).
		Update("completed_at", &now).Error
}

// ---------- Прогресс ----------

type ProgressState string

const (
	ProgressStart     ProgressState = "start"
	ProgressLevel     ProgressState = "level"
	ProgressCompleted ProgressState = "completed"
)

type Progress struct {
	State        ProgressState
	CurrentLevel *LevelPosition
	Answers      []models.LevelAnswer
	// Открыт ли стажёру доступ к прохождению: зеркалит активность
	// стажировки. Прогресс остановленной стажировки читается, но
	// отвечать в ней нельзя.
	IsAccess bool
	Total    int
}

// Прогресс стажёра. Без studentID — свой прогресс (только для стажёра);
// с studentID — прогресс чужого стажёра для админа или сотрудника,
// чьи роли достают до его стажировки.
func (s *Service) ComputeProgress(actorID uint, studentID *uint) (Progress, error) {
	actor, err := getAccountTx(s.db, actorID)
	if err != nil {
		return Progress{}, mapAccountErr(err)
	}

	var subject models.Account
	switch {
	case studentID == nil:
		if actor.Type != models.AccountStudent {
			return Progress{}, ErrAccessDenied
		}
		subject = actor

	case actor.ID == *studentID:
		subject = actor

	default:
		subject, err = getAccountTx(s.db, *studentID)
		if err != nil {
			return Progress{}, err
		}
		if subject.Type != models.AccountStudent || subject.TrainingID == nil {
			return Progress{}, newValidationError("student_id", "аккаунт не является стажёром")
		}
		if err := s.canAccessTrainingTx(s.db, actor, *subject.TrainingID, false); err != nil {
			return Progress{}, err
		}
	}

	if subject.Type != models.AccountStudent || subject.TrainingID == nil {
		return Progress{}, ErrAccessDenied
	}

	training, err := getTrainingTx(s.db, *subject.TrainingID)
	if err != nil {
		return Progress{}, err
	}
	all, err := listOrderedTx(s.db, training.ID)
	if err != nil {
		return Progress{}, err
	}

	var answers []models.LevelAnswer
	err = s.db.
		Joins("JOIN levels ON levels.id = level_answers.level_id").
		Where("level_answers.account_id = ? AND levels.training_id = ?", subject.ID, training.ID).
		Order("level_answers.created_at").
		Find(&answers).Error
	if err != nil {
		return Progress{}, fmt.Errorf("загрузка ответов: %w", err)
	}

	answeredIDs := make(map[uint]struct{}, len(answers))
	for _, a := range answers {
		answeredIDs[a.LevelID] = struct{}{}
	}
	remaining := make([]LevelPosition, 0, len(all))
	for _, lp := range all {
		if _, ok := answeredIDs[lp.Level.ID]; !ok {
			remaining = append(remaining, lp)
		}
	}

	progress := Progress{
		Answers:  answers,
		IsAccess: training.IsActive(),
		Total:    len(all),
	}
	switch {
	case len(remaining) == len(all):
		progress.State = ProgressStart
		if len(remaining) > 0 {
			progress.CurrentLevel = &remaining[0]
		}
	case len(remaining) > 0:
		progress.State = ProgressLevel
		progress.CurrentLevel = &remaining[0]
	default:
		progress.State = ProgressCompleted
	}
	return progress, nil
}
