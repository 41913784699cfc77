package service

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"stazhbot/internal/models"
)

// Уровни одной стажировки связаны в двусвязный список через
// previous_level_id / next_level_id. Добавление — всегда в хвост,
// удаление замыкает соседей друг на друга, порядок материализуется
// обходом от головы. Никаких порядковых номеров в базе нет.

// Уровень вместе с его порядковым номером (нумерация с единицы).
type LevelPosition struct {
	Position int
	Level    models.Level
}

// ---------- Валидация ----------

func validateLevelContent(levelType models.LevelType, content models.LevelContent) error {
	switch levelType {
	case models.LevelInfo:
		if len(content.Options) > 0 || content.CorrectOptionID != 0 {
			return newValidationError("content", "у информационного уровня не бывает вариантов ответа")
		}
		return nil

	case models.LevelQuiz:
		if len(content.Options) == 0 {
			return newValidationError("content", "у квиза должен быть хотя бы один вариант ответа")
		}
		for _, opt := range content.Options {
			if opt.ID == content.CorrectOptionID {
				return nil
			}
		}
		return newValidationError("content", "правильный вариант не найден среди вариантов")

	default:
		return newValidationError("type", "неизвестный тип уровня")
	}
}

// ---------- Добавление ----------

// Добавляет уровень в хвост цепочки. Первый уровень создаётся без связей,
// иначе новый уровень цепляется за текущий хвост. Всё в одной транзакции.
func (s *Service) AppendLevel(actorID, trainingID uint, levelType models.LevelType, title string, content models.LevelContent) (models.Level, error) {
	title = strings.TrimSpace(title)
	if err := validateName("title", title); err != nil {
		return models.Level{}, err
	}
	if err := validateLevelContent(levelType, content); err != nil {
		return models.Level{}, err
	}
	if err := mapAccountErr(s.CanModifyTraining(actorID, trainingID)); err != nil {
		return models.Level{}, err
	}

	raw, err := content.Encode()
	if err != nil {
		return models.Level{}, newValidationError("content", "не удалось сериализовать")
	}

	var level models.Level
	err = s.db.Transaction(func(tx *gorm.DB) error {
		training, err := getTrainingTx(tx, trainingID)
		if err != nil {
			return err
		}
		if err := mutationGuardTx(tx, training); err != nil {
			return err
		}

		var tail models.Level
		err = tx.Where("training_id = ? AND next_level_id IS NULL", trainingID).First(&tail).Error
		hasTail := err == nil
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("поиск хвоста: %w", err)
		}

		level = models.Level{
			TrainingID: trainingID,
			Type:       levelType,
			Title:      title,
			Content:    raw,
		}
		if hasTail {
			level.PreviousLevelID = &tail.ID
		}
		if err := tx.Create(&level).Error; err != nil {
			return fmt.Errorf("создание уровня: %w", err)
		}
		if hasTail {
			if err := tx.Model(&tail).Update("next_level_id", level.ID).Error; err != nil {
				return fmt.Errorf("обновление хвоста: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return models.Level{}, err
	}
	return level, nil
}

// ---------- Редактирование ----------

func (s *Service) EditLevel(actorID, levelID uint, title string, content models.LevelContent) (models.Level, error) {
	title = strings.TrimSpace(title)
	if err := validateName("title", title); err != nil {
		return models.Level{}, err
	}
	level, err := getLevelTx(s.db, levelID)
	if err != nil {
		return models.Level{}, err
	}
	if err := validateLevelContent(level.Type, content); err != nil {
		return models.Level{}, err
	}
	if err := mapAccountErr(s.CanModifyTraining(actorID, level.TrainingID)); err != nil {
		return models.Level{}, err
	}
	training, err := getTrainingTx(s.db, level.TrainingID)
	if err != nil {
		return models.Level{}, err
	}
	if err := mutationGuardTx(s.db, training); err != nil {
		return models.Level{}, err
	}

	raw, err := content.Encode()
	if err != nil {
		return models.Level{}, newValidationError("content", "не удалось сериализовать")
	}
	level.Title = title
	level.Content = raw
	if err := s.db.Save(&level).Error; err != nil {
		return models.Level{}, fmt.Errorf("сохранение уровня: %w", err)
	}
	return level, nil
}

// ---------- Удаление ----------

// Удаляет уровень и замыкает цепочку: сосед слева получает ссылку на
// соседа справа и наоборот. Голова, хвост, середина и единственный
// уровень проходят через один и тот же код без особых веток.
func (s *Service) DeleteLevel(actorID, levelID uint) error {
	level, err := getLevelTx(s.db, levelID)
	if err != nil {
		return err
	}
	if err := mapAccountErr(s.CanModifyTraining(actorID, level.TrainingID)); err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		training, err := getTrainingTx(tx, level.TrainingID)
		if err != nil {
			return err
		}
		if err := mutationGuardTx(tx, training); err != nil {
			return err
		}
		// перечитываем внутри транзакции: связи могли поменяться
		current, err := getLevelTx(tx, levelID)
		if err != nil {
			return err
		}

		if current.NextLevelID != nil {
			err = tx.Model(&models.Level{}).
				Where("id = ?", *current.NextLevelID).
				Update("previous_level_id", current.PreviousLevelID).Error
			if err != nil {
				return fmt.Errorf("перелинковка следующего: %w", err)
			}
		}
		if current.PreviousLevelID != nil {
			err = tx.Model(&models.Level{}).
				Where("id = ?", *current.PreviousLevelID).
				Update("next_level_id", current.NextLevelID).Error
			if err != nil {
				return fmt.Errorf("перелинковка предыдущего: %w", err)
			}
		}
		if err := tx.Where("level_id = ?", current.ID).Delete(&models.LevelAnswer{}).Error; err != nil {
			return fmt.Errorf("удаление ответов: %w", err)
		}
		if err := tx.Delete(&current).Error; err != nil {
			return fmt.Errorf("удаление уровня: %w", err)
		}
		return nil
	})
}

// ---------- Порядок ----------

// Публичный список уровней: доступ как на просмотр стажировки.
func (s *Service) ListLevels(actorID, trainingID uint) ([]LevelPosition, error) {
	if err := mapAccountErr(s.CanViewTraining(actorID, trainingID)); err != nil {
		return nil, err
	}
	return listOrderedTx(s.db, trainingID)
}

// Материализует порядок: находит голову (previous_level_id пустой) и идёт
// по next_level_id до конца. Пустая цепочка — валидный пустой результат;
// разорванная или зацикленная — ошибка хранилища.
func listOrderedTx(tx *gorm.DB, trainingID uint) ([]LevelPosition, error) {
	var count int64
	if err := tx.Model(&models.Training{}).Where("id = ?", trainingID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("проверка стажировки: %w", err)
	}
	if count == 0 {
		return nil, ErrTrainingNotFound
	}

	var levels []models.Level
	if err := tx.Where("training_id = ?", trainingID).Find(&levels).Error; err != nil {
		return nil, fmt.Errorf("загрузка уровней: %w", err)
	}
	if len(levels) == 0 {
		return []LevelPosition{}, nil
	}

	byID := make(map[uint]models.Level, len(levels))
	var head *models.Level
	for i := range levels {
		byID[levels[i].ID] = levels[i]
		if levels[i].PreviousLevelID == nil {
			if head != nil {
				return nil, fmt.Errorf("цепочка уровней стажировки %d разорвана: две головы", trainingID)
			}
			head = &levels[i]
		}
	}
	if head == nil {
		return nil, fmt.Errorf("цепочка уровней стажировки %d зациклена: нет головы", trainingID)
	}

	ordered := make([]LevelPosition, 0, len(levels))
	current := *head
	for {
		ordered = append(ordered, LevelPosition{Position: len(ordered) + 1, Level: current})
		if len(ordered) > len(levels) {
			return nil, fmt.Errorf("цепочка уровней стажировки %d зациклена", trainingID)
		}
		if current.NextLevelID == nil {
			break
		}
		next, ok := byID[*current.NextLevelID]
		if !ok {
			return nil, fmt.Errorf("цепочка уровней стажировки %d разорвана: нет уровня %d", trainingID, *current.NextLevelID)
		}
		current = next
	}
	if len(ordered) != len(levels) {
		return nil, fmt.Errorf("цепочка уровней стажировки %d разорвана: обход покрыл %d из %d", trainingID, len(ordered), len(levels))
	}
	return ordered, nil
}
