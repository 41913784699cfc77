package service

import (
	"fmt"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"stazhbot/internal/models"
)

// Поднимает сервис на чистой sqlite в памяти. Имя базы уникально для
// каждого теста, чтобы тесты не делили состояние.
func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))

	log := logrus.New()
	log.SetOutput(io.Discard)

	return New(db, log), db
}

// Сервис с уже созданным админом.
func newTestServiceWithAdmin(t *testing.T) (*Service, *gorm.DB, models.Account) {
	t.Helper()

	svc, db := newTestService(t)
	require.NoError(t, svc.SeedAdmin("Администратор", ""))

	var admin models.Account
	require.NoError(t, db.Where("type = ?", models.AccountAdmin).First(&admin).Error)
	return svc, db, admin
}

func accessKeyOf(t *testing.T, db *gorm.DB, accountID uint) string {
	t.Helper()
	var key models.Key
	require.NoError(t, db.Where("account_id = ?", accountID).First(&key).Error)
	return key.AccessKey
}

func strPtr(s string) *string { return &s }

func createTestEmployee(t *testing.T, svc *Service, adminID uint, roleIDs ...uint) models.Account {
	t.Helper()
	account, _, err := svc.CreateEmployee(adminID, CreateEmployeeParams{
		FirstName: "Пётр",
		LastName:  strPtr("Петров"),
		RoleIDs:   roleIDs,
	})
	require.NoError(t, err)
	return account
}

func createTestStudent(t *testing.T, svc *Service, adminID, trainingID uint) models.Account {
	t.Helper()
	account, _, err := svc.CreateStudent(adminID, CreateStudentParams{
		FirstName:  "Иван",
		TrainingID: trainingID,
	})
	require.NoError(t, err)
	return account
}

func createTestTraining(t *testing.T, svc *Service, adminID uint, name string) models.Training {
	t.Helper()
	training, err := svc.CreateTraining(adminID, CreateTrainingParams{Name: name})
	require.NoError(t, err)
	return training
}

func appendInfoLevel(t *testing.T, svc *Service, adminID, trainingID uint, title string) models.Level {
	t.Helper()
	level, err := svc.AppendLevel(adminID, trainingID, models.LevelInfo, title, models.LevelContent{
		Items: []models.ContentItem{{Kind: "text", Text: title}},
	})
	require.NoError(t, err)
	return level
}

func appendQuizLevel(t *testing.T, svc *Service, adminID, trainingID uint, title string, correctOption int) models.Level {
	t.Helper()
	level, err := svc.AppendLevel(adminID, trainingID, models.LevelQuiz, title, models.LevelContent{
		Items: []models.ContentItem{{Kind: "text", Text: title}},
		Options: []models.QuizOption{
			{ID: 1, Text: "Да"},
			{ID: 2, Text: "Нет"},
		},
		CorrectOptionID: correctOption,
	})
	require.NoError(t, err)
	return level
}

// Цепочка уровней стажировки в том порядке, в котором их вернёт обход.
func orderedTitles(t *testing.T, svc *Service, actorID, trainingID uint) []string {
	t.Helper()
	levels, err := svc.ListLevels(actorID, trainingID)
	require.NoError(t, err)
	titles := make([]string, 0, len(levels))
	for _, lp := range levels {
		titles = append(titles, lp.Level.Title)
	}
	return titles
}
