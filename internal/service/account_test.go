package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stazhbot/internal/models"
)

func TestSeedAdminIsIdempotent(t *testing.T) {
	svc, db, _ := newTestServiceWithAdmin(t)

	// повторный запуск не создаёт второго админа
	require.NoError(t, svc.SeedAdmin("Администратор", ""))

	var count int64
	require.NoError(t, db.Model(&models.Account{}).Where("type = ?", models.AccountAdmin).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCreateEmployee(t *testing.T) {
	svc, db, admin := newTestServiceWithAdmin(t)

	t.Run("создаётся вместе с ключом", func(t *testing.T) {
		account, accessKey, err := svc.CreateEmployee(admin.ID, CreateEmployeeParams{
			FirstName:  "Пётр",
			LastName:   strPtr("Петров"),
			Patronymic: strPtr("Петрович"),
			Email:      strPtr("petrov@example.com"),
		})
		require.NoError(t, err)
		assert.Equal(t, models.AccountEmployee, account.Type)
		assert.Equal(t, "Пётр Петров Петрович", account.FullName())
		assert.Len(t, accessKey, 32)

		var key models.Key
		require.NoError(t, db.Where("account_id = ?", account.ID).First(&key).Error)
		assert.Equal(t, accessKey, key.AccessKey)
		assert.True(t, key.IsFirstLogIn)
	})

	t.Run("не админ создавать не может", func(t *testing.T) {
		employee := createTestEmployee(t, svc, admin.ID)
		_, _, err := svc.CreateEmployee(employee.ID, CreateEmployeeParams{FirstName: "Сидор"})
		assert.ErrorIs(t, err, ErrAccessDenied)
	})

	t.Run("пустое имя отклоняется до записи", func(t *testing.T) {
		_, _, err := svc.CreateEmployee(admin.ID, CreateEmployeeParams{FirstName: "  "})
		var validationErr ValidationError
		assert.ErrorAs(t, err, &validationErr)
	})

	t.Run("кривой email отклоняется", func(t *testing.T) {
		_, _, err := svc.CreateEmployee(admin.ID, CreateEmployeeParams{
			FirstName: "Пётр",
			Email:     strPtr("не email"),
		})
		var validationErr ValidationError
		assert.ErrorAs(t, err, &validationErr)
	})
}

func TestCreateStudentBoundToTraining(t *testing.T) {
	svc, _, admin := newTestServiceWithAdmin(t)
	training := createTestTraining(t, svc, admin.ID, "Онбординг")

	student := createTestStudent(t, svc, admin.ID, training.ID)
	require.NotNil(t, student.TrainingID)
	assert.Equal(t, training.ID, *student.TrainingID)

	t.Run("сотрудник с доступом может", func(t *testing.T) {
		role, err := svc.CreateRole(admin.ID, "Наставник")
		require.NoError(t, err)
		require.NoError(t, svc.AssignTrainingToRole(admin.ID, role.ID, training.ID))
		mentor := createTestEmployee(t, svc, admin.ID, role.ID)

		_, _, err = svc.CreateStudent(mentor.ID, CreateStudentParams{
			FirstName:  "Иван",
			TrainingID: training.ID,
		})
		assert.NoError(t, err)
	})

	t.Run("сотрудник без доступа не может", func(t *testing.T) {
		outsider := createTestEmployee(t, svc, admin.ID)
		_, _, err := svc.CreateStudent(outsider.ID, CreateStudentParams{
			FirstName:  "Иван",
			TrainingID: training.ID,
		})
		assert.ErrorIs(t, err, ErrAccessDenied)
	})

	t.Run("стажёр не может", func(t *testing.T) {
		_, _, err := svc.CreateStudent(student.ID, CreateStudentParams{
			FirstName:  "Иван",
			TrainingID: training.ID,
		})
		assert.ErrorIs(t, err, ErrAccessDenied)
	})
}

func TestDeleteAccountCascades(t *testing.T) {
	svc, db, admin := newTestServiceWithAdmin(t)
	training := createTestTraining(t, svc, admin.ID, "Онбординг")
	appendInfoLevel(t, svc, admin.ID, training.ID, "Старт")
	_, err := svc.StartTraining(admin.ID, training.ID)
	require.NoError(t, err)

	student := createTestStudent(t, svc, admin.ID, training.ID)
	result, err := svc.Login(300, accessKeyOf(t, db, student.ID))
	require.NoError(t, err)

	require.NoError(t, svc.DeleteAccount(admin.ID, student.ID))

	// ключ и сессия ушли вместе с аккаунтом
	var keys, sessions int64
	require.NoError(t, db.Model(&models.Key{}).Where("account_id = ?", student.ID).Count(&keys).Error)
	require.NoError(t, db.Model(&models.Session{}).Where("token = ?", result.Token).Count(&sessions).Error)
	assert.Zero(t, keys)
	assert.Zero(t, sessions)

	t.Run("админа удалить нельзя", func(t *testing.T) {
		assert.ErrorIs(t, svc.DeleteAccount(admin.ID, admin.ID), ErrAccessDenied)
	})

	t.Run("не админ удалять не может", func(t *testing.T) {
		employee := createTestEmployee(t, svc, admin.ID)
		assert.ErrorIs(t, svc.DeleteAccount(employee.ID, employee.ID), ErrAccessDenied)
	})
}

func TestAccountViewByType(t *testing.T) {
	svc, _, admin := newTestServiceWithAdmin(t)
	training := createTestTraining(t, svc, admin.ID, "Онбординг")
	level := appendInfoLevel(t, svc, admin.ID, training.ID, "Старт")
	role, err := svc.CreateRole(admin.ID, "Наставник")
	require.NoError(t, err)
	employee := createTestEmployee(t, svc, admin.ID, role.ID)

	_, err = svc.StartTraining(admin.ID, training.ID)
	require.NoError(t, err)
	student := createTestStudent(t, svc, admin.ID, training.ID)
	_, err = svc.RecordAnswer(student.ID, level.ID, nil)
	require.NoError(t, err)

	t.Run("админ — только базовые поля", func(t *testing.T) {
		view, err := svc.GetAccountView(admin.ID)
		require.NoError(t, err)
		assert.Empty(t, view.Roles)
		assert.Nil(t, view.Training)
		assert.Empty(t, view.Answers)
	})

	t.Run("сотрудник — с ролями", func(t *testing.T) {
		view, err := svc.GetAccountView(employee.ID)
		require.NoError(t, err)
		require.Len(t, view.Roles, 1)
		assert.Equal(t, "Наставник", view.Roles[0].Name)
	})

	t.Run("стажёр — со стажировкой и ответами", func(t *testing.T) {
		view, err := svc.GetAccountView(student.ID)
		require.NoError(t, err)
		require.NotNil(t, view.Training)
		assert.Equal(t, training.ID, view.Training.ID)
		require.Len(t, view.Answers, 1)
		assert.Equal(t, level.ID, view.Answers[0].LevelID)
	})
}
