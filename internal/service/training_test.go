package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stazhbot/internal/models"
)

func TestStartTraining(t *testing.T) {
	t.Run("без уровней не запускается", func(t *testing.T) {
		svc, _, admin := newTestServiceWithAdmin(t)
		training := createTestTraining(t, svc, admin.ID, "Пустая")

		_, err := svc.StartTraining(admin.ID, training.ID)
		assert.ErrorIs(t, err, ErrTrainingIsEmpty)
	})

	t.Run("повторный запуск — ошибка состояния", func(t *testing.T) {
		svc, _, admin := newTestServiceWithAdmin(t)
		training := createTestTraining(t, svc, admin.ID, "Онбординг")
		appendInfoLevel(t, svc, admin.ID, training.ID, "Старт")

		started, err := svc.StartTraining(admin.ID, training.ID)
		require.NoError(t, err)
		assert.True(t, started.IsActive())

		_, err = svc.StartTraining(admin.ID, training.ID)
		assert.ErrorIs(t, err, ErrTrainingAlreadyInThisState)
	})

	t.Run("запуск очищает прежний набор стажёров", func(t *testing.T) {
		svc, db, admin := newTestServiceWithAdmin(t)
		training := createTestTraining(t, svc, admin.ID, "Онбординг")
		appendInfoLevel(t, svc, admin.ID, training.ID, "Старт")
		student := createTestStudent(t, svc, admin.ID, training.ID)

		_, err := svc.StartTraining(admin.ID, training.ID)
		require.NoError(t, err)

		var count int64
		require.NoError(t, db.Model(&models.Account{}).Where("id = ?", student.ID).Count(&count).Error)
		assert.Equal(t, int64(0), count, "прежние стажёры должны быть удалены")
	})

	t.Run("перезапуск после остановки сбрасывает дату окончания", func(t *testing.T) {
		svc, _, admin := newTestServiceWithAdmin(t)
		training := createTestTraining(t, svc, admin.ID, "Онбординг")
		appendInfoLevel(t, svc, admin.ID, training.ID, "Старт")

		_, err := svc.StartTraining(admin.ID, training.ID)
		require.NoError(t, err)
		stopped, err := svc.StopTraining(admin.ID, training.ID)
		require.NoError(t, err)
		require.NotNil(t, stopped.EndedAt)

		restarted, err := svc.StartTraining(admin.ID, training.ID)
		require.NoError(t, err)
		assert.True(t, restarted.IsActive())
		assert.Nil(t, restarted.EndedAt)
	})
}

func TestStopTraining(t *testing.T) {
	svc, _, admin := newTestServiceWithAdmin(t)
	training := createTestTraining(t, svc, admin.ID, "Онбординг")

	// остановка незапущенной — ошибка состояния
	_, err := svc.StopTraining(admin.ID, training.ID)
	assert.ErrorIs(t, err, ErrTrainingAlreadyInThisState)

	appendInfoLevel(t, svc, admin.ID, training.ID, "Старт")
	_, err = svc.StartTraining(admin.ID, training.ID)
	require.NoError(t, err)

	stopped, err := svc.StopTraining(admin.ID, training.ID)
	require.NoError(t, err)
	assert.False(t, stopped.IsActive())
	assert.NotNil(t, stopped.EndedAt)

	_, err = svc.StopTraining(admin.ID, training.ID)
	assert.ErrorIs(t, err, ErrTrainingAlreadyInThisState)
}

func TestCreateTrainingByEmployee(t *testing.T) {
	svc, _, admin := newTestServiceWithAdmin(t)

	t.Run("без ролей создавать нельзя", func(t *testing.T) {
		employee := createTestEmployee(t, svc, admin.ID)
		_, err := svc.CreateTraining(employee.ID, CreateTrainingParams{Name: "Новая"})
		assert.ErrorIs(t, err, ErrAccessDenied)
	})

	t.Run("единственная роль подставляется сама", func(t *testing.T) {
		role, err := svc.CreateRole(admin.ID, "Продажи")
		require.NoError(t, err)
		employee := createTestEmployee(t, svc, admin.ID, role.ID)

		training, err := svc.CreateTraining(employee.ID, CreateTrainingParams{Name: "Продажи 101"})
		require.NoError(t, err)

		// стажировка сразу достижима через роль сотрудника
		assert.NoError(t, svc.CanViewTraining(employee.ID, training.ID))
	})

	t.Run("несколько ролей требуют явного выбора", func(t *testing.T) {
		first, err := svc.CreateRole(admin.ID, "Склад")
		require.NoError(t, err)
		second, err := svc.CreateRole(admin.ID, "Доставка")
		require.NoError(t, err)
		employee := createTestEmployee(t, svc, admin.ID, first.ID, second.ID)

		_, err = svc.CreateTraining(employee.ID, CreateTrainingParams{Name: "Логистика"})
		var validationErr ValidationError
		assert.ErrorAs(t, err, &validationErr)

		training, err := svc.CreateTraining(employee.ID, CreateTrainingParams{
			Name:   "Логистика",
			RoleID: &second.ID,
		})
		require.NoError(t, err)
		assert.NoError(t, svc.CanViewTraining(employee.ID, training.ID))
	})

	t.Run("чужую роль указать нельзя", func(t *testing.T) {
		mine, err := svc.CreateRole(admin.ID, "Кухня")
		require.NoError(t, err)
		alien, err := svc.CreateRole(admin.ID, "Бар")
		require.NoError(t, err)
		other, err := svc.CreateRole(admin.ID, "Зал")
		require.NoError(t, err)
		employee := createTestEmployee(t, svc, admin.ID, mine.ID, other.ID)

		_, err = svc.CreateTraining(employee.ID, CreateTrainingParams{
			Name:   "Смена",
			RoleID: &alien.ID,
		})
		assert.ErrorIs(t, err, ErrAccessDenied)
	})

	t.Run("стажёр создавать не может", func(t *testing.T) {
		training := createTestTraining(t, svc, admin.ID, "База")
		student := createTestStudent(t, svc, admin.ID, training.ID)
		_, err := svc.CreateTraining(student.ID, CreateTrainingParams{Name: "Чужая"})
		assert.ErrorIs(t, err, ErrAccessDenied)
	})
}

func TestRenameTrainingGuards(t *testing.T) {
	svc, _, admin := newTestServiceWithAdmin(t)
	training := createTestTraining(t, svc, admin.ID, "Онбординг")
	appendInfoLevel(t, svc, admin.ID, training.ID, "Старт")

	renamed, err := svc.RenameTraining(admin.ID, training.ID, "Онбординг v2")
	require.NoError(t, err)
	assert.Equal(t, "Онбординг v2", renamed.Name)

	_, err = svc.StartTraining(admin.ID, training.ID)
	require.NoError(t, err)
	_, err = svc.RenameTraining(admin.ID, training.ID, "Онбординг v3")
	assert.ErrorIs(t, err, ErrTrainingIsActive)
}

func TestDeleteTrainingCascades(t *testing.T) {
	svc, db, admin := newTestServiceWithAdmin(t)
	training := createTestTraining(t, svc, admin.ID, "Онбординг")
	level := appendInfoLevel(t, svc, admin.ID, training.ID, "Старт")
	role, err := svc.CreateRole(admin.ID, "Наставник")
	require.NoError(t, err)
	require.NoError(t, svc.AssignTrainingToRole(admin.ID, role.ID, training.ID))

	_, err = svc.StartTraining(admin.ID, training.ID)
	require.NoError(t, err)
	student := createTestStudent(t, svc, admin.ID, training.ID)
	_, err = svc.RecordAnswer(student.ID, level.ID, nil)
	require.NoError(t, err)
	_, err = svc.StopTraining(admin.ID, training.ID)
	require.NoError(t, err)

	// стажировку со стажёрами удалить нельзя
	assert.ErrorIs(t, svc.DeleteTraining(admin.ID, training.ID), ErrTrainingHasStudents)

	require.NoError(t, svc.DeleteAccount(admin.ID, student.ID))
	require.NoError(t, svc.DeleteTraining(admin.ID, training.ID))

	var levels, answers, trainings int64
	require.NoError(t, db.Model(&models.Level{}).Count(&levels).Error)
	require.NoError(t, db.Model(&models.LevelAnswer{}).Count(&answers).Error)
	require.NoError(t, db.Model(&models.Training{}).Count(&trainings).Error)
	assert.Zero(t, levels)
	assert.Zero(t, answers)
	assert.Zero(t, trainings)

	// роль остаётся, но без привязок
	var role2 models.Role
	require.NoError(t, db.First(&role2, role.ID).Error)
	count := db.Model(&role2).Association("Trainings").Count()
	assert.Zero(t, count)
}

func TestListTrainingsByTier(t *testing.T) {
	svc, _, admin := newTestServiceWithAdmin(t)
	first := createTestTraining(t, svc, admin.ID, "Первая")
	second := createTestTraining(t, svc, admin.ID, "Вторая")

	role, err := svc.CreateRole(admin.ID, "Наставник")
	require.NoError(t, err)
	require.NoError(t, svc.AssignTrainingToRole(admin.ID, role.ID, first.ID))
	employee := createTestEmployee(t, svc, admin.ID, role.ID)
	student := createTestStudent(t, svc, admin.ID, second.ID)

	adminList, err := svc.ListTrainings(admin.ID)
	require.NoError(t, err)
	assert.Len(t, adminList, 2)

	employeeList, err := svc.ListTrainings(employee.ID)
	require.NoError(t, err)
	require.Len(t, employeeList, 1)
	assert.Equal(t, first.ID, employeeList[0].ID)

	studentList, err := svc.ListTrainings(student.ID)
	require.NoError(t, err)
	require.Len(t, studentList, 1)
	assert.Equal(t, second.ID, studentList[0].ID)
}
