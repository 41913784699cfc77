package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"stazhbot/internal/models"
	"stazhbot/internal/service"
)

// Тонкий JSON-слой над ядром: разбор запроса, токен, маппинг ошибок.
// Вся логика живёт в service.
type Handler struct {
	svc *service.Service
	log *logrus.Logger
}

func New(svc *service.Service, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api")
	{
		api.POST("/login", h.loginHandler)

		authed := api.Group("", h.authRequired())
		{
			authed.POST("/logout", h.logoutHandler)
			authed.GET("/me", h.meHandler)

			// администрирование аккаунтов и ролей
			authed.POST("/employees", h.createEmployeeHandler)
			authed.GET("/employees", h.listEmployeesHandler)
			authed.POST("/students", h.createStudentHandler)
			authed.DELETE("/accounts/:id", h.deleteAccountHandler)
			authed.POST("/roles", h.createRoleHandler)
			authed.GET("/roles", h.listRolesHandler)
			authed.DELETE("/roles/:id", h.deleteRoleHandler)
			authed.POST("/roles/:id/accounts/:account_id", h.assignRoleHandler)
			authed.POST("/roles/:id/trainings/:training_id", h.assignTrainingHandler)

			// стажировки и уровни
			authed.POST("/trainings", h.createTrainingHandler)
			authed.GET("/trainings", h.listTrainingsHandler)
			authed.GET("/trainings/:id", h.getTrainingHandler)
			authed.PUT("/trainings/:id", h.renameTrainingHandler)
			authed.DELETE("/trainings/:id", h.deleteTrainingHandler)
			authed.POST("/trainings/:id/start", h.startTrainingHandler)
			authed.POST("/trainings/:id/stop", h.stopTrainingHandler)
			authed.GET("/trainings/:id/students", h.listStudentsHandler)
			authed.GET("/trainings/:id/levels", h.listLevelsHandler)
			authed.POST("/trainings/:id/levels", h.appendLevelHandler)
			authed.PUT("/levels/:id", h.editLevelHandler)
			authed.DELETE("/levels/:id", h.deleteLevelHandler)

			// прохождение
			authed.POST("/levels/:id/answer", h.recordAnswerHandler)
			authed.GET("/progress", h.progressHandler)
			authed.GET("/students/:id/progress", h.studentProgressHandler)
		}
	}
}

// ---------- Аутентификация запросов ----------

const accountKey = "account"

// Достаёт токен из заголовка Authorization (Bearer) и кладёт аккаунт
// в контекст запроса.
func (h *Handler) authRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		account, _, _, err := h.svc.Authenticate(token)
		if err != nil {
			h.abortWithError(c, err)
			return
		}
		c.Set(accountKey, account)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func currentAccount(c *gin.Context) models.Account {
	account, _ := c.MustGet(accountKey).(models.Account)
	return account
}

// ---------- Ошибки ----------

// Переводит ошибки ядра в HTTP-статусы. Ошибки хранилища наружу не
// отдаются: клиент видит общий 500, детали остаются в логе.
func (h *Handler) abortWithError(c *gin.Context, err error) {
	var validationErr service.ValidationError
	switch {
	case errors.Is(err, service.ErrInvalidToken),
		errors.Is(err, service.ErrKeyNotFound):
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})

	case errors.Is(err, service.ErrAccessDenied):
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": err.Error()})

	case errors.Is(err, service.ErrTrainingNotFound),
		errors.Is(err, service.ErrLevelNotFound),
		errors.Is(err, service.ErrRoleNotFound),
		errors.Is(err, service.ErrAccountNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})

	case errors.Is(err, service.ErrTrainingIsActive),
		errors.Is(err, service.ErrTrainingIsNotActive),
		errors.Is(err, service.ErrTrainingHasStudents),
		errors.Is(err, service.ErrTrainingAlreadyInThisState),
		errors.Is(err, service.ErrTrainingIsEmpty),
		errors.Is(err, service.ErrLevelAnswerAlreadyExists),
		errors.Is(err, service.ErrRoleAlreadyExists):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})

	case errors.As(err, &validationErr):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": validationErr.Error()})

	default:
		h.log.WithError(err).Error("внутренняя ошибка")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "внутренняя ошибка"})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}

func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		badRequest(c, "некорректный id")
		return 0, false
	}
	return uint(id), true
}

// ---------- JSON-представления ----------

func accountJSON(a models.Account) gin.H {
	return gin.H{
		"id":           a.ID,
		"type":         a.Type,
		"email":        a.Email,
		"first_name":   a.FirstName,
		"last_name":    a.LastName,
		"patronymic":   a.Patronymic,
		"full_name":    a.FullName(),
		"training_id":  a.TrainingID,
		"completed_at": a.CompletedAt,
		"created_at":   a.CreatedAt,
	}
}

func trainingJSON(t models.Training) gin.H {
	startContent, _ := t.DecodeStartContent()
	return gin.H{
		"id":            t.ID,
		"name":          t.Name,
		"start_content": startContent,
		"active":        t.IsActive(),
		"started_at":    t.StartedAt,
		"ended_at":      t.EndedAt,
		"created_at":    t.CreatedAt,
	}
}

func levelJSON(lp service.LevelPosition) gin.H {
	content, _ := lp.Level.DecodeContent()
	return gin.H{
		"position":    lp.Position,
		"id":          lp.Level.ID,
		"training_id": lp.Level.TrainingID,
		"type":        lp.Level.Type,
		"title":       lp.Level.Title,
		"content":     content,
		"created_at":  lp.Level.CreatedAt,
	}
}

func answerJSON(a models.LevelAnswer) gin.H {
	selected, _ := a.DecodeSelectedOptions()
	return gin.H{
		"id":                  a.ID,
		"account_id":          a.AccountID,
		"level_id":            a.LevelID,
		"selected_option_ids": selected,
		"is_correct":          a.IsCorrect,
		"created_at":          a.CreatedAt,
	}
}
