package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stazhbot/internal/models"
	"stazhbot/internal/service"
)

// ---------- Стажировки ----------

type createTrainingRequest struct {
	Name         string               `json:"name" binding:"required"`
	StartContent []models.ContentItem `json:"start_content"`
	RoleID       *uint                `json:"role_id"`
}

func (h *Handler) createTrainingHandler(c *gin.Context) {
	var req createTrainingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "нужно name")
		return
	}
	training, err := h.svc.CreateTraining(currentAccount(c).ID, service.CreateTrainingParams{
		Name:         req.Name,
		StartContent: req.StartContent,
		RoleID:       req.RoleID,
	})
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, trainingJSON(training))
}

func (h *Handler) listTrainingsHandler(c *gin.Context) {
	trainings, err := h.svc.ListTrainings(currentAccount(c).ID)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	items := make([]gin.H, 0, len(trainings))
	for _, t := range trainings {
		items = append(items, trainingJSON(t))
	}
	c.JSON(http.StatusOK, gin.H{"trainings": items})
}

func (h *Handler) getTrainingHandler(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	training, err := h.svc.GetTraining(currentAccount(c).ID, id)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, trainingJSON(training))
}

type renameTrainingRequest struct {
	Name string `json:"name" binding:"required"`
}

func (h *Handler) renameTrainingHandler(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req renameTrainingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "нужно name")
		return
	}
	training, err := h.svc.RenameTraining(currentAccount(c).ID, id, req.Name)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, trainingJSON(training))
}

func (h *Handler) deleteTrainingHandler(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteTraining(currentAccount(c).ID, id); err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) startTrainingHandler(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	training, err := h.svc.StartTraining(currentAccount(c).ID, id)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, trainingJSON(training))
}

func (h *Handler) stopTrainingHandler(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	training, err := h.svc.StopTraining(currentAccount(c).ID, id)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, trainingJSON(training))
}

// ---------- Уровни ----------

func (h *Handler) listLevelsHandler(c *gin.Context) {
	trainingID, ok := pathID(c, "id")
	if !ok {
		return
	}
	levels, err := h.svc.ListLevels(currentAccount(c).ID, trainingID)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	items := make([]gin.H, 0, len(levels))
	for _, lp := range levels {
		items = append(items, levelJSON(lp))
	}
	c.JSON(http.StatusOK, gin.H{"levels": items})
}

type levelRequest struct {
	Type    models.LevelType    `json:"type"`
	Title   string              `json:"title" binding:"required"`
	Content models.LevelContent `json:"content"`
}

func (h *Handler) appendLevelHandler(c *gin.Context) {
	trainingID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req levelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "нужны type и title")
		return
	}
	level, err := h.svc.AppendLevel(currentAccount(c).ID, trainingID, req.Type, req.Title, req.Content)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, levelJSON(service.LevelPosition{Level: level}))
}

func (h *Handler) editLevelHandler(c *gin.Context) {
	levelID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req levelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "нужно title")
		return
	}
	level, err := h.svc.EditLevel(currentAccount(c).ID, levelID, req.Title, req.Content)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, levelJSON(service.LevelPosition{Level: level}))
}

func (h *Handler) deleteLevelHandler(c *gin.Context) {
	levelID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteLevel(currentAccount(c).ID, levelID); err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
