package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stazhbot/internal/service"
)

type recordAnswerRequest struct {
	SelectedOptionIDs []int `json:"selected_option_ids"`
}

func (h *Handler) recordAnswerHandler(c *gin.Context) {
	levelID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req recordAnswerRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "некорректное тело запроса")
			return
		}
	}

	answer, err := h.svc.RecordAnswer(currentAccount(c).ID, levelID, req.SelectedOptionIDs)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, answerJSON(answer))
}

// Свой прогресс (для стажёра).
func (h *Handler) progressHandler(c *gin.Context) {
	progress, err := h.svc.ComputeProgress(currentAccount(c).ID, nil)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, progressJSON(progress))
}

// Прогресс конкретного стажёра (для админа и сотрудников с доступом).
func (h *Handler) studentProgressHandler(c *gin.Context) {
	studentID, ok := pathID(c, "id")
	if !ok {
		return
	}
	progress, err := h.svc.ComputeProgress(currentAccount(c).ID, &studentID)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, progressJSON(progress))
}

func progressJSON(p service.Progress) gin.H {
	body := gin.H{
		"state":     p.State,
		"is_access": p.IsAccess,
		"total":     p.Total,
	}
	if p.CurrentLevel != nil {
		body["current_level"] = levelJSON(*p.CurrentLevel)
	}
	answers := make([]gin.H, 0, len(p.Answers))
	for _, a := range p.Answers {
		answers = append(answers, answerJSON(a))
	}
	body["answers"] = answers
	return body
}
