package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	UserID    int64  `json:"user_id" binding:"required"`
	AccessKey string `json:"access_key" binding:"required"`
}

func (h *Handler) loginHandler(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "нужны user_id и access_key")
		return
	}

	result, err := h.svc.Login(req.UserID, req.AccessKey)
	if err != nil {
		h.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":          result.Token,
		"is_first_login": result.IsFirstLogin,
		"access_key":     result.AccessKey,
		"account_type":   result.AccountType,
		"account_id":     result.AccountID,
	})
}

func (h *Handler) logoutHandler(c *gin.Context) {
	if err := h.svc.Logout(bearerToken(c)); err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Профиль текущего аккаунта: состав ответа зависит от типа.
func (h *Handler) meHandler(c *gin.Context) {
	account := currentAccount(c)
	view, err := h.svc.GetAccountView(account.ID)
	if err != nil {
		h.abortWithError(c, err)
		return
	}

	body := gin.H{"account": accountJSON(view.Account)}
	if view.Roles != nil {
		roles := make([]gin.H, 0, len(view.Roles))
		for _, role := range view.Roles {
			roles = append(roles, gin.H{"id": role.ID, "name": role.Name})
		}
		body["roles"] = roles
	}
	if view.Training != nil {
		body["training"] = trainingJSON(*view.Training)
	}
	if view.Answers != nil {
		answers := make([]gin.H, 0, len(view.Answers))
		for _, a := range view.Answers {
			answers = append(answers, answerJSON(a))
		}
		body["answers"] = answers
	}
	c.JSON(http.StatusOK, body)
}
