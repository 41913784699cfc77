package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stazhbot/internal/service"
)

// ---------- Сотрудники и стажёры ----------

type createEmployeeRequest struct {
	FirstName  string  `json:"first_name" binding:"required"`
	LastName   *string `json:"last_name"`
	Patronymic *string `json:"patronymic"`
	Email      *string `json:"email"`
	RoleIDs    []uint  `json:"role_ids"`
}

func (h *Handler) createEmployeeHandler(c *gin.Context) {
	var req createEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "нужно first_name")
		return
	}

	account, accessKey, err := h.svc.CreateEmployee(currentAccount(c).ID, service.CreateEmployeeParams{
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Patronymic: req.Patronymic,
		Email:      req.Email,
		RoleIDs:    req.RoleIDs,
	})
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"account": accountJSON(account),
		// ключ показывается один раз, после первого входа он сменится
		"access_key": accessKey,
	})
}

func (h *Handler) listEmployeesHandler(c *gin.Context) {
	employees, err := h.svc.ListEmployees(currentAccount(c).ID)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	items := make([]gin.H, 0, len(employees))
	for _, e := range employees {
		item := accountJSON(e)
		roles := make([]gin.H, 0, len(e.Roles))
		for _, role := range e.Roles {
			roles = append(roles, gin.H{"id": role.ID, "name": role.Name})
		}
		item["roles"] = roles
		items = append(items, item)
	}
	c.JSON(http.StatusOK, gin.H{"employees": items})
}

type createStudentRequest struct {
	FirstName  string  `json:"first_name" binding:"required"`
	LastName   *string `json:"last_name"`
	Patronymic *string `json:"patronymic"`
	TrainingID uint    `json:"training_id" binding:"required"`
}

func (h *Handler) createStudentHandler(c *gin.Context) {
	var req createStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "нужны first_name и training_id")
		return
	}

	account, accessKey, err := h.svc.CreateStudent(currentAccount(c).ID, service.CreateStudentParams{
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Patronymic: req.Patronymic,
		TrainingID: req.TrainingID,
	})
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"account":    accountJSON(account),
		"access_key": accessKey,
	})
}

func (h *Handler) deleteAccountHandler(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteAccount(currentAccount(c).ID, id); err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) listStudentsHandler(c *gin.Context) {
	trainingID, ok := pathID(c, "id")
	if !ok {
		return
	}
	students, err := h.svc.ListStudents(currentAccount(c).ID, trainingID)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	items := make([]gin.H, 0, len(students))
	for _, s := range students {
		items = append(items, accountJSON(s))
	}
	c.JSON(http.StatusOK, gin.H{"students": items})
}

// ---------- Роли ----------

type createRoleRequest struct {
	Name string `json:"name" binding:"required"`
}

func (h *Handler) createRoleHandler(c *gin.Context) {
	var req createRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "нужно name")
		return
	}
	role, err := h.svc.CreateRole(currentAccount(c).ID, req.Name)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": role.ID, "name": role.Name})
}

func (h *Handler) listRolesHandler(c *gin.Context) {
	roles, err := h.svc.ListRoles(currentAccount(c).ID)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	items := make([]gin.H, 0, len(roles))
	for _, role := range roles {
		items = append(items, gin.H{"id": role.ID, "name": role.Name, "created_at": role.CreatedAt})
	}
	c.JSON(http.StatusOK, gin.H{"roles": items})
}

func (h *Handler) deleteRoleHandler(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteRole(currentAccount(c).ID, id); err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) assignRoleHandler(c *gin.Context) {
	roleID, ok := pathID(c, "id")
	if !ok {
		return
	}
	accountID, ok := pathID(c, "account_id")
	if !ok {
		return
	}
	if err := h.svc.AssignRoleToAccount(currentAccount(c).ID, roleID, accountID); err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) assignTrainingHandler(c *gin.Context) {
	roleID, ok := pathID(c, "id")
	if !ok {
		return
	}
	trainingID, ok := pathID(c, "training_id")
	if !ok {
		return
	}
	if err := h.svc.AssignTrainingToRole(currentAccount(c).ID, roleID, trainingID); err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
