package api

import (
	"authserver/internal/apperror"
	"authserver/internal/entity/common"
	entity "authserver/internal/entity/db"
	"authserver/internal/entity/dto"
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func (h *HTTPHandler) CreateUser(c *gin.Context) {
	if h.accounts == nil {
		ServiceUnavailable(c, "account service not available")
		return
	}

	var req dto.UserCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), mutationTimeout)
	defer cancel()

	user, err := h.accounts.Insert(ctx, &entity.User{
		Email:    strings.TrimSpace(req.Email),
		Password: req.Password,
		Name:     strings.TrimSpace(req.Name),
	})
	if err != nil {
		ServiceError(c, err)
		return
	}

	h.respondUser(c, http.StatusCreated, user)
}

func (h *HTTPHandler) ListUsers(c *gin.Context) {
	var query dto.UserListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		BadRequest(c, ErrCodeInvalidRequest, "invalid query parameters")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), queryTimeout)
	defer cancel()

	var (
		users []entity.User
		err   error
	)
	if role := strings.TrimSpace(query.Role); role != "" {
		users, err = h.accounts.FindByRole(ctx, role)
	} else {
		users, err = h.accounts.FindAll(ctx, common.ParseSortDir(query.Dir))
	}
	if err != nil {
		ServiceError(c, err)
		return
	}

	views, err := h.accounts.ToViews(users)
	if err != nil {
		ServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

func (h *HTTPHandler) GetUser(c *gin.Context) {
	id, ok := parseUserID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), queryTimeout)
	defer cancel()

	user, err := h.accounts.FindByID(ctx, id)
	if err != nil {
		ServiceError(c, err)
		return
	}
	h.respondUser(c, http.StatusOK, user)
}

func (h *HTTPHandler) Me(c *gin.Context) {
	requestUser := CurrentUser(c)
	if requestUser == nil {
		Unauthorized(c, "authentication required")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), queryTimeout)
	defer cancel()

	user, err := h.accounts.FindByID(ctx, requestUser.ID)
	if err != nil {
		ServiceError(c, err)
		return
	}
	h.respondUser(c, http.StatusOK, user)
}

// UpdateUser 修改名称，名称未变化时返回 204
func (h *HTTPHandler) UpdateUser(c *gin.Context) {
	id, ok := h.authorizeTarget(c)
	if !ok {
		return
	}

	var req dto.UserUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), queryTimeout)
	defer cancel()

	user, err := h.accounts.Update(ctx, id, strings.TrimSpace(req.Name))
	if err != nil {
		ServiceError(c, err)
		return
	}
	if user == nil {
		c.Status(http.StatusNoContent)
		return
	}
	h.respondUser(c, http.StatusOK, user)
}

func (h *HTTPHandler) DeleteUser(c *gin.Context) {
	id, ok := parseUserID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), mutationTimeout)
	defer cancel()

	deleted, err := h.accounts.Delete(ctx, id)
	if err != nil {
		ServiceError(c, err)
		return
	}
	if !deleted {
		NotFound(c, ErrCodeUserNotFound, "user not found")
		return
	}

	if requestUser := CurrentUser(c); requestUser != nil {
		logrus.WithFields(logrus.Fields{
			"user_id":    id,
			"deleted_by": requestUser.ID,
		}).Info("user deleted via api")
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// AddUserRole 授予角色，已拥有时返回 204
func (h *HTTPHandler) AddUserRole(c *gin.Context) {
	id, ok := parseUserID(c)
	if !ok {
		return
	}
	role := strings.TrimSpace(c.Param("role"))
	if role == "" {
		MissingField(c, "role")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), queryTimeout)
	defer cancel()

	granted, err := h.accounts.AddRole(ctx, id, role)
	if err != nil {
		if errors.Is(err, apperror.ErrInvalid) {
			BadRequest(c, ErrCodeInvalidRole, err.Error())
			return
		}
		ServiceError(c, err)
		return
	}
	if !granted {
		c.Status(http.StatusNoContent)
		return
	}

	user, err := h.accounts.FindByID(ctx, id)
	if err != nil {
		ServiceError(c, err)
		return
	}
	h.respondUser(c, http.StatusOK, user)
}

func (h *HTTPHandler) Login(c *gin.Context) {
	if h.accounts == nil {
		ServiceUnavailable(c, "account service not available")
		return
	}

	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), queryTimeout)
	defer cancel()

	result, err := h.accounts.Login(ctx, req.Email, req.Password)
	if err != nil {
		ServiceError(c, err)
		return
	}
	if result == nil {
		ErrorResponse(c, http.StatusUnauthorized, ErrCodeInvalidCredentials, "invalid email or password")
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *HTTPHandler) respondUser(c *gin.Context, status int, user *entity.User) {
	view, err := h.accounts.ToView(user)
	if err != nil {
		ServiceError(c, err)
		return
	}
	c.JSON(status, view)
}

// authorizeTarget 解析路径中的用户 ID，并校验当前用户可以修改该用户
func (h *HTTPHandler) authorizeTarget(c *gin.Context) (uint, bool) {
	id, ok := parseUserID(c)
	if !ok {
		return 0, false
	}
	if !CurrentUser(c).CanManage(id) {
		Forbidden(c, "cannot modify another user")
		return 0, false
	}
	return id, true
}

func parseUserID(c *gin.Context) (uint, bool) {
	idValue := strings.TrimSpace(c.Param("id"))
	id, err := strconv.ParseUint(idValue, 10, 64)
	if err != nil || id == 0 {
		BadRequest(c, ErrCodeInvalidRequest, "invalid user id")
		return 0, false
	}
	return uint(id), true
}
