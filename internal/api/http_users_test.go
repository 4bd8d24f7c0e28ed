package api

import (
	"authserver/internal/auth"
	"authserver/internal/avatar"
	"authserver/internal/config"
	entity "authserver/internal/entity/db"
	"authserver/internal/entity/dto"
	"authserver/internal/model"
	sqlrepo "authserver/internal/model/sql"
	"authserver/internal/service"
	"authserver/internal/storage"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type apiEnv struct {
	router   *gin.Engine
	accounts *service.AccountService
	storeDir string
}

func newAPIEnv(t *testing.T) apiEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:api_%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, model.MigrateSchema(conn))
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	cfg := config.Config{
		SeedRoles:      []string{"ADMIN", "USER"},
		AvatarMaxBytes: 1024,
	}
	repo := sqlrepo.NewGormRepository(conn)
	require.NoError(t, model.SeedDefaultRoles(context.Background(), repo, cfg))

	storeDir := t.TempDir()
	store, err := storage.NewLocalStorage(storeDir, "/files")
	require.NoError(t, err)
	resolver := avatar.NewResolver(store, avatar.Options{StagingDir: t.TempDir(), MaxBytes: cfg.AvatarMaxBytes})

	manager, err := auth.NewManager("test-secret", "authserver", time.Hour)
	require.NoError(t, err)
	accounts := service.NewAccountService(repo, manager, resolver, auth.PlainCredentials{}, service.Options{DefaultAvatar: "default-avatar.jpg"})

	router := gin.New()
	NewHTTPHandler(cfg, accounts, manager).RegisterRoutes(router.Group("/api"))
	return apiEnv{router: router, accounts: accounts, storeDir: storeDir}
}

func (e apiEnv) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e apiEnv) register(t *testing.T, email, name string) dto.UserView {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/users", dto.UserCreateRequest{Email: email, Password: "pw-" + name, Name: name}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var view dto.UserView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	return view
}

func (e apiEnv) login(t *testing.T, email, name string) string {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/users/login", dto.LoginRequest{Email: email, Password: "pw-" + name}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var result dto.LoginResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	require.NotEmpty(t, result.Token)
	return result.Token
}

func (e apiEnv) grantAdmin(t *testing.T, id uint) {
	t.Helper()
	_, err := e.accounts.AddRole(context.Background(), id, entity.RoleAdmin)
	require.NoError(t, err)
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) APIError {
	t.Helper()
	var response APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return response
}

func TestRegisterAndLogin(t *testing.T) {
	env := newAPIEnv(t)

	view := env.register(t, "ada@example.com", "Ada")
	assert.Equal(t, "ada@example.com", view.Email)
	assert.Equal(t, "/files/avatars/default-avatar.jpg", view.AvatarURL)

	w := env.do(t, http.MethodPost, "/api/users", dto.UserCreateRequest{Email: "ada@example.com", Password: "x", Name: "Other"}, "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, ErrCodeEmailExists, decodeError(t, w).Code)

	w = env.do(t, http.MethodPost, "/api/users", gin.H{"email": "not-an-email", "password": "x", "name": "X"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/users/login", dto.LoginRequest{Email: "ada@example.com", Password: "wrong"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, ErrCodeInvalidCredentials, decodeError(t, w).Code)

	for _, email := range []string{" ada@example.com", "ada@example.com ", "ADA@example.com"} {
		w = env.do(t, http.MethodPost, "/api/users/login", dto.LoginRequest{Email: email, Password: "pw-Ada"}, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, email)
	}

	token := env.login(t, "ada@example.com", "Ada")
	w = env.do(t, http.MethodGet, "/api/users/me", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	var me dto.UserView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))
	assert.Equal(t, view.ID, me.ID)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := newAPIEnv(t)

	w := env.do(t, http.MethodGet, "/api/users", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodGet, "/api/users", nil, "garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, ErrCodeSessionExpired, decodeError(t, w).Code)
}

func TestListAndGetUsers(t *testing.T) {
	env := newAPIEnv(t)
	ada := env.register(t, "ada@example.com", "Ada")
	env.register(t, "grace@example.com", "Grace")
	env.grantAdmin(t, ada.ID)
	token := env.login(t, "ada@example.com", "Ada")

	w := env.do(t, http.MethodGet, "/api/users?dir=desc", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	var users []dto.UserView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &users))
	require.Len(t, users, 2)
	assert.Equal(t, "Grace", users[0].Name)
	assert.Equal(t, "Ada", users[1].Name)

	w = env.do(t, http.MethodGet, "/api/users?role=ADMIN", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &users))
	require.Len(t, users, 1)
	assert.Equal(t, ada.ID, users[0].ID)

	w = env.do(t, http.MethodGet, fmt.Sprintf("/api/users/%d", ada.ID), nil, token)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/users/999", nil, token)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodGet, "/api/users/abc", nil, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateUser(t *testing.T) {
	env := newAPIEnv(t)
	ada := env.register(t, "ada@example.com", "Ada")
	grace := env.register(t, "grace@example.com", "Grace")
	token := env.login(t, "ada@example.com", "Ada")
	path := fmt.Sprintf("/api/users/%d", ada.ID)

	w := env.do(t, http.MethodPatch, path, dto.UserUpdateRequest{Name: "Ada"}, token)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, http.MethodPatch, path, dto.UserUpdateRequest{Name: "Ada Lovelace"}, token)
	require.Equal(t, http.StatusOK, w.Code)
	var view dto.UserView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, "Ada Lovelace", view.Name)

	w = env.do(t, http.MethodPatch, fmt.Sprintf("/api/users/%d", grace.ID), dto.UserUpdateRequest{Name: "Mallory"}, token)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAdminRoutes(t *testing.T) {
	env := newAPIEnv(t)
	ada := env.register(t, "ada@example.com", "Ada")
	grace := env.register(t, "grace@example.com", "Grace")

	graceToken := env.login(t, "grace@example.com", "Grace")
	w := env.do(t, http.MethodDelete, fmt.Sprintf("/api/users/%d", ada.ID), nil, graceToken)
	assert.Equal(t, http.StatusForbidden, w.Code)

	env.grantAdmin(t, ada.ID)
	adaToken := env.login(t, "ada@example.com", "Ada")

	rolePath := fmt.Sprintf("/api/users/%d/roles/USER", grace.ID)
	w = env.do(t, http.MethodPut, rolePath, nil, adaToken)
	assert.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, http.MethodPut, rolePath, nil, adaToken)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, http.MethodPut, fmt.Sprintf("/api/users/%d/roles/ROOT", grace.ID), nil, adaToken)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, ErrCodeInvalidRole, decodeError(t, w).Code)

	w = env.do(t, http.MethodDelete, fmt.Sprintf("/api/users/%d", ada.ID), nil, adaToken)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, ErrCodeLastAdmin, decodeError(t, w).Code)

	w = env.do(t, http.MethodDelete, fmt.Sprintf("/api/users/%d", grace.ID), nil, adaToken)
	assert.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, http.MethodDelete, fmt.Sprintf("/api/users/%d", grace.ID), nil, adaToken)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func avatarRequest(t *testing.T, path, token, contentType string, data []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="avatar"; filename="me"`)
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPut, path, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestAvatarUploadAndRemoval(t *testing.T) {
	env := newAPIEnv(t)
	ada := env.register(t, "ada@example.com", "Ada")
	token := env.login(t, "ada@example.com", "Ada")
	path := fmt.Sprintf("/api/users/%d/avatar", ada.ID)

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, avatarRequest(t, path, token, "image/gif", []byte("gif")))
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
	assert.Equal(t, ErrCodeUnsupportedMediaType, decodeError(t, w).Code)

	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, avatarRequest(t, path, token, "image/png", []byte("png")))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var view dto.UserView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, fmt.Sprintf("/files/avatars/%d.png", ada.ID), view.AvatarURL)

	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, avatarRequest(t, path, token, "image/jpeg", []byte("jpeg")))
	require.Equal(t, http.StatusOK, w.Code)
	stored := filepath.Join(env.storeDir, "avatars", fmt.Sprintf("%d.jpg", ada.ID))
	_, err := os.Stat(stored)
	require.NoError(t, err)

	w = env.do(t, http.MethodDelete, path, nil, token)
	assert.Equal(t, http.StatusOK, w.Code)
	_, err = os.Stat(stored)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, avatarRequest(t, path, token, "image/png", bytes.Repeat([]byte("x"), 2048)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInlineAvatarUpload(t *testing.T) {
	env := newAPIEnv(t)
	ada := env.register(t, "ada@example.com", "Ada")
	token := env.login(t, "ada@example.com", "Ada")
	path := fmt.Sprintf("/api/users/%d/avatar", ada.ID)

	image := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("png"))
	w := env.do(t, http.MethodPut, path, dto.AvatarUploadRequest{Image: image}, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var view dto.UserView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, fmt.Sprintf("/files/avatars/%d.png", ada.ID), view.AvatarURL)

	w = env.do(t, http.MethodPut, path, dto.AvatarUploadRequest{Image: "data:image/gif;base64,R0lG"}, token)
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)

	w = env.do(t, http.MethodPut, path, gin.H{}, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
