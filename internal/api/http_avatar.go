package api

import (
	"authserver/internal/avatar"
	"authserver/internal/entity/dto"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

const avatarFormField = "avatar"

// UploadAvatar 上传头像
//
// 支持 multipart 字段 avatar，或 JSON 请求体中的 data URL。
func (h *HTTPHandler) UploadAvatar(c *gin.Context) {
	id, ok := h.authorizeTarget(c)
	if !ok {
		return
	}

	var upload avatar.Upload
	if c.ContentType() == binding.MIMEJSON {
		upload, ok = h.readInlineAvatar(c)
	} else {
		upload, ok = h.readMultipartAvatar(c)
	}
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), mutationTimeout)
	defer cancel()

	user, err := h.accounts.SaveAvatar(ctx, id, upload)
	if err != nil {
		ServiceError(c, err)
		return
	}
	h.respondUser(c, http.StatusOK, user)
}

func (h *HTTPHandler) readMultipartAvatar(c *gin.Context) (avatar.Upload, bool) {
	fileHeader, err := c.FormFile(avatarFormField)
	if err != nil {
		MissingField(c, avatarFormField)
		return avatar.Upload{}, false
	}

	maxBytes := h.cfg.AvatarMaxBytes
	if maxBytes > 0 && fileHeader.Size > maxBytes {
		BadRequest(c, ErrCodeInvalidRequest, fmt.Sprintf("avatar exceeds %d bytes", maxBytes))
		return avatar.Upload{}, false
	}

	file, err := fileHeader.Open()
	if err != nil {
		InvalidPayload(c)
		return avatar.Upload{}, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		InvalidPayload(c)
		return avatar.Upload{}, false
	}

	return avatar.Upload{
		Data:        data,
		ContentType: fileHeader.Header.Get("Content-Type"),
		FileName:    fileHeader.Filename,
	}, true
}

func (h *HTTPHandler) readInlineAvatar(c *gin.Context) (avatar.Upload, bool) {
	var req dto.AvatarUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		MissingField(c, "image")
		return avatar.Upload{}, false
	}

	upload, err := avatar.DecodeDataURL(req.Image, req.FileName)
	if err != nil {
		ServiceError(c, err)
		return avatar.Upload{}, false
	}
	return upload, true
}

// DeleteAvatar 删除已存储的头像对象，用户记录保持不变
func (h *HTTPHandler) DeleteAvatar(c *gin.Context) {
	id, ok := h.authorizeTarget(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), mutationTimeout)
	defer cancel()

	removed, err := h.accounts.DeleteAvatar(ctx, id)
	if err != nil {
		ServiceError(c, err)
		return
	}
	if !removed {
		NotFound(c, ErrCodeUserNotFound, "user not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": true})
}
