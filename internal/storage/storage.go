package storage

import (
	"authserver/internal/config"
	"context"
	"fmt"
	"io"
	"strings"
)

const (
	// TypeLocal 表示本地文件系统存储。
	TypeLocal = "local"
	// TypeS3 表示 Amazon S3 或兼容的存储后端。
	TypeS3 = "s3"
	// TypeOSS 表示阿里云 OSS 存储。
	TypeOSS = "oss"
	// TypeCOS 表示腾讯云 COS 存储。
	TypeCOS = "cos"
	// TypeR2 表示 Cloudflare R2 存储。
	TypeR2 = "r2"
)

// Metadata 是随对象一起保存的用户元数据。
type Metadata struct {
	UserID           string
	OriginalFileName string
}

// Map 返回后端使用的元数据键值对。空值会被忽略。
func (m Metadata) Map() map[string]string {
	out := make(map[string]string, 2)
	if v := strings.TrimSpace(m.UserID); v != "" {
		out["userId"] = v
	}
	if v := strings.TrimSpace(m.OriginalFileName); v != "" {
		out["originalFileName"] = v
	}
	return out
}

// PutOptions 控制对象的写入方式。
//
// ContentType 为空时根据 key 的扩展名推断；Size 为 0 时由实现自行计算。
type PutOptions struct {
	ContentType string
	Size        int64
	Metadata    Metadata
}

// Storage 是按路径寻址的对象存储抽象。
//
// key 是逻辑路径（例如 avatars/1.jpg），配置的前缀由实现自动添加。
type Storage interface {
	// Put 写入对象并返回其逻辑路径。
	Put(ctx context.Context, key string, body io.ReadSeeker, opts PutOptions) (string, error)
	// Delete 删除对象；对象不存在时不返回错误。
	Delete(ctx context.Context, key string) error
	// URLFor 返回对象的公开访问地址，不产生任何 I/O。
	URLFor(key string) string
}

// LocalBaseDirProvider 由暴露可通过 HTTP 直接提供服务的本地目录的存储驱动实现。
type LocalBaseDirProvider interface {
	LocalBaseDir() string
}

// NewStorage 根据配置实例化存储后端。
func NewStorage(cfg config.Config) (Storage, error) {
	typeName := strings.ToLower(strings.TrimSpace(cfg.StorageType))
	switch typeName {
	case "", TypeLocal:
		return NewLocalStorage(cfg.StorageLocalDir, cfg.StoragePublicBaseURL)
	case TypeS3:
		return NewS3Storage(cfg)
	case TypeOSS:
		return NewOSSStorage(cfg)
	case TypeCOS:
		return NewCOSStorage(cfg)
	case TypeR2:
		return NewR2Storage(cfg)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.StorageType)
	}
}
