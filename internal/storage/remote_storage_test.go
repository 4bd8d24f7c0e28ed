package storage

import (
	"authserver/internal/config"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		StorageLocalDir:      t.TempDir(),
		StoragePublicBaseURL: "/files",
	}
}

func TestS3StorageURLFor(t *testing.T) {
	cfg := testConfig(t)
	cfg.StorageType = TypeS3
	cfg.StorageS3Bucket = "authserver-public"
	cfg.StorageS3Region = "us-east-1"
	cfg.StorageS3AccessKeyID = "AKIA"
	cfg.StorageS3SecretAccessKey = "secret"

	store, err := NewStorage(cfg)
	require.NoError(t, err)
	assert.Equal(t, "https://authserver-public.s3.us-east-1.amazonaws.com/avatars/1.jpg", store.URLFor("avatars/1.jpg"))

	cfg.StorageS3Prefix = "prod"
	store, err = NewStorage(cfg)
	require.NoError(t, err)
	assert.Equal(t, "https://authserver-public.s3.us-east-1.amazonaws.com/prod/avatars/1.jpg", store.URLFor("avatars/1.jpg"))

	cfg.StoragePublicBaseURL = "https://cdn.example.com"
	store, err = NewStorage(cfg)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/prod/avatars/1.jpg", store.URLFor("avatars/1.jpg"))
}

func TestS3PublicBase(t *testing.T) {
	assert.Equal(t, "https://b.s3.eu-west-1.amazonaws.com", s3PublicBase("b", "eu-west-1", "", false))
	assert.Equal(t, "http://localhost:9000/b", s3PublicBase("b", "us-east-1", "http://localhost:9000/", true))
	assert.Equal(t, "https://b.minio.example.com", s3PublicBase("b", "us-east-1", "minio.example.com", false))
}

func TestS3StorageRequiresCredentials(t *testing.T) {
	cfg := testConfig(t)
	cfg.StorageType = TypeS3
	cfg.StorageS3Bucket = "bucket"

	_, err := NewStorage(cfg)
	assert.Error(t, err)

	cfg.StorageS3Bucket = ""
	cfg.StorageS3AccessKeyID = "a"
	cfg.StorageS3SecretAccessKey = "b"
	_, err = NewStorage(cfg)
	assert.Error(t, err)
}

func TestR2StorageURLFor(t *testing.T) {
	cfg := testConfig(t)
	cfg.StorageType = TypeR2
	cfg.StorageR2Bucket = "avatars-bucket"
	cfg.StorageR2AccountID = "acct"
	cfg.StorageR2AccessKeyID = "a"
	cfg.StorageR2SecretAccessKey = "b"

	store, err := NewStorage(cfg)
	require.NoError(t, err)
	assert.Equal(t, "https://acct.r2.cloudflarestorage.com/avatars-bucket/avatars/1.jpg", store.URLFor("avatars/1.jpg"))
}

func TestOSSPublicBase(t *testing.T) {
	assert.Equal(t, "https://b.oss-cn-hangzhou.aliyuncs.com", ossPublicBase("b", "oss-cn-hangzhou.aliyuncs.com"))
	assert.Equal(t, "http://b.oss-cn-hangzhou.aliyuncs.com", ossPublicBase("b", "http://oss-cn-hangzhou.aliyuncs.com/"))
}

func TestCOSStorageURLFor(t *testing.T) {
	cfg := testConfig(t)
	cfg.StorageType = TypeCOS
	cfg.StorageCOSBucketURL = "https://examplebucket-1250000000.cos.ap-guangzhou.myqcloud.com"
	cfg.StorageCOSSecretID = "id"
	cfg.StorageCOSSecretKey = "key"
	cfg.StorageCOSPrefix = "/app/"

	store, err := NewStorage(cfg)
	require.NoError(t, err)
	assert.Equal(t, "https://examplebucket-1250000000.cos.ap-guangzhou.myqcloud.com/app/avatars/1.jpg", store.URLFor("avatars/1.jpg"))
}

func TestMetadataMapSkipsBlankValues(t *testing.T) {
	assert.Equal(t, map[string]string{"userId": "1"}, Metadata{UserID: "1", OriginalFileName: "  "}.Map())
	assert.Empty(t, Metadata{}.Map())
}
