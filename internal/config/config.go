package config

import (
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/sirupsen/logrus"
)

type Config struct {
	HTTPPort string `env:"HTTP_PORT" envDefault:"8080"`

	DBType     string `env:"DBType" envDefault:"sqlite"`
	DSNURL     string `env:"DSN_URL" envDefault:""`
	DBUser     string `env:"DBUser" envDefault:""`
	DBPassword string `env:"DBPassword" envDefault:""`
	DBAddr     string `env:"DBAddr" envDefault:""`
	DBName     string `env:"DBName" envDefault:"authserver"`
	DBPath     string `env:"DBPath" envDefault:"datas/authserver.db"`
	DBPort     string `env:"DBPort" envDefault:"3306"`

	StorageType          string `env:"STORAGE_TYPE" envDefault:"local"`
	StorageLocalDir      string `env:"STORAGE_LOCAL_DIR" envDefault:"datas/files"`
	StoragePublicBaseURL string `env:"STORAGE_PUBLIC_BASE_URL" envDefault:"/files"`

	// S3 compatible storage
	StorageS3Region          string `env:"STORAGE_S3_REGION" envDefault:"us-east-1"`
	StorageS3Bucket          string `env:"STORAGE_S3_BUCKET"`
	StorageS3Prefix          string `env:"STORAGE_S3_PREFIX"`
	StorageS3Endpoint        string `env:"STORAGE_S3_ENDPOINT"`
	StorageS3AccessKeyID     string `env:"STORAGE_S3_ACCESS_KEY_ID"`
	StorageS3SecretAccessKey string `env:"STORAGE_S3_SECRET_ACCESS_KEY"`
	StorageS3SessionToken    string `env:"STORAGE_S3_SESSION_TOKEN"`
	StorageS3ForcePathStyle  bool   `env:"STORAGE_S3_FORCE_PATH_STYLE" envDefault:"false"`

	// Aliyun OSS
	StorageOSSEndpoint        string `env:"STORAGE_OSS_ENDPOINT"`
	StorageOSSBucket          string `env:"STORAGE_OSS_BUCKET"`
	StorageOSSPrefix          string `env:"STORAGE_OSS_PREFIX"`
	StorageOSSAccessKeyID     string `env:"STORAGE_OSS_ACCESS_KEY_ID"`
	StorageOSSAccessKeySecret string `env:"STORAGE_OSS_ACCESS_KEY_SECRET"`

	// Tencent COS
	StorageCOSBucketURL string `env:"STORAGE_COS_BUCKET_URL"`
	StorageCOSPrefix    string `env:"STORAGE_COS_PREFIX"`
	StorageCOSSecretID  string `env:"STORAGE_COS_SECRET_ID"`
	StorageCOSSecretKey string `env:"STORAGE_COS_SECRET_KEY"`

	// Cloudflare R2
	StorageR2AccountID       string `env:"STORAGE_R2_ACCOUNT_ID"`
	StorageR2Endpoint        string `env:"STORAGE_R2_ENDPOINT"`
	StorageR2Region          string `env:"STORAGE_R2_REGION" envDefault:"auto"`
	StorageR2Bucket          string `env:"STORAGE_R2_BUCKET"`
	StorageR2Prefix          string `env:"STORAGE_R2_PREFIX"`
	StorageR2AccessKeyID     string `env:"STORAGE_R2_ACCESS_KEY_ID"`
	StorageR2SecretAccessKey string `env:"STORAGE_R2_SECRET_ACCESS_KEY"`

	// Avatar resolution
	AvatarFolder        string        `env:"AVATAR_FOLDER" envDefault:"avatars"`
	AvatarDefault       string        `env:"AVATAR_DEFAULT" envDefault:"default-avatar.jpg"`
	AvatarStagingDir    string        `env:"AVATAR_STAGING_DIR" envDefault:""`
	AvatarGravatarURL   string        `env:"AVATAR_GRAVATAR_URL" envDefault:"https://www.gravatar.com/avatar"`
	AvatarUIAvatarsURL  string        `env:"AVATAR_UIAVATARS_URL" envDefault:"https://ui-avatars.com/api/"`
	AvatarHTTPTimeout   time.Duration `env:"AVATAR_HTTP_TIMEOUT" envDefault:"5s"`
	AvatarMaxBytes      int64         `env:"AVATAR_MAX_BYTES" envDefault:"5242880"`
	AvatarStoreTimeout  time.Duration `env:"AVATAR_STORE_TIMEOUT" envDefault:"15s"`
	AvatarRemoveTimeout time.Duration `env:"AVATAR_REMOVE_TIMEOUT" envDefault:"5s"`

	JWTSecret            string `env:"JWT_SECRET" envDefault:"dev-secret-change-me"`
	JWTIssuer            string `env:"JWT_ISSUER" envDefault:"authserver"`
	JWTExpirationMinutes int    `env:"JWT_EXPIRATION_MINUTES" envDefault:"1440"`

	// plain compares the stored credential literally; bcrypt hashes it on insert.
	AuthCredentialMode string `env:"AUTH_CREDENTIAL_MODE" envDefault:"plain"`

	SeedRoles         []string `env:"SEED_ROLES" envSeparator:"," envDefault:"ADMIN,USER"`
	SeedAdminEmail    string   `env:"SEED_ADMIN_EMAIL" envDefault:""`
	SeedAdminPassword string   `env:"SEED_ADMIN_PASSWORD" envDefault:""`
	SeedAdminName     string   `env:"SEED_ADMIN_NAME" envDefault:"Administrator"`
}

func ParseConfig() (Config, error) {
	var Conf Config
	err := env.Parse(&Conf)
	if err != nil {
		logrus.WithError(err).Error("env.Parse error")
		return Config{}, err
	}
	logrus.WithFields(logrus.Fields{
		"db_type":         Conf.DBType,
		"storage_type":    Conf.StorageType,
		"credential_mode": Conf.AuthCredentialMode,
	}).Debug("config parsed")
	return Conf, nil
}
