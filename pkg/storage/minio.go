// Package storage 提供了与对象存储服务（MinIO）交互的功能，作为语料的远端来源。
package storage

import (
	"context"
	"fmt"

	"docqa-go/internal/config"
	"docqa-go/pkg/log"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioClient 是一个全局的 MinIO 客户端实例。
var MinioClient *minio.Client

// NewClient 创建 MinIO 客户端。
func NewClient(cfg config.MinIOConfig) (*minio.Client, error) {
	return minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
}

// InitMinIO 初始化 MinIO 客户端并确保语料存储桶存在。
func InitMinIO(ctx context.Context, cfg config.MinIOConfig) error {
	client, err := NewClient(cfg)
	if err != nil {
		return fmt.Errorf("初始化 MinIO 客户端失败: %w", err)
	}
	MinioClient = client
	log.Info("MinIO 客户端初始化成功")

	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return fmt.Errorf("检查 MinIO 存储桶失败: %w", err)
	}
	if exists {
		log.Infof("存储桶 '%s' 已存在", cfg.BucketName)
		return nil
	}
	log.Infof("存储桶 '%s' 不存在，正在创建...", cfg.BucketName)
	if err := client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("创建 MinIO 存储桶失败: %w", err)
	}
	log.Infof("存储桶 '%s' 创建成功", cfg.BucketName)
	return nil
}
