// Package database 管理 MySQL（分块登记表）与 Redis（embedding 缓存）连接。
package database

import (
	"fmt"
	"time"

	"docqa-go/internal/model"
	"docqa-go/pkg/log"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// InitMySQL 初始化 MySQL 数据库连接
func InitMySQL(dsn string) error {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return fmt.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)           // 设置空闲连接池中连接的最大数量
	sqlDB.SetMaxOpenConns(100)          // 设置打开数据库连接的最大数量
	sqlDB.SetConnMaxLifetime(time.Hour) // 设置了连接可复用的最大时间

	DB = db
	log.Info("MySQL database connected successfully")
	return nil
}

// Migrate 创建或更新本服务使用的表。
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&model.DocumentChunk{})
}
