package dao

import (
	"fmt"
	"tender-agent-backend/config"
	"tender-agent-backend/model"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// DB 全局数据库实例
var DB *gorm.DB

func Init() error {
	db, err := gorm.Open(mysql.Open(config.Cfg.DB.DSN), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("failed to connect database: %v", err)
	}

	if err := db.AutoMigrate(
		&model.Document{},
		&model.DocumentChunk{},
		&model.TenderProject{},
		&model.TenderChapter{},
		&model.TenderChunk{},
		&model.TenderRequirement{},
		&model.TenderRequirementDraft{},
		&model.FilterReview{},
		&model.UserAction{},
		&model.ResponseCheckTask{},
		&model.CapabilityTag{},
		&model.Capability{},
		&model.CapabilityKeyword{},
		&model.CapabilityMatchHistory{},
		&model.Company{},
	); err != nil {
		return fmt.Errorf("failed to migrate schema: %v", err)
	}

	DB = db
	return nil
}
