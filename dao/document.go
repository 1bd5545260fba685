package dao

import (
	"errors"
	"tender-agent-backend/apperr"
	"tender-agent-backend/model"

	"gorm.io/gorm"
)

func CreateDocument(doc *model.Document) error {
	return DB.Create(doc).Error
}

func GetDocumentByID(docID string) (*model.Document, error) {
	var doc model.Document
	if err := DB.Where("doc_id = ?", docID).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("document not found: " + docID)
		}
		return nil, err
	}
	return &doc, nil
}

// UpdateDocumentParseStatus 解析状态迁移，非法迁移返回 StateError
func UpdateDocumentParseStatus(docID string, next model.ParseStatus, parseErr string) error {
	return DB.Transaction(func(tx *gorm.DB) error {
		var doc model.Document
		if err := tx.Where("doc_id = ?", docID).First(&doc).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("document not found: " + docID)
			}
			return err
		}

		if !doc.ParseStatus.CanTransition(next) {
			return apperr.State("illegal parse status transition: " +
				string(doc.ParseStatus) + " -> " + string(next))
		}

		updates := map[string]any{"parse_status": next}
		if parseErr != "" {
			updates["parse_error"] = parseErr
		}
		return tx.Model(&model.Document{}).
			Where("doc_id = ?", docID).
			Updates(updates).Error
	})
}

func UpdateDocumentParseResult(docID string, pages int, parseTime float64) error {
	return DB.Model(&model.Document{}).
		Where("doc_id = ?", docID).
		Updates(map[string]any{
			"pages":      pages,
			"parse_time": parseTime,
		}).Error
}

// ReplaceDocumentChunks 重新解析时整组替换分块
func ReplaceDocumentChunks(docID string, chunks []model.DocumentChunk) error {
	return DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("doc_id = ?", docID).
			Delete(&model.DocumentChunk{}).Error; err != nil {
			return err
		}
		if len(chunks) > 0 {
			if err := tx.CreateInBatches(chunks, 100).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func GetDocumentChunks(docID string) ([]model.DocumentChunk, error) {
	var chunks []model.DocumentChunk
	if err := DB.Where("doc_id = ?", docID).
		Order("chunk_index ASC").
		Find(&chunks).Error; err != nil {
		return nil, err
	}
	return chunks, nil
}
