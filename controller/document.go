package controller

import (
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"tender-agent-backend/dao"
	"tender-agent-backend/model"
	"tender-agent-backend/response"
	"tender-agent-backend/service/ingest"
	"tender-agent-backend/service/mq"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// UploadCompanyDocument 上传能力库文档，解析走MQ异步消费
func UploadCompanyDocument(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		slog.Error(ErrParseRequest.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrParseRequest.Error(),
		})
		return
	}

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(file.Filename)), ".")
	docID := uuid.NewString()

	dst := filepath.Join("data", "uploads", docID+"."+ext)
	if err := c.SaveUploadedFile(file, dst); err != nil {
		slog.Error(ErrUploadDocument.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrUploadDocument.Error(),
		})
		return
	}

	objectName, err := ingest.PutObject(c.Request.Context(), dst, "documents")
	if err != nil {
		slog.Error(ErrUploadDocument.Error(), "doc_id", docID, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrUploadDocument.Error(),
		})
		return
	}

	doc := &model.Document{
		DocID:       docID,
		FileName:    file.Filename,
		FilePath:    objectName,
		FileType:    fileTypeOf(ext),
		FileSize:    file.Size,
		ParseStatus: model.ParseStatusPending,
		UploadTime:  time.Now(),
		LibraryID:   c.PostForm("library_id"),
	}
	if err := dao.CreateDocument(doc); err != nil {
		slog.Error(ErrUploadDocument.Error(), "doc_id", docID, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrUploadDocument.Error(),
		})
		return
	}

	if err := mq.SendMessage(c.Request.Context(), &mq.Message{
		Topic:   mq.TopicDocumentIngest,
		Tag:     mq.TagDocument,
		Payload: ingest.DocumentMessage{DocID: docID, FileType: ext, ObjectName: objectName},
	}); err != nil {
		slog.Error(ErrUploadDocument.Error(), "doc_id", docID, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrUploadDocument.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, response.Response{
		Data: response.UploadDocumentResponse{DocID: docID, ObjectName: objectName},
	})
}

func GetDocument(c *gin.Context) {
	doc, err := dao.GetDocumentByID(c.Param("docId"))
	if err != nil {
		slog.Error(ErrGetDocument.Error(), "err", err)
		c.AbortWithStatusJSON(statusOf(err), response.Response{
			Msg: ErrGetDocument.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, response.Response{Data: doc})
}

func fileTypeOf(ext string) model.FileType {
	switch ext {
	case "pdf":
		return model.FileTypePDF
	case "doc", "docx":
		return model.FileTypeWord
	default:
		return model.FileTypeText
	}
}
