package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"tender-agent-backend/config"
	"tender-agent-backend/dao"
	"tender-agent-backend/model"
	"tender-agent-backend/service/chunker"
	"tender-agent-backend/service/cleaner"
	"tender-agent-backend/service/docparse"

	"github.com/aliyun/alibabacloud-oss-go-sdk-v2/oss"
	"github.com/aliyun/alibabacloud-oss-go-sdk-v2/oss/credentials"
	"github.com/apache/rocketmq-client-go/v2/primitive"
	"github.com/google/uuid"
)

// DocumentMessage 文档入库消息：OSS对象 → 解析 → 清洗 → 分块 → 入库
type DocumentMessage struct {
	DocID      string `json:"doc_id"`
	FileType   string `json:"file_type"`
	ObjectName string `json:"object_name"`
}

var (
	parserInstance  = docparse.NewParser(nil)
	chunkerInstance = chunker.New(chunker.DefaultConfig())
)

// HandleDocumentMessage 消费文档入库消息。
// 解析状态单调推进：processing → completed / failed，终态不再变更。
func HandleDocumentMessage(ctx context.Context, msg *primitive.MessageExt) error {
	var message DocumentMessage
	if err := json.Unmarshal(msg.Body, &message); err != nil {
		return fmt.Errorf("failed to unmarshal document message: %v", err)
	}

	if err := dao.UpdateDocumentParseStatus(message.DocID, model.ParseStatusProcessing, ""); err != nil {
		return err
	}

	started := time.Now()
	result, err := processObject(ctx, &message)
	if err != nil {
		if stateErr := dao.UpdateDocumentParseStatus(
			message.DocID, model.ParseStatusFailed, err.Error()); stateErr != nil {
			slog.Error("文档解析失败状态写入失败", "doc_id", message.DocID, "error", stateErr)
		}
		return fmt.Errorf("failed to process document %s: %v", message.DocID, err)
	}

	if err := dao.UpdateDocumentParseResult(
		message.DocID, result.Metadata.Pages, time.Since(started).Seconds()); err != nil {
		return err
	}
	if err := dao.UpdateDocumentParseStatus(message.DocID, model.ParseStatusCompleted, ""); err != nil {
		return err
	}

	slog.Info("文档入库完成", "doc_id", message.DocID,
		"pages", result.Metadata.Pages, "elapsed", time.Since(started).Seconds())
	return nil
}

// processObject 拉取OSS对象落临时文件后走 解析→清洗→分块 流水线
func processObject(ctx context.Context, message *DocumentMessage) (*docparse.Result, error) {
	data, err := getObjectFromOSS(ctx, message.ObjectName)
	if err != nil {
		return nil, err
	}

	path, cleanup, err := writeTempFile(data, message.FileType)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	result, err := parserInstance.Parse(ctx, path)
	if err != nil {
		return nil, err
	}
	result.Content = cleaner.Clean(result.Content, fileTypeOf(message.FileType))

	chunks := chunkerInstance.Chunk(result.Content, result.Metadata.Headings)
	rows := make([]model.DocumentChunk, len(chunks))
	for i, chunk := range chunks {
		rows[i] = model.DocumentChunk{
			ChunkID:      uuid.NewString(),
			DocID:        message.DocID,
			ChunkIndex:   chunk.Index,
			ChunkType:    chunk.Type,
			Content:      chunk.Content,
			Tokens:       chunk.Tokens,
			SectionTitle: chunk.SectionTitle,
			SectionLevel: chunk.SectionLevel,
			StartPos:     chunk.StartPos,
			EndPos:       chunk.EndPos,
			IsFromTOC:    chunk.IsFromTOC,
		}
	}
	if err := dao.ReplaceDocumentChunks(message.DocID, rows); err != nil {
		return nil, err
	}
	return result, nil
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

func writeTempFile(data []byte, ext string) (string, func(), error) {
	f, err := os.CreateTemp("", "ingest-*."+ext)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temp file: %v", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", nil, fmt.Errorf("failed to write temp file: %v", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", nil, err
	}
	name := f.Name()
	return name, func() { os.Remove(name) }, nil
}

func getObjectFromOSS(ctx context.Context, objectName string) ([]byte, error) {
	cfg := &oss.Config{
		Region: oss.Ptr(config.Cfg.OSS.Region),
		CredentialsProvider: credentials.NewStaticCredentialsProvider(
			config.Cfg.OSS.AccessKeyID,
			config.Cfg.OSS.AccessKeySecret,
		),
	}
	client := oss.NewClient(cfg)

	result, err := client.GetObject(ctx, &oss.GetObjectRequest{
		Bucket: oss.Ptr(config.Cfg.OSS.BucketName),
		Key:    oss.Ptr(objectName),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get object from oss: %v", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object: %v", err)
	}
	return data, nil
}

// PutObject 上传文件到OSS，返回对象名
func PutObject(ctx context.Context, localPath, prefix string) (string, error) {
	cfg := &oss.Config{
		Region: oss.Ptr(config.Cfg.OSS.Region),
		CredentialsProvider: credentials.NewStaticCredentialsProvider(
			config.Cfg.OSS.AccessKeyID,
			config.Cfg.OSS.AccessKeySecret,
		),
	}
	client := oss.NewClient(cfg)

	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %v", err)
	}
	defer f.Close()

	objectName := prefix + "/" + uuid.NewString() + filepath.Ext(localPath)
	if _, err := client.PutObject(ctx, &oss.PutObjectRequest{
		Bucket: oss.Ptr(config.Cfg.OSS.BucketName),
		Key:    oss.Ptr(objectName),
		Body:   f,
	}); err != nil {
		return "", fmt.Errorf("failed to put object to oss: %v", err)
	}
	return objectName, nil
}
