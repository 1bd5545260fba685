package responsecheck

import (
	"context"
	"encoding/json"
	"log/slog"
	"tender-agent-backend/dao"
	"tender-agent-backend/model"
	"tender-agent-backend/service/docparse"
	"time"

	"github.com/google/uuid"
)

// 解析前后的固定进度档位，类别检查占 23..95
const (
	progressCreated   = 0
	progressParsing   = 5
	progressParsed    = 10
	progressExtracted = 15
)

// TaskRunner 自检任务执行器，驱动 pending→parsing→checking→completed|failed
type TaskRunner struct {
	parser  *docparse.Parser
	checker *Checker
}

func NewTaskRunner(parser *docparse.Parser, checker *Checker) *TaskRunner {
	return &TaskRunner{parser: parser, checker: checker}
}

// CreateTask 建任务记录，初始 pending/0%
func (r *TaskRunner) CreateTask(userID, openID, filePath, filename string, fileSize int64) (*model.ResponseCheckTask, error) {
	task := &model.ResponseCheckTask{
		TaskID:           uuid.NewString(),
		UserID:           userID,
		OpenID:           openID,
		FilePath:         filePath,
		OriginalFilename: filename,
		FileSize:         fileSize,
		Status:           model.CheckStatusPending,
		Progress:         progressCreated,
		ModelName:        r.checkerModelName(),
	}
	if err := dao.CreateCheckTask(task); err != nil {
		return nil, err
	}
	return task, nil
}

func (r *TaskRunner) checkerModelName() string {
	if r.checker != nil && r.checker.client != nil {
		return r.checker.client.ModelName()
	}
	return ""
}

// Run 执行整条检查流水线。任何错误都收敛为任务 failed，不向上抛。
func (r *TaskRunner) Run(ctx context.Context, taskID string) {
	start := time.Now()

	fail := func(cause error) {
		slog.Error("自检任务失败", "task_id", taskID, "error", cause)
		if err := dao.UpdateCheckTaskStatus(taskID, model.CheckStatusFailed, cause.Error()); err != nil {
			slog.Error("记录任务失败状态出错", "task_id", taskID, "error", err)
		}
	}

	task, err := dao.GetCheckTaskByID(taskID)
	if err != nil {
		slog.Error("自检任务不存在", "task_id", taskID, "error", err)
		return
	}

	if err := dao.UpdateCheckTaskStatus(taskID, model.CheckStatusParsing, ""); err != nil {
		fail(err)
		return
	}
	r.reportProgress(taskID, progressParsing, "解析文档", nil)

	parsed, err := r.parser.Parse(ctx, task.FilePath)
	if err != nil {
		fail(err)
		return
	}
	r.reportProgress(taskID, progressParsed, "解析完成", nil)

	if err := dao.UpdateCheckTaskStatus(taskID, model.CheckStatusChecking, ""); err != nil {
		fail(err)
		return
	}
	r.reportProgress(taskID, progressExtracted, "抽取关键信息", nil)

	report := r.checker.Check(ctx, parsed.Content, func(percent int, category string, completed []CheckCategory) {
		// 崩溃后已完成类别可从任务行恢复
		r.reportProgress(taskID, percent, category, completed)
	})

	extractedJSON, _ := json.Marshal(report.Entities)
	categoriesJSON, _ := json.Marshal(report.Categories)
	if err := dao.SaveCheckTaskResult(taskID, extractedJSON, categoriesJSON,
		report.TotalItems, report.PassCount, report.FailCount, report.UnknownCount,
		parsed.Metadata.Pages, time.Since(start).Seconds()); err != nil {
		fail(err)
		return
	}

	if err := dao.UpdateCheckTaskStatus(taskID, model.CheckStatusCompleted, ""); err != nil {
		fail(err)
		return
	}
	slog.Info("自检任务完成", "task_id", taskID,
		"total", report.TotalItems, "elapsed", time.Since(start).Seconds())
}

func (r *TaskRunner) reportProgress(taskID string, percent int, category string, completed []CheckCategory) {
	var categoriesJSON json.RawMessage
	if len(completed) > 0 {
		categoriesJSON, _ = json.Marshal(completed)
	}
	if err := dao.UpdateCheckTaskProgress(taskID, percent, category, categoriesJSON); err != nil {
		slog.Warn("持久化检查进度失败", "task_id", taskID, "error", err)
	}
}
