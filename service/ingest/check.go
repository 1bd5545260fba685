package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"tender-agent-backend/config"
	"tender-agent-backend/service/llmclient"
	"tender-agent-backend/service/responsecheck"

	"github.com/apache/rocketmq-client-go/v2/primitive"
)

// CheckMessage 响应文件检查任务派发消息
type CheckMessage struct {
	TaskID string `json:"task_id"`
}

var (
	runnerOnce sync.Once
	runner     *responsecheck.TaskRunner
)

// checkRunner 延迟构造：模型客户端创建失败时降级为纯规则检查
func checkRunner() *responsecheck.TaskRunner {
	runnerOnce.Do(func() {
		var client *llmclient.Client
		if c, err := llmclient.New(config.Cfg.Model.ExtractModel); err != nil {
			slog.Warn("响应检查模型客户端创建失败，模型类检查将降级", "error", err)
		} else {
			client = c
		}
		runner = responsecheck.NewTaskRunner(parserInstance, responsecheck.NewChecker(client))
	})
	return runner
}

// HandleCheckMessage 消费检查任务消息，整个任务生命周期由 TaskRunner 驱动
func HandleCheckMessage(ctx context.Context, msg *primitive.MessageExt) error {
	var message CheckMessage
	if err := json.Unmarshal(msg.Body, &message); err != nil {
		return fmt.Errorf("failed to unmarshal check message: %v", err)
	}
	if message.TaskID == "" {
		return fmt.Errorf("check message missing task_id")
	}

	// 失败结论写进任务状态，不走MQ重投
	checkRunner().Run(ctx, message.TaskID)
	return nil
}
