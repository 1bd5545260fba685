package controller

import (
	"log/slog"
	"net/http"
	"path/filepath"
	"tender-agent-backend/dao"
	"tender-agent-backend/model"
	"tender-agent-backend/response"
	"tender-agent-backend/service/ingest"
	"tender-agent-backend/service/mq"

	"github.com/gin-gonic/gin"
)

// CreateCheckTask 接收响应文件并派发检查任务，执行走MQ异步消费
func CreateCheckTask(c *gin.Context) {
	if err := services(); err != nil {
		slog.Error(ErrCreateCheckTask.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrCreateCheckTask.Error(),
		})
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		slog.Error(ErrParseRequest.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrParseRequest.Error(),
		})
		return
	}

	dst := filepath.Join("data", "checks", file.Filename)
	if err := c.SaveUploadedFile(file, dst); err != nil {
		slog.Error(ErrCreateCheckTask.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrCreateCheckTask.Error(),
		})
		return
	}

	task, err := checkRunner.CreateTask(
		c.GetString("company_id"), c.Query("openid"), dst, file.Filename, file.Size)
	if err != nil {
		slog.Error(ErrCreateCheckTask.Error(), "err", err)
		c.AbortWithStatusJSON(statusOf(err), response.Response{
			Msg: ErrCreateCheckTask.Error(),
		})
		return
	}

	if err := mq.SendMessage(c.Request.Context(), &mq.Message{
		Topic:   mq.TopicResponseCheck,
		Tag:     mq.TagCheck,
		Payload: ingest.CheckMessage{TaskID: task.TaskID},
	}); err != nil {
		slog.Error(ErrCreateCheckTask.Error(), "task_id", task.TaskID, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrCreateCheckTask.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, response.Response{
		Data: checkTaskView(task),
	})
}

func GetCheckTask(c *gin.Context) {
	task, err := dao.GetCheckTaskByID(c.Param("id"))
	if err != nil {
		slog.Error(ErrGetCheckTask.Error(), "err", err)
		c.AbortWithStatusJSON(statusOf(err), response.Response{
			Msg: ErrGetCheckTask.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, response.Response{Data: checkTaskView(task)})
}

func GetCheckTasks(c *gin.Context) {
	tasks, err := dao.GetCheckTasksByUser(c.GetString("company_id"))
	if err != nil {
		slog.Error(ErrGetCheckTask.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrGetCheckTask.Error(),
		})
		return
	}

	views := make([]response.CheckTaskResponse, len(tasks))
	for i := range tasks {
		views[i] = checkTaskView(&tasks[i])
	}
	c.JSON(http.StatusOK, response.Response{Data: gin.H{"tasks": views}})
}

func checkTaskView(task *model.ResponseCheckTask) response.CheckTaskResponse {
	return response.CheckTaskResponse{
		TaskID:          task.TaskID,
		Status:          string(task.Status),
		Progress:        task.Progress,
		CurrentCategory: task.CurrentCategory,
		ErrorMessage:    task.ErrorMessage,
		TotalItems:      task.TotalItems,
		PassCount:       task.PassCount,
		FailCount:       task.FailCount,
		UnknownCount:    task.UnknownCount,
		TotalPages:      task.TotalPages,
		AnalysisTime:    task.AnalysisTime,
		ExtractedInfo:   task.ExtractedInfo,
		CheckCategories: task.CheckCategories,
	}
}
