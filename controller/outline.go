package controller

import (
	"log/slog"
	"net/http"
	"strings"
	"tender-agent-backend/dao"
	"tender-agent-backend/request"
	"tender-agent-backend/response"
	"tender-agent-backend/service/outline"

	"github.com/gin-gonic/gin"
)

// GenerateOutline 需求分析 → 方案大纲 → 产品资料匹配，一次请求完成
func GenerateOutline(c *gin.Context) {
	var req request.GenerateOutlineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error(ErrParseRequest.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrParseRequest.Error(),
		})
		return
	}
	if err := services(); err != nil {
		slog.Error(ErrGenerateOutline.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrGenerateOutline.Error(),
		})
		return
	}

	text, err := requirementText(req.ProjectID)
	if err != nil {
		slog.Error(ErrGenerateOutline.Error(), "err", err)
		c.AbortWithStatusJSON(statusOf(err), response.Response{
			Msg: ErrGenerateOutline.Error(),
		})
		return
	}

	ctx := c.Request.Context()
	analyzer := outline.NewAnalyzer(composeClient)
	analysis, err := analyzer.Analyze(ctx, text)
	if err != nil {
		slog.Error(ErrGenerateOutline.Error(), "stage", "analyze", "err", err)
		c.AbortWithStatusJSON(statusOf(err), response.Response{
			Msg: ErrGenerateOutline.Error(),
		})
		return
	}

	generator := outline.NewGenerator(composeClient)
	generator.WithSuggestions = req.WithSuggestions
	result, err := generator.Generate(ctx, analysis)
	if err != nil {
		slog.Error(ErrGenerateOutline.Error(), "stage", "generate", "err", err)
		c.AbortWithStatusJSON(statusOf(err), response.Response{
			Msg: ErrGenerateOutline.Error(),
		})
		return
	}

	matcher := outline.NewProductMatcher(searchEngine, composeClient)
	matches, err := matcher.Match(ctx, analysis.RequirementCategories)
	if err != nil {
		// 资料匹配失败不阻断大纲返回
		slog.Warn("产品资料匹配失败", "project_id", req.ProjectID, "err", err)
		matches = nil
	}

	c.JSON(http.StatusOK, response.Response{
		Data: gin.H{
			"analysis": analysis,
			"outline":  result,
			"matches":  matches,
		},
	})
}

// requirementText 把项目需求拼成分析输入
func requirementText(projectID string) (string, error) {
	reqs, err := dao.GetProjectRequirements(projectID)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, r := range reqs {
		b.WriteString(string(r.Category))
		b.WriteString("：")
		b.WriteString(r.Detail)
		b.WriteString("\n")
	}
	return b.String(), nil
}
