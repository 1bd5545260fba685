package controller

import (
	"context"
	"log/slog"
	"net/http"
	"tender-agent-backend/request"
	"tender-agent-backend/response"
	"tender-agent-backend/service/outline"
	"tender-agent-backend/service/proposal"
	"tender-agent-backend/utils"

	"github.com/gin-gonic/gin"
)

// GenerateProposal 全量生成方案并一次性返回
func GenerateProposal(c *gin.Context) {
	var req request.GenerateProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error(ErrParseRequest.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrParseRequest.Error(),
		})
		return
	}
	if err := services(); err != nil {
		slog.Error(ErrGenerateProposal.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrGenerateProposal.Error(),
		})
		return
	}

	ctx := c.Request.Context()
	o, analysis, matches, err := buildOutline(ctx, req.ProjectID)
	if err != nil {
		slog.Error(ErrGenerateProposal.Error(), "err", err)
		c.AbortWithStatusJSON(statusOf(err), response.Response{
			Msg: ErrGenerateProposal.Error(),
		})
		return
	}

	assembler := proposal.NewAssembler(composeClient, proposal.Mode(req.Mode)).
		WithKBMatches(matches)
	result, err := assembler.Assemble(ctx, o, analysis)
	if err != nil {
		slog.Error(ErrGenerateProposal.Error(), "err", err)
		c.AbortWithStatusJSON(statusOf(err), response.Response{
			Msg: ErrGenerateProposal.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, response.Response{Data: result})
}

// StreamProposal SSE流式生成：章节事件严格有序推送
func StreamProposal(c *gin.Context) {
	var req request.GenerateProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error(ErrParseRequest.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrParseRequest.Error(),
		})
		return
	}
	if err := services(); err != nil {
		slog.Error(ErrGenerateProposal.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrGenerateProposal.Error(),
		})
		return
	}

	ctx := c.Request.Context()
	o, analysis, matches, err := buildOutline(ctx, req.ProjectID)
	if err != nil {
		slog.Error(ErrGenerateProposal.Error(), "err", err)
		c.AbortWithStatusJSON(statusOf(err), response.Response{
			Msg: ErrGenerateProposal.Error(),
		})
		return
	}

	utils.SetSSEHeaders(c)

	assembler := proposal.NewAssembler(composeClient, proposal.Mode(req.Mode)).
		WithKBMatches(matches)
	for event := range assembler.AssembleStream(ctx, o, analysis) {
		utils.SendSSEMessage(c, string(event.Type), event)
	}
}

// buildOutline 方案生成的公共前置：需求分析 → 大纲 → 资料匹配
func buildOutline(ctx context.Context, projectID string) (
	*outline.Outline, *outline.Analysis, map[string][]outline.MatchedDoc, error) {

	text, err := requirementText(projectID)
	if err != nil {
		return nil, nil, nil, err
	}

	analysis, err := outline.NewAnalyzer(composeClient).Analyze(ctx, text)
	if err != nil {
		return nil, nil, nil, err
	}
	o, err := outline.NewGenerator(composeClient).Generate(ctx, analysis)
	if err != nil {
		return nil, nil, nil, err
	}

	matcher := outline.NewProductMatcher(searchEngine, composeClient)
	matches, err := matcher.Match(ctx, analysis.RequirementCategories)
	if err != nil {
		slog.Warn("产品资料匹配失败，方案生成继续", "project_id", projectID, "err", err)
		matches = nil
	}
	return o, analysis, matches, nil
}
