package controller

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"tender-agent-backend/config"
	"tender-agent-backend/dao"
	"tender-agent-backend/model"
	"tender-agent-backend/request"
	"tender-agent-backend/response"
	"tender-agent-backend/service/capability"

	"github.com/gin-gonic/gin"
)

// InitCapabilityTags 初始化企业默认标签体系，已存在的跳过
func InitCapabilityTags(c *gin.Context) {
	manager := capability.NewTagManager(c.GetString("company_id"))
	if err := manager.InitDefaults(); err != nil {
		slog.Error(ErrCreateTag.Error(), "err", err)
		c.AbortWithStatusJSON(statusOf(err), response.Response{
			Msg: ErrCreateTag.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, response.Response{})
}

func CreateCapabilityTag(c *gin.Context) {
	var req request.CreateTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error(ErrParseRequest.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrParseRequest.Error(),
		})
		return
	}

	companyID := c.GetString("company_id")
	tag := &model.CapabilityTag{
		CompanyID: companyID,
		TagName:   req.TagName,
		TagCode:   req.TagCode,
		IsActive:  true,
	}
	if req.Keywords != "" {
		keywords, _ := json.Marshal([]string{req.Keywords})
		tag.ExampleKeywords = keywords
	}
	if req.ParentCode != "" {
		parent, err := dao.GetCapabilityTagByCode(companyID, req.ParentCode)
		if err != nil || parent == nil {
			slog.Error(ErrCreateTag.Error(), "parent_code", req.ParentCode, "err", err)
			c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
				Msg: ErrCreateTag.Error(),
			})
			return
		}
		tag.ParentTagID = parent.ID
	}

	manager := capability.NewTagManager(companyID)
	if err := manager.CreateTag(tag); err != nil {
		slog.Error(ErrCreateTag.Error(), "err", err)
		c.AbortWithStatusJSON(statusOf(err), response.Response{
			Msg: ErrCreateTag.Error(),
		})
		return
	}
	c.JSON(http.StatusCreated, response.Response{Data: tag})
}

func GetCapabilityTags(c *gin.Context) {
	manager := capability.NewTagManager(c.GetString("company_id"))
	tags, err := manager.Tags()
	if err != nil {
		slog.Error(ErrGetTags.Error(), "err", err)
		c.AbortWithStatusJSON(statusOf(err), response.Response{
			Msg: ErrGetTags.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, response.Response{Data: gin.H{"tags": tags}})
}

func DeactivateCapabilityTag(c *gin.Context) {
	manager := capability.NewTagManager(c.GetString("company_id"))
	if err := manager.Deactivate(c.Param("code")); err != nil {
		slog.Error(ErrDeactivateTag.Error(), "err", err)
		c.AbortWithStatusJSON(statusOf(err), response.Response{
			Msg: ErrDeactivateTag.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, response.Response{})
}

// ExtractCapabilities 从已入库文档的分块中抽取企业能力
func ExtractCapabilities(c *gin.Context) {
	if err := services(); err != nil {
		slog.Error(ErrExtractCapability.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrExtractCapability.Error(),
		})
		return
	}

	docID := c.Param("docId")
	chunks, err := dao.GetDocumentChunks(docID)
	if err != nil {
		slog.Error(ErrExtractCapability.Error(), "doc_id", docID, "err", err)
		c.AbortWithStatusJSON(statusOf(err), response.Response{
			Msg: ErrExtractCapability.Error(),
		})
		return
	}

	extractor := capability.NewExtractor(extractClient, embedService, config.Cfg.Embedding.Model)
	capabilities, err := extractor.ExtractFromChunks(
		c.Request.Context(), c.GetString("company_id"), docID, chunks)
	if err != nil {
		slog.Error(ErrExtractCapability.Error(), "doc_id", docID, "err", err)
		c.AbortWithStatusJSON(statusOf(err), response.Response{
			Msg: ErrExtractCapability.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, response.Response{Data: gin.H{"capabilities": capabilities}})
}

func SearchCapabilities(c *gin.Context) {
	var req request.CapabilitySearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error(ErrParseRequest.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrParseRequest.Error(),
		})
		return
	}
	if err := services(); err != nil {
		slog.Error(ErrSearchCapability.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrSearchCapability.Error(),
		})
		return
	}

	method := capability.SearchMethod(req.Method)
	if req.Method == "" {
		method = capability.MethodHybrid
	}
	searcher := capability.NewSearcher(c.GetString("company_id"), embedService)
	hits, err := searcher.Search(c.Request.Context(), req.Query, method, req.TopK)
	if err != nil {
		slog.Error(ErrSearchCapability.Error(), "err", err)
		c.AbortWithStatusJSON(statusOf(err), response.Response{
			Msg: ErrSearchCapability.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, response.Response{Data: gin.H{"hits": hits}})
}

// MatchRequirements 项目需求与企业能力批量匹配，写入匹配历史
func MatchRequirements(c *gin.Context) {
	if err := services(); err != nil {
		slog.Error(ErrMatchCapability.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrMatchCapability.Error(),
		})
		return
	}

	projectID := c.Param("id")
	reqs, err := dao.GetProjectRequirements(projectID)
	if err != nil {
		slog.Error(ErrMatchCapability.Error(), "err", err)
		c.AbortWithStatusJSON(statusOf(err), response.Response{
			Msg: ErrMatchCapability.Error(),
		})
		return
	}

	details := make([]string, len(reqs))
	for i, r := range reqs {
		details[i] = r.Detail
	}

	searcher := capability.NewSearcher(c.GetString("company_id"), embedService)
	result, err := searcher.BatchMatch(
		c.Request.Context(), projectID, "", details, capability.MethodHybrid)
	if err != nil {
		slog.Error(ErrMatchCapability.Error(), "err", err)
		c.AbortWithStatusJSON(statusOf(err), response.Response{
			Msg: ErrMatchCapability.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, response.Response{Data: result})
}
