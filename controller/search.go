package controller

import (
	"log/slog"
	"net/http"
	"tender-agent-backend/request"
	"tender-agent-backend/response"
	"tender-agent-backend/service/semanticsearch"

	"github.com/gin-gonic/gin"
)

func SemanticSearch(c *gin.Context) {
	if err := services(); err != nil {
		slog.Error(ErrSemanticSearch.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrSemanticSearch.Error(),
		})
		return
	}

	var req request.SemanticSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error(ErrParseRequest.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrParseRequest.Error(),
		})
		return
	}

	hits, err := searchEngine.Search(c.Request.Context(), semanticsearch.SearchQuery{
		Query:     req.Query,
		TopK:      req.TopK,
		Threshold: req.Threshold,
		Filter:    req.Metadata,
	})
	if err != nil {
		slog.Error(ErrSemanticSearch.Error(), "err", err)
		c.AbortWithStatusJSON(statusOf(err), response.Response{
			Msg: ErrSemanticSearch.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, response.Response{Data: gin.H{"hits": hits}})
}

func SimilarDocuments(c *gin.Context) {
	if err := services(); err != nil {
		slog.Error(ErrSemanticSearch.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrSemanticSearch.Error(),
		})
		return
	}

	hits, err := searchEngine.SimilarDocuments(c.Param("id"), 0, 0)
	if err != nil {
		slog.Error(ErrSemanticSearch.Error(), "err", err)
		c.AbortWithStatusJSON(statusOf(err), response.Response{
			Msg: ErrSemanticSearch.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, response.Response{Data: gin.H{"hits": hits}})
}
