package controller

import (
	"log/slog"
	"net/http"
	"tender-agent-backend/middleware"
	"tender-agent-backend/request"
	"tender-agent-backend/response"

	"github.com/gin-gonic/gin"
)

func CompanyLogin(c *gin.Context) {
	var req request.CompanyLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error(ErrParseRequest.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrParseRequest.Error(),
		})
		return
	}

	token, err := middleware.GenerateToken(req.CompanyID)
	if err != nil {
		slog.Error(ErrGenerateToken.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrGenerateToken.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, response.Response{
		Data: gin.H{
			"company_id": req.CompanyID,
			"token":      token,
		},
	})
}
