package controller

import (
	"log/slog"
	"net/http"
	"path/filepath"
	"tender-agent-backend/dao"
	"tender-agent-backend/model"
	"tender-agent-backend/request"
	"tender-agent-backend/response"
	"tender-agent-backend/service/infoextract"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func CreateProject(c *gin.Context) {
	var req request.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error(ErrParseRequest.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrParseRequest.Error(),
		})
		return
	}

	project := model.TenderProject{
		ProjectID:     uuid.NewString(),
		CompanyID:     c.GetString("company_id"),
		ProjectName:   req.ProjectName,
		OverallStatus: "pending",
		CurrentStep:   1,
	}
	if err := dao.CreateProject(&project); err != nil {
		slog.Error(ErrCreateProject.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrCreateProject.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, response.Response{
		Data: projectView(&project),
	})
}

func GetProjects(c *gin.Context) {
	projects, err := dao.GetProjectsByCompany(c.GetString("company_id"))
	if err != nil {
		slog.Error(ErrGetProjects.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrGetProjects.Error(),
		})
		return
	}

	var resp response.GetProjectsResponse
	for i := range projects {
		resp.Projects = append(resp.Projects, projectView(&projects[i]))
	}
	c.JSON(http.StatusOK, response.Response{Data: resp})
}

func GetProject(c *gin.Context) {
	project, err := dao.GetProjectByID(c.Param("id"))
	if err != nil {
		slog.Error(ErrGetProject.Error(), "err", err)
		c.AbortWithStatusJSON(statusOf(err), response.Response{
			Msg: ErrGetProject.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, response.Response{Data: project})
}

func projectView(p *model.TenderProject) response.ProjectResponse {
	return response.ProjectResponse{
		ProjectID:      p.ProjectID,
		ProjectName:    p.ProjectName,
		ProjectNumber:  p.ProjectNumber,
		CurrentStep:    p.CurrentStep,
		OverallStatus:  p.OverallStatus,
		Step1Status:    string(p.Step1Status),
		Step2Status:    string(p.Step2Status),
		Step3Status:    string(p.Step3Status),
		EstimatedWords: p.HITLEstimatedWords,
		EstimatedCost:  p.HITLEstimatedCost,
		CreatedAt:      p.CreatedAt,
	}
}

// UploadTenderDocument 接收招标文件并绑定到项目，随后的章节树由步骤1构建
func UploadTenderDocument(c *gin.Context) {
	projectID := c.Param("id")
	file, err := c.FormFile("file")
	if err != nil {
		slog.Error(ErrParseRequest.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrParseRequest.Error(),
		})
		return
	}

	dst := filepath.Join("data", "uploads", projectID+filepath.Ext(file.Filename))
	if err := c.SaveUploadedFile(file, dst); err != nil {
		slog.Error(ErrUploadDocument.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrUploadDocument.Error(),
		})
		return
	}

	if err := dao.UpdateProjectBasicInfo(projectID, map[string]any{
		"tender_document_path": dst,
		"original_filename":    file.Filename,
	}); err != nil {
		slog.Error(ErrUploadDocument.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrUploadDocument.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, response.Response{
		Data: gin.H{"file_path": dst},
	})
}

func PrepareStep1(c *gin.Context) {
	if err := services(); err != nil {
		slog.Error(ErrPrepareStep.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrPrepareStep.Error(),
		})
		return
	}

	view, err := hitlPipeline.PrepareStep1(c.Request.Context(), c.Param("id"))
	if err != nil {
		slog.Error(ErrPrepareStep.Error(), "step", 1, "err", err)
		c.AbortWithStatusJSON(statusOf(err), response.Response{
			Msg: ErrPrepareStep.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, response.Response{Data: view})
}

func ConfirmStep1(c *gin.Context) {
	var req request.ConfirmStep1Request
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error(ErrParseRequest.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrParseRequest.Error(),
		})
		return
	}
	if err := services(); err != nil {
		slog.Error(ErrCompleteStep.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrCompleteStep.Error(),
		})
		return
	}

	if err := hitlPipeline.ConfirmStep1(c.Param("id"), req.Selected); err != nil {
		slog.Error(ErrCompleteStep.Error(), "step", 1, "err", err)
		c.AbortWithStatusJSON(statusOf(err), response.Response{
			Msg: ErrCompleteStep.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, response.Response{})
}

func PrepareStep2(c *gin.Context) {
	if err := services(); err != nil {
		slog.Error(ErrPrepareStep.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrPrepareStep.Error(),
		})
		return
	}

	view, err := hitlPipeline.PrepareStep2(c.Request.Context(), c.Param("id"))
	if err != nil {
		slog.Error(ErrPrepareStep.Error(), "step", 2, "err", err)
		c.AbortWithStatusJSON(statusOf(err), response.Response{
			Msg: ErrPrepareStep.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, response.Response{Data: view})
}

func ReviewStep2(c *gin.Context) {
	var req request.ReviewStep2Request
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error(ErrParseRequest.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrParseRequest.Error(),
		})
		return
	}
	if err := services(); err != nil {
		slog.Error(ErrCompleteStep.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrCompleteStep.Error(),
		})
		return
	}

	if err := hitlPipeline.ReviewStep2(c.Param("id"), req.Reviews, req.Deselect); err != nil {
		slog.Error(ErrCompleteStep.Error(), "step", 2, "err", err)
		c.AbortWithStatusJSON(statusOf(err), response.Response{
			Msg: ErrCompleteStep.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, response.Response{})
}

func PrepareStep3(c *gin.Context) {
	if err := services(); err != nil {
		slog.Error(ErrPrepareStep.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrPrepareStep.Error(),
		})
		return
	}

	view, err := hitlPipeline.PrepareStep3(c.Request.Context(), c.Param("id"))
	if err != nil {
		slog.Error(ErrPrepareStep.Error(), "step", 3, "err", err)
		c.AbortWithStatusJSON(statusOf(err), response.Response{
			Msg: ErrPrepareStep.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, response.Response{Data: view})
}

func GetRequirements(c *gin.Context) {
	reqs, err := dao.GetProjectRequirements(c.Param("id"))
	if err != nil {
		slog.Error(ErrGetRequirements.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrGetRequirements.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, response.Response{Data: gin.H{"requirements": reqs}})
}

func EditRequirement(c *gin.Context) {
	var req request.EditRequirementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error(ErrParseRequest.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrParseRequest.Error(),
		})
		return
	}
	if err := services(); err != nil {
		slog.Error(ErrEditRequirement.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrEditRequirement.Error(),
		})
		return
	}

	requirementID := req.RequirementID
	if requirementID == "" {
		requirementID = uuid.NewString()
	}
	row := &model.TenderRequirement{
		RequirementID:        requirementID,
		ConstraintType:       model.ConstraintType(req.ConstraintType),
		Category:             model.RequirementCategory(req.Category),
		Subcategory:          req.Subcategory,
		Detail:               req.Detail,
		Summary:              req.Summary,
		SourceLocation:       req.SourceLocation,
		Priority:             model.Priority(req.Priority),
		ExtractionConfidence: req.ExtractionConfidence,
	}
	if err := hitlPipeline.EditRequirement(c.Param("id"), row, req.Operation, req.EditedBy); err != nil {
		slog.Error(ErrEditRequirement.Error(), "err", err)
		c.AbortWithStatusJSON(statusOf(err), response.Response{
			Msg: ErrEditRequirement.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, response.Response{Data: gin.H{"requirement_id": requirementID}})
}

func SaveBasicInfo(c *gin.Context) {
	var req request.SaveBasicInfoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error(ErrParseRequest.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrParseRequest.Error(),
		})
		return
	}
	if err := services(); err != nil {
		slog.Error(ErrSaveBasicInfo.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrSaveBasicInfo.Error(),
		})
		return
	}

	info := &infoextract.BasicInfo{
		ProjectName:     req.ProjectName,
		ProjectNumber:   req.ProjectNumber,
		Tenderer:        req.Tenderer,
		Agency:          req.Agency,
		BiddingMethod:   req.BiddingMethod,
		BiddingLocation: req.BiddingLocation,
		BiddingTime:     req.BiddingTime,
		WinnerCount:     req.WinnerCount,
		Budget:          req.Budget,
	}
	if err := hitlPipeline.SaveBasicInfo(c.Param("id"), info); err != nil {
		slog.Error(ErrSaveBasicInfo.Error(), "err", err)
		c.AbortWithStatusJSON(statusOf(err), response.Response{
			Msg: ErrSaveBasicInfo.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, response.Response{})
}

func CompleteStep3(c *gin.Context) {
	if err := services(); err != nil {
		slog.Error(ErrCompleteStep.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrCompleteStep.Error(),
		})
		return
	}

	if err := hitlPipeline.CompleteStep3(c.Param("id")); err != nil {
		slog.Error(ErrCompleteStep.Error(), "step", 3, "err", err)
		c.AbortWithStatusJSON(statusOf(err), response.Response{
			Msg: ErrCompleteStep.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, response.Response{})
}
