package controller

import (
	"errors"
	"net/http"
	"tender-agent-backend/apperr"
)

var (
	ErrParseRequest = errors.New("failed to parse request")

	ErrGenerateToken = errors.New("failed to generate token")

	ErrCreateProject   = errors.New("failed to create project")
	ErrGetProject      = errors.New("failed to get project")
	ErrGetProjects     = errors.New("failed to get projects")
	ErrUploadDocument  = errors.New("failed to upload document")
	ErrGetDocument     = errors.New("failed to get document")
	ErrPrepareStep     = errors.New("failed to prepare review step")
	ErrCompleteStep    = errors.New("failed to complete review step")
	ErrEditRequirement = errors.New("failed to edit requirement")
	ErrGetRequirements = errors.New("failed to get requirements")
	ErrSaveBasicInfo   = errors.New("failed to save basic info")

	ErrGenerateOutline  = errors.New("failed to generate outline")
	ErrGenerateProposal = errors.New("failed to generate proposal")

	ErrCreateCheckTask = errors.New("failed to create check task")
	ErrGetCheckTask    = errors.New("failed to get check task")

	ErrCreateTag         = errors.New("failed to create capability tag")
	ErrGetTags           = errors.New("failed to get capability tags")
	ErrDeactivateTag     = errors.New("failed to deactivate capability tag")
	ErrExtractCapability = errors.New("failed to extract capabilities")
	ErrSearchCapability  = errors.New("failed to search capabilities")
	ErrMatchCapability   = errors.New("failed to match capabilities")

	ErrSemanticSearch = errors.New("failed to run semantic search")
)

// statusOf 错误类别到HTTP状态码的映射
func statusOf(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindValidation, apperr.KindParse:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindState:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
