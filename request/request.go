package request

import "tender-agent-backend/service/hitl"

type CompanyLoginRequest struct {
	CompanyID string `json:"company_id" binding:"required"`
}

type CreateProjectRequest struct {
	ProjectName string `json:"project_name"`
}

type ConfirmStep1Request struct {
	Selected map[string]bool `json:"selected" binding:"required"`
}

type ReviewStep2Request struct {
	Reviews  []hitl.ChunkReview `json:"reviews"`
	Deselect []string           `json:"deselect"`
}

type EditRequirementRequest struct {
	RequirementID        string  `json:"requirement_id"`
	Operation            string  `json:"operation" binding:"required"`
	ConstraintType       string  `json:"constraint_type"`
	Category             string  `json:"category"`
	Subcategory          string  `json:"subcategory"`
	Detail               string  `json:"detail"`
	Summary              string  `json:"summary"`
	SourceLocation       string  `json:"source_location"`
	Priority             string  `json:"priority"`
	ExtractionConfidence float64 `json:"extraction_confidence"`
	EditedBy             string  `json:"edited_by"`
}

type SaveBasicInfoRequest struct {
	ProjectName     string `json:"project_name"`
	ProjectNumber   string `json:"project_number"`
	Tenderer        string `json:"tenderer"`
	Agency          string `json:"agency"`
	BiddingMethod   string `json:"bidding_method"`
	BiddingLocation string `json:"bidding_location"`
	BiddingTime     string `json:"bidding_time"`
	WinnerCount     string `json:"winner_count"`
	Budget          string `json:"budget"`
}

type GenerateOutlineRequest struct {
	ProjectID       string `json:"project_id" binding:"required"`
	WithSuggestions bool   `json:"with_suggestions"`
}

type GenerateProposalRequest struct {
	ProjectID string `json:"project_id" binding:"required"`
	Mode      string `json:"mode"`
}

type CreateTagRequest struct {
	TagCode    string `json:"tag_code" binding:"required"`
	TagName    string `json:"tag_name" binding:"required"`
	ParentCode string `json:"parent_code"`
	Keywords   string `json:"keywords"`
}

type CapabilitySearchRequest struct {
	Query     string  `json:"query" binding:"required"`
	Method    string  `json:"method"`
	TopK      int     `json:"top_k"`
	Threshold float64 `json:"threshold"`
}

type SemanticSearchRequest struct {
	Query     string         `json:"query" binding:"required"`
	TopK      int            `json:"top_k"`
	Threshold float64        `json:"threshold"`
	Metadata  map[string]any `json:"metadata"`
}
