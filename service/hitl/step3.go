package hitl

import (
	"context"
	"encoding/json"
	"log/slog"
	"tender-agent-backend/dao"
	"tender-agent-backend/model"
	"tender-agent-backend/service/extractor"
	"tender-agent-backend/service/infoextract"
)

// QualificationStatus 资质清单项与企业档案的比对结果
type QualificationStatus struct {
	Code         string   `json:"code"`
	Name         string   `json:"name"`
	Required     bool     `json:"required"`
	CompanyHas   bool     `json:"company_has"`
	Requirements []string `json:"requirements,omitempty"`
	Description  string   `json:"description,omitempty"`
}

// Step3View 需求编辑视图
type Step3View struct {
	Requirements   []model.TenderRequirement `json:"requirements"`
	BasicInfo      *infoextract.BasicInfo    `json:"basic_info"`
	Qualifications []QualificationStatus     `json:"qualifications"`
}

// PrepareStep3 对有价值分块跑需求抽取，合并资质清单与基本信息。
// 资质类需求与抽取需求一并入库。
func (p *Pipeline) PrepareStep3(ctx context.Context, projectID string) (*Step3View, error) {
	project, err := dao.GetProjectByID(projectID)
	if err != nil {
		return nil, err
	}
	if err := dao.MarkStepInProgress(projectID, 3); err != nil {
		return nil, err
	}

	chunks, err := dao.GetValuableProjectChunks(projectID)
	if err != nil {
		return nil, err
	}
	inputs := make([]extractor.Input, len(chunks))
	for i, chunk := range chunks {
		inputs[i] = extractor.Input{
			ChunkID: chunk.ChunkID,
			Index:   chunk.ChunkIndex,
			Content: chunk.Content,
		}
	}
	reqs, err := p.extractAgent.Extract(ctx, projectID, inputs)
	if err != nil {
		return nil, err
	}

	parsed, err := p.parseProject(ctx, project)
	if err != nil {
		return nil, err
	}
	info := p.info.ExtractBasicInfo(ctx, parsed.Content)
	checklist := infoextract.MatchQualifications(parsed.Content)
	qualReqs := infoextract.QualificationRequirements(projectID, checklist)

	statuses := enrichQualifications(project.CompanyID, checklist)
	qualJSON, _ := json.Marshal(statuses)
	if err := dao.UpdateProjectBasicInfo(projectID, map[string]any{
		"qualifications_data": json.RawMessage(qualJSON),
	}); err != nil {
		return nil, err
	}

	all := append(reqs, qualReqs...)
	if err := dao.CreateRequirements(all); err != nil {
		return nil, err
	}

	slog.Info("步骤3需求就绪", "project_id", projectID,
		"extracted", len(reqs), "qualification", len(qualReqs))
	return &Step3View{
		Requirements:   all,
		BasicInfo:      info,
		Qualifications: statuses,
	}, nil
}

// enrichQualifications 清单项对照企业档案，标注企业是否已具备。
// 企业档案缺失时只返回清单本身。
func enrichQualifications(companyID string, checklist []infoextract.ChecklistResult) []QualificationStatus {
	var companyQuals map[string]model.CompanyQualification
	if company, err := dao.GetCompanyByID(companyID); err == nil && len(company.Qualifications) > 0 {
		if err := json.Unmarshal(company.Qualifications, &companyQuals); err != nil {
			slog.Warn("企业资质档案解析失败", "company_id", companyID, "error", err)
		}
	}

	statuses := make([]QualificationStatus, 0, len(checklist))
	for _, item := range checklist {
		status := QualificationStatus{
			Code:         item.Code,
			Name:         item.ChecklistName,
			Required:     item.Found,
			Requirements: item.Requirements,
		}
		if q, ok := companyQuals[item.Code]; ok {
			status.CompanyHas = true
			status.Description = q.Description
		}
		statuses = append(statuses, status)
	}
	return statuses
}

// EditRequirement 需求增删改，审计行与主表同事务写入
func (p *Pipeline) EditRequirement(projectID string, req *model.TenderRequirement, operation, editedBy string) error {
	req.ProjectID = projectID
	if err := dao.SaveRequirementEdit(req, operation, editedBy); err != nil {
		return err
	}

	data, _ := json.Marshal(map[string]any{
		"requirement_id": req.RequirementID,
		"operation":      operation,
		"edited_by":      editedBy,
	})
	return p.recordAction(projectID, 3, "edit_requirement", data)
}

// SaveBasicInfo 基本信息落库
func (p *Pipeline) SaveBasicInfo(projectID string, info *infoextract.BasicInfo) error {
	if err := dao.UpdateProjectBasicInfo(projectID, map[string]any{
		"project_name":     info.ProjectName,
		"project_number":   info.ProjectNumber,
		"tenderer":         info.Tenderer,
		"agency":           info.Agency,
		"bidding_method":   info.BiddingMethod,
		"bidding_location": info.BiddingLocation,
		"bidding_time":     info.BiddingTime,
		"winner_count":     info.WinnerCount,
		"budget":           info.Budget,
	}); err != nil {
		return err
	}

	data, _ := json.Marshal(info)
	return p.recordAction(projectID, 3, "save_basic_info", data)
}

// CompleteStep3 完成需求确认，项目整体进入 completed
func (p *Pipeline) CompleteStep3(projectID string) error {
	reqs, err := dao.GetProjectRequirements(projectID)
	if err != nil {
		return err
	}
	snapshot, _ := json.Marshal(map[string]any{
		"requirement_count": len(reqs),
	})
	if err := dao.CompleteProjectStep(projectID, 3, snapshot); err != nil {
		return err
	}
	return p.recordAction(projectID, 3, "complete_review", snapshot)
}
