package capability

import (
	"encoding/json"
	"log/slog"
	"tender-agent-backend/apperr"
	"tender-agent-backend/dao"
	"tender-agent-backend/model"
)

// 默认标签集，新企业初始化时写入
var defaultTags = []struct {
	code     string
	name     string
	keywords []string
}{
	{"risk_control", "风控能力", []string{"风险识别", "反欺诈", "风控模型"}},
	{"repair_service", "维修服务", []string{"上门维修", "备件", "保修"}},
	{"passwordless", "免密认证", []string{"免密", "生物识别", "快捷认证"}},
	{"location_risk", "位置风险", []string{"位置核验", "地理围栏", "异地识别"}},
	{"big_data", "大数据能力", []string{"数据分析", "数据仓库", "实时计算"}},
	{"cloud_service", "云服务", []string{"云部署", "弹性伸缩", "容器"}},
}

// TagManager 企业能力标签管理
type TagManager struct {
	companyID string
}

func NewTagManager(companyID string) *TagManager {
	return &TagManager{companyID: companyID}
}

// InitDefaults 写入默认标签集，已存在的跳过
func (m *TagManager) InitDefaults() error {
	for i, t := range defaultTags {
		existing, err := dao.GetCapabilityTagByCode(m.companyID, t.code)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}

		keywords, _ := json.Marshal(t.keywords)
		tag := &model.CapabilityTag{
			CompanyID:       m.companyID,
			TagName:         t.name,
			TagCode:         t.code,
			TagLevel:        1,
			ExampleKeywords: keywords,
			TagOrder:        i,
			IsActive:        true,
		}
		if err := dao.CreateCapabilityTag(tag); err != nil {
			return err
		}
	}
	slog.Info("默认能力标签初始化完成", "company_id", m.companyID)
	return nil
}

// CreateTag 创建标签。有父标签时 tag_level 取父级深度+1。
func (m *TagManager) CreateTag(tag *model.CapabilityTag) error {
	if tag.TagName == "" || tag.TagCode == "" {
		return apperr.Validation("tag_name and tag_code are required", nil)
	}
	tag.CompanyID = m.companyID

	level, err := m.resolveLevel(tag.ParentTagID)
	if err != nil {
		return err
	}
	tag.TagLevel = level
	tag.IsActive = true
	return dao.CreateCapabilityTag(tag)
}

func (m *TagManager) resolveLevel(parentID uint) (int, error) {
	level := 1
	for parentID != 0 {
		parent, err := dao.GetCapabilityTagByID(parentID)
		if err != nil {
			return 0, err
		}
		if parent.CompanyID != m.companyID {
			return 0, apperr.Validation("parent tag belongs to another company", nil)
		}
		level++
		parentID = parent.ParentTagID
	}
	return level, nil
}

// Tags 返回企业的活跃标签，按 tag_order 排序
func (m *TagManager) Tags() ([]model.CapabilityTag, error) {
	return dao.GetCapabilityTags(m.companyID)
}

// Deactivate 停用标签（软删除）
func (m *TagManager) Deactivate(tagCode string) error {
	existing, err := dao.GetCapabilityTagByCode(m.companyID, tagCode)
	if err != nil {
		return err
	}
	if existing == nil {
		return apperr.NotFound("capability tag " + tagCode)
	}
	return dao.DeactivateCapabilityTag(m.companyID, tagCode)
}
