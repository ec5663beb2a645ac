package model

import "fmt"

// SectionDescriptor 大纲中的一个章节
type SectionDescriptor struct {
	ID               string `json:"id"`
	Heading          string `json:"heading"`
	Intent           string `json:"intent"`
	ResearchRequired bool   `json:"research_required"`
}

// SectionPlan 有序章节列表，顺序即最终文档顺序
type SectionPlan struct {
	Sections []SectionDescriptor `json:"sections"`
}

// SectionID 按位置生成稳定的章节 ID：s01, s02 ...
func SectionID(index int) string {
	return fmt.Sprintf("s%02d", index+1)
}

// Index 返回章节 ID 在大纲中的位置，不存在返回 -1
func (p SectionPlan) Index(id string) int {
	for i, s := range p.Sections {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// Len 章节数
func (p SectionPlan) Len() int { return len(p.Sections) }

// SectionStatus 章节执行状态，只能向前流转
type SectionStatus string

const (
	SectionPending SectionStatus = "pending"
	SectionRunning SectionStatus = "running"
	SectionDone    SectionStatus = "done"
	SectionFailed  SectionStatus = "failed"
)

// Terminal 是否为终态
func (s SectionStatus) Terminal() bool {
	return s == SectionDone || s == SectionFailed
}

// CanTransition 判断状态流转是否合法：pending -> running -> done/failed
func (s SectionStatus) CanTransition(next SectionStatus) bool {
	switch s {
	case SectionPending:
		return next == SectionRunning || next == SectionFailed
	case SectionRunning:
		return next == SectionDone || next == SectionFailed
	default:
		return false
	}
}

// Snippet 检索到的资料片段
type Snippet struct {
	Source string `json:"source"`
	Text   string `json:"text"`
}

// SectionResult 单个章节的执行结果
type SectionResult struct {
	SectionID string        `json:"section_id"`
	Status    SectionStatus `json:"status"`
	Snippets  []Snippet     `json:"snippets"`
	Text      string        `json:"text"`
	Retries   int           `json:"retries"`
	Err       string        `json:"error,omitempty"`
}

// Advance 推进状态，非法流转返回错误且不修改结果
func (r *SectionResult) Advance(next SectionStatus) error {
	if !r.Status.CanTransition(next) {
		return fmt.Errorf("section %s: illegal status transition %s -> %s", r.SectionID, r.Status, next)
	}
	r.Status = next
	return nil
}

// PlaceholderText 章节失败时写入文档的占位说明
func PlaceholderText(heading, reason string) string {
	return fmt.Sprintf("_本节「%s」生成失败，内容暂缺。原因：%s_", heading, reason)
}
