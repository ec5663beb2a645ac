package prompts

import (
	"fmt"

	"github.com/iWorld-y/report_forge/app/report_forge/pkg/model"
)

// SectionTemplate 默认结构中的一个章节
type SectionTemplate struct {
	Heading string `json:"heading"`
	Intent  string `json:"intent"`
}

// ReportTemplate 某类报告的默认结构
type ReportTemplate struct {
	ReportType model.ReportType  `json:"report_type"`
	Role       string            `json:"role"`
	Title      string            `json:"title"`
	Sections   []SectionTemplate `json:"sections"`
	Guidance   string            `json:"guidance"`
	Criteria   []string          `json:"quality_criteria"`
}

var genericTemplate = ReportTemplate{
	ReportType: "generic",
	Role:       "an expert in professional report writing",
	Title:      "Report on {topic}",
	Sections: []SectionTemplate{
		{"Introduction", "Context and objectives of the report"},
		{"Methodology", "How the information was gathered and analysed"},
		{"Main analysis", "Development of the key points of the subject"},
		{"Impacts and implications", "Consequences and importance of the subject"},
		{"Conclusion", "Synthesis and future outlook"},
		{"References", "Sources used for the report"},
	},
	Guidance: "Structure the report logically, back it with verifiable facts and adapt it to the target audience.",
	Criteria: []string{"Coherent structure", "Factual content", "Cited sources", "Clarity of purpose"},
}

var reportTemplates = map[model.ReportType]ReportTemplate{
	model.ReportMarketAnalysis: {
		Role:  "a market analysis expert",
		Title: "Market analysis: {topic}",
		Sections: []SectionTemplate{
			{"Executive summary", "A concise overview of the key points of the report"},
			{"Key trends", "Current and emerging trends in this market"},
			{"Competitor analysis", "Key players, their market shares and strategies"},
			{"Market segmentation", "How the market splits by product, geography and demographics"},
			{"Opportunities and challenges", "Growth opportunities and obstacles"},
			{"Forecasts", "Market projections for the next 3-5 years with justification"},
			{"Recommendations", "Strategic advice based on the analysis"},
		},
		Guidance: "Use recent data and make sure every claim is supported by credible sources.",
		Criteria: []string{"Use of recent data", "Competitor analysis", "Quantified forecasts", "Citations of credible sources"},
	},
	model.ReportRisk: {
		Role:  "a professional risk analyst",
		Title: "Risk report: {topic}",
		Sections: []SectionTemplate{
			{"Executive summary", "Main risks identified and their potential impact"},
			{"Context", "The setting in which this analysis takes place"},
			{"Methodology", "How risks were identified and assessed"},
			{"Risk identification", "Detailed list and description of identified risks"},
			{"Risk assessment", "Probability, impact and overall severity of each risk"},
			{"Mitigation strategies", "Measures to manage or reduce each risk"},
			{"Monitoring plan", "How risk evolution is tracked over time"},
			{"Conclusion", "Synthesis and outlook"},
		},
		Guidance: "Use a methodical, factual approach and avoid unfounded speculation. Prioritise risks by severity.",
		Criteria: []string{"Risks prioritised by severity", "Probability and impact assessed", "Actionable mitigation", "No unfounded speculation"},
	},
	model.ReportNewsletter: {
		Role:  "a newsletter writer who makes complex information accessible",
		Title: "Newsletter: {topic}",
		Sections: []SectionTemplate{
			{"Introduction", "A captivating opening that sparks interest"},
			{"Top news", "The most important recent developments"},
			{"Deep dive", "Insight into one particular aspect of the subject"},
			{"Trends to watch", "What could become important soon"},
			{"Useful resources", "Sources to go further"},
		},
		Guidance: "Be clear and accessible and bring real value to novice and expert readers alike.",
		Criteria: []string{"Engaging opening", "Recent developments", "Accessible language", "Useful resources"},
	},
	model.ReportCourse: {
		Role:  "an experienced teacher",
		Title: "Course: {topic}",
		Sections: []SectionTemplate{
			{"Introduction and learning objectives", "What learners will discover and master"},
			{"Prerequisites", "Knowledge needed to follow the course"},
			{"Key concepts", "The fundamental notions to understand"},
			{"Main content", "The body of the course in a logical progression"},
			{"Practical examples", "Concrete applications of the concepts"},
			{"Exercises", "Activities that reinforce learning"},
			{"Summary", "Synthesis of the essential points"},
			{"Further resources", "Reading and tools to go further"},
		},
		Guidance: "Adapt complexity to the target audience and offer a clear learning progression.",
		Criteria: []string{"Clear learning objectives", "Progressive structure", "Practical examples", "Exercises"},
	},
	model.ReportSWOT: {
		Role:  "a business strategy consultant",
		Title: "SWOT analysis: {topic}",
		Sections: []SectionTemplate{
			{"Introduction", "Context and importance of this analysis"},
			{"Strengths", "Competitive advantages and internal strong points"},
			{"Weaknesses", "Internal limitations and areas for improvement"},
			{"Opportunities", "Favourable external factors and growth potential"},
			{"Threats", "Unfavourable external elements and risks"},
			{"Cross analysis", "Using strengths to seize opportunities and counter threats"},
			{"Strategic recommendations", "Concrete actions based on the analysis"},
			{"Conclusion", "Synthesis and outlook"},
		},
		Guidance: "Be balanced and objective, rely on established facts rather than assumptions and prioritise by importance.",
		Criteria: []string{"Internal and external factors clearly separated", "Balanced analysis of the four categories", "Strategic recommendations", "Prioritised factors"},
	},
	model.ReportBusinessPlan: {
		Role:  "a business creation expert",
		Title: "Business plan: {topic}",
		Sections: []SectionTemplate{
			{"Executive summary", "Synthesis of the project and key points"},
			{"Company description", "Vision, mission and objectives"},
			{"Market analysis", "Market size, trends and competition"},
			{"Products and services", "Detailed description of the offer"},
			{"Marketing strategy", "Positioning, pricing and promotion"},
			{"Operating plan", "Organisation, resources and processes"},
			{"Management team", "Key profiles and skills"},
			{"Financial projections", "Revenue, costs and profitability over 3-5 years"},
			{"Funding needs", "Amounts required and planned use"},
			{"Appendices", "Relevant additional information"},
		},
		Guidance: "Be realistic in projections and keep all sections consistent with each other.",
		Criteria: []string{"Realistic projections", "Consistent sections", "Clear funding needs", "Market evidence"},
	},
	model.ReportCompetitiveStudy: {
		Role:  "a competitive intelligence analyst",
		Title: "Competitive study: {topic}",
		Sections: []SectionTemplate{
			{"Introduction", "The sector and the objectives of the study"},
			{"Methodology", "How information was collected and analysed"},
			{"Market overview", "Size, growth and dynamics"},
			{"Main competitor profiles", "Detailed analysis of 3-5 key players"},
			{"Comparative analysis", "Comparison table across several criteria"},
			{"Competitive strategies", "Marketing, product and pricing approaches"},
			{"Strengths and weaknesses", "Focused SWOT for each competitor"},
			{"Opportunities", "Under-served niches and unmet needs"},
			{"Recommendations", "Strategic actions based on the analysis"},
			{"Conclusion", "Synthesis and outlook"},
		},
		Guidance: "Be objective, factual and detailed enough to support strategic decisions.",
		Criteria: []string{"Key competitors profiled", "Comparative criteria", "Objective tone", "Actionable recommendations"},
	},
}

// Template 返回报告类型的默认结构，未知类型返回通用结构
func Template(t model.ReportType) ReportTemplate {
	tpl, ok := reportTemplates[t]
	if !ok {
		tpl = genericTemplate
	}
	tpl.ReportType = t
	tpl.Sections = append([]SectionTemplate(nil), tpl.Sections...)
	tpl.Criteria = append([]string(nil), tpl.Criteria...)
	return tpl
}

// Criteria 报告类型的默认质量标准
func Criteria(t model.ReportType) []string {
	return Template(t).Criteria
}

// toneStyle 语气分组
type toneStyle string

const (
	styleFormal     toneStyle = "formal"
	styleAccessible toneStyle = "accessible"
)

var toneStyles = map[model.Tone]toneStyle{
	model.ToneProfessional:   styleFormal,
	model.ToneAcademic:       styleFormal,
	model.ToneAnalytical:     styleFormal,
	model.ToneCautious:       styleFormal,
	model.ToneInformative:    styleAccessible,
	model.ToneConversational: styleAccessible,
	model.ToneOptimistic:     styleAccessible,
	model.TonePedagogical:    styleAccessible,
}

var styleGuidance = map[toneStyle]string{
	styleFormal:     "Write in precise, measured prose. Prefer evidence and numbers over adjectives. Avoid first person.",
	styleAccessible: "Write in clear, friendly prose. Explain jargon the first time it appears and keep paragraphs short.",
}

type templateKey struct {
	reportType model.ReportType
	style      toneStyle
}

// templateIDs (报告类型, 语气分组) -> 模板 ID
var templateIDs = func() map[templateKey]string {
	m := make(map[templateKey]string)
	for _, t := range model.ReportTypes {
		for _, s := range []toneStyle{styleFormal, styleAccessible} {
			m[templateKey{t, s}] = fmt.Sprintf("%s/%s", t, s)
		}
	}
	return m
}()

// TemplateID 按 (报告类型, 语气) 查表得到模板 ID
func TemplateID(t model.ReportType, tone model.Tone) string {
	style, ok := toneStyles[tone]
	if !ok {
		style = styleFormal
	}
	if id, ok := templateIDs[templateKey{t, style}]; ok {
		return id
	}
	return fmt.Sprintf("generic/%s", style)
}
