package prompts

import (
	"context"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/report_forge/app/report_forge/pkg/llm"
	"github.com/iWorld-y/report_forge/app/report_forge/pkg/model"
)

func TestTemplateID(t *testing.T) {
	assert.Equal(t, "market_analysis/formal", TemplateID(model.ReportMarketAnalysis, model.ToneProfessional))
	assert.Equal(t, "newsletter/accessible", TemplateID(model.ReportNewsletter, model.ToneConversational))
	assert.Equal(t, "generic/accessible", TemplateID("white_paper", model.TonePedagogical))
	assert.Equal(t, "swot/formal", TemplateID(model.ReportSWOT, "unknown"))

	// 每个内置类型与语气组合都有对应模板
	for _, rt := range model.ReportTypes {
		for _, tone := range model.Tones {
			id := TemplateID(rt, tone)
			assert.True(t, strings.HasPrefix(id, string(rt)+"/"), id)
		}
	}
}

func TestTemplateReturnsCopy(t *testing.T) {
	a := Template(model.ReportSWOT)
	a.Sections[0].Heading = "changed"
	b := Template(model.ReportSWOT)
	assert.Equal(t, "Introduction", b.Sections[0].Heading)
	assert.Len(t, b.Sections, 8)

	g := Template("white_paper")
	assert.Equal(t, model.ReportType("white_paper"), g.ReportType)
	assert.Equal(t, "Introduction", g.Sections[0].Heading)
}

func TestOutlinePrompt(t *testing.T) {
	spec := model.NewSpec("EV battery supply chains")
	spec.Length = model.LengthShort
	spec.Options = map[string]any{"region": "EU"}

	msgs, err := Outline(context.Background(), spec)
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	assert.Equal(t, schema.System, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "1. Executive summary - ")
	assert.Contains(t, msgs[0].Content, "300-800 words")
	assert.Contains(t, msgs[1].Content, "region: EU")
	assert.Equal(t, llm.TaskOutline, llm.TaskOf(msgs))
}

func TestSectionPrompt(t *testing.T) {
	spec := model.NewSpec("EV battery supply chains")
	sec := model.SectionDescriptor{ID: "s02", Heading: "Key trends", Intent: "Current trends", ResearchRequired: true}

	msgs, err := Section(context.Background(), spec, sec, 4, nil, "")
	require.NoError(t, err)
	assert.Contains(t, msgs[1].Content, "(none, write from the heading and topic)")
	assert.NotContains(t, msgs[1].Content, "Reviewer feedback")

	snips := []model.Snippet{{Source: "https://example.com/a", Text: "Lithium prices fell 20%."}}
	msgs, err = Section(context.Background(), spec, sec, 4, snips, "Add numbers.")
	require.NoError(t, err)
	assert.Contains(t, msgs[1].Content, "[1] https://example.com/a")
	assert.Contains(t, msgs[1].Content, "Add numbers.")
	assert.Equal(t, llm.TaskSection, llm.TaskOf(msgs))
}

func TestEvaluatePromptListsSections(t *testing.T) {
	spec := model.NewSpec("topic")
	plan := model.SectionPlan{Sections: []model.SectionDescriptor{
		{ID: "s01", Heading: "Intro"}, {ID: "s02", Heading: "Body"},
	}}
	msgs, err := Evaluate(context.Background(), spec, plan, "## Intro\ntext", "")
	require.NoError(t, err)
	assert.Contains(t, msgs[1].Content, "[s01] Intro\n[s02] Body")
	assert.Contains(t, msgs[0].Content, "Use of recent data")
}

func TestSectionWords(t *testing.T) {
	assert.Equal(t, (300+800)/2/5, SectionWords(model.LengthShort, 5))
	assert.Equal(t, 80, SectionWords(model.LengthShort, 50))
	assert.Equal(t, (800+2000)/2, SectionWords(model.LengthMedium, 0))
}
