package planner

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/report_forge/app/report_forge/pkg/llm"
	"github.com/iWorld-y/report_forge/app/report_forge/pkg/logger"
	dm "github.com/iWorld-y/report_forge/app/report_forge/pkg/model"
)

func fixed(out string, err error) llm.Generator {
	return llm.GeneratorFunc(func(context.Context, []*schema.Message, ...model.Option) (string, error) {
		return out, err
	})
}

func TestParseNumbered(t *testing.T) {
	text := `Here is the plan:

1. Executive summary - A concise overview
2) Key trends: Current and emerging trends
**3. Competitor analysis** - Key players [no-research]
4. Forecasts - Projections for 3.5 years [research]
Some closing remark with 3.5 million units.`

	plan := Parse(text)
	require.Equal(t, 4, plan.Len())

	want := []dm.SectionDescriptor{
		{ID: "s01", Heading: "Executive summary", Intent: "A concise overview", ResearchRequired: false},
		{ID: "s02", Heading: "Key trends", Intent: "Current and emerging trends", ResearchRequired: true},
		{ID: "s03", Heading: "Competitor analysis", Intent: "Key players", ResearchRequired: false},
		{ID: "s04", Heading: "Forecasts", Intent: "Projections for 3.5 years", ResearchRequired: true},
	}
	assert.Equal(t, want, plan.Sections)
}

func TestParseMarkdownHeadings(t *testing.T) {
	text := "# Report\n## Introduction\nblah\n## 2. Market size - How big\n## Market size\n## Conclusion [research]"
	plan := Parse(text)
	require.Equal(t, 4, plan.Len(), "duplicate headings are merged")

	assert.Equal(t, "Report", plan.Sections[0].Heading)
	assert.False(t, plan.Sections[1].ResearchRequired, "introduction defaults to no research")
	assert.Equal(t, "Market size", plan.Sections[2].Heading)
	assert.Equal(t, "How big", plan.Sections[2].Intent)
	assert.True(t, plan.Sections[3].ResearchRequired, "explicit marker wins")
}

func TestParseNestedOutline(t *testing.T) {
	text := "1. Market Overview - size\n   1. Regional split\n   2. Pricing\n2. Key Players - who leads\n\t- Challengers\n 3. Outlook"
	plan := Parse(text)
	require.Equal(t, 3, plan.Len())

	assert.Equal(t, "Market Overview", plan.Sections[0].Heading)
	assert.Equal(t, "size; Regional split; Pricing", plan.Sections[0].Intent)
	assert.Equal(t, "Key Players", plan.Sections[1].Heading)
	assert.Equal(t, "who leads; Challengers", plan.Sections[1].Intent)
	// 单个前导空格仍是顶层章节
	assert.Equal(t, "Outlook", plan.Sections[2].Heading)
	assert.Equal(t, "s03", plan.Sections[2].ID)
}

func TestParseIndentedListWithoutParent(t *testing.T) {
	plan := Parse("    1. Intro - a\n    2. Body - b")
	require.Equal(t, 2, plan.Len(), "a fully indented list still yields sections")
	assert.Equal(t, "Intro", plan.Sections[0].Heading)
	assert.Equal(t, "Body", plan.Sections[1].Heading)
}

func TestParseEmpty(t *testing.T) {
	assert.Equal(t, 0, Parse("").Len())
	assert.Equal(t, 0, Parse("I cannot help with that.").Len())
}

func TestPlan(t *testing.T) {
	p := New(fixed("1. Intro - a\n2. Body - b\n3. End - c", nil), 2, logger.Discard())
	plan, err := p.Plan(context.Background(), dm.NewSpec("topic"))
	require.NoError(t, err)
	assert.Equal(t, 2, plan.Len(), "truncated to max sections")
}

func TestPlanErrors(t *testing.T) {
	spec := dm.NewSpec("topic")

	_, err := New(fixed("nothing useful", nil), 0, logger.Discard()).Plan(context.Background(), spec)
	assert.True(t, dm.IsPlanningError(err))

	boom := llm.NewFatalError(errors.New("401 unauthorized"))
	_, err = New(fixed("", boom), 0, logger.Discard()).Plan(context.Background(), spec)
	assert.True(t, dm.IsPlanningError(err))
	assert.True(t, llm.IsFatal(err), "classification survives wrapping")
}

func TestPlanWithOfflineGenerator(t *testing.T) {
	spec := dm.NewSpec("EV battery supply chains")
	plan, err := New(llm.NewOffline(), 0, logger.Discard()).Plan(context.Background(), spec)
	require.NoError(t, err)
	assert.Equal(t, 7, plan.Len())
	assert.Equal(t, "Executive summary", plan.Sections[0].Heading)
}

func TestFromMarkdown(t *testing.T) {
	plan := FromMarkdown("# Title\n\n## One\ntext\n### sub\n## Two\n")
	require.Equal(t, 2, plan.Len())
	assert.Equal(t, "s02", plan.Sections[1].ID)
	assert.Equal(t, "Two", plan.Sections[1].Heading)
}
