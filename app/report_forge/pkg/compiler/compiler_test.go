package compiler

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/report_forge/app/report_forge/pkg/logger"
	dm "github.com/iWorld-y/report_forge/app/report_forge/pkg/model"
)

func plan(headings ...string) dm.SectionPlan {
	var p dm.SectionPlan
	for i, h := range headings {
		p.Sections = append(p.Sections, dm.SectionDescriptor{ID: dm.SectionID(i), Heading: h})
	}
	return p
}

func done(id, text string) dm.SectionResult {
	return dm.SectionResult{SectionID: id, Status: dm.SectionDone, Text: text}
}

func words(n int) string {
	return strings.TrimSpace(strings.Repeat("word ", n))
}

type stubSummarizer struct {
	calls []string
}

func (s *stubSummarizer) Condense(_ context.Context, _ dm.Spec, heading, _ string, w int) (string, error) {
	s.calls = append(s.calls, heading)
	return words(w), nil
}

func TestCompilePreservesPlanOrder(t *testing.T) {
	p := plan("Alpha", "Beta", "Gamma", "Delta")
	// map 迭代顺序随机，结果必须按大纲顺序
	results := map[string]dm.SectionResult{
		"s04": done("s04", "delta body"),
		"s02": done("s02", "beta body"),
		"s01": done("s01", "alpha body"),
		"s03": done("s03", "gamma body"),
	}

	for i := 0; i < 5; i++ {
		d, err := New(0.25, nil, logger.Discard()).Compile(context.Background(), dm.NewSpec("topic"), p, results)
		require.NoError(t, err)
		assert.Equal(t, []string{"Alpha", "Beta", "Gamma", "Delta"}, d.Headings)

		idx := []int{
			strings.Index(d.Markdown, "alpha body"),
			strings.Index(d.Markdown, "beta body"),
			strings.Index(d.Markdown, "gamma body"),
			strings.Index(d.Markdown, "delta body"),
		}
		for j := 1; j < len(idx); j++ {
			assert.Less(t, idx[j-1], idx[j])
		}
		for j, r := range d.Sections {
			assert.Equal(t, p.Sections[j].ID, r.SectionID)
		}
	}
}

func TestCompileRejectsIncompleteResults(t *testing.T) {
	p := plan("Alpha", "Beta")
	c := New(0.25, nil, logger.Discard())

	_, err := c.Compile(context.Background(), dm.NewSpec("t"), p, map[string]dm.SectionResult{"s01": done("s01", "x")})
	assert.True(t, dm.IsCompilationError(err))

	_, err = c.Compile(context.Background(), dm.NewSpec("t"), p, map[string]dm.SectionResult{
		"s01": done("s01", "x"),
		"s02": {SectionID: "s02", Status: dm.SectionRunning},
	})
	assert.True(t, dm.IsCompilationError(err))

	_, err = c.Compile(context.Background(), dm.NewSpec("t"), dm.SectionPlan{}, nil)
	assert.True(t, dm.IsCompilationError(err))
}

func TestCompileIncludesFailedPlaceholder(t *testing.T) {
	p := plan("Alpha", "Beta")
	failed := dm.SectionResult{SectionID: "s02", Status: dm.SectionFailed, Text: dm.PlaceholderText("Beta", "timeout")}
	d, err := New(0.25, nil, logger.Discard()).Compile(context.Background(), dm.NewSpec("t"), p, map[string]dm.SectionResult{
		"s01": done("s01", "alpha"),
		"s02": failed,
	})
	require.NoError(t, err)
	assert.Contains(t, d.Markdown, "「Beta」")
	assert.Equal(t, 1, d.FailedSections())
}

func TestNormalizeSection(t *testing.T) {
	body := "## Trends\n\nIntro text.\n\n# Big picture\n\nMore.\n\n## Detail\n\n```\n# not a heading\n```\n\nSetext\n------\n"
	got := normalizeSection(body, "Trends")

	assert.NotContains(t, got, "## Trends")
	assert.Contains(t, got, "\n### Big picture\n")
	assert.Contains(t, got, "\n#### Detail\n")
	assert.Contains(t, got, "# not a heading", "code blocks untouched")
	assert.Contains(t, got, "#### Setext")
	assert.NotContains(t, got, "------")
	assert.True(t, strings.HasPrefix(got, "Intro text."))
}

func TestNormalizeMultiLineSetext(t *testing.T) {
	got := normalizeSection("Supply risk\nand mitigation\n---\n\nBody text.", "Risks")
	assert.Equal(t, "### Supply risk and mitigation\n\nBody text.", got)

	doc := "## Risks\n\nRisks\nagain\n-----\n\nbody"
	assert.Equal(t, "## Risks\n\nRisks\nagain\n-----\n\nbody", dedupeAdjacentHeadings(doc), "different text is kept")
	doc = "Risks\n=====\n\nRisks\n=====\nbody"
	assert.Equal(t, "Risks\n=====\n\nbody", dedupeAdjacentHeadings(doc))
}

func TestNormalizeKeepsDeepHeadings(t *testing.T) {
	got := normalizeSection("### Already deep\ntext", "Other")
	assert.Equal(t, "### Already deep\ntext", got)
}

func TestDedupeAdjacentHeadings(t *testing.T) {
	doc := "# T\n\n## Risks\n\n## Risks\n\nbody\n\n## Risks\n\nsecond\n"
	got := dedupeAdjacentHeadings(doc)
	assert.Equal(t, 2, strings.Count(got, "## Risks"), "only the adjacent duplicate is removed")
}

func TestCompileLengthInsufficient(t *testing.T) {
	spec := dm.NewSpec("t")
	spec.Length = dm.LengthShort
	d, err := New(0.25, nil, logger.Discard()).Compile(context.Background(), spec, plan("A"), map[string]dm.SectionResult{"s01": done("s01", words(20))})
	require.NoError(t, err)
	assert.Contains(t, d.LengthNote, "内容不足")
}

func TestCompileLengthCondensed(t *testing.T) {
	spec := dm.NewSpec("t")
	spec.Length = dm.LengthShort // 300-800
	results := map[string]dm.SectionResult{
		"s01": done("s01", words(900)),
		"s02": done("s02", words(100)),
	}

	sum := &stubSummarizer{}
	d, err := New(0.25, sum, logger.Discard()).Compile(context.Background(), spec, plan("A", "B"), results)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, sum.calls, "only the oversized section is condensed")
	assert.Empty(t, d.LengthNote)
	assert.LessOrEqual(t, d.WordCount, 1000)

	d, err = New(0.25, nil, logger.Discard()).Compile(context.Background(), spec, plan("A", "B"), results)
	require.NoError(t, err)
	assert.Contains(t, d.LengthNote, "内容超长")
	assert.Greater(t, d.WordCount, 1000)
}

func TestWordCount(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"hello world", 2},
		{"## Title\n\n- item", 2},
		{"你好世界", 4},
		{"EV 电池", 3},
		{"", 0},
	}
	for _, tc := range tests {
		t.Run(fmt.Sprintf("%q", tc.in), func(t *testing.T) {
			assert.Equal(t, tc.want, WordCount(tc.in))
		})
	}
}

func TestTitle(t *testing.T) {
	spec := dm.NewSpec("EV batteries")
	assert.Equal(t, "Market analysis: EV batteries", Title(spec))
	spec.Options = map[string]any{"title": "Custom"}
	assert.Equal(t, "Custom", Title(spec))
}
