package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

var (
	numberedLine = regexp.MustCompile(`^\s*\d+[.)]\s+\S`)
	sectionRef   = regexp.MustCompile(`\[(s\d{2,})\]`)
)

// Offline 不访问网络的确定性生成器，用于 provider=mock 的本地演示与端到端测试。
// 根据消息上的任务标记返回对应格式的内容。
type Offline struct{}

// NewOffline 创建离线生成器
func NewOffline() *Offline { return &Offline{} }

// Generate 实现 Generator
func (o *Offline) Generate(ctx context.Context, msgs []*schema.Message, _ ...model.Option) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	system, user := splitMessages(msgs)

	switch TaskOf(msgs) {
	case TaskOutline:
		// 直接复用系统提示中给出的默认章节结构
		var lines []string
		for _, l := range strings.Split(system, "\n") {
			if numberedLine.MatchString(l) {
				lines = append(lines, strings.TrimSpace(l))
			}
		}
		if len(lines) == 0 {
			lines = []string{"1. Introduction - context", "2. Analysis - main points", "3. Conclusion - outlook"}
		}
		return strings.Join(lines, "\n"), nil

	case TaskSection:
		heading := extraString(msgs, "heading")
		topic := extraString(msgs, "topic")
		return fmt.Sprintf("This section covers %s for %s. It summarises the key facts, the main drivers and what they imply for decision makers. "+
			"Evidence from the research notes is weighed against the stated intent so the reader gets a balanced view.",
			strings.ToLower(heading), topic), nil

	case TaskEvaluate:
		scores := map[string]float64{}
		for _, m := range sectionRef.FindAllStringSubmatch(user, -1) {
			scores[m[1]] = 0.8
		}
		out, _ := json.Marshal(map[string]any{
			"clarity":         0.8,
			"tone_adherence":  0.8,
			"detected_tone":   extraString(msgs, "tone"),
			"section_scores":  scores,
			"recommendations": []string{"Add more quantitative evidence."},
		})
		return string(out), nil

	case TaskCondense:
		words := strings.Fields(user)
		if len(words) > 40 {
			words = words[:len(words)/2]
		}
		return strings.Join(words, " "), nil
	}

	return user, nil
}

func splitMessages(msgs []*schema.Message) (system, user string) {
	var sys, usr []string
	for _, m := range msgs {
		if m == nil {
			continue
		}
		if m.Role == schema.System {
			sys = append(sys, m.Content)
		} else {
			usr = append(usr, m.Content)
		}
	}
	return strings.Join(sys, "\n"), strings.Join(usr, "\n")
}

func extraString(msgs []*schema.Message, key string) string {
	for _, m := range msgs {
		if m == nil || m.Extra == nil {
			continue
		}
		if v, ok := m.Extra[key].(string); ok {
			return v
		}
	}
	return ""
}
