package benchmark

import (
	"math"
	"strings"
	"unicode"
)

// tokenize 小写词元；中日韩文字按单字切分
func tokenize(s string) []string {
	var out []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
	}
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.Is(unicode.Han, r):
			flush()
			out = append(out, string(r))
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			cur.WriteRune(r)
		default:
			flush()
		}
	}
	flush()
	return out
}

// cosine 词频向量余弦相似度，[0,1]
func cosine(a, b string) float64 {
	ta, tb := termFreq(a), termFreq(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	var dot, na, nb float64
	for k, v := range ta {
		na += v * v
		if w, ok := tb[k]; ok {
			dot += v * w
		}
	}
	for _, w := range tb {
		nb += w * w
	}
	return clamp(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

func termFreq(s string) map[string]float64 {
	tf := make(map[string]float64)
	for _, t := range tokenize(s) {
		if len([]rune(t)) < 2 && !unicode.Is(unicode.Han, []rune(t)[0]) {
			continue
		}
		tf[t]++
	}
	return tf
}

// headingOverlap 二级标题集合的 Jaccard 系数
func headingOverlap(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	set := func(hs []string) map[string]bool {
		m := make(map[string]bool, len(hs))
		for _, h := range hs {
			m[strings.ToLower(strings.TrimSpace(h))] = true
		}
		return m
	}
	sa, sb := set(a), set(b)
	inter := 0
	for h := range sa {
		if sb[h] {
			inter++
		}
	}
	union := len(sa) + len(sb) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func clamp(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
