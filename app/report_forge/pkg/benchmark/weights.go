package benchmark

// 评分项
const (
	MetricStructure  = "structure"
	MetricLength     = "length"
	MetricGrounding  = "grounding"
	MetricClarity    = "clarity"
	MetricTone       = "tone"
	MetricSimilarity = "similarity"
)

// 无参考范例时的权重，合计 1
var defaultWeights = []weight{
	{MetricStructure, 0.25},
	{MetricLength, 0.10},
	{MetricGrounding, 0.20},
	{MetricClarity, 0.20},
	{MetricTone, 0.25},
}

// 有参考范例时加入相似度，合计 1
var exemplarWeights = []weight{
	{MetricStructure, 0.20},
	{MetricLength, 0.10},
	{MetricGrounding, 0.15},
	{MetricClarity, 0.20},
	{MetricTone, 0.20},
	{MetricSimilarity, 0.15},
}

type weight struct {
	metric string
	value  float64
}

// Weights 返回当前使用的权重表副本
func Weights(withExemplar bool) map[string]float64 {
	table := defaultWeights
	if withExemplar {
		table = exemplarWeights
	}
	out := make(map[string]float64, len(table))
	for _, w := range table {
		out[w.metric] = w.value
	}
	return out
}
