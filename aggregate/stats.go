package aggregate

import (
	"github.com/montanaflynn/stats"
)

// Summary 序列的描述统计，用于图表标注
type Summary struct {
	Count  int     `json:"count"` // 有数据的天数
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
}

// Summarize 对序列中有数据的点做描述统计。
// 文本类型序列或没有任何数值点时返回 nil。
func Summarize(s Series) (*Summary, error) {
	var values stats.Float64Data
	for _, p := range s.Points {
		if !p.Present {
			continue
		}
		switch v := p.Raw.(type) {
		case float64:
			values = append(values, v)
		case int64:
			values = append(values, float64(v))
		default:
			// 文本序列无统计意义
			return nil, nil
		}
	}
	if len(values) == 0 {
		return nil, nil
	}

	min, err := stats.Min(values)
	if err != nil {
		return nil, err
	}
	max, err := stats.Max(values)
	if err != nil {
		return nil, err
	}
	mean, err := stats.Mean(values)
	if err != nil {
		return nil, err
	}
	sd, err := stats.StandardDeviation(values)
	if err != nil {
		return nil, err
	}

	return &Summary{
		Count:  len(values),
		Min:    min,
		Max:    max,
		Mean:   mean,
		StdDev: sd,
	}, nil
}
