package analysis

import (
	"math"

	"campus-ml-go/internal/types"
)

const (
	maxWindowSize      = 5
	windowAvgThreshold = 0.7
	zScoreThreshold    = 1.5
	maxAnomalyDays     = 10
	atRiskAnomalyRatio = 0.2
)

// DetectAttendanceAnomalies 检测考勤异常。
// 缺勤且近期出勤率高于0.7的日子为异常；记录多于5条时，再用z分数补充异常日。
func DetectAttendanceAnomalies(records []types.AttendanceRecord) types.AttendanceResult {
	if len(records) == 0 {
		return types.AttendanceResult{
			Pattern:     types.PatternInsufficientData,
			AnomalyDays: []string{},
		}
	}

	n := len(records)
	present := 0
	for _, r := range records {
		present += r.Status
	}
	rate := float64(present) / float64(n)

	window := maxWindowSize
	if n < window {
		window = n
	}

	anomalies := make([]string, 0)
	flagged := make(map[string]struct{})
	flag := func(date string) {
		if _, ok := flagged[date]; ok {
			return
		}
		flagged[date] = struct{}{}
		anomalies = append(anomalies, date)
	}

	sum := 0
	for i, r := range records {
		sum += r.Status
		if i >= window {
			sum -= records[i-window].Status
		}
		if i < window-1 {
			continue
		}
		avg := float64(sum) / float64(window)
		if r.Status == 0 && avg > windowAvgThreshold {
			flag(r.Date)
		}
	}

	if n > maxWindowSize {
		mean := rate
		variance := 0.0
		for _, r := range records {
			d := float64(r.Status) - mean
			variance += d * d
		}
		std := math.Sqrt(variance / float64(n))
		if std == 0 {
			std = 1
		}
		for i, r := range records {
			if i < window-1 || r.Status != 0 {
				continue
			}
			if math.Abs((float64(r.Status)-mean)/std) > zScoreThreshold {
				flag(r.Date)
			}
		}
	}

	var pattern types.AttendancePattern
	var confidence float64
	switch {
	case rate >= 0.85:
		pattern, confidence = types.PatternRegular, 0.9
	case rate >= 0.70:
		pattern, confidence = types.PatternMostlyRegular, 0.7
	case rate >= 0.50:
		pattern, confidence = types.PatternInconsistent, 0.8
	default:
		pattern, confidence = types.PatternAtRisk, 0.9
	}
	if float64(len(anomalies))/float64(n) > atRiskAnomalyRatio {
		pattern, confidence = types.PatternAtRisk, 0.85
	}

	if len(anomalies) > maxAnomalyDays {
		anomalies = anomalies[:maxAnomalyDays]
	}

	return types.AttendanceResult{
		Pattern:        pattern,
		AnomalyDays:    anomalies,
		Confidence:     confidence,
		AttendanceRate: roundTo(rate*100, 2),
		TotalDays:      n,
		PresentDays:    present,
		AbsentDays:     n - present,
	}
}
