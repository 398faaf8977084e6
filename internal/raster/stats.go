package raster

import "github.com/Brownie44l1/digit-api/internal/model"

// InkThreshold is the intensity above which a cell counts as drawn.
const InkThreshold = 0.01

// BufferStats summarises a normalized buffer for diagnostics.
type BufferStats struct {
	Mean     float64
	Min      float32
	Max      float32
	InkCells int
}

func Stats(buf *model.NormalizedBuffer) BufferStats {
	if buf == nil || len(buf.Data) == 0 {
		return BufferStats{}
	}

	stats := BufferStats{Min: buf.Data[0], Max: buf.Data[0]}
	var sum float64
	for _, v := range buf.Data {
		sum += float64(v)
		if v < stats.Min {
			stats.Min = v
		}
		if v > stats.Max {
			stats.Max = v
		}
		if v > InkThreshold {
			stats.InkCells++
		}
	}
	stats.Mean = sum / float64(len(buf.Data))
	return stats
}
