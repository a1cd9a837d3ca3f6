package analysis

import (
	"strings"

	"github.com/san-kum/galsynth/internal/catalog"
)

// ProjectionASCII renders star positions projected onto two spatial
// axes as a terminal scatter plot.
func ProjectionASCII(cat *catalog.Catalog, xAxis, yAxis, width, height int) string {
	if cat.Len() == 0 || xAxis < 0 || xAxis > 2 || yAxis < 0 || yAxis > 2 {
		return ""
	}
	if width < 2 || height < 2 {
		return ""
	}

	minX, maxX := cat.Stars[0].Pos[xAxis], cat.Stars[0].Pos[xAxis]
	minY, maxY := cat.Stars[0].Pos[yAxis], cat.Stars[0].Pos[yAxis]
	for _, st := range cat.Stars[1:] {
		x, y := st.Pos[xAxis], st.Pos[yAxis]
		if x < minX {
			minX = x
		}
		if x > maxX {
			maxX = x
		}
		if y < minY {
			minY = y
		}
		if y > maxY {
			maxY = y
		}
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.05
	maxX += rangeX * 0.05
	minY -= rangeY * 0.05
	maxY += rangeY * 0.05
	rangeX = maxX - minX
	rangeY = maxY - minY

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = make([]rune, width)
		for j := range canvas[i] {
			canvas[i][j] = ' '
		}
	}

	// Shade cells by occupancy so dense regions read darker.
	counts := make([][]int, height)
	for i := range counts {
		counts[i] = make([]int, width)
	}
	maxCount := 0
	for _, st := range cat.Stars {
		col := int((st.Pos[xAxis] - minX) / rangeX * float64(width-1))
		row := height - 1 - int((st.Pos[yAxis]-minY)/rangeY*float64(height-1))
		if row < 0 || row >= height || col < 0 || col >= width {
			continue
		}
		counts[row][col]++
		if counts[row][col] > maxCount {
			maxCount = counts[row][col]
		}
	}

	shades := []rune{'·', '•', '▪', '█'}
	for r := 0; r < height; r++ {
		for c := 0; c < width; c++ {
			n := counts[r][c]
			if n == 0 {
				continue
			}
			level := (n - 1) * len(shades) / maxCount
			if level >= len(shades) {
				level = len(shades) - 1
			}
			canvas[r][c] = shades[level]
		}
	}

	var sb strings.Builder
	for _, row := range canvas {
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	return sb.String()
}
