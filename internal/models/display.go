package models

import (
	"math"
	"strconv"
)

// PreviewLimit is the number of characters shown in a Markdown preview.
const PreviewLimit = 500

var sizeUnits = []string{"B", "KB", "MB"}

// FormatSize renders a byte count in base-1024 units with at most one
// decimal place ("0 B", "512 B", "1.5 KB", "2 MB").
func FormatSize(bytes int64) string {
	if bytes <= 0 {
		return "0 B"
	}
	i := int(math.Floor(math.Log(float64(bytes)) / math.Log(1024)))
	if i >= len(sizeUnits) {
		i = len(sizeUnits) - 1
	}
	value := float64(bytes) / math.Pow(1024, float64(i))
	value = math.Round(value*10) / 10
	return strconv.FormatFloat(value, 'f', -1, 64) + " " + sizeUnits[i]
}

// Preview returns the first limit characters of content and whether it was cut.
func Preview(content string, limit int) (string, bool) {
	if limit <= 0 {
		return "", content != ""
	}
	n := 0
	for i := range content {
		if n == limit {
			return content[:i], true
		}
		n++
	}
	return content, false
}
