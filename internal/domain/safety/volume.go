package safety

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Declared volumes look like "0.3-0.5 ml", "0.2 ml" or "4-6 units".
// Only millilitre volumes are checked against the area ceiling; unit
// doses (toxins) follow a different dosing model and are out of scope
// for the ceiling table.
var volumeNumberPattern = regexp.MustCompile(`\d+(?:\.\d+)?`)

// volumeExceedsCeiling parses the declared volume string and reports
// whether its upper bound exceeds the area ceiling. Unparseable or
// non-millilitre declarations are never flagged.
func volumeExceedsCeiling(volume string, ceilingML float64) (string, bool) {
	if ceilingML <= 0 || volume == "" {
		return "", false
	}
	if !strings.Contains(strings.ToLower(volume), "ml") {
		return "", false
	}
	var maxML float64
	for _, match := range volumeNumberPattern.FindAllString(volume, -1) {
		value, err := strconv.ParseFloat(match, 64)
		if err != nil {
			continue
		}
		if value > maxML {
			maxML = value
		}
	}
	if maxML <= ceilingML {
		return "", false
	}
	return fmt.Sprintf("Declared volume %s exceeds the %.1f ml area ceiling", volume, ceilingML), true
}
