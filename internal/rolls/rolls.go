// Package rolls is stateless presentation for Fate dice: ladder labels and
// readable die faces. Everything here works off values the game client
// already computed; nothing is re-rolled or re-totaled.
package rolls

import (
	"fmt"
	"strings"

	"github.com/DoyleJ11/fate-bridge/internal/types"
)

var ladder = map[int]string{
	8:  "Legendary",
	7:  "Epic",
	6:  "Fantastic",
	5:  "Superb",
	4:  "Great",
	3:  "Good",
	2:  "Fair",
	1:  "Average",
	0:  "Mediocre",
	-1: "Poor",
	-2: "Terrible",
}

// LadderLabel maps a numeric result to its Fate ladder name. Values off
// either end of the ladder keep the extreme name with an offset.
func LadderLabel(value int) string {
	if label, ok := ladder[value]; ok {
		return label
	}
	if value > 8 {
		return fmt.Sprintf("Legendary+%d", value-8)
	}
	return fmt.Sprintf("Terrible-%d", -2-value)
}

// Roll is a chat roll with presentation applied.
type Roll struct {
	Formula string `json:"formula,omitempty"`
	Total   int    `json:"total"`
	Dice    string `json:"dice,omitempty"`
	Label   string `json:"label"`
}

// Describe renders one roll record: fate die faces as "+", "-", "0" and the
// ladder label for the total.
func Describe(record types.RollRecord) Roll {
	faces := make([]string, 0, len(record.Dice))
	for _, die := range record.Dice {
		switch {
		case die > 0:
			faces = append(faces, "+")
		case die < 0:
			faces = append(faces, "-")
		default:
			faces = append(faces, "0")
		}
	}
	return Roll{
		Formula: record.Formula,
		Total:   record.Total,
		Dice:    strings.Join(faces, " "),
		Label:   LadderLabel(record.Total),
	}
}

// DescribeAll maps Describe over a chat record's rolls, nil when it has none.
func DescribeAll(records []types.RollRecord) []Roll {
	if len(records) == 0 {
		return nil
	}
	out := make([]Roll, len(records))
	for i, record := range records {
		out[i] = Describe(record)
	}
	return out
}
