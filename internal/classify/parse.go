package classify

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/snapstudio/snapstudio/internal/models"
)

// first bracketed span, shortest match
var arrayPattern = regexp.MustCompile(`\[[\s\S]*?\]`)

// ExtractArray pulls the first JSON array of strings out of free-form model
// output, fenced or not. It reports false when nothing usable is found.
func ExtractArray(text string) ([]string, bool) {
	match := arrayPattern.FindString(text)
	if match == "" {
		return nil, false
	}

	var raw []any
	if err := json.Unmarshal([]byte(match), &raw); err != nil {
		return nil, false
	}

	out := make([]string, len(raw))
	for i, v := range raw {
		switch s := v.(type) {
		case string:
			out[i] = s
		case nil:
			out[i] = ""
		default:
			out[i] = fmt.Sprint(s)
		}
	}
	return out, true
}

// Repairs counts the changes Normalize made to the model output
type Repairs struct {
	Unknown int
	Padded  int
	Trimmed int
}

// Normalize returns exactly n categories: unknown values become the default
// category, short lists are padded with it and long lists are trimmed.
func Normalize(raw []string, n int) []models.Category {
	out, _ := normalize(raw, n)
	return out
}

func normalize(raw []string, n int) ([]models.Category, Repairs) {
	var r Repairs
	if n < 0 {
		n = 0
	}

	if len(raw) > n {
		r.Trimmed = len(raw) - n
		raw = raw[:n]
	}

	out := make([]models.Category, n)
	for i := range out {
		if i >= len(raw) {
			out[i] = models.DefaultCategory
			r.Padded++
			continue
		}
		c, ok := models.ParseCategory(raw[i])
		if !ok {
			r.Unknown++
		}
		out[i] = c
	}
	return out, r
}
