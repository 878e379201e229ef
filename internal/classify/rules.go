package classify

import (
	"fmt"
	"strings"

	"github.com/snapstudio/snapstudio/internal/models"
)

// Rule maps a visual cue to a category. Rules are applied in order and the
// first match wins.
type Rule struct {
	When     string
	Category models.Category
}

// Rules is the disambiguation table sent to the model. The last entry is the
// catch-all.
var Rules = []Rule{
	{When: "a person is prominently in frame (wearing, holding or using the product)", Category: models.CategoryModel},
	{When: "the shot is a close-up or macro of texture, material, stitching or a feature", Category: models.CategoryDetail},
	{When: "the product is shown in a styled scene or real environment with no person", Category: models.CategoryLifestyle},
	{When: "a box, bag or other packaging is visible", Category: models.CategoryPackaging},
	{When: "none of the above applies", Category: models.DefaultCategory},
}

var descriptions = map[models.Category]string{
	models.CategoryMain:      "the hero shot: the whole product, front-facing, on a plain or white background",
	models.CategoryAngle:     "the whole product from a side, back, top or three-quarter view",
	models.CategoryDetail:    "a close-up of part of the product",
	models.CategoryLifestyle: "the product staged in a scene or in use, without a person",
	models.CategoryModel:     "a person wearing, holding or using the product",
	models.CategoryPackaging: "the product's box, bag or packaging",
}

// BuildSystemPrompt renders the taxonomy and the rule table into the fixed
// instruction for the classifier.
func BuildSystemPrompt() string {
	var sb strings.Builder

	sb.WriteString("You are a product photography classifier for an e-commerce catalog.\n")
	sb.WriteString("You will receive a numbered set of product images. Assign each image exactly one category.\n\n")

	sb.WriteString("Categories:\n")
	for _, c := range models.Categories() {
		fmt.Fprintf(&sb, "- %s: %s\n", c, descriptions[c])
	}

	sb.WriteString("\nWhen an image could fit more than one category, apply these rules in order and use the first that matches:\n")
	for i, r := range Rules {
		fmt.Fprintf(&sb, "%d. If %s -> %s\n", i+1, r.When, r.Category)
	}

	sb.WriteString("\nRespond with ONLY a JSON array of category strings, one per image, in the same order as the images.\n")
	sb.WriteString(`Example for three images: ["main", "detail", "lifestyle"]`)
	sb.WriteString("\nDo not include explanations or any other text.")

	return sb.String()
}

// buildUserPrompt introduces the image parts that follow it
func buildUserPrompt(n int) string {
	if n == 1 {
		return "Classify this 1 product image."
	}
	return fmt.Sprintf("Classify these %d product images, in order.", n)
}
