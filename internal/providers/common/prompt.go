package common

import "fmt"

// BrandListInstructions is the system prompt shared by every brand lister.
const BrandListInstructions = `You extract brand, company, product and service names from text written by an AI assistant.

Rules:
- List every distinct brand or company the text mentions, in the order they first appear.
- Use the spelling exactly as it appears in the text.
- Do not include generic nouns, people, places or categories.
- Do not invent names that are not in the text.

Return ONLY a JSON object of the form {"brands": ["Name", ...]}. Return {"brands": []} when there are none.`

// BrandList is the structured output every lister asks for.
type BrandList struct {
	Brands []string `json:"brands" jsonschema_description:"Brand and company names in order of first appearance"`
}

// BrandListPrompt wraps the response text as the user turn.
func BrandListPrompt(responseText string) string {
	return fmt.Sprintf("Text to analyze:\n\n%s", responseText)
}
