package llm

import (
	"fmt"
	"strings"
)

const strictAddendum = `

## STRICT RETRY
Your previous answer broke the output contract%s.
Answer again with exactly one JSON object and nothing else.
- "category" MUST be one of: %s
- "amount" MUST be a positive number in INR
- "confidence" MUST be between 0 and 1
- "explanation" MUST NOT be empty`

// buildSystemPrompt renders the accounting policy the oracle must follow.
func buildSystemPrompt(req Request) string {
	var sb strings.Builder

	sb.WriteString("You are FinGuru's expense reasoning engine for Indian MSME accounting.\n")
	sb.WriteString("You analyze one expense (from a receipt or a voice note), classify it using the specification below, ")
	sb.WriteString("and answer with a single JSON object. You never chat.\n\n")

	sb.WriteString("## ACCOUNTING SPECIFICATION\n")
	for _, c := range req.Categories {
		fmt.Fprintf(&sb, "- %s (%s): GST %g%%", c.Key, c.DisplayName, c.GSTRate)
		if len(c.Keywords) > 0 {
			fmt.Fprintf(&sb, "; keywords: %s", strings.Join(c.Keywords, ", "))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\n## OUTPUT CONTRACT\n")
	sb.WriteString(`{"amount": number > 0, "category": one of the keys above, "gst_rate": number, `)
	sb.WriteString(`"confidence": number in [0,1], "rule_applied": string, "gst_reasoning": string, "explanation": non-empty string}`)
	sb.WriteString("\n\n## RULES\n")
	sb.WriteString("1. Use only the category keys listed above.\n")
	sb.WriteString("2. Explain which keyword or rule decided the category.\n")
	sb.WriteString("3. If the text is unclear, lower the confidence instead of guessing.\n")
	sb.WriteString("4. Text may be Hindi, English or Hinglish; amounts are in INR.\n")

	if req.Strict {
		violation := ""
		if req.Violation != "" {
			violation = " (" + req.Violation + ")"
		}
		fmt.Fprintf(&sb, strictAddendum, violation, strings.Join(req.CategoryKeys(), ", "))
	}

	return sb.String()
}

// buildUserPrompt renders the expense being classified.
func buildUserPrompt(req Request) string {
	var sb strings.Builder

	sb.WriteString("Analyze this expense and produce the JSON classification.\n\n")
	fmt.Fprintf(&sb, "SOURCE: %s\n", req.Source)
	fmt.Fprintf(&sb, "TEXT: %q\n", req.Text)

	if req.Hints.Amount > 0 {
		fmt.Fprintf(&sb, "PRE-EXTRACTED AMOUNT: %.2f\n", req.Hints.Amount)
	} else {
		sb.WriteString("PRE-EXTRACTED AMOUNT: Not extracted\n")
	}
	if req.Hints.Vendor != "" {
		fmt.Fprintf(&sb, "PRE-EXTRACTED VENDOR: %s\n", req.Hints.Vendor)
	}
	if req.Hints.Date != "" {
		fmt.Fprintf(&sb, "PRE-EXTRACTED DATE: %s\n", req.Hints.Date)
	}

	return sb.String()
}

// responseSchema is the JSON schema for structured output, with the category
// enum taken from the request.
func responseSchema(req Request) map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"amount":        map[string]any{"type": "number", "description": "Expense amount in INR"},
			"category":      map[string]any{"type": "string", "enum": req.CategoryKeys()},
			"gst_rate":      map[string]any{"type": "number", "description": "GST rate in percent"},
			"confidence":    map[string]any{"type": "number", "minimum": 0, "maximum": 1},
			"rule_applied":  map[string]any{"type": "string"},
			"gst_reasoning": map[string]any{"type": "string"},
			"explanation":   map[string]any{"type": "string"},
		},
		"required": []string{
			"amount", "category", "gst_rate", "confidence", "rule_applied", "gst_reasoning", "explanation",
		},
		"additionalProperties": false,
	}
}
