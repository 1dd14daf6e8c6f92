package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Shlokpalrecha/Finguru/internal/common"
)

// rawProposal distinguishes absent fields from zero values.
type rawProposal struct {
	Amount       *float64 `json:"amount"`
	Category     *string  `json:"category"`
	GSTRate      *float64 `json:"gst_rate"`
	Confidence   *float64 `json:"confidence"`
	RuleApplied  *string  `json:"rule_applied"`
	GSTReasoning *string  `json:"gst_reasoning"`
	Explanation  *string  `json:"explanation"`
}

// cleanMarkdownWrapper strips a ```json fence and any prose around the outermost object.
func cleanMarkdownWrapper(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```JSON")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
		content = strings.TrimSpace(content)
	}

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start >= 0 && end > start {
		content = content[start : end+1]
	}

	return content
}

// parseProposal decodes oracle output. Missing required fields and malformed
// JSON are contract violations; value ranges are checked by the caller.
func parseProposal(content string) (Proposal, error) {
	cleaned := cleanMarkdownWrapper(content)
	if cleaned == "" {
		return Proposal{}, fmt.Errorf("%w: empty response", common.ErrOracleContractViolation)
	}

	var raw rawProposal
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return Proposal{}, fmt.Errorf("%w: failed to parse JSON response: %v", common.ErrOracleContractViolation, err)
	}

	var missing []string
	if raw.Amount == nil {
		missing = append(missing, "amount")
	}
	if raw.Category == nil {
		missing = append(missing, "category")
	}
	if raw.Confidence == nil {
		missing = append(missing, "confidence")
	}
	if raw.Explanation == nil {
		missing = append(missing, "explanation")
	}
	if len(missing) > 0 {
		return Proposal{}, fmt.Errorf("%w: missing %s", common.ErrOracleContractViolation, strings.Join(missing, ", "))
	}

	p := Proposal{
		Amount:      *raw.Amount,
		Category:    strings.TrimSpace(*raw.Category),
		Confidence:  *raw.Confidence,
		Explanation: strings.TrimSpace(*raw.Explanation),
	}
	if raw.GSTRate != nil {
		p.GSTRate = *raw.GSTRate
	}
	if raw.RuleApplied != nil {
		p.RuleApplied = strings.TrimSpace(*raw.RuleApplied)
	}
	if raw.GSTReasoning != nil {
		p.GSTReasoning = strings.TrimSpace(*raw.GSTReasoning)
	}

	return p, nil
}
