package model

// ExpenseCategory is one entry of the accounting specification.
type ExpenseCategory struct {
	Key         string
	DisplayName string
	Keywords    []string // case-insensitive substrings, in declaration order
	GSTRate     float64  // percentage, 0-100
	Order       int      // declaration index within the specification
}

// HasKeyword reports whether kw is one of the category's declared keywords.
func (c ExpenseCategory) HasKeyword(kw string) bool {
	for _, k := range c.Keywords {
		if k == kw {
			return true
		}
	}
	return false
}
