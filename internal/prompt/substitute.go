// Package prompt expands user-defined {KEY} placeholders in prompt templates.
package prompt

import (
	"strings"

	"github.com/mailquill/backend/internal/models"
)

// Substitute replaces every literal occurrence of {KEY} in the template with
// the variable's value. Matching is case-sensitive and exact: a key is a
// literal string, never a pattern, and {USER} does not match a variable
// named USERNAME. Placeholders without a matching variable stay verbatim;
// substitution is additive-only and never an error.
func Substitute(template string, variables []models.PromptVariable) string {
	result := template
	for _, variable := range variables {
		if variable.Key == "" {
			continue
		}
		result = strings.ReplaceAll(result, "{"+variable.Key+"}", variable.Value)
	}
	return result
}
