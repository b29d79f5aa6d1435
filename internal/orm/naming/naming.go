// Package naming derives storage identifiers from model and attribute names.
package naming

import (
	"fmt"
	"strings"
)

// SnakeCase converts a string to snake_case.
// Sanitizes identifiers to only allow alphanumeric characters and underscores.
// Handles acronyms (HTTPRequest -> http_request, userID -> user_id).
func SnakeCase(s string) string {
	var result []rune
	runes := []rune(s)

	for i, r := range runes {
		if !isAlphanumeric(r) && r != '_' {
			continue
		}

		if r >= 'A' && r <= 'Z' {
			if i > 0 && len(result) > 0 {
				prev := runes[i-1]

				// exampleClient -> example_client
				if prev >= 'a' && prev <= 'z' || prev >= '0' && prev <= '9' {
					result = append(result, '_')
				} else if prev >= 'A' && prev <= 'Z' {
					// HTTPRequest -> http_request
					if i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z' {
						result = append(result, '_')
					}
				}
			}
			result = append(result, r+('a'-'A'))
		} else {
			result = append(result, r)
		}
	}

	// Identifiers must not start with a digit
	if len(result) > 0 && result[0] >= '0' && result[0] <= '9' {
		result = append([]rune{'_'}, result...)
	}

	return string(result)
}

// Collection returns the default collection name of a class: the snake_case
// class name with a trailing "s"
func Collection(className string) string {
	name := SnakeCase(className)
	if name == "" {
		return ""
	}
	if strings.HasSuffix(name, "s") {
		return name
	}
	return name + "s"
}

// QuoteIdentifier wraps a SQL identifier in double quotes and escapes internal quotes
func QuoteIdentifier(identifier string) string {
	escaped := strings.ReplaceAll(identifier, `"`, `""`)
	return fmt.Sprintf(`"%s"`, escaped)
}

func isAlphanumeric(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
