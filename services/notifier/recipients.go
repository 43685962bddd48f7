package notifier

import (
	"errors"
	"fmt"
	"strings"
)

// ParseRecipientList parses a comma-separated list of E.164 phone numbers,
// trimming blanks and dropping duplicates while keeping the original order.
func ParseRecipientList(value string) ([]string, error) {
	parts := strings.Split(value, ",")
	numbers := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))

	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		if err := validateNumber(trimmed); err != nil {
			return nil, err
		}
		if _, dup := seen[trimmed]; dup {
			continue
		}
		seen[trimmed] = struct{}{}
		numbers = append(numbers, trimmed)
	}

	if len(numbers) == 0 {
		return nil, errors.New("no recipient numbers configured")
	}
	return numbers, nil
}

func validateNumber(number string) error {
	if !strings.HasPrefix(number, "+") {
		return fmt.Errorf("%q must start with +", number)
	}
	digits := number[1:]
	if len(digits) < 7 || len(digits) > 15 {
		return fmt.Errorf("%q must have 7 to 15 digits", number)
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return fmt.Errorf("%q contains non-digit characters", number)
		}
	}
	return nil
}
