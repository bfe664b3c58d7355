package sqlqueue

import (
	"fmt"
	"strings"
)

// ParseName validates a queue name and splits it into its dot-separated parts.
// Each part must start with a letter or underscore followed by letters, digits or underscores.
func ParseName(name string) ([]string, error) {
	if name == "" {
		return nil, ErrNameRequired
	}
	parts := strings.Split(name, ".")
	for _, part := range parts {
		if part == "" {
			return nil, fmt.Errorf("%w: %s", ErrInvalidName, name)
		}
		for i, r := range part {
			if r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
				continue
			}
			if i > 0 && r >= '0' && r <= '9' {
				continue
			}

			return nil, fmt.Errorf("%w: %s", ErrInvalidName, name)
		}
	}

	return parts, nil
}
