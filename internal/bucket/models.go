package bucket

import (
	"regexp"
	"strings"

	"github.com/abduss/mediavault/internal/apperr"
)

// PreviewsSuffix names the derived-artifact counterpart of a bucket.
const PreviewsSuffix = "-previews"

// PreviewsName returns the previews bucket paired with name.
func PreviewsName(name string) string {
	return name + PreviewsSuffix
}

var namePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]*[a-z0-9]$`)

// ValidateName enforces the store's bucket naming constraints: 3-63 chars,
// lowercase letters, digits, dots and hyphens, no consecutive dots. The
// previews counterpart must also fit, so the effective ceiling is lower.
func ValidateName(name string) error {
	invalid := func(reason string) error {
		return apperr.New(apperr.KindOperationNotValid, "invalid bucket name: "+reason).
			With("bucket", name)
	}

	if len(name) < 3 || len(name) > 63 {
		return invalid("must be 3-63 characters")
	}
	if len(name)+len(PreviewsSuffix) > 63 {
		return invalid("too long for a previews counterpart")
	}
	if !namePattern.MatchString(name) {
		return invalid("only lowercase letters, digits, dots, and hyphens")
	}
	if strings.Contains(name, "..") {
		return invalid("consecutive dots not allowed")
	}
	if strings.HasSuffix(name, PreviewsSuffix) {
		return invalid("reserved suffix")
	}
	return nil
}
