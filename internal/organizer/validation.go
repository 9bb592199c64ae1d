package organizer

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"log/slog"

	"reelkeeper/internal/logging"
	"reelkeeper/internal/services"
)

var placeholderPattern = regexp.MustCompile(`\{([a-z]+)(?::(\d+))?\}`)

var knownPlaceholders = map[string]bool{
	"title":   true,
	"year":    true,
	"season":  true,
	"episode": true,
	"quality": true,
	"ext":     true,
}

// ValidateTemplate rejects unknown placeholders and unbalanced braces.
func ValidateTemplate(name, tmpl string) error {
	if strings.TrimSpace(tmpl) == "" {
		return services.Wrap(services.ErrValidation, "organizing", "validate template",
			fmt.Sprintf("%s template is empty", name), nil)
	}
	for _, m := range placeholderPattern.FindAllStringSubmatch(tmpl, -1) {
		if !knownPlaceholders[m[1]] {
			return services.Wrap(services.ErrValidation, "organizing", "validate template",
				fmt.Sprintf("%s template uses unknown placeholder {%s}", name, m[1]), nil)
		}
	}
	rest := placeholderPattern.ReplaceAllString(tmpl, "")
	if strings.ContainsAny(rest, "{}") {
		return services.Wrap(services.ErrValidation, "organizing", "validate template",
			fmt.Sprintf("%s template has unbalanced braces", name), nil)
	}
	return nil
}

// ValidatePlan verifies that every operation is well formed and that no two
// operations target the same destination. Violations are logged with the
// offending paths.
func ValidatePlan(plan []FileOperation, logger *slog.Logger) error {
	seen := make(map[string]string, len(plan))
	for i, op := range plan {
		var problem string
		switch {
		case op.Type != OperationMove && op.Type != OperationCopy:
			problem = fmt.Sprintf("operation %d has unknown type %q", i, op.Type)
		case !filepath.IsAbs(op.Source) || !filepath.IsAbs(op.Destination):
			problem = fmt.Sprintf("operation %d paths must be absolute", i)
		default:
			dest := filepath.Clean(op.Destination)
			if prev, dup := seen[dest]; dup {
				problem = fmt.Sprintf("operations %s and %s both target %s", prev, op.ID, dest)
			}
			seen[dest] = op.ID
		}
		if problem == "" {
			continue
		}
		if logger != nil {
			logger.Error("plan validation failed",
				logging.String("source", op.Source),
				logging.String("destination", op.Destination),
				logging.String(logging.FieldEventType, "plan_validation_failed"),
				logging.String(logging.FieldErrorHint, problem),
			)
		}
		return services.Wrap(services.ErrValidation, "organizing", "validate plan", problem, nil)
	}
	return nil
}
