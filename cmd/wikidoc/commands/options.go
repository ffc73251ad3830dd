package commands

import (
	"context"
	"errors"
	"fmt"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/jmylchreest/wikidoc/internal/logger"
	"github.com/jmylchreest/wikidoc/internal/render"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateOptions checks an option struct and joins every failure into one
// error naming the offending flags.
func validateOptions(opts any) error {
	err := validate.Struct(opts)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, formatValidationError(e))
	}
	return fmt.Errorf("invalid options: %s", strings.Join(msgs, "; "))
}

// formatValidationError creates a human-readable error message.
func formatValidationError(e validator.FieldError) string {
	flag := flagName(e.Field())
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("--%s is required", flag)
	case "gte":
		return fmt.Sprintf("--%s must be at least %s", flag, e.Param())
	case "lte":
		return fmt.Sprintf("--%s must be at most %s", flag, e.Param())
	case "gt":
		return fmt.Sprintf("--%s must be greater than %s", flag, e.Param())
	case "oneof":
		return fmt.Sprintf("--%s must be one of: %s", flag, strings.ReplaceAll(e.Param(), " ", ", "))
	case "url":
		return fmt.Sprintf("--%s must be an absolute URL", flag)
	case "file":
		return fmt.Sprintf("--%s: no such file: %v", flag, e.Value())
	default:
		return fmt.Sprintf("--%s failed validation '%s'", flag, e.Tag())
	}
}

// flagName converts a Go field name such as TOCDepth into toc-depth.
func flagName(field string) string {
	var b strings.Builder
	runes := []rune(field)
	for i, r := range runes {
		upper := r >= 'A' && r <= 'Z'
		if upper && i > 0 {
			prevLower := runes[i-1] >= 'a' && runes[i-1] <= 'z'
			nextLower := i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z'
			if prevLower || nextLower {
				b.WriteByte('-')
			}
		}
		if upper {
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

// absPath expands a leading ~ and makes path absolute. Empty stays empty.
func absPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to expand %s: %w", path, err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return filepath.Abs(path)
}

// describeOutput returns "path (size)" for a written file.
func describeOutput(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return path
	}
	return fmt.Sprintf("%s (%s)", path, humanize.Bytes(uint64(info.Size()))) //#nosec G115 -- file sizes are non-negative
}

// parseHeaders turns repeated "Name: Value" flag values into a header map.
func parseHeaders(values []string) (map[string]string, error) {
	if len(values) == 0 {
		return nil, nil
	}
	headers := make(map[string]string, len(values))
	for _, v := range values {
		name, value, ok := strings.Cut(v, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" || strings.ContainsAny(name, " \t") {
			return nil, fmt.Errorf("invalid --header %q: expected \"Name: Value\"", v)
		}
		headers[textproto.CanonicalMIMEHeaderKey(name)] = strings.TrimSpace(value)
	}
	return headers, nil
}

// newPandoc locates the configured pandoc binary.
func newPandoc(ctx context.Context) (*render.Pandoc, error) {
	pandoc, err := render.NewPandoc(ctx, viper.GetString("pandoc"))
	if err != nil {
		return nil, err
	}
	logger.Debug("pandoc available", "binary", pandoc.Binary(), "version", pandoc.Version())
	return pandoc, nil
}
