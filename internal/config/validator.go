package config

import (
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure.
type ValidationError struct {
	Field   string // config key, e.g. "view.zoom"
	Value   any
	Message string
}

// Error implements the error interface for ValidationError.
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

var hexColorRegex = regexp.MustCompile(`^#([0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)

const (
	maxWindowSide = 16384
	minZoom       = 1e-3
	maxZoom       = 1e5
)

// ValidLogLevels returns the accepted log levels.
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidLogFormats returns the accepted log formats.
func ValidLogFormats() []string {
	return []string{"json", "text"}
}

// Validate checks the Config and returns every problem found.
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError
	errors = append(errors, c.validateRosbridge()...)
	errors = append(errors, c.validateWindow()...)
	errors = append(errors, c.validateView()...)
	errors = append(errors, c.validateTF()...)
	errors = append(errors, c.validateLogging()...)
	if strings.TrimSpace(c.Settings.Path) == "" {
		errors = append(errors, ValidationError{
			Field:   "settings.path",
			Value:   c.Settings.Path,
			Message: `must be a file path or ":memory:"`,
		})
	}
	return errors
}

func (c *Config) validateRosbridge() []ValidationError {
	var errors []ValidationError
	u, err := url.Parse(c.Rosbridge.URL)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
		errors = append(errors, ValidationError{
			Field:   "rosbridge.url",
			Value:   c.Rosbridge.URL,
			Message: "must be a ws:// or wss:// URL",
		})
	}
	if c.Rosbridge.DialTimeout <= 0 {
		errors = append(errors, ValidationError{
			Field:   "rosbridge.dial_timeout",
			Value:   c.Rosbridge.DialTimeout,
			Message: "must be positive",
		})
	}
	return errors
}

func (c *Config) validateWindow() []ValidationError {
	var errors []ValidationError
	for field, v := range map[string]int{"window.width": c.Window.Width, "window.height": c.Window.Height} {
		if v <= 0 || v > maxWindowSide {
			errors = append(errors, ValidationError{
				Field:   field,
				Value:   v,
				Message: fmt.Sprintf("must be between 1 and %d", maxWindowSide),
			})
		}
	}
	if !hexColorRegex.MatchString(c.Window.Background) {
		errors = append(errors, ValidationError{
			Field:   "window.background",
			Value:   c.Window.Background,
			Message: "must be #rrggbb or #rrggbbaa",
		})
	}
	slices.SortFunc(errors, func(a, b ValidationError) int { return strings.Compare(a.Field, b.Field) })
	return errors
}

func (c *Config) validateView() []ValidationError {
	if c.View.Zoom < minZoom || c.View.Zoom > maxZoom {
		return []ValidationError{{
			Field:   "view.zoom",
			Value:   c.View.Zoom,
			Message: fmt.Sprintf("must be between %g and %g", minZoom, maxZoom),
		}}
	}
	return nil
}

func (c *Config) validateTF() []ValidationError {
	var errors []ValidationError
	if strings.TrimSpace(strings.TrimPrefix(c.TF.FixedFrame, "/")) == "" {
		errors = append(errors, ValidationError{
			Field:   "tf.fixed_frame",
			Value:   c.TF.FixedFrame,
			Message: "must not be empty",
		})
	}
	for i, topic := range c.TF.Topics {
		if strings.TrimSpace(topic) == "" {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("tf.topics[%d]", i),
				Value:   topic,
				Message: "must not be empty",
			})
		}
	}
	return errors
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError
	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}
	if c.Logging.Format != "" && !slices.Contains(ValidLogFormats(), c.Logging.Format) {
		errors = append(errors, ValidationError{
			Field:   "logging.format",
			Value:   c.Logging.Format,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogFormats(), ", ")),
		})
	}
	return errors
}
