package config

import (
	"fmt"
	"net"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "flush.interval")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

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

func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

func ValidLogFormats() []string {
	return []string{"text", "json"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	if _, _, err := net.SplitHostPort(c.Server.Addr); err != nil {
		errors = append(errors, ValidationError{
			Field:   "server.addr",
			Value:   c.Server.Addr,
			Message: "must be host:port",
		})
	}

	if c.Storage.BufferFile == "" {
		errors = append(errors, ValidationError{
			Field:   "storage.buffer_file",
			Value:   c.Storage.BufferFile,
			Message: "must not be empty",
		})
	}
	if c.Storage.BackupDir == "" {
		errors = append(errors, ValidationError{
			Field:   "storage.backup_dir",
			Value:   c.Storage.BackupDir,
			Message: "must not be empty",
		})
	}

	if c.Flush.Interval <= 0 {
		errors = append(errors, ValidationError{
			Field:   "flush.interval",
			Value:   c.Flush.Interval,
			Message: "must be positive",
		})
	}
	if c.Backup.Interval <= 0 {
		errors = append(errors, ValidationError{
			Field:   "backup.interval",
			Value:   c.Backup.Interval,
			Message: "must be positive",
		})
	}

	if c.Notify.RedisAddr != "" && c.Notify.Channel == "" {
		errors = append(errors, ValidationError{
			Field:   "notify.channel",
			Value:   c.Notify.Channel,
			Message: "must be set when notify.redis_addr is set",
		})
	}

	if !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}
	if !slices.Contains(ValidLogFormats(), strings.ToLower(c.Logging.Format)) {
		errors = append(errors, ValidationError{
			Field:   "logging.format",
			Value:   c.Logging.Format,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogFormats(), ", ")),
		})
	}

	return errors
}
