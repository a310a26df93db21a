package errors

import (
	"fmt"
	"strings"
)

// FormatUserError returns a user-friendly error message with actionable guidance.
// It examines the error chain and provides context-appropriate help text.
func FormatUserError(err error) string {
	if err == nil {
		return ""
	}

	var configErr *ConfigError
	if As(err, &configErr) {
		return formatConfigError(configErr)
	}

	var backendErr *BackendUnavailableError
	if As(err, &backendErr) {
		return formatBackendError(backendErr)
	}

	var usageErr *UsageError
	if As(err, &usageErr) {
		return formatUsageError(usageErr)
	}

	var validationErr *ValidationError
	if As(err, &validationErr) {
		return formatValidationError(validationErr)
	}

	if IsInterrupted(err) {
		return "Interrupted by user (Ctrl-C / SIGINT)"
	}

	// Default: return the error message as-is
	return err.Error()
}

// formatConfigError formats a ConfigError with actionable guidance.
func formatConfigError(err *ConfigError) string {
	var b strings.Builder

	if err.Field != "" {
		fmt.Fprintf(&b, "Your configuration is not valid: '%s': %s\n", err.Field, err.Message)
	} else {
		fmt.Fprintf(&b, "Your configuration is not valid: %s\n", err.Message)
	}

	b.WriteString("\nTo fix this:\n")
	b.WriteString("  • Check your config file: ~/.config/scl/config.toml\n")
	b.WriteString("  • Run 'scl config --defaults' to reset your configuration to the defaults\n")

	if err.Cause != nil {
		fmt.Fprintf(&b, "\nUnderlying error: %v", err.Cause)
	}

	return b.String()
}

func formatBackendError(err *BackendUnavailableError) string {
	var b strings.Builder

	b.WriteString(err.Error())
	b.WriteString("\n\nTo fix this:\n")
	b.WriteString("  • Set 'backend' in ~/.config/scl/config.toml to a backend supported on this system\n")
	b.WriteString("  • Run 'scl check' to see which capture tools are installed\n")

	return b.String()
}

func formatUsageError(err *UsageError) string {
	return err.Message + "\n\nRun with --help to see the supported flags."
}

func formatValidationError(err *ValidationError) string {
	var b strings.Builder

	b.WriteString(err.Error())
	b.WriteString("\n\nThe metadata file was probably written by an incompatible version or edited by hand.\n")

	if err.Cause != nil {
		fmt.Fprintf(&b, "\nUnderlying error: %v", err.Cause)
	}

	return b.String()
}
