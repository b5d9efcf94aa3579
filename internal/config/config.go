package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	env "github.com/netflix/go-env"

	"github.com/ca-srg/chatbridge/internal/credentials"
	"github.com/ca-srg/chatbridge/internal/types"
)

// Type alias for Config
type Config = types.Config

// Load loads configuration from environment variables
func Load() (*Config, error) {
	var config Config

	_, err := env.UnmarshalFromEnviron(&config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	// Parse MCPAllowedIPs from a comma or pipe separated string
	config.MCPAllowedIPs = splitList(config.MCPAllowedIPsStr)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// validateConfig validates configuration values and adjusts them to safe ranges
func validateConfig(config *Config) error {
	// Clamp the default read limit to the Slack history page size
	if config.MessagingReadDefaultLimit < 1 {
		config.MessagingReadDefaultLimit = 1
	}
	if config.MessagingReadDefaultLimit > 100 {
		config.MessagingReadDefaultLimit = 100
	}

	// Clamp the platform HTTP timeout
	if config.MessagingHTTPTimeout < time.Second {
		config.MessagingHTTPTimeout = time.Second
	}
	if config.MessagingHTTPTimeout > 5*time.Minute {
		config.MessagingHTTPTimeout = 5 * time.Minute
	}

	if err := validateCredentialConfig(config); err != nil {
		return fmt.Errorf("credential configuration validation failed: %w", err)
	}

	if err := validateMCPConfig(config); err != nil {
		return fmt.Errorf("MCP server configuration validation failed: %w", err)
	}

	return nil
}

// validateCredentialConfig validates the credential source selection
func validateCredentialConfig(config *Config) error {
	switch config.CredentialSource {
	case "", credentials.SourceEnv:
	case credentials.SourceSecretsManager:
		if config.AWSRegion == "" {
			return fmt.Errorf("AWS_REGION is required when CREDENTIAL_SOURCE is %s", credentials.SourceSecretsManager)
		}
	default:
		return fmt.Errorf("CREDENTIAL_SOURCE must be %q or %q, got: %s",
			credentials.SourceEnv, credentials.SourceSecretsManager, config.CredentialSource)
	}

	return nil
}

// validateMCPConfig validates MCP server-specific configuration
func validateMCPConfig(config *Config) error {
	// Validate MCP server port
	if config.MCPServerPort < 1 || config.MCPServerPort > 65535 {
		return fmt.Errorf("MCP_SERVER_PORT must be between 1 and 65535")
	}

	// Validate MCP server host
	if config.MCPServerHost == "" {
		return fmt.Errorf("MCP_SERVER_HOST cannot be empty")
	}
	if net.ParseIP(config.MCPServerHost) == nil && !isValidHostname(config.MCPServerHost) {
		return fmt.Errorf("MCP_SERVER_HOST must be a valid IP address or hostname: %s", config.MCPServerHost)
	}

	// Validate timeout values
	timeoutChecks := []struct {
		name     string
		value    time.Duration
		maxValue time.Duration
	}{
		{"MCP_SERVER_READ_TIMEOUT", config.MCPServerReadTimeout, 5 * time.Minute},
		{"MCP_SERVER_WRITE_TIMEOUT", config.MCPServerWriteTimeout, 5 * time.Minute},
		{"MCP_SERVER_IDLE_TIMEOUT", config.MCPServerIdleTimeout, 30 * time.Minute},
		{"MCP_SERVER_SHUTDOWN_TIMEOUT", config.MCPServerShutdownTimeout, 2 * time.Minute},
	}
	for _, check := range timeoutChecks {
		if check.value <= 0 {
			return fmt.Errorf("%s must be greater than 0", check.name)
		}
		if check.value > check.maxValue {
			return fmt.Errorf("%s cannot exceed %v", check.name, check.maxValue)
		}
	}

	// Validate max header bytes
	if config.MCPServerMaxHeaderBytes <= 0 {
		return fmt.Errorf("MCP_SERVER_MAX_HEADER_BYTES must be greater than 0")
	}
	if config.MCPServerMaxHeaderBytes > 10<<20 { // 10MB limit
		return fmt.Errorf("MCP_SERVER_MAX_HEADER_BYTES cannot exceed 10MB")
	}

	if err := validateIPAuthConfig(config); err != nil {
		return err
	}

	if config.MCPToolPrefix != "" && !isValidToolPrefix(config.MCPToolPrefix) {
		return fmt.Errorf("MCP_TOOL_PREFIX contains invalid characters: %s", config.MCPToolPrefix)
	}

	return nil
}

// validateIPAuthConfig validates the IP allowlist. Entries may be single
// addresses or CIDR ranges.
func validateIPAuthConfig(config *Config) error {
	if !config.MCPIPAuthEnabled {
		return nil
	}

	if len(config.MCPAllowedIPs) == 0 {
		return fmt.Errorf("MCP_ALLOWED_IPS cannot be empty when IP authentication is enabled")
	}

	const maxAllowedIPs = 100
	if len(config.MCPAllowedIPs) > maxAllowedIPs {
		return fmt.Errorf("MCP_ALLOWED_IPS cannot list more than %d entries, got: %d", maxAllowedIPs, len(config.MCPAllowedIPs))
	}

	for i, entry := range config.MCPAllowedIPs {
		if net.ParseIP(entry) != nil {
			continue
		}
		if _, _, err := net.ParseCIDR(entry); err == nil {
			continue
		}
		return fmt.Errorf("invalid address in MCP_ALLOWED_IPS at index %d: %s", i, entry)
	}

	return nil
}

// splitList splits a comma or pipe separated environment value, dropping
// empty entries.
func splitList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '|' })
	list := make([]string, 0, len(fields))
	for _, field := range fields {
		if trimmed := strings.TrimSpace(field); trimmed != "" {
			list = append(list, trimmed)
		}
	}
	return list
}

// isValidHostname checks if a string is a valid hostname
func isValidHostname(hostname string) bool {
	if len(hostname) == 0 || len(hostname) > 253 {
		return false
	}

	for _, char := range hostname {
		if !((char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') || char == '-' || char == '.') {
			return false
		}
	}

	if strings.HasPrefix(hostname, "-") || strings.HasSuffix(hostname, "-") {
		return false
	}

	return true
}

// isValidToolPrefix checks that a tool name prefix keeps the prefixed
// tool names valid MCP identifiers.
func isValidToolPrefix(prefix string) bool {
	if len(prefix) == 0 || len(prefix) > 40 {
		return false
	}

	for _, char := range prefix {
		if !((char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') || char == '_' || char == '-') {
			return false
		}
	}

	return true
}
