package setup

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/medguard-inference-server/internal/config"
	"github.com/medguard-inference-server/internal/domain"
)

// DefaultServerName is the key the MCP server is registered under.
const DefaultServerName = "medguard-inference"

// ClientConfig is the MCP client configuration file layout shared by
// desktop MCP clients.
type ClientConfig struct {
	MCPServers map[string]MCPServerConfig `json:"mcpServers"`
}

// MCPServerConfig represents a single MCP server entry.
type MCPServerConfig struct {
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// InstallOptions controls RegisterMCPServer.
type InstallOptions struct {
	ConfigPath string // defaults to DefaultClientConfigPath
	ServerName string // defaults to DefaultServerName
	BinaryPath string
	Source     string
	File       string
	SQLitePath string
}

func (o InstallOptions) name() string {
	if o.ServerName == "" {
		return DefaultServerName
	}
	return o.ServerName
}

// env maps the knowledge settings onto the server's environment overrides.
func (o InstallOptions) env() map[string]string {
	env := make(map[string]string)
	set := func(key, value string) {
		if value != "" {
			env[config.EnvPrefix+"_"+key] = value
		}
	}
	set("KNOWLEDGE_SOURCE", o.Source)
	switch o.Source {
	case domain.SourceFile:
		set("KNOWLEDGE_FILE", o.File)
	case domain.SourceSQLite:
		set("KNOWLEDGE_SQLITE_PATH", o.SQLitePath)
	}
	return env
}

// DefaultClientConfigPath returns the desktop MCP client's config file
// location for the current platform.
func DefaultClientConfigPath() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support", "Claude")
	case "linux":
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			configDir = filepath.Join(xdg, "Claude")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config", "Claude")
		}
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		configDir = filepath.Join(appData, "Claude")
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}

	return filepath.Join(configDir, "claude_desktop_config.json"), nil
}

// LoadClientConfig reads the client config at path. A missing file yields
// an empty config.
func LoadClientConfig(path string) (*ClientConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &ClientConfig{MCPServers: make(map[string]MCPServerConfig)}, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg ClientConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if cfg.MCPServers == nil {
		cfg.MCPServers = make(map[string]MCPServerConfig)
	}
	return &cfg, nil
}

// SaveClientConfig writes cfg to path, creating parent directories.
func SaveClientConfig(path string, cfg *ClientConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// RegisterMCPServer adds or replaces the server entry in the client config
// and returns the path written. Other entries are left untouched.
func RegisterMCPServer(opts InstallOptions) (string, error) {
	if opts.BinaryPath == "" {
		return "", fmt.Errorf("%w: binary path is required", ErrUsage)
	}

	path := opts.ConfigPath
	if path == "" {
		var err error
		if path, err = DefaultClientConfigPath(); err != nil {
			return "", err
		}
	}

	cfg, err := LoadClientConfig(path)
	if err != nil {
		return "", err
	}

	entry := MCPServerConfig{Command: opts.BinaryPath}
	if env := opts.env(); len(env) > 0 {
		entry.Env = env
	}
	cfg.MCPServers[opts.name()] = entry

	if err := SaveClientConfig(path, cfg); err != nil {
		return "", err
	}
	return path, nil
}

// FindServerBinary looks for the mcp-server binary on PATH and in the usual
// build locations.
func FindServerBinary() (string, error) {
	const binaryName = "mcp-server"

	if path, err := exec.LookPath(binaryName); err == nil {
		return path, nil
	}

	locations := []string{
		filepath.Join(".", binaryName),
		filepath.Join(".", "bin", binaryName),
	}
	if home, err := os.UserHomeDir(); err == nil {
		locations = append(locations, filepath.Join(home, ".local", "bin", binaryName))
	}
	locations = append(locations, filepath.Join("/usr/local/bin", binaryName))

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			if abs, err := filepath.Abs(loc); err == nil {
				return abs, nil
			}
			return loc, nil
		}
	}

	return "", fmt.Errorf("binary %q not found; pass --binary", binaryName)
}
