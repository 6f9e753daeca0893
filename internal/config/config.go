// Package config loads the playscript configuration file.
//
// The file is CUE. It is unified with an embedded #Config schema that
// carries the defaults, so a missing file or an empty one yields a usable
// configuration. Unknown fields and values outside the schema are errors.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var schemaCUE string

// FileName is the config file name inside the config directory.
const FileName = "playscript.cue"

// Config is the decoded configuration.
type Config struct {
	ClientID     string            `json:"client_id"`
	ClientSecret string            `json:"client_secret"`
	RedirectURI  string            `json:"redirect_uri"`
	Scopes       []string          `json:"scopes"`
	Market       string            `json:"market"`
	Database     string            `json:"database"`
	TokenFile    string            `json:"token_file"`
	ScriptsDir   string            `json:"scripts_dir"`
	SettleMS     int               `json:"settle_ms"`
	Aliases      map[string]string `json:"aliases"`
	Library      Library           `json:"library"`

	// Path is the file the configuration was read from, empty when the
	// defaults were used.
	Path string `json:"-"`
}

// Library configures offline mode.
type Library struct {
	Dir       string `json:"dir"`
	QueueFile string `json:"queue_file"`
}

// Settle returns the settle pause as a duration.
func (c *Config) Settle() time.Duration {
	return time.Duration(c.SettleMS) * time.Millisecond
}

// Offline reports whether a local library is configured.
func (c *Config) Offline() bool {
	return c.Library.Dir != ""
}

// Dir returns the default config directory, $HOME/.config/playscript.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config dir: %w", err)
	}
	return filepath.Join(home, ".config", "playscript"), nil
}

// DefaultPath returns the default config file path.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FileName), nil
}

// Load reads the config file at path. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Parse(nil, "")
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data, path)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse unifies CUE source with the schema and decodes it. filename is
// used in error positions and recorded as Config.Path.
func Parse(src []byte, filename string) (*Config, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("config schema: %w", err)
	}
	value := schema.LookupPath(cue.ParsePath("#Config"))

	if len(src) > 0 {
		name := filename
		if name == "" {
			name = FileName
		}
		user := ctx.CompileBytes(src, cue.Filename(name))
		if err := user.Err(); err != nil {
			return nil, configError(err)
		}
		value = value.Unify(user)
	}
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, configError(err)
	}

	var cfg Config
	if err := value.Decode(&cfg); err != nil {
		return nil, configError(err)
	}
	if cfg.Aliases == nil {
		cfg.Aliases = map[string]string{}
	}
	cfg.Path = filename
	if err := cfg.resolvePaths(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// configError flattens CUE errors to one line per problem with positions.
func configError(err error) error {
	details := strings.TrimSpace(cueerrors.Details(err, nil))
	return fmt.Errorf("invalid config:\n%s", details)
}

// resolvePaths fills empty paths with defaults below the config directory
// and expands a leading "~/".
func (c *Config) resolvePaths() error {
	needDir := c.Database == "" || c.TokenFile == ""
	if needDir {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if c.Database == "" {
			c.Database = filepath.Join(dir, "playscript.db")
		}
		if c.TokenFile == "" {
			c.TokenFile = filepath.Join(dir, "token.json")
		}
	}
	for _, p := range []*string{&c.Database, &c.TokenFile, &c.ScriptsDir, &c.Library.Dir, &c.Library.QueueFile} {
		expanded, err := expandHome(*p)
		if err != nil {
			return err
		}
		*p = expanded
	}
	return nil
}

func expandHome(p string) (string, error) {
	if !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("expand %s: %w", p, err)
	}
	return filepath.Join(home, p[2:]), nil
}
