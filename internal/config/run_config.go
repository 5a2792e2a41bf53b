package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"lintfleet/internal/failure"
)

// DefaultHost is used when a repository does not name its git host.
const DefaultHost = "github.com"

// DefaultPaths are linted when a repository does not list its own.
var DefaultPaths = []string{"src", "web/src"}

// RunConfig is the file passed via --config.
type RunConfig struct {
	LintConfig LintConfiguration `json:"eslintConfig" yaml:"eslintConfig"`
	Repos      []RepositorySpec  `json:"repos" yaml:"repos"`
}

type RepositorySpec struct {
	Owner      string            `json:"owner" yaml:"owner"`
	Name       string            `json:"name" yaml:"name"`
	Host       string            `json:"host,omitempty" yaml:"host,omitempty"`
	Paths      []string          `json:"paths,omitempty" yaml:"paths,omitempty"`
	LintConfig LintConfiguration `json:"eslintConfig,omitempty" yaml:"eslintConfig,omitempty"`
}

// FullName is the repository identity key, owner/name.
func (r RepositorySpec) FullName() string {
	return r.Owner + "/" + r.Name
}

func (r RepositorySpec) HostOrDefault() string {
	if h := strings.TrimSpace(r.Host); h != "" {
		return h
	}
	return DefaultHost
}

func (r RepositorySpec) PathsOrDefault() []string {
	if len(r.Paths) > 0 {
		return append([]string(nil), r.Paths...)
	}
	return append([]string(nil), DefaultPaths...)
}

// LoadRunConfig reads a run configuration. The file is parsed as JSON first and,
// failing that, as YAML.
func LoadRunConfig(path string) (*RunConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, failure.New(failure.KindConfig, "", "read "+path, err)
	}
	rc, err := ParseRunConfig(raw)
	if err != nil {
		return nil, failure.New(failure.KindConfig, "", "parse "+path, err)
	}
	return rc, nil
}

func ParseRunConfig(raw []byte) (*RunConfig, error) {
	var rc RunConfig
	if jsonErr := json.Unmarshal(raw, &rc); jsonErr != nil {
		rc = RunConfig{}
		if yamlErr := yaml.Unmarshal(raw, &rc); yamlErr != nil {
			return nil, fmt.Errorf("not valid JSON (%v) or YAML (%w)", jsonErr, yamlErr)
		}
		// yaml.v3 gives nested mappings the named LintConfiguration type;
		// JSON decodes them as map[string]any. Consumers see one shape.
		rc.LintConfig = rc.LintConfig.plain()
		for i := range rc.Repos {
			rc.Repos[i].LintConfig = rc.Repos[i].LintConfig.plain()
		}
	}
	if err := rc.Validate(); err != nil {
		return nil, err
	}
	return &rc, nil
}

func (rc *RunConfig) Validate() error {
	if len(rc.Repos) == 0 {
		return errors.New("repos: at least one repository is required")
	}
	seen := make(map[string]int, len(rc.Repos))
	for i := range rc.Repos {
		r := &rc.Repos[i]
		r.Owner = strings.TrimSpace(r.Owner)
		r.Name = strings.TrimSpace(r.Name)
		if r.Owner == "" || r.Name == "" {
			return fmt.Errorf("repos[%d]: owner and name are required", i)
		}
		// owner/name keys report rows, progress trackers and events, so it
		// must be unique across hosts too.
		key := strings.ToLower(r.FullName())
		if prev, ok := seen[key]; ok {
			return fmt.Errorf("repos[%d]: %s duplicates repos[%d]", i, r.FullName(), prev)
		}
		seen[key] = i
	}
	if rc.LintConfig == nil {
		rc.LintConfig = LintConfiguration{}
	}
	return nil
}
