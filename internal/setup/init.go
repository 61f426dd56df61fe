// Package setup implements "taskcoord init".
package setup

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	yamlv3 "gopkg.in/yaml.v3"

	"github.com/msageha/taskcoord/internal/config"
	"github.com/msageha/taskcoord/internal/fileio"
	"github.com/msageha/taskcoord/templates"
)

// Options override the template's paths; empty fields keep the template value.
type Options struct {
	ProjectsDir string
	LogsDir     string
}

// Run writes <dir>/taskcoord.yaml from the embedded template and creates the
// projects and logs directories. An existing config is never overwritten.
func Run(dir string, opts Options) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve dir: %w", err)
	}
	target := filepath.Join(absDir, config.DefaultFile)
	if _, err := os.Stat(target); err == nil {
		return "", fmt.Errorf("%s already exists", target)
	}
	if err := os.MkdirAll(absDir, 0755); err != nil {
		return "", fmt.Errorf("create %s: %w", absDir, err)
	}

	doc, err := generateConfig(opts)
	if err != nil {
		return "", fmt.Errorf("generate config: %w", err)
	}
	if err := fileio.AtomicWriteYAML(target, doc); err != nil {
		return "", fmt.Errorf("write %s: %w", config.DefaultFile, err)
	}

	cfg, err := config.Load(target)
	if err != nil {
		return "", fmt.Errorf("generated config is invalid: %w", err)
	}
	for _, d := range []string{cfg.Paths.ProjectsDir, cfg.Paths.LogsDir} {
		if err := os.MkdirAll(d, 0755); err != nil {
			return "", fmt.Errorf("create directory %s: %w", d, err)
		}
	}
	return target, nil
}

// generateConfig reads the template as a node tree so its comments survive.
func generateConfig(opts Options) (*yamlv3.Node, error) {
	data, err := fs.ReadFile(templates.FS, "config.yaml")
	if err != nil {
		return nil, fmt.Errorf("read config template: %w", err)
	}
	var doc yamlv3.Node
	if err := yamlv3.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse config template: %w", err)
	}

	if opts.ProjectsDir != "" {
		if err := setScalar(&doc, opts.ProjectsDir, "paths", "projects_dir"); err != nil {
			return nil, err
		}
	}
	if opts.LogsDir != "" {
		if err := setScalar(&doc, opts.LogsDir, "paths", "logs_dir"); err != nil {
			return nil, err
		}
	}
	return &doc, nil
}

func setScalar(doc *yamlv3.Node, value string, path ...string) error {
	node := doc
	if node.Kind == yamlv3.DocumentNode && len(node.Content) > 0 {
		node = node.Content[0]
	}
	for _, key := range path {
		next := mappingValue(node, key)
		if next == nil {
			return fmt.Errorf("template has no key %v", path)
		}
		node = next
	}
	node.Kind = yamlv3.ScalarNode
	node.Tag = "!!str"
	node.Value = value
	return nil
}

func mappingValue(node *yamlv3.Node, key string) *yamlv3.Node {
	if node.Kind != yamlv3.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}
