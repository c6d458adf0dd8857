// Package kubeconfig models kubectl configuration files closely
// enough to prune dead demo-cluster entries while preserving
// everything else: entry bodies round-trip as raw maps, so fields this
// tool does not understand survive a rewrite.
package kubeconfig

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type ClusterEntry struct {
	Name    string                 `yaml:"name"`
	Cluster map[string]interface{} `yaml:"cluster"`
}

// Server is the API endpoint recorded for this cluster.
func (c ClusterEntry) Server() string { return stringField(c.Cluster, "server") }

type ContextEntry struct {
	Name    string                 `yaml:"name"`
	Context map[string]interface{} `yaml:"context"`
}

func (c ContextEntry) ClusterName() string { return stringField(c.Context, "cluster") }
func (c ContextEntry) UserName() string    { return stringField(c.Context, "user") }

type UserEntry struct {
	Name string                 `yaml:"name"`
	User map[string]interface{} `yaml:"user"`
}

// File is one kubeconfig document.
type File struct {
	APIVersion     string                 `yaml:"apiVersion,omitempty"`
	Kind           string                 `yaml:"kind,omitempty"`
	Preferences    map[string]interface{} `yaml:"preferences,omitempty"`
	Clusters       []ClusterEntry         `yaml:"clusters"`
	Contexts       []ContextEntry         `yaml:"contexts"`
	Users          []UserEntry            `yaml:"users"`
	CurrentContext string                 `yaml:"current-context,omitempty"`
	Extensions     []interface{}          `yaml:"extensions,omitempty"`
}

func stringField(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// DefaultPath locates the kubeconfig the way kubectl does: the
// explicit path, then the first $KUBECONFIG entry, then ~/.kube/config.
func DefaultPath(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if env := os.Getenv("KUBECONFIG"); env != "" {
		if paths := filepath.SplitList(env); len(paths) > 0 && paths[0] != "" {
			return paths[0], nil
		}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locate kubeconfig: %w", err)
	}
	return filepath.Join(home, ".kube", "config"), nil
}

func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &f, nil
}

// Save rewrites the file atomically via a temp file in the same
// directory, preserving the original mode.
func (f *File) Save(path string) error {
	data, err := yaml.Marshal(f)
	if err != nil {
		return err
	}

	mode := os.FileMode(0o600)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
