// Copyright 2025 Sandeep Bazar
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"strings"

	"gitlab.com/tozd/go/errors"
)

// 📦 Remote identifies one of the two git remotes the sync works against.
type Remote struct {
	Name string `json:"name" yaml:"name"`                   // git remote name
	Repo string `json:"repo" yaml:"repo"`                   // owner/repo slug, must appear in the remote's fetch URL
	URL  string `json:"url,omitempty" yaml:"url,omitempty"` // clone URL, used when auto-adding the remote
}

// Owner returns the owner half of the slug.
func (r Remote) Owner() string {
	owner, _, _ := strings.Cut(r.Repo, "/")
	return owner
}

// RepoName returns the repository half of the slug.
func (r Remote) RepoName() string {
	_, name, _ := strings.Cut(r.Repo, "/")
	return name
}

// 📚 Config represents the complete sync configuration.
type Config struct {
	Branch             string   `json:"branch,omitempty" yaml:"branch,omitempty"`                             // Branch kept in sync on both remotes
	Origin             Remote   `json:"origin,omitempty" yaml:"origin,omitempty"`                             // The fork we push to
	Upstream           Remote   `json:"upstream,omitempty" yaml:"upstream,omitempty"`                         // The source we merge from
	CommitMessage      string   `json:"commit_message,omitempty" yaml:"commit_message,omitempty"`             // Message for the sync commit
	TestCommand        []string `json:"test_command,omitempty" yaml:"test_command,omitempty"`                 // Command run before publishing
	AllowedChangeGlobs []string `json:"allowed_change_globs,omitempty" yaml:"allowed_change_globs,omitempty"` // Paths the patches may leave dirty
	Force              bool     `json:"force,omitempty" yaml:"force,omitempty"`                               // Proceed despite a dirty working tree
}

// 🎯 Default returns the configuration matching the ibm-fusion-mcp-server
// fork. The tool is expected to work without any config file at all.
func Default() *Config {
	return &Config{
		Branch: "main",
		Origin: Remote{
			Name: "origin",
			Repo: "sandeepbazar/ibm-fusion-mcp-server",
		},
		Upstream: Remote{
			Name: "upstream",
			Repo: "containers/kubernetes-mcp-server",
			URL:  "https://github.com/containers/kubernetes-mcp-server.git",
		},
		CommitMessage: "chore(fusion): sync upstream and apply fusion integration hooks",
		TestCommand:   []string{"go", "test", "./..."},
		AllowedChangeGlobs: []string{
			"pkg/toolsets/toolsets.go",
			"pkg/mcp/modules.go",
		},
	}
}

// 🔍 Validate checks the configuration and fills derivable defaults.
func (cfg *Config) Validate() error {
	def := Default()

	if cfg.Branch == "" {
		cfg.Branch = def.Branch
	}
	if cfg.Origin.Name == "" {
		return errors.New("origin.name is required")
	}
	if !strings.Contains(cfg.Origin.Repo, "/") {
		return errors.Errorf("origin.repo must be an owner/repo slug, got %q", cfg.Origin.Repo)
	}
	if cfg.Upstream.Name == "" {
		return errors.New("upstream.name is required")
	}
	if !strings.Contains(cfg.Upstream.Repo, "/") {
		return errors.Errorf("upstream.repo must be an owner/repo slug, got %q", cfg.Upstream.Repo)
	}
	if cfg.CommitMessage == "" {
		cfg.CommitMessage = def.CommitMessage
	}
	if len(cfg.TestCommand) == 0 {
		cfg.TestCommand = def.TestCommand
	}
	if len(cfg.AllowedChangeGlobs) == 0 {
		cfg.AllowedChangeGlobs = def.AllowedChangeGlobs
	}
	return nil
}
