package config

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed projects-schema.json
var projectsSchema []byte

// ErrProjectsInvalid indicates the projects file failed schema validation.
var ErrProjectsInvalid = errors.New("projects file failed schema validation")

// ProjectEntry assigns one project to a reporting team.
type ProjectEntry struct {
	Name string `json:"name"`
	Team string `json:"team"`
}

// ProjectsFile lists the projects to analyse, split by backend.
type ProjectsFile struct {
	Gerrit []ProjectEntry `json:"gerrit"`
	GitHub []ProjectEntry `json:"github"`
}

// GerritNames returns the Gerrit project names in file order.
func (p *ProjectsFile) GerritNames() []string {
	return entryNames(p.Gerrit)
}

// GitHubNames returns the GitHub project names in file order.
func (p *ProjectsFile) GitHubNames() []string {
	return entryNames(p.GitHub)
}

// SystemOf maps each project name to its backend ("gerrit" or "github").
func (p *ProjectsFile) SystemOf() map[string]string {
	systems := make(map[string]string, len(p.Gerrit)+len(p.GitHub))

	for _, entry := range p.Gerrit {
		systems[entry.Name] = "gerrit"
	}

	for _, entry := range p.GitHub {
		systems[entry.Name] = "github"
	}

	return systems
}

func entryNames(entries []ProjectEntry) []string {
	names := make([]string, 0, len(entries))

	for _, entry := range entries {
		names = append(names, entry.Name)
	}

	return names
}

// ValidateProjects checks raw projects-file JSON against the embedded
// schema. It returns the violation descriptions; an empty slice means the
// document is valid.
func ValidateProjects(data []byte) ([]string, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(projectsSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("validate projects file: %w", err)
	}

	if result.Valid() {
		return nil, nil
	}

	violations := make([]string, 0, len(result.Errors()))

	for _, verr := range result.Errors() {
		violations = append(violations, fmt.Sprintf("%s: %s", verr.Field(), verr.Description()))
	}

	return violations, nil
}

// LoadProjects reads and schema-validates a projects file.
func LoadProjects(path string) (*ProjectsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read projects file: %w", err)
	}

	violations, err := ValidateProjects(data)
	if err != nil {
		return nil, err
	}

	if len(violations) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrProjectsInvalid, strings.Join(violations, "; "))
	}

	var projects ProjectsFile

	err = json.Unmarshal(data, &projects)
	if err != nil {
		return nil, fmt.Errorf("decode projects file: %w", err)
	}

	return &projects, nil
}
