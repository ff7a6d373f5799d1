package index

import (
	"encoding/json"
	"regexp"
	"strings"
)

// buildDependencyMap reads the well-known manifest files off disk (via the
// toolkit, so paths stay sandboxed) and merges whatever parses. A parse
// failure on any single manifest is swallowed; the others still contribute.
func (s *Scanner) buildDependencyMap() Dependencies {
	deps := Dependencies{
		Node: map[string]string{}, NodeDev: map[string]string{},
		Python: map[string]string{}, PythonDev: map[string]string{},
	}

	if content, err := s.tk.ReadIfExists("package.json"); err == nil && content != "" {
		parsePackageJSON(content, &deps)
	}
	if content, err := s.tk.ReadIfExists("requirements.txt"); err == nil && content != "" {
		parseRequirementsTxt(content, deps.Python)
	}
	if content, err := s.tk.ReadIfExists("requirements-dev.txt"); err == nil && content != "" {
		parseRequirementsTxt(content, deps.PythonDev)
	}
	if content, err := s.tk.ReadIfExists("pyproject.toml"); err == nil && content != "" {
		parsePyprojectTOML(content, deps.Python)
	}

	return deps
}

type packageJSONDeps struct {
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

func parsePackageJSON(content string, deps *Dependencies) {
	var pkg packageJSONDeps
	if err := json.Unmarshal([]byte(content), &pkg); err != nil {
		return
	}
	for name, spec := range pkg.Dependencies {
		deps.Node[name] = versionOrUnspecified(spec)
	}
	for name, spec := range pkg.DevDependencies {
		deps.NodeDev[name] = versionOrUnspecified(spec)
	}
}

var requirementLineRE = regexp.MustCompile(`^([A-Za-z0-9_.\-]+)\s*(.*)$`)

func parseRequirementsTxt(content string, into map[string]string) {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if idx := strings.Index(line, "#"); idx >= 0 {
			line = strings.TrimSpace(line[:idx])
		}
		if line == "" || strings.HasPrefix(line, "-") {
			continue
		}
		m := requirementLineRE.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		into[m[1]] = versionOrUnspecified(m[2])
	}
}

var (
	pep621DependenciesRE = regexp.MustCompile(`(?s)\[project\].*?dependencies\s*=\s*\[(.*?)\]`)
	poetryDependenciesRE = regexp.MustCompile(`(?s)\[tool\.poetry\.dependencies\]\s*(.*?)(\n\[|\z)`)
	pep621EntryRE        = regexp.MustCompile(`"([^"]+)"`)
	poetryEntryRE        = regexp.MustCompile(`(?m)^([A-Za-z0-9_.\-]+)\s*=\s*"?([^"\n]*)"?\s*$`)
)

func parsePyprojectTOML(content string, into map[string]string) {
	if m := pep621DependenciesRE.FindStringSubmatch(content); m != nil {
		for _, entry := range pep621EntryRE.FindAllStringSubmatch(m[1], -1) {
			name, spec := splitPEP508(entry[1])
			into[name] = versionOrUnspecified(spec)
		}
	}
	if m := poetryDependenciesRE.FindStringSubmatch(content); m != nil {
		for _, entry := range poetryEntryRE.FindAllStringSubmatch(m[1], -1) {
			name := strings.TrimSpace(entry[1])
			if name == "python" {
				continue
			}
			into[name] = versionOrUnspecified(entry[2])
		}
	}
}

var pep508NameSpecRE = regexp.MustCompile(`^([A-Za-z0-9_.\-]+)\s*(.*)$`)

func splitPEP508(entry string) (name, spec string) {
	m := pep508NameSpecRE.FindStringSubmatch(strings.TrimSpace(entry))
	if m == nil {
		return strings.TrimSpace(entry), ""
	}
	return m[1], m[2]
}

func versionOrUnspecified(spec string) string {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return "unspecified"
	}
	return spec
}
