package langparse

import (
	"regexp"
	"strings"
)

var (
	pyDefRE      = regexp.MustCompile(`^\s*(async\s+)?def\s+([A-Za-z_][A-Za-z0-9_]*)\s*\(`)
	pyClassRE    = regexp.MustCompile(`^\s*class\s+([A-Za-z_][A-Za-z0-9_]*)\s*[:(]`)
	pyImportRE   = regexp.MustCompile(`^\s*import\s+(.+)`)
	pyFromImportRE = regexp.MustCompile(`^\s*from\s+(\S+)\s+import\s+(.+)`)
	pyIdentifierRE = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)
)

var pyKeywords = map[string]bool{
	"False": true, "None": true, "True": true, "and": true, "as": true, "assert": true,
	"async": true, "await": true, "break": true, "class": true, "continue": true, "def": true,
	"del": true, "elif": true, "else": true, "except": true, "finally": true, "for": true,
	"from": true, "global": true, "if": true, "import": true, "in": true, "is": true,
	"lambda": true, "nonlocal": true, "not": true, "or": true, "pass": true, "raise": true,
	"return": true, "try": true, "while": true, "with": true, "yield": true, "self": true, "cls": true,
}

func parsePython(relPath, content string) FileResult {
	lines := strings.Split(content, "\n")
	var result FileResult
	declared := map[string]bool{}

	addSymbol := func(name string, kind SymbolKind, line int) {
		if name == "" {
			return
		}
		declared[name] = true
		result.Symbols = append(result.Symbols, Symbol{
			Name: name, Kind: kind, Path: relPath, Line: line, Language: string(LangPython),
			Exported: !strings.HasPrefix(name, "_"),
		})
	}

	for i, line := range lines {
		lineNo := i + 1

		if m := pyDefRE.FindStringSubmatch(line); m != nil {
			addSymbol(m[2], KindFunction, lineNo)
			continue
		}
		if m := pyClassRE.FindStringSubmatch(line); m != nil {
			addSymbol(m[1], KindClass, lineNo)
			continue
		}
		if m := pyFromImportRE.FindStringSubmatch(line); m != nil {
			names := parsePythonImportedNames(m[2])
			for _, n := range names {
				declared[n] = true
			}
			result.Imports = append(result.Imports, Import{
				Path: relPath, Line: lineNo, Language: string(LangPython), Source: strings.TrimSpace(m[1]), Imported: names,
			})
			continue
		}
		if m := pyImportRE.FindStringSubmatch(line); m != nil {
			names := parsePythonImportedNames(m[1])
			for _, n := range names {
				declared[n] = true
			}
			result.Imports = append(result.Imports, Import{
				Path: relPath, Line: lineNo, Language: string(LangPython), Source: strings.TrimSpace(m[1]), Imported: names,
			})
			continue
		}
	}

	for i, line := range lines {
		lineNo := i + 1
		for _, tok := range pyIdentifierRE.FindAllString(line, -1) {
			if pyKeywords[tok] || declared[tok] {
				continue
			}
			result.Uses = append(result.Uses, Use{Name: tok, Path: relPath, Line: lineNo, Language: string(LangPython)})
		}
	}

	return result
}

// parsePythonImportedNames extracts the bound names from an "import a, b as
// c" or "from m import a, b as c" clause, applying "as" aliases. A bare
// "import pkg.sub" clause binds the top-level package name "pkg".
func parsePythonImportedNames(clause string) []string {
	var names []string
	for _, part := range strings.Split(clause, ",") {
		part = strings.TrimSpace(part)
		if part == "" || part == "*" {
			continue
		}
		if idx := strings.Index(part, " as "); idx >= 0 {
			names = append(names, strings.TrimSpace(part[idx+4:]))
			continue
		}
		if dot := strings.Index(part, "."); dot >= 0 {
			part = part[:dot]
		}
		names = append(names, part)
	}
	return names
}
