package langparse

import (
	"regexp"
	"strings"
)

var (
	tsFunctionRE  = regexp.MustCompile(`^\s*(export\s+)?(default\s+)?(async\s+)?function\s*\*?\s+([A-Za-z_$][A-Za-z0-9_$]*)`)
	tsClassRE     = regexp.MustCompile(`^\s*(export\s+)?(default\s+)?(abstract\s+)?class\s+([A-Za-z_$][A-Za-z0-9_$]*)`)
	tsInterfaceRE = regexp.MustCompile(`^\s*(export\s+)?interface\s+([A-Za-z_$][A-Za-z0-9_$]*)`)
	tsTypeRE      = regexp.MustCompile(`^\s*(export\s+)?type\s+([A-Za-z_$][A-Za-z0-9_$]*)\s*[=<]`)
	tsEnumRE      = regexp.MustCompile(`^\s*(export\s+)?(const\s+)?enum\s+([A-Za-z_$][A-Za-z0-9_$]*)`)
	tsVarRE       = regexp.MustCompile(`^\s*(export\s+)?(const|let|var)\s+(.+)`)
	tsImportFromRE = regexp.MustCompile(`^\s*import\s+(.+?)\s+from\s+['"]([^'"]+)['"]`)
	tsImportBareRE = regexp.MustCompile(`^\s*import\s+['"]([^'"]+)['"]`)
	tsIdentifierRE = regexp.MustCompile(`[A-Za-z_$][A-Za-z0-9_$]*`)
)

var tsjsKeywords = map[string]bool{
	"abstract": true, "any": true, "as": true, "async": true, "await": true, "boolean": true,
	"break": true, "case": true, "catch": true, "class": true, "const": true, "continue": true,
	"debugger": true, "declare": true, "default": true, "delete": true, "do": true, "else": true,
	"enum": true, "export": true, "extends": true, "false": true, "finally": true, "for": true,
	"from": true, "function": true, "if": true, "implements": true, "import": true, "in": true,
	"instanceof": true, "interface": true, "let": true, "namespace": true, "never": true,
	"new": true, "null": true, "number": true, "object": true, "of": true, "private": true,
	"protected": true, "public": true, "readonly": true, "return": true, "static": true,
	"string": true, "super": true, "switch": true, "symbol": true, "this": true, "throw": true,
	"true": true, "try": true, "type": true, "typeof": true, "undefined": true, "unknown": true,
	"var": true, "void": true, "while": true, "with": true, "yield": true,
}

func parseTSJS(relPath, content string) FileResult {
	lines := strings.Split(content, "\n")
	var result FileResult
	declared := map[string]bool{}

	addSymbol := func(name string, kind SymbolKind, line int, exported bool) {
		if name == "" {
			return
		}
		declared[name] = true
		result.Symbols = append(result.Symbols, Symbol{
			Name: name, Kind: kind, Path: relPath, Line: line, Language: string(LangTSJS), Exported: exported,
		})
	}

	for i, line := range lines {
		lineNo := i + 1

		if m := tsFunctionRE.FindStringSubmatch(line); m != nil {
			addSymbol(m[4], KindFunction, lineNo, m[1] != "")
			continue
		}
		if m := tsClassRE.FindStringSubmatch(line); m != nil {
			addSymbol(m[4], KindClass, lineNo, m[1] != "")
			continue
		}
		if m := tsInterfaceRE.FindStringSubmatch(line); m != nil {
			addSymbol(m[2], KindInterface, lineNo, m[1] != "")
			continue
		}
		if m := tsTypeRE.FindStringSubmatch(line); m != nil {
			addSymbol(m[2], KindType, lineNo, m[1] != "")
			continue
		}
		if m := tsEnumRE.FindStringSubmatch(line); m != nil {
			addSymbol(m[3], KindEnum, lineNo, m[1] != "")
			continue
		}
		if m := tsImportFromRE.FindStringSubmatch(line); m != nil {
			names := parseImportClause(m[1])
			for _, n := range names {
				declared[n] = true
			}
			result.Imports = append(result.Imports, Import{
				Path: relPath, Line: lineNo, Language: string(LangTSJS), Source: m[2], Imported: names,
			})
			continue
		}
		if m := tsImportBareRE.FindStringSubmatch(line); m != nil {
			result.Imports = append(result.Imports, Import{
				Path: relPath, Line: lineNo, Language: string(LangTSJS), Source: m[1], Imported: []string{},
			})
			continue
		}
		if m := tsVarRE.FindStringSubmatch(line); m != nil {
			for _, name := range variableDeclaratorNames(m[3]) {
				addSymbol(name, KindVariable, lineNo, m[1] != "")
			}
			continue
		}
	}

	for i, line := range lines {
		lineNo := i + 1
		for _, tok := range tsIdentifierRE.FindAllString(line, -1) {
			if tsjsKeywords[tok] || declared[tok] {
				continue
			}
			result.Uses = append(result.Uses, Use{Name: tok, Path: relPath, Line: lineNo, Language: string(LangTSJS)})
		}
	}

	return result
}

// parseImportClause splits an import clause into the identifiers it binds:
// default import, "* as X" namespace import, and named imports (applying
// "as" aliases).
func parseImportClause(clause string) []string {
	clause = strings.TrimSpace(clause)
	var names []string

	braceStart := strings.Index(clause, "{")
	braceEnd := strings.LastIndex(clause, "}")

	before := clause
	if braceStart >= 0 && braceEnd > braceStart {
		before = clause[:braceStart]
		named := clause[braceStart+1 : braceEnd]
		for _, part := range strings.Split(named, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if idx := strings.Index(part, " as "); idx >= 0 {
				names = append(names, strings.TrimSpace(part[idx+4:]))
			} else {
				names = append(names, part)
			}
		}
	}

	before = strings.TrimRight(before, ", ")
	for _, part := range strings.Split(before, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.HasPrefix(part, "*") {
			if idx := strings.Index(part, " as "); idx >= 0 {
				names = append(names, strings.TrimSpace(part[idx+4:]))
			}
			continue
		}
		names = append(names, part)
	}

	return names
}

// variableDeclaratorNames extracts bare identifier declarator names from a
// comma-separated declarator list, e.g. "a = 1, b = 2". Destructuring
// patterns are skipped: only plain-identifier declarators are emitted, per
// the identifier-only extraction contract.
func variableDeclaratorNames(rest string) []string {
	var names []string
	for _, decl := range splitTopLevelCommas(rest) {
		decl = strings.TrimSpace(decl)
		if decl == "" || strings.HasPrefix(decl, "{") || strings.HasPrefix(decl, "[") {
			continue
		}
		name := decl
		if idx := strings.IndexAny(decl, "=:"); idx >= 0 {
			name = decl[:idx]
		}
		name = strings.TrimSpace(strings.TrimSuffix(name, ";"))
		if name == "" {
			continue
		}
		if tsIdentifierRE.FindString(name) == name {
			names = append(names, name)
		}
	}
	return names
}

// splitTopLevelCommas splits on commas that are not nested inside
// (), [], {}, or <> balanced groups.
func splitTopLevelCommas(s string) []string {
	var parts []string
	depth := 0
	last := 0
	for i, r := range s {
		switch r {
		case '(', '[', '{', '<':
			depth++
		case ')', ']', '}', '>':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[last:i])
				last = i + 1
			}
		}
	}
	parts = append(parts, s[last:])
	return parts
}
