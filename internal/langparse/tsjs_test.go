package langparse

import "testing"

func TestParseTSJSSymbolsAndExport(t *testing.T) {
	src := `export function Foo() {}
class Bar {}
export interface Baz {}
type Qux = string
export const x = 1, y = 2
`
	result := parseTSJS("a.ts", src)

	want := map[string]struct {
		kind     SymbolKind
		exported bool
	}{
		"Foo": {KindFunction, true},
		"Bar": {KindClass, false},
		"Baz": {KindInterface, true},
		"Qux": {KindType, false},
		"x":   {KindVariable, true},
		"y":   {KindVariable, true},
	}
	if len(result.Symbols) != len(want) {
		t.Fatalf("expected %d symbols, got %d: %+v", len(want), len(result.Symbols), result.Symbols)
	}
	for _, sym := range result.Symbols {
		w, ok := want[sym.Name]
		if !ok {
			t.Fatalf("unexpected symbol: %+v", sym)
		}
		if sym.Kind != w.kind || sym.Exported != w.exported {
			t.Fatalf("symbol %s: got kind=%s exported=%v, want kind=%s exported=%v", sym.Name, sym.Kind, sym.Exported, w.kind, w.exported)
		}
	}
}

func TestParseTSJSImports(t *testing.T) {
	src := `import Default from 'mod-a'
import { a, b as c } from 'mod-b'
import * as ns from 'mod-c'
import 'mod-d'
`
	result := parseTSJS("a.ts", src)
	if len(result.Imports) != 4 {
		t.Fatalf("expected 4 imports, got %d: %+v", len(result.Imports), result.Imports)
	}
	if result.Imports[0].Imported[0] != "Default" || result.Imports[0].Source != "mod-a" {
		t.Fatalf("unexpected default import: %+v", result.Imports[0])
	}
	named := result.Imports[1].Imported
	if len(named) != 2 || named[0] != "a" || named[1] != "c" {
		t.Fatalf("unexpected named import: %+v", named)
	}
	if result.Imports[2].Imported[0] != "ns" {
		t.Fatalf("unexpected namespace import: %+v", result.Imports[2])
	}
	if len(result.Imports[3].Imported) != 0 {
		t.Fatalf("expected bare side-effect import with no bindings: %+v", result.Imports[3])
	}
}

func TestParseTSJSUsesExcludeDeclared(t *testing.T) {
	src := `function greet(name) {
  console.log(name)
}
`
	result := parseTSJS("a.ts", src)
	for _, use := range result.Uses {
		if use.Name == "greet" {
			t.Fatalf("declared symbol name should not appear as a use: %+v", use)
		}
	}
	var sawConsole bool
	for _, use := range result.Uses {
		if use.Name == "console" {
			sawConsole = true
		}
	}
	if !sawConsole {
		t.Fatalf("expected a use entry for undeclared identifier 'console', got %+v", result.Uses)
	}
}
