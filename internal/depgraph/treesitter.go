package depgraph

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// Compile-time interface check.
var _ Locator = (*TreeSitterLocator)(nil)

// Language identifies a programming language for parsing.
type Language string

const (
	LangGo         Language = "go"
	LangTypeScript Language = "typescript"
	LangPython     Language = "python"
	LangRust       Language = "rust"
)

// extToLanguage maps file extensions to languages with grammar support.
var extToLanguage = map[string]Language{
	".go":  LangGo,
	".ts":  LangTypeScript,
	".tsx": LangTypeScript,
	".py":  LangPython,
	".rs":  LangRust,
}

// functionKinds lists the AST node kinds that delimit a named function per
// language. Only nodes with a "name" field are listed, so the enclosing
// function always has a resolvable name.
var functionKinds = map[Language]map[string]bool{
	LangGo:         {"function_declaration": true, "method_declaration": true},
	LangTypeScript: {"function_declaration": true, "method_definition": true},
	LangPython:     {"function_definition": true},
	LangRust:       {"function_item": true},
}

// TreeSitterLocator resolves enclosing functions by parsing source files
// with tree-sitter grammars. A new tree-sitter parser is created per call,
// so the locator is safe for sequential use from the analyzer.
type TreeSitterLocator struct {
	root      string
	languages map[Language]*tree_sitter.Language
}

// NewTreeSitterLocator creates a locator that resolves issue file paths
// against root, with Go, TypeScript, Python, and Rust grammars registered.
func NewTreeSitterLocator(root string) *TreeSitterLocator {
	return &TreeSitterLocator{
		root: root,
		languages: map[Language]*tree_sitter.Language{
			LangGo:         tree_sitter.NewLanguage(tree_sitter_go.Language()),
			LangTypeScript: tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript()),
			LangPython:     tree_sitter.NewLanguage(tree_sitter_python.Language()),
			LangRust:       tree_sitter.NewLanguage(tree_sitter_rust.Language()),
		},
	}
}

// EnclosingFunction parses the file and returns the name of the innermost
// named function whose span contains line. Unsupported extensions resolve
// to "" without an error; unreadable or unparseable files return an error
// so the analyzer can record a warning and fall back to weaker signals.
func (l *TreeSitterLocator) EnclosingFunction(_ context.Context, file string, line int) (string, error) {
	lang, ok := extToLanguage[filepath.Ext(file)]
	if !ok {
		return "", nil
	}

	path := file
	if l.root != "" && !filepath.IsAbs(file) {
		path = filepath.Join(l.root, file)
	}
	source, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read source: %w", err)
	}

	parser := tree_sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(l.languages[lang]); err != nil {
		return "", fmt.Errorf("set language %s: %w", lang, err)
	}

	tree := parser.Parse(source, nil)
	if tree == nil {
		return "", fmt.Errorf("tree-sitter returned nil tree for %s", path)
	}
	defer tree.Close()

	cursor := tree.RootNode().Walk()
	defer cursor.Close()

	name, _ := innermostFunction(cursor, source, functionKinds[lang], line, "", -1)
	return name, nil
}

// innermostFunction walks the AST keeping the narrowest named function span
// that contains the target line. bestStart tracks the start line of the
// current best candidate; a deeper function always starts later.
func innermostFunction(
	cursor *tree_sitter.TreeCursor,
	source []byte,
	kinds map[string]bool,
	line int,
	best string,
	bestStart int,
) (string, int) {
	node := cursor.Node()
	start := int(node.StartPosition().Row) + 1
	end := int(node.EndPosition().Row) + 1

	// Subtrees that end before or start after the target line cannot
	// contain it.
	if end < line || start > line {
		return best, bestStart
	}

	if kinds[node.Kind()] && start > bestStart {
		if nameNode := node.ChildByFieldName("name"); nameNode != nil {
			best = nameNode.Utf8Text(source)
			bestStart = start
		}
	}

	if cursor.GotoFirstChild() {
		best, bestStart = innermostFunction(cursor, source, kinds, line, best, bestStart)
		for cursor.GotoNextSibling() {
			best, bestStart = innermostFunction(cursor, source, kinds, line, best, bestStart)
		}
		cursor.GotoParent()
	}

	return best, bestStart
}
