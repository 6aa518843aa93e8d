package symbols

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
	"go.uber.org/zap"
)

// grammar binds a tree-sitter language to the declaration node types we
// extract from it.
type grammar struct {
	language *sitter.Language
	kinds    map[string]Kind
}

var grammars = map[string]grammar{
	".go": {
		language: golang.GetLanguage(),
		kinds: map[string]Kind{
			"function_declaration": KindFunction,
			"method_declaration":   KindMethod,
			"type_spec":            KindType,
			"const_spec":           KindConstant,
			"var_spec":             KindVariable,
		},
	},
	".py": {
		language: python.GetLanguage(),
		kinds: map[string]Kind{
			"function_definition": KindFunction,
			"class_definition":    KindClass,
		},
	},
	".pyi": {
		language: python.GetLanguage(),
		kinds: map[string]Kind{
			"function_definition": KindFunction,
			"class_definition":    KindClass,
		},
	},
	".js": {
		language: javascript.GetLanguage(),
		kinds: map[string]Kind{
			"function_declaration": KindFunction,
			"method_definition":    KindMethod,
			"class_declaration":    KindClass,
		},
	},
	".jsx": {
		language: javascript.GetLanguage(),
		kinds: map[string]Kind{
			"function_declaration": KindFunction,
			"method_definition":    KindMethod,
			"class_declaration":    KindClass,
		},
	},
	".ts": {
		language: typescript.GetLanguage(),
		kinds: map[string]Kind{
			"function_declaration":   KindFunction,
			"method_definition":      KindMethod,
			"class_declaration":      KindClass,
			"interface_declaration":  KindInterface,
			"type_alias_declaration": KindType,
		},
	},
	".tsx": {
		language: typescript.GetLanguage(),
		kinds: map[string]Kind{
			"function_declaration":   KindFunction,
			"method_definition":      KindMethod,
			"class_declaration":      KindClass,
			"interface_declaration":  KindInterface,
			"type_alias_declaration": KindType,
		},
	},
}

// TreeSitter extracts symbols in-process with tree-sitter grammars. Files
// whose extension has no grammar simply produce no symbols.
type TreeSitter struct {
	log *zap.Logger
}

func NewTreeSitter(log *zap.Logger) *TreeSitter {
	return &TreeSitter{log: log}
}

// Extract parses every supported file under root. A file that fails to read
// or parse is recorded with no symbols; only context cancellation aborts.
func (t *TreeSitter) Extract(ctx context.Context, root string, paths []string) (Index, error) {
	idx := make(Index, len(paths))
	parser := sitter.NewParser()

	for _, rel := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		g, ok := grammars[strings.ToLower(filepath.Ext(rel))]
		if !ok {
			continue
		}
		content, err := os.ReadFile(filepath.Join(root, rel))
		if err != nil {
			t.log.Debug("symbol extraction skipped file", zap.String("path", rel), zap.Error(err))
			continue
		}

		parser.SetLanguage(g.language)
		tree, err := parser.ParseCtx(ctx, nil, content)
		if err != nil {
			t.log.Debug("symbol extraction parse failure", zap.String("path", rel), zap.Error(err))
			continue
		}

		records := collect(tree.RootNode(), content, rel, g.kinds)
		tree.Close()
		if len(records) > 0 {
			idx[rel] = records
		}
	}
	return idx, nil
}

func collect(node *sitter.Node, content []byte, rel string, kinds map[string]Kind) []Record {
	var out []Record
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if kind, ok := kinds[n.Type()]; ok {
			if name := declName(n, content); name != "" {
				out = append(out, Record{
					Path:      rel,
					Name:      name,
					Kind:      refineKind(n, kind, content),
					StartLine: int(n.StartPoint().Row) + 1,
					EndLine:   int(n.EndPoint().Row) + 1,
				})
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(node)
	return out
}

func declName(n *sitter.Node, content []byte) string {
	if name := n.ChildByFieldName("name"); name != nil {
		return name.Content(content)
	}
	return ""
}

// refineKind upgrades Go type_spec nodes to struct/interface based on the
// underlying type node.
func refineKind(n *sitter.Node, kind Kind, content []byte) Kind {
	if kind != KindType {
		return kind
	}
	typeNode := n.ChildByFieldName("type")
	if typeNode == nil {
		return kind
	}
	switch typeNode.Type() {
	case "struct_type":
		return KindStruct
	case "interface_type":
		return KindInterface
	default:
		return kind
	}
}
