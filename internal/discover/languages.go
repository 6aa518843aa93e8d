package discover

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Language identifies a supported scan target.
type Language string

const (
	LangPython     Language = "python"
	LangJavaScript Language = "javascript"
	LangJava       Language = "java"
	LangCSharp     Language = "csharp"
	LangGo         Language = "go"
	LangCPP        Language = "cpp"
)

// heuristics pairs the manifest files that mark a module root with the
// source-file extensions that belong to the language.
type heuristics struct {
	Manifests  map[string]bool
	Extensions map[string]bool
}

var languageHeuristics = map[Language]heuristics{
	LangPython: {
		Manifests:  set("requirements.txt", "pyproject.toml", "setup.py", "pipfile", "tox.ini"),
		Extensions: set(".py", ".pyi"),
	},
	LangJavaScript: {
		Manifests:  set("package.json", "deno.json", "yarn.lock", "pnpm-lock.yaml", "next.config.js", "vite.config.js", "tsconfig.json"),
		Extensions: set(".js", ".jsx", ".ts", ".tsx", ".mjs", ".cjs", ".vue", ".svelte"),
	},
	LangJava: {
		Manifests:  set("pom.xml", "build.gradle", "build.gradle.kts", "settings.gradle", "mvnw", "gradlew"),
		Extensions: set(".java", ".kt", ".scala", ".groovy"),
	},
	LangCSharp: {
		Manifests:  set("global.json", "nuget.config", "directory.build.props"),
		Extensions: set(".cs", ".fs", ".vb", ".cshtml", ".razor"),
	},
	LangGo: {
		Manifests:  set("go.mod", "go.work"),
		Extensions: set(".go"),
	},
	LangCPP: {
		Manifests:  set("cmakelists.txt", "makefile", "configure.ac", "meson.build", "conanfile.txt", "vcpkg.json"),
		Extensions: set(".c", ".cpp", ".h", ".hpp", ".cc", ".hh", ".cxx", ".hxx", ".m", ".mm"),
	},
}

// universalContextFiles are high-signal files included in the bridge verbatim
// regardless of language.
var universalContextFiles = set(
	"readme", "readme.md", "readme.rst", "readme.txt",
	"dockerfile", "docker-compose.yml", "docker-compose.yaml",
	"makefile", "justfile", "taskfile.yml",
	".env.example", "contributing.md", "architecture.md", "changelog.md",
)

// SupportedLanguages returns language names in stable order.
func SupportedLanguages() []string {
	out := make([]string, 0, len(languageHeuristics))
	for lang := range languageHeuristics {
		out = append(out, string(lang))
	}
	sort.Strings(out)
	return out
}

// ParseLanguage maps a user-supplied name onto a Language.
func ParseLanguage(raw string) (Language, error) {
	normalized := Language(strings.ToLower(strings.TrimSpace(raw)))
	switch normalized {
	case "js", "ts", "typescript":
		normalized = LangJavaScript
	case "c", "c++":
		normalized = LangCPP
	case "golang":
		normalized = LangGo
	}
	if _, ok := languageHeuristics[normalized]; !ok {
		return "", fmt.Errorf("unsupported language %q (supported: %s)", raw, strings.Join(SupportedLanguages(), ", "))
	}
	return normalized, nil
}

// DetectLanguage guesses the repository's primary language. A manifest at
// the repository root wins; otherwise the language with the most matching
// source files in the top two directory levels does.
func DetectLanguage(root string) (Language, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return "", fmt.Errorf("failed to read %q: %w", root, err)
	}

	for _, lang := range SupportedLanguages() {
		for _, entry := range entries {
			if !entry.IsDir() && isManifest(Language(lang), entry.Name()) {
				return Language(lang), nil
			}
		}
	}

	counts := make(map[Language]int)
	countIn := func(dir string) {
		sub, err := os.ReadDir(dir)
		if err != nil {
			return
		}
		for _, entry := range sub {
			if entry.IsDir() {
				continue
			}
			for lang := range languageHeuristics {
				if isSourceFile(lang, entry.Name()) {
					counts[lang]++
				}
			}
		}
	}
	countIn(root)
	for _, entry := range entries {
		if entry.IsDir() && !strings.HasPrefix(entry.Name(), ".") {
			countIn(filepath.Join(root, entry.Name()))
		}
	}

	best := Language("")
	for _, lang := range SupportedLanguages() {
		if counts[Language(lang)] > counts[best] {
			best = Language(lang)
		}
	}
	if best == "" {
		return "", fmt.Errorf("could not detect a supported language under %q; pass one of: %s", root, strings.Join(SupportedLanguages(), ", "))
	}
	return best, nil
}

// isSourceFile reports whether name's extension belongs to lang.
func isSourceFile(lang Language, name string) bool {
	h := languageHeuristics[lang]
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		return false
	}
	return h.Extensions[strings.ToLower(name[idx:])]
}

// isManifest reports whether name is a module-root manifest for lang.
func isManifest(lang Language, name string) bool {
	return languageHeuristics[lang].Manifests[strings.ToLower(name)]
}

// isContextFile reports whether name should be included in the bridge
// verbatim: manifests, README variants and markdown docs.
func isContextFile(lang Language, name string) bool {
	lower := strings.ToLower(name)
	if isManifest(lang, lower) || universalContextFiles[lower] {
		return true
	}
	if strings.HasPrefix(lower, "readme") {
		return true
	}
	return strings.HasSuffix(lower, ".md")
}

func set(items ...string) map[string]bool {
	out := make(map[string]bool, len(items))
	for _, item := range items {
		out[item] = true
	}
	return out
}
