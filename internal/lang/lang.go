package lang

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-enry/go-enry/v2"
)

// Language is a closed enumeration of the languages sieve has rules for.
type Language int

const (
	Unknown Language = iota
	Rust
	Kotlin
	Python
	Go
	TypeScript
	JavaScript
	Java
	Shell
	C
	Cpp
	Swift
)

var names = [...]string{
	Unknown:    "unknown",
	Rust:       "rust",
	Kotlin:     "kotlin",
	Python:     "python",
	Go:         "go",
	TypeScript: "typescript",
	JavaScript: "javascript",
	Java:       "java",
	Shell:      "shell",
	C:          "c",
	Cpp:        "cpp",
	Swift:      "swift",
}

// All lists every known language except Unknown.
var All = []Language{Rust, Kotlin, Python, Go, TypeScript, JavaScript, Java, Shell, C, Cpp, Swift}

func (l Language) String() string {
	if l < 0 || int(l) >= len(names) {
		return names[Unknown]
	}
	return names[l]
}

// MarshalText implements encoding.TextMarshaler.
func (l Language) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Language) UnmarshalText(b []byte) error {
	v, ok := Parse(string(b))
	if !ok {
		return fmt.Errorf("unknown language %q", string(b))
	}
	*l = v
	return nil
}

// Parse maps a language name (case-insensitive) to a Language.
func Parse(name string) (Language, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range names {
		if n == name {
			return Language(i), true
		}
	}
	return Unknown, false
}

var byExtension = map[string]Language{
	".rs":    Rust,
	".kt":    Kotlin,
	".kts":   Kotlin,
	".py":    Python,
	".pyi":   Python,
	".go":    Go,
	".ts":    TypeScript,
	".tsx":   TypeScript,
	".mts":   TypeScript,
	".js":    JavaScript,
	".jsx":   JavaScript,
	".mjs":   JavaScript,
	".cjs":   JavaScript,
	".java":  Java,
	".sh":    Shell,
	".bash":  Shell,
	".zsh":   Shell,
	".c":     C,
	".h":     C,
	".cc":    Cpp,
	".cpp":   Cpp,
	".cxx":   Cpp,
	".hpp":   Cpp,
	".hh":    Cpp,
	".swift": Swift,
}

// enry reports linguist names; only those that map onto a known language
// are listed.
var byEnryName = map[string]Language{
	"Rust":       Rust,
	"Kotlin":     Kotlin,
	"Python":     Python,
	"Go":         Go,
	"TypeScript": TypeScript,
	"TSX":        TypeScript,
	"JavaScript": JavaScript,
	"JSX":        JavaScript,
	"Java":       Java,
	"Shell":      Shell,
	"C":          C,
	"C++":        Cpp,
	"Swift":      Swift,
}

// Detect returns the language for path. The extension table wins; enry
// resolves well-known filenames and rarer extensions.
func Detect(path string) Language {
	ext := strings.ToLower(filepath.Ext(path))
	if l, ok := byExtension[ext]; ok {
		return l
	}
	base := filepath.Base(path)
	if name, safe := enry.GetLanguageByFilename(base); safe {
		if l, ok := byEnryName[name]; ok {
			return l
		}
	}
	if name, safe := enry.GetLanguageByExtension(base); safe {
		if l, ok := byEnryName[name]; ok {
			return l
		}
	}
	return Unknown
}

// Syntax describes how comments and strings are written in a language.
type Syntax struct {
	// LineComments are prefixes that start a comment running to end of line.
	LineComments []string
	// BlockStart and BlockEnd delimit block comments; empty when unsupported.
	BlockStart string
	BlockEnd   string
	// DocPrefixes mark documentation comments that survive prompt stripping.
	DocPrefixes []string
	// Braces reports whether blocks are delimited with braces.
	Braces bool
	// RawQuote is a quote character that starts a multi-line raw string, 0 if none.
	RawQuote byte
}

var cStyle = Syntax{
	LineComments: []string{"//"},
	BlockStart:   "/*",
	BlockEnd:     "*/",
	DocPrefixes:  []string{"/**"},
	Braces:       true,
}

// Syntax returns the comment syntax for l. Unknown gets a permissive
// mix of // and # comments.
func (l Language) Syntax() Syntax {
	switch l {
	case Rust:
		s := cStyle
		s.DocPrefixes = []string{"///", "//!", "/**", "/*!"}
		return s
	case Go:
		s := cStyle
		s.DocPrefixes = nil
		s.RawQuote = '`'
		return s
	case TypeScript, JavaScript:
		s := cStyle
		s.RawQuote = '`'
		return s
	case Kotlin, Java, C, Cpp, Swift:
		return cStyle
	case Python:
		return Syntax{LineComments: []string{"#"}}
	case Shell:
		return Syntax{LineComments: []string{"#"}}
	default:
		return Syntax{LineComments: []string{"//", "#"}, BlockStart: "/*", BlockEnd: "*/", Braces: true}
	}
}

// IsDoc reports whether trimmed starts a documentation comment.
func (s Syntax) IsDoc(trimmed string) bool {
	for _, p := range s.DocPrefixes {
		if strings.HasPrefix(trimmed, p) {
			return true
		}
	}
	return false
}
