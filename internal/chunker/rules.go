package chunker

import (
	"regexp"

	"github.com/dshills/sieve/internal/lang"
)

// declRule recognizes one declaration form on a line's code view.
type declRule struct {
	kind Kind
	// re must capture "name" unless name is fixed. An optional "recv"
	// group turns a function into a method of that receiver.
	re   *regexp.Regexp
	name string
	// container declarations are split into members when oversized.
	container bool
	// open and close delimit the body; zero means braces.
	open, close byte
	// raw matches the full line text instead of the code view.
	raw bool
	// guarded rules have no declaring keyword and can match control flow
	// or call sites, so keyword names are rejected.
	guarded bool
}

type ruleSet struct {
	decls []declRule
	// members are matched one level inside an oversized container.
	members []declRule
	// attach matches attribute, annotation and decorator lines that
	// belong to the declaration below them.
	attach *regexp.Regexp
	// indent selects indentation-delimited blocks.
	indent bool
}

const rustVis = `(?:pub(?:\s*\([^)]*\))?\s+)?`

var rustFn = declRule{kind: KindFunction, re: regexp.MustCompile(`^\s*` + rustVis + `(?:default\s+)?(?:const\s+)?(?:async\s+)?(?:unsafe\s+)?(?:extern\s+(?:"[^"]*"\s+)?)?fn\s+(?P<name>\w+)`)}

var rustRules = ruleSet{
	decls: []declRule{
		rustFn,
		{kind: KindStruct, re: regexp.MustCompile(`^\s*` + rustVis + `struct\s+(?P<name>\w+)`)},
		{kind: KindEnum, re: regexp.MustCompile(`^\s*` + rustVis + `enum\s+(?P<name>\w+)`)},
		{kind: KindStruct, re: regexp.MustCompile(`^\s*` + rustVis + `union\s+(?P<name>\w+)`)},
		{kind: KindTrait, re: regexp.MustCompile(`^\s*` + rustVis + `(?:unsafe\s+)?trait\s+(?P<name>\w+)`), container: true},
		{kind: KindImpl, re: regexp.MustCompile(`^\s*(?:unsafe\s+)?impl(?:\s*<[^{]*?>)?\s+(?P<name>!?[\w:]+(?:<[^{]*?>)?(?:\s+for\s+[\w:]+(?:<[^{]*?>)?)?)`), container: true},
		{kind: KindModule, re: regexp.MustCompile(`^\s*` + rustVis + `mod\s+(?P<name>\w+)\s*\{`)},
		{kind: KindConst, re: regexp.MustCompile(`^\s*` + rustVis + `(?:const|static)\s+(?:mut\s+)?(?P<name>\w+)`)},
		{kind: KindType, re: regexp.MustCompile(`^\s*` + rustVis + `type\s+(?P<name>\w+)`)},
		{kind: KindFunction, re: regexp.MustCompile(`^\s*macro_rules!\s*(?P<name>\w+)`)},
		{kind: KindImports, re: regexp.MustCompile(`^\s*` + rustVis + `(?:use|extern\s+crate)\s`), name: "imports"},
	},
	members: []declRule{rustFn},
	attach:  regexp.MustCompile(`^\s*#!?\[`),
}

const kotlinMods = `(?:(?:public|private|protected|internal|override|open|abstract|final|suspend|inline|operator|infix|tailrec|external|data|sealed|enum|inner|annotation|value|companion|const|lateinit|actual|expect)\s+)*`

var kotlinFun = declRule{kind: KindFunction, re: regexp.MustCompile(`^\s*` + kotlinMods + `fun\s+(?:<[^>]*>\s*)?(?:[\w.<>?]+\.)?(?P<name>\w+)`)}

var kotlinRules = ruleSet{
	decls: []declRule{
		kotlinFun,
		{kind: KindClass, re: regexp.MustCompile(`^\s*` + kotlinMods + `class\s+(?P<name>\w+)`), container: true},
		{kind: KindInterface, re: regexp.MustCompile(`^\s*` + kotlinMods + `(?:fun\s+)?interface\s+(?P<name>\w+)`), container: true},
		{kind: KindClass, re: regexp.MustCompile(`^\s*` + kotlinMods + `object\s+(?P<name>\w+)`), container: true},
		{kind: KindType, re: regexp.MustCompile(`^\s*` + kotlinMods + `typealias\s+(?P<name>\w+)`)},
		{kind: KindConst, re: regexp.MustCompile(`^\s*` + kotlinMods + `va[lr]\s+(?P<name>\w+)`)},
		{kind: KindImports, re: regexp.MustCompile(`^\s*import\s`), name: "imports"},
	},
	members: []declRule{kotlinFun},
	attach:  regexp.MustCompile(`^\s*@\w`),
}

const javaMods = `(?:(?:public|private|protected|static|final|abstract|sealed|non-sealed|strictfp|synchronized|native|default)\s+)*`

var javaRules = ruleSet{
	decls: []declRule{
		{kind: KindClass, re: regexp.MustCompile(`^\s*` + javaMods + `class\s+(?P<name>\w+)`), container: true},
		{kind: KindInterface, re: regexp.MustCompile(`^\s*` + javaMods + `@?interface\s+(?P<name>\w+)`), container: true},
		{kind: KindEnum, re: regexp.MustCompile(`^\s*` + javaMods + `enum\s+(?P<name>\w+)`), container: true},
		{kind: KindStruct, re: regexp.MustCompile(`^\s*` + javaMods + `record\s+(?P<name>\w+)`), container: true},
		{kind: KindImports, re: regexp.MustCompile(`^\s*import\s`), name: "imports"},
	},
	members: []declRule{
		{kind: KindFunction, re: regexp.MustCompile(`^\s*` + javaMods + `(?:<[^>]*>\s+)?[\w<>\[\],.?]+(?:\s*<[^>]*>)?\s+(?P<name>\w+)\s*\([^;]*$`), guarded: true},
		{kind: KindFunction, re: regexp.MustCompile(`^\s*(?:public|private|protected)\s+(?P<name>[A-Z]\w*)\s*\([^;]*$`), guarded: true},
	},
	attach: regexp.MustCompile(`^\s*@\w`),
}

var pythonDef = declRule{kind: KindFunction, re: regexp.MustCompile(`^\s*(?:async\s+)?def\s+(?P<name>\w+)`)}

var pythonRules = ruleSet{
	decls: []declRule{
		pythonDef,
		{kind: KindClass, re: regexp.MustCompile(`^\s*class\s+(?P<name>\w+)`), container: true},
		{kind: KindImports, re: regexp.MustCompile(`^(?:import|from)\s`), name: "imports"},
		{kind: KindConst, re: regexp.MustCompile(`^(?P<name>[A-Z][A-Z0-9_]*)\s*(?::[^=]+)?=`)},
	},
	members: []declRule{pythonDef},
	attach:  regexp.MustCompile(`^\s*@\w`),
	indent:  true,
}

var goRules = ruleSet{
	decls: []declRule{
		{kind: KindFunction, re: regexp.MustCompile(`^func\s+(?:\((?P<recv>[^)]*)\)\s*)?(?P<name>\w+)`)},
		{kind: KindStruct, re: regexp.MustCompile(`^type\s+(?P<name>\w+)(?:\[[^\]]*\])?\s+struct\b`)},
		{kind: KindInterface, re: regexp.MustCompile(`^type\s+(?P<name>\w+)(?:\[[^\]]*\])?\s+interface\b`)},
		{kind: KindType, re: regexp.MustCompile(`^type\s*\(`), name: "types", open: '(', close: ')'},
		{kind: KindType, re: regexp.MustCompile(`^type\s+(?P<name>\w+)`)},
		{kind: KindConst, re: regexp.MustCompile(`^const\s*\(`), name: "const", open: '(', close: ')'},
		{kind: KindConst, re: regexp.MustCompile(`^var\s*\(`), name: "var", open: '(', close: ')'},
		{kind: KindConst, re: regexp.MustCompile(`^(?:const|var)\s+(?P<name>\w+)`)},
		{kind: KindImports, re: regexp.MustCompile(`^import\b`), name: "imports", open: '(', close: ')'},
	},
}

const tsMods = `(?:(?:public|private|protected|static|async|readonly|abstract|override|get|set|declare)\s+)*`

var scriptRules = ruleSet{
	decls: []declRule{
		{kind: KindFunction, re: regexp.MustCompile(`^\s*(?:export\s+)?(?:default\s+)?(?:async\s+)?function\s*\*?\s*(?P<name>\w+)`)},
		{kind: KindClass, re: regexp.MustCompile(`^\s*(?:export\s+)?(?:default\s+)?(?:abstract\s+)?class\s+(?P<name>\w+)`), container: true},
		{kind: KindInterface, re: regexp.MustCompile(`^\s*(?:export\s+)?(?:declare\s+)?interface\s+(?P<name>\w+)`)},
		{kind: KindType, re: regexp.MustCompile(`^\s*(?:export\s+)?(?:declare\s+)?type\s+(?P<name>\w+)\s*(?:<[^=]*>)?\s*=`)},
		{kind: KindEnum, re: regexp.MustCompile(`^\s*(?:export\s+)?(?:declare\s+)?(?:const\s+)?enum\s+(?P<name>\w+)`)},
		{kind: KindFunction, re: regexp.MustCompile(`^\s*(?:export\s+)?(?:const|let|var)\s+(?P<name>\w+)\s*(?::[^=]+)?=\s*(?:async\s+)?(?:function\b|\([^)]*\)\s*(?::[^=]+)?=>|\w+\s*=>)`)},
		{kind: KindConst, re: regexp.MustCompile(`^\s*export\s+(?:const|let|var)\s+(?P<name>\w+)`)},
		{kind: KindTest, re: regexp.MustCompile(`^\s*(?:describe|it|test)\s*\(\s*["'` + "`" + `](?P<name>[^"'` + "`" + `]*)`), raw: true},
		{kind: KindImports, re: regexp.MustCompile(`^\s*import\s`), name: "imports"},
	},
	members: []declRule{
		{kind: KindFunction, re: regexp.MustCompile(`^\s*` + tsMods + `\*?\s*(?P<name>#?\w+)\s*(?:<[^>]*>)?\s*\([^;]*$`), guarded: true},
	},
	attach: regexp.MustCompile(`^\s*@\w`),
}

var swiftMods = `(?:(?:public|private|fileprivate|internal|open|static|class|final|override|mutating|@\w+)\s+)*`

var swiftFunc = declRule{kind: KindFunction, re: regexp.MustCompile(`^\s*` + swiftMods + `func\s+(?P<name>\w+)`)}

var swiftRules = ruleSet{
	decls: []declRule{
		swiftFunc,
		{kind: KindClass, re: regexp.MustCompile(`^\s*` + swiftMods + `(?:class|actor)\s+(?P<name>\w+)`), container: true},
		{kind: KindStruct, re: regexp.MustCompile(`^\s*` + swiftMods + `struct\s+(?P<name>\w+)`), container: true},
		{kind: KindEnum, re: regexp.MustCompile(`^\s*` + swiftMods + `enum\s+(?P<name>\w+)`), container: true},
		{kind: KindTrait, re: regexp.MustCompile(`^\s*` + swiftMods + `protocol\s+(?P<name>\w+)`), container: true},
		{kind: KindImpl, re: regexp.MustCompile(`^\s*` + swiftMods + `extension\s+(?P<name>[\w.]+)`), container: true},
		{kind: KindImports, re: regexp.MustCompile(`^\s*import\s`), name: "imports"},
	},
	members: []declRule{swiftFunc},
	attach:  regexp.MustCompile(`^\s*@\w`),
}

var cRules = ruleSet{
	decls: []declRule{
		{kind: KindStruct, re: regexp.MustCompile(`^(?:typedef\s+)?(?:struct|union)\s+(?P<name>\w+)[^;]*$`)},
		{kind: KindEnum, re: regexp.MustCompile(`^(?:typedef\s+)?enum\s+(?:class\s+)?(?P<name>\w+)[^;]*$`)},
		{kind: KindClass, re: regexp.MustCompile(`^(?:template\s*<[^>]*>\s*)?class\s+(?P<name>\w+)[^;]*$`)},
		{kind: KindModule, re: regexp.MustCompile(`^namespace\s+(?P<name>[\w:]+)`)},
		{kind: KindFunction, re: regexp.MustCompile(`^(?:static\s+|inline\s+|extern\s+|const\s+|unsigned\s+|signed\s+|virtual\s+)*[A-Za-z_][\w:<>,]*[\s*&]+(?P<name>[\w:~]+)\s*\([^;]*$`), guarded: true},
		{kind: KindImports, re: regexp.MustCompile(`^\s*#\s*include\b`), name: "imports", raw: true},
	},
}

var shellRules = ruleSet{
	decls: []declRule{
		{kind: KindFunction, re: regexp.MustCompile(`^\s*function\s+(?P<name>[\w:-]+)`)},
		{kind: KindFunction, re: regexp.MustCompile(`^\s*(?P<name>[\w:-]+)\s*\(\)`), guarded: true},
	},
}

func rulesFor(l lang.Language) (ruleSet, bool) {
	switch l {
	case lang.Rust:
		return rustRules, true
	case lang.Kotlin:
		return kotlinRules, true
	case lang.Java:
		return javaRules, true
	case lang.Python:
		return pythonRules, true
	case lang.Go:
		return goRules, true
	case lang.TypeScript, lang.JavaScript:
		return scriptRules, true
	case lang.Swift:
		return swiftRules, true
	case lang.C, lang.Cpp:
		return cRules, true
	case lang.Shell:
		return shellRules, true
	}
	return ruleSet{}, false
}

// match returns the first rule matching ln with its resolved name.
func match(rules []declRule, ln lang.Line) (declRule, string, bool) {
	for _, r := range rules {
		src := ln.Code
		if r.raw {
			src = ln.Text
		}
		m := r.re.FindStringSubmatch(src)
		if m == nil {
			continue
		}
		name := r.name
		if i := r.re.SubexpIndex("name"); i > 0 && m[i] != "" {
			name = m[i]
		}
		if i := r.re.SubexpIndex("recv"); i > 0 && m[i] != "" {
			r.kind = KindMethod
			name = receiverType(m[i]) + "." + name
		}
		if r.guarded && keywords[name] {
			continue
		}
		return r, name, true
	}
	return declRule{}, "", false
}

// keywords are control-flow words that look like calls to the guarded
// patterns of brace languages.
var keywords = map[string]bool{
	"if": true, "for": true, "while": true, "switch": true, "catch": true,
	"return": true, "new": true, "else": true, "do": true, "try": true,
	"synchronized": true, "function": true,
}

var recvTypeRe = regexp.MustCompile(`(\w+)(?:\[[^\]]*\])?\s*$`)

// receiverType reduces a Go receiver like "s *Store[K]" to "Store".
func receiverType(recv string) string {
	if m := recvTypeRe.FindStringSubmatch(recv); m != nil {
		return m[1]
	}
	return recv
}
