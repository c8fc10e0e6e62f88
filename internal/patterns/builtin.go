package patterns

import (
	"regexp"

	"github.com/dshills/sieve/internal/lang"
)

const (
	rs   = lang.Rust
	kt   = lang.Kotlin
	py   = lang.Python
	gol  = lang.Go
	ts   = lang.TypeScript
	js   = lang.JavaScript
	java = lang.Java
	sh   = lang.Shell
	cc   = lang.C
	cpp  = lang.Cpp
	sw   = lang.Swift
)

// assignment matches the operator between an identifier and its value in
// most languages: =, :=, :, => and dict-style "key": forms.
const assign = `["']?\s*(?::=|=>|[:=])\s*`

// sqlStatement requires statement shape, not a lone keyword.
const sqlStatement = `\b(?:SELECT\s.*\bFROM|INSERT\s+INTO|UPDATE\s+\w+\s+SET|DELETE\s+FROM|DROP\s+(?:TABLE|DATABASE|INDEX)|ALTER\s+TABLE|TRUNCATE\s+TABLE)\b`

func rule(name string, cat Category, sev Severity, target Target, expr string, langs ...lang.Language) Pattern {
	return Pattern{
		Name:       name,
		Category:   cat,
		Severity:   sev,
		Confidence: ConfidenceMedium,
		Weight:     1,
		Target:     target,
		Languages:  langs,
		Expr:       regexp.MustCompile(expr),
	}
}

func secret(name string, conf Confidence, expr string) Pattern {
	p := rule(name, CategorySecret, SeverityHigh, TargetRaw, expr)
	p.Confidence = conf
	return p
}

func weighted(p Pattern, w int) Pattern {
	p.Weight = w
	return p
}

// builtin is ordered: within a category the first matching pattern on a
// line names the finding, so specific rules precede generic ones.
var builtin = []Pattern{
	// Panic-prone error handling.
	rule("rust_unwrap", CategoryUnwrap, SeverityMedium, TargetCode, `\.unwrap\(\)`, rs),
	rule("kotlin_force_unwrap", CategoryUnwrap, SeverityMedium, TargetCode, `[\w\)\]]!!`, kt),
	rule("swift_force_unwrap", CategoryUnwrap, SeverityMedium, TargetCode, `\btry!|[\w\)\]]!(?:\.|\)|,|\s*$)`, sw),
	rule("ts_non_null_assertion", CategoryUnwrap, SeverityLow, TargetCode, `[\w\)\]]!\.`, ts),
	rule("go_discarded_error", CategoryUnwrap, SeverityMedium, TargetCode, `,\s*_\s*:?=\s*[\w.]+\(`, gol),
	rule("python_bare_except", CategoryUnwrap, SeverityMedium, TargetCode, `\bexcept\s*:`, py),

	rule("rust_expect", CategoryExpect, SeverityLow, TargetCode, `\.expect\(`, rs),
	rule("go_must", CategoryExpect, SeverityLow, TargetCode, `\bMust[A-Z]\w*\(`, gol),
	rule("kotlin_require_not_null", CategoryExpect, SeverityLow, TargetCode, `\b(?:requireNotNull|checkNotNull)\(|\.getOrThrow\(\)`, kt),
	rule("java_or_else_throw", CategoryExpect, SeverityLow, TargetCode, `\.orElseThrow\(\s*\)`, java, kt),
	rule("python_assert", CategoryExpect, SeverityLow, TargetCode, `^\s*assert\b`, py),

	rule("rust_panic_macro", CategoryPanic, SeverityMedium, TargetCode, `\b(?:panic|unreachable|unimplemented|todo)!\s*[\(\{\[]`, rs),
	rule("go_panic", CategoryPanic, SeverityMedium, TargetCode, `\bpanic\(|\blog\.Fatal(?:f|ln)?\(`, gol),
	rule("kotlin_error", CategoryPanic, SeverityMedium, TargetCode, `\b(?:error|TODO)\(`, kt),
	rule("swift_fatal", CategoryPanic, SeverityMedium, TargetCode, `\b(?:fatalError|preconditionFailure)\(`, sw),
	rule("jvm_runtime_throw", CategoryPanic, SeverityMedium, TargetCode, `\bthrow\s+(?:new\s+)?(?:RuntimeException|IllegalStateException|AssertionError|Error)\b|\bSystem\.exit\(`, java, kt),
	rule("js_process_exit", CategoryPanic, SeverityMedium, TargetCode, `\bprocess\.exit\(`, ts, js),
	rule("python_exit", CategoryPanic, SeverityMedium, TargetCode, `\b(?:sys\.exit|os\._exit)\(`, py),
	rule("c_abort", CategoryPanic, SeverityMedium, TargetCode, `\b(?:abort|exit)\s*\(`, cc, cpp),

	// Safe propagation and handling.
	rule("rust_question_mark", CategoryPropagate, SeverityInfo, TargetCode, `\?\s*(?:[;,\)\.]|$)`, rs),
	rule("rust_result_match", CategoryPropagate, SeverityInfo, TargetCode, `\bif\s+let\s+(?:Ok|Err|Some)\s*\(|\b(?:Ok|Err)\s*\(.*\)\s*=>`, rs),
	rule("go_err_check", CategoryPropagate, SeverityInfo, TargetCode, `\bif\s+(?:.*;\s*)?err\s*!=\s*nil\b|\berrors\.(?:Is|As)\(`, gol),
	rule("kotlin_safe_call", CategoryPropagate, SeverityInfo, TargetCode, `\?\.|\brunCatching\s*\{`, kt),
	rule("catch_block", CategoryPropagate, SeverityInfo, TargetCode, `\bcatch\s*[\(\{]`, kt, java, ts, js, cpp),
	rule("js_optional_chain", CategoryPropagate, SeverityInfo, TargetCode, `\?\.|\.catch\(`, ts, js),
	rule("swift_safe_unwrap", CategoryPropagate, SeverityInfo, TargetCode, `\btry\?|\b(?:guard|if)\s+let\b|\bcatch\b`, sw),
	rule("python_typed_except", CategoryPropagate, SeverityInfo, TargetCode, `\bexcept\s+\(?\w[\w., ]*\)?(?:\s+as\s+\w+)?\s*:`, py),

	rule("rust_unwrap_or", CategoryFallback, SeverityInfo, TargetCode, `\.unwrap_or(?:_default|_else)?\(`, rs),
	rule("elvis", CategoryFallback, SeverityInfo, TargetCode, `\?:|\.getOr(?:Else|Default|Null)\s*[\(\{]`, kt),
	rule("nullish_coalesce", CategoryFallback, SeverityInfo, TargetCode, `\?\?`, ts, js, sw),
	rule("java_or_else", CategoryFallback, SeverityInfo, TargetCode, `\.orElse(?:Get)?\(`, java),
	rule("python_get_default", CategoryFallback, SeverityInfo, TargetCode, `\.get\([^,()]+,\s*[^)]+\)`, py),

	// Unsafe regions and their justification.
	rule("rust_unsafe", CategoryUnsafe, SeverityHigh, TargetCode, `\bunsafe\s*\{|\bunsafe\s+(?:fn|impl|trait)\b`, rs),
	rule("go_unsafe_pointer", CategoryUnsafe, SeverityHigh, TargetCode, `\bunsafe\.(?:Pointer|Slice|String|StringData|SliceData|Add)\b`, gol),
	rule("jvm_unsafe", CategoryUnsafe, SeverityHigh, TargetCode, `\bsun\.misc\.Unsafe\b|\bUnsafe\.getUnsafe\(`, java, kt),
	rule("swift_unsafe_pointer", CategoryUnsafe, SeverityHigh, TargetCode, `\bUnsafe(?:Mutable)?(?:Raw)?(?:Buffer)?Pointer\b`, sw),
	rule("safety_comment", CategorySafetyComment, SeverityInfo, TargetComment, `(?i)\bSAFETY\s*:`),
	rule("rust_test_module", CategoryTestBoundary, SeverityInfo, TargetRaw, `#\[cfg\(test\)\]|^\s*mod\s+tests\b`, rs),

	// Secrets: an identifier of a suspicious name and a literal of a
	// suspicious shape. Vendor token prefixes act as the identifier half.
	secret("private_key_block", ConfidenceHigh, `-----BEGIN\s+(?:RSA\s+|EC\s+|DSA\s+|OPENSSH\s+)?PRIVATE KEY-----`),
	secret("known_token_format", ConfidenceHigh, `["'\x60](?:gh[pousr]_[A-Za-z0-9]{36,}|sk-ant-[A-Za-z0-9_\-]{20,}|sk-[A-Za-z0-9]{32,}|xox[bpas]-[A-Za-z0-9\-]{10,}|AKIA[0-9A-Z]{16})["'\x60]`),
	secret("aws_secret", ConfidenceHigh, `(?i)aws_?secret_?access_?key\w*`+assign+`["'][A-Za-z0-9/+=]{40}["']`),
	secret("api_key", ConfidenceHigh, `(?i)\b\w*(?:api[_-]?key|apikey)\w*`+assign+`["'][A-Za-z0-9_\-]{16,}["']`),
	secret("password", ConfidenceMedium, `(?i)\b\w*(?:password|passwd|pwd)\w*`+assign+`["'][^"']{4,}["']`),
	secret("hardcoded_secret", ConfidenceMedium, `(?i)\b\w*(?:secret|private[_-]?key|auth[_-]?token|access[_-]?token|client[_-]?secret)\w*`+assign+`["'][^"'\s]{8,}["']`),
	secret("high_entropy_literal", ConfidenceMedium, `(?i)\b\w*(?:key|token|credential|auth)\w*`+assign+`["'](?:[A-Fa-f0-9]{32,}|[A-Za-z0-9+/]{40,}={0,2})["']`),

	// Redaction-only shapes: safe to mask, too noisy to report.
	rule("bearer_token", CategoryRedact, SeverityInfo, TargetRaw, `(?i)Bearer\s+[A-Za-z0-9._\-]{20,}`),
	rule("bare_vendor_token", CategoryRedact, SeverityInfo, TargetRaw, `\bAKIA[0-9A-Z]{16}\b|\bgh[pousr]_[A-Za-z0-9]{36,}|\bsk-ant-[A-Za-z0-9_\-]{20,}|\bxox[bpas]-[A-Za-z0-9\-]{10,}`),
	rule("jwt", CategoryRedact, SeverityInfo, TargetRaw, `eyJ[A-Za-z0-9_\-]{10,}\.eyJ[A-Za-z0-9_\-]{10,}\.[A-Za-z0-9_\-]{10,}`),

	// SQL built by formatting or concatenation.
	rule("rust_format_sql", CategorySQL, SeverityHigh, TargetRaw, `(?i)(?:format!|\.push_str)\s*\(.*`+sqlStatement, rs),
	rule("go_sprintf_sql", CategorySQL, SeverityHigh, TargetRaw, `(?i)fmt\.Sprintf\s*\(.*`+sqlStatement, gol),
	rule("jvm_format_sql", CategorySQL, SeverityHigh, TargetRaw, `(?i)(?:String\.format|\.formatted)\s*\(.*`+sqlStatement, java, kt),
	rule("kotlin_template_sql", CategorySQL, SeverityHigh, TargetRaw, `(?i)"[^"]*`+sqlStatement+`[^"]*\$\{?\w`, kt),
	rule("python_fstring_sql", CategorySQL, SeverityHigh, TargetRaw, `(?i)\bf["'][^"']*`+sqlStatement+`[^"']*\{`, py),
	rule("python_format_sql", CategorySQL, SeverityHigh, TargetRaw, `(?i)["'][^"']*`+sqlStatement+`[^"']*["']\s*(?:%\s*[\w(]|\.format\()`, py),
	rule("js_template_sql", CategorySQL, SeverityHigh, TargetRaw, "(?i)`[^`]*"+sqlStatement+"[^`]*\\$\\{", ts, js),
	rule("concat_sql", CategorySQL, SeverityHigh, TargetRaw, `(?i)["'][^"']*`+sqlStatement+`[^"']*["']\s*\+\s*\w`),

	// Structure.
	rule("rust_fn", CategoryFunction, SeverityInfo, TargetCode, `^\s*(?:pub(?:\([^)]*\))?\s+)?(?:const\s+)?(?:async\s+)?(?:unsafe\s+)?(?:extern\s+""\s+)?fn\s+\w+`, rs),
	rule("kotlin_fun", CategoryFunction, SeverityInfo, TargetCode, `\bfun\s+(?:<[^>]*>\s*)?[\w.]+\s*\(`, kt),
	rule("python_def", CategoryFunction, SeverityInfo, TargetCode, `^\s*(?:async\s+)?def\s+\w+`, py),
	rule("go_func", CategoryFunction, SeverityInfo, TargetCode, `^func\s`, gol),
	rule("js_function", CategoryFunction, SeverityInfo, TargetCode, `\bfunction\b\s*\*?\s*\w*\s*\(|^\s*(?:export\s+)?(?:const|let)\s+\w+\s*=\s*(?:async\s+)?(?:\([^)]*\)|\w+)\s*=>`, ts, js),
	rule("java_method", CategoryFunction, SeverityInfo, TargetCode, `^\s*(?:(?:public|private|protected|static|final|abstract|synchronized)\s+)+[\w<>\[\],? ]+\s+\w+\s*\(`, java),
	rule("swift_func", CategoryFunction, SeverityInfo, TargetCode, `\bfunc\s+\w+`, sw),
	rule("c_function", CategoryFunction, SeverityInfo, TargetCode, `^[A-Za-z_][\w\s\*&:<>,]*\s\**[\w:~]+\s*\([^;]*\)\s*(?:const\s*)?\{?\s*$`, cc, cpp),
	rule("shell_function", CategoryFunction, SeverityInfo, TargetCode, `^\s*(?:function\s+\w+|\w+\s*\(\)\s*\{)`, sh),

	rule("rust_pub", CategoryPublic, SeverityInfo, TargetCode, `^\s*pub\s+(?:fn|struct|enum|trait|type|const|static|mod|async|unsafe|use)\b`, rs),
	rule("go_exported", CategoryPublic, SeverityInfo, TargetCode, `^(?:func\s+(?:\([^)]*\)\s+)?|type\s+|var\s+|const\s+)[A-Z]`, gol),
	rule("kotlin_public", CategoryPublic, SeverityInfo, TargetCode, `^(?:public\s+)?(?:(?:data|sealed|abstract|open|enum|suspend|inline)\s+)*(?:fun|class|object|interface)\b`, kt),
	rule("jvm_public", CategoryPublic, SeverityInfo, TargetCode, `^\s*public\s`, java, kt),
	rule("js_export", CategoryPublic, SeverityInfo, TargetCode, `^\s*export\s`, ts, js),
	rule("python_public", CategoryPublic, SeverityInfo, TargetCode, `^(?:async\s+)?(?:def|class)\s+[A-Za-z]`, py),
	rule("swift_public", CategoryPublic, SeverityInfo, TargetCode, `^\s*(?:public|open)\s`, sw),

	rule("rust_use", CategoryImport, SeverityInfo, TargetCode, `^\s*(?:pub\s+)?use\s|^\s*extern\s+crate\s`, rs),
	rule("import_stmt", CategoryImport, SeverityInfo, TargetCode, `^\s*import\b`, kt, java, gol, ts, js, sw, py),
	rule("python_from_import", CategoryImport, SeverityInfo, TargetCode, `^\s*from\s+\S+\s+import\b`, py),
	rule("js_require", CategoryImport, SeverityInfo, TargetCode, `\brequire\(\s*["'\x60]`, js, ts),
	rule("c_include", CategoryImport, SeverityInfo, TargetRaw, `^\s*#\s*include\b`, cc, cpp),

	rule("ffi", CategoryFFI, SeverityMedium, TargetRaw, `(?i)extern\s+"C"|#\[link\b|\blibc::|\bstd::ffi\b|^\s*import\s+"C"|\bctypes\b|\bcffi\b|\bexternal\s+fun\b|\bnative\s+\w+\s+\w+\s*\(|\bdlopen\s*\(|\bsyscall\.Syscall`),

	// Branching and looping keywords; multi-way branches weigh more.
	rule("if", CategoryDecision, SeverityInfo, TargetCode, `\bif\b`),
	rule("elif", CategoryDecision, SeverityInfo, TargetCode, `\belif\b`, py),
	weighted(rule("match", CategoryDecision, SeverityInfo, TargetCode, `\bmatch\b`, rs, py), 2),
	weighted(rule("switch", CategoryDecision, SeverityInfo, TargetCode, `\bswitch\b`, gol, ts, js, java, cc, cpp, sw), 2),
	weighted(rule("when", CategoryDecision, SeverityInfo, TargetCode, `\bwhen\b`, kt), 2),
	weighted(rule("select", CategoryDecision, SeverityInfo, TargetCode, `\bselect\s*\{`, gol), 2),
	rule("loop", CategoryDecision, SeverityInfo, TargetCode, `\b(?:for|while)\b`),
	rule("rust_loop", CategoryDecision, SeverityInfo, TargetCode, `\bloop\s*\{`, rs),
	rule("logical_and", CategoryDecision, SeverityInfo, TargetCode, `&&`),
	rule("logical_or", CategoryDecision, SeverityInfo, TargetCode, `\|\|`),
	rule("python_bool_op", CategoryDecision, SeverityInfo, TargetCode, `\b(?:and|or)\b`, py),
	rule("catch", CategoryDecision, SeverityInfo, TargetCode, `\b(?:catch|except)\b`),
	rule("guard", CategoryDecision, SeverityInfo, TargetCode, `\bguard\b`, sw),

	// Review markers, matched inside comment text only.
	rule("todo", CategoryMarker, SeverityInfo, TargetComment, `(?i)\bTODO\b`),
	rule("fixme", CategoryMarker, SeverityLow, TargetComment, `(?i)\bFIXME\b`),
	rule("hack", CategoryMarker, SeverityLow, TargetComment, `(?i)\bHACK\b`),
	rule("xxx", CategoryMarker, SeverityLow, TargetComment, `(?i)\bXXX\b`),

	// File-level markers checked in the header.
	rule("generated_marker", CategoryGenerated, SeverityInfo, TargetRaw, `(?i)@generated|auto[-_ ]?generated|do not edit|machine[- ]generated|code generated .*do not edit|this file (?:is|was) generated`),
	rule("protobuf_marker", CategoryProtobuf, SeverityInfo, TargetRaw, `(?i)generated by the protocol buffer compiler|protoc-gen-\w+|\bsource:\s*\S+\.proto\b`),
}
