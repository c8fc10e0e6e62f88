// Package router turns a static analysis result into a rendered LLM prompt.
//
// Tier selection depends only on the result's recommendation:
//
//	Skip, Minimal -> Minimal   short three-question prompt, optional comment stripping
//	Standard      -> Standard  code-smell and refactoring questionnaire
//	DeepDive      -> DeepDive  audit prompt with red flags and full static context
//
// Token counts from [EstimateTokens] are a character-based estimate, not a
// tokenization; [TokenCounter] gives exact cl100k_base counts when needed.
package router
