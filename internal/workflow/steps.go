// Package workflow drives the two fixed five-step creation sequences of the
// document service. The validator orchestrates step ordering and aggregates
// pass/fail; the domain predicates behind each named rule are registered by
// the collaborating services.
package workflow

// Kind selects one of the two fixed workflows.
type Kind string

const (
	// KindDocument is the end-user document creation workflow.
	KindDocument Kind = "document"
	// KindTemplate is the administrative template creation workflow.
	KindTemplate Kind = "template"
)

// Step describes one workflow step: the inputs it requires and the named
// validation rule gating its completion.
type Step struct {
	Number        int      `json:"number"`
	Name          string   `json:"name"`
	RequiredInput []string `json:"required_input"`
	Rule          string   `json:"rule"`
}

// Rule names of the document creation workflow.
const (
	RuleTemplateExists         = "template_exists"
	RuleDataConsistency        = "data_consistency"
	RuleMandatoryFields        = "mandatory_fields"
	RuleTextblockCompatibility = "textblock_compatibility"
	RuleDocumentCompleteness   = "document_completeness"
)

// Rule names of the template creation workflow.
const (
	RuleUniqueTemplateName  = "unique_template_name"
	RuleLayoutConsistency   = "layout_consistency"
	RulePlaceholderValidity = "placeholder_validity"
	RuleQuerySyntax         = "query_syntax"
	RuleFormatCompatibility = "format_compatibility"
)

var documentSteps = []Step{
	{Number: 1, Name: "select_template", RequiredInput: []string{"template_id"}, Rule: RuleTemplateExists},
	{Number: 2, Name: "bind_data", RequiredInput: []string{"data_context"}, Rule: RuleDataConsistency},
	{Number: 3, Name: "fill_missing", RequiredInput: nil, Rule: RuleMandatoryFields},
	{Number: 4, Name: "select_textblocks", RequiredInput: []string{"block_selections"}, Rule: RuleTextblockCompatibility},
	{Number: 5, Name: "preview_finalize", RequiredInput: []string{"name"}, Rule: RuleDocumentCompleteness},
}

var templateSteps = []Step{
	{Number: 1, Name: "basis", RequiredInput: []string{"name", "page_format"}, Rule: RuleUniqueTemplateName},
	{Number: 2, Name: "layout", RequiredInput: []string{"layout_elements"}, Rule: RuleLayoutConsistency},
	{Number: 3, Name: "placeholders", RequiredInput: []string{"body"}, Rule: RulePlaceholderValidity},
	{Number: 4, Name: "queries", RequiredInput: []string{"queries"}, Rule: RuleQuerySyntax},
	{Number: 5, Name: "formatting", RequiredInput: []string{"formatting"}, Rule: RuleFormatCompatibility},
}

// Steps returns the fixed step table of kind. The returned slice is shared;
// callers must not mutate it.
func Steps(kind Kind) []Step {
	switch kind {
	case KindTemplate:
		return templateSteps
	default:
		return documentSteps
	}
}

// StepCount is the length of both fixed workflows.
const StepCount = 5
