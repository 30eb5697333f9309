package document

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fintutto/vermietify-docs/internal/domain"
	"github.com/fintutto/vermietify-docs/internal/workflow"
)

// RegisterWorkflowRules binds the document creation predicates into the
// workflow registry.
func (s *Service) RegisterWorkflowRules(registry *workflow.Registry) {
	registry.Register(workflow.RuleTemplateExists, s.ruleTemplateExists)
	registry.Register(workflow.RuleDataConsistency, s.ruleDataConsistency)
	registry.Register(workflow.RuleMandatoryFields, s.ruleMandatoryFields)
	registry.Register(workflow.RuleTextblockCompatibility, s.ruleTextblockCompatibility)
	registry.Register(workflow.RuleDocumentCompleteness, s.ruleDocumentCompleteness)
}

// ruleTemplateExists requires the selected template to be live and to carry
// a resolvable body.
func (s *Service) ruleTemplateExists(ctx context.Context, _ *workflow.Run, input map[string]any) error {
	templateID, _ := input["template_id"].(string)
	template, err := s.repos.Templates.GetByID(ctx, templateID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("template %s not found", templateID)
		}
		return err
	}
	if template.Body == nil || *template.Body == "" {
		return fmt.Errorf("template %q has no body", template.Name)
	}
	return nil
}

// ruleDataConsistency requires every bound category and field to exist in
// the catalog.
func (s *Service) ruleDataConsistency(_ context.Context, _ *workflow.Run, input map[string]any) error {
	categories, ok := input["data_context"].(map[string]any)
	if !ok {
		return errors.New("data_context must be an object")
	}
	snapshot := s.catalog.Snapshot()
	for category, value := range categories {
		if !snapshot.HasCategory(category) {
			return fmt.Errorf("unknown data category %q", category)
		}
		fields, ok := value.(map[string]any)
		if !ok {
			return fmt.Errorf("data for category %q must be an object", category)
		}
		for field := range fields {
			if _, ok := snapshot.Lookup(category, field); !ok {
				return fmt.Errorf("unknown field %q in category %q", field, category)
			}
		}
	}
	return nil
}

// ruleMandatoryFields requires every category the template declares as
// required to be bound after this step.
func (s *Service) ruleMandatoryFields(ctx context.Context, run *workflow.Run, input map[string]any) error {
	templateID := run.StringInput("template_id")
	template, err := s.repos.Templates.GetByID(ctx, templateID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("template %s not found", templateID)
		}
		return err
	}

	bound := map[string]struct{}{}
	collectCategories(bound, run.Inputs["data_context"])
	collectCategories(bound, input["data_context"])

	missing := []string{}
	for _, category := range decodeStringList(template.RequiredData) {
		if _, ok := bound[category]; !ok {
			missing = append(missing, category)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required data: %s", strings.Join(missing, ", "))
	}
	return nil
}

// ruleTextblockCompatibility requires each selection to target a declared
// slot and an existing block.
func (s *Service) ruleTextblockCompatibility(ctx context.Context, run *workflow.Run, input map[string]any) error {
	selections, ok := input["block_selections"].(map[string]any)
	if !ok {
		return errors.New("block_selections must be an object")
	}

	templateID := run.StringInput("template_id")
	template, err := s.repos.Templates.GetByID(ctx, templateID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("template %s not found", templateID)
		}
		return err
	}

	declared := map[string]struct{}{}
	for _, slot := range decodeStringList(template.TextblockSlots) {
		declared[slot] = struct{}{}
	}

	for slot, value := range selections {
		if _, ok := declared[slot]; !ok {
			return fmt.Errorf("template declares no slot %q", slot)
		}
		blockID, ok := value.(string)
		if !ok || blockID == "" {
			return fmt.Errorf("slot %q has no block selected", slot)
		}
		if _, err := s.repos.TextBlocks.GetByID(ctx, blockID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("text block %s not found", blockID)
			}
			return err
		}
	}
	return nil
}

// ruleDocumentCompleteness resolves the run once more and rejects invalid
// tokens. Unresolved tokens are allowed; they are persisted as diagnostics
// next to the document.
func (s *Service) ruleDocumentCompleteness(ctx context.Context, run *workflow.Run, input map[string]any) error {
	name, _ := input["name"].(string)
	if strings.TrimSpace(name) == "" {
		return errors.New("document name must not be empty")
	}

	result, _, _, err := s.resolveRun(ctx, run)
	if err != nil {
		return err
	}
	if len(result.InvalidTokens) > 0 {
		return fmt.Errorf("body contains invalid tokens: %s", strings.Join(result.InvalidTokens, ", "))
	}
	return nil
}

func collectCategories(into map[string]struct{}, raw any) {
	categories, ok := raw.(map[string]any)
	if !ok {
		return
	}
	for category := range categories {
		into[category] = struct{}{}
	}
}
