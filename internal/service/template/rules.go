package template

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fintutto/vermietify-docs/internal/domain"
	"github.com/fintutto/vermietify-docs/internal/resolver"
	"github.com/fintutto/vermietify-docs/internal/workflow"
)

var knownPageFormats = map[string]struct{}{
	"A4":        {},
	"A5":        {},
	"Letter":    {},
	"Landscape": {},
}

// RegisterWorkflowRules binds the template creation predicates into the
// workflow registry. Each rule gates one step of the administrative
// template workflow.
func (s *Service) RegisterWorkflowRules(registry *workflow.Registry) {
	registry.Register(workflow.RuleUniqueTemplateName, s.ruleUniqueTemplateName)
	registry.Register(workflow.RuleLayoutConsistency, s.ruleLayoutConsistency)
	registry.Register(workflow.RulePlaceholderValidity, s.rulePlaceholderValidity)
	registry.Register(workflow.RuleQuerySyntax, s.ruleQuerySyntax)
	registry.Register(workflow.RuleFormatCompatibility, s.ruleFormatCompatibility)
}

// ruleUniqueTemplateName rejects names already taken by a live template.
func (s *Service) ruleUniqueTemplateName(ctx context.Context, _ *workflow.Run, input map[string]any) error {
	name, _ := input["name"].(string)
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("template name must not be empty")
	}

	format, _ := input["page_format"].(string)
	if _, ok := knownPageFormats[strings.TrimSpace(format)]; !ok {
		return fmt.Errorf("unknown page format %q", format)
	}

	if _, err := s.repos.Templates.GetByName(ctx, name, false); err == nil {
		return fmt.Errorf("template name %q is already in use", name)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return nil
}

// ruleLayoutConsistency requires at least one layout element, each with a
// declared type.
func (s *Service) ruleLayoutConsistency(_ context.Context, _ *workflow.Run, input map[string]any) error {
	elements, ok := input["layout_elements"].([]any)
	if !ok || len(elements) == 0 {
		return errors.New("layout needs at least one element")
	}
	for i, raw := range elements {
		element, ok := raw.(map[string]any)
		if !ok {
			return fmt.Errorf("layout element %d is not an object", i)
		}
		kind, _ := element["type"].(string)
		if strings.TrimSpace(kind) == "" {
			return fmt.Errorf("layout element %d has no type", i)
		}
	}
	return nil
}

// rulePlaceholderValidity requires the body to scan cleanly and every
// placeholder token to exist in the catalog.
func (s *Service) rulePlaceholderValidity(_ context.Context, _ *workflow.Run, input map[string]any) error {
	body, _ := input["body"].(string)
	invalid, err := resolver.ValidateTemplateBody(s.catalog.Snapshot(), body)
	if err != nil {
		return err
	}
	if len(invalid) > 0 {
		return fmt.Errorf("body contains invalid tokens: %s", strings.Join(invalid, ", "))
	}
	return nil
}

// ruleQuerySyntax requires every data query to target a known catalog
// category.
func (s *Service) ruleQuerySyntax(_ context.Context, _ *workflow.Run, input map[string]any) error {
	queries, ok := input["queries"].([]any)
	if !ok {
		return errors.New("queries must be a list")
	}
	snapshot := s.catalog.Snapshot()
	for i, raw := range queries {
		query, ok := raw.(map[string]any)
		if !ok {
			return fmt.Errorf("query %d is not an object", i)
		}
		category, _ := query["category"].(string)
		if !snapshot.HasCategory(category) {
			return fmt.Errorf("query %d targets unknown category %q", i, category)
		}
	}
	return nil
}

// ruleFormatCompatibility sanity-checks the formatting options.
func (s *Service) ruleFormatCompatibility(_ context.Context, _ *workflow.Run, input map[string]any) error {
	formatting, ok := input["formatting"].(map[string]any)
	if !ok {
		return errors.New("formatting must be an object")
	}
	if raw, present := formatting["font_size"]; present {
		size, ok := raw.(float64)
		if !ok || size < 6 || size > 72 {
			return errors.New("font_size must be between 6 and 72")
		}
	}
	if raw, present := formatting["date_format"]; present {
		format, ok := raw.(string)
		if !ok || strings.TrimSpace(format) == "" {
			return errors.New("date_format must be a non-empty string")
		}
	}
	return nil
}
