package resolver

import (
	"errors"
	"testing"

	"github.com/fintutto/vermietify-docs/internal/catalog"
)

func testSnapshot(t *testing.T) *catalog.Snapshot {
	t.Helper()
	snapshot, err := catalog.NewSnapshot([]catalog.Entry{
		{Category: "Mieter", Field: "Vorname"},
		{Category: "Mieter", Field: "Nachname"},
		{Category: "Mieter", Field: "Anrede"},
		{Category: "Mietvertrag", Field: "Miete"},
		{Category: "Mietvertrag", Field: "Beginn"},
		{Category: "Objekt", Field: "Adresse"},
	})
	if err != nil {
		t.Fatalf("build snapshot: %v", err)
	}
	return snapshot
}

func TestResolveSubstitutesBoundTokens(t *testing.T) {
	snapshot := testSnapshot(t)
	template := Template{Body: "Sehr geehrte(r) {{Mieter.Nachname}}, Ihre Miete beträgt {{Mietvertrag.Miete}}."}
	context := DataContext{
		"Mieter":      {"Nachname": "Schmidt"},
		"Mietvertrag": {"Miete": "850,00 EUR"},
	}

	result, err := Resolve(snapshot, template, nil, context)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want := "Sehr geehrte(r) Schmidt, Ihre Miete beträgt 850,00 EUR."
	if result.ResolvedText != want {
		t.Fatalf("resolved text %q, want %q", result.ResolvedText, want)
	}
	if len(result.UnresolvedTokens) != 0 || len(result.InvalidTokens) != 0 {
		t.Fatalf("unexpected diagnostics: %v / %v", result.UnresolvedTokens, result.InvalidTokens)
	}
}

func TestResolveMissingBindingLeavesTokenVerbatim(t *testing.T) {
	snapshot := testSnapshot(t)
	template := Template{Body: "Hallo {{Mieter.Vorname}} {{Mieter.Nachname}}"}
	context := DataContext{"Mieter": {"Nachname": "Schmidt"}}

	result, err := Resolve(snapshot, template, nil, context)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if result.ResolvedText != "Hallo {{Mieter.Vorname}} Schmidt" {
		t.Fatalf("resolved text %q", result.ResolvedText)
	}
	if len(result.UnresolvedTokens) != 1 || result.UnresolvedTokens[0] != "{{Mieter.Vorname}}" {
		t.Fatalf("unresolved tokens %v", result.UnresolvedTokens)
	}
}

func TestResolveUnknownTokenIsInvalid(t *testing.T) {
	snapshot := testSnapshot(t)
	template := Template{Body: "Wert: {{Unbekannt.Feld}} und {{Mieter.Geburtstag}}"}

	result, err := Resolve(snapshot, template, nil, DataContext{})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if result.ResolvedText != template.Body {
		t.Fatalf("invalid tokens must stay verbatim, got %q", result.ResolvedText)
	}
	if len(result.InvalidTokens) != 2 {
		t.Fatalf("invalid tokens %v", result.InvalidTokens)
	}
	if result.InvalidTokens[0] != "{{Unbekannt.Feld}}" || result.InvalidTokens[1] != "{{Mieter.Geburtstag}}" {
		t.Fatalf("invalid tokens %v", result.InvalidTokens)
	}
}

func TestResolveMalformedTokenIsInvalid(t *testing.T) {
	snapshot := testSnapshot(t)
	for _, body := range []string{
		"{{Mieter}}",
		"{{Mieter.Nachname.Extra}}",
		"{{Mieter Nachname}}",
		"{{.Nachname}}",
	} {
		result, err := Resolve(snapshot, Template{Body: body}, nil, DataContext{})
		if err != nil {
			t.Fatalf("resolve %q: %v", body, err)
		}
		if len(result.InvalidTokens) != 1 || result.InvalidTokens[0] != body {
			t.Fatalf("body %q: invalid tokens %v", body, result.InvalidTokens)
		}
		if result.ResolvedText != body {
			t.Fatalf("body %q: resolved %q", body, result.ResolvedText)
		}
	}
}

func TestResolveDeduplicatesDiagnostics(t *testing.T) {
	snapshot := testSnapshot(t)
	template := Template{Body: "{{Mieter.Vorname}} {{Unbekannt.X}} {{Mieter.Vorname}} {{Unbekannt.X}}"}

	result, err := Resolve(snapshot, template, nil, DataContext{})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(result.UnresolvedTokens) != 1 || result.UnresolvedTokens[0] != "{{Mieter.Vorname}}" {
		t.Fatalf("unresolved tokens %v", result.UnresolvedTokens)
	}
	if len(result.InvalidTokens) != 1 || result.InvalidTokens[0] != "{{Unbekannt.X}}" {
		t.Fatalf("invalid tokens %v", result.InvalidTokens)
	}
}

func TestResolveUnbalancedDelimiters(t *testing.T) {
	snapshot := testSnapshot(t)
	for _, body := range []string{
		"Hallo {{Mieter.Nachname",
		"Hallo Mieter.Nachname}}",
		"[[anrede",
		"Text ]] danach",
		"{{Mieter.{{Nachname}}",
	} {
		_, err := Resolve(snapshot, Template{Body: body}, nil, DataContext{})
		var syntaxErr *SyntaxError
		if !errors.As(err, &syntaxErr) {
			t.Fatalf("body %q: expected SyntaxError, got %v", body, err)
		}
	}
}

func TestResolveSlotInsertsBlock(t *testing.T) {
	snapshot := testSnapshot(t)
	template := Template{
		Body:  "[[anrede]]\n\nIhre Adresse: {{Objekt.Adresse}}",
		Slots: []string{"anrede"},
	}
	blocks := map[string]Block{
		"anrede": {ID: "blk-1", Content: "Sehr geehrter Herr {{Mieter.Nachname}},"},
	}
	context := DataContext{
		"Mieter": {"Nachname": "Schmidt"},
		"Objekt": {"Adresse": "Hauptstraße 1"},
	}

	result, err := Resolve(snapshot, template, blocks, context)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want := "Sehr geehrter Herr Schmidt,\n\nIhre Adresse: Hauptstraße 1"
	if result.ResolvedText != want {
		t.Fatalf("resolved text %q, want %q", result.ResolvedText, want)
	}
	if len(result.UsedBlocks) != 1 || result.UsedBlocks[0] != "blk-1" {
		t.Fatalf("used blocks %v", result.UsedBlocks)
	}
}

func TestResolveUnselectedSlotStaysVisible(t *testing.T) {
	snapshot := testSnapshot(t)
	template := Template{Body: "Vorab: [[anrede]] Ende.", Slots: []string{"anrede"}}

	result, err := Resolve(snapshot, template, nil, DataContext{})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if result.ResolvedText != "Vorab: [[anrede]] Ende." {
		t.Fatalf("resolved text %q", result.ResolvedText)
	}
	if len(result.UnresolvedTokens) != 1 || result.UnresolvedTokens[0] != "[[anrede]]" {
		t.Fatalf("unresolved tokens %v", result.UnresolvedTokens)
	}
}

func TestResolveUndeclaredSlotIsInvalid(t *testing.T) {
	snapshot := testSnapshot(t)
	template := Template{Body: "[[grussformel]]"}

	result, err := Resolve(snapshot, template, nil, DataContext{})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(result.InvalidTokens) != 1 || result.InvalidTokens[0] != "[[grussformel]]" {
		t.Fatalf("invalid tokens %v", result.InvalidTokens)
	}
}

func TestResolveSlotInsideBlockIsInvalid(t *testing.T) {
	snapshot := testSnapshot(t)
	template := Template{Body: "[[anrede]]", Slots: []string{"anrede"}}
	blocks := map[string]Block{
		"anrede": {ID: "blk-1", Content: "Hallo [[nested]]"},
	}

	result, err := Resolve(snapshot, template, blocks, DataContext{})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if result.ResolvedText != "Hallo [[nested]]" {
		t.Fatalf("resolved text %q", result.ResolvedText)
	}
	if len(result.InvalidTokens) != 1 || result.InvalidTokens[0] != "[[nested]]" {
		t.Fatalf("invalid tokens %v", result.InvalidTokens)
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	snapshot := testSnapshot(t)
	template := Template{
		Body:  "{{Mieter.Nachname}} [[anrede]] {{Unbekannt.X}} {{Mietvertrag.Beginn}}",
		Slots: []string{"anrede"},
	}
	context := DataContext{"Mieter": {"Nachname": "Meier"}}

	first, err := Resolve(snapshot, template, nil, context)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	second, err := Resolve(snapshot, template, nil, context)
	if err != nil {
		t.Fatalf("resolve again: %v", err)
	}
	if first.ResolvedText != second.ResolvedText {
		t.Fatalf("resolution not deterministic: %q vs %q", first.ResolvedText, second.ResolvedText)
	}
	if len(first.UnresolvedTokens) != len(second.UnresolvedTokens) || len(first.InvalidTokens) != len(second.InvalidTokens) {
		t.Fatalf("diagnostics differ between runs")
	}
}

func TestResolveMissingData(t *testing.T) {
	snapshot := testSnapshot(t)
	template := Template{
		Body:         "{{Mieter.Nachname}}",
		RequiredData: []string{"Mieter", "Mietvertrag"},
	}
	context := DataContext{"Mieter": {"Nachname": "Schmidt"}}

	result, err := Resolve(snapshot, template, nil, context)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(result.MissingData) != 1 || result.MissingData[0] != "Mietvertrag" {
		t.Fatalf("missing data %v", result.MissingData)
	}
}

func TestTokensOf(t *testing.T) {
	placeholders, slots, err := TokensOf("{{A.B}} [[x]] {{A.B}} {{C.D}} [[y]] [[x]]")
	if err != nil {
		t.Fatalf("tokens: %v", err)
	}
	if len(placeholders) != 2 || placeholders[0] != "{{A.B}}" || placeholders[1] != "{{C.D}}" {
		t.Fatalf("placeholders %v", placeholders)
	}
	if len(slots) != 2 || slots[0] != "[[x]]" || slots[1] != "[[y]]" {
		t.Fatalf("slots %v", slots)
	}
}

func TestValidateTemplateBody(t *testing.T) {
	snapshot := testSnapshot(t)

	invalid, err := ValidateTemplateBody(snapshot, "{{Mieter.Nachname}} [[anrede]] {{Unbekannt.X}} {{kaputt}}")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if len(invalid) != 2 || invalid[0] != "{{Unbekannt.X}}" || invalid[1] != "{{kaputt}}" {
		t.Fatalf("invalid tokens %v", invalid)
	}

	if _, err := ValidateTemplateBody(snapshot, "{{Mieter.Nachname"); err == nil {
		t.Fatalf("expected syntax error")
	}
}

func TestValidateBlockContent(t *testing.T) {
	snapshot := testSnapshot(t)

	if err := ValidateBlockContent(snapshot, "Sehr geehrter Herr {{Mieter.Nachname}},"); err != nil {
		t.Fatalf("valid block rejected: %v", err)
	}

	err := ValidateBlockContent(snapshot, "Hallo {{Unbekannt.X}}")
	var tokenErr *InvalidBlockTokenError
	if !errors.As(err, &tokenErr) || tokenErr.Token != "{{Unbekannt.X}}" {
		t.Fatalf("expected invalid token error, got %v", err)
	}

	err = ValidateBlockContent(snapshot, "Hallo [[nested]]")
	if !errors.As(err, &tokenErr) || tokenErr.Token != "[[nested]]" {
		t.Fatalf("expected slot marker rejection, got %v", err)
	}
}
