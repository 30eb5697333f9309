package catalog

// DefaultEntries returns the built-in placeholder catalog. Administrators can
// extend it at runtime; the seed covers the core property-management
// categories.
func DefaultEntries() []Entry {
	return []Entry{
		{Category: "objekt", Field: "Name", Label: "Objektname"},
		{Category: "objekt", Field: "Adresse", Label: "Objektadresse"},
		{Category: "objekt", Field: "Eigentuemer", Label: "Eigentümer"},

		{Category: "gebaeude", Field: "Name", Label: "Gebäudename"},
		{Category: "gebaeude", Field: "Adresse", Label: "Gebäudeadresse"},
		{Category: "gebaeude", Field: "Baujahr", Label: "Baujahr"},

		{Category: "flaeche", Field: "Bezeichnung", Label: "Flächenbezeichnung"},
		{Category: "flaeche", Field: "Groesse", Label: "Fläche in m²"},
		{Category: "flaeche", Field: "Etage", Label: "Etage"},

		{Category: "mietvertrag", Field: "Nummer", Label: "Vertragsnummer"},
		{Category: "mietvertrag", Field: "Beginn", Label: "Mietbeginn"},
		{Category: "mietvertrag", Field: "Ende", Label: "Mietende"},
		{Category: "mietvertrag", Field: "Miete", Label: "Monatsmiete"},
		{Category: "mietvertrag", Field: "Kaution", Label: "Kaution"},

		{Category: "mieter", Field: "Anrede", Label: "Anrede"},
		{Category: "mieter", Field: "Vorname", Label: "Vorname"},
		{Category: "mieter", Field: "Nachname", Label: "Nachname"},
		{Category: "mieter", Field: "Adresse", Label: "Anschrift"},
		{Category: "mieter", Field: "Email", Label: "E-Mail"},

		{Category: "forderungen", Field: "Betrag", Label: "Offener Betrag"},
		{Category: "forderungen", Field: "Faelligkeit", Label: "Fälligkeit"},
		{Category: "forderungen", Field: "Verwendungszweck", Label: "Verwendungszweck"},
	}
}
