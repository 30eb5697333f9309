package database

import "fmt"

// Dialect adapts SQL parameter placeholders per driver.
type Dialect struct {
	driver string
}

// NewDialect builds a dialect for the given driver name.
func NewDialect(driver string) Dialect {
	return Dialect{driver: driver}
}

// Placeholder returns the parameter placeholder for the given index.
func (d Dialect) Placeholder(index int) string {
	switch d.driver {
	case "postgres", "pgx", "postgresql":
		return fmt.Sprintf("$%d", index)
	default:
		return "?"
	}
}

// PlaceholderBuilder generates sequential placeholders so queries never
// maintain the counter by hand.
type PlaceholderBuilder struct {
	dialect Dialect
	index   int
}

// NewPlaceholderBuilder creates a counter instance.
func NewPlaceholderBuilder(d Dialect) *PlaceholderBuilder {
	return &PlaceholderBuilder{dialect: d}
}

// Next returns the next placeholder.
func (b *PlaceholderBuilder) Next() string {
	b.index++
	return b.dialect.Placeholder(b.index)
}
