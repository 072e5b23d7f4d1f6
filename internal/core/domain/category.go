package domain

import "fmt"

// Category is the failure class a DLQ record is assigned to.
// The declaration order is the tie-break order used by the classifier.
type Category int

const (
	CategorySchemaMismatch Category = iota
	CategoryMissingTable
	CategoryPrimaryKey
	CategoryConnection
	CategoryTransform
	CategoryDataOverflow
	CategoryEncoding

	// CategoryUnknown is assigned when no rule produced any evidence.
	CategoryUnknown
)

// NumCategories is the number of real (non-UNKNOWN) categories.
const NumCategories = int(CategoryUnknown)

var categoryNames = [...]string{
	CategorySchemaMismatch: "SCHEMA_MISMATCH",
	CategoryMissingTable:   "MISSING_TABLE",
	CategoryPrimaryKey:     "PRIMARY_KEY",
	CategoryConnection:     "CONNECTION",
	CategoryTransform:      "TRANSFORM",
	CategoryDataOverflow:   "DATA_OVERFLOW",
	CategoryEncoding:       "ENCODING",
	CategoryUnknown:        "UNKNOWN",
}

// Categories returns the real categories in enumeration order.
func Categories() []Category {
	out := make([]Category, NumCategories)
	for i := range out {
		out[i] = Category(i)
	}
	return out
}

func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return categoryNames[CategoryUnknown]
	}
	return categoryNames[c]
}

// Known reports whether c is one of the seven real categories.
func (c Category) Known() bool {
	return c >= 0 && c < CategoryUnknown
}

// ParseCategory maps a category name back to its value.
func ParseCategory(s string) (Category, error) {
	for i, name := range categoryNames {
		if name == s {
			return Category(i), nil
		}
	}
	return CategoryUnknown, fmt.Errorf("unknown category %q", s)
}

func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Category) UnmarshalText(b []byte) error {
	parsed, err := ParseCategory(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
