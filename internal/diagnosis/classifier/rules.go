package classifier

import "github.com/vietddude/dlqdiag/internal/core/domain"

// Rule holds the evidence sources for one category.
type Rule struct {
	Category domain.Category
	// Signatures are case-insensitive regular expressions tried in order;
	// only the first match counts.
	Signatures []string
	// Keywords are substrings matched independently of each other.
	Keywords      []string
	KeywordWeight int
}

// StageHint nudges a category when the failing stage matches exactly.
type StageHint struct {
	Stage    string
	Category domain.Category
	Weight   int
}

// Rules is the full scoring table. It is passed by value and never mutated
// after construction.
type Rules struct {
	SignatureWeight int
	ConfidenceScale int
	ConfidenceCap   int
	Categories      []Rule
	StageHints      []StageHint
}

// DefaultRules returns the reference scoring table. Changing any constant
// reorders root causes, so keep them in sync with the tests.
func DefaultRules() Rules {
	return Rules{
		SignatureWeight: 15,
		ConfidenceScale: 5,
		ConfidenceCap:   100,
		Categories: []Rule{
			{
				Category: domain.CategorySchemaMismatch,
				Signatures: []string{
					`DataException`,
					`ClassCastException`,
					`SQLException.*conversion`,
					`SQLException.*type`,
					`Cannot convert`,
					`Type mismatch`,
				},
				Keywords:      []string{"cannot convert", "type mismatch", "incompatible", "ClassCast", "conversion"},
				KeywordWeight: 10,
			},
			{
				Category: domain.CategoryMissingTable,
				Signatures: []string{
					`SQLException.*Table.*not.*exist`,
					`SQLException.*Unknown table`,
					`table doesn't exist`,
					`Table .* (doesn't|does not) exist`,
					`no such table`,
					`Table .* not found`,
				},
				Keywords:      []string{"table doesn't exist", "unknown table", "not found", "no such table"},
				KeywordWeight: 15,
			},
			{
				Category: domain.CategoryPrimaryKey,
				Signatures: []string{
					`DataException.*key`,
					`ConnectException.*primary`,
					`null key`,
					`key is required`,
					`key cannot be null`,
					`primary key constraint`,
				},
				Keywords:      []string{"null key", "key is required", "primary key", "key cannot be null"},
				KeywordWeight: 12,
			},
			{
				Category: domain.CategoryConnection,
				Signatures: []string{
					`SQLException.*timeout`,
					`ConnectException`,
					`SocketTimeoutException`,
					`connection refused`,
					`unable to connect`,
					`network`,
				},
				Keywords:      []string{"timeout", "refused", "unable to connect", "network"},
				KeywordWeight: 10,
			},
			{
				Category: domain.CategoryTransform,
				Signatures: []string{
					`TransformException`,
					`PatternSyntaxException`,
					`transform`,
					`regex.*failed`,
					`route.*error`,
				},
				Keywords:      []string{"transform", "regex", "route", "replacement"},
				KeywordWeight: 12,
			},
			{
				Category: domain.CategoryDataOverflow,
				Signatures: []string{
					`out of range`,
					`overflow`,
					`exceeds maximum`,
					`too large`,
					`value.*out of bounds`,
				},
				Keywords:      []string{"out of range", "overflow", "exceeds", "too large"},
				KeywordWeight: 10,
			},
			{
				Category: domain.CategoryEncoding,
				Signatures: []string{
					`encoding`,
					`charset`,
					`invalid character`,
					`UTF`,
					`character set`,
				},
				Keywords:      []string{"encoding", "charset", "invalid character"},
				KeywordWeight: 8,
			},
		},
		StageHints: []StageHint{
			{Stage: "VALUE_CONVERTER", Category: domain.CategorySchemaMismatch, Weight: 5},
			{Stage: "TRANSFORMATION", Category: domain.CategoryTransform, Weight: 10},
		},
	}
}
