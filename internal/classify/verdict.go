package classify

import "fmt"

// Verdict categorizes an edit. Values are ordered by the cost of
// propagating the change; the classifier picks the cheapest one that is
// consistent with the diff.
type Verdict int

const (
	// NoChange means nothing needs to be propagated.
	NoChange Verdict = iota
	// StructuralOnly means only heading depths or list markers moved.
	StructuralOnly
	// CodeOnly means every change sits inside a delimited block.
	CodeOnly
	// TextAndStructure means prose changed and the page must be translated.
	TextAndStructure
)

var verdictNames = map[Verdict]string{
	NoChange:         "NoChange",
	StructuralOnly:   "StructuralOnly",
	CodeOnly:         "CodeOnly",
	TextAndStructure: "TextAndStructure",
}

// String returns the verdict name.
func (v Verdict) String() string {
	if s, ok := verdictNames[v]; ok {
		return s
	}
	return fmt.Sprintf("Verdict(%d)", int(v))
}

// MarshalText encodes the verdict by name for JSON and YAML reports.
func (v Verdict) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText decodes a verdict name.
func (v *Verdict) UnmarshalText(b []byte) error {
	for k, name := range verdictNames {
		if name == string(b) {
			*v = k
			return nil
		}
	}
	return fmt.Errorf("unknown verdict %q", string(b))
}

// Verdicts lists all verdicts in cost order.
func Verdicts() []Verdict {
	return []Verdict{NoChange, StructuralOnly, CodeOnly, TextAndStructure}
}
