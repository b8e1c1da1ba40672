// Package record defines the unit of storage in the vector index and the
// metadata patch operation applied to it during reconciliation.
package record

// Document type tags observed in the index. Metadata is schema-less; these
// are the values the reconciliation rules filter and assign.
const (
	TypePesticideProduct    = "pesticide_product"
	TypePesticideLabel      = "pesticide_label"
	TypeUniversityExtension = "university_extension"
	TypeEquipmentCatalog    = "equipment_catalog"
	TypeReferenceDocument   = "reference_document"
	TypeSystemInstruction   = "system_instruction"
)

// Country tag values. A product sold in both markets carries the combined tag.
const (
	CountryUSA  = "USA"
	CountryCA   = "Canada"
	CountryBoth = "USA,Canada"
)

// Metadata is the loosely structured document attached to a record.
// Values are scalars or short strings; absence of a key means "unset".
type Metadata map[string]any

// GetString returns the value for key as a string, or "" when the key is
// unset or holds a non-string value.
func (m Metadata) GetString(key string) string {
	if m == nil {
		return ""
	}
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

// Has reports whether key is set.
func (m Metadata) Has(key string) bool {
	_, ok := m[key]
	return ok
}

// Clone returns a shallow copy. Mutating the copy never affects the original.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return Metadata{}
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Record pairs a fixed-length embedding with its metadata document.
type Record struct {
	ID       string    `json:"id"`
	Values   []float32 `json:"values,omitempty"`
	Metadata Metadata  `json:"metadata,omitempty"`
}

// DisplayName resolves a record's identifying name by fixed precedence:
// product_name, else document_name, else source, else "". Every rule that
// inspects a record's name goes through this function.
func (r Record) DisplayName() string {
	if v := r.Metadata.GetString("product_name"); v != "" {
		return v
	}
	if v := r.Metadata.GetString("document_name"); v != "" {
		return v
	}
	return r.Metadata.GetString("source")
}

// Patch is a pure metadata mutation: keys to set and keys to remove.
// A patch never names embedding or text.
type Patch struct {
	Set    Metadata
	Remove []string
}

// IsZero reports whether the patch would change nothing.
func (p Patch) IsZero() bool {
	return len(p.Set) == 0 && len(p.Remove) == 0
}

// Apply merges the patch into meta and returns the result. Existing keys not
// named by the patch are preserved verbatim, set keys are overwritten, and
// remove keys are deleted when present (absence is not an error). Applying
// the same patch twice yields the same metadata as applying it once.
func (p Patch) Apply(meta Metadata) Metadata {
	out := meta.Clone()
	for k, v := range p.Set {
		out[k] = v
	}
	for _, k := range p.Remove {
		delete(out, k)
	}
	return out
}
