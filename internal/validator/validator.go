// Package validator applies advisory consistency rules to normalized forms.
// Issues are data: nothing here returns an error or rejects a record.
package validator

import (
	"formscan/internal/domain"
)

// Validator runs registered rules and the per-form shape schemas.
type Validator struct {
	registry *Registry
	shapes   *shapeChecker
}

// New creates a Validator with the built-in rules and schemas.
func New() *Validator {
	return NewWithRegistry(DefaultRegistry())
}

// NewWithRegistry creates a Validator over a custom rule set.
func NewWithRegistry(r *Registry) *Validator {
	return &Validator{registry: r, shapes: defaultShapes()}
}

// ValidateItem returns the issues for one line item of form type ft.
// item may be a value or a pointer; an item of the wrong type yields no issues.
func (v *Validator) ValidateItem(item any, ft domain.FormType) []domain.ValidationIssue {
	out := []domain.ValidationIssue{}
	for _, rule := range v.registry.Rules(ft, ScopeItem) {
		out = append(out, rule.Check(item)...)
	}
	return out
}

// ValidateHeader returns the issues for the header of form.
func (v *Validator) ValidateHeader(form domain.Form) []domain.ValidationIssue {
	out := []domain.ValidationIssue{}
	if form == nil {
		return out
	}
	var header any
	switch f := form.(type) {
	case *domain.HandReceipt:
		header = &f.Header
	case *domain.RequestTurnIn:
		header = &f.Header
	case *domain.EquipmentRecord:
		header = &f.Header
	case *domain.GenericForm:
		header = &f.Header
	}
	for _, rule := range v.registry.Rules(form.FormType(), ScopeHeader) {
		out = append(out, rule.Check(header)...)
	}
	return out
}

// Apply attaches rule issues to every item and header of result. Issues
// already present (for example from normalization) are kept and duplicates
// are not added twice.
func (v *Validator) Apply(result *domain.ExtractionResult) {
	if result == nil || result.Form == nil {
		return
	}
	ft := result.Form.FormType()

	switch f := result.Form.(type) {
	case *domain.HandReceipt:
		f.Header.Issues = merge(f.Header.Issues, v.ValidateHeader(f))
		for i := range f.Items {
			f.Items[i].Issues = merge(f.Items[i].Issues, v.ValidateItem(&f.Items[i], ft))
		}
	case *domain.RequestTurnIn:
		f.Header.Issues = merge(f.Header.Issues, v.ValidateHeader(f))
		for i := range f.Items {
			f.Items[i].Issues = merge(f.Items[i].Issues, v.ValidateItem(&f.Items[i], ft))
		}
	case *domain.EquipmentRecord:
		f.Header.Issues = merge(f.Header.Issues, v.ValidateHeader(f))
		for i := range f.Items {
			f.Items[i].Issues = merge(f.Items[i].Issues, v.ValidateItem(&f.Items[i], ft))
		}
	case *domain.GenericForm:
		f.Header.Issues = merge(f.Header.Issues, v.ValidateHeader(f))
		for i := range f.Items {
			f.Items[i].Issues = merge(f.Items[i].Issues, v.ValidateItem(&f.Items[i], ft))
		}
	}
}

// CountIssues returns the number of item, header and document issues.
func CountIssues(result *domain.ExtractionResult) int {
	if result == nil {
		return 0
	}
	n := len(result.Issues)
	switch f := result.Form.(type) {
	case *domain.HandReceipt:
		n += len(f.Header.Issues)
		for _, it := range f.Items {
			n += len(it.Issues)
		}
	case *domain.RequestTurnIn:
		n += len(f.Header.Issues)
		for _, it := range f.Items {
			n += len(it.Issues)
		}
	case *domain.EquipmentRecord:
		n += len(f.Header.Issues)
		for _, it := range f.Items {
			n += len(it.Issues)
		}
	case *domain.GenericForm:
		n += len(f.Header.Issues)
		for _, it := range f.Items {
			n += len(it.Issues)
		}
	}
	return n
}

func merge(existing, add []domain.ValidationIssue) []domain.ValidationIssue {
	if existing == nil {
		existing = []domain.ValidationIssue{}
	}
	seen := make(map[domain.ValidationIssue]bool, len(existing))
	for _, is := range existing {
		seen[is] = true
	}
	for _, is := range add {
		if !seen[is] {
			seen[is] = true
			existing = append(existing, is)
		}
	}
	return existing
}

var defaultValidator = New()

// ValidateItem validates item with the built-in rules.
func ValidateItem(item any, ft domain.FormType) []domain.ValidationIssue {
	return defaultValidator.ValidateItem(item, ft)
}

// Apply attaches built-in rule issues to result.
func Apply(result *domain.ExtractionResult) {
	defaultValidator.Apply(result)
}

// CheckShape runs the built-in shape schema for ft over obj.
func CheckShape(obj map[string]any, ft domain.FormType) []domain.ValidationIssue {
	return defaultValidator.CheckShape(obj, ft)
}
