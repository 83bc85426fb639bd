package model

// BusinessRecord is one business extracted from a directory detail page.
// Records are built once per successfully processed page and never mutated.
type BusinessRecord struct {
	BusinessID          *string `json:"businessId"`
	Name                string  `json:"name"`
	Phone               *string `json:"phone"`
	Address             *string `json:"address"`
	URL                 string  `json:"url"`
	AccreditationStatus string  `json:"accreditationStatus"`
	PrincipalContact    *string `json:"principalContact"`
}

// ID returns the business identifier or "" when none was extracted.
func (b BusinessRecord) ID() string {
	return deref(b.BusinessID)
}

// Accredited reports whether the extracted accreditation status reads as true.
// The raw string is kept on the record because the model does not guarantee
// a boolean.
func (b BusinessRecord) Accredited() bool {
	switch b.AccreditationStatus {
	case "true", "True", "TRUE", "yes", "Yes":
		return true
	default:
		return false
	}
}

// CandidateURL is a detail-page link discovered on a search results page.
type CandidateURL struct {
	URL string `json:"url" validate:"required,url"`
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
