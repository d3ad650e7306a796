package domain

// CandidatePage is one discovered recipe page. Title and Description are
// cheap metadata hints collected during discovery; they feed the content
// fingerprint and may be empty when the strategy cannot provide them.
type CandidatePage struct {
	URL         string `json:"url"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}
