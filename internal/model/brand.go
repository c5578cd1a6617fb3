package model

// Confidence is a coarse certainty rating.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Valid reports whether c is one of the known levels.
func (c Confidence) Valid() bool {
	switch c {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return true
	}
	return false
}

// ProfileConfidence rates each extracted field of a BrandProfile.
type ProfileConfidence struct {
	Description       Confidence `json:"description"`
	Topics            Confidence `json:"topics"`
	Categories        Confidence `json:"categories"`
	AdditionalContext Confidence `json:"additionalContext"`
}

// BrandProfile is the structured description extracted from a brand's
// most relevant sources.
type BrandProfile struct {
	Description       string            `json:"description"`
	Topics            []string          `json:"topics"`
	Categories        []string          `json:"categories"`
	AdditionalContext string            `json:"additionalContext"`
	Confidence        ProfileConfidence `json:"confidence"`
	ExtractionNotes   string            `json:"extractionNotes"`
	Sources           []string          `json:"sources"`
}

// ExtractionOutcome wraps content extraction. Callers must check Success
// before reading Profile.
type ExtractionOutcome struct {
	Success bool          `json:"success"`
	Profile *BrandProfile `json:"profile,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// NoRelevantSourcesError is the extraction sentinel when no source qualifies.
const NoRelevantSourcesError = "No sufficiently relevant results found for brand extraction"

// CompanySize is one of the five size tiers.
type CompanySize string

const (
	SizeStartup         CompanySize = "Startup"
	SizeGrowth          CompanySize = "Growth"
	SizeMidMarket       CompanySize = "Mid-Market"
	SizeLargeEnterprise CompanySize = "Large Enterprise"
	SizeUnicorn         CompanySize = "Unicorn"

	// SizeUnknown is used on the scorecard when sizing failed.
	SizeUnknown CompanySize = "Unknown"
)

// AllCompanySizes returns the classifier tiers in ascending order.
func AllCompanySizes() []CompanySize {
	return []CompanySize{SizeStartup, SizeGrowth, SizeMidMarket, SizeLargeEnterprise, SizeUnicorn}
}

// KeyIndicators are the facts the sizing classifier relied on.
type KeyIndicators struct {
	EmployeeCount string `json:"employeeCount,omitempty"`
	Funding       string `json:"funding,omitempty"`
	Revenue       string `json:"revenue,omitempty"`
	Valuation     string `json:"valuation,omitempty"`
	PublicStatus  string `json:"publicStatus,omitempty"`
}

// SizingResult is the size classification of one brand.
type SizingResult struct {
	CompanySize   CompanySize   `json:"companySize"`
	Confidence    Confidence    `json:"confidence"`
	KeyIndicators KeyIndicators `json:"keyIndicators"`
	Sources       []string      `json:"sources"`
	Reasoning     string        `json:"reasoning"`
}

// SizingOutcome wraps company sizing. Fallback marks the no-data default.
type SizingOutcome struct {
	Success  bool          `json:"success"`
	Result   *SizingResult `json:"result,omitempty"`
	Fallback bool          `json:"fallback,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// FallbackSizing is returned when no sizing data could be found at all.
// Actively searched companies are most often mid-scale.
func FallbackSizing() SizingResult {
	return SizingResult{
		CompanySize: SizeGrowth,
		Confidence:  ConfidenceLow,
		Sources:     []string{"fallback"},
		Reasoning:   "No sizing data found; defaulting to Growth tier",
	}
}
