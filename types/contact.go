package types

// Field length bounds for contact submissions.
const (
	NameMaxLen    = 100
	EmailMaxLen   = 255
	MessageMinLen = 10
	MessageMaxLen = 5000
	CompanyMaxLen = 200
	PhoneMaxLen   = 20
	PhoneMinDigit = 10
	PhoneMaxDigit = 15
)

// ConsentGranted is the only accepted value for the consent field. It is the
// literal string an HTML checkbox submits; booleans and absent fields are
// rejected as a whole-submission failure.
const ConsentGranted = "on"

// ServiceCategories is the closed set of accepted service tokens. The empty
// string is also accepted for the optional field.
var ServiceCategories = []string{
	"web3-strategy",
	"cybersecurity",
	"infrastructure",
	"cloud",
	"compliance",
	"transformation",
	"other",
}

// ContactSubmission is one sanitized contact-form submission. It lives for a
// single request: parsed from the body, sanitized field by field, validated
// as a whole, handed to the email notifier, then discarded.
type ContactSubmission struct {
	Name    string `json:"name" validate:"required,max=100"`
	Email   string `json:"email" validate:"required,max=255,email,notdisposable"`
	Message string `json:"message" validate:"required,min=10,max=5000"`
	Company string `json:"company" validate:"max=200"`
	Phone   string `json:"phone" validate:"omitempty,max=20,phone"`
	Service string `json:"service" validate:"omitempty,service"`
	Consent string `json:"consent" validate:"consent"`
}
