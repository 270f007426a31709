package leads

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/nyaruka/phonenumbers"
)

// PhoneFormat selects how strictly phone numbers are checked.
type PhoneFormat string

const (
	// PhoneFreeform accepts digits plus + ( ) - and spaces.
	PhoneFreeform PhoneFormat = "freeform"
	// PhoneStrict requires exactly PhoneRules.Digits digits and nothing else.
	PhoneStrict PhoneFormat = "strict"
)

// PhoneRules configures phone validation and E.164 normalization.
type PhoneRules struct {
	Format PhoneFormat
	Digits int
	Region string
}

var (
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	freeformPattern = regexp.MustCompile(`^[0-9+() \-]+$`)
	digitsPattern   = regexp.MustCompile(`^[0-9]+$`)
)

// LeadInput is the raw form body.
type LeadInput struct {
	FullName          string `json:"fullName" validate:"required"`
	Email             string `json:"email" validate:"required,formemail"`
	Phone             string `json:"phone" validate:"required,leadphone"`
	Company           string `json:"company" validate:"required"`
	InterestedService string `json:"interestedService" validate:"required,catalog"`
	BookingStatus     string `json:"bookingStatus" validate:"bookingstatus"`
}

// Validator turns LeadInput into LeadRecord.
type Validator struct {
	v     *validator.Validate
	phone PhoneRules
}

// NewValidator registers the form's custom rules.
func NewValidator(rules PhoneRules) *Validator {
	if rules.Format == "" {
		rules.Format = PhoneFreeform
	}
	if rules.Digits <= 0 {
		rules.Digits = 10
	}
	if rules.Region == "" {
		rules.Region = "US"
	}

	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("formemail", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("leadphone", func(fl validator.FieldLevel) bool {
		return rules.valid(fl.Field().String())
	})
	_ = v.RegisterValidation("catalog", func(fl validator.FieldLevel) bool {
		_, ok := LookupService(fl.Field().String())
		return ok
	})
	_ = v.RegisterValidation("bookingstatus", func(fl validator.FieldLevel) bool {
		_, err := ParseBookingStatus(fl.Field().String())
		return err == nil
	})

	return &Validator{v: v, phone: rules}
}

func (r PhoneRules) valid(phone string) bool {
	if r.Format == PhoneStrict {
		return len(phone) == r.Digits && digitsPattern.MatchString(phone)
	}
	return freeformPattern.MatchString(phone)
}

// E164 formats phone for providers that require international numbers.
// Unparseable numbers yield "".
func (r PhoneRules) E164(phone string) string {
	num, err := phonenumbers.Parse(phone, r.Region)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return ""
	}
	return phonenumbers.Format(num, phonenumbers.E164)
}

// Build trims and validates in, returning a *FieldError for the first
// offending input.
func (val *Validator) Build(in LeadInput) (LeadRecord, error) {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Company = strings.TrimSpace(in.Company)
	in.InterestedService = strings.TrimSpace(in.InterestedService)

	if err := val.v.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return LeadRecord{}, val.fieldError(verrs[0])
		}
		return LeadRecord{}, fmt.Errorf("leads: validate: %w", err)
	}

	svc, _ := LookupService(in.InterestedService)
	status, _ := ParseBookingStatus(in.BookingStatus)
	return LeadRecord{
		FullName:          in.FullName,
		Email:             in.Email,
		Phone:             in.Phone,
		PhoneE164:         val.phone.E164(in.Phone),
		Company:           in.Company,
		InterestedService: svc.Name,
		BookingStatus:     status,
	}, nil
}

func (val *Validator) fieldError(fe validator.FieldError) *FieldError {
	field := fe.Field()
	required := fe.Tag() == "required"
	var msg string
	switch field {
	case "fullName":
		msg = "Name is required."
	case "email":
		msg = "Please enter a valid email (e.g. alex@gmail.com)."
		if required {
			msg = "Email address is required."
		}
	case "phone":
		switch {
		case required:
			msg = "Phone number is required."
		case val.phone.Format == PhoneStrict:
			msg = fmt.Sprintf("Phone must be exactly %d digits.", val.phone.Digits)
		default:
			msg = "Phone must contain only numbers, +, (), spaces, or dashes."
		}
	case "company":
		msg = "Company name is required."
	case "interestedService":
		msg = "Please select a service."
	case "bookingStatus":
		msg = "Unknown booking status."
	default:
		msg = "Invalid value."
	}
	return &FieldError{Field: field, Message: msg}
}
