package leads

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validInput() LeadInput {
	return LeadInput{
		FullName:          "  Jane Ruiz ",
		Email:             "jane@acme.com",
		Phone:             "(650) 253-0000",
		Company:           "Acme Co",
		InterestedService: "Business Automation",
	}
}

func TestBuild_TrimsAndDefaults(t *testing.T) {
	lead, err := NewValidator(PhoneRules{}).Build(validInput())
	require.NoError(t, err)
	assert.Equal(t, "Jane Ruiz", lead.FullName)
	assert.Equal(t, StatusPending, lead.BookingStatus)
	assert.Equal(t, "+16502530000", lead.PhoneE164)
	assert.Equal(t, "Jane", lead.FirstName())
	assert.Equal(t, "Ruiz", lead.LastName())
}

func TestBuild_ServiceByID(t *testing.T) {
	in := validInput()
	in.InterestedService = "web"
	lead, err := NewValidator(PhoneRules{}).Build(in)
	require.NoError(t, err)
	assert.Equal(t, "Website & Digital Presence", lead.InterestedService)
}

func TestBuild_FieldErrors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*LeadInput)
		rules  PhoneRules
		field  string
		msg    string
	}{
		{"missing name", func(in *LeadInput) { in.FullName = "   " }, PhoneRules{}, "fullName", "Name is required."},
		{"missing email", func(in *LeadInput) { in.Email = "" }, PhoneRules{}, "email", "Email address is required."},
		{"bad email", func(in *LeadInput) { in.Email = "alex@gmail" }, PhoneRules{}, "email", "Please enter a valid email (e.g. alex@gmail.com)."},
		{"letters in phone", func(in *LeadInput) { in.Phone = "555-CALL" }, PhoneRules{}, "phone", "Phone must contain only numbers, +, (), spaces, or dashes."},
		{"strict phone punctuation", func(in *LeadInput) { in.Phone = "917-123-4567" }, PhoneRules{Format: PhoneStrict}, "phone", "Phone must be exactly 10 digits."},
		{"strict phone length", func(in *LeadInput) { in.Phone = "91712345" }, PhoneRules{Format: PhoneStrict, Digits: 10}, "phone", "Phone must be exactly 10 digits."},
		{"missing company", func(in *LeadInput) { in.Company = "" }, PhoneRules{}, "company", "Company name is required."},
		{"unknown service", func(in *LeadInput) { in.InterestedService = "Catering" }, PhoneRules{}, "interestedService", "Please select a service."},
		{"unknown status", func(in *LeadInput) { in.BookingStatus = "cancelled" }, PhoneRules{}, "bookingStatus", "Unknown booking status."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			tc.mutate(&in)
			_, err := NewValidator(tc.rules).Build(in)
			var fe *FieldError
			require.True(t, errors.As(err, &fe), "expected FieldError, got %v", err)
			assert.Equal(t, tc.field, fe.Field)
			assert.Equal(t, tc.msg, fe.Message)
		})
	}
}

func TestBuild_StrictPhoneAccepted(t *testing.T) {
	in := validInput()
	in.Phone = "9171234567"
	lead, err := NewValidator(PhoneRules{Format: PhoneStrict, Digits: 10}).Build(in)
	require.NoError(t, err)
	assert.Equal(t, "9171234567", lead.Phone)
}

func TestParseBookingStatus(t *testing.T) {
	cases := map[string]BookingStatus{
		"":        StatusPending,
		"pending": StatusPending,
		"now":     StatusPending,
		"BOOKED":  StatusBooked,
		" later ": StatusLater,
	}
	for raw, want := range cases {
		got, err := ParseBookingStatus(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got)
	}
	_, err := ParseBookingStatus("maybe")
	assert.ErrorIs(t, err, ErrUnknownBookingStatus)
}

func TestLeadRecord_NameSplitAndNotes(t *testing.T) {
	lead := LeadRecord{FullName: "Cher", InterestedService: "Business Automation", BookingStatus: StatusLater}
	assert.Equal(t, "Cher", lead.FirstName())
	assert.Equal(t, "-", lead.LastName())
	assert.Equal(t, "Interested in: Business Automation\nBooking Status: later", lead.Notes())

	lead = LeadRecord{FullName: "Maria de la Cruz"}
	assert.Equal(t, "de la Cruz", lead.LastName())
}

func TestCatalog_ReturnsCopy(t *testing.T) {
	c := Catalog()
	require.Len(t, c, 5)
	c[0].Name = "changed"
	svc, ok := LookupService("ai")
	require.True(t, ok)
	assert.Equal(t, "Business Automation", svc.Name)
}
