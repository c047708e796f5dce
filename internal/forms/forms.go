// AngelaMos | 2026
// forms.go

// Package forms turns posted browser forms into typed values, each with a
// single message the page can show when it is rejected.
package forms

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/tailorbook/internal/backend"
	"github.com/carterperez-dev/tailorbook/internal/catalog"
)

const ErrSelectService = "Please select a service"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if label := f.Tag.Get("label"); label != "" {
			return label
		}
		return f.Name
	})
	_ = v.RegisterValidation("service", func(fl validator.FieldLevel) bool { //nolint:errcheck // static tag
		return catalog.ValidService(fl.Field().String())
	})
	return v
}

// Error is a rejected form. Its message is safe to show as-is.
type Error struct {
	Message string
}

func (e *Error) Error() string { return e.Message }

func invalid(format string, args ...any) *Error {
	return &Error{Message: fmt.Sprintf(format, args...)}
}

// check validates v and reports the first failing field.
func check(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return invalid("Please check the form and try again.")
	}

	fe := verrs[0]
	label := fe.Field()
	switch fe.Tag() {
	case "required":
		return invalid("%s is required", label)
	case "email":
		return invalid("Please enter a valid email address")
	case "min":
		return invalid("%s must be at least %s characters", label, fe.Param())
	case "gt":
		return invalid("%s must be greater than %s", label, fe.Param())
	case "lt":
		return invalid("%s must be less than %s", label, fe.Param())
	case "oneof":
		return invalid("%s must be one of: %s", label, fe.Param())
	case "datetime":
		return invalid("%s must be a date", label)
	case "service":
		return invalid(ErrSelectService)
	default:
		return invalid("%s is invalid", label)
	}
}

func text(v url.Values, key string) string {
	return strings.TrimSpace(v.Get(key))
}

func optional(v url.Values, key string) *string {
	s := text(v, key)
	if s == "" {
		return nil
	}
	return &s
}

// number is lenient: blank means no value, anything else must parse.
func number(v url.Values, key, label string) (*float64, error) {
	s := text(v, key)
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, invalid("%s must be a number", label)
	}
	return &f, nil
}

type Login struct {
	Email    string `validate:"required,email" label:"Email"`
	Password string `validate:"required" label:"Password"`
}

func ParseLogin(v url.Values) (Login, error) {
	f := Login{Email: text(v, "email"), Password: v.Get("password")}
	return f, check(f)
}

type Register struct {
	Name     string  `validate:"required,max=100" label:"Full name"`
	Email    string  `validate:"required,email" label:"Email"`
	Phone    *string `validate:"omitempty,max=20" label:"Phone number"`
	Password string  `validate:"required,min=6" label:"Password"`
}

func ParseRegister(v url.Values) (Register, error) {
	f := Register{
		Name:     text(v, "name"),
		Email:    text(v, "email"),
		Phone:    optional(v, "phone"),
		Password: v.Get("password"),
	}
	return f, check(f)
}

type Booking struct {
	ServiceType   string  `validate:"service" label:"Service"`
	PreferredDate *string `validate:"omitempty,datetime=2006-01-02" label:"Preferred date"`
	Message       *string `validate:"omitempty,max=2000" label:"Message"`
}

// ParseBooking rejects an empty service before anything else is checked.
func ParseBooking(v url.Values) (Booking, error) {
	f := Booking{
		ServiceType:   text(v, "service_type"),
		PreferredDate: optional(v, "preferred_date"),
		Message:       optional(v, "message"),
	}
	if f.ServiceType == "" {
		return f, invalid(ErrSelectService)
	}
	return f, check(f)
}

// Appointment fills the booking with the customer's contact details.
func (b Booking) Appointment(p *backend.Profile, fallbackEmail string) backend.NewAppointment {
	a := backend.NewAppointment{
		Email:         fallbackEmail,
		ServiceType:   b.ServiceType,
		PreferredDate: b.PreferredDate,
		Message:       b.Message,
	}
	if p != nil {
		a.Name, a.Phone = p.Name, p.Phone
		if p.Email != "" {
			a.Email = p.Email
		}
	}
	if a.Name == "" {
		a.Name = a.Email
	}
	return a
}

type NewOrder struct {
	CustomerEmail string   `validate:"required,email" label:"Customer email"`
	DressType     string   `validate:"required,max=120" label:"Dress type"`
	FabricType    *string  `validate:"omitempty,max=120" label:"Fabric type"`
	Price         *float64 `validate:"omitempty,gte=0" label:"Price"`
	UrgencyLevel  string   `validate:"oneof=Normal Urgent Express" label:"Urgency"`
	DeliveryDate  *string  `validate:"omitempty,datetime=2006-01-02" label:"Delivery date"`
	Notes         *string  `validate:"omitempty,max=2000" label:"Notes"`
}

func ParseNewOrder(v url.Values) (NewOrder, error) {
	price, err := number(v, "price", "Price")
	if err != nil {
		return NewOrder{}, err
	}

	f := NewOrder{
		CustomerEmail: strings.ToLower(text(v, "customer_email")),
		DressType:     text(v, "dress_type"),
		FabricType:    optional(v, "fabric_type"),
		Price:         price,
		UrgencyLevel:  text(v, "urgency_level"),
		DeliveryDate:  optional(v, "delivery_date"),
		Notes:         optional(v, "notes"),
	}
	if f.UrgencyLevel == "" {
		f.UrgencyLevel = catalog.UrgencyNormal
	}
	return f, check(f)
}

func (f NewOrder) Payload() backend.NewOrder {
	return backend.NewOrder{
		CustomerEmail: f.CustomerEmail,
		DressType:     f.DressType,
		FabricType:    f.FabricType,
		Price:         f.Price,
		UrgencyLevel:  f.UrgencyLevel,
		DeliveryDate:  f.DeliveryDate,
		Notes:         f.Notes,
	}
}

type Measurements struct {
	Bust         *float64 `validate:"omitempty,gt=0,lt=200" label:"Bust"`
	Waist        *float64 `validate:"omitempty,gt=0,lt=200" label:"Waist"`
	Hip          *float64 `validate:"omitempty,gt=0,lt=200" label:"Hip"`
	Shoulder     *float64 `validate:"omitempty,gt=0,lt=100" label:"Shoulder"`
	SleeveLength *float64 `validate:"omitempty,gt=0,lt=100" label:"Sleeve length"`
}

func ParseMeasurements(v url.Values) (Measurements, error) {
	var f Measurements
	fields := []struct {
		key, label string
		dst        **float64
	}{
		{"bust", "Bust", &f.Bust},
		{"waist", "Waist", &f.Waist},
		{"hip", "Hip", &f.Hip},
		{"shoulder", "Shoulder", &f.Shoulder},
		{"sleeve_length", "Sleeve length", &f.SleeveLength},
	}
	for _, fd := range fields {
		n, err := number(v, fd.key, fd.label)
		if err != nil {
			return f, err
		}
		*fd.dst = n
	}
	return f, check(f)
}

func (f Measurements) Payload() backend.Measurement {
	return backend.Measurement{
		Bust:         f.Bust,
		Waist:        f.Waist,
		Hip:          f.Hip,
		Shoulder:     f.Shoulder,
		SleeveLength: f.SleeveLength,
	}
}

type Contact struct {
	Name    string  `validate:"required,max=100" label:"Name"`
	Email   string  `validate:"required,email" label:"Email"`
	Phone   *string `validate:"omitempty,max=20" label:"Phone"`
	Message string  `validate:"required,max=5000" label:"Message"`
}

func ParseContact(v url.Values) (Contact, error) {
	f := Contact{
		Name:    text(v, "name"),
		Email:   text(v, "email"),
		Phone:   optional(v, "phone"),
		Message: text(v, "message"),
	}
	return f, check(f)
}

func (f Contact) Payload() backend.NewContactMessage {
	return backend.NewContactMessage{Name: f.Name, Email: f.Email, Phone: f.Phone, Message: f.Message}
}

// Guard is one form's submitting flag plus its error slot.
type Guard struct {
	mu         sync.Mutex
	submitting bool
	message    string
}

// TryBegin marks the form as submitting. It returns false when a
// submission is already in flight.
func (g *Guard) TryBegin() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.submitting {
		return false
	}
	g.submitting = true
	g.message = ""
	return true
}

// End clears the flag and stores err's message verbatim, or clears it.
func (g *Guard) End(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.submitting = false
	if err != nil {
		g.message = err.Error()
	} else {
		g.message = ""
	}
}

func (g *Guard) Submitting() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.submitting
}

// Message returns and clears the error slot.
func (g *Guard) Message() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	m := g.message
	g.message = ""
	return m
}
