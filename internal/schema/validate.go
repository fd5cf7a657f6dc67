package schema

import (
	"fmt"
	"math"
	"strings"
)

// RawRequest is the untrusted request payload before validation. Pointer
// fields distinguish absent values from zero values.
type RawRequest struct {
	Description *string  `json:"description"`
	Points      *float64 `json:"points"`
	Price       *float64 `json:"price"`
	Variety     *string  `json:"variety"`
}

// Request is a validated prediction request. Price stays a pointer because a
// missing price is a legal state imputed downstream, not an error and not zero.
type Request struct {
	Description string
	Points      int
	Price       *float64
	Variety     string
}

// Limits bounds the accepted field values.
type Limits struct {
	MaxDescription int
	MinPoints      int
	MaxPoints      int
	MaxPrice       float64
}

// DefaultLimits mirrors the ranges the model was trained against.
func DefaultLimits() Limits {
	return Limits{
		MaxDescription: 2000,
		MinPoints:      50,
		MaxPoints:      100,
		MaxPrice:       10000,
	}
}

func (l Limits) normalized() Limits {
	if l.MaxDescription <= 0 {
		l.MaxDescription = 2000
	}
	if l.MaxPoints <= l.MinPoints {
		l.MinPoints = 50
		l.MaxPoints = 100
	}
	if l.MaxPrice <= 0 {
		l.MaxPrice = 10000
	}
	return l
}

// Reason distinguishes an absent field from a present-but-unusable one.
type Reason string

const (
	ReasonMissing Reason = "missing"
	ReasonInvalid Reason = "invalid"
)

// FieldError reports which field failed validation and why.
type FieldError struct {
	Field   string
	Reason  Reason
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func missing(field, message string) *FieldError {
	return &FieldError{Field: field, Reason: ReasonMissing, Message: message}
}

func invalid(field, message string) *FieldError {
	return &FieldError{Field: field, Reason: ReasonInvalid, Message: message}
}

// Validate checks the raw payload against the limits and produces a request
// ready for encoding. It is a pure function: no side effects, first failing
// field wins.
func Validate(raw RawRequest, limits Limits) (Request, error) {
	limits = limits.normalized()

	if raw.Description == nil || strings.TrimSpace(*raw.Description) == "" {
		return Request{}, missing("description", "description is required")
	}
	description := strings.TrimSpace(*raw.Description)
	if len(description) > limits.MaxDescription {
		return Request{}, invalid("description", fmt.Sprintf("description exceeds %d characters", limits.MaxDescription))
	}

	if raw.Points == nil {
		return Request{}, missing("points", "points is required")
	}
	points := *raw.Points
	if math.IsNaN(points) || math.IsInf(points, 0) || points != math.Trunc(points) {
		return Request{}, invalid("points", "points must be an integer")
	}
	if points < float64(limits.MinPoints) || points > float64(limits.MaxPoints) {
		return Request{}, invalid("points", fmt.Sprintf("points must be between %d and %d", limits.MinPoints, limits.MaxPoints))
	}

	var price *float64
	if raw.Price != nil {
		value := *raw.Price
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return Request{}, invalid("price", "price must be a finite number")
		}
		if value < 0 {
			return Request{}, invalid("price", "price cannot be negative")
		}
		if value > limits.MaxPrice {
			return Request{}, invalid("price", fmt.Sprintf("price exceeds %.0f", limits.MaxPrice))
		}
		price = &value
	}

	if raw.Variety == nil || strings.TrimSpace(*raw.Variety) == "" {
		return Request{}, missing("variety", "variety is required")
	}

	return Request{
		Description: description,
		Points:      int(points),
		Price:       price,
		Variety:     strings.TrimSpace(*raw.Variety),
	}, nil
}
