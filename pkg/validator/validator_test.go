package validator

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type priceRequest struct {
	Name     string `json:"name" validate:"required,max=20"`
	Price    string `json:"price" validate:"required,money"`
	Category string `json:"category" validate:"required,oneof=tees hoodies bottoms"`
	Quantity int    `json:"quantity" validate:"gte=0"`
}

func TestValidate_Valid(t *testing.T) {
	req := priceRequest{Name: "Box Tee", Price: "29.99", Category: "tees", Quantity: 1}
	assert.NoError(t, Validate(req))
}

func TestValidate_Money(t *testing.T) {
	tests := []struct {
		price string
		ok    bool
	}{
		{"0", true},
		{"45", true},
		{"45.5", true},
		{"45.50", true},
		{"45.500", true},
		{"45.505", false},
		{"-1.00", false},
		{"abc", false},
	}

	for _, tt := range tests {
		t.Run(tt.price, func(t *testing.T) {
			err := Validate(priceRequest{Name: "x", Price: tt.price, Category: "tees"})
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			var valErr *ValidationError
			require.True(t, errors.As(err, &valErr))
			assert.Contains(t, valErr.Fields()["Price"], "2 decimal places")
		})
	}
}

func TestValidate_FieldMessages(t *testing.T) {
	err := Validate(priceRequest{Price: "1.00", Category: "hats", Quantity: -1})

	var valErr *ValidationError
	require.True(t, errors.As(err, &valErr))
	fields := valErr.Fields()
	assert.Equal(t, "is required", fields["Name"])
	assert.Equal(t, "must be one of: tees hoodies bottoms", fields["Category"])
	assert.Equal(t, "must be greater than or equal to 0", fields["Quantity"])
	assert.Contains(t, valErr.Error(), "field 'Name' is required")
}

func TestDecodeAndValidate(t *testing.T) {
	body := `{"name":"Hoodie","price":"65.00","category":"hoodies","quantity":2}`
	r := httptest.NewRequest("POST", "/", strings.NewReader(body))

	var dst priceRequest
	require.NoError(t, DecodeAndValidate(r, &dst))
	assert.Equal(t, "65.00", dst.Price)

	bad := httptest.NewRequest("POST", "/", strings.NewReader("{"))
	err := DecodeAndValidate(bad, &dst)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode request body")
}
