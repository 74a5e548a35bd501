package validation

import (
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
)

func TestIsMongoID(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"507f1f77bcf86cd799439011", true},
		{"507F1F77BCF86CD799439011", true},
		{"507f1f77bcf86cd79943901", false},   // too short
		{"507f1f77bcf86cd7994390111", false}, // too long
		{"507f1f77bcf86cd79943901z", false},  // non-hex
		{"", false},
	}
	for _, c := range cases {
		require.Equal(t, c.ok, IsMongoID(c.in), "input %q", c.in)
	}
}

func TestInitRegistersMongoIDTag(t *testing.T) {
	Init()
	v, ok := binding.Validator.Engine().(*validator.Validate)
	require.True(t, ok)

	type payload struct {
		ID string `json:"id" validate:"mongoid"`
	}
	require.NoError(t, v.Struct(payload{ID: "507f1f77bcf86cd799439011"}))
	require.Error(t, v.Struct(payload{ID: "nope"}))
}

func TestToDetailsUsesJSONFieldNames(t *testing.T) {
	Init()
	v, ok := binding.Validator.Engine().(*validator.Validate)
	require.True(t, ok)

	type payload struct {
		Email  string  `json:"email" validate:"required,email"`
		Rating float64 `json:"rating" validate:"gte=0,lte=5"`
	}
	err := v.Struct(payload{Email: "not-an-email", Rating: 7})
	require.Error(t, err)

	details := ToDetails(err)
	require.Equal(t, "must be a valid email", details["email"])
	require.Equal(t, "must be less than or equal to 5", details["rating"])
}
