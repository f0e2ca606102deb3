package http

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJoinURL(t *testing.T) {
	bases := []string{"https://api.example.com", "https://api.example.com/", "https://api.example.com//", "http://192.168.1.10:3000/v1"}
	paths := []string{"rides", "/rides", "//rides", "rides/1/"}

	for _, base := range bases {
		for _, path := range paths {
			got := JoinURL(base, path)
			trimmedBase := strings.TrimRight(base, "/")
			assert.True(t, strings.HasPrefix(got, trimmedBase+"/"), got)
			rest := strings.TrimPrefix(got, trimmedBase)
			assert.False(t, strings.HasPrefix(rest, "//"), "double separator in %q", got)
			assert.Equal(t, strings.TrimLeft(path, "/"), strings.TrimPrefix(rest, "/"))
		}
	}

	assert.Equal(t, "https://api.example.com/rides", JoinURL("https://api.example.com/", "/rides"))
}

func TestEndpointValidate(t *testing.T) {
	tests := []struct {
		name    string
		ep      Endpoint
		wantErr string
	}{
		{name: "minimal", ep: Endpoint{Path: "/me"}},
		{name: "lowercase method", ep: Endpoint{Path: "/me", Method: "patch"}},
		{name: "empty path", ep: Endpoint{}, wantErr: "path cannot be empty"},
		{name: "blank path", ep: Endpoint{Path: " \t"}, wantErr: "path cannot be empty"},
		{name: "unknown method", ep: Endpoint{Path: "/me", Method: "HEAD"}, wantErr: "unsupported method HEAD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ep.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.True(t, IsErrorType(err, ValidationError))
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

type ridePatch struct {
	Pickup string `json:"pickup,omitempty" validate:"required"`
	Seats  int    `json:"seats,omitempty" validate:"ridekit_seats"`
}

func TestEndpointValidateIgnoresPayloadTags(t *testing.T) {
	ep := Endpoint{
		Path:    "/rides/1",
		Method:  "PATCH",
		Payload: ridePatch{Seats: 2},
		Headers: map[string]string{"X-Trace": ""},
	}

	assert.NotPanics(t, func() {
		assert.NoError(t, ep.Validate())
	})
}

func TestMethodOrDefault(t *testing.T) {
	assert.Equal(t, "GET", Endpoint{}.MethodOrDefault())
	assert.Equal(t, "DELETE", Endpoint{Method: "delete"}.MethodOrDefault())
}
