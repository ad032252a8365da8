package randomuser

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostcodeAcceptsStringsAndNumbers(t *testing.T) {
	tests := []struct {
		raw  string
		want Postcode
	}{
		{`"W1 2AB"`, "W1 2AB"},
		{`90210`, "90210"},
		{`null`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			var loc Location
			require.NoError(t, json.Unmarshal([]byte(`{"postcode": `+tt.raw+`}`), &loc))
			assert.Equal(t, tt.want, loc.Postcode)
		})
	}
}

func TestValidateURL(t *testing.T) {
	u, err := ValidateURL("https://randomuser.me/api/")
	require.NoError(t, err)
	assert.Equal(t, DefaultURL, u)

	_, err = ValidateURL("randomuser.me/api")
	assert.Error(t, err)
	_, err = ValidateURL("https://")
	assert.Error(t, err)
}
