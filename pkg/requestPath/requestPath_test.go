package requestPath

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_GenerateQueryPath(t *testing.T) {
	t.Run("Should return base path unchanged for empty params", func(t *testing.T) {
		assert.Equal(t, "api-keys", GenerateQueryPath("api-keys", nil))
		assert.Equal(t, "api-keys", GenerateQueryPath("api-keys", Params{}))
	})

	t.Run("Should keep parameter order", func(t *testing.T) {
		params := Params{}.Add("b", "2").Add("a", "1").Add("c", "3")
		assert.Equal(t, "orders?b=2&a=1&c=3", GenerateQueryPath("orders", params))
	})

	t.Run("Should encode api key delete path", func(t *testing.T) {
		params := Params{}.Add("apiKey", "0xPUBKEY")
		assert.Equal(t, "api-keys?apiKey=0xPUBKEY", GenerateQueryPath("api-keys", params))
	})

	tests := []struct {
		name   string
		params Params
	}{
		{name: "ampersand", params: Params{{Name: "apiKey", Value: "a&b"}}},
		{name: "equals", params: Params{{Name: "apiKey", Value: "a=b"}}},
		{name: "space", params: Params{{Name: "apiKey", Value: "a b"}}},
		{name: "mixed", params: Params{{Name: "x", Value: "1 & 2 = 3"}, {Name: "y", Value: "plus+sign"}, {Name: "z", Value: "%41"}}},
		{name: "unicode", params: Params{{Name: "memo", Value: "héllo/wörld?"}}},
	}
	for _, tt := range tests {
		t.Run("Should round trip "+tt.name, func(t *testing.T) {
			path := GenerateQueryPath("/base", tt.params)

			u, err := url.Parse(path)
			require.NoError(t, err)
			assert.Equal(t, "/base", u.Path)

			values := u.Query()
			for _, p := range tt.params {
				assert.Equal(t, p.Value, values.Get(p.Name))
			}

			parsed, err := ParseQuery(u.RawQuery)
			require.NoError(t, err)
			assert.Equal(t, tt.params, parsed)
		})
	}
}

func Test_Params(t *testing.T) {
	t.Run("Should return the first value for a name", func(t *testing.T) {
		params := Params{}.Add("apiKey", "k1").Add("apiKey", "k2")
		v, ok := params.Get("apiKey")
		assert.True(t, ok)
		assert.Equal(t, "k1", v)

		_, ok = params.Get("missing")
		assert.False(t, ok)
	})

	t.Run("Should not share storage between params derived from one base", func(t *testing.T) {
		base := make(Params, 0, 4).Add("a", "1")
		first := base.Add("x", "one")
		second := base.Add("y", "two")

		assert.Equal(t, "p?a=1&x=one", GenerateQueryPath("p", first))
		assert.Equal(t, "p?a=1&y=two", GenerateQueryPath("p", second))
		assert.Len(t, base, 1)
	})
}

func Test_Versioned(t *testing.T) {
	assert.Equal(t, "/v3/api-keys", Versioned("api-keys"))
	assert.Equal(t, "/v3/api-keys?apiKey=x", Versioned("/api-keys?apiKey=x"))
}
