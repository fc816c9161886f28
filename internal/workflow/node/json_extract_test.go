package node

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractJSONObject(t *testing.T) {
	cases := map[string]struct {
		in   string
		want string
	}{
		"plain array":     {`[{"title":"A"}]`, `[{"title":"A"}]`},
		"leading prose":   {`Voici : [{"title":"A"}] merci`, `[{"title":"A"}]`},
		"code fence":      {"```json\n{\"a\": 1}\n```", `{"a": 1}`},
		"brackets in str": {`{"t": "x ] y"} tail`, `{"t": "x ] y"}`},
		"escaped quote":   {`[{"t": "a \" ] b"}]`, `[{"t": "a \" ] b"}]`},
		"no json":         {"  rien  ", "rien"},
		"unterminated":    {`[{"a":1}`, `[{"a":1}`},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, c.want, ExtractJSONObject(c.in))
		})
	}
}
