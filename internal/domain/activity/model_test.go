package activity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractItemRefs(t *testing.T) {
	cases := []struct {
		name string
		text string
		want []string
	}{
		{"single ref", "deployed the fix for ABC-12 just now", []string{"ABC-12"}},
		{"multiple refs", "ABC-12 blocks DATA-89", []string{"ABC-12", "DATA-89"}},
		{"duplicate refs deduped", "ABC-1 and again ABC-1", []string{"ABC-1"}},
		{"no refs", "lunch anyone?", nil},
		{"lowercase ignored", "abc-12 is not a ref", nil},
		{"embedded word ignored", "weirdFOO-12token", nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, ExtractItemRefs(tc.text))
		})
	}
}
