package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeEndpointName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Trailing period stripped",
			input:    "회사.",
			expected: "회사",
		},
		{
			name:     "Dotted parenthetical keeps the location part",
			input:    "정문(야외.1번플랫폼)",
			expected: "정문(야외)",
		},
		{
			name:     "Dotted parenthetical with two-digit platform",
			input:    "회사(타워.22번플랫폼)",
			expected: "회사(타워)",
		},
		{
			name:     "Multi-platform parenthetical dropped",
			input:    "터미널(31번/32번플랫폼)",
			expected: "터미널",
		},
		{
			name:     "Misspelled platform token dropped",
			input:    "터미널(41번플래폼)",
			expected: "터미널",
		},
		{
			name:     "Adjacent-platform annotation dropped",
			input:    "환승장(27옆플랫폼)",
			expected: "환승장",
		},
		{
			name:     "Lettered platform dropped",
			input:    "대합실(A플랫폼)",
			expected: "대합실",
		},
		{
			name:     "Home-number token removed mid-string",
			input:    "회사7번홈(정문)",
			expected: "회사(정문)",
		},
		{
			name:     "Trailing bare number dropped",
			input:    "P2 야외승강장(19)",
			expected: "P2 야외승강장",
		},
		{
			name:     "Numbered stop marker dropped",
			input:    "DSR동 전면도로(1번정류장)",
			expected: "DSR동 전면도로",
		},
		{
			name:     "Bay annotations with the same base merge",
			input:    "A동(1번플랫폼)",
			expected: "A동",
		},
		{
			name:     "Misspelled bay with the same base merges too",
			input:    "A동(2번플래폼)",
			expected: "A동",
		},
		{
			name:     "Whitespace collapsed around parentheses",
			input:    "A동  ( 출입구 )",
			expected: "A동(출입구)",
		},
		{
			name:     "Plain name unchanged",
			input:    "강남역",
			expected: "강남역",
		},
		{
			name:     "Leading and trailing whitespace trimmed",
			input:    "  강남역  ",
			expected: "강남역",
		},
		{
			name:     "Empty input",
			input:    "",
			expected: "",
		},
		{
			name:     "Annotation-only name normalizes to empty",
			input:    "1번홈",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeEndpointName(tt.input))
		})
	}
}

func TestNormalizeEndpointNameIsIdempotent(t *testing.T) {
	inputs := []string{
		"정문(야외.1번플랫폼)",
		"회사7번홈(정문)",
		"P2 야외승강장(19)",
		"강남역",
	}
	for _, input := range inputs {
		once := NormalizeEndpointName(input)
		assert.Equal(t, once, NormalizeEndpointName(once), "input %q", input)
	}
}
