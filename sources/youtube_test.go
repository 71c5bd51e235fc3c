package sources

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractYouTubeID(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42s", "dQw4w9WgXcQ"},
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://youtu.be/dQw4w9WgXcQ?si=share", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/v/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"dQw4w9WgXcQ", "dQw4w9WgXcQ"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ExtractYouTubeID(tc.input), "input %q", tc.input)
	}
}
