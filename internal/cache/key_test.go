package cache

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveKeyDeterministic(t *testing.T) {
	url := "https://video.twimg.com/ext_tw_video/123/pu/vid/720x1280/abc.mp4?tag=12"

	assert.Equal(t, DeriveKey(url), DeriveKey(url))
	assert.Len(t, DeriveKey(url), 64)
}

func TestDeriveKeyDistinctURLs(t *testing.T) {
	seen := make(map[string]string)

	for i := 0; i < 10000; i++ {
		url := fmt.Sprintf("https://pbs.twimg.com/media/img_%d.jpg", i)
		key := DeriveKey(url)

		if prev, ok := seen[key]; ok {
			t.Fatalf("collision between %s and %s", prev, url)
		}

		seen[key] = url
	}
}

func TestDeriveKeySensitiveToQuery(t *testing.T) {
	assert.NotEqual(t,
		DeriveKey("https://example.com/a.jpg?size=small"),
		DeriveKey("https://example.com/a.jpg?size=large"),
	)
}
