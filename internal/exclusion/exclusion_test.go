package exclusion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsExcluded(t *testing.T) {
	p := New([]string{
		"https://www.table.se/produkter/container/",
		"https://www.table.se/produkter/teknik/",
	})

	assert.True(t, p.IsExcluded("https://www.table.se/produkter/container/lada-123"))
	assert.False(t, p.IsExcluded("https://www.table.se/produkter/mobler/bord-123"))
	assert.False(t, p.IsExcluded(""))
}

func TestIsExcludedCaseSensitive(t *testing.T) {
	p := New([]string{"https://www.table.se/produkter/Container/"})
	assert.False(t, p.IsExcluded("https://www.table.se/produkter/container/lada-123"))
}

func TestIsExcludedMonotone(t *testing.T) {
	// Adding a prefix never increases the set of URLs that pass through.
	base := New(nil)
	grown := New([]string{"https://www.table.se/produkter/teknik/"})

	urls := []string{
		"https://www.table.se/produkter/teknik/lampa-1",
		"https://www.table.se/produkter/mobler/bord-1",
	}
	for _, u := range urls {
		if base.IsExcluded(u) {
			require.True(t, grown.IsExcluded(u))
		}
	}
}

func TestNilPolicy(t *testing.T) {
	var p *Policy
	assert.False(t, p.IsExcluded("https://www.table.se/anything"))
}
