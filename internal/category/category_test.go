package category

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bonkbusiness/table-se-scraper-suite/internal/exclusion"
)

type stubFetcher struct {
	html string
}

func (s stubFetcher) Fetch(ctx context.Context, url string) (string, error) {
	return s.html, nil
}

const menuHTML = `
<html><body>
<nav class="edgtf-main-menu">
  <ul>
    <li><a href="/produkter/bord">Bord</a>
      <ul>
        <li><a href="/produkter/bord/matbord">Matbord</a></li>
        <li><a href="/om-oss">Om oss</a></li>
      </ul>
    </li>
    <li><a href="/produkter/stolar">Stolar</a></li>
    <li><a href="/kontakt">Kontakt</a></li>
  </ul>
</nav>
</body></html>`

func TestWalkBuildsTree(t *testing.T) {
	w := NewWalker("https://www.table.se", stubFetcher{html: menuHTML}, nil)
	tree, err := w.Walk(context.Background())
	require.NoError(t, err)
	require.Len(t, tree, 2)

	assert.Equal(t, "Bord", tree[0].Name)
	assert.Equal(t, "https://www.table.se/produkter/bord", tree[0].URL)
	require.Len(t, tree[0].Subs, 1)
	assert.Equal(t, "Matbord", tree[0].Subs[0].Name)

	assert.Equal(t, "Stolar", tree[1].Name)
}

func TestWalkPrunesExcludedSubtree(t *testing.T) {
	excl := exclusion.New([]string{"https://www.table.se/produkter/bord/matbord"})
	w := NewWalker("https://www.table.se", stubFetcher{html: menuHTML}, excl)
	tree, err := w.Walk(context.Background())
	require.NoError(t, err)
	require.Len(t, tree, 2)
	assert.Empty(t, tree[0].Subs)
}

func TestWalkMissingNavErrors(t *testing.T) {
	w := NewWalker("https://www.table.se", stubFetcher{html: "<html><body>no nav here</body></html>"}, nil)
	_, err := w.Walk(context.Background())
	assert.Error(t, err)
}

func TestFlatten(t *testing.T) {
	tree := []*Node{
		{Name: "A", Subs: []*Node{{Name: "A1"}, {Name: "A2"}}},
		{Name: "B"},
	}
	flat := Flatten(tree)
	require.Len(t, flat, 4)
	assert.Equal(t, "A", flat[0].Name)
	assert.Equal(t, "A1", flat[1].Name)
	assert.Equal(t, "A2", flat[2].Name)
	assert.Equal(t, "B", flat[3].Name)
}
