package orchestrator

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bonkbusiness/table-se-scraper-suite/internal/category"
	"github.com/bonkbusiness/table-se-scraper-suite/internal/collector"
	"github.com/bonkbusiness/table-se-scraper-suite/internal/product"
)

type stubFetcher map[string]string

func (s stubFetcher) Fetch(ctx context.Context, url string) (string, error) {
	html, ok := s[url]
	if !ok {
		return "", assertNotFoundErr(url)
	}
	return html, nil
}

type notFoundErr string

func (e notFoundErr) Error() string { return "not found: " + string(e) }

func assertNotFoundErr(url string) error { return notFoundErr(url) }

const categoryPage = `<html><body>
<a href="/produkter/bord/alfa">Alfa</a>
<a href="/produkter/bord/beta">Beta</a>
</body></html>`

func productPage(name, sku string) string {
	return `<html><body>
<h1 itemprop="name">` + name + `</h1>
<span itemprop="sku">` + sku + `</span>
<span itemprop="price">100,00 kr</span>
</body></html>`
}

func TestRunEndToEnd(t *testing.T) {
	catURL := "https://www.table.se/produkter/bord"
	alfaURL := "https://www.table.se/produkter/bord/alfa"
	betaURL := "https://www.table.se/produkter/bord/beta"

	fetcher := stubFetcher{
		catURL:  categoryPage,
		alfaURL: productPage("Alfa", "1"),
		betaURL: productPage("Beta", "2"),
	}

	tree := []*category.Node{{Name: "Bord", URL: catURL, Depth: 0}}
	c := collector.New(fetcher, nil)
	e := product.New(fetcher, nil, nil, nil)

	o := New(Config{MaxWorkers: 2}, c, e)
	records, err := o.Run(context.Background(), tree)
	require.NoError(t, err)
	require.Len(t, records, 2)

	names := map[string]bool{}
	for _, r := range records {
		names[r.Name] = true
	}
	assert.True(t, names["Alfa"])
	assert.True(t, names["Beta"])
}

func TestRunDedupsBySKUAndURL(t *testing.T) {
	catURL := "https://www.table.se/produkter/bord"
	alfaURL := "https://www.table.se/produkter/bord/alfa"

	fetcher := stubFetcher{
		catURL:  `<html><body><a href="/produkter/bord/alfa">Alfa</a></body></html>`,
		alfaURL: productPage("Alfa", "1"),
	}

	tree := []*category.Node{{Name: "Bord", URL: catURL, Depth: 0}}
	c := collector.New(fetcher, nil)
	e := product.New(fetcher, nil, nil, nil)

	o := New(Config{MaxWorkers: 4}, c, e)
	urls := []collector.ProductURL{{URL: alfaURL}, {URL: alfaURL}}
	records, err := o.RunStageB(context.Background(), tree, urls)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestRunStageBCallsIncrementalSinkWithGrowingSnapshot(t *testing.T) {
	catURL := "https://www.table.se/produkter/bord"
	alfaURL := "https://www.table.se/produkter/bord/alfa"
	betaURL := "https://www.table.se/produkter/bord/beta"

	fetcher := stubFetcher{
		alfaURL: productPage("Alfa", "1"),
		betaURL: productPage("Beta", "2"),
	}

	tree := []*category.Node{{Name: "Bord", URL: catURL, Depth: 0}}
	c := collector.New(fetcher, nil)
	e := product.New(fetcher, nil, nil, nil)

	var mu sync.Mutex
	var maxLen int
	sink := func(records []*product.Record) error {
		mu.Lock()
		defer mu.Unlock()
		if len(records) > maxLen {
			maxLen = len(records)
		}
		return nil
	}

	o := New(Config{MaxWorkers: 1, IncrementalSink: sink}, c, e)
	urls := []collector.ProductURL{{URL: alfaURL}, {URL: betaURL}}
	records, err := o.RunStageB(context.Background(), tree, urls)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 2, maxLen)
}

func TestNewAssignsDistinctRunIDs(t *testing.T) {
	c := collector.New(stubFetcher{}, nil)
	e := product.New(stubFetcher{}, nil, nil, nil)
	o1 := New(Config{}, c, e)
	o2 := New(Config{}, c, e)
	assert.NotEmpty(t, o1.RunID())
	assert.NotEmpty(t, o2.RunID())
	assert.NotEqual(t, o1.RunID(), o2.RunID())
}

func TestRunStageAFailureDoesNotAbortStage(t *testing.T) {
	goodURL := "https://www.table.se/produkter/stolar"
	badURL := "https://www.table.se/produkter/bord"

	fetcher := stubFetcher{
		goodURL: categoryPage,
	}

	tree := []*category.Node{
		{Name: "Bord", URL: badURL, Depth: 0},
		{Name: "Stolar", URL: goodURL, Depth: 0},
	}
	c := collector.New(fetcher, nil)
	e := product.New(fetcher, nil, nil, nil)

	o := New(Config{MaxWorkers: 2}, c, e)
	urls, err := o.RunStageA(context.Background(), tree)
	require.NoError(t, err)
	assert.Len(t, urls, 2)
}
