package orchestrate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sriram-PR/aio-diagnoser/pkg/config"
	"github.com/Sriram-PR/aio-diagnoser/pkg/utils"
)

type mapFetcher map[string]string

func (m mapFetcher) Fetch(_ context.Context, rawURL string) (string, bool) {
	html, ok := m[rawURL]
	return html, ok
}

const clinicPage = `<html lang="ja"><head>
<title>渋谷デンタルクリニック</title>
<meta name="description" content="渋谷駅徒歩3分の歯科医院">
<script type="application/ld+json">{"@type":["Dentist","LocalBusiness"]}</script>
</head><body><article><h1>診療案内</h1><p>一般歯科と小児歯科を行っています。</p></article></body></html>`

func TestInspectURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "example.com/about", want: "https://example.com/about"},
		{in: "  http://example.com  ", want: "http://example.com"},
		{in: "https://example.com/a.html", want: "https://example.com/a.html"},
		{in: "", wantErr: true},
		{in: "https://", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := InspectURL(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, utils.ErrInvalidRequest)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInspect(t *testing.T) {
	fetcher := mapFetcher{"https://clinic.example/info": clinicPage}

	in, err := Inspect(context.Background(), fetcher, nil, "clinic.example/info", config.PreviewConfig{})
	require.NoError(t, err)

	assert.Equal(t, "https://clinic.example/info", in.URL)
	assert.Equal(t, "渋谷デンタルクリニック", in.Page.Title)
	assert.Empty(t, in.Page.TextContent)
	assert.Positive(t, in.Page.WordCount)
	assert.ElementsMatch(t, []string{"Dentist", "LocalBusiness"}, in.SchemaTypes)
	assert.Equal(t, "https://clinic.example/info", in.PageScore.URL)
	require.NotNil(t, in.Preview)
	assert.Equal(t, "article", in.Preview.Selector)
	assert.Contains(t, in.Preview.Markdown, "一般歯科")
}

func TestInspect_Errors(t *testing.T) {
	_, err := Inspect(context.Background(), mapFetcher{}, nil, " ", config.PreviewConfig{})
	assert.ErrorIs(t, err, utils.ErrInvalidRequest)

	_, err = Inspect(context.Background(), mapFetcher{}, nil, "https://gone.example/", config.PreviewConfig{})
	assert.ErrorIs(t, err, utils.ErrFetchFailed)
	assert.Equal(t, "Fetch_Failed", utils.CategorizeError(err))
}
