package handlers

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retail-dashboard/internal/errors"
	"retail-dashboard/internal/models"
)

func TestReportQuery_Check(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	def := models.DateRange{
		From: time.Date(2024, 3, 1, 0, 0, 0, 0, loc),
		To:   time.Date(2024, 3, 31, 0, 0, 0, 0, loc),
	}
	v := newValidator()

	tests := []struct {
		name     string
		query    string
		wantFrom string
		wantTo   string
		wantErr  string
	}{
		{name: "defaults", query: "", wantFrom: "2024-03-01", wantTo: "2024-03-31"},
		{name: "from only", query: "from=2024-03-10", wantFrom: "2024-03-10", wantTo: "2024-03-31"},
		{name: "single day", query: "from=2024-02-29&to=2024-02-29", wantFrom: "2024-02-29", wantTo: "2024-02-29"},
		{name: "impossible date", query: "from=2023-02-29", wantErr: "invalid from"},
		{name: "reversed", query: "from=2024-03-20&to=2024-03-19", wantErr: "from must not be after to"},
		{name: "long search", query: "search=" + strings.Repeat("a", 201), wantErr: "invalid search"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, err := url.ParseQuery(tt.query)
			require.NoError(t, err)

			rng, err := queryFromURL(values).check(v, loc, def)
			if tt.wantErr != "" {
				require.Error(t, err)
				var appErr *errors.AppError
				require.ErrorAs(t, err, &appErr)
				assert.Equal(t, errors.CodeValidation, appErr.Code)
				assert.Contains(t, appErr.Message, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantFrom, rng.From.Format(time.DateOnly))
			assert.Equal(t, tt.wantTo, rng.To.Format(time.DateOnly))
			assert.Equal(t, loc, rng.From.Location())
		})
	}
}

func TestQueryFromURL_SortDirection(t *testing.T) {
	q := queryFromURL(url.Values{})
	assert.True(t, q.Desc, "default revenue sort is descending")
	assert.Equal(t, "revenue", string(q.sortField()))

	q = queryFromURL(url.Values{"sort": {"name"}})
	assert.False(t, q.Desc)

	q = queryFromURL(url.Values{"sort": {"profit"}, "desc": {"true"}})
	assert.True(t, q.Desc)
}

func TestProductTable_LeavesModelUntouched(t *testing.T) {
	vm := &models.ReportViewModel{Products: []models.ProductSalesSummary{
		{ProductID: "p1", ProductName: "Phone", Category: "Electronics", Brand: "Acme", Revenue: decimal.NewFromInt(500)},
		{ProductID: "p2", ProductName: "Cable", Category: "Accessories", Brand: "Zed", Revenue: decimal.NewFromInt(40)},
		{ProductID: "p3", ProductName: "Adapter", Category: "Accessories", Brand: "Zed", Revenue: decimal.NewFromInt(90)},
	}}

	data := productTable(vm, reportQuery{Category: "accessories", Sort: "name"})

	require.Len(t, data.Products, 2)
	assert.Equal(t, "Adapter", data.Products[0].ProductName)
	assert.Equal(t, "Cable", data.Products[1].ProductName)
	assert.Equal(t, 3, data.Total)
	assert.Equal(t, []string{"Accessories", "Electronics"}, data.Categories)
	assert.Equal(t, []string{"Acme", "Zed"}, data.Brands)

	assert.Equal(t, "Phone", vm.Products[0].ProductName)
	assert.Equal(t, "Cable", vm.Products[1].ProductName)
	assert.Equal(t, "Adapter", vm.Products[2].ProductName)
}
