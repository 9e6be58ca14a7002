package handlers

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/starfederation/datastar-go/datastar"

	"retail-dashboard/internal/errors"
	"retail-dashboard/internal/models"
	"retail-dashboard/internal/services"
	"retail-dashboard/internal/ui/templates"
)

// reportQuery is the report's input, read from the URL for JSON and export
// routes and from Datastar signals for SSE routes.
type reportQuery struct {
	From     string `json:"from" validate:"omitempty,datetime=2006-01-02"`
	To       string `json:"to" validate:"omitempty,datetime=2006-01-02"`
	Tab      string `json:"tab" validate:"omitempty,oneof=daily weekly monthly yearly products"`
	Format   string `json:"format" validate:"omitempty,oneof=xlsx csv pdf html"`
	Category string `json:"category" validate:"omitempty,max=100"`
	Brand    string `json:"brand" validate:"omitempty,max=100"`
	Search   string `json:"search" validate:"omitempty,max=200"`
	Sort     string `json:"sort" validate:"omitempty,oneof=name quantity revenue profit last_sold"`
	Desc     bool   `json:"desc"`
}

func newValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

func queryFromURL(v url.Values) reportQuery {
	q := reportQuery{
		From:     v.Get("from"),
		To:       v.Get("to"),
		Tab:      v.Get("tab"),
		Format:   v.Get("format"),
		Category: v.Get("category"),
		Brand:    v.Get("brand"),
		Search:   v.Get("search"),
		Sort:     v.Get("sort"),
	}
	if q.Sort == "" {
		q.Desc = true
	} else {
		q.Desc, _ = strconv.ParseBool(v.Get("desc"))
	}
	return q
}

func queryFromSignals(r *http.Request) (reportQuery, error) {
	var q reportQuery
	if err := datastar.ReadSignals(r, &q); err != nil {
		return q, errors.BadRequestWrap(err, "Invalid signals")
	}
	return q, nil
}

// check validates q and resolves its date range, defaulting missing ends to
// def. Both ends are read as local dates in loc.
func (q reportQuery) check(v *validator.Validate, loc *time.Location, def models.DateRange) (models.DateRange, error) {
	if err := v.Struct(q); err != nil {
		return models.DateRange{}, errors.ValidationWrap(err, validationMessage(err))
	}

	rng := def
	if q.From != "" {
		from, err := time.ParseInLocation(time.DateOnly, q.From, loc)
		if err != nil {
			return models.DateRange{}, errors.ValidationWrap(err, "invalid from date")
		}
		rng.From = from
	}
	if q.To != "" {
		to, err := time.ParseInLocation(time.DateOnly, q.To, loc)
		if err != nil {
			return models.DateRange{}, errors.ValidationWrap(err, "invalid to date")
		}
		rng.To = to
	}
	if rng.From.After(rng.To) {
		return models.DateRange{}, errors.Validation("from must not be after to")
	}
	return rng, nil
}

func (q reportQuery) filter() services.ProductFilter {
	return services.ProductFilter{Category: q.Category, Brand: q.Brand, Search: q.Search}
}

func (q reportQuery) sortField() services.SortField {
	if q.Sort == "" {
		return services.SortByRevenue
	}
	return services.SortField(q.Sort)
}

func (q reportQuery) signals(rng models.DateRange) templates.ReportSignals {
	tab := q.Tab
	if tab == "" {
		tab = "daily"
	}
	return templates.ReportSignals{
		From:     rng.From.Format(time.DateOnly),
		To:       rng.To.Format(time.DateOnly),
		Tab:      tab,
		Category: q.Category,
		Brand:    q.Brand,
		Search:   q.Search,
		Sort:     string(q.sortField()),
		Desc:     q.Desc || q.Sort == "",
	}
}

// productTable filters and sorts the model's products without touching the
// model itself.
func productTable(vm *models.ReportViewModel, q reportQuery) templates.ProductsData {
	products := services.FilterProducts(vm.Products, q.filter())
	services.SortProducts(products, q.sortField(), q.Desc)
	categories, brands := services.Facets(vm.Products)
	return templates.ProductsData{
		Products:   products,
		Categories: categories,
		Brands:     brands,
		Total:      len(vm.Products),
	}
}

func validationMessage(err error) string {
	var ve validator.ValidationErrors
	if !stderrors.As(err, &ve) {
		return "invalid request"
	}
	fields := make([]string, 0, len(ve))
	for _, fe := range ve {
		fields = append(fields, strings.ToLower(fe.Field()))
	}
	return fmt.Sprintf("invalid %s", strings.Join(fields, ", "))
}
