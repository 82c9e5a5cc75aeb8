package validation

import (
	"math"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"sweetshop/internal/apperror"
	"sweetshop/internal/model"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

const maxSearchLength = 100

// Limits bounds pagination requests
type Limits struct {
	DefaultLimit int
	MaxLimit     int
}

// fieldErrors accumulates violations while a query is parsed
type fieldErrors []apperror.FieldError

func (f *fieldErrors) add(field, msg string) {
	*f = append(*f, apperror.FieldError{Field: field, Message: msg})
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return apperror.Validation(f)
}

// ParsePageQuery parses page, limit, sort and dir. Sort keys outside allowed
// are rejected; a limit above the maximum is clamped.
func ParsePageQuery(values url.Values, limits Limits, allowed []string) (model.PageQuery, error) {
	var errs fieldErrors
	q := parsePage(values, limits, allowed, &errs)
	return q, errs.err()
}

// ParseSweetQuery parses the catalog filter of GET /sweets
func ParseSweetQuery(values url.Values, limits Limits) (model.SweetQuery, error) {
	var errs fieldErrors
	q := model.SweetQuery{PageQuery: parsePage(values, limits, model.SweetSortKeys, &errs)}

	q.Name = strings.TrimSpace(values.Get("q"))
	if utf8.RuneCountInString(q.Name) > maxSearchLength {
		errs.add("q", "must be at most 100 characters")
	}

	if raw := strings.ToLower(strings.TrimSpace(values.Get("category"))); raw != "" {
		if IsCategory(raw) {
			q.Category = model.Category(raw)
		} else {
			errs.add("category", "must be one of: "+categoryList())
		}
	}

	q.MinPrice = parsePrice(values, "minPrice", &errs)
	q.MaxPrice = parsePrice(values, "maxPrice", &errs)
	if q.MinPrice != nil && q.MaxPrice != nil && *q.MinPrice > *q.MaxPrice {
		errs.add("maxPrice", "must be greater than or equal to minPrice")
	}

	return q, errs.err()
}

// ParseID parses a path id
func ParseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, apperror.Validation([]apperror.FieldError{{Field: "id", Message: "must be a valid id"}})
	}
	return id, nil
}

func parsePage(values url.Values, limits Limits, allowed []string, errs *fieldErrors) model.PageQuery {
	q := model.PageQuery{
		Page:  1,
		Limit: limits.DefaultLimit,
		Sort:  model.SortCreatedAt,
		Dir:   model.SortDesc,
	}

	if raw := strings.TrimSpace(values.Get("page")); raw != "" {
		page, err := strconv.Atoi(raw)
		switch {
		case err != nil:
			errs.add("page", "must be an integer")
		case page < 1:
			errs.add("page", "must be at least 1")
		default:
			q.Page = page
		}
	}

	if raw := strings.TrimSpace(values.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		switch {
		case err != nil:
			errs.add("limit", "must be an integer")
		case limit < 1:
			errs.add("limit", "must be at least 1")
		case limit > limits.MaxLimit:
			q.Limit = limits.MaxLimit
		default:
			q.Limit = limit
		}
	}

	// The row offset must fit in an int
	if q.Limit > 0 && q.Page > math.MaxInt/q.Limit {
		errs.add("page", "is too large")
		q.Page = 1
	}

	if raw := strings.TrimSpace(values.Get("sort")); raw != "" {
		if lo.Contains(allowed, raw) {
			q.Sort = raw
		} else {
			errs.add("sort", "must be one of: "+strings.Join(allowed, ", "))
		}
	}

	if raw := strings.ToLower(strings.TrimSpace(values.Get("dir"))); raw != "" {
		if raw == model.SortAsc || raw == model.SortDesc {
			q.Dir = raw
		} else {
			errs.add("dir", "must be one of: asc, desc")
		}
	}

	return q
}

func parsePrice(values url.Values, field string, errs *fieldErrors) *int64 {
	raw := strings.TrimSpace(values.Get(field))
	if raw == "" {
		return nil
	}
	price, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		errs.add(field, "must be an integer")
		return nil
	}
	if price < 0 {
		errs.add(field, "must be at least 0")
		return nil
	}
	return &price
}
