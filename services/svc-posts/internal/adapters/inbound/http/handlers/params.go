package handlers

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/architeacher/posts/services/svc-posts/internal/domain/model"
)

const (
	defaultPageSize = 20
	maxPageSize     = 2000

	paramPage  = "page"
	paramSize  = "size"
	paramSort  = "sort"
	paramQuery = "query"
)

var errInvalidPaging = errors.New("invalid paging")

// criteriaParams flattens the query string into filter parameters. Repeated
// "in" parameters are joined into a single list.
func criteriaParams(values url.Values) map[string]string {
	params := make(map[string]string, len(values))

	for key, vals := range values {
		switch key {
		case paramPage, paramSize, paramSort, paramQuery:
			continue
		}

		if len(vals) == 0 {
			continue
		}

		if strings.HasSuffix(key, ".in") {
			params[key] = strings.Join(vals, ",")

			continue
		}

		params[key] = vals[len(vals)-1]
	}

	return params
}

func parsePageable(values url.Values) (model.Pageable, error) {
	pageable := model.Pageable{Size: defaultPageSize}

	if raw := values.Get(paramPage); raw != "" {
		page, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return model.Pageable{}, fmt.Errorf("%w: page %q", errInvalidPaging, raw)
		}

		pageable.Page = uint(page)
	}

	if raw := values.Get(paramSize); raw != "" {
		size, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || size < 1 || size > maxPageSize {
			return model.Pageable{}, fmt.Errorf("%w: size must be between 1 and %d", errInvalidPaging, maxPageSize)
		}

		pageable.Size = uint(size)
	}

	for _, raw := range values[paramSort] {
		sort, err := model.ParseSortField(raw)
		if err != nil {
			return model.Pageable{}, err
		}

		pageable.Sort = append(pageable.Sort, sort)
	}

	return pageable, nil
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: id %q", model.ErrInvalidPost, raw)
	}

	return id, nil
}
