package utils

import (
	"net/url"
	"strconv"
)

// ToursCachePrefix covers every cached tour read model.
const ToursCachePrefix = "tours:"

// BuildToursListCacheKey is stable across parameter order: url.Values.Encode
// sorts by key.
func BuildToursListCacheKey(q url.Values) string {
	return ToursCachePrefix + "list:v1:" + q.Encode()
}

func BuildTourCacheKey(id string) string {
	return ToursCachePrefix + "item:v1:" + id
}

func BuildTourStatsCacheKey() string {
	return ToursCachePrefix + "stats:v1"
}

func BuildMonthlyPlanCacheKey(year int) string {
	return ToursCachePrefix + "plan:v1:" + strconv.Itoa(year)
}
