package batch

import (
	"slices"
	"strings"

	"github.com/law-makers/sourcer/internal/pipeline"
	urlutil "github.com/law-makers/sourcer/internal/utils/url"
)

// Group is the work queued for one host
type Group struct {
	Host     string
	Requests []pipeline.Options
}

// GroupByHost buckets requests by host so each host's pages are scheduled
// together. Groups are ordered by host name; requests keep their input order.
// Unparsable URLs share the "default" group and fail validation in the runner.
func GroupByHost(requests []pipeline.Options) []Group {
	index := make(map[string]int)
	var groups []Group

	for _, req := range requests {
		host := urlutil.Host(req.Request.URL)
		if host == "" {
			host = "default"
		}
		i, ok := index[host]
		if !ok {
			i = len(groups)
			index[host] = i
			groups = append(groups, Group{Host: host})
		}
		groups[i].Requests = append(groups[i].Requests, req)
	}

	slices.SortStableFunc(groups, func(a, b Group) int {
		return strings.Compare(a.Host, b.Host)
	})
	return groups
}
