// Copyright 2026 The Wassail Authors
// SPDX-License-Identifier: Apache-2.0

package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/samcmill/wassail-sub000/lib/result"
)

// Metric names written by [WritePrometheus].
const (
	IssueMetric     = "wassail_result_issue"
	PriorityMetric  = "wassail_result_priority"
	TimestampMetric = "wassail_result_timestamp_seconds"
)

// resultLabels identify a node. The node label is the dotted child
// index path from the root ("0" is the root, "0.2.1" the second child
// of the third child), which keeps nodes with equal briefs apart.
var resultLabels = []string{"node", "brief", "system"}

// Gatherer returns a registry with one sample of each metric per node
// of the tree rooted at root.
func Gatherer(root *result.Result) (*prometheus.Registry, error) {
	issue := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: IssueMetric,
		Help: "Issue of a check result: 0 no, 1 maybe, 2 yes",
	}, resultLabels)
	priority := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: PriorityMetric,
		Help: "Priority of a check result, RFC 5424 severity from 0 debug to 7 emergency",
	}, resultLabels)
	timestamp := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: TimestampMetric,
		Help: "Time the checked data was collected, seconds since the epoch",
	}, resultLabels)

	registry := prometheus.NewRegistry()
	for _, collector := range []prometheus.Collector{issue, priority, timestamp} {
		if err := registry.Register(collector); err != nil {
			return nil, fmt.Errorf("registering result gauges: %w", err)
		}
	}

	var walk func(node *result.Result, path string)
	walk = func(node *result.Result, path string) {
		labels := prometheus.Labels{
			"node":   path,
			"brief":  node.Brief,
			"system": strings.Join(node.SystemID, ","),
		}
		issue.With(labels).Set(float64(node.Issue))
		priority.With(labels).Set(float64(node.Priority))
		timestamp.With(labels).Set(float64(node.Timestamp.Unix()))
		for index, child := range node.Children() {
			walk(child, path+"."+strconv.Itoa(index))
		}
	}
	walk(root, "0")
	return registry, nil
}

// WritePrometheus writes the gauges for the tree rooted at root to
// path in the text exposition format. The file is replaced atomically
// so a collector never reads a partial file.
func WritePrometheus(path string, root *result.Result) error {
	registry, err := Gatherer(root)
	if err != nil {
		return err
	}
	if err := prometheus.WriteToTextfile(path, registry); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
