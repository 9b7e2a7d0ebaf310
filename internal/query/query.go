// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package query builds the boolean term queries sent to the NCBI E-utilities
// endpoints. Device and indicator vocabularies are combined into
// ("d1" OR "d2") AND ("i1" OR "i2") expressions, partitioned so every
// expression stays strictly under the configured length budget, and
// optionally restricted to a publication-date range.
package query

import (
	"errors"
	"fmt"
	"strings"
)

const (
	orSeparator  = " OR "
	andSeparator = " AND "
)

// ErrLengthBudget reports a length budget too small to hold even the longest
// device term combined with the longest indicator term.
var ErrLengthBudget = errors.New("maximum query length cannot fit the longest device and indicator pair")

// ErrYearOrder reports a publication-date range whose start year is after
// its end year.
var ErrYearOrder = errors.New("start year is after end year")

// Combine renders one boolean query from a device batch and an indicator
// batch. Every term is double-quoted, terms within a batch are joined with
// OR, and the two parenthesized groups are joined with AND.
func Combine(devices, indicators []string) string {
	return "(" + quoteJoin(devices) + ")" + andSeparator + "(" + quoteJoin(indicators) + ")"
}

func quoteJoin(terms []string) string {
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = `"` + t + `"`
	}
	return strings.Join(quoted, orSeparator)
}

func longest(terms []string) int {
	n := 0
	for _, t := range terms {
		if len(t) > n {
			n = len(t)
		}
	}
	return n
}

// batchSize returns the largest number of terms a batch may hold on each
// side so that the worst-case combined query stays strictly below maxLen.
//
// With x terms per side, a query built from the longest device term
// (length d) and the longest indicator term (length i) repeated x times
// measures
//
//	x*(d+i+12) + 1
//
// characters: each term contributes two quotes plus an OR separator, the two
// groups contribute parentheses and the AND separator, minus the separators
// the last term of each group does not have. Solving for x keeps the bound
// exact without rendering candidate queries to measure them.
func batchSize(devices, indicators []string, maxLen int) (int, error) {
	perPair := longest(devices) + longest(indicators) + 4 + 2*len(orSeparator)
	constant := 4 + len(andSeparator) - 2*len(orSeparator)

	x := (maxLen - constant) / perPair
	if x > 0 && x*perPair+constant == maxLen {
		// The budget is an exclusive bound.
		x--
	}
	if x < 1 {
		return 0, fmt.Errorf("%w: budget %d, a single pair needs %d",
			ErrLengthBudget, maxLen, perPair+constant+1)
	}
	return x, nil
}

// Partition splits the device and indicator term lists into batches sized by
// the length budget and returns the cross product of batch pairs as rendered
// queries. Device batches drive the outer loop, so every indicator batch for
// the first device batch appears before the second device batch. Each
// returned query is strictly shorter than maxLen.
func Partition(devices, indicators []string, maxLen int) ([]string, error) {
	if len(devices) == 0 {
		return nil, errors.New("no device terms")
	}
	if len(indicators) == 0 {
		return nil, errors.New("no indicator terms")
	}

	size, err := batchSize(devices, indicators, maxLen)
	if err != nil {
		return nil, err
	}

	deviceBatches := batches(devices, size)
	indicatorBatches := batches(indicators, size)

	queries := make([]string, 0, len(deviceBatches)*len(indicatorBatches))
	for _, devBatch := range deviceBatches {
		for _, indBatch := range indicatorBatches {
			queries = append(queries, Combine(devBatch, indBatch))
		}
	}
	return queries, nil
}

// batches splits terms into consecutive groups of at most size elements,
// preserving order.
func batches(terms []string, size int) [][]string {
	var out [][]string
	for start := 0; start < len(terms); start += size {
		end := start + size
		if end > len(terms) {
			end = len(terms)
		}
		out = append(out, terms[start:end])
	}
	return out
}

// YearFragment renders the publication-date filter for a year range. Both
// years zero yields an empty fragment; exactly one year set pins that single
// year; both set spans the inclusive range. A start year after the end year
// is rejected.
func YearFragment(startYear, endYear int) (string, error) {
	switch {
	case startYear == 0 && endYear == 0:
		return "", nil
	case startYear != 0 && endYear != 0 && startYear > endYear:
		return "", fmt.Errorf("%w: %d > %d", ErrYearOrder, startYear, endYear)
	case startYear != 0 && endYear != 0:
		return fmt.Sprintf("%d[PDAT]:%d[PDAT]", startYear, endYear), nil
	case startYear != 0:
		return fmt.Sprintf("%d[PDAT]", startYear), nil
	default:
		return fmt.Sprintf("%d[PDAT]", endYear), nil
	}
}

// Build partitions the term lists and conjoins the optional publication-date
// filter onto each query as "({query}) AND {fragment}". The fragment is
// appended after partitioning and does not count against maxLen.
func Build(devices, indicators []string, maxLen, startYear, endYear int) ([]string, error) {
	fragment, err := YearFragment(startYear, endYear)
	if err != nil {
		return nil, err
	}

	queries, err := Partition(devices, indicators, maxLen)
	if err != nil {
		return nil, err
	}

	if fragment == "" {
		return queries, nil
	}
	for i, q := range queries {
		queries[i] = "(" + q + ")" + andSeparator + fragment
	}
	return queries, nil
}
