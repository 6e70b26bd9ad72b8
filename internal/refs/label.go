// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package refs

import "strings"

// JoinMarker inside a catalog display label stands for a comma join.
const JoinMarker = "&&&"

// ExpandLabel replaces every join marker with ", ".
func ExpandLabel(label string) string {
	return strings.ReplaceAll(label, JoinMarker, segmentSep)
}

// ProjectLabel truncates the locator of a display label to depth components.
// The label's last whitespace token is its locator, whose components are
// separated by the join marker; everything before it is kept as the title.
func ProjectLabel(label string, depth int) string {
	segments := strings.Split(label, ",")
	last := segments[len(segments)-1]

	var title []string
	if len(segments) > 1 {
		title = append(title, segments[:len(segments)-1]...)
	}
	words := strings.Split(last, " ")
	if len(words) > 1 {
		title = append(title, strings.Join(words[:len(words)-1], " "))
	}
	locator := strings.Split(words[len(words)-1], JoinMarker)

	for i := range title {
		title[i] = strings.TrimSpace(title[i])
	}
	for i := range locator {
		locator[i] = strings.TrimSpace(locator[i])
	}
	if depth < len(locator) {
		locator = locator[:max(depth, 0)]
	}
	return strings.TrimSpace(strings.Join(title, segmentSep) + " " + strings.Join(locator, segmentSep))
}

// CommonLabel returns the longest component-wise common prefix of labels
// split on ", ". It returns "" for no labels.
func CommonLabel(labels []string) string {
	if len(labels) == 0 {
		return ""
	}
	split := make([][]string, len(labels))
	for i, l := range labels {
		split[i] = strings.Split(l, segmentSep)
	}
	return strings.Join(CommonPrefix(split...), segmentSep)
}

// CommonPrefix returns the leading elements shared by every list.
func CommonPrefix[T comparable](lists ...[]T) []T {
	if len(lists) == 0 {
		return nil
	}
	var out []T
	for i := 0; ; i++ {
		for _, l := range lists {
			if i >= len(l) || l[i] != lists[0][i] {
				return out
			}
		}
		out = append(out, lists[0][i])
	}
}
