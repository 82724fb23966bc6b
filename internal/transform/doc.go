// Package transform provides the path filtering and renaming layer of the
// crawl engine.
//
// A Transformer is compiled once from a rule expression and then applied
// to every candidate path. Rules are evaluated in declared order and the
// first match wins: a rule either rewrites the path to a new destination
// or excludes it entirely. Paths matching no rule pass through unchanged.
//
// Rule expressions are newline-separated. Each line is one of:
//
//	source --> target    rename: paths at or below source are re-rooted at target
//	source --> !         exclude: matching paths are not crawled or downloaded
//	source               keep: matching paths pass through unchanged
//
// A source containing glob metacharacters (* or ?) matches the whole
// path or its base name using path.Match syntax; glob rules can only
// exclude or keep, never rename. All other sources match the exact path
// or any path below it, segment-wise.
package transform
