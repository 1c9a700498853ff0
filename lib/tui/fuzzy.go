// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"slices"
	"strings"
	"sync"

	"github.com/junegunn/fzf/src/algo"
	"github.com/junegunn/fzf/src/util"
)

// FuzzyResult is the outcome of matching one text against a pattern.
// Score is zero when the pattern does not match. Positions are rune
// offsets into the text, ascending.
type FuzzyResult struct {
	Score     int
	Positions []int
}

var initScheme sync.Once

// FuzzyMatch scores text against pattern with fzf's v2 algorithm,
// ignoring case. An empty pattern scores zero. slab may be nil; a
// caller matching many texts in a row can pass one from [NewSlab] to
// avoid allocation.
func FuzzyMatch(text string, pattern []rune, slab *util.Slab) FuzzyResult {
	if len(pattern) == 0 {
		return FuzzyResult{}
	}
	initScheme.Do(func() { algo.Init("default") })

	lowered := []rune(strings.ToLower(string(pattern)))
	chars := util.ToChars([]byte(strings.ToLower(text)))
	result, positions := algo.FuzzyMatchV2(false, true, true, &chars, lowered, true, slab)
	if result.Start < 0 || result.Score <= 0 {
		return FuzzyResult{}
	}
	var matched []int
	if positions != nil {
		matched = slices.Clone(*positions)
		slices.Sort(matched)
	}
	return FuzzyResult{Score: result.Score, Positions: matched}
}

// NewSlab returns scratch space for [FuzzyMatch], sized the way fzf
// sizes its own.
func NewSlab() *util.Slab {
	return util.MakeSlab(100*1024, 2048)
}
