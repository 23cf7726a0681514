// Steamshelf - Steam Library Catalog Enrichment
// Copyright 2026 Steamshelf contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/steamshelf/steamshelf

package hltb

import (
	"regexp"
	"strings"
)

// Store names carry noise that HowLongToBeat's own titles do not:
// trademark symbols, edition suffixes, year tags. Normalization happens in
// two stages. NormalizeName is always applied before searching; SimplifyName
// additionally strips edition suffixes and is only used for the fallback
// search when the first pass matched poorly.

var (
	// symbolPattern matches trademark/copyright marks, replaced with a
	// space to keep word boundaries ("Velocity®Ultra" stays two words).
	symbolPattern = regexp.MustCompile(`[\x{2122}\x{00AE}\x{00A9}]|\(TM\)|\(R\)`)

	// parenNoisePattern matches parenthetical year and reissue tags.
	parenNoisePattern = regexp.MustCompile(`\s*\((?:[12][09]\d\d|Classic|CLASSIC|Legacy|\d+[Dd]\s*Remake)\)\s*`)

	// bareYearPattern matches a trailing year without parentheses.
	bareYearPattern = regexp.MustCompile(`\s+[12][09]\d\d$`)

	whitespacePattern = regexp.MustCompile(`\s+`)

	unicodeDashPattern = regexp.MustCompile(`[\x{2013}\x{2014}]`)

	// compareStripPattern removes everything but letters, digits, spaces,
	// hyphens, and slashes when comparing names.
	compareStripPattern = regexp.MustCompile(`[^a-z0-9\s\-/]`)
)

var superscriptDigits = strings.NewReplacer(
	"⁰", "0", "¹", "1", "²", "2", "³", "3", "⁴", "4",
	"⁵", "5", "⁶", "6", "⁷", "7", "⁸", "8", "⁹", "9",
)

// accentFold maps common accented letters to their ASCII base before the
// comparison strip, so "Pokémon" compares as "pokemon" rather than "pokmon".
var accentFold = strings.NewReplacer(
	"á", "a", "à", "a", "â", "a", "ä", "a", "ã", "a", "å", "a",
	"é", "e", "è", "e", "ê", "e", "ë", "e",
	"í", "i", "ì", "i", "î", "i", "ï", "i",
	"ó", "o", "ò", "o", "ô", "o", "ö", "o", "õ", "o",
	"ú", "u", "ù", "u", "û", "u", "ü", "u",
	"ñ", "n", "ç", "c", "ß", "ss",
)

// editionPatterns strip edition/remaster/subtitle suffixes for the fallback
// search. Applied iteratively until the name stops changing, so stacked
// suffixes ("Enhanced Edition Director's Cut") unwind fully.
var editionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\s+\d+[snrt][tdh]\s+Anniversary\s+Edition$`),
	regexp.MustCompile(`(?i)\s+[-:]\s*Anniversary\s+Edition$`),
	regexp.MustCompile(`(?i)\s+Anniversary\s+Edition$`),
	regexp.MustCompile(`(?i)\s+[-:]\s*(Enhanced|Complete|Definitive|Ultimate|Special|Legacy|Maximum|Deluxe|Premium|Gold|Platinum|Steam|GOTY|Game\s+of\s+the\s+Year)\s*Edition.*$`),
	regexp.MustCompile(`(?i)\s+(Enhanced|Complete|Definitive|Ultimate|Special|Legacy|Maximum|Deluxe|Premium|Gold|Platinum|Steam|GOTY|Game\s+of\s+the\s+Year)\s*Edition.*$`),
	regexp.MustCompile(`(?i)\s+[-:]\s*GOTY$`),
	regexp.MustCompile(`(?i)\s+GOTY$`),
	regexp.MustCompile(`(?i)\s+[-:]\s*Game\s+of\s+the\s+Year$`),
	regexp.MustCompile(`(?i)\s+Game\s+of\s+the\s+Year$`),
	regexp.MustCompile(`(?i)\s+[-:]\s*Remastered$`),
	regexp.MustCompile(`(?i)\s+Remastered$`),
	regexp.MustCompile(`(?i)\s+[-:]\s*Remake$`),
	regexp.MustCompile(`(?i)\s+Remake$`),
	regexp.MustCompile(`(?i)\s+[-:]\s*Director'?s?\s+Cut$`),
	regexp.MustCompile(`(?i)\s+Director'?s?\s+Cut$`),
	regexp.MustCompile(`(?i)\s+Collection$`),
	regexp.MustCompile(`(?i)\s+[-:]\s*Classic$`),
	regexp.MustCompile(`(?i)\s+Classic$`),
	regexp.MustCompile(`(?i)\s+HD$`),
	regexp.MustCompile(`(?i)\s+Enhanced$`),
	regexp.MustCompile(`(?i)\s+Redux$`),
	regexp.MustCompile(`(?i)\s+Reloaded$`),
	regexp.MustCompile(`(?i)\s+[-:]\s*Single\s+Player$`),
	regexp.MustCompile(`(?i)\s+Single\s+Player$`),
	regexp.MustCompile(`(?i)\s+[-:]\s*Season\s+\d+$`),
	regexp.MustCompile(`(?i)\s+Season\s+\d+$`),
	regexp.MustCompile(`(?i)\s+Online$`),
	regexp.MustCompile(`\s+\([12][09]\d\d\)$`),
	regexp.MustCompile(`\s*[-:]\s*$`),
}

// NormalizeName cleans a store name for searching: trademark symbols,
// superscript digits, parenthetical year/reissue tags. Edition suffixes are
// kept; SimplifyName handles those.
func NormalizeName(name string) string {
	cleaned := symbolPattern.ReplaceAllString(name, " ")
	cleaned = superscriptDigits.Replace(cleaned)
	cleaned = strings.ReplaceAll(cleaned, "`", "'")
	cleaned = strings.ReplaceAll(cleaned, "∞", "")
	cleaned = parenNoisePattern.ReplaceAllString(cleaned, " ")
	cleaned = whitespacePattern.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}

// SimplifyName strips edition/remaster/year suffixes for the fallback
// search pass.
func SimplifyName(name string) string {
	name = unicodeDashPattern.ReplaceAllString(name, " - ")
	name = strings.TrimSpace(whitespacePattern.ReplaceAllString(name, " "))

	prev := ""
	for prev != name {
		prev = name
		for _, p := range editionPatterns {
			name = strings.TrimSpace(p.ReplaceAllString(name, ""))
		}
		name = strings.TrimSpace(bareYearPattern.ReplaceAllString(name, ""))
	}
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(name, " "))
}

// normalizeForCompare lowercases and folds a name down to the characters
// both sides reliably share, for exact-match checks and edit distance.
func normalizeForCompare(name string) string {
	result := strings.ToLower(name)
	result = accentFold.Replace(result)
	result = compareStripPattern.ReplaceAllString(result, "")
	return strings.TrimSpace(result)
}
