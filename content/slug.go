/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package content

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	// letters without a canonical decomposition
	foldReplacer = strings.NewReplacer(
		"ı", "i", "İ", "I",
		"ß", "ss", "æ", "ae", "Æ", "AE",
		"ø", "o", "Ø", "O", "đ", "d", "Đ", "D", "ł", "l", "Ł", "L",
	)
	invalidSlugChars = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugSpaces       = regexp.MustCompile(`\s+`)
)

// RemoveAccents folds accented latin letters to their ASCII base letters.
func RemoveAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, foldReplacer.Replace(s))
	if err != nil {
		return s
	}
	return folded
}

// Slugify turns a title into a URL segment: accents folded, lower case,
// anything but letters, digits, spaces and hyphens dropped, and runs of
// whitespace replaced by a single hyphen.
func Slugify(phrase string) string {
	s := strings.ToLower(RemoveAccents(phrase))
	s = invalidSlugChars.ReplaceAllString(s, "")
	s = strings.TrimSpace(slugSpaces.ReplaceAllString(s, " "))
	return strings.ReplaceAll(s, " ", "-")
}
