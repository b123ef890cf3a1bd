// Package numeral converts the numeral representations found in Chinese legal
// text into canonical integers. Court documents mix Arabic digit groups,
// full-width digits, Chinese numerals (十二萬三千四百五十六), mixed
// Chinese-Arabic forms (5萬4,741) and Roman numerals (including the CJK
// compatibility glyphs Ⅰ–Ⅻ), frequently within one paragraph.
package numeral

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/width"

	"github.com/caselens/claimsift/pkg/errors"
)

var (
	arabicRe   = regexp.MustCompile(`^\d{1,3}(?:,\d{3})*$|^\d+$`)
	mixedWanRe = regexp.MustCompile(`^(\d+)萬(\d{1,3}(?:,\d{3})*)?$`)
	wanOnlyRe  = regexp.MustCompile(`^(\d+)\s*萬$`)
	qianOnlyRe = regexp.MustCompile(`^(\d+)\s*千$`)
	chineseRe  = regexp.MustCompile(`^[零一二三四五六七八九十百千萬億壹貳參肆伍陸柒捌玖拾佰仟]+$`)
	romanRe    = regexp.MustCompile(`^([IVXLCDMivxlcdmⅠⅡⅢⅣⅤⅥⅦⅧⅨⅩⅪⅫⅰⅱⅲⅳⅴⅵⅶⅷⅸⅹ]+)([千萬億]?)$`)
)

// chineseDigits maps every Chinese numeral character, including the formal
// banking variants used in legal instruments, to its numeric value.
var chineseDigits = map[rune]int64{
	'零': 0, '一': 1, '二': 2, '三': 3, '四': 4,
	'五': 5, '六': 6, '七': 7, '八': 8, '九': 9,
	'十': 10, '百': 100, '千': 1000, '萬': 10000, '億': 100000000,
	'壹': 1, '貳': 2, '參': 3, '肆': 4, '伍': 5,
	'陸': 6, '柒': 7, '捌': 8, '玖': 9,
	'拾': 10, '佰': 100, '仟': 1000,
}

// romanValues covers both ASCII Roman letters and the CJK compatibility
// glyphs. The precomposed glyphs Ⅱ–Ⅻ carry their full value directly.
var romanValues = map[rune]int64{
	'I': 1, 'V': 5, 'X': 10, 'L': 50, 'C': 100, 'D': 500, 'M': 1000,
	'Ⅰ': 1, 'Ⅱ': 2, 'Ⅲ': 3, 'Ⅳ': 4, 'Ⅴ': 5, 'Ⅵ': 6,
	'Ⅶ': 7, 'Ⅷ': 8, 'Ⅸ': 9, 'Ⅹ': 10, 'Ⅺ': 11, 'Ⅻ': 12,
	'ⅰ': 1, 'ⅱ': 2, 'ⅲ': 3, 'ⅳ': 4, 'ⅴ': 5, 'ⅵ': 6,
	'ⅶ': 7, 'ⅷ': 8, 'ⅸ': 9, 'ⅹ': 10,
}

// precomposedRoman is the subset of glyphs whose single rune already denotes
// a multi-unit value; a one-rune string of these is taken at face value
// rather than fed through subtractive decoding.
var precomposedRoman = map[rune]bool{
	'Ⅱ': true, 'Ⅲ': true, 'Ⅳ': true, 'Ⅵ': true, 'Ⅶ': true,
	'Ⅷ': true, 'Ⅸ': true, 'Ⅺ': true, 'Ⅻ': true,
	'ⅱ': true, 'ⅲ': true, 'ⅳ': true, 'ⅵ': true, 'ⅶ': true,
	'ⅷ': true, 'ⅸ': true,
}

// Fold converts full-width digits and separators to their ASCII equivalents
// and strips surrounding whitespace. Span-preserving callers fold the matched
// substring only, never the source document.
func Fold(s string) string {
	s = width.Narrow.String(s)
	s = strings.ReplaceAll(s, "，", ",")
	return strings.TrimSpace(s)
}

// Normalize converts any supported numeral text into a non-negative integer.
// The input is the bare numeral (no currency unit). Priority order: Arabic
// with optional thousands separators, mixed Chinese-magnitude forms, pure
// Chinese numerals, Roman numerals with an optional magnitude suffix.
//
// Failure means "no amount here": callers drop the candidate and continue,
// they never abort the document.
func Normalize(text string) (int64, error) {
	folded := Fold(text)
	if folded == "" {
		return 0, errors.New(errors.ErrCodeNumeralUnparseable, "empty numeral text")
	}

	if arabicRe.MatchString(folded) {
		return parseArabic(folded)
	}
	if m := mixedWanRe.FindStringSubmatch(folded); m != nil {
		return parseMixedWan(m[1], m[2])
	}
	if m := wanOnlyRe.FindStringSubmatch(folded); m != nil {
		n, err := parseArabic(m[1])
		if err != nil {
			return 0, err
		}
		return n * 10000, nil
	}
	if m := qianOnlyRe.FindStringSubmatch(folded); m != nil {
		n, err := parseArabic(m[1])
		if err != nil {
			return 0, err
		}
		return n * 1000, nil
	}
	if chineseRe.MatchString(folded) {
		return ChineseToInt(folded)
	}
	if m := romanRe.FindStringSubmatch(folded); m != nil {
		return parseRomanWithMagnitude(m[1], m[2])
	}

	return 0, errors.Newf(errors.ErrCodeNumeralUnparseable, "no recognizable digits in %q", text)
}

func parseArabic(s string) (int64, error) {
	n, err := strconv.ParseInt(strings.ReplaceAll(s, ",", ""), 10, 64)
	if err != nil || n < 0 {
		return 0, errors.Newf(errors.ErrCodeNumeralUnparseable, "invalid arabic numeral %q", s)
	}
	return n, nil
}

func parseMixedWan(wanPart, remainder string) (int64, error) {
	wan, err := parseArabic(wanPart)
	if err != nil {
		return 0, err
	}
	var rest int64
	if remainder != "" {
		rest, err = parseArabic(remainder)
		if err != nil {
			return 0, err
		}
	}
	return wan*10000 + rest, nil
}

// ChineseToInt decodes a pure Chinese numeral string. A running accumulator
// is multiplied by sub-myriad magnitudes (十/百/千) in place; magnitudes of
// 萬 or above flush the accumulated value into the result and reset, which
// handles forms like 十二萬三千四百五十六.
func ChineseToInt(s string) (int64, error) {
	if s == "" {
		return 0, errors.New(errors.ErrCodeNumeralUnparseable, "empty chinese numeral")
	}
	var result, current int64
	sawDigit := false
	for _, r := range s {
		v, ok := chineseDigits[r]
		if !ok {
			return 0, errors.Newf(errors.ErrCodeNumeralUnparseable, "unexpected character %q in chinese numeral %q", r, s)
		}
		sawDigit = true
		switch {
		case v >= 10000:
			if current == 0 {
				current = 1
			}
			result += current * v
			current = 0
		case v >= 100:
			if current == 0 {
				current = 1
			}
			current *= v
		case v == 10:
			if current == 0 {
				current = 10
			} else {
				current *= 10
			}
		default:
			current += v
		}
	}
	if !sawDigit {
		return 0, errors.Newf(errors.ErrCodeNumeralUnparseable, "no digits in chinese numeral %q", s)
	}
	return result + current, nil
}

// RomanToInt decodes a Roman numeral by standard subtractive-pair rules.
// Single precomposed CJK glyphs (Ⅻ) are resolved by direct lookup.
func RomanToInt(s string) (int64, error) {
	runes := []rune(s)
	if len(runes) == 0 {
		return 0, errors.New(errors.ErrCodeNumeralUnparseable, "empty roman numeral")
	}
	if len(runes) == 1 {
		if v, ok := romanValues[runes[0]]; ok {
			return v, nil
		}
		return 0, errors.Newf(errors.ErrCodeNumeralUnparseable, "unknown roman glyph %q", s)
	}

	var total int64
	for i := 0; i < len(runes); i++ {
		r := unifyRomanCase(runes[i])
		v, ok := romanValues[r]
		if !ok {
			return 0, errors.Newf(errors.ErrCodeNumeralUnparseable, "unknown roman glyph %q in %q", runes[i], s)
		}
		// Precomposed glyphs inside a sequence keep their face value.
		if precomposedRoman[runes[i]] {
			total += v
			continue
		}
		if i+1 < len(runes) {
			next := unifyRomanCase(runes[i+1])
			if nv, ok := romanValues[next]; ok && v < nv && !precomposedRoman[runes[i+1]] {
				total += nv - v
				i++
				continue
			}
		}
		total += v
	}
	return total, nil
}

func parseRomanWithMagnitude(roman, magnitude string) (int64, error) {
	base, err := RomanToInt(roman)
	if err != nil {
		return 0, err
	}
	switch magnitude {
	case "千":
		return base * 1000, nil
	case "萬":
		return base * 10000, nil
	case "億":
		return base * 100000000, nil
	default:
		return base, nil
	}
}

func unifyRomanCase(r rune) rune {
	if r >= 'a' && r <= 'z' {
		return r - ('a' - 'A')
	}
	return r
}
