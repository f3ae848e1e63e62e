package fm

import (
	"bytes"
	"fmt"
	"os"

	"github.com/benoitkugler/textlayout/fonts/truetype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/language"
)

// Metadata holds the naming fields read from a font binary.
type Metadata struct {
	Family         string
	Subfamily      string
	FullName       string
	PostscriptName string
}

// ExtractMetadata reads the font at path. Any failure, including a panic
// inside the parser, comes back as a *ParseError.
func ExtractMetadata(path string) (meta Metadata, err error) {
	defer func() {
		if r := recover(); r != nil {
			meta, err = Metadata{}, &ParseError{Path: path, Err: fmt.Errorf("parser panic: %v", r)}
		}
	}()

	data, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, &ParseError{Path: path, Err: err}
	}
	meta, err = ParseMetadata(data)
	if err != nil {
		return Metadata{}, &ParseError{Path: path, Err: err}
	}
	return meta, nil
}

// ParseMetadata extracts naming fields from raw TrueType/OpenType bytes.
// English entries are preferred; family and subfamily fall back to
// "Unknown" and "Regular", the other fields to "".
func ParseMetadata(data []byte) (Metadata, error) {
	if _, err := sfnt.Parse(data); err != nil {
		return Metadata{}, err
	}
	font, err := truetype.Parse(bytes.NewReader(data), false)
	if err != nil {
		return Metadata{}, err
	}

	meta := metadataFromNames(font.Names)
	if meta.Family == "" {
		meta.Family = defaultFamily
	}
	if meta.Subfamily == "" {
		meta.Subfamily = defaultSubfamily
	}
	return meta, nil
}

func metadataFromNames(names truetype.TableName) Metadata {
	records := decodeNames(names)
	return Metadata{
		Family:         pickName(records, truetype.NameFontFamily),
		Subfamily:      pickName(records, truetype.NameFontSubfamily),
		FullName:       pickName(records, truetype.NameFull),
		PostscriptName: pickName(records, truetype.NamePostscript),
	}
}

type nameRecord struct {
	platformID truetype.PlatformID
	languageID truetype.PlatformLanguageID
	nameID     truetype.NameID
	value      string
}

// decodeNames keeps the entries whose encoding we understand.
func decodeNames(names truetype.TableName) []nameRecord {
	records := make([]nameRecord, 0, len(names))
	for _, e := range names {
		value, ok := decodeName(e.PlatformID, e.EncodingID, e.Value)
		if !ok {
			continue
		}
		records = append(records, nameRecord{
			platformID: e.PlatformID,
			languageID: e.LanguageID,
			nameID:     e.NameID,
			value:      value,
		})
	}
	return records
}

func decodeName(platformID truetype.PlatformID, encodingID truetype.PlatformEncodingID, raw []byte) (string, bool) {
	switch {
	case platformID == truetype.PlatformUnicode,
		platformID == truetype.PlatformMicrosoft && (encodingID == truetype.PEMicrosoftSymbolCs ||
			encodingID == truetype.PEMicrosoftUnicodeCs || encodingID == truetype.PEMicrosoftUcs4):
		b, err := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder().Bytes(raw)
		return string(b), err == nil
	case platformID == truetype.PlatformMac && encodingID == truetype.PEMacRoman:
		b, err := charmap.Macintosh.NewDecoder().Bytes(raw)
		return string(b), err == nil
	}
	return "", false
}

var windowsLanguages = map[truetype.PlatformLanguageID]language.Tag{
	0x0409: language.AmericanEnglish,
	0x0809: language.BritishEnglish,
	0x0c09: language.MustParse("en-AU"),
	0x1009: language.MustParse("en-CA"),
	0x1409: language.MustParse("en-NZ"),
	0x1809: language.MustParse("en-IE"),
	0x0407: language.German,
	0x040c: language.French,
	0x0410: language.Italian,
	0x0c0a: language.Spanish,
	0x0411: language.Japanese,
	0x0412: language.Korean,
	0x0419: language.Russian,
	0x0804: language.SimplifiedChinese,
	0x0404: language.TraditionalChinese,
}

var macLanguages = map[truetype.PlatformLanguageID]language.Tag{
	0:  language.English,
	1:  language.French,
	2:  language.German,
	3:  language.Italian,
	4:  language.Dutch,
	6:  language.Spanish,
	11: language.Japanese,
	19: language.TraditionalChinese,
	23: language.Korean,
	32: language.Russian,
	33: language.SimplifiedChinese,
}

func (r nameRecord) tag() language.Tag {
	var table map[truetype.PlatformLanguageID]language.Tag
	switch r.platformID {
	case truetype.PlatformMicrosoft:
		table = windowsLanguages
	case truetype.PlatformMac:
		table = macLanguages
	default:
		return language.Und
	}
	if t, ok := table[r.languageID]; ok {
		return t
	}
	return language.Und
}

var englishBase, _ = language.English.Base()

// rank orders candidate locales: en and en-US first, any other English
// region next, everything else is not eligible.
func rank(t language.Tag) int {
	if t == language.English || t == language.AmericanEnglish {
		return 0
	}
	if base, conf := t.Base(); conf == language.Exact && base == englishBase {
		return 1
	}
	return -1
}

// pickName chooses the best English entry for id, or "" if there is none.
// Windows records win ties because they carry full Unicode.
func pickName(records []nameRecord, id truetype.NameID) string {
	best, bestRank, bestWindows := "", -1, false
	for _, r := range records {
		if r.nameID != id || r.value == "" {
			continue
		}
		rk := rank(r.tag())
		if rk < 0 {
			continue
		}
		windows := r.platformID == truetype.PlatformMicrosoft
		if bestRank < 0 || rk < bestRank || (rk == bestRank && windows && !bestWindows) {
			best, bestRank, bestWindows = r.value, rk, windows
		}
	}
	return best
}
