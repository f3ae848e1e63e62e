package fm_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"

	"github.com/benoitkugler/textlayout/fonts/truetype"
	"github.com/logandonley/typecore/pkg/fm"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/image/font/gofont/goregular"
)

// name builds a name-table entry. Strings are ASCII, so Mac Roman is the
// bytes themselves and UTF-16BE is a zero byte before each character.
func name(platform truetype.PlatformID, encoding truetype.PlatformEncodingID, lang truetype.PlatformLanguageID, id truetype.NameID, value string) truetype.NameEntry {
	var raw []byte
	if platform == truetype.PlatformMac {
		raw = []byte(value)
	} else {
		for _, c := range []byte(value) {
			raw = append(raw, 0, c)
		}
	}
	return truetype.NameEntry{PlatformID: platform, EncodingID: encoding, LanguageID: lang, NameID: id, Value: raw}
}

const (
	win = truetype.PlatformMicrosoft
	mac = truetype.PlatformMac
	uni = truetype.PlatformUnicode
)

var _ = Describe("Metadata Extractor", func() {
	var tempDir string

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "metadata-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tempDir)
	})

	It("should read the naming fields of a real font", func() {
		path := filepath.Join(tempDir, "Go-Regular.ttf")
		writeValidFont(path)

		meta, err := fm.ExtractMetadata(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(meta.Family).To(Equal("Go"))
		Expect(meta.Subfamily).To(Equal("Regular"))
		Expect(meta.FullName).To(ContainSubstring("Go"))
		Expect(meta.PostscriptName).NotTo(BeEmpty())
	})

	It("should report corrupt binaries as parse failures", func() {
		path := filepath.Join(tempDir, "corrupt.ttf")
		writeFile(path, "this is not a font")

		_, err := fm.ExtractMetadata(path)
		var parseErr *fm.ParseError
		Expect(errors.As(err, &parseErr)).To(BeTrue())
		Expect(parseErr.Path).To(Equal(path))
	})

	It("should report truncated binaries as parse failures", func() {
		_, err := fm.ParseMetadata(goregular.TTF[:64])
		Expect(err).To(HaveOccurred())
	})

	It("should report missing files as parse failures", func() {
		_, err := fm.ExtractMetadata(filepath.Join(tempDir, "missing.ttf"))
		var parseErr *fm.ParseError
		Expect(errors.As(err, &parseErr)).To(BeTrue())
	})

	It("should expose both Mac and Windows English records of a real font", func() {
		font, err := truetype.Parse(bytes.NewReader(goregular.TTF), false)
		Expect(err).NotTo(HaveOccurred())

		var platforms []truetype.PlatformID
		for _, e := range font.Names {
			if e.NameID == truetype.NameFontFamily {
				platforms = append(platforms, e.PlatformID)
			}
		}
		Expect(platforms).To(ContainElements(mac, win))
		Expect(fm.MetadataFromNames(font.Names).Family).To(Equal("Go"))
	})

	Describe("language preference", func() {
		It("should prefer Windows en-US over other locales", func() {
			meta := fm.MetadataFromNames(truetype.TableName{
				name(win, 1, 0x0407, truetype.NameFontFamily, "Schrift"),
				name(mac, 0, 0, truetype.NameFontFamily, "MacFamily"),
				name(win, 1, 0x0409, truetype.NameFontFamily, "WinFamily"),
				name(win, 1, 0x0409, truetype.NameFull, "WinFamily Bold"),
				name(win, 1, 0x0409, truetype.NamePostscript, "WinFamily-Bold"),
			})
			Expect(meta.Family).To(Equal("WinFamily"))
			Expect(meta.FullName).To(Equal("WinFamily Bold"))
			Expect(meta.PostscriptName).To(Equal("WinFamily-Bold"))
		})

		It("should use Mac English when no Windows English entry exists", func() {
			meta := fm.MetadataFromNames(truetype.TableName{
				name(win, 1, 0x040c, truetype.NameFontFamily, "Police"),
				name(mac, 0, 0, truetype.NameFontFamily, "MacFamily"),
			})
			Expect(meta.Family).To(Equal("MacFamily"))
		})

		It("should accept other English regions after en and en-US", func() {
			meta := fm.MetadataFromNames(truetype.TableName{
				name(win, 1, 0x0809, truetype.NameFontSubfamily, "Colour"),
			})
			Expect(meta.Subfamily).To(Equal("Colour"))
		})

		It("should return empty fields when no English entry exists", func() {
			meta := fm.MetadataFromNames(truetype.TableName{
				name(win, 1, 0x0411, truetype.NameFontFamily, "Mincho"),
				name(uni, 3, 0, truetype.NameFontSubfamily, "Neutral"),
			})
			Expect(meta.Family).To(BeEmpty())
			Expect(meta.Subfamily).To(BeEmpty())
		})

		It("should ignore entries in encodings it cannot decode", func() {
			meta := fm.MetadataFromNames(truetype.TableName{
				{PlatformID: mac, EncodingID: 1, LanguageID: 0, NameID: truetype.NameFontFamily, Value: []byte{0x82, 0xa0}},
				name(mac, 0, 0, truetype.NameFontFamily, "Roman"),
			})
			Expect(meta.Family).To(Equal("Roman"))
		})
	})
})
