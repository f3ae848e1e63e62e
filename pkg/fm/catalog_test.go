package fm_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/logandonley/typecore/pkg/fm"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func localRecord(path, family, subfamily string) fm.FontRecord {
	return fm.FontRecord{
		Identity:  path,
		Family:    family,
		Subfamily: subfamily,
		FullName:  family + " " + subfamily,
		Source:    fm.SourceLocal,
	}
}

var _ = Describe("Catalog", func() {
	var (
		ctx     context.Context
		catalog *fm.MemoryCatalog
	)

	BeforeEach(func() {
		ctx = context.Background()
		catalog = fm.NewMemoryCatalog()
	})

	Describe("InsertIfAbsent", func() {
		It("should store new records inactive", func() {
			rec := localRecord("/fonts/a.ttf", "Alpha", "Bold")
			rec.Activated = true

			inserted, err := catalog.InsertIfAbsent(ctx, rec)
			Expect(err).NotTo(HaveOccurred())
			Expect(inserted).To(BeTrue())

			got, err := catalog.Get(ctx, "/fonts/a.ttf")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Activated).To(BeFalse())
		})

		It("should leave an existing record untouched", func() {
			_, err := catalog.InsertIfAbsent(ctx, localRecord("/fonts/a.ttf", "Alpha", "Bold"))
			Expect(err).NotTo(HaveOccurred())
			Expect(catalog.SetActivated(ctx, "/fonts/a.ttf", true)).To(Succeed())

			inserted, err := catalog.InsertIfAbsent(ctx, localRecord("/fonts/a.ttf", "Renamed", "Light"))
			Expect(err).NotTo(HaveOccurred())
			Expect(inserted).To(BeFalse())

			got, err := catalog.Get(ctx, "/fonts/a.ttf")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Family).To(Equal("Alpha"))
			Expect(got.Activated).To(BeTrue())
		})

		It("should fill missing naming fields with defaults", func() {
			_, err := catalog.InsertIfAbsent(ctx, localRecord("/fonts/blank.ttf", "", ""))
			Expect(err).NotTo(HaveOccurred())

			got, err := catalog.Get(ctx, "/fonts/blank.ttf")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Family).To(Equal("Unknown"))
			Expect(got.Subfamily).To(Equal("Regular"))
		})

		It("should reject invalid records", func() {
			_, err := catalog.InsertIfAbsent(ctx, fm.FontRecord{Family: "NoIdentity", Source: fm.SourceLocal})
			Expect(err).To(HaveOccurred())

			_, err = catalog.InsertIfAbsent(ctx, fm.FontRecord{
				Identity: "google://Roboto",
				Family:   "Roboto",
				Source:   fm.SourceRemote,
			})
			Expect(err).To(HaveOccurred())
			Expect(catalog.Len()).To(BeZero())
		})

		It("should insert each identity once under concurrency", func() {
			var (
				wg    sync.WaitGroup
				mu    sync.Mutex
				count int
			)
			for i := 0; i < 16; i++ {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					inserted, err := catalog.InsertIfAbsent(ctx, localRecord("/fonts/race.ttf", "Race", "Regular"))
					Expect(err).NotTo(HaveOccurred())
					if inserted {
						mu.Lock()
						count++
						mu.Unlock()
					}
				}()
			}
			wg.Wait()
			Expect(count).To(Equal(1))
			Expect(catalog.Len()).To(Equal(1))
		})
	})

	Describe("InsertMany", func() {
		var persists int

		BeforeEach(func() {
			persists = 0
			fm.SetPersist(catalog, func([]fm.FontRecord) error {
				persists++
				return nil
			})
		})

		It("should persist a batch once and report new records", func() {
			_, err := catalog.InsertIfAbsent(ctx, localRecord("/f/2.ttf", "Beta", "Regular"))
			Expect(err).NotTo(HaveOccurred())
			persists = 0

			inserted, err := catalog.InsertMany(ctx, []fm.FontRecord{
				localRecord("/f/1.ttf", "Alpha", "Bold"),
				localRecord("/f/2.ttf", "Renamed", "Light"),
				localRecord("/f/3.ttf", "Gamma", "Italic"),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(inserted).To(Equal([]bool{true, false, true}))
			Expect(persists).To(Equal(1))
			Expect(catalog.Len()).To(Equal(3))

			got, err := catalog.Get(ctx, "/f/2.ttf")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Family).To(Equal("Beta"))
		})

		It("should count a repeated identity inside one batch once", func() {
			inserted, err := catalog.InsertMany(ctx, []fm.FontRecord{
				localRecord("/f/1.ttf", "Alpha", "Bold"),
				localRecord("/f/1.ttf", "Alpha", "Light"),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(inserted).To(Equal([]bool{true, false}))
		})

		It("should skip the write when nothing is new", func() {
			_, err := catalog.InsertIfAbsent(ctx, localRecord("/f/1.ttf", "Alpha", "Bold"))
			Expect(err).NotTo(HaveOccurred())
			persists = 0

			inserted, err := catalog.InsertMany(ctx, []fm.FontRecord{localRecord("/f/1.ttf", "Alpha", "Bold")})
			Expect(err).NotTo(HaveOccurred())
			Expect(inserted).To(Equal([]bool{false}))
			Expect(persists).To(BeZero())
		})

		It("should reject a batch holding an invalid record", func() {
			_, err := catalog.InsertMany(ctx, []fm.FontRecord{
				localRecord("/f/1.ttf", "Alpha", "Bold"),
				{Identity: "google://Roboto", Family: "Roboto", Source: fm.SourceRemote},
			})
			Expect(err).To(HaveOccurred())
			Expect(catalog.Len()).To(BeZero())
			Expect(persists).To(BeZero())
		})

		It("should roll back the whole batch when the write fails", func() {
			_, err := catalog.InsertIfAbsent(ctx, localRecord("/f/0.ttf", "Zero", "Regular"))
			Expect(err).NotTo(HaveOccurred())
			fm.SetPersist(catalog, func([]fm.FontRecord) error { return errors.New("disk full") })

			_, err = catalog.InsertMany(ctx, []fm.FontRecord{
				localRecord("/f/1.ttf", "Alpha", "Bold"),
				localRecord("/f/2.ttf", "Beta", "Regular"),
			})
			Expect(err).To(MatchError(ContainSubstring("disk full")))
			Expect(catalog.Len()).To(Equal(1))
		})
	})

	Describe("ListAll", func() {
		It("should order by family, then subfamily", func() {
			for _, rec := range []fm.FontRecord{
				localRecord("/f/3.ttf", "Beta", "Regular"),
				localRecord("/f/2.ttf", "Alpha", "Regular"),
				localRecord("/f/1.ttf", "Alpha", "Bold"),
			} {
				_, err := catalog.InsertIfAbsent(ctx, rec)
				Expect(err).NotTo(HaveOccurred())
			}

			records, err := catalog.ListAll(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(3))
			Expect(records[0].Identity).To(Equal("/f/1.ttf"))
			Expect(records[1].Identity).To(Equal("/f/2.ttf"))
			Expect(records[2].Identity).To(Equal("/f/3.ttf"))
		})

		It("should return an empty list for an empty catalog", func() {
			records, err := catalog.ListAll(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(BeEmpty())
		})
	})

	Describe("Get and SetActivated", func() {
		It("should report unknown identities as not found", func() {
			_, err := catalog.Get(ctx, "/nope.ttf")
			Expect(errors.Is(err, fm.ErrNotFound)).To(BeTrue())

			err = catalog.SetActivated(ctx, "/nope.ttf", true)
			Expect(errors.Is(err, fm.ErrNotFound)).To(BeTrue())
		})
	})

	Describe("ClearAll", func() {
		It("should remove every record", func() {
			_, err := catalog.InsertIfAbsent(ctx, localRecord("/f/1.ttf", "Alpha", "Bold"))
			Expect(err).NotTo(HaveOccurred())

			Expect(catalog.ClearAll(ctx)).To(Succeed())
			Expect(catalog.Len()).To(BeZero())

			Expect(catalog.ClearAll(ctx)).To(Succeed())
		})
	})

	Describe("file-backed catalog", func() {
		var (
			tempDir string
			path    string
		)

		BeforeEach(func() {
			var err error
			tempDir, err = os.MkdirTemp("", "catalog-test-*")
			Expect(err).NotTo(HaveOccurred())
			path = filepath.Join(tempDir, "nested", "catalog.yaml")
		})

		AfterEach(func() {
			os.RemoveAll(tempDir)
		})

		It("should survive a reopen", func() {
			c, err := fm.OpenFileCatalog(path)
			Expect(err).NotTo(HaveOccurred())

			_, err = c.InsertIfAbsent(ctx, localRecord("/f/1.ttf", "Alpha", "Bold"))
			Expect(err).NotTo(HaveOccurred())
			_, err = c.InsertIfAbsent(ctx, fm.FontRecord{
				Identity:  "google://Roboto",
				Family:    "Roboto",
				Subfamily: "Regular",
				Source:    fm.SourceRemote,
				RemoteURL: "https://example.com/roboto.ttf",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(c.SetActivated(ctx, "/f/1.ttf", true)).To(Succeed())

			reopened, err := fm.OpenFileCatalog(path)
			Expect(err).NotTo(HaveOccurred())
			records, err := reopened.ListAll(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(2))
			Expect(records[0].Identity).To(Equal("/f/1.ttf"))
			Expect(records[0].Activated).To(BeTrue())
			Expect(records[1].RemoteURL).To(Equal("https://example.com/roboto.ttf"))
		})

		It("should write a batch in a single file update", func() {
			c, err := fm.OpenFileCatalog(path)
			Expect(err).NotTo(HaveOccurred())

			batch := make([]fm.FontRecord, 200)
			for i := range batch {
				batch[i] = localRecord(fmt.Sprintf("/f/%03d.ttf", i), "Family", fmt.Sprintf("Style %03d", i))
			}
			_, err = c.InsertMany(ctx, batch)
			Expect(err).NotTo(HaveOccurred())

			reopened, err := fm.OpenFileCatalog(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(reopened.Len()).To(Equal(200))
		})

		It("should start empty when no file exists", func() {
			c, err := fm.OpenFileCatalog(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.Len()).To(BeZero())
		})

		It("should reject a malformed file", func() {
			writeFile(path, "fonts: [this is: not valid")
			_, err := fm.OpenFileCatalog(path)
			Expect(err).To(HaveOccurred())
		})

		It("should reject a newer file version", func() {
			writeFile(path, "version: 99\nfonts: []\n")
			_, err := fm.OpenFileCatalog(path)
			Expect(err).To(HaveOccurred())
		})

		It("should roll back a mutation that cannot be persisted", func() {
			if os.Geteuid() == 0 {
				Skip("permission checks do not apply to root")
			}
			c, err := fm.OpenFileCatalog(path)
			Expect(err).NotTo(HaveOccurred())

			dir := filepath.Dir(path)
			Expect(os.Chmod(dir, 0500)).To(Succeed())
			DeferCleanup(os.Chmod, dir, os.FileMode(0755))

			_, err = c.InsertIfAbsent(ctx, localRecord("/f/1.ttf", "Alpha", "Bold"))
			Expect(err).To(HaveOccurred())
			Expect(c.Len()).To(BeZero())
		})
	})
})
