package httpserver_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"

	"github.com/logandonley/typecore/internal/httpserver"
	"github.com/logandonley/typecore/internal/platform"
	"github.com/logandonley/typecore/pkg/fm"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/image/font/gofont/goregular"
)

type recordingBridge struct {
	registered []string
	fail       error
}

func (b *recordingBridge) Name() string { return "recording" }

func (b *recordingBridge) Register(path string) error {
	if b.fail != nil {
		return &platform.BridgeError{Op: "register", Path: path, Err: b.fail}
	}
	b.registered = append(b.registered, path)
	return nil
}

func (b *recordingBridge) Unregister(path string) error {
	if b.fail != nil {
		return &platform.BridgeError{Op: "unregister", Path: path, Err: b.fail}
	}
	return nil
}

var _ = Describe("Control API", func() {
	var (
		tempDir  string
		fontDir  string
		bridge   *recordingBridge
		remote   *httptest.Server
		api      *httptest.Server
		apiKey   string
		catalog  *fm.MemoryCatalog
		fontPath string
	)

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "httpserver-test-*")
		Expect(err).NotTo(HaveOccurred())

		fontDir = filepath.Join(tempDir, "fonts")
		Expect(os.MkdirAll(fontDir, 0755)).To(Succeed())
		fontPath = filepath.Join(fontDir, "Go-Regular.ttf")
		Expect(os.WriteFile(fontPath, goregular.TTF, 0644)).To(Succeed())

		remote = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/webfonts" {
				apiKey = r.URL.Query().Get("key")
				fmt.Fprintf(w, `{"items":[{"family":"Go Sans","files":{"regular":"http://%s/go.ttf"}}]}`, r.Host)
				return
			}
			w.Write(goregular.TTF)
		}))

		bridge = &recordingBridge{}
		catalog = fm.NewMemoryCatalog()
		manager, err := fm.NewManager(fm.Options{
			Catalog:       catalog,
			Bridge:        bridge,
			CacheDir:      filepath.Join(tempDir, "cache"),
			HTTPClient:    remote.Client(),
			GoogleOptions: []fm.GoogleFontsOption{fm.WithGoogleEndpoint(remote.URL + "/webfonts")},
			SystemFonts:   func() []string { return []string{fontPath} },
		})
		Expect(err).NotTo(HaveOccurred())

		api = httptest.NewServer(httpserver.Router(httpserver.Deps{
			Manager:      manager,
			SyncLimit:    10,
			GoogleAPIKey: "configured-key",
			Version:      "test",
		}))
	})

	AfterEach(func() {
		api.Close()
		remote.Close()
		os.RemoveAll(tempDir)
	})

	post := func(path, body string) (*http.Response, httpserver.ActionResult) {
		resp, err := http.Post(api.URL+path, "application/json", strings.NewReader(body))
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		var result httpserver.ActionResult
		Expect(json.NewDecoder(resp.Body).Decode(&result)).To(Succeed())
		return resp, result
	}

	listFonts := func() []fm.FontRecord {
		resp, err := http.Get(api.URL + "/api/fonts")
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		var fonts []fm.FontRecord
		Expect(json.NewDecoder(resp.Body).Decode(&fonts)).To(Succeed())
		return fonts
	}

	It("should report health", func() {
		resp, err := http.Get(api.URL + "/healthz")
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(resp.Header.Get("Content-Type")).To(Equal("application/json"))
	})

	It("should scan a directory and list the result", func() {
		resp, result := post("/api/scan", fmt.Sprintf(`{"path":%q}`, fontDir))
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(result.Success).To(BeTrue())
		Expect(*result.Count).To(Equal(1))

		fonts := listFonts()
		Expect(fonts).To(HaveLen(1))
		Expect(fonts[0].Family).To(Equal("Go"))
	})

	It("should scan the system font directories", func() {
		_, result := post("/api/scan", `{"system":true}`)
		Expect(result.Success).To(BeTrue())
		Expect(*result.Count).To(Equal(1))
	})

	It("should reject scans without a target or with a missing root", func() {
		resp, result := post("/api/scan", `{}`)
		Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		Expect(result.Success).To(BeFalse())

		resp, _ = post("/api/scan", fmt.Sprintf(`{"path":%q}`, filepath.Join(tempDir, "missing")))
		Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
	})

	It("should toggle, activate and deactivate fonts", func() {
		post("/api/scan", fmt.Sprintf(`{"path":%q}`, fontDir))

		_, result := post("/api/fonts/toggle", fmt.Sprintf(`{"identity":%q}`, fontPath))
		Expect(result.Success).To(BeTrue())
		Expect(result.Font.Activated).To(BeTrue())

		_, result = post("/api/fonts/activate", fmt.Sprintf(`{"identity":%q}`, fontPath))
		Expect(result.Font.Activated).To(BeTrue())
		Expect(bridge.registered).To(HaveLen(1))

		_, result = post("/api/fonts/deactivate", fmt.Sprintf(`{"identity":%q}`, fontPath))
		Expect(result.Font.Activated).To(BeFalse())
	})

	It("should map failures to status codes", func() {
		resp, result := post("/api/fonts/toggle", `{"identity":"/nowhere.ttf"}`)
		Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		Expect(result.Success).To(BeFalse())

		resp, _ = post("/api/fonts/toggle", `not json`)
		Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))

		post("/api/scan", fmt.Sprintf(`{"path":%q}`, fontDir))
		bridge.fail = platform.ErrUnsupported
		resp, _ = post("/api/fonts/activate", fmt.Sprintf(`{"identity":%q}`, fontPath))
		Expect(resp.StatusCode).To(Equal(http.StatusNotImplemented))

		rec, err := catalog.Get(context.Background(), fontPath)
		Expect(err).NotTo(HaveOccurred())
		Expect(rec.Activated).To(BeFalse())
	})

	It("should sync Google Fonts with the configured key", func() {
		resp, result := post("/api/sync", `{}`)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(*result.Count).To(Equal(1))
		Expect(apiKey).To(Equal("configured-key"))

		_, result = post("/api/sync", `{"directory":"google","apiKey":"request-key"}`)
		Expect(*result.Count).To(Equal(0))
		Expect(apiKey).To(Equal("request-key"))
	})

	It("should report unknown directories", func() {
		resp, result := post("/api/sync", `{"directory":"nowhere"}`)
		Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		Expect(result.Success).To(BeFalse())
	})

	It("should clear the catalog", func() {
		post("/api/scan", fmt.Sprintf(`{"path":%q}`, fontDir))

		req, err := http.NewRequest(http.MethodDelete, api.URL+"/api/fonts", nil)
		Expect(err).NotTo(HaveOccurred())
		resp, err := http.DefaultClient.Do(req)
		Expect(err).NotTo(HaveOccurred())
		resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		Expect(listFonts()).To(BeEmpty())
	})
})
