package api

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/youruser/fabricview/internal/catalog"
	"github.com/youruser/fabricview/internal/config"
	imagepkg "github.com/youruser/fabricview/internal/image"
	"github.com/youruser/fabricview/internal/store"
)

const testFabrics = `id,family,variant,color,texture
linen-slate,Linen,Slate,#5a6470,-
velvet-moss,Velvet,Moss,#4b5d33,textures/moss.png
`

const testProducts = `id,name,image,mask
oslo-sofa,Oslo Sofa,products/oslo.png,
ghost-chair,Ghost Chair,products/missing.png,
`

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *memCache) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key], nil
}

func (m *memCache) Set(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = data
	return nil
}

func pngBytes(t *testing.T, w, h int, c color.NRGBA) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

type testServer struct {
	t        *testing.T
	router   *gin.Engine
	cat      *catalog.Catalog
	cache    *memCache
	dataDir  string
	mediaDir string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	root := t.TempDir()
	dataDir := filepath.Join(root, "data")
	mediaDir := filepath.Join(root, "media")
	writeFile(t, filepath.Join(dataDir, "fabrics.csv"), []byte(testFabrics))
	writeFile(t, filepath.Join(dataDir, "products.csv"), []byte(testProducts))
	writeFile(t, filepath.Join(dataDir, "products", "oslo.png"), pngBytes(t, 200, 100, color.NRGBA{R: 180, G: 170, B: 160, A: 255}))
	writeFile(t, filepath.Join(dataDir, "textures", "moss.png"), pngBytes(t, 8, 8, color.NRGBA{R: 70, G: 90, B: 50, A: 255}))

	cfg := config.Default()
	cfg.Data.Dir = dataDir
	cfg.Media.Dir = mediaDir

	cat, err := catalog.LoadFromDataDir(dataDir, cfg.Data.ProductsFile, cfg.Data.FabricsFile, cfg.Data.MasksFile)
	if err != nil {
		t.Fatal(err)
	}
	loader := &imagepkg.AssetLoader{
		DataDir: dataDir,
		Roots:   map[string]string{cfg.Media.URLPrefix: mediaDir},
	}
	cache := &memCache{data: map[string][]byte{}}
	h := NewHandler(cfg, cat, loader, store.NewFileMaskStore(mediaDir, cfg.Media.URLPrefix), cache)

	r := gin.New()
	RegisterRoutes(r, h)
	return &testServer{t: t, router: r, cat: cat, cache: cache, dataDir: dataDir, mediaDir: mediaDir}
}

func (s *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			s.t.Fatal(err)
		}
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// upload posts a multipart form with one file part of the given content type.
func (s *testServer) upload(path, contentType string, data []byte, fields map[string]string) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		_ = mw.WriteField(k, v)
	}
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", `form-data; name="photo"; filename="room.png"`)
	hdr.Set("Content-Type", contentType)
	part, err := mw.CreatePart(hdr)
	if err != nil {
		s.t.Fatal(err)
	}
	_, _ = part.Write(data)
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// decodeData decodes the data field of a success response into v.
func decodeData(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	var resp struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	if !resp.Success {
		t.Fatalf("response not successful: %s", w.Body.String())
	}
	if err := json.Unmarshal(resp.Data, v); err != nil {
		t.Fatal(err)
	}
}

func expect(t *testing.T, w *httptest.ResponseRecorder, code int) {
	t.Helper()
	if w.Code != code {
		t.Fatalf("status = %d, want %d: %s", w.Code, code, w.Body.String())
	}
}

func TestHealthAndCatalog(t *testing.T) {
	s := newTestServer(t)
	expect(t, s.do(http.MethodGet, "/api/health", nil), http.StatusOK)

	w := s.do(http.MethodGet, "/api/fabrics?family=velvet", nil)
	expect(t, w, http.StatusOK)
	var fabrics struct {
		Count int `json:"count"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &fabrics)
	if fabrics.Count != 1 {
		t.Fatalf("count = %d, want 1", fabrics.Count)
	}

	expect(t, s.do(http.MethodGet, "/api/products/nope", nil), http.StatusNotFound)
	expect(t, s.do(http.MethodGet, "/api/products/oslo-sofa/qr?size=128", nil), http.StatusOK)
}

func TestMaskAuthoringFlow(t *testing.T) {
	s := newTestServer(t)

	// no mask yet, so no preview
	expect(t, s.do(http.MethodGet, "/api/products/oslo-sofa/preview?fabric=linen-slate", nil), http.StatusNotFound)

	w := s.do(http.MethodPost, "/api/mask-sessions", gin.H{"product_id": "oslo-sofa"})
	expect(t, w, http.StatusCreated)
	var sess struct {
		ID    string `json:"id"`
		State string `json:"state"`
		Width int    `json:"width"`
	}
	decodeData(t, w, &sess)
	if sess.State != "ready" || sess.Width != 200 {
		t.Fatalf("session = %+v", sess)
	}
	base := "/api/mask-sessions/" + sess.ID

	expect(t, s.do(http.MethodPost, base+"/tool", gin.H{"tool": "brush", "brush_size": 40}), http.StatusOK)
	expect(t, s.do(http.MethodPost, base+"/events", gin.H{
		"events": []gin.H{
			{"type": "mousedown", "x": 20, "y": 50},
			{"type": "mousemove", "x": 90, "y": 50},
			{"type": "mouseup"},
		},
	}), http.StatusOK)
	expect(t, s.do(http.MethodPost, base+"/events", gin.H{
		"events": []gin.H{{"type": "pinch"}},
	}), http.StatusBadRequest)

	w = s.do(http.MethodGet, base+"/overlay", nil)
	expect(t, w, http.StatusOK)
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("overlay content type = %q", ct)
	}

	w = s.do(http.MethodPost, base+"/save", nil)
	expect(t, w, http.StatusOK)
	var saved struct {
		MaskURL string `json:"mask_url"`
	}
	decodeData(t, w, &saved)
	if !strings.HasPrefix(saved.MaskURL, "/media/masks/oslo-sofa-") {
		t.Fatalf("mask_url = %q", saved.MaskURL)
	}
	p, _ := s.cat.Product("oslo-sofa")
	if p.MaskURL != saved.MaskURL {
		t.Fatalf("product mask = %q, want %q", p.MaskURL, saved.MaskURL)
	}

	w = s.do(http.MethodGet, "/api/products/oslo-sofa/preview?fabric=velvet-moss", nil)
	expect(t, w, http.StatusOK)
	if w.Header().Get("X-Cache") != "miss" {
		t.Fatal("first preview should miss the cache")
	}
	first := w.Body.Bytes()
	w = s.do(http.MethodGet, "/api/products/oslo-sofa/preview?fabric=velvet-moss", nil)
	if w.Header().Get("X-Cache") != "hit" || !bytes.Equal(first, w.Body.Bytes()) {
		t.Fatal("second preview should be served from cache")
	}

	expect(t, s.do(http.MethodDelete, base, nil), http.StatusNoContent)
	expect(t, s.do(http.MethodGet, base, nil), http.StatusNotFound)
	expect(t, s.do(http.MethodDelete, base, nil), http.StatusNotFound)
}

func TestMaskSaveFailureKeepsProduct(t *testing.T) {
	s := newTestServer(t)
	// a directory in place of the temp file makes the override write fail
	if err := os.MkdirAll(filepath.Join(s.dataDir, "masks.json.tmp"), 0o755); err != nil {
		t.Fatal(err)
	}

	w := s.do(http.MethodPost, "/api/mask-sessions", gin.H{"product_id": "oslo-sofa"})
	expect(t, w, http.StatusCreated)
	var sess struct {
		ID string `json:"id"`
	}
	decodeData(t, w, &sess)
	base := "/api/mask-sessions/" + sess.ID
	expect(t, s.do(http.MethodPost, base+"/events", gin.H{
		"events": []gin.H{{"type": "mousedown", "x": 50, "y": 50}, {"type": "mouseup"}},
	}), http.StatusOK)

	expect(t, s.do(http.MethodPost, base+"/save", nil), http.StatusInternalServerError)

	p, _ := s.cat.Product("oslo-sofa")
	if p.MaskURL != "" {
		t.Fatalf("product repointed to %q after failed save", p.MaskURL)
	}
	entries, err := os.ReadDir(filepath.Join(s.mediaDir, "masks"))
	if err != nil && !os.IsNotExist(err) {
		t.Fatal(err)
	}
	for _, e := range entries {
		t.Errorf("orphaned mask file %s", e.Name())
	}
}

func TestMaskSessionWithMissingPhoto(t *testing.T) {
	s := newTestServer(t)
	w := s.do(http.MethodPost, "/api/mask-sessions", gin.H{"product_id": "ghost-chair"})
	expect(t, w, http.StatusCreated)
	var sess struct {
		ID      string `json:"id"`
		State   string `json:"state"`
		CanSave bool   `json:"can_save"`
	}
	decodeData(t, w, &sess)
	if sess.State != "failed" || sess.CanSave {
		t.Fatalf("session = %+v", sess)
	}
	expect(t, s.do(http.MethodPost, "/api/mask-sessions/"+sess.ID+"/save", nil), http.StatusConflict)
	expect(t, s.do(http.MethodGet, "/api/mask-sessions/"+sess.ID+"/overlay", nil), http.StatusConflict)
}

func TestPreviewSession(t *testing.T) {
	s := newTestServer(t)
	// the light product photo doubles as an all-covering mask
	if err := s.cat.SetMaskURL("oslo-sofa", "products/oslo.png"); err != nil {
		t.Fatal(err)
	}

	w := s.do(http.MethodPost, "/api/previews", gin.H{"product_id": "oslo-sofa"})
	expect(t, w, http.StatusCreated)
	var pv struct {
		ID    string `json:"id"`
		State string `json:"state"`
	}
	decodeData(t, w, &pv)
	if pv.State != "idle" {
		t.Fatalf("state = %q", pv.State)
	}
	base := "/api/previews/" + pv.ID

	expect(t, s.do(http.MethodPut, base+"/fabric", gin.H{"fabric_id": "nope"}), http.StatusNotFound)
	expect(t, s.do(http.MethodPut, base+"/fabric", gin.H{"fabric_id": "linen-slate"}), http.StatusAccepted)

	deadline := time.Now().Add(5 * time.Second)
	for {
		decodeData(t, s.do(http.MethodGet, base, nil), &pv)
		if pv.State != "pending" || time.Now().After(deadline) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if pv.State != "ready" {
		t.Fatalf("state = %q, want ready", pv.State)
	}
	expect(t, s.do(http.MethodGet, base+"/image?format=jpg", nil), http.StatusOK)
}

func TestBlendSession(t *testing.T) {
	s := newTestServer(t)
	photo := pngBytes(t, 60, 40, color.NRGBA{R: 120, G: 110, B: 100, A: 255})

	expect(t, s.upload("/api/blend-sessions", "text/plain", photo, map[string]string{"fabric_id": "linen-slate"}), http.StatusBadRequest)
	expect(t, s.upload("/api/blend-sessions", "image/png", photo, map[string]string{"fabric_id": "nope"}), http.StatusNotFound)
	expect(t, s.upload("/api/blend-sessions", "image/png", []byte("garbage"), map[string]string{"fabric_id": "linen-slate"}), http.StatusBadRequest)

	w := s.upload("/api/blend-sessions", "image/png", photo, map[string]string{"fabric_id": "linen-slate", "intensity": "0.8"})
	expect(t, w, http.StatusCreated)
	var bv struct {
		ID        string  `json:"id"`
		Intensity float64 `json:"intensity"`
		Width     int     `json:"width"`
	}
	decodeData(t, w, &bv)
	if bv.Intensity != 0.8 || bv.Width != 60 {
		t.Fatalf("blend = %+v", bv)
	}
	base := "/api/blend-sessions/" + bv.ID

	w = s.do(http.MethodPut, base, gin.H{"intensity": 7})
	expect(t, w, http.StatusOK)
	decodeData(t, w, &bv)
	if bv.Intensity != 1 {
		t.Fatalf("intensity = %v, want clamped 1", bv.Intensity)
	}

	w = s.do(http.MethodGet, base+"/export", nil)
	expect(t, w, http.StatusOK)
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "fabric-linen-slate.png") {
		t.Fatalf("Content-Disposition = %q", cd)
	}
	expect(t, s.do(http.MethodGet, base+"/export?format=tiff", nil), http.StatusBadRequest)

	expect(t, s.do(http.MethodPost, base+"/reset", nil), http.StatusOK)
	expect(t, s.do(http.MethodGet, base+"/export", nil), http.StatusConflict)
	expect(t, s.upload(base+"/photo", "image/png", photo, nil), http.StatusOK)
	expect(t, s.do(http.MethodGet, base+"/image", nil), http.StatusOK)
}

func TestSceneSession(t *testing.T) {
	s := newTestServer(t)
	w := s.do(http.MethodPost, "/api/scene-sessions", gin.H{"product_id": "oslo-sofa", "width": 400, "height": 300})
	expect(t, w, http.StatusCreated)
	var sv struct {
		ID    string `json:"id"`
		State string `json:"state"`
	}
	decodeData(t, w, &sv)
	base := "/api/scene-sessions/" + sv.ID

	expect(t, s.do(http.MethodGet, base+"/export", nil), http.StatusConflict)
	expect(t, s.upload(base+"/photo", "image/png", pngBytes(t, 800, 600, color.NRGBA{R: 90, G: 100, B: 110, A: 255}), nil), http.StatusOK)

	w = s.do(http.MethodPost, base+"/events", gin.H{"events": []gin.H{
		{"type": "press", "x": 200, "y": 150},
		{"type": "move", "x": 10000, "y": 150},
		{"type": "release"},
	}})
	expect(t, w, http.StatusOK)
	var moved struct {
		Session struct {
			Transform struct {
				ProductX float64 `json:"product_x"`
			} `json:"transform"`
		} `json:"session"`
	}
	decodeData(t, w, &moved)
	if moved.Session.Transform.ProductX != 100 {
		t.Fatalf("product_x = %v, want 100", moved.Session.Transform.ProductX)
	}

	expect(t, s.do(http.MethodPost, base+"/controls", gin.H{"action": "grow"}), http.StatusOK)
	expect(t, s.do(http.MethodPost, base+"/controls", gin.H{"action": "spin"}), http.StatusBadRequest)

	w = s.do(http.MethodGet, base+"/export?qr=1", nil)
	expect(t, w, http.StatusOK)
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "room-preview-oslo-sofa.png") {
		t.Fatalf("Content-Disposition = %q", cd)
	}
	img, err := png.Decode(bytes.NewReader(w.Body.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 800 || b.Dy() != 600 {
		t.Fatalf("export = %v, want 800x600", b)
	}

	expect(t, s.do(http.MethodPost, base+"/reset", nil), http.StatusOK)
	expect(t, s.do(http.MethodGet, base+"/preview", nil), http.StatusConflict)
	expect(t, s.do(http.MethodDelete, base, nil), http.StatusNoContent)
}

func TestSceneViewportValidation(t *testing.T) {
	s := newTestServer(t)
	expect(t, s.do(http.MethodPost, "/api/scene-sessions", gin.H{"product_id": "oslo-sofa", "width": -400, "height": 300}), http.StatusBadRequest)

	w := s.do(http.MethodPost, "/api/scene-sessions", gin.H{"product_id": "oslo-sofa", "width": 400, "height": 300})
	expect(t, w, http.StatusCreated)
	var sv struct {
		ID string `json:"id"`
	}
	decodeData(t, w, &sv)
	base := "/api/scene-sessions/" + sv.ID

	expect(t, s.do(http.MethodPost, base+"/controls", gin.H{"action": "viewport", "x": 0, "y": 0}), http.StatusBadRequest)

	w = s.do(http.MethodPost, base+"/controls", gin.H{"action": "viewport", "x": 50000, "y": 50000})
	expect(t, w, http.StatusOK)
	var got struct {
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
	}
	decodeData(t, w, &got)
	if got.Width != 4096 || got.Height != 4096 {
		t.Fatalf("viewport = %vx%v, want 4096x4096", got.Width, got.Height)
	}
}
