package api

import (
	"bytes"
	"encoding/json"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/endless-terrain/internal/compute"
	"github.com/annel0/endless-terrain/internal/export"
	"github.com/annel0/endless-terrain/internal/terrain"
	"github.com/annel0/endless-terrain/internal/world"
)

type fakeStats struct{}

func (fakeStats) Stats() world.StreamerStats {
	return world.StreamerStats{Chunks: 25, Visible: 21}
}

func newTestServer(t *testing.T) *PreviewServer {
	t.Helper()
	q := compute.NewQueue(compute.WithExecutor(compute.NewGoroutineExecutor()))
	t.Cleanup(q.Close)

	s := world.DefaultSettings()
	s.PreviewWidth, s.PreviewHeight = 33, 17
	s.Regions = []terrain.Region{
		{Name: "low", Height: 0.5, Color: color.RGBA{0, 0, 255, 255}},
		{Name: "high", Height: 1, Color: color.RGBA{0, 255, 0, 255}},
	}
	gen := world.NewMapGenerator(s, q, nil)

	reg := prometheus.NewRegistry()
	return NewPreviewServer(Config{
		Generator:  gen,
		Streamer:   fakeStats{},
		DrawMode:   world.DrawColourMap,
		Registerer: reg,
		Gatherer:   reg,
	})
}

func do(ps *PreviewServer, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	ps.Handler().ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func TestPreviewServer_Health(t *testing.T) {
	ps := newTestServer(t)
	w := do(ps, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestPreviewServer_Regenerate(t *testing.T) {
	ps := newTestServer(t)

	w := do(ps, http.MethodPost, "/api/regenerate?mode=mesh")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool                   `json:"success"`
		Data    map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "mesh", resp.Data["mode"])
	assert.Equal(t, 33.0, resp.Data["width"])
	assert.Equal(t, float64(33*17), resp.Data["vertices"])

	w = do(ps, http.MethodPost, "/api/regenerate?mode=voxel")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPreviewServer_PreviewPNG(t *testing.T) {
	ps := newTestServer(t)

	w := do(ps, http.MethodGet, "/api/preview.png")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	img, err := png.Decode(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 33, img.Bounds().Dx())
	assert.Equal(t, 17, img.Bounds().Dy())

	w = do(ps, http.MethodGet, "/api/preview.png?mode=noise&size=66")
	require.Equal(t, http.StatusOK, w.Code)
	img, err = png.Decode(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 66, img.Bounds().Dx(), "миниатюра масштабируется по большей стороне")
	assert.Equal(t, world.DrawNoiseMap, ps.gen.LastPreview().Mode)

	w = do(ps, http.MethodGet, "/api/preview.png?size=0")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPreviewServer_MeshOBJ(t *testing.T) {
	ps := newTestServer(t)

	w := do(ps, http.MethodGet, "/api/mesh.obj")
	require.Equal(t, http.StatusOK, w.Code)
	v, f, err := export.Counts(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 33*17, v)
	assert.Equal(t, 32*16*2, f)

	w = do(ps, http.MethodGet, "/api/mesh.obj?compress=zstd")
	require.Equal(t, http.StatusOK, w.Code)
	dec, err := zstd.NewReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer dec.Close()
	v, _, err = export.Counts(dec)
	require.NoError(t, err)
	assert.Equal(t, 33*17, v)
}

func TestPreviewServer_Stats(t *testing.T) {
	ps := newTestServer(t)

	w := do(ps, http.MethodGet, "/api/stats")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data struct {
			Streamer world.StreamerStats    `json:"streamer"`
			Server   map[string]interface{} `json:"server"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 25, resp.Data.Streamer.Chunks)
	assert.Equal(t, 21, resp.Data.Streamer.Visible)
	assert.Contains(t, resp.Data.Server, "uptime")
}

func TestPreviewServer_Metrics(t *testing.T) {
	ps := newTestServer(t)
	do(ps, http.MethodGet, "/health")

	w := do(ps, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "terrain_preview_http_request_duration_seconds")
}

func TestServerMetrics_Uptime(t *testing.T) {
	sm := &ServerMetrics{StartTime: time.Now().Add(-(26*time.Hour + 3*time.Minute + 4*time.Second))}
	assert.Equal(t, "1д 2ч 3м 4с", sm.GetUptime())

	sm.StartTime = time.Now().Add(-5 * time.Second)
	assert.Equal(t, "5с", sm.GetUptime())
}
