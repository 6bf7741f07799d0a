package sink

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/arloliu/go-ezo/ezo"
	"github.com/arloliu/go-ezo/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordSink struct {
	values []float64
}

func (s *recordSink) PublishState(v float64) { s.values = append(s.values, v) }

func TestFanout(t *testing.T) {
	a, b := &recordSink{}, &recordSink{}

	s := Fanout(a, b)
	s.PublishState(1.5)
	s.PublishState(2.5)

	assert.Equal(t, []float64{1.5, 2.5}, a.values)
	assert.Equal(t, []float64{1.5, 2.5}, b.values)

	assert.Same(t, a, Fanout(a), "single sink is returned as is")
	assert.NotPanics(t, func() { Fanout().PublishState(1) })
}

func TestForFields(t *testing.T) {
	var created []string
	recorded := map[string]*recordSink{}
	factory := FactoryFunc(func(device, field string) ezo.Sink {
		created = append(created, device+"/"+field)
		s := &recordSink{}
		recorded[field] = s

		return s
	})
	store := NewStore()

	sinks := ForFields("tank", []string{"ec", "tds"}, factory, nil, store)
	require.Len(t, sinks, 2)
	sinks[0].PublishState(1413)
	sinks[1].PublishState(706)

	assert.Equal(t, []string{"tank/ec", "tank/tds"}, created)
	assert.Equal(t, []float64{1413}, recorded["ec"].values)
	assert.Equal(t, []float64{706}, recorded["tds"].values)

	r, ok := store.Get("tank", "tds")
	require.True(t, ok)
	assert.InDelta(t, 706, r.Value, 1e-9)
}

func TestLog(t *testing.T) {
	l := logger.NewMockLogger().AllowAll()

	Log(l).Sink("tank", "ph").PublishState(7.01)

	assert.Equal(t, 1, l.CountCalls("Info", "sink: reading"))
}

func TestStore(t *testing.T) {
	assert := assert.New(t)

	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store := NewStore()
	store.now = func() time.Time { return ts }

	store.Sink("tank", "ph").PublishState(7)
	store.Sink("tank", "ph").PublishState(7.2)
	store.Sink("pool", "orp").PublishState(650)

	r, ok := store.Get("tank", "ph")
	require.True(t, ok)
	assert.Equal(Reading{Device: "tank", Field: "ph", Value: 7.2, Time: ts}, r)

	_, ok = store.Get("tank", "orp")
	assert.False(ok)

	assert.Equal(2, store.Len())
	snapshot := store.Snapshot()
	require.Len(t, snapshot, 2)
	assert.Equal("pool", snapshot[0].Device)
	assert.Equal("tank", snapshot[1].Device)
}

func TestStore_Handler(t *testing.T) {
	store := NewStore()
	store.Sink("tank", "ph").PublishState(7)
	store.Sink("pool", "orp").PublishState(650)

	t.Run("all", func(t *testing.T) {
		rec := httptest.NewRecorder()
		store.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readings", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var readings []Reading
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &readings))
		assert.Len(t, readings, 2)
	})

	t.Run("filtered", func(t *testing.T) {
		rec := httptest.NewRecorder()
		store.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readings?device=tank", nil))

		var readings []Reading
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &readings))
		require.Len(t, readings, 1)
		assert.Equal(t, "ph", readings[0].Field)
		assert.InDelta(t, 7, readings[0].Value, 1e-9)
	})
}

func TestGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	g, err := NewGauge(reg)
	require.NoError(t, err)

	g.Sink("tank", "ph").PublishState(6.8)
	g.Sink("tank", "ph").PublishState(6.9)

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	assert.Equal(t, "ezo_reading", families[0].GetName())

	metrics := families[0].GetMetric()
	require.Len(t, metrics, 1)
	assert.InDelta(t, 6.9, metrics[0].GetGauge().GetValue(), 1e-9)

	_, err = NewGauge(reg)
	require.Error(t, err, "duplicate registration")
}
