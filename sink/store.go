package sink

import (
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/arloliu/go-ezo/ezo"
)

// Store keeps the latest reading of every device field. It is safe for
// concurrent use: the control loop writes while HTTP handlers read.
type Store struct {
	readings *xsync.MapOf[string, Reading]
	now      func() time.Time
}

var _ Factory = (*Store)(nil)

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		readings: xsync.NewMapOf[string, Reading](),
		now:      time.Now,
	}
}

func storeKey(device, field string) string {
	return device + "/" + field
}

// Sink returns the sink recording readings of device field.
func (s *Store) Sink(device, field string) ezo.Sink {
	key := storeKey(device, field)

	return ezo.SinkFunc(func(value float64) {
		s.readings.Store(key, Reading{Device: device, Field: field, Value: value, Time: s.now()})
	})
}

// Get returns the latest reading of device field.
func (s *Store) Get(device, field string) (Reading, bool) {
	return s.readings.Load(storeKey(device, field))
}

// Len returns the number of device fields with a reading.
func (s *Store) Len() int { return s.readings.Size() }

// Snapshot returns all latest readings ordered by device and field.
func (s *Store) Snapshot() []Reading {
	readings := make([]Reading, 0, s.readings.Size())
	s.readings.Range(func(_ string, r Reading) bool {
		readings = append(readings, r)
		return true
	})

	sort.Slice(readings, func(i, j int) bool {
		if readings[i].Device != readings[j].Device {
			return readings[i].Device < readings[j].Device
		}

		return readings[i].Field < readings[j].Field
	})

	return readings
}

// Handler serves the snapshot as JSON. The optional "device" query
// parameter filters by device.
func (s *Store) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		readings := s.Snapshot()
		if device := r.URL.Query().Get("device"); device != "" {
			filtered := readings[:0]
			for _, rd := range readings {
				if rd.Device == device {
					filtered = append(filtered, rd)
				}
			}
			readings = filtered
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(readings); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
}
