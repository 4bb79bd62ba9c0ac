package query

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ternarybob/cascade/internal/models"
)

func TestStatusFilter(t *testing.T) {
	tests := []struct {
		name     string
		statuses []models.Status
		want     string
	}{
		{"empty", nil, ""},
		{"single", []models.Status{"idle"}, "idle"},
		{"ordered", []models.Status{"waiting", "idle"}, "waiting|idle"},
		{"duplicates kept", []models.Status{"idle", "idle"}, "idle|idle"},
		{"unknown passed through", []models.Status{"bogus", "queued"}, "bogus|queued"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFilter(tt.statuses))
		})
	}
}

func TestBuilder_EmptyFilterOmitsStatus(t *testing.T) {
	v := New().Statuses(nil).Keys("task_id").Values()

	_, ok := v[ParamStatus]
	assert.False(t, ok, "status parameter should be omitted for an empty filter")
	assert.Equal(t, "task_id", v.Get(ParamKeys))
}

func TestBuilder_Encode(t *testing.T) {
	b := New().
		Statuses([]models.Status{models.StatusIdle, models.StatusWaiting}).
		Keys("job_id").
		Job("j1")

	assert.Equal(t, "job_id=j1&keys=job_id&status=idle|waiting", b.Encode())
}
