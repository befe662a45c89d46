package refdata

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bluedeem/clinic-ai-platform/pkg/logging"
)

type fakeSource struct {
	doctors      []map[string]string
	branches     []map[string]string
	services     []map[string]string
	availability []map[string]string
	err          error
}

func (f *fakeSource) Doctors(context.Context) ([]map[string]string, error) {
	return f.doctors, f.err
}
func (f *fakeSource) Branches(context.Context) ([]map[string]string, error) {
	return f.branches, f.err
}
func (f *fakeSource) Services(context.Context) ([]map[string]string, error) {
	return f.services, f.err
}
func (f *fakeSource) Availability(context.Context) ([]map[string]string, error) {
	return f.availability, f.err
}

func doctorRow(id, name string) map[string]string {
	row := map[string]string{
		"doctor_id": id, "doctor_name": name, "specialty": "جلدية",
		"branch_id": "B1", "days": "Sun-Thu", "time_from": "09:00",
		"time_to": "17:00", "phone": "", "email": "",
		"experience_years": "", "qualifications": "", "notes": "",
	}
	return row
}

func TestProviderRefreshSwapsSnapshot(t *testing.T) {
	src := &fakeSource{doctors: []map[string]string{doctorRow("D1", "د. سارة")}}
	p := NewProvider(src, logging.Default())

	assert.Nil(t, p.Current(), "no snapshot before first refresh")

	require.NoError(t, p.Refresh(context.Background()))
	first := p.Current()
	require.NotNil(t, first)
	assert.Len(t, first.Doctors(), 1)

	src.doctors = append(src.doctors, doctorRow("D2", "د. خالد"))
	require.NoError(t, p.Refresh(context.Background()))
	second := p.Current()
	assert.Len(t, second.Doctors(), 2)
	// The previously published snapshot is untouched.
	assert.Len(t, first.Doctors(), 1)
}

func TestProviderRefreshFailureKeepsStale(t *testing.T) {
	src := &fakeSource{doctors: []map[string]string{doctorRow("D1", "د. سارة")}}
	p := NewProvider(src, logging.Default())
	require.NoError(t, p.Refresh(context.Background()))

	src.err = errors.New("sheet unreachable")
	err := p.Refresh(context.Background())
	require.Error(t, err)
	assert.NotNil(t, p.Current(), "stale snapshot survives a failed refresh")
	assert.Len(t, p.Current().Doctors(), 1)
}

func TestProviderRefreshSchemaError(t *testing.T) {
	src := &fakeSource{doctors: []map[string]string{{"doctor_id": "D1"}}}
	p := NewProvider(src, logging.Default())
	err := p.Refresh(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing columns")
}
