package devdir

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchKnownUser(t *testing.T) {
	f := NewFetcher(map[string]User{
		"Alice@Example.com": {
			HomeDepartment:      "Network Ops",
			IsDepartmentManager: true,
			Functions:           []string{"reports: read", "reports: export"},
			Groups:              []string{"netops@example.com"},
		},
	})

	rec, err := f.Fetch(context.Background(), "ALICE@example.com")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", rec.PrimaryEmail)
	assert.Equal(t, "Network Ops", rec.HomeDepartment)
	assert.True(t, rec.IsDepartmentManager)
	assert.Equal(t, "reports: read\nreports: export", rec.RawFunctions, "function lines are joined for the mapper")
	assert.Equal(t, []string{"netops@example.com"}, rec.Groups)
}

func TestFetchUnknownUser(t *testing.T) {
	f := NewFetcher(nil)
	_, err := f.Fetch(context.Background(), "nobody@example.com")
	assert.Error(t, err)
}
