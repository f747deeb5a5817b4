package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blaubaer/audio-session/pkg/audio"
	"github.com/blaubaer/audio-session/pkg/backend/fake"
)

func stereoInputs(t *testing.T) audio.Lets {
	backend := fake.New(fake.NewConfiguration())
	catalog := audio.NewCatalog(backend)
	require.NoError(t, catalog.Initialize())
	devices, err := catalog.ListDevices()
	require.NoError(t, err)
	return devices.Inputs()[0].Inputs()
}

func TestBindLets(t *testing.T) {
	lets := stereoInputs(t)
	regions := [][]byte{audio.NewRegion(16), audio.NewRegion(16)}

	actual, err := bindLets(lets, regions, 16)
	require.NoError(t, err)

	require.Len(t, actual, 1)
	assert.Equal(t, 2, actual.Channels())
	assert.Equal(t, lets.Keys(), actual.Lets().Keys())
	actual[0].Channel(1).Fill(0.25)
	assert.Equal(t, regions[1], actual.Buffers()[1].Region())
	assert.Equal(t, float32(0.25), actual[0].Channel(1).Samples()[15])
}

func TestBindLets_wrongAmountOfRegions(t *testing.T) {
	_, err := bindLets(stereoInputs(t), [][]byte{audio.NewRegion(16)}, 16)

	assert.ErrorContains(t, err, "1 channel regions but 2 channels")
}

func TestBindLets_wrongRegionLength(t *testing.T) {
	_, err := bindLets(stereoInputs(t), [][]byte{audio.NewRegion(16), audio.NewRegion(8)}, 16)

	assert.ErrorContains(t, err, "holds 8 samples but block size is 16")
}

func TestBindLets_empty(t *testing.T) {
	actual, err := bindLets(nil, nil, 16)

	require.NoError(t, err)
	assert.Empty(t, actual)
}
