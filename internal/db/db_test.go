package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeviceDB(t *testing.T) {
	db, err := NewDeviceDB(t.TempDir())
	assert.NoError(t, err)

	ctx := context.Background()

	dev1 := Device{
		Name:           "Kitchen",
		Kind:           "lights",
		Model:          "Loox5 LED",
		Dimmable:       true,
		LastDiscovered: time.Now(),
	}
	dev2 := Device{
		Name:        "Living Room",
		Kind:        "groups",
		Dimmable:    true,
		SupportsCTL: true,
	}

	err = db.SaveDevice(ctx, dev1)
	assert.NoError(t, err)

	err = db.SaveDevice(ctx, dev2)
	assert.NoError(t, err)

	devices, err := db.GetDevices(ctx)
	assert.NoError(t, err)

	assert.Equal(t, 2, len(devices))

	err = db.DeleteDevice(ctx, dev1.Name)
	assert.NoError(t, err)

	devices, err = db.GetDevices(ctx)
	assert.NoError(t, err)

	assert.Equal(t, 1, len(devices))
	assert.Equal(t, dev2.Name, devices[0].Name)
}

func TestGetDevice(t *testing.T) {
	db, err := NewDeviceDB(t.TempDir())
	assert.NoError(t, err)

	ctx := context.Background()

	dev1 := Device{
		Name: "Kitchen",
		Kind: "lights",
	}
	dev2 := Device{
		Name:        "Evening",
		Kind:        "scenes",
		SupportsHSL: true,
	}

	err = db.SaveDevice(ctx, dev1)
	assert.NoError(t, err)

	err = db.SaveDevice(ctx, dev2)
	assert.NoError(t, err)

	device, err := db.GetDevice(ctx, dev2.Name)
	assert.NoError(t, err)

	assert.Equal(t, dev2.Name, device.Name)
	assert.Equal(t, dev2.Kind, device.Kind)
	assert.True(t, device.SupportsHSL)
}

func TestGetDeviceNotExist(t *testing.T) {
	db, err := NewDeviceDB(t.TempDir())
	assert.NoError(t, err)

	_, err = db.GetDevice(context.Background(), "No Such Device")
	assert.Error(t, err)
}

func TestSaveDeviceOverwrites(t *testing.T) {
	db, err := NewDeviceDB(t.TempDir())
	assert.NoError(t, err)

	ctx := context.Background()

	dev := Device{Name: "Kitchen", Kind: "lights"}
	assert.NoError(t, db.SaveDevice(ctx, dev))

	// a later advertisement with a different kind replaces the record
	dev.Kind = "groups"
	assert.NoError(t, db.SaveDevice(ctx, dev))

	devices, err := db.GetDevices(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(devices))
	assert.Equal(t, "groups", devices[0].Kind)
}
