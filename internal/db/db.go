package db

import (
	"bytes"
	"context"
	"encoding/gob"

	badger "github.com/dgraph-io/badger/v3"
)

type DeviceDB interface {
	GetDevices(ctx context.Context) ([]Device, error)
	GetDevice(ctx context.Context, name string) (Device, error)
	SaveDevice(ctx context.Context, device Device) error
	DeleteDevice(ctx context.Context, name string) error
	Close(ctx context.Context) error
}

func NewDeviceDB(dirname string) (DeviceDB, error) {
	opt := badger.DefaultOptions(dirname)
	opt.ValueLogFileSize = 1024 * 1024 * 40
	opt.Logger = nil

	db, err := badger.Open(opt)
	if err != nil {
		return nil, err
	}

	return &deviceDB{
		db: db,
	}, nil
}

type deviceDB struct {
	db *badger.DB
}

func (d *deviceDB) GetDevices(ctx context.Context) ([]Device, error) {
	var ret []Device
	err := d.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			err := item.Value(func(v []byte) error {
				var dev Device

				dec := gob.NewDecoder(bytes.NewReader(v))
				if err := dec.Decode(&dev); err != nil {
					return err
				}

				ret = append(ret, dev)

				return nil
			})

			if err != nil {
				return err
			}
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return ret, nil
}

func (d *deviceDB) SaveDevice(ctx context.Context, device Device) error {
	buf := bytes.Buffer{}
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(device); err != nil {
		return err
	}

	return d.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(device.Name), buf.Bytes())
	})
}

func (d *deviceDB) DeleteDevice(ctx context.Context, name string) error {
	return d.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(name))
	})
}

func (d *deviceDB) GetDevice(ctx context.Context, name string) (Device, error) {
	var ret Device
	err := d.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(name))
		if err != nil {
			return err
		}

		return item.Value(func(v []byte) error {
			dec := gob.NewDecoder(bytes.NewReader(v))
			return dec.Decode(&ret)
		})
	})

	if err != nil {
		return Device{}, err
	}

	return ret, nil
}

func (d *deviceDB) Close(ctx context.Context) error {
	return d.db.Close()
}
