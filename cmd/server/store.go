package main

import (
	"context"
	"fmt"

	"github.com/kuitang/notebook/internal/config"
	"github.com/kuitang/notebook/internal/crypto"
	"github.com/kuitang/notebook/internal/db"
	"github.com/kuitang/notebook/internal/kv"
	"github.com/kuitang/notebook/internal/s3client"
)

// keyVersion is mixed into derived keys; bump it to rotate.
const keyVersion = 1

// openStore builds the configured backend and checks it is reachable.
func openStore(ctx context.Context, cfg *config.Config) (kv.Store, error) {
	var master []byte
	if cfg.MasterKey != "" {
		var err error
		if master, err = crypto.ParseMasterKey(cfg.MasterKey); err != nil {
			return nil, err
		}
	}

	var store kv.Store
	switch cfg.StoreBackend {
	case config.StoreMemory:
		store = kv.NewMemory()

	case config.StoreSQLite:
		d, err := db.Open(cfg.DatabasePath, crypto.DeriveKey(master, crypto.PurposeSQLite, keyVersion))
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		store = kv.NewSQLite(d)

	case config.StoreS3:
		client, err := s3client.New(ctx, s3client.Config{
			Endpoint:        cfg.AWSEndpointS3,
			Region:          cfg.AWSRegion,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
			BucketName:      cfg.AWSBucketName,
			UsePathStyle:    cfg.AWSUsePathStyle,
		})
		if err != nil {
			return nil, fmt.Errorf("open s3 store: %w", err)
		}
		var sealKey []byte
		if master != nil {
			sealKey = crypto.DeriveKey(master, crypto.PurposeObject, keyVersion)
		}
		if store, err = kv.NewS3(client, cfg.KVPrefix, sealKey); err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	if err := store.Ping(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("%s store unreachable: %w", store.Backend(), err)
	}
	return store, nil
}
