package dmdb_test

import (
	"testing"

	"github.com/DeviceTrust/DeviceTrust/pkg/dmdb"
)

func newTestDB(t testing.TB) dmdb.DB {
	return dmdb.NewTrustDB(dmdb.NewOptions(dmdb.WithDir(t.TempDir())))
}
