package storage

import (
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

func TestDescribe_EveryKeyFamily(t *testing.T) {
	req := require.New(t)
	gateway, _ := newGateway(t)
	echo := post(t, gateway, "hello", "S")
	created := reply(t, gateway, echo.ID, "hi back")
	req.NoError(NewKeyValueStore(gateway.db).Set("device-signature", []byte("S")))

	kinds := make(map[string][]Entry)
	err := gateway.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			value, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			entry := Describe(it.Item().KeyCopy(nil), value)
			kinds[entry.Kind] = append(kinds[entry.Kind], entry)
		}
		return nil
	})
	req.NoError(err)

	req.Len(kinds[KindEcho], 1)
	req.Equal(echo.ID.String(), kinds[KindEcho][0].ID)
	req.Equal("[S] hello", kinds[KindEcho][0].Detail)
	req.Equal(echo.CreatedAt, kinds[KindEcho][0].At)

	req.Len(kinds[KindReply], 1)
	req.Equal(created.ID.String(), kinds[KindReply][0].ID)
	req.Contains(kinds[KindReply][0].Detail, "read=false")

	req.Len(kinds[KindIndex], 3)
	req.Len(kinds[KindDevice], 1)
	req.Empty(kinds[KindRaw])
}

func TestDescribe_UndecodableValueIsRaw(t *testing.T) {
	entry := Describe([]byte("echo:0000000000000000001:x"), []byte{0xff, 0x00})
	require.Equal(t, KindRaw, entry.Kind)
	require.Equal(t, "Size: 2 bytes", entry.Detail)
}
