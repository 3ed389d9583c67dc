package storage

import (
	"fmt"
	"strings"
	"time"
)

const (
	KindEcho   = "ECHO"
	KindReply  = "REPLY"
	KindIndex  = "INDEX"
	KindDevice = "DEVICE"
	KindRaw    = "RAW"
)

// Entry is a readable view of one raw Badger key/value pair, used by the inspectors.
type Entry struct {
	Key    string
	Kind   string
	At     time.Time
	ID     string
	Detail string
}

// Describe decodes a key/value pair written by EchoGateway or KeyValueStore.
// Values that fail to decode are reported as RAW instead of failing the scan.
func Describe(key, value []byte) Entry {
	k := string(key)
	entry := Entry{Key: k, Kind: KindRaw, Detail: fmt.Sprintf("Size: %d bytes", len(value))}

	switch {
	case strings.HasPrefix(k, "echo:"):
		echo, err := toEcho(value)
		if err != nil {
			return entry
		}
		entry.Kind = KindEcho
		entry.At = echo.CreatedAt
		entry.ID = echo.ID.String()
		entry.Detail = echo.Content
		if !echo.Signature.IsZero() {
			entry.Detail = fmt.Sprintf("[%s] %s", echo.Signature, echo.Content)
		}
	case strings.HasPrefix(k, "reply:"):
		reply, err := toReply(value)
		if err != nil {
			return entry
		}
		entry.Kind = KindReply
		entry.At = reply.CreatedAt
		entry.ID = reply.ID.String()
		entry.Detail = fmt.Sprintf("-> %s read=%t %s", reply.EchoID, reply.IsRead, reply.Content)
	case strings.HasPrefix(k, "echoidx:"), strings.HasPrefix(k, "replyidx:"), strings.HasPrefix(k, "sigreply:"):
		entry.Kind = KindIndex
		entry.Detail = string(value)
	case strings.HasPrefix(k, devicePrefix):
		entry.Kind = KindDevice
		entry.Detail = string(value)
	}
	return entry
}
