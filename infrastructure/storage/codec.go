package storage

import (
	"echoes/domain"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

// diskEcho is the persisted form of an echo. Timestamps are kept as UnixNano
// so the key ordering and the value agree to the nanosecond.
type diskEcho struct {
	ID        string `cbor:"1,keyasint"`
	Content   string `cbor:"2,keyasint"`
	Signature string `cbor:"3,keyasint,omitempty"`
	At        int64  `cbor:"4,keyasint"`
}

type diskReply struct {
	ID      string `cbor:"1,keyasint"`
	EchoID  string `cbor:"2,keyasint"`
	Content string `cbor:"3,keyasint"`
	At      int64  `cbor:"4,keyasint"`
	IsRead  bool   `cbor:"5,keyasint"`
}

const maxTimestamp = "9999999999999999999"

func echoKey(at time.Time, id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("echo:%019d:%s", at.UnixNano(), id))
}

func echoIndexKey(id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("echoidx:%s", id))
}

func replyPrefix(echoID uuid.UUID) []byte {
	return []byte(fmt.Sprintf("reply:%s:", echoID))
}

func replyKey(echoID uuid.UUID, at time.Time, id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("reply:%s:%019d:%s", echoID, at.UnixNano(), id))
}

func replyIndexKey(id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("replyidx:%s", id))
}

func signaturePrefix(signature domain.SignatureID) []byte {
	return []byte(fmt.Sprintf("sigreply:%s:", signature))
}

func signatureReplyKey(signature domain.SignatureID, at time.Time, id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("sigreply:%s:%019d:%s", signature, at.UnixNano(), id))
}

func fromEcho(echo domain.Echo) diskEcho {
	return diskEcho{
		ID:        echo.ID.String(),
		Content:   echo.Content,
		Signature: echo.Signature.String(),
		At:        echo.CreatedAt.UnixNano(),
	}
}

func toEcho(data []byte) (domain.Echo, error) {
	var d diskEcho
	if err := cbor.Unmarshal(data, &d); err != nil {
		return domain.Echo{}, err
	}
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return domain.Echo{}, err
	}
	return domain.Echo{
		ID:        id,
		Content:   d.Content,
		Signature: domain.SignatureID(d.Signature),
		CreatedAt: time.Unix(0, d.At).UTC(),
	}, nil
}

func fromReply(reply domain.Reply) diskReply {
	return diskReply{
		ID:      reply.ID.String(),
		EchoID:  reply.EchoID.String(),
		Content: reply.Content,
		At:      reply.CreatedAt.UnixNano(),
		IsRead:  reply.IsRead,
	}
}

func toReply(data []byte) (domain.Reply, error) {
	var d diskReply
	if err := cbor.Unmarshal(data, &d); err != nil {
		return domain.Reply{}, err
	}
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return domain.Reply{}, err
	}
	echoID, err := uuid.Parse(d.EchoID)
	if err != nil {
		return domain.Reply{}, err
	}
	return domain.Reply{
		ID:        id,
		EchoID:    echoID,
		Content:   d.Content,
		CreatedAt: time.Unix(0, d.At).UTC(),
		IsRead:    d.IsRead,
	}, nil
}
