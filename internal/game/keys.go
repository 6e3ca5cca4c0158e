package game

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
)

// Key encodings for the ordered key-value store. The encodings are
// order-preserving: owner bytes first, then big-endian start time, then
// big-endian seed, so "all sessions for owner X" is one contiguous range and
// ranges iterate in start-time order. Segment keys append a big-endian
// segment index so a prefix scan yields segments in append order. Start
// times are unix nanoseconds and therefore non-negative, which keeps the
// big-endian byte order aligned with numeric order.

var (
	prefixMeta     = []byte("meta:")
	prefixSegment  = []byte("seg:")
	prefixSnapshot = []byte("snap:")
	prefixMatch    = []byte("match:")
	prefixProfile  = []byte("prof:")
	prefixBoard    = []byte("board:")
)

const sessionKeyLen = 16 + 8 + 8

func encodeSessionID(id SessionID) []byte {
	b := make([]byte, 0, sessionKeyLen)
	b = append(b, id.Owner[:]...)
	b = binary.BigEndian.AppendUint64(b, uint64(id.StartTime))
	b = binary.BigEndian.AppendUint64(b, id.Seed)
	return b
}

func decodeSessionID(b []byte) (SessionID, error) {
	if len(b) != sessionKeyLen {
		return SessionID{}, fmt.Errorf("session key has length %d, want %d", len(b), sessionKeyLen)
	}
	var id SessionID
	copy(id.Owner[:], b[:16])
	id.StartTime = int64(binary.BigEndian.Uint64(b[16:24]))
	id.Seed = binary.BigEndian.Uint64(b[24:32])
	return id, nil
}

// MetaKey is the directory key for one session.
func MetaKey(id SessionID) []byte {
	return append(append([]byte(nil), prefixMeta...), encodeSessionID(id)...)
}

// MetaPrefix covers every session's directory entry.
func MetaPrefix() []byte {
	return append([]byte(nil), prefixMeta...)
}

// OwnerMetaPrefix covers the directory entries of a single owner.
func OwnerMetaPrefix(owner uuid.UUID) []byte {
	return append(append([]byte(nil), prefixMeta...), owner[:]...)
}

// SessionIDFromMetaKey recovers the SessionID from a directory key.
func SessionIDFromMetaKey(key []byte) (SessionID, error) {
	if len(key) < len(prefixMeta) {
		return SessionID{}, fmt.Errorf("meta key too short")
	}
	return decodeSessionID(key[len(prefixMeta):])
}

// SegmentKey addresses segment idx of a session.
func SegmentKey(id SessionID, idx uint32) []byte {
	b := append(append([]byte(nil), prefixSegment...), encodeSessionID(id)...)
	return binary.BigEndian.AppendUint32(b, idx)
}

// SegmentPrefix covers all segments of one session, in index order.
func SegmentPrefix(id SessionID) []byte {
	return append(append([]byte(nil), prefixSegment...), encodeSessionID(id)...)
}

// SnapshotKey addresses the latest reconstructed state of a session.
func SnapshotKey(id SessionID) []byte {
	return append(append([]byte(nil), prefixSnapshot...), encodeSessionID(id)...)
}

// MatchKey addresses a persisted match record.
func MatchKey(matchID uuid.UUID) []byte {
	return append(append([]byte(nil), prefixMatch...), matchID[:]...)
}

// MatchPrefix covers every match record.
func MatchPrefix() []byte {
	return append([]byte(nil), prefixMatch...)
}

// MatchIDFromKey recovers the match id from a match key.
func MatchIDFromKey(key []byte) (uuid.UUID, error) {
	if len(key) != len(prefixMatch)+16 {
		return uuid.Nil, fmt.Errorf("malformed match key")
	}
	return uuid.FromBytes(key[len(prefixMatch):])
}

// ProfileKey addresses a player profile.
func ProfileKey(player uuid.UUID) []byte {
	return append(append([]byte(nil), prefixProfile...), player[:]...)
}

// BoardKey addresses a shared custom board by name.
func BoardKey(name string) []byte {
	return append(append([]byte(nil), prefixBoard...), name...)
}

// BoardPrefix covers every custom board, in name order.
func BoardPrefix() []byte {
	return append([]byte(nil), prefixBoard...)
}

// BoardNameFromKey recovers the board name from a board key.
func BoardNameFromKey(key []byte) (string, error) {
	if len(key) <= len(prefixBoard) {
		return "", fmt.Errorf("malformed board key")
	}
	return string(key[len(prefixBoard):]), nil
}
