package output

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// Canonical encoding for snapshots: JSON objects with keys sorted
// bytewise, NFC-normalized strings, no HTML escaping, and shortest
// round-trip float formatting. Two snapshots encode to identical bytes
// iff their recorded fields are identical, which is what golden traces
// and replay hashes compare.

// Canonical returns the canonical encoding of the full snapshot,
// including run-scoped identity (serial, parent serial, observer).
// Used for golden traces, where serials are sequential and stable.
func (s Snapshot) Canonical() []byte {
	return encodeCanonical(s.canonicalMap(true))
}

// Hash returns the hex SHA-256 of the replay-stable subset: everything
// except serials, which differ between a recorded run and its replay.
func (s Snapshot) Hash() string {
	sum := sha256.Sum256(encodeCanonical(s.canonicalMap(false)))
	return hex.EncodeToString(sum[:])
}

func (s Snapshot) canonicalMap(identity bool) map[string]any {
	m := map[string]any{
		"lineage":           s.Lineage,
		"particle_id":       s.ParticleID,
		"source_energy":     s.SourceEnergy,
		"current_energy":    s.CurrentEnergy,
		"x":                 s.Position.X,
		"y":                 s.Position.Y,
		"z":                 s.Position.Z,
		"dir_x":             s.Direction.X,
		"dir_y":             s.Direction.Y,
		"dir_z":             s.Direction.Z,
		"redshift":          s.Redshift,
		"trajectory_length": s.TrajectoryLength,
	}
	if s.Cause != "" {
		m["cause"] = s.Cause
	}
	if identity {
		m["serial"] = s.Serial
		if s.ParentSerial != "" {
			m["parent_serial"] = s.ParentSerial
		}
		if s.Observer != "" {
			m["observer"] = s.Observer
		}
	}
	return m
}

// EncodeTrace canonically encodes a snapshot list as a JSON array.
// Used by the scenario harness for golden comparison.
func EncodeTrace(snapshots []Snapshot) []byte {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, s := range snapshots {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
		buf.Write(s.Canonical())
	}
	buf.WriteString("\n]\n")
	return buf.Bytes()
}

func encodeCanonical(m map[string]any) []byte {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(encodeString(k))
		buf.WriteByte(':')
		buf.Write(encodeValue(m[k]))
	}
	buf.WriteByte('}')
	return buf.Bytes()
}

func encodeValue(v any) []byte {
	switch val := v.(type) {
	case string:
		return encodeString(val)
	case int:
		return []byte(strconv.Itoa(val))
	case float64:
		return []byte(strconv.FormatFloat(val, 'g', -1, 64))
	default:
		return encodeString(fmt.Sprintf("%v", val))
	}
}

// encodeString writes a JSON string with NFC normalization and without
// HTML escaping.
func encodeString(s string) []byte {
	s = norm.NFC.String(s)
	var buf bytes.Buffer
	buf.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if r < 0x20 {
				buf.WriteString(fmt.Sprintf(`\u%04x`, r))
			} else {
				buf.WriteRune(r)
			}
		}
	}
	buf.WriteByte('"')
	return buf.Bytes()
}
