// Package backup exports and restores the key-value store, locally as JSON or
// MessagePack files and remotely in an S3-compatible bucket (Cloudflare R2).
package backup

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/reportdesk/internal/modules/kvstore"
)

// ArchiveVersion is written into every archive produced by this package.
const ArchiveVersion = 1

// Format is the encoding of an archive.
type Format string

const (
	FormatJSON    Format = "json"
	FormatMsgpack Format = "msgpack"
)

// ErrUnsupportedFormat is returned for an encoding this package does not handle.
var ErrUnsupportedFormat = errors.New("unsupported backup format")

// ErrMalformedArchive is returned when archive data cannot be decoded.
var ErrMalformedArchive = errors.New("malformed backup archive")

// Archive is the full content of the store at one point in time.
type Archive struct {
	Version   int             `json:"version" msgpack:"version"`
	CreatedAt time.Time       `json:"created_at" msgpack:"created_at"`
	BackupID  string          `json:"backup_id" msgpack:"backup_id"`
	Data      []kvstore.Entry `json:"data" msgpack:"data"`
}

// Extension returns the file extension of format, with the dot.
func (f Format) Extension() string {
	return "." + string(f)
}

// ContentType returns the MIME type of format.
func (f Format) ContentType() string {
	if f == FormatMsgpack {
		return "application/x-msgpack"
	}
	return "application/json"
}

// ParseFormat converts a format name, file name or MIME type to a Format. An empty
// string selects JSON.
func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case s == "", s == "json", strings.HasPrefix(s, "application/json"), path.Ext(s) == ".json":
		return FormatJSON, nil
	case s == "msgpack", strings.HasPrefix(s, "application/x-msgpack"),
		strings.HasPrefix(s, "application/msgpack"), path.Ext(s) == ".msgpack":
		return FormatMsgpack, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// Encode serializes archive. JSON archives are indented for reading by hand.
func Encode(archive Archive, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(archive, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode JSON archive: %w", err)
		}
		return data, nil
	case FormatMsgpack:
		data, err := msgpack.Marshal(&archive)
		if err != nil {
			return nil, fmt.Errorf("failed to encode MessagePack archive: %w", err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

// Decode parses archive data. JSON input may be the object form or a bare array of
// entries; entries with an empty key are dropped.
func Decode(data []byte, format Format) (Archive, error) {
	var archive Archive
	switch format {
	case FormatJSON:
		trimmed := bytes.TrimSpace(data)
		if len(trimmed) > 0 && trimmed[0] == '[' {
			if err := json.Unmarshal(trimmed, &archive.Data); err != nil {
				return Archive{}, fmt.Errorf("%w: %v", ErrMalformedArchive, err)
			}
			break
		}
		if err := json.Unmarshal(trimmed, &archive); err != nil {
			return Archive{}, fmt.Errorf("%w: %v", ErrMalformedArchive, err)
		}
	case FormatMsgpack:
		if err := msgpack.Unmarshal(data, &archive); err != nil {
			return Archive{}, fmt.Errorf("%w: %v", ErrMalformedArchive, err)
		}
	default:
		return Archive{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	entries := archive.Data[:0]
	for _, e := range archive.Data {
		if e.Key != "" {
			entries = append(entries, e)
		}
	}
	archive.Data = entries
	return archive, nil
}
