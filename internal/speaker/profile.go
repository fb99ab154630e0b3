package speaker

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"regexp"
	"strings"
)

const profileFormatVersion uint32 = 1

// Profile is a SpeakerProfile per spec.md §3: created by enroll,
// mutated by the pipeline via EMA, destroyed by explicit
// `speakers --remove`.
type Profile struct {
	Name        string
	Embedding   Embedding
	UpdateCount uint64
}

// Slug converts a speaker name into the filesystem-safe key the
// profile is persisted under, disallowing path separators.
func Slug(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))
	slug := nonSlugChars.ReplaceAllString(lower, "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "speaker"
	}
	return slug
}

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Marshal encodes a Profile in the on-disk layout from spec.md §6:
// little-endian u32 version=1, u32 dim, f32[dim] embedding,
// u64 update_count, u16 name_len, utf8 name.
func (p Profile) Marshal() ([]byte, error) {
	nameBytes := []byte(p.Name)
	if len(nameBytes) > 0xFFFF {
		return nil, fmt.Errorf("speaker name too long: %d bytes", len(nameBytes))
	}

	buf := &bytes.Buffer{}
	if err := binary.Write(buf, binary.LittleEndian, profileFormatVersion); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, uint32(len(p.Embedding))); err != nil {
		return nil, err
	}
	for _, v := range p.Embedding {
		if err := binary.Write(buf, binary.LittleEndian, v); err != nil {
			return nil, err
		}
	}
	if err := binary.Write(buf, binary.LittleEndian, p.UpdateCount); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, uint16(len(nameBytes))); err != nil {
		return nil, err
	}
	buf.Write(nameBytes)

	return buf.Bytes(), nil
}

// UnmarshalProfile decodes the on-disk layout written by Marshal.
func UnmarshalProfile(data []byte) (Profile, error) {
	r := bytes.NewReader(data)

	var version, dim uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return Profile{}, fmt.Errorf("read version: %w", err)
	}
	if version != profileFormatVersion {
		return Profile{}, fmt.Errorf("unsupported profile version %d", version)
	}
	if err := binary.Read(r, binary.LittleEndian, &dim); err != nil {
		return Profile{}, fmt.Errorf("read dim: %w", err)
	}

	embedding := make(Embedding, dim)
	for i := range embedding {
		if err := binary.Read(r, binary.LittleEndian, &embedding[i]); err != nil {
			return Profile{}, fmt.Errorf("read embedding: %w", err)
		}
	}

	var updateCount uint64
	if err := binary.Read(r, binary.LittleEndian, &updateCount); err != nil {
		return Profile{}, fmt.Errorf("read update_count: %w", err)
	}

	var nameLen uint16
	if err := binary.Read(r, binary.LittleEndian, &nameLen); err != nil {
		return Profile{}, fmt.Errorf("read name_len: %w", err)
	}
	nameBytes := make([]byte, nameLen)
	if _, err := io.ReadFull(r, nameBytes); err != nil {
		return Profile{}, fmt.Errorf("read name: %w", err)
	}

	return Profile{
		Name:        string(nameBytes),
		Embedding:   embedding,
		UpdateCount: updateCount,
	}, nil
}
