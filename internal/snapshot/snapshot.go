// Package snapshot persists the C1 location store and translation tables
// to a versioned, checksummed binary file so a process can warm-start
// without re-running the full SQL load, then still fingerprint-check and
// autoreload normally. The file format — fixed-size header, payload,
// fixed-size footer with a CRC32 and an atomic temp-file-then-rename write
// — is grounded on the teacher's .spdx segment format
// (internal/indexer/segment/{writer,reader}.go), renamed .gnsnap for this
// domain. A snapshot never substitutes for the fingerprint check: Restore
// only returns a Generation, the caller decides whether its Fingerprint
// still matches the database's current one before trusting it.
package snapshot

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"time"

	"github.com/fmidev/geonames-engine/internal/geoname"
	"github.com/fmidev/geonames-engine/internal/keyword"
	"github.com/fmidev/geonames-engine/internal/loader"
	"github.com/fmidev/geonames-engine/internal/translate"
)

// MagicBytes identifies a valid .gnsnap file.
const (
	MagicBytes    uint32 = 0x474e5350 // "GNSP"
	FormatVersion uint32 = 1
	HeaderSize    int    = 48
	FooterSize    int    = 16
)

// header is the fixed-size 48-byte header written at the start of every
// snapshot file.
type header struct {
	Magic          uint32
	Version        uint32
	LocationCount  uint32
	HasFingerprint uint32
	Fingerprint    int64
	PayloadSize    int64
	CreatedAt      int64
}

// payload is the JSON-encoded body between the header and the footer: the
// full location store (in Append order, so a Ref/index survives a
// round trip unchanged), the three translation tables, and the keyword
// membership index — everything Warmstart needs to rebuild Spatial and
// Suggest without touching the database.
type payload struct {
	Locations      []geoname.Location          `json:"locations"`
	Countries      map[string]map[string]string `json:"countries"`
	Municipalities map[int64]map[string]string  `json:"municipalities"`
	PlaceNames     map[int64]map[string]string  `json:"place_names"`
	CountryNames   map[string]string            `json:"country_names"`
	Languages      map[int64][]string           `json:"languages"`
	Keywords       map[string][]geoname.Ref     `json:"keywords"`
}

// Write serializes gen to a new snapshot file under dir, writing to a .tmp
// path first and renaming into place on success so a reader never observes
// a partially written file.
func Write(gen *loader.Generation, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating snapshot directory: %w", err)
	}

	p := buildPayload(gen)
	body, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshaling snapshot payload: %w", err)
	}

	name := fmt.Sprintf("geonames-%d.gnsnap", time.Now().UnixNano())
	finalPath := filepath.Join(dir, name)
	tmpPath := finalPath + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("creating temp snapshot file: %w", err)
	}
	defer f.Close()

	h := header{
		Magic:         MagicBytes,
		Version:       FormatVersion,
		LocationCount: uint32(gen.Store.Len()),
		PayloadSize:   int64(len(body)),
		CreatedAt:     time.Now().Unix(),
	}
	if gen.HasFingerprint {
		h.HasFingerprint = 1
		h.Fingerprint = gen.Fingerprint
	}
	if err := writeHeader(f, h); err != nil {
		return "", err
	}
	if _, err := f.Write(body); err != nil {
		return "", fmt.Errorf("writing snapshot payload: %w", err)
	}

	footer := make([]byte, FooterSize)
	binary.LittleEndian.PutUint32(footer[0:4], crc32.ChecksumIEEE(body))
	binary.LittleEndian.PutUint64(footer[4:12], uint64(len(body)))
	if _, err := f.Write(footer); err != nil {
		return "", fmt.Errorf("writing snapshot footer: %w", err)
	}

	if err := f.Sync(); err != nil {
		return "", fmt.Errorf("syncing snapshot file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing snapshot file: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return "", fmt.Errorf("renaming snapshot file: %w", err)
	}
	return finalPath, nil
}

// Restore reads a snapshot file and rebuilds a Generation up to (but not
// including) the Spatial/Suggest build step; the caller calls
// (*loader.Loader).Warmstart on the result to finish it, after confirming
// the returned Fingerprint is still current.
func Restore(path string) (*loader.Generation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot file: %w", err)
	}
	if len(data) < HeaderSize+FooterSize {
		return nil, fmt.Errorf("snapshot file %s is too short to be valid", path)
	}

	h, err := readHeader(data[:HeaderSize])
	if err != nil {
		return nil, err
	}

	footer := data[len(data)-FooterSize:]
	body := data[HeaderSize : len(data)-FooterSize]
	wantChecksum := binary.LittleEndian.Uint32(footer[0:4])
	wantSize := binary.LittleEndian.Uint64(footer[4:12])
	if uint64(len(body)) != wantSize {
		return nil, fmt.Errorf("snapshot %s payload size mismatch: header/footer say %d, got %d", path, wantSize, len(body))
	}
	if crc32.ChecksumIEEE(body) != wantChecksum {
		return nil, fmt.Errorf("snapshot %s failed checksum validation", path)
	}

	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("parsing snapshot payload: %w", err)
	}

	return restoreGeneration(h, p), nil
}

func buildPayload(gen *loader.Generation) payload {
	locations := make([]geoname.Location, gen.Store.Len())
	for _, ref := range gen.Store.All() {
		locations[ref] = gen.Store.Get(ref)
	}

	languages := make(map[int64][]string, len(gen.Languages))
	for geoid, set := range gen.Languages {
		langs := make([]string, 0, len(set))
		for lang := range set {
			langs = append(langs, lang)
		}
		languages[geoid] = langs
	}

	return payload{
		Locations:      locations,
		Countries:      gen.Tables.Countries.All(),
		Municipalities: gen.Tables.Municipalities.All(),
		PlaceNames:     gen.Tables.PlaceNames.All(),
		CountryNames:   gen.CountryNames,
		Languages:      languages,
		Keywords:       gen.Keywords.All(),
	}
}

func restoreGeneration(h header, p payload) *loader.Generation {
	store := geoname.NewStore(len(p.Locations))
	for _, loc := range p.Locations {
		store.Append(loc)
	}
	store.Freeze()

	languages := make(map[int64]map[string]struct{}, len(p.Languages))
	for geoid, langs := range p.Languages {
		set := make(map[string]struct{}, len(langs))
		for _, lang := range langs {
			set[lang] = struct{}{}
		}
		languages[geoid] = set
	}

	return &loader.Generation{
		Store:          store,
		Keywords:       keyword.NewIndexFromMembers(p.Keywords),
		Tables: &translate.Tables{
			Countries:      translate.NewTableFromEntries(p.Countries),
			Municipalities: translate.NewTableFromEntries(p.Municipalities),
			PlaceNames:     translate.NewTableFromEntries(p.PlaceNames),
		},
		CountryNames:   p.CountryNames,
		Languages:      languages,
		Fingerprint:    h.Fingerprint,
		HasFingerprint: h.HasFingerprint == 1,
	}
}

func writeHeader(f *os.File, h header) error {
	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint32(buf[4:8], h.Version)
	binary.LittleEndian.PutUint32(buf[8:12], h.LocationCount)
	binary.LittleEndian.PutUint32(buf[12:16], h.HasFingerprint)
	binary.LittleEndian.PutUint64(buf[16:24], uint64(h.Fingerprint))
	binary.LittleEndian.PutUint64(buf[24:32], uint64(h.PayloadSize))
	binary.LittleEndian.PutUint64(buf[32:40], uint64(h.CreatedAt))
	if _, err := f.Write(buf); err != nil {
		return fmt.Errorf("writing snapshot header: %w", err)
	}
	return nil
}

func readHeader(buf []byte) (header, error) {
	magic := binary.LittleEndian.Uint32(buf[0:4])
	if magic != MagicBytes {
		return header{}, fmt.Errorf("invalid snapshot file: bad magic bytes %x", magic)
	}
	version := binary.LittleEndian.Uint32(buf[4:8])
	if version != FormatVersion {
		return header{}, fmt.Errorf("unsupported snapshot format version %d", version)
	}
	return header{
		Magic:          magic,
		Version:        version,
		LocationCount:  binary.LittleEndian.Uint32(buf[8:12]),
		HasFingerprint: binary.LittleEndian.Uint32(buf[12:16]),
		Fingerprint:    int64(binary.LittleEndian.Uint64(buf[16:24])),
		PayloadSize:    int64(binary.LittleEndian.Uint64(buf[24:32])),
		CreatedAt:      int64(binary.LittleEndian.Uint64(buf[32:40])),
	}, nil
}
